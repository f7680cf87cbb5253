//go:build windows

package capture

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/screenstudio/core/internal/wincom"
)

var (
	d3d11DLL = syscall.NewLazyDLL("d3d11.dll")

	procD3D11CreateDevice = d3d11DLL.NewProc("D3D11CreateDevice")
)

const (
	d3dDriverTypeHardware = 1
	d3dFeatureLevel11_0   = 0xb000
	d3d11SDKVersion       = 7

	d3d11CreateDeviceBGRASupport = 0x20

	d3d11UsageStaging  = 3
	d3d11CPUAccessRead = 0x20000
	dxgiFormatB8G8R8A8 = 87

	dxgiErrWaitTimeout   = 0x887A0027
	dxgiErrAccessLost    = 0x887A0026
	dxgiErrDeviceRemoved = 0x887A0005
	dxgiErrDeviceReset   = 0x887A0007

	// DXGI/D3D11 COM vtable indices, ported from the same DXGI duplication
	// realization used elsewhere in this codebase for GPU-shared-surface capture.
	dxgiDeviceGetAdapter       = 7
	dxgiAdapterEnumOutputs     = 7
	dxgiOutput1DuplicateOutput = 22
	dxgiDuplAcquireNextFrame   = 8
	dxgiDuplReleaseFrame       = 14
	d3d11DeviceCreateTexture2D = 5
	d3d11CtxMap                = 14
	d3d11CtxUnmap              = 15
	d3d11CtxCopyResource       = 47
)

var (
	iidIDXGIDevice     = wincom.NewGUID("{54EC77FA-1377-44E6-8C32-88FD5F44C84C}")
	iidID3D11Texture2D = wincom.NewGUID("{6F15AAF2-D208-4E89-9AB4-489535D34F9C}")
	iidIDXGIOutput1    = wincom.NewGUID("{00CDDEA8-939B-4B83-A340-A685226666CC}")
)

type d3d11Texture2DDesc struct {
	Width          uint32
	Height         uint32
	MipLevels      uint32
	ArraySize      uint32
	Format         uint32
	SampleCount    uint32
	SampleQuality  uint32
	Usage          uint32
	BindFlags      uint32
	CPUAccessFlags uint32
	MiscFlags      uint32
}

type d3d11MappedSubresource struct {
	PData      uintptr
	RowPitch   uint32
	DepthPitch uint32
}

type dxgiOutDuplFrameInfo struct {
	LastPresentTime           int64
	LastMouseUpdateTime       int64
	AccumulatedFrames         uint32
	RectsCoalesced            int32
	ProtectedContentMaskedOut int32
	PointerPosition           struct {
		Position struct{ X, Y int32 }
		Visible  int32
	}
	TotalMetadataBufferSize uint32
	PointerShapeBufferSize  uint32
}

// dxgiBackend captures via the Desktop Duplication API (zero-copy
// GPU-shared-surface). It falls back to gdiBackend when the duplication
// session cannot be established, or after a device-lost error.
type dxgiBackend struct {
	opts Options

	device      uintptr
	context     uintptr
	duplication uintptr
	staging     uintptr
	width, height int

	mu       sync.Mutex
	fallback *gdiBackend
	onFallback bool

	frames chan Frame
	index  atomic.Uint64
	stop   chan struct{}
	closed atomic.Bool
}

func newPlatformBackend(opts Options) (Backend, error) {
	b := &dxgiBackend{
		opts:   opts,
		frames: make(chan Frame, DefaultQueueDepth),
		stop:   make(chan struct{}),
	}
	if err := b.initDuplication(); err != nil {
		log.Warn("DXGI duplication unavailable, using GDI fallback", "error", err)
		return b.useFallback()
	}
	return b, nil
}

func (b *dxgiBackend) Frames() <-chan Frame { return b.frames }

func (b *dxgiBackend) Start() error {
	b.mu.Lock()
	if b.onFallback {
		fb := b.fallback
		b.mu.Unlock()
		return fb.Start()
	}
	b.mu.Unlock()
	go b.captureLoop()
	return nil
}

func (b *dxgiBackend) initDuplication() error {
	var device, context uintptr
	ret, _, _ := procD3D11CreateDevice.Call(
		0, uintptr(d3dDriverTypeHardware), 0, uintptr(d3d11CreateDeviceBGRASupport),
		0, 0, uintptr(d3d11SDKVersion),
		uintptr(unsafe.Pointer(&device)), 0, uintptr(unsafe.Pointer(&context)),
	)
	if int32(ret) < 0 {
		return fmt.Errorf("D3D11CreateDevice: HRESULT 0x%08X", uint32(ret))
	}

	dxgiDevice, err := wincom.QueryInterface(device, iidIDXGIDevice)
	if err != nil {
		return fmt.Errorf("QueryInterface IDXGIDevice: %w", err)
	}
	defer wincom.Release(dxgiDevice)

	var adapter uintptr
	if _, err := wincom.VtableCall(dxgiDevice, dxgiDeviceGetAdapter, uintptr(unsafe.Pointer(&adapter))); err != nil {
		return fmt.Errorf("GetAdapter: %w", err)
	}
	defer wincom.Release(adapter)

	var output uintptr
	displayIdx := uintptr(b.opts.Target.DisplayIndex)
	if _, err := wincom.VtableCall(adapter, dxgiAdapterEnumOutputs, displayIdx, uintptr(unsafe.Pointer(&output))); err != nil {
		return fmt.Errorf("EnumOutputs(%d): %w", b.opts.Target.DisplayIndex, err)
	}
	defer wincom.Release(output)

	output1, err := wincom.QueryInterface(output, iidIDXGIOutput1)
	if err != nil {
		return fmt.Errorf("QueryInterface IDXGIOutput1: %w", err)
	}
	defer wincom.Release(output1)

	var duplication uintptr
	if _, err := wincom.VtableCall(output1, dxgiOutput1DuplicateOutput, device, uintptr(unsafe.Pointer(&duplication))); err != nil {
		return fmt.Errorf("DuplicateOutput: %w", err)
	}

	b.device = device
	b.context = context
	b.duplication = duplication

	w, h := screenDimensions(b.opts)
	b.width, b.height = w, h
	return b.createStagingTexture()
}

func (b *dxgiBackend) createStagingTexture() error {
	desc := d3d11Texture2DDesc{
		Width:          uint32(b.width),
		Height:         uint32(b.height),
		MipLevels:      1,
		ArraySize:      1,
		Format:         dxgiFormatB8G8R8A8,
		SampleCount:    1,
		Usage:          d3d11UsageStaging,
		CPUAccessFlags: d3d11CPUAccessRead,
	}
	var staging uintptr
	if _, err := wincom.VtableCall(b.device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&staging))); err != nil {
		return fmt.Errorf("CreateTexture2D(staging): %w", err)
	}
	b.staging = staging
	return nil
}

func (b *dxgiBackend) captureLoop() {
	interval := time.Second / time.Duration(max(b.opts.FPS, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(b.frames)

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			frame, lost, err := b.acquireFrame()
			if lost {
				log.Warn("DXGI device lost, switching to GDI fallback")
				if _, fbErr := b.useFallback(); fbErr == nil {
					b.mu.Lock()
					fb := b.fallback
					b.mu.Unlock()
					fb.Start()
					b.relayFallbackFrames(fb)
				}
				return
			}
			if err != nil {
				continue // acquisition timeout: skip frame silently
			}
			select {
			case b.frames <- frame:
			default:
				select {
				case <-b.frames:
				default:
				}
				b.frames <- frame
			}
		}
	}
}

// relayFallbackFrames forwards frames from the GDI fallback into this
// backend's channel so frame indices observed by the consumer stay on a
// single monotone sequence across the switch.
func (b *dxgiBackend) relayFallbackFrames(fb *gdiBackend) {
	for frame := range fb.Frames() {
		frame.Index = b.index.Add(1)
		select {
		case b.frames <- frame:
		case <-b.stop:
			return
		}
	}
}

func (b *dxgiBackend) acquireFrame() (Frame, bool, error) {
	var resource uintptr
	var frameInfo dxgiOutDuplFrameInfo

	ret, err := wincom.VtableCall(b.duplication, dxgiDuplAcquireNextFrame,
		100, uintptr(unsafe.Pointer(&frameInfo)), uintptr(unsafe.Pointer(&resource)))
	hresult := uint32(ret)
	switch hresult {
	case dxgiErrWaitTimeout:
		return Frame{}, false, fmt.Errorf("acquire timeout")
	case dxgiErrAccessLost, dxgiErrDeviceRemoved, dxgiErrDeviceReset:
		return Frame{}, true, fmt.Errorf("DXGI device lost: 0x%08X", hresult)
	}
	if err != nil {
		return Frame{}, false, err
	}
	defer wincom.VtableCall(b.duplication, dxgiDuplReleaseFrame)

	texture, err := wincom.QueryInterface(resource, iidID3D11Texture2D)
	if err != nil {
		return Frame{}, false, err
	}
	defer wincom.Release(texture)

	wincom.VtableCall(b.context, d3d11CtxCopyResource, b.staging, texture)

	var mapped d3d11MappedSubresource
	if _, err := wincom.VtableCall(b.context, d3d11CtxMap, b.staging, 0, 1, 0, uintptr(unsafe.Pointer(&mapped))); err != nil {
		return Frame{}, false, err
	}
	defer wincom.VtableCall(b.context, d3d11CtxUnmap, b.staging, 0)

	data := make([]byte, b.width*b.height*4)
	src := unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), int(mapped.RowPitch)*b.height)
	rowBytes := b.width * 4
	for y := 0; y < b.height; y++ {
		copy(data[y*rowBytes:(y+1)*rowBytes], src[y*int(mapped.RowPitch):y*int(mapped.RowPitch)+rowBytes])
	}

	idx := b.index.Add(1)
	return Frame{Data: data, W: b.width, H: b.height, Index: idx}, false, nil
}

func (b *dxgiBackend) SwitchToFallback() error {
	_, err := b.useFallback()
	if err != nil {
		return err
	}
	b.mu.Lock()
	fb := b.fallback
	b.mu.Unlock()
	return fb.Start()
}

func (b *dxgiBackend) useFallback() (Backend, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fallback == nil {
		b.fallback = newGDIBackend(b.opts)
	}
	b.onFallback = true
	return b.fallback, nil
}

func (b *dxgiBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.stop)
	if b.fallback != nil {
		b.fallback.Close()
	}
	wincom.Release(b.staging)
	wincom.Release(b.duplication)
	wincom.Release(b.context)
	wincom.Release(b.device)
	return nil
}

func screenDimensions(opts Options) (int, int) {
	if opts.Target.Kind == TargetRegion {
		return opts.Target.Region.W, opts.Target.Region.H
	}
	w, _, _ := procGetSystemMetrics.Call(smCxScreen)
	h, _, _ := procGetSystemMetrics.Call(smCyScreen)
	return int(w), int(h)
}
