//go:build windows

package capture

import (
	"fmt"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/screenstudio/core/internal/corerr"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")
	gdi32  = syscall.NewLazyDLL("gdi32.dll")

	procGetDC              = user32.NewProc("GetDC")
	procReleaseDC           = user32.NewProc("ReleaseDC")
	procGetSystemMetrics    = user32.NewProc("GetSystemMetrics")
	procGetCursorPos        = user32.NewProc("GetCursorPos")
	procCreateDCW           = gdi32.NewProc("CreateDCW")
	procCreateCompatibleDC  = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject        = gdi32.NewProc("SelectObject")
	procBitBlt              = gdi32.NewProc("BitBlt")
	procDeleteDC            = gdi32.NewProc("DeleteDC")
	procDeleteObject        = gdi32.NewProc("DeleteObject")
	procGetDIBits           = gdi32.NewProc("GetDIBits")
)

const (
	smCxScreen = 0
	smCyScreen = 1
	srcCopy    = 0x00CC0020
	captureBlt = 0x40000000
	biRGB      = 0
)

type bitmapInfoHeader struct {
	BiSize          uint32
	BiWidth         int32
	BiHeight        int32
	BiPlanes        uint16
	BiBitCount      uint16
	BiCompression   uint32
	BiSizeImage     uint32
	BiXPelsPerMeter int32
	BiYPelsPerMeter int32
	BiClrUsed       uint32
	BiClrImportant  uint32
}

type bitmapInfo struct {
	BmiHeader bitmapInfoHeader
	BmiColors [1]uint32
}

var displayDeviceName = syscall.StringToUTF16Ptr("DISPLAY")

// gdiBackend captures via BitBlt from a device-context DC. Used as the
// Windows fallback when a GPU-shared-surface (DXGI) session cannot be
// established, or after a GPU-device-lost signal.
type gdiBackend struct {
	opts Options

	mu            sync.Mutex
	screenDC      uintptr
	screenDCOwned bool
	memDC         uintptr
	hBitmap       uintptr
	width, height int
	pixBuf        []byte

	frames  chan Frame
	index   atomic.Uint64
	stop    chan struct{}
	closed  atomic.Bool
}

func newGDIBackend(opts Options) *gdiBackend {
	return &gdiBackend{
		opts:   opts,
		frames: make(chan Frame, DefaultQueueDepth),
		stop:   make(chan struct{}),
	}
}

func (b *gdiBackend) Frames() <-chan Frame { return b.frames }

func (b *gdiBackend) Start() error {
	if err := b.ensureHandles(); err != nil {
		return corerr.Wrap(corerr.KindCaptureUnavailable, "capture.gdiBackend.Start", err)
	}
	go b.captureLoop()
	return nil
}

func (b *gdiBackend) captureLoop() {
	interval := time.Second / time.Duration(max(b.opts.FPS, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(b.frames)

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			frame, err := b.captureFrame()
			if err != nil {
				log.Warn("gdi capture frame failed", "error", err)
				continue
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

func (b *gdiBackend) ensureHandles() error {
	w, _, _ := procGetSystemMetrics.Call(smCxScreen)
	h, _, _ := procGetSystemMetrics.Call(smCyScreen)
	if w == 0 || h == 0 {
		return fmt.Errorf("GetSystemMetrics returned zero dimensions")
	}
	width, height := int(w), int(h)
	if b.opts.Target.Kind == TargetRegion {
		width, height = b.opts.Target.Region.W, b.opts.Target.Region.H
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.screenDC != 0 && b.width == width && b.height == height {
		return nil
	}
	b.releaseHandlesLocked()

	hdc, _, _ := procCreateDCW.Call(uintptr(unsafe.Pointer(displayDeviceName)), 0, 0, 0)
	if hdc == 0 {
		hdc, _, _ = procGetDC.Call(0)
		if hdc == 0 {
			return fmt.Errorf("both CreateDC and GetDC failed")
		}
		b.screenDCOwned = false
	} else {
		b.screenDCOwned = true
	}

	memDC, _, _ := procCreateCompatibleDC.Call(hdc)
	if memDC == 0 {
		b.releaseDC(hdc)
		return fmt.Errorf("CreateCompatibleDC failed")
	}

	hBitmap, _, _ := procCreateCompatibleBitmap.Call(hdc, uintptr(width), uintptr(height))
	if hBitmap == 0 {
		procDeleteDC.Call(memDC)
		b.releaseDC(hdc)
		return fmt.Errorf("CreateCompatibleBitmap failed")
	}
	procSelectObject.Call(memDC, hBitmap)

	b.screenDC = hdc
	b.memDC = memDC
	b.hBitmap = hBitmap
	b.width = width
	b.height = height
	b.pixBuf = make([]byte, width*height*4)
	return nil
}

func (b *gdiBackend) releaseDC(hdc uintptr) {
	if b.screenDCOwned {
		procDeleteDC.Call(hdc)
	} else {
		procReleaseDC.Call(0, hdc)
	}
}

func (b *gdiBackend) releaseHandlesLocked() {
	if b.hBitmap != 0 {
		procDeleteObject.Call(b.hBitmap)
		b.hBitmap = 0
	}
	if b.memDC != 0 {
		procDeleteDC.Call(b.memDC)
		b.memDC = 0
	}
	if b.screenDC != 0 {
		b.releaseDC(b.screenDC)
		b.screenDC = 0
	}
}

func (b *gdiBackend) captureFrame() (Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	srcX, srcY := 0, 0
	if b.opts.Target.Kind == TargetRegion {
		srcX, srcY = b.opts.Target.Region.X, b.opts.Target.Region.Y
	}

	flags := uintptr(srcCopy)
	if b.opts.Cursor {
		flags |= captureBlt
	}
	ok, _, _ := procBitBlt.Call(
		b.memDC, 0, 0, uintptr(b.width), uintptr(b.height),
		b.screenDC, uintptr(srcX), uintptr(srcY), flags,
	)
	if ok == 0 {
		return Frame{}, fmt.Errorf("BitBlt failed")
	}

	bi := bitmapInfo{
		BmiHeader: bitmapInfoHeader{
			BiSize:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
			BiWidth:       int32(b.width),
			BiHeight:      -int32(b.height), // negative: top-down DIB, matches capture.Frame's row order
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: biRGB,
		},
	}
	res, _, _ := procGetDIBits.Call(
		b.memDC, b.hBitmap, 0, uintptr(b.height),
		uintptr(unsafe.Pointer(&b.pixBuf[0])), uintptr(unsafe.Pointer(&bi)), 0,
	)
	if res == 0 {
		return Frame{}, fmt.Errorf("GetDIBits failed")
	}

	out := make([]byte, len(b.pixBuf))
	copy(out, b.pixBuf)

	idx := b.index.Add(1)
	return Frame{Data: out, W: b.width, H: b.height, Index: idx}, nil
}

func (b *gdiBackend) SwitchToFallback() error {
	return nil // already the fallback path
}

func (b *gdiBackend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(b.stop)
	b.mu.Lock()
	b.releaseHandlesLocked()
	b.mu.Unlock()
	return nil
}

// cursorPosition returns the current cursor position in screen pixels.
func cursorPosition() (x, y int32, ok bool) {
	var pt struct{ X, Y int32 }
	ret, _, _ := procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	if ret == 0 {
		return 0, 0, false
	}
	return pt.X, pt.Y, true
}
