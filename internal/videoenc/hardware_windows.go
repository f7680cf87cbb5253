//go:build windows

package videoenc

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/screenstudio/core/internal/wincom"
)

var (
	mfplatDLL  = syscall.NewLazyDLL("mfplat.dll")
	mfreadwriteDLL = syscall.NewLazyDLL("mfreadwrite.dll")

	procMFStartup              = mfplatDLL.NewProc("MFStartup")
	procMFShutdown             = mfplatDLL.NewProc("MFShutdown")
	procMFCreateMediaType      = mfplatDLL.NewProc("MFCreateMediaType")
	procMFCreateSample         = mfplatDLL.NewProc("MFCreateSample")
	procMFCreateMemoryBuffer   = mfplatDLL.NewProc("MFCreateMemoryBuffer")
	procMFCreateSinkWriterFromURL = mfreadwriteDLL.NewProc("MFCreateSinkWriterFromURL")
)

const (
	mfStartupFull = 0

	// IMFMediaType vtable indices (inherited from IMFAttributes).
	attrSetGUID   = 9
	attrSetUINT32 = 7
	attrSetUINT64 = 8

	// IMFSinkWriter vtable indices.
	sinkWriterAddStream        = 3
	sinkWriterSetInputMediaType = 4
	sinkWriterBeginWriting     = 5
	sinkWriterWriteSample      = 6
	sinkWriterFinalize         = 9

	// IMFSample / IMFMediaBuffer.
	sampleSetSampleTime     = 8
	sampleSetSampleDuration = 9
	sampleAddBuffer         = 12
	bufferLock              = 5
	bufferUnlock            = 6
	bufferSetCurrentLength  = 8
)

var (
	mfMTMajorType   = wincom.NewGUID("{48EBA18E-F8C9-4687-BF11-0A74C9F96A8F}")
	mfMTSubtype     = wincom.NewGUID("{F7E34C9A-42E8-4714-B74B-CB29D72C35E5}")
	mfMTFrameSize   = wincom.NewGUID("{1652C33D-D6B2-4012-B834-72030849A37D}")
	mfMTFrameRate   = wincom.NewGUID("{C459A2E8-3D2C-4E44-B132-FEE5156C7BB0}")
	mfMTAvgBitrate  = wincom.NewGUID("{20332624-FB0D-4D9E-BD0D-CBF6786C102E}")
	mfMTInterlace   = wincom.NewGUID("{E2724BB8-E676-4806-B4B2-A8D6EFB44CCD}")
	mfMediaTypeVideo = wincom.NewGUID("{73646976-0000-0010-8000-00AA00389B71}")
	mfVideoFormatH264 = wincom.NewGUID("{34363248-0000-0010-8000-00AA00389B71}")
	mfVideoFormatNV12 = wincom.NewGUID("{3231564E-0000-0010-8000-00AA00389B71}")
)

var mfInitCount atomic.Int32

// hardwareBackend drives a Media Foundation IMFSinkWriter configured to
// prefer a hardware H.264 MFT, which also owns MP4 muxing (faststart,
// yuv420p-equivalent NV12 input) so the sink writer's own container
// handling satisfies the screen.mp4 contract without a separate muxer.
type hardwareBackend struct {
	cfg        Config
	sinkWriter uintptr
	streamIdx  uint32
	frameIdx   int64
}

func init() {
	registerHardwareFactory(newHardwareBackend)
}

func newHardwareBackend(cfg Config) (backend, error) {
	if mfInitCount.Add(1) == 1 {
		if ret, _, _ := procMFStartup.Call(0x00020070, mfStartupFull); int32(ret) < 0 {
			mfInitCount.Add(-1)
			return nil, fmt.Errorf("MFStartup: HRESULT 0x%08X", uint32(ret))
		}
	}

	urlPtr, err := syscall.UTF16PtrFromString(cfg.OutputPath)
	if err != nil {
		return nil, err
	}

	var sinkWriter uintptr
	ret, _, _ := procMFCreateSinkWriterFromURL.Call(uintptr(unsafe.Pointer(urlPtr)), 0, 0, uintptr(unsafe.Pointer(&sinkWriter)))
	if int32(ret) < 0 {
		return nil, fmt.Errorf("MFCreateSinkWriterFromURL: HRESULT 0x%08X (no hardware encoder available)", uint32(ret))
	}

	outType, err := newVideoMediaType(mfVideoFormatH264, cfg)
	if err != nil {
		wincom.Release(sinkWriter)
		return nil, err
	}
	defer wincom.Release(outType)

	var streamIdx uint32
	if _, err := wincom.VtableCall(sinkWriter, sinkWriterAddStream, outType, uintptr(unsafe.Pointer(&streamIdx))); err != nil {
		wincom.Release(sinkWriter)
		return nil, fmt.Errorf("AddStream: %w", err)
	}

	inType, err := newVideoMediaType(mfVideoFormatNV12, cfg)
	if err != nil {
		wincom.Release(sinkWriter)
		return nil, err
	}
	defer wincom.Release(inType)

	if _, err := wincom.VtableCall(sinkWriter, sinkWriterSetInputMediaType, uintptr(streamIdx), inType, 0); err != nil {
		wincom.Release(sinkWriter)
		return nil, fmt.Errorf("SetInputMediaType: %w", err)
	}

	if _, err := wincom.VtableCall(sinkWriter, sinkWriterBeginWriting); err != nil {
		wincom.Release(sinkWriter)
		return nil, fmt.Errorf("BeginWriting: %w", err)
	}

	return &hardwareBackend{cfg: cfg, sinkWriter: sinkWriter, streamIdx: streamIdx}, nil
}

func newVideoMediaType(subtype *wincom.GUID, cfg Config) (uintptr, error) {
	var mt uintptr
	if ret, _, _ := procMFCreateMediaType.Call(uintptr(unsafe.Pointer(&mt))); int32(ret) < 0 {
		return 0, fmt.Errorf("MFCreateMediaType: HRESULT 0x%08X", uint32(ret))
	}
	wincom.VtableCall(mt, attrSetGUID, uintptr(unsafe.Pointer(mfMTMajorType)), uintptr(unsafe.Pointer(mfMediaTypeVideo)))
	wincom.VtableCall(mt, attrSetGUID, uintptr(unsafe.Pointer(mfMTSubtype)), uintptr(unsafe.Pointer(subtype)))
	wincom.VtableCall(mt, attrSetUINT64, uintptr(unsafe.Pointer(mfMTFrameSize)), packUint64(uint32(cfg.Width), uint32(cfg.Height)))
	wincom.VtableCall(mt, attrSetUINT64, uintptr(unsafe.Pointer(mfMTFrameRate)), packUint64(uint32(cfg.FPS), 1))
	wincom.VtableCall(mt, attrSetUINT32, uintptr(unsafe.Pointer(mfMTInterlace)), 2) // MFVideoInterlace_Progressive
	if subtype == mfVideoFormatH264 {
		wincom.VtableCall(mt, attrSetUINT32, uintptr(unsafe.Pointer(mfMTAvgBitrate)), uintptr(cfg.Bitrate))
	}
	return mt, nil
}

func packUint64(hi, lo uint32) uintptr {
	return uintptr(uint64(hi)<<32 | uint64(lo))
}

func (b *hardwareBackend) Encode(frameBGRA []byte, ptsTicks int64) error {
	nv12 := bgraToNV12(frameBGRA, b.cfg.Width, b.cfg.Height)
	defer putNV12Buffer(nv12)

	var buf uintptr
	if ret, _, _ := procMFCreateMemoryBuffer.Call(uintptr(len(nv12)), uintptr(unsafe.Pointer(&buf))); int32(ret) < 0 {
		return fmt.Errorf("MFCreateMemoryBuffer: HRESULT 0x%08X", uint32(ret))
	}
	defer wincom.Release(buf)

	var dataPtr uintptr
	wincom.VtableCall(buf, bufferLock, uintptr(unsafe.Pointer(&dataPtr)), 0, 0)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(dataPtr)), len(nv12))
	copy(dst, nv12)
	wincom.VtableCall(buf, bufferUnlock)
	wincom.VtableCall(buf, bufferSetCurrentLength, uintptr(len(nv12)))

	var sample uintptr
	if ret, _, _ := procMFCreateSample.Call(uintptr(unsafe.Pointer(&sample))); int32(ret) < 0 {
		return fmt.Errorf("MFCreateSample: HRESULT 0x%08X", uint32(ret))
	}
	defer wincom.Release(sample)

	wincom.VtableCall(sample, sampleAddBuffer, buf)
	wincom.VtableCall(sample, sampleSetSampleTime, uintptr(ptsTicks))
	frameDurationTicks := int64(10_000_000) / int64(b.cfg.FPS)
	wincom.VtableCall(sample, sampleSetSampleDuration, uintptr(frameDurationTicks))

	if _, err := wincom.VtableCall(b.sinkWriter, sinkWriterWriteSample, uintptr(b.streamIdx), sample); err != nil {
		return fmt.Errorf("WriteSample: %w", err)
	}
	b.frameIdx++
	return nil
}

func (b *hardwareBackend) Finalize() error {
	_, err := wincom.VtableCall(b.sinkWriter, sinkWriterFinalize)
	wincom.Release(b.sinkWriter)
	if mfInitCount.Add(-1) == 0 {
		procMFShutdown.Call()
	}
	if err != nil {
		return fmt.Errorf("Finalize: %w", err)
	}
	return nil
}

func (b *hardwareBackend) Name() string     { return "mf-sinkwriter-hardware" }
func (b *hardwareBackend) IsHardware() bool { return true }
