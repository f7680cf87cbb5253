//go:build windows

package cursor

import (
	"fmt"
	"runtime"
	"syscall"
	"unsafe"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")
	gdi32  = syscall.NewLazyDLL("gdi32.dll")

	procGetCursorInfo      = user32.NewProc("GetCursorInfo")
	procGetIconInfo        = user32.NewProc("GetIconInfo")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")

	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procSelectObject       = gdi32.NewProc("SelectObject")
	procGetDIBits          = gdi32.NewProc("GetDIBits")
	procDeleteDC           = gdi32.NewProc("DeleteDC")
	procDeleteObject       = gdi32.NewProc("DeleteObject")
	procGetObjectW         = gdi32.NewProc("GetObjectW")
)

const (
	cursorShowing = 0x00000001
	biRGB         = 0

	whMouseLL    = 14
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
)

type cursorInfoW struct {
	CbSize      uint32
	Flags       uint32
	HCursor     uintptr
	PtScreenPos struct{ X, Y int32 }
}

type iconInfoW struct {
	FIcon    int32
	XHotspot uint32
	YHotspot uint32
	HbmMask  uintptr
	HbmColor uintptr
}

type bitmapW struct {
	BmType       int32
	BmWidth      int32
	BmHeight     int32
	BmWidthBytes int32
	BmPlanes     uint16
	BmBitsPixel  uint16
	BmBits       uintptr
}

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

type msllhookstruct struct {
	Pt          struct{ X, Y int32 }
	MouseData   uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type winProvider struct {
	buttons chan ButtonEvent
	hook    uintptr
	done    chan struct{}
}

var activeProvider *winProvider

func newPlatformProvider() Provider {
	p := &winProvider{buttons: make(chan ButtonEvent, 64), done: make(chan struct{})}
	activeProvider = p
	go p.runHookThread()
	return p
}

// runHookThread installs a low-level mouse hook on a dedicated OS thread
// with its own message loop; SetWindowsHookExW(WH_MOUSE_LL) is thread-affine
// and requires a GetMessage pump to keep deliverying callbacks.
func (p *winProvider) runHookThread() {
	runtime.LockOSThread()
	cb := syscall.NewCallback(mouseHookProc)
	hook, _, _ := procSetWindowsHookExW.Call(whMouseLL, cb, 0, 0)
	if hook == 0 {
		return
	}
	p.hook = hook
	defer procUnhookWindowsHookEx.Call(hook)

	var msg [6]uintptr // MSG struct, oversized to cover padding
	for {
		select {
		case <-p.done:
			return
		default:
		}
		procGetMessageW.Call(uintptr(unsafe.Pointer(&msg[0])), 0, 0, 0)
	}
}

func mouseHookProc(nCode int32, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 && activeProvider != nil {
		var button string
		var down bool
		switch wParam {
		case wmLButtonDown:
			button, down = "left", true
		case wmLButtonUp:
			button, down = "left", false
		case wmRButtonDown:
			button, down = "right", true
		case wmRButtonUp:
			button, down = "right", false
		}
		if button != "" {
			select {
			case activeProvider.buttons <- ButtonEvent{Down: down, Button: button}:
			default:
			}
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

func (p *winProvider) Poll() (Snapshot, error) {
	var ci cursorInfoW
	ci.CbSize = uint32(unsafe.Sizeof(ci))
	ret, _, _ := procGetCursorInfo.Call(uintptr(unsafe.Pointer(&ci)))
	if ret == 0 {
		return Snapshot{}, fmt.Errorf("GetCursorInfo failed")
	}
	visible := ci.Flags&cursorShowing != 0
	snap := Snapshot{X: int(ci.PtScreenPos.X), Y: int(ci.PtScreenPos.Y), Visible: visible}
	if !visible {
		return snap, nil
	}

	var ii iconInfoW
	if ret, _, _ := procGetIconInfo.Call(ci.HCursor, uintptr(unsafe.Pointer(&ii))); ret == 0 {
		return snap, fmt.Errorf("GetIconInfo failed")
	}
	defer func() {
		if ii.HbmMask != 0 {
			procDeleteObject.Call(ii.HbmMask)
		}
		if ii.HbmColor != 0 {
			procDeleteObject.Call(ii.HbmColor)
		}
	}()

	snap.HotspotX = int(ii.XHotspot)
	snap.HotspotY = int(ii.YHotspot)

	hBitmap := ii.HbmColor
	if hBitmap == 0 {
		hBitmap = ii.HbmMask // monochrome cursor: mask doubles as shape
	}

	var bm bitmapW
	procGetObjectW.Call(hBitmap, unsafe.Sizeof(bm), uintptr(unsafe.Pointer(&bm)))
	w, h := int(bm.BmWidth), int(bm.BmHeight)
	if w == 0 || h == 0 {
		return snap, fmt.Errorf("cursor bitmap has zero dimensions")
	}

	memDC, _, _ := procCreateCompatibleDC.Call(0)
	if memDC == 0 {
		return snap, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)
	procSelectObject.Call(memDC, hBitmap)

	pix := make([]byte, w*h*4)
	bi := bitmapInfo{
		BmiHeader: bitmapInfoHeader{
			BiSize:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
			BiWidth:       int32(w),
			BiHeight:      -int32(h),
			BiPlanes:      1,
			BiBitCount:    32,
			BiCompression: biRGB,
		},
	}
	res, _, _ := procGetDIBits.Call(memDC, hBitmap, 0, uintptr(h),
		uintptr(unsafe.Pointer(&pix[0])), uintptr(unsafe.Pointer(&bi)), 0)
	if res == 0 {
		return snap, fmt.Errorf("GetDIBits failed")
	}

	// BGRA -> RGBA
	for i := 0; i+3 < len(pix); i += 4 {
		pix[i], pix[i+2] = pix[i+2], pix[i]
	}

	snap.Bitmap = pix
	snap.W, snap.H = w, h
	return snap, nil
}

func (p *winProvider) Buttons() <-chan ButtonEvent { return p.buttons }

func (p *winProvider) Close() {
	close(p.done)
	close(p.buttons)
}
