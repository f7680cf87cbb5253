//go:build windows

package gpu

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/screenstudio/core/internal/wincom"
)

var (
	d3d11DLL = syscall.NewLazyDLL("d3d11.dll")

	procD3D11CreateDevice = d3d11DLL.NewProc("D3D11CreateDevice")
)

const (
	d3dDriverTypeHardware        = 1
	d3d11SDKVersion              = 7
	d3d11CreateDeviceBGRASupport = 0x20

	dxgiFormatB8G8R8A8 = 87

	d3d11BindShaderResource = 0x8
	d3d11BindRenderTarget   = 0x20
	d3d11UsageDefault       = 0
	d3d11UsageStaging       = 3
	d3d11CPUAccessRead      = 0x20000

	// D3D11 COM vtable indices, matching the GPU-shared-surface realization
	// used elsewhere in this codebase for capture/texture interop.
	d3d11DeviceCreateTexture2D = 5
	d3d11CtxUpdateSubresource  = 48
	d3d11CtxCopyResource       = 47
	d3d11CtxMap                = 14
	d3d11CtxUnmap              = 15
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

type d3d11Renderer struct {
	device  uintptr
	context uintptr
}

func newPlatformRenderer() (Renderer, error) {
	var device, context uintptr
	ret, _, _ := procD3D11CreateDevice.Call(
		0, uintptr(d3dDriverTypeHardware), 0, uintptr(d3d11CreateDeviceBGRASupport),
		0, 0, uintptr(d3d11SDKVersion),
		uintptr(unsafe.Pointer(&device)), 0, uintptr(unsafe.Pointer(&context)),
	)
	if int32(ret) < 0 {
		return nil, fmt.Errorf("D3D11CreateDevice: HRESULT 0x%08X", uint32(ret))
	}
	return &d3d11Renderer{device: device, context: context}, nil
}

func (r *d3d11Renderer) createTexture(w, h int, bind, usage, cpuAccess uint32) (uintptr, error) {
	desc := d3d11Texture2DDesc{
		Width: uint32(w), Height: uint32(h), MipLevels: 1, ArraySize: 1,
		Format: dxgiFormatB8G8R8A8, SampleCount: 1,
		Usage: usage, BindFlags: bind, CPUAccessFlags: cpuAccess,
	}
	var tex uintptr
	if _, err := wincom.VtableCall(r.device, d3d11DeviceCreateTexture2D,
		uintptr(unsafe.Pointer(&desc)), 0, uintptr(unsafe.Pointer(&tex))); err != nil {
		return 0, fmt.Errorf("CreateTexture2D: %w", err)
	}
	return tex, nil
}

func (r *d3d11Renderer) TextureFromBGRA(data []byte, w, h int) (Texture, error) {
	tex, err := r.createTexture(w, h, d3d11BindShaderResource, d3d11UsageDefault, 0)
	if err != nil {
		return Texture{}, err
	}
	rowPitch := uint32(w * 4)
	wincom.VtableCall(r.context, d3d11CtxUpdateSubresource, tex, 0, 0,
		uintptr(unsafe.Pointer(&data[0])), uintptr(rowPitch), 0)
	return Texture{handle: tex, W: w, H: h}, nil
}

func (r *d3d11Renderer) CreateOutputTexture(w, h int) (Texture, error) {
	tex, err := r.createTexture(w, h, d3d11BindRenderTarget|d3d11BindShaderResource, d3d11UsageDefault, 0)
	if err != nil {
		return Texture{}, err
	}
	return Texture{handle: tex, W: w, H: h}, nil
}

func (r *d3d11Renderer) ReadTexture(t Texture) ([]byte, error) {
	staging, err := r.createTexture(t.W, t.H, 0, d3d11UsageStaging, d3d11CPUAccessRead)
	if err != nil {
		return nil, err
	}
	defer wincom.Release(staging)

	wincom.VtableCall(r.context, d3d11CtxCopyResource, staging, t.handle)

	var mapped d3d11MappedSubresource
	if _, err := wincom.VtableCall(r.context, d3d11CtxMap, staging, 0, 1, 0, uintptr(unsafe.Pointer(&mapped))); err != nil {
		return nil, fmt.Errorf("Map: %w", err)
	}
	defer wincom.VtableCall(r.context, d3d11CtxUnmap, staging, 0)

	out := make([]byte, t.W*t.H*4)
	src := unsafe.Slice((*byte)(unsafe.Pointer(mapped.PData)), int(mapped.RowPitch)*t.H)
	rowBytes := t.W * 4
	for y := 0; y < t.H; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], src[y*int(mapped.RowPitch):y*int(mapped.RowPitch)+rowBytes])
	}
	return out, nil
}

// CreateShader is unsupported: no WGSL/wgpu binding exists in this
// toolchain, so the compositor uses its CPU raster passes instead of
// shader programs even on the D3D11 renderer.
func (r *d3d11Renderer) CreateShader(wgsl string) (ShaderHandle, error) {
	return ShaderHandle{}, errShaderUnsupported
}

func (r *d3d11Renderer) Close() error {
	wincom.Release(r.context)
	wincom.Release(r.device)
	return nil
}
