//go:build windows

// Package wincom provides the shared low-level COM vtable-calling helpers
// used by the capture, audio, and gpu Windows backends. No cgo, no WinRT
// bindings: every interface call goes through a raw vtable pointer lookup
// and syscall.SyscallN, following the same technique across all three
// backends so COM lifetime bugs only need fixing in one place.
package wincom

import (
	"fmt"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// GUID is a COM GUID (128-bit). Alias of go-ole's layout so capture/audio/gpu
// backends can parse CLSID/IID strings with ole.NewGUID and still pass the
// result straight into VtableCall/QueryInterface.
type GUID = ole.GUID

// NewGUID parses a "{xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx}" CLSID/IID string.
func NewGUID(guid string) *GUID {
	return ole.NewGUID(guid)
}

// VtableCall invokes a COM vtable method at the given index. obj is a
// pointer to a COM interface (pointer to pointer to vtable).
func VtableCall(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	fn := vtableFn(obj, vtableIdx)

	var ret uintptr
	switch len(args) {
	case 0:
		ret, _, _ = syscall.SyscallN(fn, obj)
	case 1:
		ret, _, _ = syscall.SyscallN(fn, obj, args[0])
	case 2:
		ret, _, _ = syscall.SyscallN(fn, obj, args[0], args[1])
	case 3:
		ret, _, _ = syscall.SyscallN(fn, obj, args[0], args[1], args[2])
	default:
		allArgs := make([]uintptr, 0, 1+len(args))
		allArgs = append(allArgs, obj)
		allArgs = append(allArgs, args...)
		ret, _, _ = syscall.SyscallN(fn, allArgs...)
	}

	if int32(ret) < 0 {
		return ret, fmt.Errorf("wincom: vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

// vtableFn resolves the function pointer at vtableIdx for a COM object.
func vtableFn(obj uintptr, vtableIdx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(vtableIdx)*unsafe.Sizeof(uintptr(0))))
}

// vtblQueryInterface and vtblRelease are the IUnknown vtable slots shared
// by every COM interface.
const (
	vtblQueryInterface = 0
	vtblAddRef         = 1
	vtblRelease         = 2
)

// Release calls IUnknown::Release if obj is non-zero.
func Release(obj uintptr) {
	if obj == 0 {
		return
	}
	fn := vtableFn(obj, vtblRelease)
	syscall.SyscallN(fn, obj)
}

// AddRef calls IUnknown::AddRef if obj is non-zero.
func AddRef(obj uintptr) {
	if obj == 0 {
		return
	}
	fn := vtableFn(obj, vtblAddRef)
	syscall.SyscallN(fn, obj)
}

// QueryInterface calls IUnknown::QueryInterface for riid, returning the
// resulting interface pointer.
func QueryInterface(obj uintptr, riid *GUID) (uintptr, error) {
	var out uintptr
	_, err := VtableCall(obj, vtblQueryInterface, uintptr(unsafe.Pointer(riid)), uintptr(unsafe.Pointer(&out)))
	if err != nil {
		return 0, err
	}
	return out, nil
}

// BSTR wraps a COM BSTR allocation, freed via SysFreeString.
type BSTR *uint16

// NewBSTR allocates a BSTR from a Go string using go-ole's allocator.
func NewBSTR(s string) BSTR {
	return ole.SysAllocStringLen(s)
}

// FreeBSTR releases a BSTR allocated by NewBSTR.
func FreeBSTR(b BSTR) {
	ole.SysFreeString(b)
}
