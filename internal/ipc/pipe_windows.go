//go:build windows

package ipc

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// pipeSecurity grants SYSTEM full control and the owning interactive user
// read/write. Only one UI collaborator process is expected to connect.
const pipeSecurity = "D:P(A;;GA;;;SY)(A;;GRGW;;;IU)"

// Listen opens the named pipe command-surface listener for the UI collaborator.
func Listen(path string) (net.Listener, error) {
	cfg := &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity,
		InputBufferSize:    64 * 1024,
		OutputBufferSize:   64 * 1024,
	}
	listener, err := winio.ListenPipe(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen pipe %s: %w", path, err)
	}
	return listener, nil
}

// Dial connects to a named pipe command-surface listener.
func Dial(path string) (net.Conn, error) {
	return winio.DialPipe(path, nil)
}
