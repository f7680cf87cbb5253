//go:build !windows

package ipc

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// Listen opens a Unix domain socket at path for the command-surface listener.
// Used on macOS/Linux dev builds where no native named-pipe equivalent with
// per-connection peer credentials is required beyond SO_PEERCRED/LOCAL_PEERCRED,
// which GetPeerCredentials reads directly off the accepted connection.
func Listen(path string) (net.Listener, error) {
	_ = os.Remove(path) // stale socket from a prior unclean shutdown
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen unix %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		listener.Close()
		return nil, fmt.Errorf("ipc: chmod unix socket %s: %w", path, err)
	}
	return listener, nil
}

// Dial connects to a Unix domain socket command-surface listener.
func Dial(path string) (net.Conn, error) {
	return net.Dial("unix", path)
}

// VerifyBinaryPath checks if the binary path matches the expected agent
// path. Unlike the Windows check, the comparison is case-sensitive.
func VerifyBinaryPath(binaryPath string) bool {
	expected, err := os.Executable()
	if err != nil {
		return false
	}
	expected, _ = filepath.EvalSymlinks(expected)
	binaryPath, _ = filepath.EvalSymlinks(binaryPath)
	return filepath.Clean(expected) == filepath.Clean(binaryPath)
}
