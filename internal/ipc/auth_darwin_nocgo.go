//go:build darwin && !cgo

package ipc

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// PeerCredentials holds the verified identity of an IPC peer.
type PeerCredentials struct {
	PID        int
	UID        uint32
	GID        uint32
	BinaryPath string
	SID        string // Empty on Unix; populated on Windows.
}

// GetPeerCredentials returns the kernel-verified PID/UID/GID of the peer
// via LOCAL_PEERPID and LOCAL_PEERCRED (xucred). BinaryPath is this
// process's own executable (os.Executable), not the peer's.
// This is the pure-Go (no-cgo) implementation for macOS.
func GetPeerCredentials(conn net.Conn) (*PeerCredentials, error) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return nil, fmt.Errorf("ipc: not a unix connection")
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("ipc: get syscall conn: %w", err)
	}

	var pid int
	var uid, gid uint32
	var credErr error

	err = raw.Control(func(fd uintptr) {
		// Get PID via LOCAL_PEERPID
		pidVal, err := unix.GetsockoptInt(int(fd), unix.SOL_LOCAL, 0x002) // LOCAL_PEERPID = 0x002
		if err != nil {
			credErr = fmt.Errorf("getsockopt LOCAL_PEERPID: %w", err)
			return
		}
		pid = pidVal

		// Get UID/GID via LOCAL_PEERCRED (xucred)
		xcred, err := unix.GetsockoptXucred(int(fd), unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
		if err != nil {
			credErr = fmt.Errorf("getsockopt LOCAL_PEERCRED: %w", err)
			return
		}
		uid = xcred.Uid
		if len(xcred.Groups) > 0 {
			gid = xcred.Groups[0]
		}
	})
	if err != nil {
		return nil, fmt.Errorf("ipc: control: %w", err)
	}
	if credErr != nil {
		return nil, credErr
	}

	// Resolve binary path: without cgo we cannot call proc_pidpath,
	// so fall back to reading /proc/<pid>/exe (Linux) or use the
	// sysctl KERN_PROCARGS2 approach. For simplicity, resolve our
	// own executable path as the expected helper binary.
	exePath, err := os.Executable()
	if err != nil {
		exePath = ""
	}

	return &PeerCredentials{
		PID:        pid,
		UID:        uid,
		GID:        gid,
		BinaryPath: exePath,
	}, nil
}

// IdentityKey returns the platform identity key for this peer.
// On macOS, this is the kernel-verified UID as a string.
func (p *PeerCredentials) IdentityKey() string {
	return strconv.FormatUint(uint64(p.UID), 10)
}

// DefaultSocketPath returns the default IPC socket path for macOS.
// macOS has no capture/encode backend; this path only serves dev builds
// of the command-surface transport and test tooling.
func DefaultSocketPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/screenstudio-core.sock"
	}
	return home + "/Library/Application Support/ScreenStudio/core.sock"
}
