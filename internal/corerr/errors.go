// Package corerr defines the single error taxonomy shared by every core
// package: capture, audio, encoding, GPU, and the command surface. Every
// error returned across a package boundary is an *Error with a Kind
// discriminator, so callers can branch on Kind instead of string-matching.
package corerr

import "fmt"

// Kind discriminates the error taxonomy.
type Kind int

const (
	KindOther Kind = iota
	KindCaptureUnavailable
	KindCaptureTimeout
	KindCaptureDeviceLost
	KindCaptureCropped
	KindAudioNoDevice
	KindAudioUnsupportedFormat
	KindAudioCallbackError
	KindEncoderNotFound
	KindEncoderSpawn
	KindEncoderWriteFailed
	KindEncoderExitNonZero
	KindGpuInit
	KindGpuDeviceLost
	KindShaderCompile
	KindIO
	KindJSON
	KindImage
	KindInvalidState
	KindInvalidRegion
	KindInvalidProject
	KindTimeout
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindCaptureUnavailable:
		return "capture_unavailable"
	case KindCaptureTimeout:
		return "capture_timeout"
	case KindCaptureDeviceLost:
		return "capture_device_lost"
	case KindCaptureCropped:
		return "capture_cropped"
	case KindAudioNoDevice:
		return "audio_no_device"
	case KindAudioUnsupportedFormat:
		return "audio_unsupported_format"
	case KindAudioCallbackError:
		return "audio_callback_error"
	case KindEncoderNotFound:
		return "encoder_not_found"
	case KindEncoderSpawn:
		return "encoder_spawn"
	case KindEncoderWriteFailed:
		return "encoder_write_failed"
	case KindEncoderExitNonZero:
		return "encoder_exit_nonzero"
	case KindGpuInit:
		return "gpu_init"
	case KindGpuDeviceLost:
		return "gpu_device_lost"
	case KindShaderCompile:
		return "shader_compile"
	case KindIO:
		return "io"
	case KindJSON:
		return "json"
	case KindImage:
		return "image"
	case KindInvalidState:
		return "invalid_state"
	case KindInvalidRegion:
		return "invalid_region"
	case KindInvalidProject:
		return "invalid_project"
	case KindTimeout:
		return "timeout"
	case KindCancelled:
		return "cancelled"
	default:
		return "other"
	}
}

// Error is the single error type returned across every core package
// boundary. Stderr is populated only for KindEncoderExitNonZero.
type Error struct {
	Kind    Kind
	Op      string // e.g. "capture.Start", "export.Run"
	Message string
	Stderr  string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Op != "" {
		if e.Wrapped != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Wrapped)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Wrapped
}

// New builds an *Error of the given kind.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an *Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, op string, cause error) *Error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: cause.Error(), Wrapped: cause}
}

// WithStderr attaches captured stderr output (for KindEncoderExitNonZero).
func (e *Error) WithStderr(stderr string) *Error {
	e.Stderr = stderr
	return e
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
	} else {
		return false
	}
	return e.Kind == kind
}

// Other wraps an arbitrary error as the last-resort KindOther.
func Other(op string, cause error) *Error {
	return Wrap(KindOther, op, cause)
}
