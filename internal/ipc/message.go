package ipc

import "encoding/json"

// Message type constants for the command surface exposed to the UI
// collaborator over the named pipe (spec §6.3).
const (
	TypeSetRecordingConfig = "set_recording_config"
	TypePrepareRecording   = "prepare_recording"
	TypeStartRecording     = "start_recording"
	TypePauseRecording     = "pause_recording"
	TypeResumeRecording    = "resume_recording"
	TypeStopRecording      = "stop_recording"
	TypeCancelRecording    = "cancel_recording"
	TypeGetRecordingState  = "get_recording_state"
	TypeCreateEditor       = "create_editor"
	TypeEditorPlay         = "editor_play"
	TypeEditorPause        = "editor_pause"
	TypeEditorSeek         = "editor_seek"
	TypeEditorSetSpeed     = "editor_set_speed"
	TypeEditorRenderFrame  = "editor_render_frame"
	TypeExport             = "export"
	TypeExportProgress     = "export_progress"
	TypePing               = "ping"
	TypePong               = "pong"
)

// MaxMessageSize is the maximum size of a JSON IPC message (16MB).
const MaxMessageSize = 16 * 1024 * 1024

// ProtocolVersion is the current IPC protocol version.
const ProtocolVersion = 1

// Envelope is the wire-format wrapper for all IPC messages.
type Envelope struct {
	ID      string          `json:"id"`
	Seq     uint64          `json:"seq"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error,omitempty"`
	HMAC    string          `json:"hmac"`
}

// RecordingTarget selects what a recording captures.
type RecordingTarget struct {
	Kind         string `json:"kind"` // "display" | "window" | "region"
	DisplayIndex int    `json:"displayIndex,omitempty"`
	WindowID     string `json:"windowId,omitempty"`
	RegionX      int    `json:"regionX,omitempty"`
	RegionY      int    `json:"regionY,omitempty"`
	RegionW      int    `json:"regionW,omitempty"`
	RegionH      int    `json:"regionH,omitempty"`
}

// StartRecordingRequest is the payload for start_recording.
type StartRecordingRequest struct {
	Target RecordingTarget `json:"target"`
	Mode   string          `json:"mode"` // "video" | "gif"
}

// PrepareRecordingRequest is the payload for prepare_recording.
type PrepareRecordingRequest struct {
	Dir string `json:"dir"`
}

// RecordingStateResponse is the payload returned by get_recording_state.
type RecordingStateResponse struct {
	State      string `json:"state"`
	ElapsedMs  int64  `json:"elapsedMs"`
	FrameCount uint64 `json:"frameCount"`
}

// CreateEditorRequest carries the project JSON to instantiate an EditorInstance.
type CreateEditorRequest struct {
	ProjectJSON json.RawMessage `json:"project"`
}

// CreateEditorResponse returns the new editor's id and preview URL.
type CreateEditorResponse struct {
	EditorID   string `json:"editorId"`
	PreviewURL string `json:"previewUrl"`
}

// EditorSeekRequest is the payload for editor_seek / editor_render_frame.
type EditorSeekRequest struct {
	EditorID string `json:"editorId"`
	TMs      int64  `json:"tMs"`
}

// EditorSetSpeedRequest is the payload for editor_set_speed.
type EditorSetSpeedRequest struct {
	EditorID string  `json:"editorId"`
	Speed    float64 `json:"speed"`
}

// ExportRequest is the payload for export.
type ExportRequest struct {
	ProjectJSON json.RawMessage `json:"project"`
	OutputPath  string          `json:"outputPath"`
	Format      string          `json:"format"`
	Quality     int             `json:"quality"`
}

// ExportProgress reports per-frame export progress.
type ExportProgress struct {
	FramesDone  uint64 `json:"framesDone"`
	TotalFrames uint64 `json:"totalFrames"`
	Done        bool   `json:"done"`
	Error       string `json:"error,omitempty"`
}
