// Package cursor tracks cursor position and shape during a recording,
// deduplicating shape bitmaps by content hash and recording click events.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"github.com/screenstudio/core/internal/logging"
)

var log = logging.L("cursor")

const pollInterval = time.Second / 60

// EventKind discriminates a CursorEvent's kind.
type EventKind string

const (
	EventMove EventKind = "Move"
	EventDown EventKind = "Down"
	EventUp   EventKind = "Up"
)

// Sample is a deduplicated position-only reading, normalized to the
// recording's crop bounds.
type Sample struct {
	TMs    int64   `json:"t_ms"`
	XUnorm float64 `json:"x_unorm"`
	YUnorm float64 `json:"y_unorm"`
}

// Event is a button-state transition or move, carrying the shape
// in effect at the time.
type Event struct {
	TMs     int64     `json:"t_ms"`
	Kind    EventKind `json:"kind"`
	Button  string    `json:"button,omitempty"`
	ShapeID string    `json:"shape_id"`
}

// Shape is a content-addressed cursor bitmap.
type Shape struct {
	W        int    `json:"w"`
	H        int    `json:"h"`
	HotspotX int    `json:"hotspot_x"`
	HotspotY int    `json:"hotspot_y"`
	DataB64  string `json:"data_b64"`
}

// Recording is the on-stop flush format written to cursor.json.
type Recording struct {
	Moves  []Sample         `json:"moves"`
	Clicks []Event          `json:"clicks"`
	Shapes map[string]Shape `json:"shapes"`
}

// Snapshot is the raw platform read for one poll tick: screen-pixel
// position plus the current cursor's RGBA bitmap and hotspot.
type Snapshot struct {
	X, Y     int
	Visible  bool
	Bitmap   []byte // RGBA, len == W*H*4
	W, H     int
	HotspotX int
	HotspotY int
}

// Provider reads the current cursor snapshot and subscribes to button
// events. Implementations are platform-specific.
type Provider interface {
	Poll() (Snapshot, error)
	// Buttons delivers button-down/up notifications until Close is called.
	Buttons() <-chan ButtonEvent
	Close()
}

// ButtonEvent is a raw button transition from a Provider.
type ButtonEvent struct {
	Down   bool
	Button string
}

// CropBounds gives the region samples are normalized against.
type CropBounds struct {
	X, Y, W, H int
}

// Tracker polls a Provider at 60Hz, deduplicates consecutive identical
// position samples, content-addresses cursor shapes, and records
// button events.
type Tracker struct {
	provider Provider
	crop     CropBounds
	start    time.Time

	mu       sync.Mutex
	moves    []Sample
	clicks   []Event
	shapes   map[string]Shape
	lastX    int
	lastY    int
	hasLast  bool
	lastHash string

	stop chan struct{}
	done chan struct{}
}

// NewDefault creates a Tracker backed by the platform-appropriate
// cursor provider.
func NewDefault(crop CropBounds, start time.Time) *Tracker {
	return New(newPlatformProvider(), crop, start)
}

// NewDefaultProvider returns the platform-appropriate cursor Provider,
// for callers (e.g. recording.New) that build their own Tracker.
func NewDefaultProvider() Provider {
	return newPlatformProvider()
}

// New creates a Tracker. start is the recording's reference instant;
// sample timestamps are milliseconds since start.
func New(provider Provider, crop CropBounds, start time.Time) *Tracker {
	return &Tracker{
		provider: provider,
		crop:     crop,
		start:    start,
		shapes:   make(map[string]Shape),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run polls until Stop is called. Intended to run in its own goroutine.
func (t *Tracker) Run() {
	defer close(t.done)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	buttons := t.provider.Buttons()

	for {
		select {
		case <-t.stop:
			return
		case evt, ok := <-buttons:
			if !ok {
				buttons = nil
				continue
			}
			t.recordButton(evt)
		case <-ticker.C:
			t.poll()
		}
	}
}

func (t *Tracker) poll() {
	snap, err := t.provider.Poll()
	if err != nil {
		log.Warn("cursor poll failed", "error", err)
		return
	}
	if !snap.Visible {
		return
	}

	shapeID := t.rememberShape(snap)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.hasLast && snap.X == t.lastX && snap.Y == t.lastY && shapeID == t.lastHash {
		return
	}
	t.lastX, t.lastY, t.hasLast = snap.X, snap.Y, true
	t.lastHash = shapeID

	t.moves = append(t.moves, Sample{
		TMs:    t.elapsedMs(),
		XUnorm: t.normalize(snap.X, t.crop.X, t.crop.W),
		YUnorm: t.normalize(snap.Y, t.crop.Y, t.crop.H),
	})
}

func (t *Tracker) recordButton(evt ButtonEvent) {
	t.mu.Lock()
	shapeID := t.lastHash
	t.mu.Unlock()

	kind := EventUp
	if evt.Down {
		kind = EventDown
	}

	t.mu.Lock()
	t.clicks = append(t.clicks, Event{
		TMs:     t.elapsedMs(),
		Kind:    kind,
		Button:  evt.Button,
		ShapeID: shapeID,
	})
	t.mu.Unlock()
}

// rememberShape hashes snap's bitmap and stores it in the shape map if
// unseen. Must be called without holding t.mu: it takes t.mu itself
// while it touches the shape map.
func (t *Tracker) rememberShape(snap Snapshot) string {
	sum := sha256.Sum256(snap.Bitmap)
	hash := hex.EncodeToString(sum[:])

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.shapes[hash]; ok {
		return hash
	}
	t.shapes[hash] = Shape{
		W:        snap.W,
		H:        snap.H,
		HotspotX: snap.HotspotX,
		HotspotY: snap.HotspotY,
		DataB64:  base64.StdEncoding.EncodeToString(snap.Bitmap),
	}
	return hash
}

func (t *Tracker) elapsedMs() int64 {
	return time.Since(t.start).Milliseconds()
}

func (t *Tracker) normalize(v, origin, extent int) float64 {
	if extent <= 0 {
		return 0
	}
	return float64(v-origin) / float64(extent)
}

// Stop halts polling and returns the accumulated recording.
func (t *Tracker) Stop() Recording {
	close(t.stop)
	<-t.done
	t.provider.Close()

	t.mu.Lock()
	defer t.mu.Unlock()
	return Recording{
		Moves:  t.moves,
		Clicks: t.clicks,
		Shapes: t.shapes,
	}
}

// Flush marshals a Recording to the on-stop JSON format.
func Flush(r Recording) ([]byte, error) {
	return json.Marshal(r)
}
