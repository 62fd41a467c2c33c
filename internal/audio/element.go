package audio

import "context"

// ReadyLevel mirrors the media-subsystem readiness ladder.
type ReadyLevel int

const (
	ReadyNothing     ReadyLevel = iota // no information about the resource
	ReadyMetadata                      // duration and dimensions known
	ReadyCurrentData                   // data for the current position
	ReadyFutureData                    // enough to advance a little
	ReadyEnoughData                    // enough to play through
)

// EventKind identifies a media element lifecycle event.
type EventKind string

const (
	EventLoadStart      EventKind = "loadstart"
	EventMetadataLoaded EventKind = "loadedmetadata"
	EventDataLoaded     EventKind = "loadeddata"
	EventCanPlay        EventKind = "canplay"
	EventEnded          EventKind = "ended"
	EventError          EventKind = "error"
)

// ErrorKind classifies a media load failure.
type ErrorKind string

const (
	ErrorNone        ErrorKind = ""
	ErrorAborted     ErrorKind = "aborted"
	ErrorNetwork     ErrorKind = "network"
	ErrorDecode      ErrorKind = "decode"
	ErrorUnsupported ErrorKind = "unsupported"
)

// Event is a single signal emitted by a media element.
type Event struct {
	Kind EventKind
	Err  ErrorKind
}

// Snapshot is the result of directly inspecting a media element.
type Snapshot struct {
	ReadyLevel      ReadyLevel
	DurationSeconds float64
	CurrentSeconds  float64
	Playing         bool
}

// Ready reports whether the element has current data and a known duration.
func (s Snapshot) Ready() bool {
	return s.ReadyLevel >= ReadyCurrentData && s.DurationSeconds > 0
}

// Element abstracts the underlying media resource. Implementations must
// emit lifecycle events through the callback given at construction and
// answer Inspect from their own live state, independent of any events
// already delivered.
type Element interface {
	// Load points the element at a new source and begins loading it.
	Load(ctx context.Context, sourceURL string)
	// Inspect reports the element's actual current state.
	Inspect() Snapshot
	Play() error
	Pause() error
	Seek(seconds float64) error
}
