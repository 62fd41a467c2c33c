package audio

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNotReady is returned when a playback operation is rejected because
// neither readiness signal shows the resource as playable.
var ErrNotReady = errors.New("audio resource not ready")

// State is the playback state exposed to callers. It is reset to the zero
// value whenever the source changes.
type State struct {
	SourceURL    string    `json:"source_url"`
	Loaded       bool      `json:"loaded"`
	DurationSecs float64   `json:"duration_seconds"`
	CurrentSecs  float64   `json:"current_time_seconds"`
	Playing      bool      `json:"is_playing"`
	Error        ErrorKind `json:"error,omitempty"`
	// UseFallback tells the client to hand the source to its native
	// player after the managed element failed to load it.
	UseFallback bool `json:"use_fallback,omitempty"`
}

// Synchronizer reconciles the actual readiness of an asynchronously
// loading media resource with the state it exposes. Load-completion
// events from the media layer under-fire in some environments, so it
// never trusts them alone: a periodic poll of the element's real state
// is the second, independent readiness signal, and either one may flip
// Loaded.
type Synchronizer struct {
	mu    sync.Mutex
	el    Element
	state State
	log   zerolog.Logger
}

// NewSynchronizer builds a synchronizer with no element attached yet.
func NewSynchronizer(log zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		log: log.With().Str("component", "audio_sync").Logger(),
	}
}

// SetElement attaches the media element. Must be called before SetSource.
func (s *Synchronizer) SetElement(el Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.el = el
}

// SetSource resets playback state and starts loading a new resource.
// An empty URL detaches the current resource without loading anything.
func (s *Synchronizer) SetSource(ctx context.Context, sourceURL string) {
	s.mu.Lock()
	s.state = State{SourceURL: sourceURL}
	el := s.el
	s.mu.Unlock()

	if el == nil || sourceURL == "" {
		return
	}
	s.log.Debug().Str("source", sourceURL).Msg("loading audio resource")
	el.Load(ctx, sourceURL)
}

// State returns a copy of the current playback state, refreshed from a
// direct inspection of the element when one is attached.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return s.state
}

// HandleEvent ingests a lifecycle event from the media element. Readiness
// events are verified against a direct inspection rather than taken at
// face value.
func (s *Synchronizer) HandleEvent(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case EventLoadStart:
		s.log.Debug().Str("source", s.state.SourceURL).Msg("audio load started")
	case EventMetadataLoaded, EventDataLoaded, EventCanPlay:
		s.refreshLocked()
		if s.state.Loaded {
			s.log.Debug().
				Str("event", string(ev.Kind)).
				Float64("duration", s.state.DurationSecs).
				Msg("audio ready")
		}
	case EventEnded:
		s.state.Playing = false
		s.state.CurrentSecs = s.state.DurationSecs
	case EventError:
		s.state.Loaded = false
		s.state.Playing = false
		s.state.Error = ev.Err
		s.state.UseFallback = true
		s.log.Warn().
			Str("source", s.state.SourceURL).
			Str("kind", string(ev.Err)).
			Msg("audio load failed, fallback player required")
	}
}

// PollOnce runs the periodic direct inspection. The session manager calls
// this on its poll ticker while the state is not yet loaded.
func (s *Synchronizer) PollOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasLoaded := s.state.Loaded
	s.refreshLocked()
	if !wasLoaded && s.state.Loaded {
		s.log.Debug().
			Str("source", s.state.SourceURL).
			Msg("audio readiness detected by poll")
	}
}

// ForceCheck re-runs the direct inspection immediately and returns the
// updated state. Exposed so a stuck client can be unstuck on demand.
func (s *Synchronizer) ForceCheck() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return s.state
}

// Play starts playback. Rejected with ErrNotReady unless either the
// loaded flag or a fresh inspection shows the resource as playable.
func (s *Synchronizer) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		s.log.Warn().Str("source", s.state.SourceURL).Msg("play rejected, audio not ready")
		return ErrNotReady
	}
	if err := s.el.Play(); err != nil {
		return err
	}
	s.state.Playing = true
	return nil
}

// Pause stops playback. Subject to the same readiness gate as Play.
func (s *Synchronizer) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		s.log.Warn().Str("source", s.state.SourceURL).Msg("pause rejected, audio not ready")
		return ErrNotReady
	}
	if err := s.el.Pause(); err != nil {
		return err
	}
	s.state.Playing = false
	return nil
}

// Seek moves the playhead. Subject to the same readiness gate as Play.
func (s *Synchronizer) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.readyLocked() {
		s.log.Warn().Str("source", s.state.SourceURL).Msg("seek rejected, audio not ready")
		return ErrNotReady
	}
	if err := s.el.Seek(seconds); err != nil {
		return err
	}
	s.state.CurrentSecs = seconds
	return nil
}

// readyLocked applies the escape hatch: a fresh inspection may show the
// resource playable even when an event never flipped Loaded.
func (s *Synchronizer) readyLocked() bool {
	if s.el == nil {
		return false
	}
	if s.state.Loaded {
		return true
	}
	s.refreshLocked()
	return s.state.Loaded
}

// refreshLocked folds a direct inspection of the element into the state.
func (s *Synchronizer) refreshLocked() {
	if s.el == nil {
		return
	}
	snap := s.el.Inspect()
	s.state.CurrentSecs = snap.CurrentSeconds
	s.state.Playing = snap.Playing
	if snap.DurationSeconds > 0 {
		s.state.DurationSecs = snap.DurationSeconds
	}
	if snap.Ready() {
		s.state.Loaded = true
	}
}
