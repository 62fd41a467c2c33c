package audio

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

// fakeElement is a scriptable media element for synchronizer tests.
type fakeElement struct {
	snap   Snapshot
	loads  []string
	plays  int
	pauses int
	seeks  []float64
}

func (f *fakeElement) Load(_ context.Context, sourceURL string) {
	f.loads = append(f.loads, sourceURL)
}

func (f *fakeElement) Inspect() Snapshot { return f.snap }

func (f *fakeElement) Play() error {
	f.plays++
	f.snap.Playing = true
	return nil
}

func (f *fakeElement) Pause() error {
	f.pauses++
	f.snap.Playing = false
	return nil
}

func (f *fakeElement) Seek(seconds float64) error {
	f.seeks = append(f.seeks, seconds)
	f.snap.CurrentSeconds = seconds
	return nil
}

func newTestSync(el Element) *Synchronizer {
	s := NewSynchronizer(zerolog.Nop())
	s.SetElement(el)
	return s
}

func TestSetSourceResetsState(t *testing.T) {
	el := &fakeElement{snap: Snapshot{ReadyLevel: ReadyEnoughData, DurationSeconds: 120}}
	s := newTestSync(el)

	s.SetSource(context.Background(), "first.mp3")
	s.PollOnce()
	if st := s.State(); !st.Loaded {
		t.Fatal("expected loaded after poll")
	}

	el.snap = Snapshot{} // new resource, nothing loaded yet
	s.SetSource(context.Background(), "second.mp3")
	st := s.State()
	if st.Loaded || st.Playing || st.CurrentSecs != 0 || st.Error != ErrorNone {
		t.Errorf("state not reset on source change: %+v", st)
	}
	if st.SourceURL != "second.mp3" {
		t.Errorf("SourceURL = %q", st.SourceURL)
	}
	if len(el.loads) != 2 {
		t.Errorf("loads = %v", el.loads)
	}
}

func TestReadinessFromEvents(t *testing.T) {
	el := &fakeElement{}
	s := newTestSync(el)
	s.SetSource(context.Background(), "a.mp3")

	// Event fires but inspection does not confirm readiness yet.
	s.HandleEvent(Event{Kind: EventCanPlay})
	if s.State().Loaded {
		t.Fatal("loaded flipped without confirmed readiness")
	}

	el.snap = Snapshot{ReadyLevel: ReadyCurrentData, DurationSeconds: 30}
	s.HandleEvent(Event{Kind: EventCanPlay})
	if !s.State().Loaded {
		t.Fatal("expected loaded after confirmed canplay")
	}
}

func TestReadinessFromPollAlone(t *testing.T) {
	el := &fakeElement{}
	s := newTestSync(el)
	s.SetSource(context.Background(), "a.mp3")

	s.PollOnce()
	if s.State().Loaded {
		t.Fatal("premature loaded")
	}

	// No event ever fires; the poll alone must detect readiness.
	el.snap = Snapshot{ReadyLevel: ReadyEnoughData, DurationSeconds: 45}
	s.PollOnce()
	st := s.State()
	if !st.Loaded {
		t.Fatal("poll did not flip loaded")
	}
	if st.DurationSecs != 45 {
		t.Errorf("DurationSecs = %v, want 45", st.DurationSecs)
	}
}

func TestPlaybackGate(t *testing.T) {
	el := &fakeElement{}
	s := newTestSync(el)
	s.SetSource(context.Background(), "a.mp3")

	if err := s.Play(); err != ErrNotReady {
		t.Fatalf("Play() = %v, want ErrNotReady", err)
	}
	if err := s.Pause(); err != ErrNotReady {
		t.Fatalf("Pause() = %v, want ErrNotReady", err)
	}
	if err := s.Seek(10); err != ErrNotReady {
		t.Fatalf("Seek() = %v, want ErrNotReady", err)
	}
	if el.plays != 0 || el.pauses != 0 || len(el.seeks) != 0 {
		t.Error("rejected operations must not reach the element")
	}
}

func TestPlayEscapeHatch(t *testing.T) {
	el := &fakeElement{}
	s := newTestSync(el)
	s.SetSource(context.Background(), "a.mp3")

	// Loaded never flipped, but direct inspection now shows readiness;
	// the operation must proceed anyway.
	el.snap = Snapshot{ReadyLevel: ReadyCurrentData, DurationSeconds: 60}
	if err := s.Play(); err != nil {
		t.Fatalf("Play() = %v, want escape hatch to admit it", err)
	}
	if el.plays != 1 {
		t.Errorf("plays = %d", el.plays)
	}
	st := s.State()
	if !st.Loaded || !st.Playing {
		t.Errorf("state after escape-hatch play: %+v", st)
	}
}

func TestErrorClassification(t *testing.T) {
	for _, kind := range []ErrorKind{ErrorAborted, ErrorNetwork, ErrorDecode, ErrorUnsupported} {
		t.Run(string(kind), func(t *testing.T) {
			el := &fakeElement{snap: Snapshot{ReadyLevel: ReadyEnoughData, DurationSeconds: 10}}
			s := newTestSync(el)
			s.SetSource(context.Background(), "a.mp3")
			s.PollOnce()

			el.snap = Snapshot{}
			s.HandleEvent(Event{Kind: EventError, Err: kind})
			st := s.State()
			if st.Loaded {
				t.Error("loaded must drop on error")
			}
			if st.Error != kind {
				t.Errorf("Error = %q, want %q", st.Error, kind)
			}
			if !st.UseFallback {
				t.Error("UseFallback must be set on error")
			}

			s.SetSource(context.Background(), "b.mp3")
			if s.State().UseFallback {
				t.Error("UseFallback must clear on a new source")
			}
		})
	}
}

func TestForceCheck(t *testing.T) {
	el := &fakeElement{}
	s := newTestSync(el)
	s.SetSource(context.Background(), "a.mp3")

	el.snap = Snapshot{ReadyLevel: ReadyEnoughData, DurationSeconds: 90, CurrentSeconds: 5}
	st := s.ForceCheck()
	if !st.Loaded {
		t.Fatal("ForceCheck did not update state")
	}
	if st.CurrentSecs != 5 {
		t.Errorf("CurrentSecs = %v, want 5", st.CurrentSecs)
	}
}
