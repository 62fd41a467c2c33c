package audio

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Fallback bitrate used to estimate duration from Content-Length when the
// server does not report X-Content-Duration. 128 kbit/s mp3.
const fallbackBytesPerSecond = 16000

// HTTPElement is a media element backed by an HTTP-served audio file. It
// probes the resource with a HEAD request to establish readiness and
// duration, and tracks the playhead with a wall-clock playback model.
// Lifecycle events are delivered on the emit callback from the loading
// goroutine.
type HTTPElement struct {
	client *http.Client
	emit   func(Event)

	mu        sync.Mutex
	gen       int // invalidates in-flight loads on source change
	source    string
	ready     ReadyLevel
	duration  float64
	base      float64 // playhead position when playback last started
	startedAt time.Time
	playing   bool
}

// NewHTTPElement builds an element that probes sources with client and
// reports events through emit.
func NewHTTPElement(client *http.Client, emit func(Event)) *HTTPElement {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPElement{client: client, emit: emit}
}

// Load probes the source asynchronously. A later Load supersedes an
// earlier one that is still in flight.
func (e *HTTPElement) Load(ctx context.Context, sourceURL string) {
	e.mu.Lock()
	e.gen++
	gen := e.gen
	e.source = sourceURL
	e.ready = ReadyNothing
	e.duration = 0
	e.base = 0
	e.playing = false
	e.mu.Unlock()

	go e.probe(ctx, gen, sourceURL)
}

func (e *HTTPElement) probe(ctx context.Context, gen int, sourceURL string) {
	e.emit(Event{Kind: EventLoadStart})

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, sourceURL, nil)
	if err != nil {
		e.fail(gen, ErrorNetwork)
		return
	}
	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			e.fail(gen, ErrorAborted)
		} else {
			e.fail(gen, ErrorNetwork)
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.fail(gen, ErrorNetwork)
		return
	}
	if !playableContentType(resp.Header.Get("Content-Type")) {
		e.fail(gen, ErrorUnsupported)
		return
	}

	duration := probedDuration(resp.Header)
	if duration <= 0 {
		e.fail(gen, ErrorDecode)
		return
	}

	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.duration = duration
	e.ready = ReadyEnoughData
	e.mu.Unlock()

	e.emit(Event{Kind: EventMetadataLoaded})
	e.emit(Event{Kind: EventDataLoaded})
	e.emit(Event{Kind: EventCanPlay})
}

func (e *HTTPElement) fail(gen int, kind ErrorKind) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.ready = ReadyNothing
	e.playing = false
	e.mu.Unlock()
	e.emit(Event{Kind: EventError, Err: kind})
}

// Inspect reports live state. The playhead advances with wall time while
// playing and clamps at the end of the resource.
func (e *HTTPElement) Inspect() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.advanceLocked()
	return Snapshot{
		ReadyLevel:      e.ready,
		DurationSeconds: e.duration,
		CurrentSeconds:  e.base,
		Playing:         e.playing,
	}
}

// Play starts the playback clock.
func (e *HTTPElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return ErrNotReady
	}
	if e.playing {
		return nil
	}
	if e.base >= e.duration {
		e.base = 0
	}
	e.playing = true
	e.startedAt = time.Now()
	return nil
}

// Pause stops the playback clock, folding elapsed time into the playhead.
func (e *HTTPElement) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return ErrNotReady
	}
	e.advanceLocked()
	e.playing = false
	return nil
}

// Seek moves the playhead, clamping to the resource bounds.
func (e *HTTPElement) Seek(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return ErrNotReady
	}
	if seconds < 0 {
		seconds = 0
	}
	if seconds > e.duration {
		seconds = e.duration
	}
	e.advanceLocked()
	e.base = seconds
	e.startedAt = time.Now()
	return nil
}

func (e *HTTPElement) readyLocked() bool {
	return e.ready >= ReadyCurrentData && e.duration > 0
}

// advanceLocked folds wall-clock progress into the playhead.
func (e *HTTPElement) advanceLocked() {
	if !e.playing {
		return
	}
	now := time.Now()
	e.base += now.Sub(e.startedAt).Seconds()
	e.startedAt = now
	if e.base >= e.duration {
		e.base = e.duration
		e.playing = false
	}
}

func playableContentType(ct string) bool {
	if ct == "" {
		return true // assume playable when the server stays silent
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "audio/") || mt == "application/octet-stream"
}

// probedDuration extracts the resource duration from response headers,
// preferring an explicit X-Content-Duration and falling back to a
// bitrate estimate from Content-Length.
func probedDuration(h http.Header) float64 {
	if v := h.Get("X-Content-Duration"); v != "" {
		if d, err := strconv.ParseFloat(v, 64); err == nil && d > 0 {
			return d
		}
	}
	if v := h.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return float64(n) / fallbackBytesPerSecond
		}
	}
	return 0
}
