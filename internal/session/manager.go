package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ieltsprep/ielts-backend/internal/audio"
	"github.com/ieltsprep/ielts-backend/internal/model"
	"github.com/ieltsprep/ielts-backend/internal/scoring"
)

// Backend is the persistence collaborator a session manager calls out to.
// Implementations must be safe for use from the manager's run goroutine.
type Backend interface {
	CreateSession(ctx context.Context, userID, testID uuid.UUID, startTime, endTime time.Time) (uuid.UUID, error)
	SubmitResponses(ctx context.Context, sessionID uuid.UUID, responses []model.UserResponse) error
	UpdateSessionStatus(ctx context.Context, sessionID uuid.UUID, status model.PersistedStatus, feedback string, correctCount int) error
	SaveProgress(ctx context.Context, sessionID uuid.UUID, records []model.AnswerRecord) error
}

// EventType identifies a session stream event.
type EventType string

const (
	EventTick      EventType = "tick"
	EventExpired   EventType = "expired"
	EventAudio     EventType = "audio"
	EventSaved     EventType = "saved"
	EventSubmitted EventType = "submitted"
)

// Event is one message on the session's event stream.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// TickPayload accompanies EventTick.
type TickPayload struct {
	TimeRemainingSeconds int                 `json:"time_remaining_seconds"`
	Status               model.SessionStatus `json:"status"`
}

// Outcome is the result of a completed submission.
type Outcome struct {
	Route   model.ResultRoute
	Trigger model.SubmitTrigger
	Summary scoring.Summary
}

// Snapshot is the full observable state of a session at one instant.
type Snapshot struct {
	Session       model.TestSession       `json:"session"`
	Skill         model.Skill             `json:"skill"`
	AnsweredCount int                     `json:"answered_count"`
	MarkedCount   int                     `json:"marked_count"`
	SectionIndex  int                     `json:"section_index"`
	Sections      []model.SectionProgress `json:"sections"`
	Audio         audio.State             `json:"audio"`
	Highlights    []model.Highlight       `json:"highlights"`
}

// Config assembles a Manager.
type Config struct {
	Test    *model.Test
	Type    *model.TestType
	UserID  uuid.UUID
	Backend Backend
	Logger  zerolog.Logger

	// NewElement builds the media element for listening tests, wired to
	// deliver its events to the given callback. Nil disables audio.
	NewElement func(emit func(audio.Event)) audio.Element

	// PollInterval is the audio readiness poll period. Zero means 2s.
	PollInterval time.Duration
	// AutosaveInterval is the progress persistence period. Zero means 30s.
	AutosaveInterval time.Duration
}

// Manager owns one candidate's timed attempt at one test: the state
// machine, the countdown, the answer and highlight stores, the section
// navigator and the audio synchronizer. All mutations are serialized
// through its lock; the run goroutine drives the countdown, the audio
// poll and the autosave.
type Manager struct {
	mu sync.Mutex

	test    *model.Test
	typ     *model.TestType
	backend Backend
	log     zerolog.Logger

	session model.TestSession
	catalog *scoring.Catalog
	answers *AnswerStore
	marks   *HighlightStore
	nav     *Navigator
	sync    *audio.Synchronizer

	pollInterval     time.Duration
	autosaveInterval time.Duration

	submitInFlight bool
	submitDone     chan struct{}
	outcome        *Outcome
	dirty          bool
	lastAudio      audio.State

	events   chan Event
	stopc    chan struct{}
	stopOnce sync.Once
}

// New assembles a manager in the Initializing state. It fails when the
// test definition, its type, the user or the backend is missing.
func New(cfg Config) (*Manager, error) {
	if cfg.Test == nil || cfg.Type == nil || cfg.Backend == nil || cfg.UserID == uuid.Nil {
		return nil, ErrInitialization
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = 30 * time.Second
	}

	audioSync := audio.NewSynchronizer(cfg.Logger)
	if cfg.NewElement != nil {
		audioSync.SetElement(cfg.NewElement(audioSync.HandleEvent))
	}

	catalog := scoring.NewCatalog(cfg.Test)
	ids := make([]uuid.UUID, 0, catalog.Len())
	for _, q := range cfg.Test.Questions() {
		ids = append(ids, q.ID)
	}

	m := &Manager{
		test:             cfg.Test,
		typ:              cfg.Type,
		backend:          cfg.Backend,
		log:              cfg.Logger.With().Str("component", "session_manager").Logger(),
		catalog:          catalog,
		answers:          NewAnswerStore(ids),
		marks:            NewHighlightStore(),
		sync:             audioSync,
		pollInterval:     cfg.PollInterval,
		autosaveInterval: cfg.AutosaveInterval,
		events:           make(chan Event, 64),
		stopc:            make(chan struct{}),
		session: model.TestSession{
			TestID: cfg.Test.ID,
			UserID: cfg.UserID,
			Status: model.SessionInitializing,
		},
	}
	m.nav = NewNavigator(cfg.Test.FlatSections(), cfg.Type.Name, audioSync)
	return m, nil
}

// Initialize creates the persisted session record, seeds the countdown
// and transitions to Active. For listening tests it also points the audio
// synchronizer at the first section's resource.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.session.Status != model.SessionInitializing {
		m.mu.Unlock()
		return fmt.Errorf("%w: session already initialized", ErrInitialization)
	}
	limit := m.typ.TimeLimitMinutes * 60
	start := time.Now()
	userID, testID := m.session.UserID, m.session.TestID
	m.mu.Unlock()

	end := start.Add(time.Duration(limit) * time.Second)
	sessionID, err := m.backend.CreateSession(ctx, userID, testID, start, end)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}

	m.mu.Lock()
	m.session.SessionID = sessionID
	m.session.StartTime = start
	m.session.TimeLimitSeconds = limit
	m.session.TimeRemainingSeconds = limit
	m.session.Status = model.SessionActive
	m.nav.GoTo(ctx, 0)
	m.mu.Unlock()

	m.log.Info().
		Str("session_id", sessionID.String()).
		Str("test_id", testID.String()).
		Int("time_limit_seconds", limit).
		Int("questions", m.answers.Len()).
		Msg("session started")
	return nil
}

// Start launches the run goroutine that drives the countdown, the audio
// readiness poll and the periodic progress autosave.
func (m *Manager) Start() {
	go m.run()
}

func (m *Manager) run() {
	tick := time.NewTicker(time.Second)
	poll := time.NewTicker(m.pollInterval)
	save := time.NewTicker(m.autosaveInterval)
	defer tick.Stop()
	defer poll.Stop()
	defer save.Stop()

	ctx := context.Background()
	for {
		select {
		case <-m.stopc:
			return
		case <-tick.C:
			if m.Tick() {
				if _, err := m.Submit(ctx, model.TriggerTimeout); err != nil {
					m.log.Error().Err(err).Msg("timeout submission failed")
				}
			}
		case <-poll.C:
			m.pollAudio(ctx)
		case <-save.C:
			m.autosave(ctx)
		}
	}
}

// Tick advances the countdown by one second. It returns true exactly once,
// when the countdown reaches zero: the session moves to Expired and the
// caller must trigger submission. Ticks outside Active are ignored.
func (m *Manager) Tick() bool {
	m.mu.Lock()
	if m.session.Status != model.SessionActive {
		m.mu.Unlock()
		return false
	}
	if m.session.TimeRemainingSeconds > 0 {
		m.session.TimeRemainingSeconds--
	}
	remaining := m.session.TimeRemainingSeconds
	expired := remaining == 0
	if expired {
		m.session.Status = model.SessionExpired
	}
	status := m.session.Status
	m.mu.Unlock()

	m.emit(Event{Type: EventTick, Payload: TickPayload{
		TimeRemainingSeconds: remaining,
		Status:               status,
	}})
	if expired {
		m.log.Info().Str("session_id", m.session.SessionID.String()).Msg("session expired")
		m.emit(Event{Type: EventExpired})
	}
	return expired
}

// Submit runs the submission pipeline at most once per session. A call
// that races an in-flight submission waits for that attempt and returns
// its outcome; once the session is Completed, further calls return the
// recorded outcome. A failed submission leaves the session in Submitting
// so a caller can retry.
func (m *Manager) Submit(ctx context.Context, trigger model.SubmitTrigger) (Outcome, error) {
	m.mu.Lock()
	if m.outcome != nil {
		out := *m.outcome
		m.mu.Unlock()
		return out, nil
	}
	if m.submitInFlight {
		done := m.submitDone
		m.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		}
		m.mu.Lock()
		if m.outcome != nil {
			out := *m.outcome
			m.mu.Unlock()
			return out, nil
		}
		// The attempt this call was waiting on failed.
		m.mu.Unlock()
		return Outcome{}, ErrSubmission
	}
	switch m.session.Status {
	case model.SessionActive, model.SessionExpired, model.SessionSubmitting:
	default:
		m.mu.Unlock()
		return Outcome{}, ErrNotActive
	}
	m.session.Status = model.SessionSubmitting
	m.submitInFlight = true
	m.submitDone = make(chan struct{})
	snapshot := m.answers.Snapshot()
	sessionID := m.session.SessionID
	m.mu.Unlock()

	out, err := m.persistSubmission(ctx, sessionID, trigger, snapshot)
	m.mu.Lock()
	m.submitInFlight = false
	if err != nil {
		close(m.submitDone)
		m.mu.Unlock()
		m.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("submission failed, retry allowed")
		return Outcome{}, err
	}
	m.session.Status = model.SessionCompleted
	m.outcome = &out
	close(m.submitDone)
	m.mu.Unlock()

	m.emit(Event{Type: EventSubmitted, Payload: map[string]any{
		"route":    out.Route,
		"trigger":  out.Trigger,
		"feedback": out.Summary.Feedback(),
	}})
	m.stop()
	m.log.Info().
		Str("session_id", sessionID.String()).
		Str("trigger", string(trigger)).
		Int("answered", out.Summary.AnsweredQuestions).
		Int("correct", out.Summary.CorrectAnswers).
		Float64("band", out.Summary.Band).
		Msg("session submitted")
	return out, nil
}

// persistSubmission scores the snapshot and writes responses plus the
// final session record in order. Missing answers are scored as absent,
// never treated as an error.
func (m *Manager) persistSubmission(ctx context.Context, sessionID uuid.UUID, trigger model.SubmitTrigger, snapshot map[uuid.UUID]model.AnswerRecord) (Outcome, error) {
	summary := m.catalog.Summarize(snapshot)

	byQuestion := make(map[uuid.UUID]scoring.Result, len(summary.Results))
	for _, res := range summary.Results {
		byQuestion[res.QuestionID] = res
	}

	writingTest := m.typ.Name == model.SkillWriting
	var responses []model.UserResponse
	for id, rec := range snapshot {
		if rec.Value.IsEmpty() {
			continue
		}
		res := byQuestion[id]
		marks := float64(res.MarksAwarded)
		if writingTest || res.IsWriting {
			marks = 0
		}
		responses = append(responses, model.UserResponse{
			ID:           uuid.New(),
			UserTestID:   sessionID,
			QuestionID:   id,
			AnswerText:   rec.Value.Joined(),
			MarksAwarded: marks,
		})
	}

	if err := m.backend.SubmitResponses(ctx, sessionID, responses); err != nil {
		return Outcome{}, fmt.Errorf("%w: persisting responses: %v", ErrSubmission, err)
	}
	if err := m.backend.UpdateSessionStatus(ctx, sessionID, model.PersistedCompleted, summary.Feedback(), summary.CorrectAnswers); err != nil {
		return Outcome{}, fmt.Errorf("%w: finalizing session: %v", ErrSubmission, err)
	}

	route := model.RouteResult
	if writingTest || summary.HasWriting {
		route = model.RouteWritingEvaluation
	}
	return Outcome{Route: route, Trigger: trigger, Summary: summary}, nil
}

// Cancel stops the run goroutine without touching the backend. The
// persisted session stays in progress and is later swept as abandoned.
func (m *Manager) Cancel() {
	m.stop()
	m.log.Info().Str("session_id", m.session.SessionID.String()).Msg("session cancelled")
}

func (m *Manager) stop() {
	m.stopOnce.Do(func() { close(m.stopc) })
}

// Done is closed when the run goroutine has been told to stop.
func (m *Manager) Done() <-chan struct{} { return m.stopc }

// Events exposes the session's event stream. Slow consumers lose events
// rather than blocking the manager.
func (m *Manager) Events() <-chan Event { return m.events }

func (m *Manager) emit(ev Event) {
	select {
	case m.events <- ev:
	default:
	}
}

// SessionID reports the persisted session identifier.
func (m *Manager) SessionID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.SessionID
}

// UserID reports the owning candidate.
func (m *Manager) UserID() uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.UserID
}

// Status reports the current lifecycle state.
func (m *Manager) Status() model.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Status
}

// Outcome returns the submission outcome once the session is Completed.
func (m *Manager) Outcome() (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcome == nil {
		return Outcome{}, false
	}
	return *m.outcome, true
}

// State assembles the full observable snapshot of the session.
func (m *Manager) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Session:       m.session,
		Skill:         m.typ.Name,
		AnsweredCount: m.answers.AnsweredCount(),
		MarkedCount:   m.answers.MarkedCount(),
		SectionIndex:  m.nav.Current(),
		Sections:      m.nav.ProgressAll(m.answers),
		Audio:         m.sync.State(),
		Highlights:    m.marks.List(),
	}
}

// SetAnswer records a candidate's answer while the session is Active.
func (m *Manager) SetAnswer(questionID uuid.UUID, value model.AnswerValue, timeSpent int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Status != model.SessionActive {
		return ErrNotActive
	}
	if err := m.answers.SetAnswer(questionID, value, timeSpent); err != nil {
		return err
	}
	m.dirty = true
	return nil
}

// ToggleMark flips the marked-for-review flag on one question.
func (m *Manager) ToggleMark(questionID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Status != model.SessionActive {
		return false, ErrNotActive
	}
	marked, err := m.answers.ToggleMark(questionID)
	if err != nil {
		return false, err
	}
	m.dirty = true
	return marked, nil
}

// AddAnswerTime accumulates time spent on a question without changing
// its answer value.
func (m *Manager) AddAnswerTime(questionID uuid.UUID, seconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Status != model.SessionActive {
		return ErrNotActive
	}
	if err := m.answers.AddTime(questionID, seconds); err != nil {
		return err
	}
	m.dirty = true
	return nil
}

// SetConfidence records the candidate's confidence on one question.
func (m *Manager) SetConfidence(questionID uuid.UUID, confidence int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Status != model.SessionActive {
		return ErrNotActive
	}
	if err := m.answers.SetConfidence(questionID, confidence); err != nil {
		return err
	}
	m.dirty = true
	return nil
}

// AddHighlight stores a passage highlight.
func (m *Manager) AddHighlight(text string) (model.Highlight, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marks.Add(text)
}

// RemoveHighlight deletes a highlight by ID.
func (m *Manager) RemoveHighlight(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks.Remove(id)
}

// ClearHighlights drops every stored highlight.
func (m *Manager) ClearHighlights() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks.Clear()
}

// RenderHighlights segments a passage against the stored highlights.
func (m *Manager) RenderHighlights(sourceText string) []Segment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marks.Render(sourceText)
}

// GoToSection moves the navigator. Out-of-range indexes are a no-op.
func (m *Manager) GoToSection(ctx context.Context, index int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.Status != model.SessionActive {
		return false
	}
	return m.nav.GoTo(ctx, index)
}

// PlayAudio starts playback, subject to the readiness gate.
func (m *Manager) PlayAudio() error { return m.sync.Play() }

// PauseAudio pauses playback, subject to the readiness gate.
func (m *Manager) PauseAudio() error { return m.sync.Pause() }

// SeekAudio moves the playhead, subject to the readiness gate.
func (m *Manager) SeekAudio(seconds float64) error { return m.sync.Seek(seconds) }

// CheckAudio force-runs the direct readiness inspection.
func (m *Manager) CheckAudio() audio.State { return m.sync.ForceCheck() }

// pollAudio runs the periodic readiness poll and surfaces state changes
// on the event stream.
func (m *Manager) pollAudio(_ context.Context) {
	m.sync.PollOnce()
	st := m.sync.State()

	m.mu.Lock()
	changed := st.Loaded != m.lastAudio.Loaded ||
		st.Error != m.lastAudio.Error ||
		st.Playing != m.lastAudio.Playing
	m.lastAudio = st
	m.mu.Unlock()

	if changed {
		m.emit(Event{Type: EventAudio, Payload: st})
	}
}

// autosave pushes a progress snapshot to the backend. It is suppressed as
// soon as submission begins so no stale write can land afterwards.
func (m *Manager) autosave(ctx context.Context) {
	m.mu.Lock()
	if m.session.Status != model.SessionActive || m.submitInFlight || !m.dirty {
		m.mu.Unlock()
		return
	}
	records := m.answers.Records()
	sessionID := m.session.SessionID
	m.dirty = false
	m.mu.Unlock()

	if err := m.backend.SaveProgress(ctx, sessionID, records); err != nil {
		m.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("progress autosave failed")
		m.mu.Lock()
		m.dirty = true
		m.mu.Unlock()
		return
	}
	m.emit(Event{Type: EventSaved, Payload: map[string]any{"count": len(records)}})
}
