package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ieltsprep/ielts-backend/internal/audio"
	"github.com/ieltsprep/ielts-backend/internal/model"
)

type statusUpdate struct {
	status   model.PersistedStatus
	feedback string
	correct  int
}

// fakeBackend records persistence calls and can be scripted to fail or,
// via submitGate, to block mid-submission.
type fakeBackend struct {
	mu          sync.Mutex
	createErr   error
	submitErr   error
	statusErr   error
	submitGate  chan struct{}
	sessionID   uuid.UUID
	submissions [][]model.UserResponse
	statuses    []statusUpdate
	saves       [][]model.AnswerRecord
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{sessionID: uuid.New()}
}

func (f *fakeBackend) CreateSession(_ context.Context, _, _ uuid.UUID, _, _ time.Time) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	return f.sessionID, nil
}

func (f *fakeBackend) SubmitResponses(_ context.Context, _ uuid.UUID, responses []model.UserResponse) error {
	f.mu.Lock()
	gate := f.submitGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submissions = append(f.submissions, responses)
	return nil
}

func (f *fakeBackend) UpdateSessionStatus(_ context.Context, _ uuid.UUID, status model.PersistedStatus, feedback string, correct int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statuses = append(f.statuses, statusUpdate{status: status, feedback: feedback, correct: correct})
	return nil
}

func (f *fakeBackend) SaveProgress(_ context.Context, _ uuid.UUID, records []model.AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, records)
	return nil
}

func (f *fakeBackend) submissionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submissions)
}

// stubElement reports itself ready immediately after every Load.
type stubElement struct {
	mu      sync.Mutex
	current float64
	loads   int
}

func (s *stubElement) Load(_ context.Context, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	s.current = 0
}

func (s *stubElement) Inspect() audio.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return audio.Snapshot{ReadyLevel: audio.ReadyEnoughData, DurationSeconds: 120, CurrentSeconds: s.current}
}

func (s *stubElement) Play() error  { return nil }
func (s *stubElement) Pause() error { return nil }

func (s *stubElement) Seek(seconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = seconds
	return nil
}

func fixtureQuestion(number int, correct string) model.Question {
	id := uuid.New()
	kind := model.KindShortAnswer
	if correct == "" {
		kind = model.KindEssay
	}
	q := model.Question{
		ID:      id,
		Number:  number,
		Marks:   1,
		Content: model.QuestionContent{Kind: kind, Prompt: "q"},
	}
	if correct != "" {
		q.Answer = &model.AnswerKey{QuestionID: id, CorrectAnswer: correct}
	}
	return q
}

func fixtureTest(skill model.Skill, sections ...[]model.Question) (*model.Test, *model.TestType) {
	typ := &model.TestType{
		ID:               uuid.New(),
		Name:             skill,
		TimeLimitMinutes: 60,
	}
	test := &model.Test{
		ID:         uuid.New(),
		Name:       "fixture",
		TestTypeID: typ.ID,
		IsActive:   true,
		AudioPath:  "/audio/test.mp3",
	}
	part := model.TestPart{Number: 1}
	for i, qs := range sections {
		part.Sections = append(part.Sections, model.Section{
			ID:        uuid.New(),
			Number:    i + 1,
			Questions: qs,
		})
	}
	test.Parts = []model.TestPart{part}
	return test, typ
}

func newFixtureManager(t *testing.T, skill model.Skill, backend Backend, el audio.Element, sections ...[]model.Question) *Manager {
	t.Helper()
	test, typ := fixtureTest(skill, sections...)
	cfg := Config{
		Test:    test,
		Type:    typ,
		UserID:  uuid.New(),
		Backend: backend,
		Logger:  zerolog.Nop(),
	}
	if el != nil {
		cfg.NewElement = func(func(audio.Event)) audio.Element { return el }
	}
	m, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	return m
}

func questions(n int) []model.Question {
	out := make([]model.Question, n)
	for i := range out {
		out[i] = fixtureQuestion(i+1, "yes")
	}
	return out
}

func TestNewRequiresCollaborators(t *testing.T) {
	test, typ := fixtureTest(model.SkillReading, questions(1))
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing test", Config{Type: typ, UserID: uuid.New(), Backend: newFakeBackend()}},
		{"missing type", Config{Test: test, UserID: uuid.New(), Backend: newFakeBackend()}},
		{"missing user", Config{Test: test, Type: typ, Backend: newFakeBackend()}},
		{"missing backend", Config{Test: test, Type: typ, UserID: uuid.New()}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := New(c.cfg); !errors.Is(err, ErrInitialization) {
				t.Errorf("New() error = %v, want ErrInitialization", err)
			}
		})
	}
}

func TestInitializeSeedsSession(t *testing.T) {
	backend := newFakeBackend()
	m := newFixtureManager(t, model.SkillReading, backend, nil, questions(10))

	st := m.State()
	if st.Session.Status != model.SessionActive {
		t.Errorf("status = %s, want ACTIVE", st.Session.Status)
	}
	if st.Session.TimeRemainingSeconds != 3600 {
		t.Errorf("time remaining = %d, want 3600", st.Session.TimeRemainingSeconds)
	}
	if st.Session.SessionID != backend.sessionID {
		t.Error("session ID not taken from backend")
	}
	if m.answers.Len() != 10 {
		t.Errorf("answer records = %d, want one per question", m.answers.Len())
	}
}

func TestInitializeBackendFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.createErr = errors.New("db down")
	test, typ := fixtureTest(model.SkillReading, questions(1))
	m, err := New(Config{Test: test, Type: typ, UserID: uuid.New(), Backend: backend, Logger: zerolog.Nop()})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Initialize(context.Background()); !errors.Is(err, ErrInitialization) {
		t.Errorf("Initialize() = %v, want ErrInitialization", err)
	}
	if m.Status() != model.SessionInitializing {
		t.Errorf("status = %s after failed init", m.Status())
	}
}

func TestCountdownMonotoneUntilExpiry(t *testing.T) {
	backend := newFakeBackend()
	m := newFixtureManager(t, model.SkillReading, backend, nil, questions(2))

	prev := m.State().Session.TimeRemainingSeconds
	for i := 0; i < 3599; i++ {
		if expired := m.Tick(); expired {
			t.Fatalf("expired early at tick %d", i+1)
		}
		cur := m.State().Session.TimeRemainingSeconds
		if cur > prev {
			t.Fatalf("countdown increased: %d -> %d", prev, cur)
		}
		prev = cur
	}
	if prev != 1 {
		t.Fatalf("time remaining = %d before final tick, want 1", prev)
	}

	if !m.Tick() {
		t.Fatal("final tick must report expiry")
	}
	if m.Status() != model.SessionExpired {
		t.Errorf("status = %s, want EXPIRED", m.Status())
	}

	// Ticks after expiry are ignored.
	if m.Tick() {
		t.Error("tick after expiry must not fire again")
	}

	out, err := m.Submit(context.Background(), model.TriggerTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if m.Status() != model.SessionCompleted {
		t.Errorf("status = %s, want COMPLETED", m.Status())
	}
	if out.Trigger != model.TriggerTimeout {
		t.Errorf("trigger = %s", out.Trigger)
	}
	if backend.submissionCount() != 1 {
		t.Errorf("submissions = %d, want 1", backend.submissionCount())
	}
}

func TestSubmitExactlyOnce(t *testing.T) {
	backend := newFakeBackend()
	m := newFixtureManager(t, model.SkillReading, backend, nil, questions(3))
	m.SetAnswer(m.answers.order[0], model.Text("yes"), 0)

	first, err := m.Submit(context.Background(), model.TriggerUser)
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.Submit(context.Background(), model.TriggerTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if backend.submissionCount() != 1 {
		t.Fatalf("submissions = %d, want exactly one persisted batch", backend.submissionCount())
	}
	if second.Route != first.Route || second.Trigger != first.Trigger {
		t.Error("repeated submit must return the recorded outcome")
	}
}

func TestSubmitRaceWaitsForInFlight(t *testing.T) {
	backend := newFakeBackend()
	backend.submitGate = make(chan struct{})
	m := newFixtureManager(t, model.SkillReading, backend, nil, questions(3))
	m.SetAnswer(m.answers.order[0], model.Text("yes"), 0)

	type result struct {
		out Outcome
		err error
	}
	firstc := make(chan result, 1)
	go func() {
		out, err := m.Submit(context.Background(), model.TriggerTimeout)
		firstc <- result{out, err}
	}()

	for i := 0; i < 200 && m.Status() != model.SessionSubmitting; i++ {
		time.Sleep(5 * time.Millisecond)
	}
	if m.Status() != model.SessionSubmitting {
		t.Fatal("first submit never reached Submitting")
	}

	secondc := make(chan result, 1)
	go func() {
		out, err := m.Submit(context.Background(), model.TriggerUser)
		secondc <- result{out, err}
	}()

	close(backend.submitGate)

	first := <-firstc
	second := <-secondc
	if first.err != nil || second.err != nil {
		t.Fatalf("errs = %v, %v", first.err, second.err)
	}
	if second.out.Route == "" {
		t.Error("racing submit must return the in-flight outcome, not an empty one")
	}
	if second.out.Route != first.out.Route || second.out.Trigger != first.out.Trigger {
		t.Errorf("outcomes differ: %+v vs %+v", first.out, second.out)
	}
	if backend.submissionCount() != 1 {
		t.Fatalf("submissions = %d, want exactly one persisted batch", backend.submissionCount())
	}
}

func TestSubmitRetryAfterFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.submitErr = errors.New("network blip")
	m := newFixtureManager(t, model.SkillReading, backend, nil, questions(2))
	m.SetAnswer(m.answers.order[0], model.Text("yes"), 0)

	if _, err := m.Submit(context.Background(), model.TriggerUser); !errors.Is(err, ErrSubmission) {
		t.Fatalf("Submit() = %v, want ErrSubmission", err)
	}
	if m.Status() != model.SessionSubmitting {
		t.Fatalf("status = %s, want SUBMITTING after failure", m.Status())
	}

	backend.mu.Lock()
	backend.submitErr = nil
	backend.mu.Unlock()

	if _, err := m.Submit(context.Background(), model.TriggerUser); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if m.Status() != model.SessionCompleted {
		t.Errorf("status = %s, want COMPLETED", m.Status())
	}
	if backend.submissionCount() != 1 {
		t.Errorf("submissions = %d, want 1", backend.submissionCount())
	}
}

func TestSubmitScoresAndPersists(t *testing.T) {
	backend := newFakeBackend()
	qs := questions(10)
	m := newFixtureManager(t, model.SkillReading, backend, nil, qs)

	// 7 answered: 5 correct, 2 wrong.
	for i := 0; i < 7; i++ {
		ans := "yes"
		if i >= 5 {
			ans = "no"
		}
		if err := m.SetAnswer(qs[i].ID, model.Text(ans), 0); err != nil {
			t.Fatal(err)
		}
	}

	out, err := m.Submit(context.Background(), model.TriggerUser)
	if err != nil {
		t.Fatal(err)
	}
	if out.Route != model.RouteResult {
		t.Errorf("route = %s, want result", out.Route)
	}
	if out.Summary.TotalQuestions != 10 || out.Summary.AnsweredQuestions != 7 {
		t.Errorf("summary totals = %d/%d", out.Summary.AnsweredQuestions, out.Summary.TotalQuestions)
	}
	if len(backend.submissions[0]) != 7 {
		t.Errorf("persisted responses = %d, want only non-empty answers", len(backend.submissions[0]))
	}
	if len(backend.statuses) != 1 {
		t.Fatalf("status updates = %d", len(backend.statuses))
	}
	up := backend.statuses[0]
	if up.status != model.PersistedCompleted || up.correct != 5 {
		t.Errorf("final status update = %+v", up)
	}
	want := "Test completed with 7 out of 10 questions answered. Score: 5/10 (50%)"
	if up.feedback != want {
		t.Errorf("feedback = %q, want %q", up.feedback, want)
	}
}

func TestWritingSubmissionRoutesToEvaluation(t *testing.T) {
	backend := newFakeBackend()
	essay := fixtureQuestion(1, "")
	m := newFixtureManager(t, model.SkillWriting, backend, nil, []model.Question{essay})

	if err := m.SetAnswer(essay.ID, model.Text("An essay about cities."), 0); err != nil {
		t.Fatal(err)
	}
	out, err := m.Submit(context.Background(), model.TriggerUser)
	if err != nil {
		t.Fatal(err)
	}
	if out.Route != model.RouteWritingEvaluation {
		t.Errorf("route = %s, want writing-evaluation", out.Route)
	}
	resp := backend.submissions[0]
	if len(resp) != 1 || resp[0].MarksAwarded != 0 {
		t.Errorf("writing response = %+v, want zero marks pending evaluation", resp)
	}
}

func TestMutationsRejectedAfterSubmit(t *testing.T) {
	backend := newFakeBackend()
	qs := questions(1)
	m := newFixtureManager(t, model.SkillReading, backend, nil, qs)
	if _, err := m.Submit(context.Background(), model.TriggerUser); err != nil {
		t.Fatal(err)
	}

	if err := m.SetAnswer(qs[0].ID, model.Text("late"), 0); err != ErrNotActive {
		t.Errorf("SetAnswer = %v, want ErrNotActive", err)
	}
	if _, err := m.ToggleMark(qs[0].ID); err != ErrNotActive {
		t.Errorf("ToggleMark = %v, want ErrNotActive", err)
	}
	if m.GoToSection(context.Background(), 0) {
		t.Error("GoToSection must refuse once completed")
	}
}

func TestSectionNavigationAndProgress(t *testing.T) {
	backend := newFakeBackend()
	secA, secB := questions(2), questions(3)
	m := newFixtureManager(t, model.SkillReading, backend, nil, secA, secB)

	if m.GoToSection(context.Background(), 2) {
		t.Error("out-of-range index must be a no-op")
	}
	if !m.GoToSection(context.Background(), 1) {
		t.Fatal("valid index rejected")
	}

	m.SetAnswer(secA[0].ID, model.Text("yes"), 0)
	m.SetAnswer(secA[1].ID, model.Text("yes"), 0)
	m.SetAnswer(secB[0].ID, model.Text("yes"), 0)

	st := m.State()
	if st.SectionIndex != 1 {
		t.Errorf("SectionIndex = %d", st.SectionIndex)
	}
	if st.Sections[0].State != model.SectionComplete {
		t.Errorf("section 0 state = %s, want complete", st.Sections[0].State)
	}
	if st.Sections[1].State != model.SectionPartial {
		t.Errorf("section 1 state = %s, want partial", st.Sections[1].State)
	}
}

func TestAudioResetOnSectionReentry(t *testing.T) {
	backend := newFakeBackend()
	el := &stubElement{}
	m := newFixtureManager(t, model.SkillListening, backend, el, questions(2), questions(2))

	if err := m.SeekAudio(45); err != nil {
		t.Fatal(err)
	}
	if st := m.CheckAudio(); st.CurrentSecs != 45 {
		t.Fatalf("CurrentSecs = %v, want 45", st.CurrentSecs)
	}

	m.GoToSection(context.Background(), 1)
	m.GoToSection(context.Background(), 0)

	if st := m.CheckAudio(); st.CurrentSecs != 0 {
		t.Errorf("CurrentSecs = %v after re-entry, want reset to 0", st.CurrentSecs)
	}
	if el.loads < 3 {
		t.Errorf("loads = %d, want one per section change plus init", el.loads)
	}
}

func TestReadingTestLeavesAudioAlone(t *testing.T) {
	backend := newFakeBackend()
	el := &stubElement{}
	m := newFixtureManager(t, model.SkillReading, backend, el, questions(1), questions(1))

	loadsBefore := el.loads
	m.GoToSection(context.Background(), 1)
	if el.loads != loadsBefore {
		t.Error("reading navigation must not touch the audio element")
	}
}

func TestAutosaveSuppressedAfterSubmit(t *testing.T) {
	backend := newFakeBackend()
	qs := questions(1)
	m := newFixtureManager(t, model.SkillReading, backend, nil, qs)
	m.SetAnswer(qs[0].ID, model.Text("yes"), 0)

	m.autosave(context.Background())
	backend.mu.Lock()
	saved := len(backend.saves)
	backend.mu.Unlock()
	if saved != 1 {
		t.Fatalf("saves = %d, want 1 while active and dirty", saved)
	}

	// Clean store saves nothing.
	m.autosave(context.Background())
	if _, err := m.Submit(context.Background(), model.TriggerUser); err != nil {
		t.Fatal(err)
	}
	m.autosave(context.Background())

	backend.mu.Lock()
	saved = len(backend.saves)
	backend.mu.Unlock()
	if saved != 1 {
		t.Errorf("saves = %d, stale autosave landed after submission", saved)
	}
}

func TestRegistryEvictsPreviousSession(t *testing.T) {
	test, typ := fixtureTest(model.SkillReading, questions(1))
	userID := uuid.New()

	mk := func(sessionID uuid.UUID) *Manager {
		b := newFakeBackend()
		b.sessionID = sessionID
		m, err := New(Config{Test: test, Type: typ, UserID: userID, Backend: b, Logger: zerolog.Nop()})
		if err != nil {
			t.Fatal(err)
		}
		if err := m.Initialize(context.Background()); err != nil {
			t.Fatal(err)
		}
		return m
	}

	r := NewRegistry()
	first := mk(uuid.New())
	second := mk(uuid.New())
	r.Add(first)
	r.Add(second)

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want previous session evicted", r.Len())
	}
	if got, ok := r.GetForUser(userID); !ok || got != second {
		t.Error("GetForUser must return the newest session")
	}
	select {
	case <-first.Done():
	default:
		t.Error("evicted session must be cancelled")
	}

	r.Remove(second.SessionID())
	if r.Len() != 0 {
		t.Errorf("Len() = %d after remove", r.Len())
	}
}
