package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ieltsprep/ielts-backend/internal/audio"
	"github.com/ieltsprep/ielts-backend/internal/config"
	"github.com/ieltsprep/ielts-backend/internal/model"
	"github.com/ieltsprep/ielts-backend/internal/repository"
	"github.com/ieltsprep/ielts-backend/internal/session"
	"github.com/ieltsprep/ielts-backend/internal/worker"
)

var (
	ErrTestNotFound    = errors.New("test not found")
	ErrTestInactive    = errors.New("test is not active")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("session belongs to another user")
)

// SessionService orchestrates live exam sessions: it starts in-process
// managers, serves their state, and implements the persistence backend
// the managers call out to.
type SessionService struct {
	testRepo     *repository.TestRepository
	sessionRepo  *repository.SessionRepository
	responseRepo *repository.ResponseRepository
	registry     *session.Registry
	rdb          *redis.Client
	cfg          *config.Config
	log          zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	testRepo *repository.TestRepository,
	sessionRepo *repository.SessionRepository,
	responseRepo *repository.ResponseRepository,
	registry *session.Registry,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		testRepo:     testRepo,
		sessionRepo:  sessionRepo,
		responseRepo: responseRepo,
		registry:     registry,
		rdb:          rdb,
		cfg:          cfg,
		log:          log.With().Str("component", "session_service").Logger(),
	}
}

// Start builds and initializes a session manager for the given candidate
// and test, registers it, and launches its run loop.
func (s *SessionService) Start(ctx context.Context, userID, testID uuid.UUID) (session.Snapshot, error) {
	test, err := s.testRepo.GetTest(ctx, testID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Snapshot{}, ErrTestNotFound
		}
		return session.Snapshot{}, err
	}
	if !test.IsActive {
		return session.Snapshot{}, ErrTestInactive
	}
	testType, err := s.testRepo.GetTestType(ctx, test.TestTypeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return session.Snapshot{}, ErrTestNotFound
		}
		return session.Snapshot{}, err
	}

	s.resolveAudioURLs(test)

	mgr, err := session.New(session.Config{
		Test:    test,
		Type:    testType,
		UserID:  userID,
		Backend: s,
		Logger:  s.log,
		NewElement: func(emit func(audio.Event)) audio.Element {
			return audio.NewHTTPElement(nil, emit)
		},
		PollInterval:     s.cfg.AudioPollInterval,
		AutosaveInterval: s.cfg.AutosaveInterval,
	})
	if err != nil {
		return session.Snapshot{}, err
	}
	if err := mgr.Initialize(ctx); err != nil {
		return session.Snapshot{}, err
	}

	s.registry.Add(mgr)
	mgr.Start()

	sessionID := mgr.SessionID()
	s.rdb.Set(ctx, config.CacheKey.UserActiveSessionKey(userID.String()), sessionID.String(), 0)
	s.rdb.Set(ctx, config.CacheKey.SessionStartKey(sessionID.String()), time.Now().Unix(), 24*time.Hour)

	return mgr.State(), nil
}

// resolveAudioURLs prefixes relative audio paths with the public base URL
// so the readiness probe can reach them. Absolute URLs pass through.
func (s *SessionService) resolveAudioURLs(test *model.Test) {
	base := strings.TrimRight(s.cfg.AudioBaseURL, "/")
	resolve := func(p string) string {
		if p == "" || strings.Contains(p, "://") {
			return p
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		return base + p
	}
	test.AudioPath = resolve(test.AudioPath)
	for pi := range test.Parts {
		for si := range test.Parts[pi].Sections {
			sec := &test.Parts[pi].Sections[si]
			sec.AudioPath = resolve(sec.AudioPath)
		}
	}
}

// manager resolves a live manager and enforces ownership.
func (s *SessionService) manager(sessionID, userID uuid.UUID) (*session.Manager, error) {
	mgr, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if mgr.UserID() != userID {
		return nil, ErrNotSessionOwner
	}
	return mgr, nil
}

// State returns the full live snapshot of a session.
func (s *SessionService) State(sessionID, userID uuid.UUID) (session.Snapshot, error) {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return session.Snapshot{}, err
	}
	return mgr.State(), nil
}

// SetAnswer records an answer on a live session.
func (s *SessionService) SetAnswer(sessionID, userID, questionID uuid.UUID, value model.AnswerValue, timeSpent int) error {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return err
	}
	return mgr.SetAnswer(questionID, value, timeSpent)
}

// ToggleMark flips the review flag on one question.
func (s *SessionService) ToggleMark(sessionID, userID, questionID uuid.UUID) (bool, error) {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return false, err
	}
	return mgr.ToggleMark(questionID)
}

// AddAnswerTime accumulates time spent on one question.
func (s *SessionService) AddAnswerTime(sessionID, userID, questionID uuid.UUID, seconds int) error {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return err
	}
	return mgr.AddAnswerTime(questionID, seconds)
}

// SetConfidence records confidence on one question.
func (s *SessionService) SetConfidence(sessionID, userID, questionID uuid.UUID, confidence int) error {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return err
	}
	return mgr.SetConfidence(questionID, confidence)
}

// AddHighlight stores a passage highlight.
func (s *SessionService) AddHighlight(sessionID, userID uuid.UUID, text string) (model.Highlight, error) {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return model.Highlight{}, err
	}
	hl, ok := mgr.AddHighlight(text)
	if !ok {
		return model.Highlight{}, errors.New("highlight text is empty")
	}
	return hl, nil
}

// RemoveHighlight deletes a highlight.
func (s *SessionService) RemoveHighlight(sessionID, userID, highlightID uuid.UUID) error {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return err
	}
	mgr.RemoveHighlight(highlightID)
	return nil
}

// ClearHighlights drops every highlight of a live session.
func (s *SessionService) ClearHighlights(sessionID, userID uuid.UUID) error {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return err
	}
	mgr.ClearHighlights()
	return nil
}

// RenderHighlights segments passage text against stored highlights.
func (s *SessionService) RenderHighlights(sessionID, userID uuid.UUID, sourceText string) ([]session.Segment, error) {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return mgr.RenderHighlights(sourceText), nil
}

// GoToSection navigates a live session.
func (s *SessionService) GoToSection(ctx context.Context, sessionID, userID uuid.UUID, index int) (bool, error) {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return false, err
	}
	return mgr.GoToSection(ctx, index), nil
}

// PlayAudio starts audio playback on a live session.
func (s *SessionService) PlayAudio(sessionID, userID uuid.UUID) error {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return err
	}
	return mgr.PlayAudio()
}

// PauseAudio pauses audio playback.
func (s *SessionService) PauseAudio(sessionID, userID uuid.UUID) error {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return err
	}
	return mgr.PauseAudio()
}

// SeekAudio moves the audio playhead.
func (s *SessionService) SeekAudio(sessionID, userID uuid.UUID, seconds float64) error {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return err
	}
	return mgr.SeekAudio(seconds)
}

// CheckAudio force-runs the audio readiness inspection.
func (s *SessionService) CheckAudio(sessionID, userID uuid.UUID) (audio.State, error) {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return audio.State{}, err
	}
	return mgr.CheckAudio(), nil
}

// Events exposes the session's event stream for WebSocket delivery.
func (s *SessionService) Events(sessionID, userID uuid.UUID) (<-chan session.Event, error) {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return nil, err
	}
	return mgr.Events(), nil
}

// Submit runs the submission pipeline and, for writing tests, enqueues
// the persisted essays for AI evaluation.
func (s *SessionService) Submit(ctx context.Context, sessionID, userID uuid.UUID, trigger model.SubmitTrigger) (session.Outcome, error) {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return session.Outcome{}, err
	}
	out, err := mgr.Submit(ctx, trigger)
	if err != nil {
		return session.Outcome{}, err
	}

	if out.Route == model.RouteWritingEvaluation {
		if err := s.enqueueEvaluations(ctx, sessionID); err != nil {
			// Evaluation is deferred work; the submission itself stands.
			s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to enqueue writing evaluation")
		}
	}

	s.rdb.Del(ctx, config.CacheKey.UserActiveSessionKey(userID.String()))
	return out, nil
}

// Cancel stops a live session without submitting. The persisted record is
// later swept as abandoned.
func (s *SessionService) Cancel(sessionID, userID uuid.UUID) error {
	mgr, err := s.manager(sessionID, userID)
	if err != nil {
		return err
	}
	mgr.Cancel()
	s.registry.Remove(sessionID)
	s.rdb.Del(context.Background(), config.CacheKey.UserActiveSessionKey(userID.String()))
	return nil
}

// enqueueEvaluations pushes every persisted essay of the session onto the
// writing evaluation queue.
func (s *SessionService) enqueueEvaluations(ctx context.Context, sessionID uuid.UUID) error {
	ut, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	test, err := s.testRepo.GetTest(ctx, ut.TestID)
	if err != nil {
		return err
	}
	responses, err := s.responseRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}

	for _, resp := range responses {
		q, ok := test.FindQuestion(resp.QuestionID)
		if !ok || !q.Content.IsEssay() {
			continue
		}
		if strings.TrimSpace(resp.AnswerText) == "" {
			continue
		}
		payload, err := json.Marshal(worker.EvaluationPayload{
			ResponseID:   resp.ID.String(),
			QuestionText: q.Content.Prompt,
			Essay:        resp.AnswerText,
		})
		if err != nil {
			return err
		}
		if err := s.rdb.RPush(ctx, config.WorkerKey.WritingEvaluationQueue, payload).Err(); err != nil {
			return err
		}
	}
	return nil
}

// ----------------------------------------------------------------
// session.Backend implementation
// ----------------------------------------------------------------

// CreateSession persists a new in-progress session record.
func (s *SessionService) CreateSession(ctx context.Context, userID, testID uuid.UUID, startTime, endTime time.Time) (uuid.UUID, error) {
	return s.sessionRepo.Create(ctx, userID, testID, startTime, endTime)
}

// SubmitResponses writes one scored batch.
func (s *SessionService) SubmitResponses(ctx context.Context, sessionID uuid.UUID, responses []model.UserResponse) error {
	return s.responseRepo.BulkUpsert(ctx, responses)
}

// UpdateSessionStatus finalizes the persisted session record.
func (s *SessionService) UpdateSessionStatus(ctx context.Context, sessionID uuid.UUID, status model.PersistedStatus, feedback string, correctCount int) error {
	return s.sessionRepo.UpdateStatus(ctx, sessionID, status, feedback, correctCount)
}

// SaveProgress pushes an autosave snapshot onto the persistence queue;
// the progress worker writes it behind the request path.
func (s *SessionService) SaveProgress(ctx context.Context, sessionID uuid.UUID, records []model.AnswerRecord) error {
	payload, err := json.Marshal(worker.ProgressPayload{
		SessionID: sessionID.String(),
		Records:   records,
	})
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistProgressQueue, payload).Err()
}
