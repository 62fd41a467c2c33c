package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ieltsprep/ielts-backend/internal/evaluator"
	"github.com/ieltsprep/ielts-backend/internal/model"
	"github.com/ieltsprep/ielts-backend/internal/repository"
	"github.com/ieltsprep/ielts-backend/internal/scoring"
)

// ResultService serves completed-session results.
type ResultService struct {
	testRepo     *repository.TestRepository
	sessionRepo  *repository.SessionRepository
	responseRepo *repository.ResponseRepository
	log          zerolog.Logger
}

// NewResultService creates a new ResultService.
func NewResultService(
	testRepo *repository.TestRepository,
	sessionRepo *repository.SessionRepository,
	responseRepo *repository.ResponseRepository,
	log zerolog.Logger,
) *ResultService {
	return &ResultService{
		testRepo:     testRepo,
		sessionRepo:  sessionRepo,
		responseRepo: responseRepo,
		log:          log.With().Str("component", "result_service").Logger(),
	}
}

// QuestionResult is one scored question on the result view.
type QuestionResult struct {
	QuestionID    uuid.UUID `json:"question_id"`
	Number        int       `json:"question_number"`
	Prompt        string    `json:"prompt"`
	YourAnswer    string    `json:"your_answer"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
	Explanation   string    `json:"explanation,omitempty"`
	IsCorrect     bool      `json:"is_correct"`
	MarksAwarded  float64   `json:"marks_awarded"`
	MaxMarks      int       `json:"max_marks"`
}

// SessionResult is the full result view of one completed session.
type SessionResult struct {
	Session           model.UserTest   `json:"session"`
	TestName          string           `json:"test_name"`
	Skill             model.Skill      `json:"skill"`
	TotalQuestions    int              `json:"total_questions"`
	AnsweredQuestions int              `json:"answered_questions"`
	CorrectAnswers    int              `json:"correct_answers"`
	MarksAwarded      float64          `json:"marks_awarded"`
	TotalMarks        int              `json:"total_marks"`
	Percentage        float64          `json:"percentage"`
	Band              float64          `json:"band"`
	BandDescription   string           `json:"band_description"`
	Questions         []QuestionResult `json:"questions,omitempty"`
	// Degraded marks a summary assembled without per-question data after
	// the responses fetch failed.
	Degraded bool `json:"degraded,omitempty"`
}

// Results assembles the result view of a session. If the per-question
// responses cannot be fetched, it degrades to a summary computed from the
// session aggregate instead of failing entirely.
func (s *ResultService) Results(ctx context.Context, sessionID, userID uuid.UUID) (*SessionResult, error) {
	ut, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if ut.UserID != userID {
		return nil, ErrNotSessionOwner
	}

	test, err := s.testRepo.GetTest(ctx, ut.TestID)
	if err != nil {
		return nil, err
	}
	testType, err := s.testRepo.GetTestType(ctx, test.TestTypeID)
	if err != nil {
		return nil, err
	}
	catalog := scoring.NewCatalog(test)

	result := &SessionResult{
		Session:        *ut,
		TestName:       test.Name,
		Skill:          testType.Name,
		TotalQuestions: catalog.Len(),
		TotalMarks:     catalog.TotalMarks(),
		CorrectAnswers: ut.NumCorrectAnswer,
	}

	responses, err := s.responseRepo.ListBySession(ctx, sessionID)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("responses fetch failed, serving degraded summary")
		result.Degraded = true
		s.fillAggregates(result)
		return result, nil
	}

	byQuestion := make(map[uuid.UUID]model.UserResponse, len(responses))
	for _, resp := range responses {
		byQuestion[resp.QuestionID] = resp
	}

	for _, q := range test.Questions() {
		qr := QuestionResult{
			QuestionID: q.ID,
			Number:     q.Number,
			Prompt:     q.Content.Prompt,
			MaxMarks:   q.Marks,
		}
		if q.Answer != nil {
			qr.CorrectAnswer = q.Answer.CorrectAnswer
			qr.Explanation = q.Answer.Explanation
		}
		if resp, ok := byQuestion[q.ID]; ok {
			qr.YourAnswer = resp.AnswerText
			qr.MarksAwarded = resp.MarksAwarded
			// Essays stay not-correct here; their state lives in the
			// writing-results pending/band fields.
			qr.IsCorrect = !q.Content.IsEssay() && resp.MarksAwarded >= float64(q.Marks) && q.Marks > 0
			result.AnsweredQuestions++
			result.MarksAwarded += resp.MarksAwarded
		}
		result.Questions = append(result.Questions, qr)
	}
	s.fillAggregates(result)
	return result, nil
}

func (s *ResultService) fillAggregates(r *SessionResult) {
	if r.Degraded {
		// Only the correct-answer count survives in the aggregate; treat
		// one mark per correct answer for the banner percentage.
		r.MarksAwarded = float64(r.CorrectAnswers)
	}
	if r.TotalMarks > 0 {
		r.Percentage = r.MarksAwarded / float64(r.TotalMarks) * 100
	}
	r.Band = scoring.BandForPercentage(r.Percentage)
	r.BandDescription = scoring.BandDescription(r.Band)
}

// WritingResult is one essay with its AI evaluation state.
type WritingResult struct {
	ResponseID     uuid.UUID `json:"response_id"`
	QuestionID     uuid.UUID `json:"question_id"`
	Prompt         string    `json:"prompt"`
	Essay          string    `json:"essay"`
	WordCount      int       `json:"word_count"`
	Tips           []string  `json:"tips,omitempty"`
	BandScore      string    `json:"band_score,omitempty"`
	BandLabel      string    `json:"band_label,omitempty"`
	EvaluationText string    `json:"evaluation_text,omitempty"`
	Pending        bool      `json:"pending"`
}

// WritingResults lists the session's essays with their evaluation state.
// Essays the worker has not scored yet are flagged pending so the client
// keeps polling.
func (s *ResultService) WritingResults(ctx context.Context, sessionID, userID uuid.UUID) ([]WritingResult, error) {
	ut, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if ut.UserID != userID {
		return nil, ErrNotSessionOwner
	}

	test, err := s.testRepo.GetTest(ctx, ut.TestID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responseRepo.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var results []WritingResult
	for _, resp := range responses {
		q, ok := test.FindQuestion(resp.QuestionID)
		if !ok || !q.Content.IsEssay() {
			continue
		}
		words := evaluator.WordCount(resp.AnswerText)
		wr := WritingResult{
			ResponseID: resp.ID,
			QuestionID: resp.QuestionID,
			Prompt:     q.Content.Prompt,
			Essay:      resp.AnswerText,
			WordCount:  words,
			Tips:       evaluator.WritingTips(words, evaluator.IsEvaluatable(q, sectionNumberOf(test, q))),
			BandScore:  resp.BandScore,
			Pending:    resp.BandScore == "",
		}
		if resp.BandScore != "" {
			wr.EvaluationText = resp.EvaluationText
			if band, perr := parseBand(resp.BandScore); perr == nil {
				wr.BandLabel = scoring.BandDescription(band)
			}
		}
		results = append(results, wr)
	}
	return results, nil
}

// History lists a user's past sessions.
func (s *ResultService) History(ctx context.Context, userID uuid.UUID, limit int) ([]model.UserTest, error) {
	return s.sessionRepo.ListByUser(ctx, userID, limit)
}

func parseBand(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func sectionNumberOf(test *model.Test, q *model.Question) int {
	for _, p := range test.Parts {
		for _, sec := range p.Sections {
			if sec.ID == q.SectionID {
				return sec.Number
			}
		}
	}
	return 0
}
