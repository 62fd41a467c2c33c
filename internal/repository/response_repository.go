package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ieltsprep/ielts-backend/internal/model"
)

// ResponseRepository handles user_responses data access.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// ----------------------------------------------------------------
// BULK PostgreSQL UPSERT using UNNEST + alias
// ----------------------------------------------------------------

// BulkUpsert writes one submission batch in a single statement. Retried
// submissions overwrite their previous rows, keyed by (session, question).
func (r *ResponseRepository) BulkUpsert(ctx context.Context, responses []model.UserResponse) error {
	n := len(responses)
	if n == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, n)
	sessionIDs := make([]uuid.UUID, 0, n)
	questionIDs := make([]uuid.UUID, 0, n)
	answers := make([]string, 0, n)
	marks := make([]float64, 0, n)

	for _, resp := range responses {
		ids = append(ids, resp.ID)
		sessionIDs = append(sessionIDs, resp.UserTestID)
		questionIDs = append(questionIDs, resp.QuestionID)
		answers = append(answers, resp.AnswerText)
		marks = append(marks, resp.MarksAwarded)
	}

	query := `
		INSERT INTO user_responses (id, user_test_id, question_id, answer_text, marks_awarded)
		SELECT * FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::uuid[],
			$4::text[],
			$5::float8[]
		) AS u (id, user_test_id, question_id, answer_text, marks_awarded)
		ON CONFLICT (user_test_id, question_id) DO UPDATE
		SET answer_text = EXCLUDED.answer_text,
		    marks_awarded = EXCLUDED.marks_awarded
	`

	_, err := r.pool.Exec(ctx, query, ids, sessionIDs, questionIDs, answers, marks)
	return err
}

// SaveProgress upserts an autosave snapshot of in-flight answers. Marks
// stay zero until submission scores them.
func (r *ResponseRepository) SaveProgress(ctx context.Context, sessionID uuid.UUID, records []model.AnswerRecord) error {
	n := len(records)
	if n == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, n)
	sessionIDs := make([]uuid.UUID, 0, n)
	questionIDs := make([]uuid.UUID, 0, n)
	answers := make([]string, 0, n)
	timeSpent := make([]int, 0, n)
	marked := make([]bool, 0, n)

	for _, rec := range records {
		ids = append(ids, uuid.New())
		sessionIDs = append(sessionIDs, sessionID)
		questionIDs = append(questionIDs, rec.QuestionID)
		answers = append(answers, rec.Value.Joined())
		timeSpent = append(timeSpent, rec.TimeSpentSeconds)
		marked = append(marked, rec.IsMarked)
	}

	query := `
		INSERT INTO user_responses (id, user_test_id, question_id, answer_text, time_spent_seconds, is_marked)
		SELECT * FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::uuid[],
			$4::text[],
			$5::int[],
			$6::bool[]
		) AS u (id, user_test_id, question_id, answer_text, time_spent_seconds, is_marked)
		ON CONFLICT (user_test_id, question_id) DO UPDATE
		SET answer_text = EXCLUDED.answer_text,
		    time_spent_seconds = EXCLUDED.time_spent_seconds,
		    is_marked = EXCLUDED.is_marked
	`

	_, err := r.pool.Exec(ctx, query, ids, sessionIDs, questionIDs, answers, timeSpent, marked)
	return err
}

// ListBySession retrieves the persisted responses of one session in
// question order.
func (r *ResponseRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.UserResponse, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.user_test_id, r.question_id, r.answer_text, r.marks_awarded,
		        COALESCE(r.band_score, ''), COALESCE(r.evaluation_text, '')
		 FROM user_responses r
		 JOIN questions q ON q.id = r.question_id
		 WHERE r.user_test_id = $1
		 ORDER BY q.question_number`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []model.UserResponse
	for rows.Next() {
		var resp model.UserResponse
		if err := rows.Scan(&resp.ID, &resp.UserTestID, &resp.QuestionID, &resp.AnswerText,
			&resp.MarksAwarded, &resp.BandScore, &resp.EvaluationText); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// UpdateEvaluation stores the AI examiner's verdict on one writing
// response.
func (r *ResponseRepository) UpdateEvaluation(ctx context.Context, responseID uuid.UUID, bandScore, evaluationText string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_responses
		 SET band_score = $2, evaluation_text = $3
		 WHERE id = $1`,
		responseID, bandScore, evaluationText)
	return err
}
