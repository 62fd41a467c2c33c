package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ieltsprep/ielts-backend/internal/model"
)

// SessionRepository handles user_tests data access.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new in-progress session record and returns its ID.
func (r *SessionRepository) Create(ctx context.Context, userID, testID uuid.UUID, startTime, endTime time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_tests (id, user_id, test_id, start_time, end_time, status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, testID, startTime, endTime, model.PersistedInProgress)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// GetByID retrieves one session record.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.UserTest, error) {
	ut := &model.UserTest{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, test_id, start_time, end_time, status,
		        num_correct_answer, COALESCE(feedback, '')
		 FROM user_tests WHERE id = $1`, id,
	).Scan(&ut.ID, &ut.UserID, &ut.TestID, &ut.StartTime, &ut.EndTime,
		&ut.Status, &ut.NumCorrectAnswer, &ut.Feedback)
	if err != nil {
		return nil, err
	}
	return ut, nil
}

// ListByUser retrieves a user's session history, newest first.
func (r *SessionRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.UserTest, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, test_id, start_time, end_time, status,
		        num_correct_answer, COALESCE(feedback, '')
		 FROM user_tests WHERE user_id = $1
		 ORDER BY start_time DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.UserTest
	for rows.Next() {
		var ut model.UserTest
		if err := rows.Scan(&ut.ID, &ut.UserID, &ut.TestID, &ut.StartTime, &ut.EndTime,
			&ut.Status, &ut.NumCorrectAnswer, &ut.Feedback); err != nil {
			return nil, err
		}
		sessions = append(sessions, ut)
	}
	return sessions, rows.Err()
}

// UpdateStatus finalizes a session record with its outcome.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PersistedStatus, feedback string, correctCount int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE user_tests
		 SET status = $2, feedback = $3, num_correct_answer = $4
		 WHERE id = $1`,
		id, status, feedback, correctCount)
	return err
}

// SweepAbandoned marks in-progress sessions whose end time passed longer
// than grace ago as abandoned, and returns how many rows changed.
func (r *SessionRepository) SweepAbandoned(ctx context.Context, grace time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_tests
		 SET status = $1
		 WHERE status = $2 AND end_time < $3`,
		model.PersistedAbandoned, model.PersistedInProgress, time.Now().Add(-grace))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
