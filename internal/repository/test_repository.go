package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ieltsprep/ielts-backend/internal/model"
)

// TestRepository handles test definition data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetTestType retrieves a test type by its UUID.
func (r *TestRepository) GetTestType(ctx context.Context, id uuid.UUID) (*model.TestType, error) {
	t := &model.TestType{}
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, ''), time_limit_minutes,
		        total_marks, COALESCE(instructions, '')
		 FROM test_types WHERE id = $1`, id,
	).Scan(&t.ID, &name, &t.Description, &t.TimeLimitMinutes, &t.TotalMarks, &t.Instructions)
	if err != nil {
		return nil, err
	}
	t.Name = model.ParseSkill(name)
	return t, nil
}

// ListActive retrieves the active tests without their part trees.
func (r *TestRepository) ListActive(ctx context.Context) ([]model.Test, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_name, test_type_id, is_active,
		        COALESCE(audio_path, ''), created_at, updated_at
		 FROM tests WHERE is_active = TRUE ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []model.Test
	for rows.Next() {
		var t model.Test
		if err := rows.Scan(&t.ID, &t.Name, &t.TestTypeID, &t.IsActive,
			&t.AudioPath, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// GetTest retrieves a test with its full part -> section -> question tree,
// including answer keys. Strip the keys before exposing the payload to a
// candidate.
func (r *TestRepository) GetTest(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_name, test_type_id, is_active,
		        COALESCE(audio_path, ''), created_at, updated_at
		 FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.TestTypeID, &t.IsActive, &t.AudioPath, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := r.loadParts(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TestRepository) loadParts(ctx context.Context, t *model.Test) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, part_number, COALESCE(title, ''), COALESCE(description, ''),
		        COALESCE(content, ''), COALESCE(image_path, '')
		 FROM test_parts WHERE test_id = $1 ORDER BY part_number`, t.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var p model.TestPart
		if err := rows.Scan(&p.ID, &p.Number, &p.Title, &p.Description,
			&p.Content, &p.ImagePath); err != nil {
			return err
		}
		t.Parts = append(t.Parts, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range t.Parts {
		if err := r.loadSections(ctx, &t.Parts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *TestRepository) loadSections(ctx context.Context, p *model.TestPart) error {
	rows, err := r.pool.Query(ctx,
		`SELECT id, section_number, COALESCE(instructions, ''),
		        COALESCE(image_path, ''), COALESCE(audio_path, '')
		 FROM sections WHERE part_id = $1 ORDER BY section_number`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.ID, &s.Number, &s.Instructions, &s.ImagePath, &s.AudioPath); err != nil {
			return err
		}
		p.Sections = append(p.Sections, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range p.Sections {
		if err := r.loadQuestions(ctx, &p.Sections[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *TestRepository) loadQuestions(ctx context.Context, s *model.Section) error {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.section_id, q.question_number, q.marks, q.content,
		        k.question_id, k.correct_answer, COALESCE(k.alternative_answers, ''),
		        COALESCE(k.explanation, '')
		 FROM questions q
		 LEFT JOIN answer_keys k ON k.question_id = q.id
		 WHERE q.section_id = $1
		 ORDER BY q.question_number`, s.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q                   model.Question
			content             json.RawMessage
			keyID               *uuid.UUID
			correct, alts, expl *string
		)
		if err := rows.Scan(&q.ID, &q.SectionID, &q.Number, &q.Marks, &content,
			&keyID, &correct, &alts, &expl); err != nil {
			return err
		}
		q.Content = model.ParseContent(content)
		if keyID != nil {
			q.Answer = &model.AnswerKey{
				QuestionID:         *keyID,
				CorrectAnswer:      deref(correct),
				AlternativeAnswers: deref(alts),
				Explanation:        deref(expl),
			}
		}
		s.Questions = append(s.Questions, q)
	}
	return rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
