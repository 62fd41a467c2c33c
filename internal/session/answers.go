package session

import (
	"github.com/google/uuid"

	"github.com/ieltsprep/ielts-backend/internal/model"
)

// AnswerStore is the single source of truth for what the candidate has
// entered. Exactly one record exists per question known to the session,
// created empty at start and updated in place, never removed.
//
// The store is owned by one Manager and relies on its lock; it performs
// no synchronization of its own.
type AnswerStore struct {
	order   []uuid.UUID
	records map[uuid.UUID]*model.AnswerRecord
}

// NewAnswerStore seeds one empty record per question ID, preserving order.
func NewAnswerStore(questionIDs []uuid.UUID) *AnswerStore {
	s := &AnswerStore{
		order:   make([]uuid.UUID, 0, len(questionIDs)),
		records: make(map[uuid.UUID]*model.AnswerRecord, len(questionIDs)),
	}
	for _, id := range questionIDs {
		if _, dup := s.records[id]; dup {
			continue
		}
		s.order = append(s.order, id)
		s.records[id] = &model.AnswerRecord{QuestionID: id}
	}
	return s
}

// Len reports the number of records, which equals the question count for
// the whole session lifetime.
func (s *AnswerStore) Len() int { return len(s.order) }

// SetAnswer replaces the value of an existing record. Setting an
// unchanged value is a no-op. TimeSpent accumulates.
func (s *AnswerStore) SetAnswer(id uuid.UUID, value model.AnswerValue, timeSpent int) error {
	rec, ok := s.records[id]
	if !ok {
		return ErrUnknownQuestion
	}
	if timeSpent > 0 {
		rec.TimeSpentSeconds += timeSpent
	}
	if rec.Value.Equal(value) {
		return nil
	}
	rec.Value = value
	return nil
}

// AddTime accumulates seconds spent on a question without touching its
// answer value.
func (s *AnswerStore) AddTime(id uuid.UUID, seconds int) error {
	rec, ok := s.records[id]
	if !ok {
		return ErrUnknownQuestion
	}
	if seconds > 0 {
		rec.TimeSpentSeconds += seconds
	}
	return nil
}

// ToggleMark flips the marked-for-review flag and returns the new value.
// Calling it twice restores the original state.
func (s *AnswerStore) ToggleMark(id uuid.UUID) (bool, error) {
	rec, ok := s.records[id]
	if !ok {
		return false, ErrUnknownQuestion
	}
	rec.IsMarked = !rec.IsMarked
	return rec.IsMarked, nil
}

// SetConfidence records the candidate's 1..5 confidence for a question.
func (s *AnswerStore) SetConfidence(id uuid.UUID, confidence int) error {
	rec, ok := s.records[id]
	if !ok {
		return ErrUnknownQuestion
	}
	rec.Confidence = confidence
	return nil
}

// Record returns a copy of one record.
func (s *AnswerStore) Record(id uuid.UUID) (model.AnswerRecord, bool) {
	rec, ok := s.records[id]
	if !ok {
		return model.AnswerRecord{}, false
	}
	return *rec, true
}

// AnsweredCount reports how many records hold a non-blank value.
func (s *AnswerStore) AnsweredCount() int {
	n := 0
	for _, rec := range s.records {
		if rec.Answered() {
			n++
		}
	}
	return n
}

// AnsweredIn reports how many of the given questions hold a non-blank
// value. Used for per-section progress.
func (s *AnswerStore) AnsweredIn(ids []uuid.UUID) int {
	n := 0
	for _, id := range ids {
		if rec, ok := s.records[id]; ok && rec.Answered() {
			n++
		}
	}
	return n
}

// MarkedCount reports how many records are flagged for review.
func (s *AnswerStore) MarkedCount() int {
	n := 0
	for _, rec := range s.records {
		if rec.IsMarked {
			n++
		}
	}
	return n
}

// Snapshot copies every record keyed by question ID.
func (s *AnswerStore) Snapshot() map[uuid.UUID]model.AnswerRecord {
	out := make(map[uuid.UUID]model.AnswerRecord, len(s.records))
	for id, rec := range s.records {
		out[id] = *rec
	}
	return out
}

// Records copies every record in question order.
func (s *AnswerStore) Records() []model.AnswerRecord {
	out := make([]model.AnswerRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out
}
