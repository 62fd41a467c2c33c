package session

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ieltsprep/ielts-backend/internal/model"
)

func ids(n int) []uuid.UUID {
	out := make([]uuid.UUID, n)
	for i := range out {
		out[i] = uuid.New()
	}
	return out
}

func TestAnswerStoreSeeding(t *testing.T) {
	qs := ids(5)
	s := NewAnswerStore(qs)
	if s.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", s.Len())
	}
	for _, id := range qs {
		rec, ok := s.Record(id)
		if !ok {
			t.Fatalf("no record for %s", id)
		}
		if rec.Answered() {
			t.Error("seeded record must be empty")
		}
	}
	if s.AnsweredCount() != 0 {
		t.Errorf("AnsweredCount() = %d, want 0", s.AnsweredCount())
	}
}

func TestAnswerStoreSetAnswer(t *testing.T) {
	qs := ids(2)
	s := NewAnswerStore(qs)

	if err := s.SetAnswer(qs[0], model.Text("beta"), 12); err != nil {
		t.Fatal(err)
	}
	rec, _ := s.Record(qs[0])
	if rec.Value.Joined() != "beta" || rec.TimeSpentSeconds != 12 {
		t.Errorf("record = %+v", rec)
	}
	if s.AnsweredCount() != 1 {
		t.Errorf("AnsweredCount() = %d, want 1", s.AnsweredCount())
	}

	// Unchanged value is a no-op but time still accumulates.
	if err := s.SetAnswer(qs[0], model.Text("beta"), 3); err != nil {
		t.Fatal(err)
	}
	rec, _ = s.Record(qs[0])
	if rec.TimeSpentSeconds != 15 {
		t.Errorf("TimeSpentSeconds = %d, want 15", rec.TimeSpentSeconds)
	}

	// Record count never changes after seeding.
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	if err := s.SetAnswer(uuid.New(), model.Text("x"), 0); err != ErrUnknownQuestion {
		t.Errorf("SetAnswer(unknown) = %v, want ErrUnknownQuestion", err)
	}
	if s.Len() != 2 {
		t.Errorf("unknown question must not create a record, Len() = %d", s.Len())
	}
}

func TestToggleMarkInvolution(t *testing.T) {
	qs := ids(1)
	s := NewAnswerStore(qs)

	marked, err := s.ToggleMark(qs[0])
	if err != nil || !marked {
		t.Fatalf("first toggle = (%v, %v)", marked, err)
	}
	if s.MarkedCount() != 1 {
		t.Errorf("MarkedCount() = %d, want 1", s.MarkedCount())
	}
	marked, err = s.ToggleMark(qs[0])
	if err != nil || marked {
		t.Fatalf("second toggle = (%v, %v), want restored", marked, err)
	}
	if s.MarkedCount() != 0 {
		t.Errorf("MarkedCount() = %d, want 0", s.MarkedCount())
	}

	if _, err := s.ToggleMark(uuid.New()); err != ErrUnknownQuestion {
		t.Errorf("ToggleMark(unknown) = %v, want ErrUnknownQuestion", err)
	}
}

func TestAnsweredInAndSnapshot(t *testing.T) {
	qs := ids(4)
	s := NewAnswerStore(qs)
	s.SetAnswer(qs[0], model.Text("a"), 0)
	s.SetAnswer(qs[1], model.List([]string{"x", "y"}), 0)
	s.SetAnswer(qs[2], model.Text("   "), 0) // blank stays unanswered

	if got := s.AnsweredIn(qs[:3]); got != 2 {
		t.Errorf("AnsweredIn = %d, want 2", got)
	}

	snap := s.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("snapshot size = %d", len(snap))
	}
	// Mutating the store after the snapshot must not leak into it.
	s.SetAnswer(qs[3], model.Text("late"), 0)
	late := snap[qs[3]]
	if late.Answered() {
		t.Error("snapshot must be a copy")
	}
}

func TestAddTimeAccumulates(t *testing.T) {
	qs := ids(2)
	s := NewAnswerStore(qs)

	if err := s.AddTime(qs[0], 10); err != nil {
		t.Fatalf("AddTime: %v", err)
	}
	if err := s.AddTime(qs[0], 5); err != nil {
		t.Fatalf("AddTime: %v", err)
	}
	rec, _ := s.Record(qs[0])
	if rec.TimeSpentSeconds != 15 {
		t.Errorf("TimeSpentSeconds = %d, want 15", rec.TimeSpentSeconds)
	}
	if rec.Answered() {
		t.Error("AddTime must not mark the question answered")
	}

	if err := s.AddTime(uuid.New(), 3); err != ErrUnknownQuestion {
		t.Errorf("err = %v, want ErrUnknownQuestion", err)
	}
}
