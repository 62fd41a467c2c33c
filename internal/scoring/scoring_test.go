package scoring

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ieltsprep/ielts-backend/internal/model"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  The Answer  ", "answer"},
		{"an apple", "apple"},
		{"TRUE", "true"},
		{"co-operation", "cooperation"},
		{"two   words", "two words"},
		{"don't", "dont"},
		{"a", ""},
		{"", ""},
		{"theatre", "theatre"}, // article stripping is word-bounded
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestBandForPercentage(t *testing.T) {
	cases := []struct {
		pct  float64
		want float64
	}{
		{100, 9.0},
		{90, 9.0},
		{89.9, 8.0},
		{85, 8.0}, // no half bands between decades
		{70, 7.0},
		{52, 5.0},
		{20, 2.0},
		{19, 1.0},
		{0, 1.0},
	}
	for _, c := range cases {
		if got := BandForPercentage(c.pct); got != c.want {
			t.Errorf("BandForPercentage(%v) = %v, want %v", c.pct, got, c.want)
		}
	}
}

func TestBandDescription(t *testing.T) {
	cases := []struct {
		band float64
		want string
	}{
		{9.0, "Expert User"},
		{8.5, "Expert User"},
		{8.0, "Very Good User"},
		{6.5, "Good User"},
		{5.5, "Competent User"},
		{4.5, "Modest User"},
		{3.5, "Limited User"},
		{2.5, "Extremely Limited User"},
		{1.0, "Intermittent User"},
	}
	for _, c := range cases {
		if got := BandDescription(c.band); got != c.want {
			t.Errorf("BandDescription(%v) = %q, want %q", c.band, got, c.want)
		}
	}
}

func question(kind model.QuestionKind, marks int, correct, alts string) *model.Question {
	id := uuid.New()
	return &model.Question{
		ID:      id,
		Marks:   marks,
		Content: model.QuestionContent{Kind: kind, Prompt: "q"},
		Answer: &model.AnswerKey{
			QuestionID:         id,
			CorrectAnswer:      correct,
			AlternativeAnswers: alts,
		},
	}
}

func TestScoreAnswer(t *testing.T) {
	cases := []struct {
		name     string
		q        *model.Question
		ans      model.AnswerValue
		correct  bool
		awarded  int
	}{
		{
			name:    "exact match",
			q:       question(model.KindShortAnswer, 1, "photosynthesis", ""),
			ans:     model.Text("photosynthesis"),
			correct: true,
			awarded: 1,
		},
		{
			name:    "case and article insensitive",
			q:       question(model.KindFillInBlank, 2, "the greenhouse effect", ""),
			ans:     model.Text("Greenhouse Effect"),
			correct: true,
			awarded: 2,
		},
		{
			name:    "alternative accepted",
			q:       question(model.KindShortAnswer, 1, "colour", "color, colours"),
			ans:     model.Text("color"),
			correct: true,
			awarded: 1,
		},
		{
			name:    "wrong answer",
			q:       question(model.KindTrueFalseNotGiven, 1, "true", ""),
			ans:     model.Text("false"),
			correct: false,
		},
		{
			name:    "empty scores nothing",
			q:       question(model.KindShortAnswer, 1, "tide", ""),
			ans:     model.Text("   "),
			correct: false,
		},
		{
			name:    "list element-wise in order",
			q:       question(model.KindMatching, 2, "iron, copper", ""),
			ans:     model.List([]string{"Iron", "copper"}),
			correct: true,
			awarded: 2,
		},
		{
			name:    "list order matters",
			q:       question(model.KindMatching, 2, "iron, copper", ""),
			ans:     model.List([]string{"copper", "iron"}),
			correct: false,
		},
		{
			name:    "list length mismatch",
			q:       question(model.KindMatching, 2, "iron, copper", ""),
			ans:     model.List([]string{"iron"}),
			correct: false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res := ScoreAnswer(c.q, c.ans)
			if res.Correct != c.correct {
				t.Errorf("Correct = %v, want %v", res.Correct, c.correct)
			}
			if res.MarksAwarded != c.awarded {
				t.Errorf("MarksAwarded = %d, want %d", res.MarksAwarded, c.awarded)
			}
		})
	}
}

func TestScoreAnswerEssay(t *testing.T) {
	q := question(model.KindEssay, 10, "", "")
	res := ScoreAnswer(q, model.Text("An essay of considerable length."))
	if !res.IsWriting {
		t.Fatal("expected IsWriting")
	}
	if res.Correct {
		t.Error("a pending essay must not report correct")
	}
	if res.MarksAwarded != 0 {
		t.Errorf("MarksAwarded = %d, want 0 before evaluation", res.MarksAwarded)
	}
	if res.Feedback != WritingPendingFeedback {
		t.Errorf("Feedback = %q", res.Feedback)
	}
}

func buildTest(qs ...model.Question) *model.Test {
	return &model.Test{
		ID:   uuid.New(),
		Name: "sample",
		Parts: []model.TestPart{{
			Number: 1,
			Sections: []model.Section{{
				Number:    1,
				Questions: qs,
			}},
		}},
	}
}

func TestSummarize(t *testing.T) {
	var qs []model.Question
	for i := 0; i < 10; i++ {
		qs = append(qs, *question(model.KindShortAnswer, 1, "yes", ""))
	}
	cat := NewCatalog(buildTest(qs...))

	answers := make(map[uuid.UUID]model.AnswerRecord)
	// 7 answered, 5 of them correct.
	for i := 0; i < 7; i++ {
		val := model.Text("yes")
		if i >= 5 {
			val = model.Text("no")
		}
		answers[qs[i].ID] = model.AnswerRecord{QuestionID: qs[i].ID, Value: val}
	}

	sum := cat.Summarize(answers)
	if sum.TotalQuestions != 10 {
		t.Errorf("TotalQuestions = %d, want 10", sum.TotalQuestions)
	}
	if sum.AnsweredQuestions != 7 {
		t.Errorf("AnsweredQuestions = %d, want 7", sum.AnsweredQuestions)
	}
	if sum.CorrectAnswers != 5 {
		t.Errorf("CorrectAnswers = %d, want 5", sum.CorrectAnswers)
	}
	if sum.MarksAwarded != 5 || sum.TotalMarks != 10 {
		t.Errorf("marks = %d/%d, want 5/10", sum.MarksAwarded, sum.TotalMarks)
	}
	if sum.Percentage != 50 {
		t.Errorf("Percentage = %v, want 50", sum.Percentage)
	}
	if sum.Band != 5.0 {
		t.Errorf("Band = %v, want 5.0", sum.Band)
	}
	if len(sum.Results) != 10 {
		t.Errorf("Results len = %d, want one per catalog question", len(sum.Results))
	}

	want := "Test completed with 7 out of 10 questions answered. Score: 5/10 (50%)"
	if got := sum.Feedback(); got != want {
		t.Errorf("Feedback() = %q, want %q", got, want)
	}
}

func TestSummarizeWithWriting(t *testing.T) {
	essay := question(model.KindEssay, 0, "", "")
	reading := question(model.KindShortAnswer, 1, "delta", "")
	cat := NewCatalog(buildTest(*reading, *essay))

	answers := map[uuid.UUID]model.AnswerRecord{
		reading.ID: {QuestionID: reading.ID, Value: model.Text("delta")},
		essay.ID:   {QuestionID: essay.ID, Value: model.Text("Some essay text.")},
	}
	sum := cat.Summarize(answers)
	if !sum.HasWriting {
		t.Error("expected HasWriting")
	}
	if sum.CorrectAnswers != 1 {
		t.Errorf("CorrectAnswers = %d, want 1 (essay excluded)", sum.CorrectAnswers)
	}
	if sum.MarksAwarded != 1 {
		t.Errorf("MarksAwarded = %d, want 1", sum.MarksAwarded)
	}
}
