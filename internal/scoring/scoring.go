package scoring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/ieltsprep/ielts-backend/internal/model"
)

// WritingPendingFeedback is attached to essay responses that are graded
// later by the evaluation worker.
const WritingPendingFeedback = "Writing submitted - pending AI evaluation"

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	articleRe    = regexp.MustCompile(`\b(a|an|the)\b`)
)

// Normalize canonicalizes an answer string for comparison: lowercase,
// punctuation stripped, leading articles removed, whitespace collapsed.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nonWordRe.ReplaceAllString(s, "")
	s = articleRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Result is the outcome of scoring a single question.
type Result struct {
	QuestionID    uuid.UUID
	Correct       bool
	MarksAwarded  int
	MarksPossible int
	CorrectAnswer string
	Explanation   string
	Feedback      string
	IsWriting     bool
}

// Summary aggregates per-question results for a whole session.
type Summary struct {
	TotalQuestions    int
	AnsweredQuestions int
	CorrectAnswers    int
	MarksAwarded      int
	TotalMarks        int
	Percentage        float64
	Band              float64
	Results           []Result
	HasWriting        bool
}

// Feedback renders the completion feedback line for a summary.
func (s Summary) Feedback() string {
	return fmt.Sprintf("Test completed with %d out of %d questions answered. Score: %d/%d (%.0f%%)",
		s.AnsweredQuestions, s.TotalQuestions, s.MarksAwarded, s.TotalMarks, s.Percentage)
}

// Catalog holds the scorable question set of one test, in paper order.
type Catalog struct {
	questions []model.Question
	byID      map[uuid.UUID]int
}

// NewCatalog builds a catalog from a test definition.
func NewCatalog(t *model.Test) *Catalog {
	qs := t.Questions()
	byID := make(map[uuid.UUID]int, len(qs))
	for i, q := range qs {
		byID[q.ID] = i
	}
	return &Catalog{questions: qs, byID: byID}
}

// Len reports the number of questions in the catalog.
func (c *Catalog) Len() int { return len(c.questions) }

// TotalMarks sums the marks of every question in the catalog.
func (c *Catalog) TotalMarks() int {
	total := 0
	for _, q := range c.questions {
		total += q.Marks
	}
	return total
}

// Question looks up a question by ID.
func (c *Catalog) Question(id uuid.UUID) (*model.Question, bool) {
	i, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &c.questions[i], true
}

// ScoreAnswer scores a single answer against its question. An absent or
// empty answer scores zero. Essay questions always score zero marks here
// and are flagged for deferred evaluation.
func ScoreAnswer(q *model.Question, ans model.AnswerValue) Result {
	res := Result{
		QuestionID:    q.ID,
		MarksPossible: q.Marks,
	}
	if q.Answer != nil {
		res.CorrectAnswer = q.Answer.CorrectAnswer
		res.Explanation = q.Answer.Explanation
	}

	// Essays carry no local correctness: 0 marks and a pending flag
	// until the evaluation worker lands a band score.
	if q.Content.IsEssay() {
		res.IsWriting = true
		res.Feedback = WritingPendingFeedback
		return res
	}

	if ans.IsEmpty() || q.Answer == nil {
		return res
	}

	if matches(ans, q.Answer) {
		res.Correct = true
		res.MarksAwarded = q.Marks
	}
	return res
}

// Summarize scores every answered question and aggregates over the full
// catalog, so totals reflect the paper rather than the answered subset.
func (c *Catalog) Summarize(answers map[uuid.UUID]model.AnswerRecord) Summary {
	sum := Summary{
		TotalQuestions: len(c.questions),
		TotalMarks:     c.TotalMarks(),
		Results:        make([]Result, 0, len(c.questions)),
	}
	for i := range c.questions {
		q := &c.questions[i]
		rec, ok := answers[q.ID]
		var val model.AnswerValue
		if ok {
			val = rec.Value
		}
		res := ScoreAnswer(q, val)
		if ok && !val.IsEmpty() {
			sum.AnsweredQuestions++
		}
		if res.IsWriting {
			sum.HasWriting = true
		} else if res.Correct {
			sum.CorrectAnswers++
			sum.MarksAwarded += res.MarksAwarded
		}
		sum.Results = append(sum.Results, res)
	}
	if sum.TotalMarks > 0 {
		sum.Percentage = float64(sum.MarksAwarded) / float64(sum.TotalMarks) * 100
	}
	sum.Band = BandForPercentage(sum.Percentage)
	return sum
}

// matches compares a candidate answer against the key. List answers
// compare element-wise in order; scalar answers compare normalized text
// against the correct answer and any comma-separated alternatives.
func matches(ans model.AnswerValue, key *model.AnswerKey) bool {
	if items := ans.Items(); len(items) > 1 {
		return matchesList(items, key)
	}
	got := Normalize(ans.Joined())
	if got == "" {
		return false
	}
	for _, want := range acceptedAnswers(key) {
		if got == want {
			return true
		}
	}
	return false
}

// matchesList checks a multi-part answer element-wise against the key,
// which holds its parts comma-separated in the same order.
func matchesList(items []string, key *model.AnswerKey) bool {
	want := splitNormalized(key.CorrectAnswer)
	if len(want) != len(items) {
		return false
	}
	for i, item := range items {
		if Normalize(item) != want[i] {
			return false
		}
	}
	return true
}

func acceptedAnswers(key *model.AnswerKey) []string {
	out := make([]string, 0, 2)
	if n := Normalize(key.CorrectAnswer); n != "" {
		out = append(out, n)
	}
	for _, part := range strings.Split(key.AlternativeAnswers, ",") {
		if n := Normalize(part); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func splitNormalized(s string) []string {
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		out = append(out, Normalize(p))
	}
	return out
}
