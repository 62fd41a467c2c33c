package evaluator

import (
	"strings"
	"testing"

	"github.com/ieltsprep/ielts-backend/internal/model"
)

func TestWordCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"two  words", 2},
		{"line\nbreaks\tand tabs", 4},
	}
	for _, c := range cases {
		if got := WordCount(c.in); got != c.want {
			t.Errorf("WordCount(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func essayQuestion(prompt string) *model.Question {
	return &model.Question{
		Content: model.QuestionContent{Kind: model.KindEssay, Prompt: prompt},
	}
}

func TestIsEvaluatable(t *testing.T) {
	cases := []struct {
		name    string
		prompt  string
		section int
		want    bool
	}{
		{
			name:    "task 2 opinion essay",
			prompt:  "Some people believe cars should be banned from city centres. To what extent do you agree or disagree?",
			section: 2,
			want:    true,
		},
		{
			name:    "wrong section",
			prompt:  "To what extent do you agree or disagree?",
			section: 1,
			want:    false,
		},
		{
			name:    "task 1 chart prompt",
			prompt:  "The bar chart below shows car ownership. Summarise and give your opinion on the information.",
			section: 2,
			want:    false,
		},
		{
			name:    "no task 2 framing",
			prompt:  "Describe your home town.",
			section: 2,
			want:    false,
		},
		{
			name:    "empty prompt",
			prompt:  "",
			section: 2,
			want:    false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsEvaluatable(essayQuestion(c.prompt), c.section); got != c.want {
				t.Errorf("IsEvaluatable = %v, want %v", got, c.want)
			}
		})
	}
}

func TestWritingTips(t *testing.T) {
	if tips := WritingTips(120, true); !strings.Contains(tips[0], "at least 250") {
		t.Errorf("short task 2 essay tip = %q", tips[0])
	}
	if tips := WritingTips(120, false); !strings.Contains(tips[0], "at least 150") {
		t.Errorf("short task 1 essay tip = %q", tips[0])
	}
	if tips := WritingTips(280, true); !strings.Contains(tips[0], "320") {
		t.Errorf("mid-length tip = %q", tips[0])
	}
	if tips := WritingTips(400, true); tips[0] != "Good essay length." {
		t.Errorf("long essay tip = %q", tips[0])
	}
}
