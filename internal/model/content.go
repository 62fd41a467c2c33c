package model

import (
	"encoding/json"
	"strings"
)

// QuestionKind is the normalized question type used for rendering and
// scoring dispatch.
type QuestionKind string

const (
	KindMultipleChoice    QuestionKind = "multiple-choice"
	KindTrueFalseNotGiven QuestionKind = "true-false-not-given"
	KindFillInBlank       QuestionKind = "fill-in-blank"
	KindShortAnswer       QuestionKind = "short-answer"
	KindMatching          QuestionKind = "matching"
	KindEssay             QuestionKind = "essay"
	KindText              QuestionKind = "text"
)

// QuestionContent is the single tagged variant a question's content is
// normalized into at the storage boundary. The backend stores content as
// JSONB that arrives either as a structured object or as a JSON-encoded
// string; both shapes collapse into this struct exactly once, so nothing
// downstream re-parses it.
type QuestionContent struct {
	Kind        QuestionKind      `json:"type"`
	Prompt      string            `json:"question"`
	Instruction string            `json:"instruction,omitempty"`
	Options     map[string]string `json:"options,omitempty"`
}

// rawContent mirrors the loose wire shape of question content.
type rawContent struct {
	Type        string            `json:"type"`
	Question    string            `json:"question"`
	Text        string            `json:"text"`
	Instruction string            `json:"instruction"`
	Options     map[string]string `json:"options"`
}

// ParseContent normalizes raw JSONB content into a QuestionContent.
// Accepted shapes, in order of preference:
//   - a JSON object {type, question, instruction, options}
//   - a JSON string containing such an object, double-encoded
//   - a JSON string of plain prompt text
//   - anything else, kept verbatim as a text prompt
func ParseContent(raw json.RawMessage) QuestionContent {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return QuestionContent{Kind: KindText}
	}

	var rc rawContent
	if err := json.Unmarshal(raw, &rc); err == nil && (rc.Question != "" || rc.Text != "" || rc.Type != "" || len(rc.Options) > 0) {
		return fromRaw(rc)
	}

	// Content may be a JSON string: either plain text or an embedded
	// JSON object that was encoded twice on the way in.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if err := json.Unmarshal([]byte(s), &rc); err == nil && (rc.Question != "" || rc.Text != "" || rc.Type != "" || len(rc.Options) > 0) {
			return fromRaw(rc)
		}
		return QuestionContent{Kind: sniffKind(s), Prompt: s}
	}

	return QuestionContent{Kind: KindText, Prompt: trimmed}
}

func fromRaw(rc rawContent) QuestionContent {
	prompt := rc.Question
	if prompt == "" {
		prompt = rc.Text
	}
	kind := parseKind(rc.Type)
	if kind == KindText {
		if len(rc.Options) > 0 {
			kind = KindMultipleChoice
		} else if sniffed := sniffKind(prompt); sniffed != KindText {
			kind = sniffed
		}
	}
	return QuestionContent{
		Kind:        kind,
		Prompt:      prompt,
		Instruction: rc.Instruction,
		Options:     rc.Options,
	}
}

// parseKind maps the assorted type spellings found in stored content
// ("multiple_choice", "multiple-choice", "essay", ...) onto QuestionKind.
func parseKind(s string) QuestionKind {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", "-"))) {
	case "multiple-choice", "multiplechoice", "choice", "mcq":
		return KindMultipleChoice
	case "true-false-not-given", "true-false", "tfng":
		return KindTrueFalseNotGiven
	case "fill-in-blank", "fill-in-the-blank", "gap-fill", "blank":
		return KindFillInBlank
	case "short-answer", "short":
		return KindShortAnswer
	case "matching", "match":
		return KindMatching
	case "essay", "writing":
		return KindEssay
	default:
		return KindText
	}
}

// sniffKind guesses a kind from prompt text when no explicit type is
// present, mirroring the keyword sniffing the result pipeline has always
// used for legacy content rows.
func sniffKind(s string) QuestionKind {
	lower := strings.ToLower(s)
	switch {
	case strings.Contains(lower, "multiple") || strings.Contains(lower, "choice"):
		return KindMultipleChoice
	case strings.Contains(lower, "essay") || strings.Contains(lower, "writing"):
		return KindEssay
	case strings.Contains(lower, "fill") || strings.Contains(lower, "blank"):
		return KindFillInBlank
	default:
		return KindText
	}
}

// IsEssay reports whether the question defers scoring to the external
// writing evaluator.
func (c QuestionContent) IsEssay() bool {
	return c.Kind == KindEssay
}
