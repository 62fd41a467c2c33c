package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// AnswerValue holds a candidate's answer to one question: either a single
// scalar (radio choice, typed text, essay) or a list of scalars (multi-select,
// multi-blank). The zero value is the empty answer.
type AnswerValue struct {
	text   string
	list   []string
	isList bool
}

// Text builds a scalar answer value.
func Text(s string) AnswerValue {
	return AnswerValue{text: s}
}

// List builds a list answer value. The slice is copied.
func List(items []string) AnswerValue {
	cp := make([]string, len(items))
	copy(cp, items)
	return AnswerValue{list: cp, isList: true}
}

// IsList reports whether the value holds a list of scalars.
func (v AnswerValue) IsList() bool { return v.isList }

// IsEmpty reports whether the answer is effectively blank: an empty or
// whitespace-only string, or a list with no non-blank element.
func (v AnswerValue) IsEmpty() bool {
	if v.isList {
		for _, item := range v.list {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(v.text) == ""
}

// Items returns the list elements, or the scalar wrapped in a one-element
// slice when non-empty.
func (v AnswerValue) Items() []string {
	if v.isList {
		cp := make([]string, len(v.list))
		copy(cp, v.list)
		return cp
	}
	if v.text == "" {
		return nil
	}
	return []string{v.text}
}

// Joined flattens the value into a single string; list elements are joined
// with commas, which is the shape persisted in user_responses.answer_text.
func (v AnswerValue) Joined() string {
	if v.isList {
		return strings.Join(v.list, ",")
	}
	return v.text
}

// Equal reports whether two answer values are identical in shape and
// content. Used to make SetAnswer a no-op for unchanged values.
func (v AnswerValue) Equal(o AnswerValue) bool {
	if v.isList != o.isList {
		return false
	}
	if !v.isList {
		return v.text == o.text
	}
	if len(v.list) != len(o.list) {
		return false
	}
	for i := range v.list {
		if v.list[i] != o.list[i] {
			return false
		}
	}
	return true
}

// MarshalJSON encodes a scalar as a JSON string and a list as a JSON array,
// matching the wire shape the frontend submits.
func (v AnswerValue) MarshalJSON() ([]byte, error) {
	if v.isList {
		return json.Marshal(v.list)
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON accepts either a JSON string or a JSON array of strings.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = Text(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*v = List(list)
	return nil
}

// AnswerRecord is the mutable per-question answer state. Exactly one record
// exists per question known to the session: created empty at session init,
// updated in place, never removed, never duplicated.
type AnswerRecord struct {
	QuestionID       uuid.UUID   `json:"question_id"`
	Value            AnswerValue `json:"answer"`
	TimeSpentSeconds int         `json:"time_spent_seconds"`
	IsMarked         bool        `json:"is_marked"`
	Confidence       int         `json:"confidence,omitempty"` // 1..5, 0 = unset
}

// Answered reports whether the record carries a non-blank value.
func (r *AnswerRecord) Answered() bool {
	return !r.Value.IsEmpty()
}
