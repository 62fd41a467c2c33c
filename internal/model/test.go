package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Skill is the test category that determines the scoring policy and the
// page layout a candidate sees.
type Skill string

const (
	SkillReading   Skill = "Reading"
	SkillListening Skill = "Listening"
	SkillWriting   Skill = "Writing"
	SkillSpeaking  Skill = "Speaking"
)

// ParseSkill normalizes a free-form skill name into a Skill.
// Unknown names default to Reading, matching the page fallback.
func ParseSkill(name string) Skill {
	switch {
	case strings.EqualFold(name, string(SkillListening)):
		return SkillListening
	case strings.EqualFold(name, string(SkillWriting)):
		return SkillWriting
	case strings.EqualFold(name, string(SkillSpeaking)):
		return SkillSpeaking
	default:
		return SkillReading
	}
}

// TestType describes a test category (Reading, Listening, ...) with its
// time limit and total marks.
type TestType struct {
	ID               uuid.UUID `json:"test_type_id"`
	Name             Skill     `json:"name"`
	Description      string    `json:"description,omitempty"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	TotalMarks       int       `json:"total_marks"`
	Instructions     string    `json:"instructions,omitempty"`
}

// Test is the full definition of one test: ordered parts, each holding
// ordered sections, each holding ordered questions. Supplied once at
// session start and immutable for the session's lifetime.
type Test struct {
	ID         uuid.UUID  `json:"test_id"`
	Name       string     `json:"test_name"`
	TestTypeID uuid.UUID  `json:"test_type_id"`
	IsActive   bool       `json:"is_active"`
	AudioPath  string     `json:"audio_path,omitempty"` // listening tests only
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Parts      []TestPart `json:"test_parts"`
}

// TestPart is one part of a test, e.g. a reading passage with its sections.
type TestPart struct {
	ID          uuid.UUID `json:"part_id"`
	Number      int       `json:"part_number"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Content     string    `json:"content"` // passage text for reading parts
	ImagePath   string    `json:"image_path,omitempty"`
	Sections    []Section `json:"sections"`
}

// Section groups questions that share instructions and, for listening
// tests, an audio resource.
type Section struct {
	ID           uuid.UUID  `json:"section_id"`
	Number       int        `json:"section_number"`
	Instructions string     `json:"instructions,omitempty"`
	ImagePath    string     `json:"image_path,omitempty"`
	AudioPath    string     `json:"audio_path,omitempty"` // overrides Test.AudioPath when set
	Questions    []Question `json:"questions"`
}

// Question is a single exam question. Immutable for the session lifetime.
type Question struct {
	ID        uuid.UUID       `json:"question_id"`
	SectionID uuid.UUID       `json:"section_id"`
	Number    int             `json:"question_number"`
	Marks     int             `json:"marks"`
	Content   QuestionContent `json:"content"`
	Answer    *AnswerKey      `json:"answer,omitempty"` // nil in candidate-facing payloads
}

// AnswerKey holds the correct answer and accepted variants for one question.
// AlternativeAnswers is a comma-separated list of additionally accepted
// answers.
type AnswerKey struct {
	QuestionID         uuid.UUID `json:"question_id"`
	CorrectAnswer      string    `json:"correct_answer"`
	AlternativeAnswers string    `json:"alternative_answers,omitempty"`
	Explanation        string    `json:"explanation,omitempty"`
}

// Questions returns every question of the test in part/section/question
// order.
func (t *Test) Questions() []Question {
	var out []Question
	for _, p := range t.Parts {
		for _, s := range p.Sections {
			out = append(out, s.Questions...)
		}
	}
	return out
}

// FindQuestion looks a question up by ID anywhere in the test structure.
func (t *Test) FindQuestion(id uuid.UUID) (*Question, bool) {
	for pi := range t.Parts {
		for si := range t.Parts[pi].Sections {
			qs := t.Parts[pi].Sections[si].Questions
			for qi := range qs {
				if qs[qi].ID == id {
					return &qs[qi], true
				}
			}
		}
	}
	return nil, false
}

// FlatSections flattens Part -> Section into the ordered list the section
// navigator walks. Each entry resolves its audio resource, falling back to
// the test-level audio path.
func (t *Test) FlatSections() []FlatSection {
	var out []FlatSection
	for pi := range t.Parts {
		part := &t.Parts[pi]
		for si := range part.Sections {
			sec := &part.Sections[si]
			audio := sec.AudioPath
			if audio == "" {
				audio = t.AudioPath
			}
			ids := make([]uuid.UUID, len(sec.Questions))
			for qi := range sec.Questions {
				ids[qi] = sec.Questions[qi].ID
			}
			out = append(out, FlatSection{
				SectionID:   sec.ID,
				PartNumber:  part.Number,
				Number:      sec.Number,
				AudioPath:   audio,
				QuestionIDs: ids,
			})
		}
	}
	return out
}

// FlatSection is one entry in the navigator's flattened section order.
type FlatSection struct {
	SectionID   uuid.UUID   `json:"section_id"`
	PartNumber  int         `json:"part_number"`
	Number      int         `json:"section_number"`
	AudioPath   string      `json:"audio_path,omitempty"`
	QuestionIDs []uuid.UUID `json:"question_ids"`
}
