package session

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ieltsprep/ielts-backend/internal/model"
)

// HighlightStore keeps the candidate's passage highlights for one session.
// Highlights are deduplicated by exact text; adding the same text twice
// stores one highlight. Owned by one Manager, no locking of its own.
type HighlightStore struct {
	items []model.Highlight
}

// NewHighlightStore builds an empty store.
func NewHighlightStore() *HighlightStore {
	return &HighlightStore{}
}

// Add stores a highlight for the given text. Blank input and texts
// already stored are no-ops; the existing highlight is returned for a
// duplicate so the call stays idempotent.
func (h *HighlightStore) Add(text string) (model.Highlight, bool) {
	if strings.TrimSpace(text) == "" {
		return model.Highlight{}, false
	}
	for _, hl := range h.items {
		if hl.Text == text {
			return hl, true
		}
	}
	hl := model.Highlight{
		ID:        uuid.New(),
		Text:      text,
		CreatedAt: time.Now(),
	}
	h.items = append(h.items, hl)
	return hl, true
}

// Remove deletes a highlight by ID. Absent IDs are a no-op.
func (h *HighlightStore) Remove(id uuid.UUID) {
	for i, hl := range h.items {
		if hl.ID == id {
			h.items = append(h.items[:i], h.items[i+1:]...)
			return
		}
	}
}

// Clear drops every stored highlight.
func (h *HighlightStore) Clear() {
	h.items = nil
}

// List copies the stored highlights in insertion order.
func (h *HighlightStore) List() []model.Highlight {
	out := make([]model.Highlight, len(h.items))
	copy(out, h.items)
	return out
}

// Len reports the number of stored highlights.
func (h *HighlightStore) Len() int { return len(h.items) }

// Segment is one run of passage text, highlighted or plain.
type Segment struct {
	Text        string    `json:"text"`
	Highlighted bool      `json:"highlighted"`
	HighlightID uuid.UUID `json:"highlight_id,omitempty"`
}

// span is a claimed match range within the source text.
type span struct {
	start, end int
	id         uuid.UUID
}

// Render splits sourceText into plain and highlighted segments. Matching
// is case-sensitive; each highlight claims its first occurrence that does
// not overlap a span claimed by an earlier highlight, in insertion order.
// The source text is never mutated.
func (h *HighlightStore) Render(sourceText string) []Segment {
	var claimed []span
	for _, hl := range h.items {
		if hl.Text == "" {
			continue
		}
		from := 0
		for from <= len(sourceText)-len(hl.Text) {
			i := strings.Index(sourceText[from:], hl.Text)
			if i < 0 {
				break
			}
			start := from + i
			end := start + len(hl.Text)
			if !overlaps(claimed, start, end) {
				claimed = append(claimed, span{start: start, end: end, id: hl.ID})
				break
			}
			from = start + 1
		}
	}

	sort.Slice(claimed, func(i, j int) bool { return claimed[i].start < claimed[j].start })

	var out []Segment
	pos := 0
	for _, sp := range claimed {
		if sp.start > pos {
			out = append(out, Segment{Text: sourceText[pos:sp.start]})
		}
		out = append(out, Segment{
			Text:        sourceText[sp.start:sp.end],
			Highlighted: true,
			HighlightID: sp.id,
		})
		pos = sp.end
	}
	if pos < len(sourceText) {
		out = append(out, Segment{Text: sourceText[pos:]})
	}
	return out
}

func overlaps(spans []span, start, end int) bool {
	for _, sp := range spans {
		if start < sp.end && end > sp.start {
			return true
		}
	}
	return false
}
