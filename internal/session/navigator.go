package session

import (
	"context"

	"github.com/ieltsprep/ielts-backend/internal/audio"
	"github.com/ieltsprep/ielts-backend/internal/model"
)

// Navigator sequences through the ordered sections produced by flattening
// Part -> Section. For listening tests it resets the audio synchronizer
// whenever the active section changes. Owned by one Manager.
type Navigator struct {
	sections []model.FlatSection
	skill    model.Skill
	sync     *audio.Synchronizer
	current  int
}

// NewNavigator builds a navigator positioned at the first section.
func NewNavigator(sections []model.FlatSection, skill model.Skill, sync *audio.Synchronizer) *Navigator {
	return &Navigator{sections: sections, skill: skill, sync: sync}
}

// Count reports the number of sections.
func (n *Navigator) Count() int { return len(n.sections) }

// Current reports the active section index.
func (n *Navigator) Current() int { return n.current }

// Section returns the flattened section at index.
func (n *Navigator) Section(index int) (model.FlatSection, bool) {
	if index < 0 || index >= len(n.sections) {
		return model.FlatSection{}, false
	}
	return n.sections[index], true
}

// GoTo moves to the given section. Out-of-range indexes are a no-op and
// return false. For listening tests the audio synchronizer is reset to
// the new section's resource, restarting playback state from zero even
// when re-entering a section visited before.
func (n *Navigator) GoTo(ctx context.Context, index int) bool {
	if index < 0 || index >= len(n.sections) {
		return false
	}
	n.current = index
	if n.skill == model.SkillListening && n.sync != nil {
		n.sync.SetSource(ctx, n.sections[index].AudioPath)
	}
	return true
}

// Progress derives the completion state of one section from the answer
// store. Never cached.
func (n *Navigator) Progress(store *AnswerStore, index int) (model.SectionProgress, bool) {
	sec, ok := n.Section(index)
	if !ok {
		return model.SectionProgress{}, false
	}
	total := len(sec.QuestionIDs)
	answered := store.AnsweredIn(sec.QuestionIDs)
	state := model.SectionEmpty
	switch {
	case total > 0 && answered == total:
		state = model.SectionComplete
	case answered > 0:
		state = model.SectionPartial
	}
	return model.SectionProgress{
		SectionIndex:   index,
		AnsweredCount:  answered,
		TotalQuestions: total,
		State:          state,
	}, true
}

// ProgressAll derives progress for every section in order.
func (n *Navigator) ProgressAll(store *AnswerStore) []model.SectionProgress {
	out := make([]model.SectionProgress, 0, len(n.sections))
	for i := range n.sections {
		p, _ := n.Progress(store, i)
		out = append(out, p)
	}
	return out
}
