package session

import (
	"strings"
	"testing"
)

func TestHighlightAddIdempotent(t *testing.T) {
	h := NewHighlightStore()

	first, ok := h.Add("coral reef")
	if !ok {
		t.Fatal("add rejected valid text")
	}
	second, ok := h.Add("coral reef")
	if !ok {
		t.Fatal("duplicate add must succeed as a no-op")
	}
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after duplicate add", h.Len())
	}
	if first.ID != second.ID {
		t.Error("duplicate add must return the existing highlight")
	}

	if _, ok := h.Add("   "); ok {
		t.Error("blank text must be rejected")
	}
	if h.Len() != 1 {
		t.Errorf("Len() = %d after blank add", h.Len())
	}
}

func TestHighlightRemove(t *testing.T) {
	h := NewHighlightStore()
	hl, _ := h.Add("tide")
	h.Add("moon")

	h.Remove(hl.ID)
	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	h.Remove(hl.ID) // absent id is a no-op
	if h.Len() != 1 {
		t.Errorf("Len() = %d after redundant remove", h.Len())
	}
}

func TestRenderSegments(t *testing.T) {
	h := NewHighlightStore()
	h.Add("quick")
	h.Add("lazy dog")

	src := "the quick brown fox jumps over the lazy dog"
	segs := h.Render(src)

	var rebuilt strings.Builder
	highlighted := 0
	for _, seg := range segs {
		rebuilt.WriteString(seg.Text)
		if seg.Highlighted {
			highlighted++
		}
	}
	if rebuilt.String() != src {
		t.Errorf("segments do not reassemble the source: %q", rebuilt.String())
	}
	if highlighted != 2 {
		t.Errorf("highlighted segments = %d, want 2", highlighted)
	}
}

func TestRenderCaseSensitive(t *testing.T) {
	h := NewHighlightStore()
	h.Add("Quick")

	segs := h.Render("the quick brown fox")
	for _, seg := range segs {
		if seg.Highlighted {
			t.Fatal("matching must be case-sensitive")
		}
	}
}

func TestRenderNonOverlapping(t *testing.T) {
	h := NewHighlightStore()
	h.Add("abcd")
	h.Add("cdef") // overlaps the first claim, must match nothing here

	segs := h.Render("abcdef")
	var texts []string
	for _, seg := range segs {
		if seg.Highlighted {
			texts = append(texts, seg.Text)
		}
	}
	if len(texts) != 1 || texts[0] != "abcd" {
		t.Errorf("highlighted = %v, want only the first claim", texts)
	}
}

func TestRenderFirstMatchWins(t *testing.T) {
	h := NewHighlightStore()
	h.Add("ab")

	segs := h.Render("ab xx ab")
	count := 0
	for i, seg := range segs {
		if seg.Highlighted {
			count++
			if i != 0 {
				t.Errorf("highlight claimed occurrence at segment %d, want the first", i)
			}
		}
	}
	if count != 1 {
		t.Errorf("highlighted count = %d, want 1", count)
	}
}

func TestHighlightClear(t *testing.T) {
	h := NewHighlightStore()
	h.Add("one")
	h.Add("two")

	h.Clear()
	if h.Len() != 0 {
		t.Fatalf("Len = %d after Clear, want 0", h.Len())
	}
	if segs := h.Render("one two"); len(segs) != 1 || segs[0].Highlighted {
		t.Errorf("Render after Clear = %+v, want one plain segment", segs)
	}
}
