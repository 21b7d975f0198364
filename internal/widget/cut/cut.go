// Package cut models collapsible "cut" sections: a tree of independently
// expandable blocks that open themselves and their ancestors when the page
// fragment names them.
package cut

import (
	"time"

	"github.com/diplodoc-platform/testpack/internal/errs"
	"github.com/diplodoc-platform/testpack/internal/widget"
)

// HighlightDuration is how long a fragment target stays highlighted.
const HighlightDuration = time.Second

// Section is one collapsible block. ID is the id of its title control.
type Section struct {
	ID     string
	Title  string
	Parent string

	expanded       bool
	highlightUntil time.Time
}

// Expanded reports the section's own flag, regardless of its ancestors.
func (s *Section) Expanded() bool { return s.expanded }

// Tree holds every section on a page in document order.
type Tree struct {
	sections map[string]*Section
	order    []string
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{sections: make(map[string]*Section)}
}

// Add registers a section. Sections must be added parent first, in document
// order. parent is "" for top-level sections.
func (t *Tree) Add(id, title, parent string, expanded bool) error {
	if id == "" {
		return errs.New(errs.InvalidArgument, "cut id is required")
	}
	if _, dup := t.sections[id]; dup {
		return errs.New(errs.InvalidArgument, "duplicate cut id "+id)
	}
	if parent != "" {
		if _, ok := t.sections[parent]; !ok {
			return errs.New(errs.TargetNotFound, "unknown parent cut "+parent)
		}
	}
	t.sections[id] = &Section{ID: id, Title: title, Parent: parent, expanded: expanded}
	t.order = append(t.order, id)
	return nil
}

// Len returns the number of sections.
func (t *Tree) Len() int { return len(t.order) }

// IDs returns section ids in document order.
func (t *Tree) IDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Section returns the section with id.
func (t *Tree) Section(id string) (*Section, bool) {
	s, ok := t.sections[id]
	return s, ok
}

// Has reports whether id names a section.
func (t *Tree) Has(id string) bool {
	_, ok := t.sections[id]
	return ok
}

// Toggle flips one section. No other section changes, including its children.
func (t *Tree) Toggle(id string) error {
	s, ok := t.sections[id]
	if !ok {
		return errs.New(errs.TargetNotFound, "no cut "+id)
	}
	s.expanded = !s.expanded
	return nil
}

// Expanded reports a section's own flag.
func (t *Tree) Expanded(id string) bool {
	s, ok := t.sections[id]
	return ok && s.expanded
}

// Navigate handles a fragment. When it names a section, that section and all
// of its ancestors are expanded, the section is highlighted until
// now+HighlightDuration, and scroll and focus effects are returned for its
// title control. Any other fragment is a no-op.
func (t *Tree) Navigate(fragment string, now time.Time) []widget.Effect {
	s, ok := t.sections[fragment]
	if !ok {
		return nil
	}
	for cur := s; cur != nil; cur = t.sections[cur.Parent] {
		cur.expanded = true
	}
	s.highlightUntil = now.Add(HighlightDuration)
	return []widget.Effect{
		{Kind: widget.Scroll, Target: s.ID},
		{Kind: widget.Focus, Target: s.ID},
	}
}

// Highlighted reports whether id is highlighted at now.
func (t *Tree) Highlighted(id string, now time.Time) bool {
	s, ok := t.sections[id]
	return ok && now.Before(s.highlightUntil)
}

// Tick clears highlights that have expired at now.
func (t *Tree) Tick(now time.Time) {
	for _, s := range t.sections {
		if !s.highlightUntil.IsZero() && !now.Before(s.highlightUntil) {
			s.highlightUntil = time.Time{}
		}
	}
}

// TitleVisible reports whether the title control of id is rendered, which
// holds when every ancestor is expanded.
func (t *Tree) TitleVisible(id string) bool {
	s, ok := t.sections[id]
	if !ok {
		return false
	}
	for p := t.sections[s.Parent]; p != nil; p = t.sections[p.Parent] {
		if !p.expanded {
			return false
		}
	}
	return true
}

// Visible reports whether the content of id is rendered.
func (t *Tree) Visible(id string) bool {
	return t.Expanded(id) && t.TitleVisible(id)
}

// TabOrder returns the title controls reachable with Tab, in document order.
func (t *Tree) TabOrder() []string {
	out := make([]string, 0, len(t.order))
	for _, id := range t.order {
		if t.TitleVisible(id) {
			out = append(out, id)
		}
	}
	return out
}

// Next returns the title control after id in tab order, or "" at the end.
// With back set it moves backwards.
func (t *Tree) Next(id string, back bool) string {
	order := t.TabOrder()
	for i, cur := range order {
		if cur != id {
			continue
		}
		j := i + 1
		if back {
			j = i - 1
		}
		if j < 0 || j >= len(order) {
			return ""
		}
		return order[j]
	}
	return ""
}
