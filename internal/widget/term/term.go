// Package term models glossary terms and their definition tooltips. At most
// one tooltip is open on a page at any time.
package term

import (
	"github.com/diplodoc-platform/testpack/internal/errs"
	"github.com/diplodoc-platform/testpack/internal/widget"
)

// Term is one inline reference. Several references to the same key share a
// tooltip.
type Term struct {
	ID         string
	Key        string
	TooltipID  string
	Title      string
	Definition string
}

// Registry holds the terms of a page and the open tooltip, if any.
type Registry struct {
	terms    map[string]*Term
	order    []string
	tooltips map[string]bool

	open   string
	anchor string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{terms: make(map[string]*Term), tooltips: make(map[string]bool)}
}

// Add registers a term reference.
func (r *Registry) Add(t Term) error {
	if t.ID == "" || t.TooltipID == "" {
		return errs.New(errs.InvalidArgument, "term needs an id and a tooltip id")
	}
	if _, dup := r.terms[t.ID]; dup {
		return errs.New(errs.InvalidArgument, "duplicate term "+t.ID)
	}
	tc := t
	r.terms[t.ID] = &tc
	r.order = append(r.order, t.ID)
	r.tooltips[t.TooltipID] = true
	return nil
}

// Term returns the term with id.
func (r *Registry) Term(id string) (Term, bool) {
	t, ok := r.terms[id]
	if !ok {
		return Term{}, false
	}
	return *t, true
}

// IDs returns term ids in document order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Has reports whether id names a term.
func (r *Registry) Has(id string) bool {
	_, ok := r.terms[id]
	return ok
}

// Open shows the tooltip of term id and hides any other.
func (r *Registry) Open(id string) error {
	t, ok := r.terms[id]
	if !ok {
		return errs.New(errs.TargetNotFound, "no term "+id)
	}
	r.open = t.TooltipID
	r.anchor = t.ID
	return nil
}

// Close hides the open tooltip.
func (r *Registry) Close() {
	r.open = ""
	r.anchor = ""
}

// Toggle handles a click on term id: it closes the tooltip when that term
// opened it, and opens it otherwise.
func (r *Registry) Toggle(id string) error {
	if _, ok := r.terms[id]; !ok {
		return errs.New(errs.TargetNotFound, "no term "+id)
	}
	if r.anchor == id {
		r.Close()
		return nil
	}
	return r.Open(id)
}

// Key handles a key pressed while term id has focus.
func (r *Registry) Key(id, key string) ([]widget.Effect, error) {
	if _, ok := r.terms[id]; !ok {
		return nil, errs.New(errs.TargetNotFound, "no term "+id)
	}
	switch {
	case widget.IsActivation(key):
		return nil, r.Toggle(id)
	case key == widget.KeyEscape:
		return r.Escape(), nil
	}
	return nil, nil
}

// Escape closes the open tooltip and returns focus to its term.
func (r *Registry) Escape() []widget.Effect {
	if r.open == "" {
		return nil
	}
	anchor := r.anchor
	r.Close()
	return []widget.Effect{{Kind: widget.Focus, Target: anchor}}
}

// ClickOutside handles a click that hit neither a term nor the open tooltip.
func (r *Registry) ClickOutside() { r.Close() }

// OpenID returns the open tooltip id, or "".
func (r *Registry) OpenID() string { return r.open }

// Anchor returns the term the open tooltip is attached to, or "".
func (r *Registry) Anchor() string { return r.anchor }

// IsOpen reports whether tooltipID is shown.
func (r *Registry) IsOpen(tooltipID string) bool {
	return tooltipID != "" && r.open == tooltipID
}

// IsTooltip reports whether id names a tooltip on the page.
func (r *Registry) IsTooltip(id string) bool { return r.tooltips[id] }
