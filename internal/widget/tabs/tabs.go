// Package tabs models tab groups: several variants of one-of-n panel
// switching, with selection shared across every group carrying the same key
// and persisted in the page URL.
package tabs

import (
	"net/url"
	"strings"

	"github.com/diplodoc-platform/testpack/internal/errs"
)

// QueryParam is the URL query parameter carrying selections.
const QueryParam = "tabs"

// Variant is the presentation of a group.
type Variant string

const (
	Regular   Variant = "regular"
	Radio     Variant = "radio"
	Dropdown  Variant = "dropdown"
	Accordion Variant = "accordion"
)

// ParseVariant maps a markup attribute to a variant. Unknown and empty values
// are Regular.
func ParseVariant(s string) Variant {
	switch Variant(strings.ToLower(strings.TrimSpace(s))) {
	case Radio:
		return Radio
	case Dropdown:
		return Dropdown
	case Accordion:
		return Accordion
	default:
		return Regular
	}
}

// Tab is one title/panel pair.
type Tab struct {
	Label string
	Slug  string
	ID    string
}

// Group is one tab group instance on a page.
type Group struct {
	ID      string
	Key     string
	Variant Variant
	Tabs    []Tab

	active int
	filled bool
}

// NewGroup validates and returns a group. active is the markup default; -1
// means none, which only radio groups allow.
func NewGroup(id, key string, variant Variant, tabs []Tab, active int) (*Group, error) {
	if id == "" {
		return nil, errs.New(errs.InvalidArgument, "tab group id is required")
	}
	if len(tabs) == 0 {
		return nil, errs.New(errs.InvalidArgument, "tab group "+id+" has no tabs")
	}
	seen := make(map[string]bool, len(tabs))
	for _, tab := range tabs {
		if tab.Slug == "" {
			return nil, errs.New(errs.InvalidArgument, "tab group "+id+" has a tab without slug")
		}
		if seen[tab.Slug] {
			return nil, errs.New(errs.InvalidArgument, "tab group "+id+" repeats slug "+tab.Slug)
		}
		seen[tab.Slug] = true
	}
	if active < -1 || active >= len(tabs) {
		return nil, errs.New(errs.InvalidArgument, "tab group "+id+" default out of range")
	}
	if active == -1 && variant != Radio {
		active = 0
	}
	return &Group{ID: id, Key: key, Variant: variant, Tabs: tabs, active: active}, nil
}

// Active returns the active index, or -1.
func (g *Group) Active() int { return g.active }

// ActiveSlug returns the active tab's slug, or "".
func (g *Group) ActiveSlug() string {
	if g.active < 0 {
		return ""
	}
	return g.Tabs[g.active].Slug
}

// Filled reports whether a dropdown has had a selection made.
func (g *Group) Filled() bool { return g.filled }

// Label is the text a dropdown select shows: the active tab's label, or ""
// before any selection.
func (g *Group) Label() string {
	if g.Variant == Dropdown && !g.filled {
		return ""
	}
	if g.active < 0 {
		return ""
	}
	return g.Tabs[g.active].Label
}

// PanelVisible reports whether panel i is displayed.
func (g *Group) PanelVisible(i int) bool { return i == g.active }

func (g *Group) indexOf(slug string) int {
	for i, tab := range g.Tabs {
		if tab.Slug == slug {
			return i
		}
	}
	return -1
}

// Registry holds every group on a page and the ordered keys that have a
// selection to publish.
type Registry struct {
	groups []*Group
	byID   map[string]*Group
	order  []string
	// clicked holds keys changed by a click; only those are rewritten in the URL.
	clicked map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Group), clicked: make(map[string]bool)}
}

// Add registers a group in document order.
func (r *Registry) Add(g *Group) error {
	if _, dup := r.byID[g.ID]; dup {
		return errs.New(errs.InvalidArgument, "duplicate tab group "+g.ID)
	}
	r.groups = append(r.groups, g)
	r.byID[g.ID] = g
	return nil
}

// Group returns the group with id.
func (r *Registry) Group(id string) (*Group, bool) {
	g, ok := r.byID[id]
	return g, ok
}

// Groups returns groups in document order.
func (r *Registry) Groups() []*Group {
	out := make([]*Group, len(r.groups))
	copy(out, r.groups)
	return out
}

// Activate handles a click on tab index of the given group.
func (r *Registry) Activate(instance string, index int) error {
	g, ok := r.byID[instance]
	if !ok {
		return errs.New(errs.TargetNotFound, "no tab group "+instance)
	}
	if index < 0 || index >= len(g.Tabs) {
		return errs.New(errs.TargetNotFound, "tab index out of range in "+instance)
	}
	if g.Variant == Dropdown {
		g.filled = true
	}

	if g.active == index {
		if g.Variant != Radio {
			return nil
		}
		g.active = -1
		if g.Key != "" {
			for _, other := range r.groups {
				if other.Key == g.Key && other.Variant == Radio {
					other.active = -1
				}
			}
			r.forget(g.Key)
			r.clicked[g.Key] = true
		}
		return nil
	}

	g.active = index
	if g.Key == "" {
		return nil
	}
	r.clicked[g.Key] = true
	r.mirror(g.Key, g.Tabs[index].Slug, g)
	r.remember(g.Key)
	return nil
}

// mirror activates slug on every group sharing key that has such a tab.
func (r *Registry) mirror(key, slug string, except *Group) {
	for _, other := range r.groups {
		if other == except || other.Key != key {
			continue
		}
		if i := other.indexOf(slug); i >= 0 {
			other.active = i
			if other.Variant == Dropdown {
				other.filled = true
			}
		}
	}
}

func (r *Registry) remember(key string) {
	for _, k := range r.order {
		if k == key {
			return
		}
	}
	r.order = append(r.order, key)
}

func (r *Registry) forget(key string) {
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// keySlug returns the selected slug for key from the first group with key
// and an active tab.
func (r *Registry) keySlug(key string) string {
	for _, g := range r.groups {
		if g.Key == key && g.active >= 0 {
			return g.ActiveSlug()
		}
	}
	return ""
}

// Selected returns "<key>_<slug>" for each key with a selection, in the
// order keys were first selected.
func (r *Registry) Selected() []string {
	out := make([]string, 0, len(r.order))
	for _, key := range r.order {
		if slug := r.keySlug(key); slug != "" {
			out = append(out, key+"_"+slug)
		}
	}
	return out
}

// MatchKey splits a query value into a group key present on the page and a
// slug, preferring the longest matching key.
func (r *Registry) MatchKey(value string) (key, slug string, ok bool) {
	for _, g := range r.groups {
		if g.Key == "" || !strings.HasPrefix(value, g.Key+"_") {
			continue
		}
		if len(g.Key) > len(key) {
			key = g.Key
		}
	}
	if key == "" {
		return "", "", false
	}
	slug = value[len(key)+1:]
	return key, slug, slug != ""
}

// ApplyQuery activates the selections found in q. Values naming an unknown
// key or slug are ignored.
func (r *Registry) ApplyQuery(q url.Values) {
	for _, value := range q[QueryParam] {
		key, slug, ok := r.MatchKey(value)
		if !ok {
			continue
		}
		applied := false
		for _, g := range r.groups {
			if g.Key != key {
				continue
			}
			if i := g.indexOf(slug); i >= 0 {
				g.active = i
				if g.Variant == Dropdown {
					g.filled = true
				}
				applied = true
			}
		}
		if applied {
			r.remember(key)
		}
	}
}

// Query returns base with the tabs parameter rewritten to the current
// selections. Only keys changed by a click are rewritten: the first value of
// such a key is replaced in place (or dropped when the selection was cleared),
// a newly selected key is appended, and every other value is kept verbatim.
func (r *Registry) Query(base url.Values) url.Values {
	out := make(url.Values, len(base)+1)
	for k, vs := range base {
		if k == QueryParam {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}

	emitted := make(map[string]bool)
	var values []string
	for _, value := range base[QueryParam] {
		key, _, _ := r.MatchKey(value)
		if key == "" || !r.clicked[key] {
			values = append(values, value)
			continue
		}
		if emitted[key] {
			continue
		}
		emitted[key] = true
		if slug := r.keySlug(key); slug != "" && r.known(key) {
			values = append(values, key+"_"+slug)
		}
	}
	for _, key := range r.order {
		if emitted[key] || !r.clicked[key] {
			continue
		}
		if slug := r.keySlug(key); slug != "" {
			values = append(values, key+"_"+slug)
		}
	}
	if len(values) > 0 {
		out[QueryParam] = values
	}
	return out
}

func (r *Registry) known(key string) bool {
	for _, k := range r.order {
		if k == key {
			return true
		}
	}
	return false
}
