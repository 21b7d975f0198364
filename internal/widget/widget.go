// Package widget defines the typed events page widgets consume and the
// effects they ask the host (browser runtime or test driver) to perform.
package widget

import "time"

// Key names as reported by KeyboardEvent.key.
const (
	KeyEnter     = "Enter"
	KeySpace     = " "
	KeyEscape    = "Escape"
	KeyArrowDown = "ArrowDown"
	KeyArrowUp   = "ArrowUp"
	KeyTab       = "Tab"
)

// IsActivation reports whether key activates a focused control.
func IsActivation(key string) bool {
	return key == KeyEnter || key == KeySpace || key == "Space"
}

// Event is a user or environment input delivered to a page.
type Event interface {
	event()
}

// Click is a pointer click on the element with id Target. An empty Target is
// a click on the page background. Action names a control inside the target,
// such as a diagram zoom button.
type Click struct {
	Target string
	Action string
}

// KeyPress is a key pressed while Target has focus.
type KeyPress struct {
	Target string
	Key    string
}

// Input replaces the value of a text field.
type Input struct {
	Target string
	Value  string
}

// HashChange is a fragment navigation without a document reload.
type HashChange struct {
	Fragment string
	At       time.Time
}

// Tick advances timers to Now.
type Tick struct {
	Now time.Time
}

func (Click) event()      {}
func (KeyPress) event()   {}
func (Input) event()      {}
func (HashChange) event() {}
func (Tick) event()       {}

// EffectKind says what the host should do.
type EffectKind int

const (
	// Scroll brings Target into view.
	Scroll EffectKind = iota + 1
	// Focus moves keyboard focus to Target.
	Focus
	// Navigate loads the URL in Target.
	Navigate
	// ReplaceQuery swaps the current history entry's query for Target.
	ReplaceQuery
	// Lookup starts an asynchronous search for Target tagged with Seq.
	Lookup
)

func (k EffectKind) String() string {
	switch k {
	case Scroll:
		return "scroll"
	case Focus:
		return "focus"
	case Navigate:
		return "navigate"
	case ReplaceQuery:
		return "replace_query"
	case Lookup:
		return "lookup"
	default:
		return "unknown"
	}
}

// Effect is a side effect requested by a transition.
type Effect struct {
	Kind   EffectKind
	Target string
	Seq    uint64
}
