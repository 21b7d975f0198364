// Package suggest models the search-as-you-type box: a popup whose contents
// follow the latest query only, with keyboard navigation over results.
package suggest

import (
	"strings"
)

// State is the content state of the popup.
type State int

const (
	Idle State = iota
	Loading
	Results
	Empty
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Results:
		return "results"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// Result is one suggestion.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Ticket identifies a lookup. Only the ticket with the latest Seq may
// resolve.
type Ticket struct {
	Seq   uint64
	Query string
}

// Session is the synchronous state machine behind a search box.
type Session struct {
	query   string
	state   State
	open    bool
	seq     uint64
	results []Result
	cursor  int
}

// NewSession returns an idle, closed session.
func NewSession() *Session {
	return &Session{cursor: -1}
}

// Type replaces the query. A blank query closes the popup and returns false;
// otherwise the popup opens in Loading and the returned ticket must be passed
// to Resolve. Either way, earlier tickets become stale.
func (s *Session) Type(query string) (Ticket, bool) {
	s.query = query
	s.seq++
	s.results = nil
	s.cursor = -1
	if strings.TrimSpace(query) == "" {
		s.state = Idle
		s.open = false
		return Ticket{}, false
	}
	s.state = Loading
	s.open = true
	return Ticket{Seq: s.seq, Query: query}, true
}

// Resolve applies a lookup outcome. It reports false and changes nothing when
// the ticket is stale. A failed lookup shows the empty state.
func (s *Session) Resolve(t Ticket, results []Result, err error) bool {
	if t.Seq != s.seq || s.state != Loading {
		return false
	}
	s.cursor = -1
	if err != nil || len(results) == 0 {
		s.state = Empty
		s.results = nil
		return true
	}
	s.state = Results
	s.results = append([]Result(nil), results...)
	return true
}

// Down moves the highlight to the next result, stopping at the last one.
func (s *Session) Down() {
	if !s.open || s.state != Results {
		return
	}
	if s.cursor < len(s.results)-1 {
		s.cursor++
	}
}

// Up moves the highlight to the previous result, stopping at the first one.
func (s *Session) Up() {
	if !s.open || s.state != Results {
		return
	}
	if s.cursor > 0 {
		s.cursor--
	}
}

// Enter returns the URL of the highlighted result.
func (s *Session) Enter() (string, bool) {
	if !s.open || s.state != Results || s.cursor < 0 {
		return "", false
	}
	return s.results[s.cursor].URL, true
}

// Select returns the URL of result i, as clicked.
func (s *Session) Select(i int) (string, bool) {
	if !s.open || s.state != Results || i < 0 || i >= len(s.results) {
		return "", false
	}
	s.cursor = i
	return s.results[i].URL, true
}

// Escape closes the popup. The query is kept.
func (s *Session) Escape() { s.open = false }

// ClickOutside closes the popup. The query is kept.
func (s *Session) ClickOutside() { s.open = false }

// Focus reopens the popup for a non-blank query that already has an outcome.
func (s *Session) Focus() {
	if strings.TrimSpace(s.query) != "" && s.state != Idle {
		s.open = true
	}
}

func (s *Session) Query() string { return s.query }
func (s *Session) State() State  { return s.state }
func (s *Session) Open() bool    { return s.open }
func (s *Session) Seq() uint64   { return s.seq }
func (s *Session) Cursor() int   { return s.cursor }

// Results returns a copy of the shown results.
func (s *Session) Results() []Result {
	return append([]Result(nil), s.results...)
}

// Snapshot is a copy of a session's observable state.
type Snapshot struct {
	Query   string
	State   State
	Open    bool
	Results []Result
	Cursor  int
}

// Snapshot copies the observable state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Query:   s.query,
		State:   s.state,
		Open:    s.open,
		Results: s.Results(),
		Cursor:  s.cursor,
	}
}
