package suggest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLookup answers immediately unless the query is listed in block, in
// which case it waits for release or cancellation.
type fakeLookup struct {
	mu      sync.Mutex
	calls   []string
	block   map[string]chan struct{}
	started chan string
}

func newFakeLookup(blocked ...string) *fakeLookup {
	f := &fakeLookup{block: make(map[string]chan struct{}), started: make(chan string, 16)}
	for _, q := range blocked {
		f.block[q] = make(chan struct{})
	}
	return f
}

func (f *fakeLookup) Suggest(ctx context.Context, query string, limit int) ([]Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	release := f.block[query]
	f.mu.Unlock()
	f.started <- query

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []Result{{Title: query, URL: "/ru/search/" + query + ".html"}}, nil
}

func (f *fakeLookup) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func waitFor(t *testing.T, updates <-chan Snapshot, pred func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for suggest update")
			return Snapshot{}
		}
	}
}

func TestSuggester_DebounceCoalescesKeystrokes(t *testing.T) {
	lookup := newFakeLookup()
	updates := make(chan Snapshot, 64)
	g := NewSuggester(context.Background(), lookup, Options{
		Debounce: 50 * time.Millisecond,
		OnUpdate: func(s Snapshot) { updates <- s },
	})
	defer g.Close()

	for _, q := range []string{"t", "te", "tes", "test"} {
		g.Type(q)
	}
	snap := waitFor(t, updates, func(s Snapshot) bool { return s.State == Results })

	assert.Equal(t, "test", snap.Query)
	assert.Equal(t, []string{"test"}, lookup.Calls())
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "/ru/search/test.html", snap.Results[0].URL)
}

func TestSuggester_NewKeystrokeCancelsInFlightLookup(t *testing.T) {
	lookup := newFakeLookup("slow")
	updates := make(chan Snapshot, 64)
	g := NewSuggester(context.Background(), lookup, Options{
		OnUpdate: func(s Snapshot) { updates <- s },
	})
	defer g.Close()

	g.Type("slow")
	require.Equal(t, "slow", <-lookup.started)

	g.Type("fast")
	snap := waitFor(t, updates, func(s Snapshot) bool { return s.State == Results })
	assert.Equal(t, "fast", snap.Query)
	assert.Equal(t, "fast", snap.Results[0].Title)

	g.Close()
	final := g.Snapshot()
	assert.Equal(t, "fast", final.Query)
	require.Len(t, final.Results, 1)
	assert.Equal(t, "fast", final.Results[0].Title)
}

func TestSuggester_ClearingQueryClosesWithoutLookup(t *testing.T) {
	lookup := newFakeLookup()
	g := NewSuggester(context.Background(), lookup, Options{Debounce: time.Hour})
	defer g.Close()

	g.Type("tabs")
	g.Type("")
	snap := g.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.False(t, snap.Open)
	assert.Empty(t, lookup.Calls())
}

func TestSuggester_KeyboardNavigation(t *testing.T) {
	lookup := newFakeLookup()
	updates := make(chan Snapshot, 64)
	g := NewSuggester(context.Background(), lookup, Options{
		OnUpdate: func(s Snapshot) { updates <- s },
	})
	defer g.Close()

	g.Type("tabs")
	waitFor(t, updates, func(s Snapshot) bool { return s.State == Results })

	g.Down()
	g.Down()
	u, ok := g.Enter()
	require.True(t, ok)
	assert.Equal(t, "/ru/search/tabs.html", u)

	g.Escape()
	assert.False(t, g.Snapshot().Open)
	assert.Equal(t, "tabs", g.Snapshot().Query)
}

func TestSuggester_CloseIsIdempotent(t *testing.T) {
	g := NewSuggester(context.Background(), newFakeLookup(), Options{Debounce: time.Hour})
	g.Type("x")
	g.Close()
	g.Close()
	g.Type("y")
	assert.Equal(t, "x", g.Snapshot().Query)
}
