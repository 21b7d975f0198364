package suggest

import (
	"context"
	"sync"
	"time"

	"github.com/diplodoc-platform/testpack/internal/obs"
)

// DefaultDebounce matches the page runtime's keystroke debounce.
const DefaultDebounce = 150 * time.Millisecond

// Lookup answers suggestion queries.
type Lookup interface {
	Suggest(ctx context.Context, query string, limit int) ([]Result, error)
}

// Options configures a Suggester.
type Options struct {
	Debounce time.Duration
	Limit    int
	// OnUpdate receives a snapshot after every visible change. It is called
	// without the Suggester's lock held.
	OnUpdate func(Snapshot)
}

// Suggester drives a Session from keystrokes with a debounce timer and
// asynchronous lookups. Each keystroke stops the pending timer and cancels the
// in-flight lookup, so the last query always wins.
type Suggester struct {
	lookup Lookup
	opts   Options
	ctx    context.Context
	stop   context.CancelFunc

	mu     sync.Mutex
	sess   *Session
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// NewSuggester returns a Suggester whose lookups run under ctx.
func NewSuggester(ctx context.Context, lookup Lookup, opts Options) *Suggester {
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	cctx, stop := context.WithCancel(ctx)
	return &Suggester{
		lookup: lookup,
		opts:   opts,
		ctx:    cctx,
		stop:   stop,
		sess:   NewSession(),
	}
}

// Type replaces the query and schedules a lookup.
func (g *Suggester) Type(query string) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.abortLocked()
	ticket, ok := g.sess.Type(query)
	if ok {
		g.wg.Add(1)
		g.timer = time.AfterFunc(g.opts.Debounce, func() { g.run(ticket) })
	}
	snap := g.sess.Snapshot()
	g.mu.Unlock()
	g.notify(snap)
}

// abortLocked stops the pending timer and cancels the in-flight lookup.
func (g *Suggester) abortLocked() {
	if g.timer != nil {
		if g.timer.Stop() {
			g.wg.Done()
		}
		g.timer = nil
	}
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
}

func (g *Suggester) run(ticket Ticket) {
	defer g.wg.Done()

	g.mu.Lock()
	if g.closed || ticket.Seq != g.sess.Seq() {
		g.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(g.ctx)
	g.cancel = cancel
	g.mu.Unlock()
	defer cancel()

	results, err := g.lookup.Suggest(ctx, ticket.Query, g.opts.Limit)
	if err != nil && ctx.Err() == nil {
		obs.Pkg("suggest").Warn("suggest_lookup_failed", "seq", ticket.Seq, "err", err)
	}

	g.mu.Lock()
	applied := !g.closed && g.sess.Resolve(ticket, results, err)
	snap := g.sess.Snapshot()
	g.mu.Unlock()
	if applied {
		g.notify(snap)
	}
}

func (g *Suggester) notify(snap Snapshot) {
	if g.opts.OnUpdate != nil {
		g.opts.OnUpdate(snap)
	}
}

// update runs fn on the session under the lock and publishes the result.
func (g *Suggester) update(fn func(*Session)) Snapshot {
	g.mu.Lock()
	fn(g.sess)
	snap := g.sess.Snapshot()
	g.mu.Unlock()
	g.notify(snap)
	return snap
}

func (g *Suggester) Down()         { g.update((*Session).Down) }
func (g *Suggester) Up()           { g.update((*Session).Up) }
func (g *Suggester) Escape()       { g.update((*Session).Escape) }
func (g *Suggester) ClickOutside() { g.update((*Session).ClickOutside) }

// Enter returns the URL of the highlighted result.
func (g *Suggester) Enter() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sess.Enter()
}

// Snapshot returns the current state.
func (g *Suggester) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sess.Snapshot()
}

// Close cancels pending work and waits for running lookups to return.
func (g *Suggester) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.abortLocked()
	g.mu.Unlock()
	g.stop()
	g.wg.Wait()
}
