// Package query caches entity reads under hierarchical keys and refetches
// observed entries when their keys are invalidated.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrNoFetcher is recorded when Options lacks the fetch function its
// selection needs.
var ErrNoFetcher = errors.New("query: no fetch function for selection")

// SingleFunc fetches one entity.
type SingleFunc func(ctx context.Context, id string) (any, error)

// ListFunc fetches a collection.
type ListFunc func(ctx context.Context, params map[string]string) (any, error)

// Options selects and configures a read. A non-empty ID selects GetSingle,
// otherwise GetList. Disabled suppresses every fetch, including refetches
// triggered by invalidation.
type Options struct {
	Key       Key
	ID        string
	Params    map[string]string
	GetSingle SingleFunc
	GetList   ListFunc
	Disabled  bool
	OnChange  func(Snapshot)
}

// Snapshot is the observable state of a read.
type Snapshot struct {
	Data      any
	IsLoading bool
	IsError   bool
	Err       error
	Stale     bool
	UpdatedAt time.Time
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithLogger attaches a logger for invalidation and fetch failures.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContext sets the context background fetches run under.
func WithContext(ctx context.Context) ClientOption {
	return func(c *Client) {
		if ctx != nil {
			c.ctx = ctx
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

type entry struct {
	id        string
	key       Key
	fetch     func(ctx context.Context) (any, error)
	data      any
	err       error
	loaded    bool
	stale     bool
	loading   bool
	refetch   bool
	flight    uint64
	updatedAt time.Time
	observers map[int]*Query
}

// Client is the shared cache. Every consumer of a key observes the same
// entry; writes are last-write-wins.
type Client struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
	nextID  int
	pending sync.WaitGroup
	ctx     context.Context
	now     func() time.Time
	logger  *slog.Logger
}

// NewClient builds an empty cache.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		entries: make(map[string]*entry),
		ctx:     context.Background(),
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		if option != nil {
			option(c)
		}
	}
	return c
}

// Resolve subscribes to the entry selected by opts and starts a background
// fetch when it is enabled and not yet loaded or stale.
func (c *Client) Resolve(opts Options) *Query {
	key, fetch := selectFetch(opts)

	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key)
	if !opts.Disabled {
		e.fetch = fetch
	}
	q := &Query{client: c, entry: e, id: c.nextID, disabled: opts.Disabled, onChange: opts.OnChange}
	c.nextID++
	e.observers[q.id] = q

	if !opts.Disabled && (!e.loaded || e.stale) {
		c.startLocked(e)
	}
	return q
}

// Invalidate marks every entry under keys stale and starts refetches for
// entries with enabled observers. A fetch already in flight is followed by a
// fresh one before it settles. It returns without waiting.
func (c *Client) Invalidate(keys ...Key) {
	if len(keys) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	marked, refetching := 0, 0
	for _, e := range c.entries {
		if !matchesAny(e.key, keys) {
			continue
		}
		e.stale = true
		marked++
		if e.loading {
			e.refetch = true
			refetching++
			continue
		}
		if e.active() {
			c.startLocked(e)
			refetching++
		}
	}
	c.logger.Debug("query invalidated", "keys", fmt.Sprint(keys), "entries", marked, "refetching", refetching)
}

// Wait blocks until every background fetch started so far has settled.
func (c *Client) Wait() {
	c.pending.Wait()
}

// Peek returns the cached data for an exact key without subscribing.
func (c *Client) Peek(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.loaded {
		return nil, false
	}
	return e.data, true
}

func (c *Client) entryLocked(key Key) *entry {
	id := key.String()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{id: id, key: key, observers: make(map[int]*Query)}
		c.entries[id] = e
	}
	return e
}

// startLocked joins the in-flight fetch for e or starts a new one.
func (c *Client) startLocked(e *entry) <-chan singleflight.Result {
	if e.fetch == nil {
		e.err = ErrNoFetcher
		ch := make(chan singleflight.Result, 1)
		ch <- singleflight.Result{Err: ErrNoFetcher}
		return ch
	}
	if !e.loading {
		e.loading = true
		e.flight++
		c.pending.Add(1)
	}
	fetch, ctx := e.fetch, c.ctx
	// one singleflight key per loading period
	flight := e.id + "#" + strconv.FormatUint(e.flight, 10)
	return c.group.DoChan(flight, func() (any, error) {
		for {
			data, err := fetch(ctx)
			next, again := c.settle(e, data, err)
			if !again {
				return data, err
			}
			fetch = next
		}
	})
}

// settle records a fetch result. When the entry was invalidated while the
// fetch ran, the result is dropped and the fetch to run next is returned.
func (c *Client) settle(e *entry, data any, err error) (func(context.Context) (any, error), bool) {
	c.mu.Lock()
	if e.refetch && e.fetch != nil {
		e.refetch = false
		next := e.fetch
		c.mu.Unlock()
		c.logger.Debug("query refetching after invalidation", "key", e.id)
		return next, true
	}
	e.refetch = false
	e.loading = false
	if err != nil {
		e.err = err
		c.logger.Warn("query fetch failed", "key", e.id, "error", err)
	} else {
		e.data, e.err = data, nil
		e.loaded, e.stale = true, false
		e.updatedAt = c.now()
	}
	snap := e.snapshot()
	var listeners []func(Snapshot)
	for _, q := range e.observers {
		if q.onChange != nil {
			listeners = append(listeners, q.onChange)
		}
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	c.pending.Done()
	return nil, false
}

func (e *entry) active() bool {
	for _, q := range e.observers {
		if !q.disabled {
			return true
		}
	}
	return false
}

func (e *entry) snapshot() Snapshot {
	return Snapshot{
		Data:      e.data,
		IsLoading: e.loading,
		IsError:   e.err != nil,
		Err:       e.err,
		Stale:     e.stale,
		UpdatedAt: e.updatedAt,
	}
}

func matchesAny(key Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if key.HasPrefix(p) {
			return true
		}
	}
	return false
}

func selectFetch(opts Options) (Key, func(context.Context) (any, error)) {
	if opts.ID != "" {
		key := itemKey(opts.Key, opts.ID)
		if opts.GetSingle == nil {
			return key, nil
		}
		id, get := opts.ID, opts.GetSingle
		return key, func(ctx context.Context) (any, error) { return get(ctx, id) }
	}
	key := listKey(opts.Key, opts.Params)
	if opts.GetList == nil {
		return key, nil
	}
	params, list := opts.Params, opts.GetList
	return key, func(ctx context.Context) (any, error) { return list(ctx, params) }
}

// Query is one consumer's subscription to a cache entry.
type Query struct {
	client   *Client
	entry    *entry
	id       int
	disabled bool
	onChange func(Snapshot)
}

// Key returns the full cache key of the subscription.
func (q *Query) Key() Key {
	return q.entry.key
}

// Snapshot returns the current state without fetching.
func (q *Query) Snapshot() Snapshot {
	q.client.mu.Lock()
	defer q.client.mu.Unlock()
	return q.entry.snapshot()
}

// Await waits for an in-flight fetch, if any, and returns the settled state.
func (q *Query) Await(ctx context.Context) (Snapshot, error) {
	q.client.mu.Lock()
	if !q.entry.loading {
		snap := q.entry.snapshot()
		q.client.mu.Unlock()
		return snap, snap.Err
	}
	ch := q.client.startLocked(q.entry)
	q.client.mu.Unlock()
	return q.wait(ctx, ch)
}

// Refetch fetches again and waits for the result. A fetch already in flight
// is followed by a fresh one. Disabled queries return their snapshot
// untouched.
func (q *Query) Refetch(ctx context.Context) (Snapshot, error) {
	q.client.mu.Lock()
	if q.disabled {
		snap := q.entry.snapshot()
		q.client.mu.Unlock()
		return snap, nil
	}
	if q.entry.loading {
		q.entry.refetch = true
	}
	ch := q.client.startLocked(q.entry)
	q.client.mu.Unlock()
	return q.wait(ctx, ch)
}

func (q *Query) wait(ctx context.Context, ch <-chan singleflight.Result) (Snapshot, error) {
	select {
	case res := <-ch:
		return q.Snapshot(), res.Err
	case <-ctx.Done():
		return q.Snapshot(), ctx.Err()
	}
}

// Close unsubscribes. Cached data stays for other consumers.
func (q *Query) Close() {
	q.client.mu.Lock()
	delete(q.entry.observers, q.id)
	q.client.mu.Unlock()
}
