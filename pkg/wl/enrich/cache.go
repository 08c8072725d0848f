package enrich

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phuslu/log"
	"github.com/sourcegraph/conc"

	"github.com/komsit37/thematic-wl/pkg/wl/bizdate"
	"github.com/komsit37/thematic-wl/pkg/wl/logging"
)

// DefaultBatchSize bounds concurrent requests per batch.
const DefaultBatchSize = 6

// Key identifies a cached price. An empty Date means the latest price.
type Key struct {
	Ticker string
	Date   string // bizdate.Layout
}

// LatestKey is the key of ticker's latest price.
func LatestKey(ticker string) Key { return Key{Ticker: ticker} }

// CloseKey is the key of ticker's close on date (bizdate.Layout).
func CloseKey(ticker, date string) Key { return Key{Ticker: ticker, Date: date} }

func (k Key) String() string {
	if k.Date == "" {
		return "latest:" + k.Ticker
	}
	return "close:" + k.Ticker + ":" + k.Date
}

// Status is the lifecycle state of a key.
type Status int

const (
	Absent   Status = iota // never requested
	Pending                // queued or in flight
	Resolved               // fetched; price may still be nil on failure
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Resolved:
		return "resolved"
	default:
		return "absent"
	}
}

type entry struct {
	status Status
	price  *float64
	// owner dispatches a pending entry; nil for keys run by Fetch.
	owner  *Cycle
	queued bool
	// settled closes once the entry resolves or is dropped.
	settled chan struct{}
}

func newPending(owner *Cycle) *entry {
	return &entry{status: Pending, owner: owner, settled: make(chan struct{})}
}

// settle must be called with the cache lock held.
func (e *entry) settle() {
	select {
	case <-e.settled:
	default:
		close(e.settled)
	}
}

// Cache memoizes prices per key for the lifetime of the process. It never
// evicts, allows one outstanding request per key, and bounds concurrency
// by running queued requests in fixed-size batches.
type Cache struct {
	src       PriceSource
	batchSize int
	log       *log.Logger

	mu      sync.Mutex
	entries map[Key]*entry
	queue   []Key
	subs    map[chan uint64]struct{}
	gen     uint64 // bumped by Reset

	version atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithBatchSize sets the number of requests run concurrently per batch.
func WithBatchSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithLogger sets the logger used for fetch failures and progress.
func WithLogger(l *log.Logger) Option {
	return func(c *Cache) { c.log = logging.OrDiscard(l) }
}

// NewCache returns an empty cache backed by src.
func NewCache(src PriceSource, opts ...Option) *Cache {
	c := &Cache{
		src:       src,
		batchSize: DefaultBatchSize,
		log:       logging.Discard(),
		entries:   make(map[Key]*entry),
		subs:      make(map[chan uint64]struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Lookup returns the cached price and status of k without requesting it.
func (c *Cache) Lookup(k Key) (*float64, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return nil, Absent
	}
	return e.price, e.status
}

// Price returns the resolved, non-null price of k.
func (c *Cache) Price(k Key) (float64, bool) {
	p, st := c.Lookup(k)
	if st != Resolved || p == nil {
		return 0, false
	}
	return *p, true
}

// RequestLatest returns the cached latest price of ticker, queueing a fetch
// if it was never requested.
func (c *Cache) RequestLatest(ticker string) (*float64, Status) {
	return c.Request(LatestKey(ticker))
}

// RequestCloseOn is RequestLatest for ticker's close on date (bizdate.Layout).
func (c *Cache) RequestCloseOn(ticker, date string) (*float64, Status) {
	return c.Request(CloseKey(ticker, date))
}

// Request returns the cached state of k. An absent key becomes pending and
// is queued for the next Fetch; pending and resolved keys are left alone,
// except a key pending under an aborted cycle, which is queued afresh.
func (c *Cache) Request(k Key) (*float64, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.requestLocked(k)
	return e.price, e.status
}

func (c *Cache) requestLocked(k Key) *entry {
	old, ok := c.entries[k]
	if ok && !(old.status == Pending && old.owner.Aborted()) {
		return old
	}
	if ok {
		old.settle()
	}
	e := newPending(nil)
	e.queued = true
	c.entries[k] = e
	c.queue = append(c.queue, k)
	return e
}

// Queued returns the number of keys waiting for a Fetch.
func (c *Cache) Queued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Version increments on every resolution and reset.
func (c *Cache) Version() uint64 { return c.version.Load() }

// Subscribe returns a channel receiving the cache version after each
// change. Sends never block: a slow reader only sees the newest version.
// The returned func unsubscribes.
func (c *Cache) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
		})
	}
}

// Reset forgets every entry and queued key. Requests still in flight
// complete without touching the new state.
func (c *Cache) Reset() {
	c.mu.Lock()
	for _, e := range c.entries {
		e.settle()
	}
	c.entries = make(map[Key]*entry)
	c.queue = nil
	c.gen++
	c.tickLocked()
	c.mu.Unlock()
}

// Fetch runs every queued request in batches and returns when all have
// settled. Failures resolve to a nil price.
func (c *Cache) Fetch(ctx context.Context) error {
	return c.run(ctx, c.drain(nil), nil)
}

// Refresh requests keys and fetches everything queued in a background
// cycle. Keys already resolved are not fetched again. Keys another cycle
// has in flight are awaited, and fetched by this cycle if that one gives
// them up.
func (c *Cache) Refresh(ctx context.Context, keys []Key) *Cycle {
	cy := &Cycle{done: make(chan struct{})}
	c.mu.Lock()
	cy.gen = c.gen
	for _, k := range keys {
		c.requestLocked(k)
	}
	queued := c.drainLocked(cy)
	for _, k := range keys {
		if e := c.entries[k]; e.status == Pending && e.owner != cy {
			cy.joined = append(cy.joined, k)
		}
	}
	c.mu.Unlock()

	go func() {
		defer close(cy.done)
		cy.err = c.run(ctx, queued, cy)
	}()
	return cy
}

func (c *Cache) drain(owner *Cycle) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drainLocked(owner)
}

// drainLocked empties the queue and hands its entries to owner.
func (c *Cache) drainLocked(owner *Cycle) []Key {
	q := c.queue
	c.queue = nil
	for _, k := range q {
		if e := c.entries[k]; e != nil {
			e.queued = false
			e.owner = owner
		}
	}
	return q
}

func (c *Cache) run(ctx context.Context, keys []Key, cy *Cycle) error {
	if len(keys) > 0 {
		c.log.Debug().Int("keys", len(keys)).Int("batch_size", c.batchSize).Msg("price fetch cycle started")
	}
	if err := c.runBatches(ctx, keys, cy); err != nil {
		return err
	}
	if err := c.adopt(ctx, cy); err != nil {
		return err
	}
	if len(keys) > 0 {
		c.log.Debug().Int("keys", len(keys)).Uint64("version", c.Version()).Msg("price fetch cycle finished")
	}
	return nil
}

// runBatches executes keys batch by batch. A batch starts only after the
// previous one settled, so at most batchSize requests are outstanding.
func (c *Cache) runBatches(ctx context.Context, keys []Key, cy *Cycle) error {
	for start := 0; start < len(keys); start += c.batchSize {
		if cy.Aborted() || ctx.Err() != nil {
			c.release(keys[start:], cy)
			return ctx.Err()
		}
		end := start + c.batchSize
		if end > len(keys) {
			end = len(keys)
		}
		c.runBatch(ctx, keys[start:end], cy)
	}
	return nil
}

// adopt follows the keys cy found pending elsewhere until they resolve,
// fetching any that were dropped or never dispatched.
func (c *Cache) adopt(ctx context.Context, cy *Cycle) error {
	if cy == nil {
		return nil
	}
	joined := cy.joined
	for len(joined) > 0 && !cy.Aborted() {
		orphans, waits, still, ok := c.claim(joined, cy)
		if !ok {
			return nil
		}
		if err := c.runBatches(ctx, orphans, cy); err != nil {
			return err
		}
		for _, w := range waits {
			select {
			case <-w:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		joined = still
	}
	return nil
}

// claim takes over the joined keys nobody is fetching and returns the
// settle channels of those still in flight elsewhere. ok is false after a
// Reset.
func (c *Cache) claim(joined []Key, cy *Cycle) (orphans []Key, waits []<-chan struct{}, still []Key, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != cy.gen {
		return nil, nil, nil, false
	}
	for _, k := range joined {
		e, found := c.entries[k]
		switch {
		case found && e.status == Resolved:
		case found && !e.queued && !e.owner.Aborted():
			// In flight under a live cycle or a Fetch.
			waits = append(waits, e.settled)
			still = append(still, k)
		default:
			if found {
				e.settle()
			}
			c.entries[k] = newPending(cy)
			orphans = append(orphans, k)
		}
	}
	if len(orphans) > 0 {
		c.queue = removeKeys(c.queue, orphans)
	}
	return orphans, waits, still, true
}

func removeKeys(q, drop []Key) []Key {
	set := make(map[Key]struct{}, len(drop))
	for _, k := range drop {
		set[k] = struct{}{}
	}
	out := q[:0]
	for _, k := range q {
		if _, ok := set[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}

func (c *Cache) runBatch(ctx context.Context, batch []Key, cy *Cycle) {
	// In-flight requests are never cancelled; abort only discards results.
	fctx := context.WithoutCancel(ctx)

	c.mu.Lock()
	entries := make([]*entry, len(batch))
	for i, k := range batch {
		if e := c.entries[k]; e != nil && e.status == Pending && e.owner == cy {
			entries[i] = e
		}
	}
	c.mu.Unlock()

	var wg conc.WaitGroup
	for i, k := range batch {
		k, e := k, entries[i]
		if e == nil {
			continue // reset or claimed by another cycle before dispatch
		}
		wg.Go(func() {
			price, err := c.fetchOne(fctx, k)
			c.resolve(k, e, price, err, cy)
		})
	}
	if r := wg.WaitAndRecover(); r != nil {
		c.log.Error().Str("panic", fmt.Sprint(r.Value)).Msg("price fetch panicked")
	}
}

func (c *Cache) fetchOne(ctx context.Context, k Key) (price float64, err error) {
	if k.Date == "" {
		price, err = c.src.Latest(ctx, k.Ticker)
	} else {
		var d time.Time
		d, err = time.Parse(bizdate.Layout, k.Date)
		if err != nil {
			return 0, fmt.Errorf("bad date key %q: %w", k.Date, err)
		}
		price, err = c.src.CloseOn(ctx, k.Ticker, d)
	}
	if err == nil && !validPrice(price) {
		err = fmt.Errorf("%s: %w", k, ErrNoPrice)
	}
	return price, err
}

func (c *Cache) resolve(k Key, e *entry, price float64, err error, cy *Cycle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.entries[k]; !ok || cur != e {
		return // reset or re-requested while in flight
	}
	if cy.Aborted() {
		delete(c.entries, k)
		e.settle()
		return
	}
	e.status = Resolved
	e.owner = nil
	e.settle()
	if err != nil {
		e.price = nil
		c.log.Debug().Str("ticker", k.Ticker).Str("date", k.Date).Err(err).Msg("price fetch failed")
	} else {
		p := price
		e.price = &p
	}
	c.tickLocked()
}

// release returns keys cy never dispatched to absent. Cycles that joined
// them wake up and fetch them themselves.
func (c *Cache) release(keys []Key, cy *Cycle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if e, ok := c.entries[k]; ok && e.status == Pending && e.owner == cy {
			delete(c.entries, k)
			e.settle()
		}
	}
}

func (c *Cache) tickLocked() {
	v := c.version.Add(1)
	for ch := range c.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// Cycle is one background Refresh. Abort is soft: batches not yet started
// are skipped and late resolutions are discarded.
type Cycle struct {
	aborted atomic.Bool
	done    chan struct{}
	err     error
	gen     uint64
	joined  []Key
}

// Abort marks the cycle aborted.
func (cy *Cycle) Abort() {
	if cy != nil {
		cy.aborted.Store(true)
	}
}

// Aborted reports whether Abort was called. A nil cycle is never aborted.
func (cy *Cycle) Aborted() bool {
	return cy != nil && cy.aborted.Load()
}

// Done is closed once every dispatched request settled.
func (cy *Cycle) Done() <-chan struct{} { return cy.done }

// Wait blocks until the cycle is done and returns its error.
func (cy *Cycle) Wait() error {
	<-cy.done
	return cy.err
}
