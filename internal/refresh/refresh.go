// Package refresh orchestrates price check runs across all store entries.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/sajowo/price-watch/internal/model"
	"github.com/sajowo/price-watch/internal/parser"
	"github.com/sajowo/price-watch/internal/storage"
)

// ErrRunInProgress is returned when a refresh is started while one is running.
var ErrRunInProgress = errors.New("refresh already in progress")

const (
	defaultWorkers      = 4
	defaultEntryTimeout = 45 * time.Second
	defaultInterval     = 30 * time.Minute
)

// Checker produces an observation for a single store entry.
type Checker interface {
	Check(ctx context.Context, entry model.StoreEntry, hints parser.Hints) model.Observation
}

// Notifier delivers price change alerts.
type Notifier interface {
	NotifyPriceChanges(ctx context.Context, changes []model.PriceChange) error
}

// Config tunes a Refresher. Zero values fall back to defaults.
type Config struct {
	Workers      int
	EntryTimeout time.Duration
	Interval     time.Duration

	// MinDelta and MinDeltaPct gate notifications: a change alerts when the
	// absolute delta or the percent delta reaches its threshold.
	MinDelta    decimal.Decimal
	MinDeltaPct decimal.Decimal
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.EntryTimeout <= 0 {
		c.EntryTimeout = defaultEntryTimeout
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.MinDelta.IsZero() {
		c.MinDelta = decimal.New(1, -2)
	}
	return c
}

// Refresher runs price checks over every tracked entry. At most one run is
// active at a time; manual and scheduled starts share the same entry point.
type Refresher struct {
	store    storage.Storage
	checker  Checker
	notifier Notifier
	log      *slog.Logger
	cfg      Config

	running atomic.Bool

	mu     sync.Mutex
	status model.RunStatus

	now func() time.Time
}

// New creates a Refresher.
func New(store storage.Storage, checker Checker, notifier Notifier, log *slog.Logger, cfg Config) *Refresher {
	return &Refresher{
		store:    store,
		checker:  checker,
		notifier: notifier,
		log:      log,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

type job struct {
	entry    model.StoreEntry
	product  string
	hints    parser.Hints
	oldPrice *decimal.Decimal
	oldAvail model.Availability
}

// Refresh checks every store entry once. Entry-level failures are recorded in
// storage and counted; they never abort the run. Returns ErrRunInProgress if
// a run is already active.
func (r *Refresher) Refresh(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrRunInProgress
	}
	defer r.running.Store(false)

	started := r.now()
	r.setStatus(model.RunStatus{Running: true, StartedAt: started})

	products, err := r.store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	var jobs []job
	for _, p := range products {
		for _, e := range p.Entries {
			jobs = append(jobs, job{
				entry:    e,
				product:  p.Name,
				hints:    parser.Hints{SKU: p.SKUHint, Variant: p.VariantHint},
				oldPrice: e.LastPrice,
				oldAvail: e.Availability,
			})
		}
	}
	r.log.Info("refresh started", "entries", len(jobs))

	var (
		mu      sync.Mutex
		changes []model.PriceChange
		failed  int
	)

	var g errgroup.Group
	g.SetLimit(r.cfg.Workers)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			obs := r.checkEntry(ctx, j.entry, j.hints)
			at := r.now()
			if err := r.store.ApplyObservation(ctx, j.entry.ID, obs, at); err != nil {
				r.log.Error("apply observation", "entry_id", j.entry.ID, "error", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if obs.Failed() {
				failed++
				r.log.Warn("entry check failed",
					"entry_id", j.entry.ID, "url", j.entry.URL, "error", obs.Err)
			} else if c, ok := r.detectChange(j, obs); ok {
				changes = append(changes, c)
			}
			r.bumpProcessed(obs.Failed())
			return nil
		})
	}
	_ = g.Wait()

	if len(changes) > 0 && r.notifier != nil {
		if err := r.notifier.NotifyPriceChanges(ctx, changes); err != nil {
			r.log.Error("notify price changes", "error", err)
		}
	}

	r.setStatus(model.RunStatus{
		StartedAt: started,
		Processed: len(jobs),
		Failed:    failed,
	})
	r.log.Info("refresh finished",
		"entries", len(jobs), "failed", failed, "changes", len(changes),
		"took", r.now().Sub(started))
	return nil
}

// checkEntry runs the pipeline for one entry under the per-entry timeout.
// A panic inside a parser or fetcher becomes a recorded failure.
func (r *Refresher) checkEntry(ctx context.Context, entry model.StoreEntry, hints parser.Hints) (obs model.Observation) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("entry check panicked", "entry_id", entry.ID, "panic", p)
			obs = model.Observation{
				Availability: model.Unknown,
				Err:          fmt.Errorf("check panicked: %v", p),
			}
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, r.cfg.EntryTimeout)
	defer cancel()
	return r.checker.Check(cctx, entry, hints)
}

// detectChange decides whether a successful observation is worth an alert: a
// price delta past a threshold, or a stock transition between known states.
// Entries with a variant hint only alert when the observation confirmed the
// variant or SKU, so a wrong-variant match never pages anyone.
func (r *Refresher) detectChange(j job, obs model.Observation) (model.PriceChange, bool) {
	if j.oldPrice == nil || obs.Price == nil {
		return model.PriceChange{}, false
	}
	if (j.hints.Variant != "" || j.hints.SKU != "") && !obs.VariantConfirmed && !obs.SKUConfirmed {
		return model.PriceChange{}, false
	}

	old, cur := *j.oldPrice, *obs.Price
	c := model.PriceChange{
		ProductName:     j.product,
		StoreName:       j.entry.Name,
		OldPrice:        old,
		NewPrice:        cur,
		OldAvailability: j.oldAvail,
		NewAvailability: obs.Availability,
	}
	if c.AvailabilityChanged() {
		return c, true
	}

	delta := cur.Sub(old).Abs()
	if delta.IsZero() {
		return model.PriceChange{}, false
	}

	pct := decimal.Zero
	if !old.IsZero() {
		pct = delta.Div(old).Mul(decimal.NewFromInt(100))
	}
	if delta.LessThan(r.cfg.MinDelta) && pct.LessThan(r.cfg.MinDeltaPct) {
		return model.PriceChange{}, false
	}
	return c, true
}

// Status reports the current or most recent run.
func (r *Refresher) Status() model.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.status
	st.Running = r.running.Load()
	return st
}

// Running reports whether a refresh is active.
func (r *Refresher) Running() bool {
	return r.running.Load()
}

func (r *Refresher) setStatus(st model.RunStatus) {
	r.mu.Lock()
	r.status = st
	r.mu.Unlock()
}

func (r *Refresher) bumpProcessed(failed bool) {
	r.mu.Lock()
	r.status.Processed++
	if failed {
		r.status.Failed++
	}
	r.mu.Unlock()
}

// Run refreshes immediately and then on every tick until ctx is canceled.
func (r *Refresher) Run(ctx context.Context) {
	r.log.Info("refresh loop started", "interval", r.cfg.Interval)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := r.Refresh(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
			r.log.Error("scheduled refresh", "error", err)
		}
		select {
		case <-ctx.Done():
			r.log.Info("refresh loop stopped")
			return
		case <-ticker.C:
		}
	}
}
