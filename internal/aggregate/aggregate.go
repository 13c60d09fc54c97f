// Package aggregate merges events from a set of permission-filtered
// calendars into one chronologically ordered sequence. Fetches fan out
// concurrently and always settle: one broken calendar never takes down the
// aggregate view.
package aggregate

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/familyhub/familycal/internal/block"
)

// DefaultFetchTimeout bounds each per-calendar fetch so a single slow
// calendar cannot stall the aggregate response.
const DefaultFetchTimeout = 10 * time.Second

var (
	ErrMissingWindow  = errors.New("aggregate: time window start and end are required")
	ErrNoSources      = errors.New("aggregate: at least one calendar source is required")
	ErrInvertedWindow = errors.New("aggregate: window end precedes window start")
)

// Fetcher retrieves the blocks of a single calendar for a time window.
type Fetcher interface {
	FetchBlocks(ctx context.Context, source block.CalendarSource, windowStart, windowEnd time.Time) ([]block.Block, error)
}

// Aggregator fans a window query out across calendar sources.
type Aggregator struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *slog.Logger
}

// Option customizes an Aggregator.
type Option func(*Aggregator)

// WithTimeout overrides the per-calendar fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger overrides the logger used for per-calendar failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an Aggregator over the given fetcher.
func New(fetcher Fetcher, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetcher: fetcher,
		timeout: DefaultFetchTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// List fetches every source's events for the window concurrently, waits for
// all fetches to settle, and returns the merged sequence ordered by start
// time. A source whose fetch fails (including by timeout) contributes an
// empty result and is logged; it never aborts the other sources. Blocks
// with equal start times keep the order their calendars were requested in.
func (a *Aggregator) List(ctx context.Context, sources []block.CalendarSource, windowStart, windowEnd time.Time) ([]block.Block, error) {
	if windowStart.IsZero() || windowEnd.IsZero() {
		return nil, ErrMissingWindow
	}
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if windowEnd.Before(windowStart) {
		return nil, ErrInvertedWindow
	}

	// Fixed result slots keep request order, which makes the final stable
	// sort preserve source order on ties.
	slots := make([][]block.Block, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src block.CalendarSource) {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			blocks, err := a.fetcher.FetchBlocks(fetchCtx, src, windowStart, windowEnd)
			if err != nil {
				a.logger.Warn("calendar fetch failed, omitting from aggregate",
					"calendar", src.ID, "error", err)
				return
			}
			slots[i] = blocks
		}(i, src)
	}
	wg.Wait()

	var merged []block.Block
	for _, blocks := range slots {
		merged = append(merged, blocks...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StartTime.Before(merged[j].StartTime)
	})

	return merged, nil
}
