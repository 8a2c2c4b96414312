// Package dashboard owns the loaded row set and runs the
// fetch → normalize → filter → aggregate → summarize → render pipeline.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"adspend/internal/cache"
	"adspend/internal/core"
	"adspend/internal/log"
	"adspend/internal/metrics"
	"adspend/internal/render"
	"adspend/internal/source"
)

const refreshKey = "refresh"

// Options configures a Controller.
type Options struct {
	Normalizer   *core.Normalizer
	Renderer     *render.Renderer
	FetchTimeout time.Duration
	FoldAccents  bool
	CacheSize    int
	CacheTTL     time.Duration
	Metrics      *metrics.Metrics
	Logger       *log.Logger
	Now          func() time.Time
}

// Controller holds the normalized rows of the latest successful fetch and the
// pipeline status. Rows are replaced wholesale on success and left untouched
// on failure. Concurrent refreshes share one upstream call.
type Controller struct {
	src     source.RowSource
	opts    Options
	logger  *log.Logger
	baseCtx context.Context

	mu    sync.RWMutex
	rows  []core.Row
	state State

	group singleflight.Group
	views *cache.LRUCache[computed]

	settled     chan struct{}
	settledOnce sync.Once
}

// New creates a controller in the idle state. Cancelling ctx aborts any
// in-flight fetch.
func New(ctx context.Context, src source.RowSource, opts Options) *Controller {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Normalizer == nil {
		opts.Normalizer = core.NewNormalizer(core.DefaultSchema(), core.LayoutDMY, "")
	}
	if opts.Renderer == nil {
		f, _ := render.NewFormatter("vi", "VND")
		opts.Renderer = render.NewRenderer(f, render.DefaultLabels())
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.FromContext(ctx)
	}

	return &Controller{
		src:     src,
		opts:    opts,
		logger:  logger.WithComponent(log.ComponentDashboard),
		baseCtx: ctx,
		state:   State{Status: StatusIdle},
		views:   cache.NewLRUCache[computed](opts.CacheSize, opts.CacheTTL),
		settled: make(chan struct{}),
	}
}

// ViewCache exposes the computed-view cache so it can be registered for
// periodic cleanup.
func (c *Controller) ViewCache() cache.Cleaner {
	return c.views
}

// State returns the current pipeline state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Rows returns the current row set. Callers must not modify it.
func (c *Controller) Rows() []core.Row {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rows
}

// Settled is closed once the first refresh has finished, successfully or not.
func (c *Controller) Settled() <-chan struct{} {
	return c.settled
}

// Refresh re-fetches the upstream table. A refresh already in flight is joined
// rather than repeated. The shared fetch is not tied to the caller's
// cancellation, only to the controller's context and the fetch timeout;
// if ctx ends first, Refresh returns early with ctx's error.
func (c *Controller) Refresh(ctx context.Context) (State, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return c.refresh(ctx)
	})
	select {
	case res := <-ch:
		st, _ := res.Val.(State)
		return st, res.Err
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
}

func (c *Controller) refresh(parent context.Context) (st State, err error) {
	refreshID := uuid.NewString()
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.opts.FetchTimeout)
	defer cancel()
	stop := context.AfterFunc(c.baseCtx, cancel)
	defer stop()

	c.setLoading()
	defer func() {
		// Loading never outlives the attempt, even on panic.
		if c.State().Status == StatusLoading {
			st = c.fail(errors.New("refresh aborted"))
		}
		c.settledOnce.Do(func() { close(c.settled) })
	}()

	result := metrics.ResultOK
	records, err := c.src.FetchRows(ctx)
	if core.IsMalformed(err) {
		c.logger.WarnContext(ctx, "Malformed upstream response, treating as empty",
			log.FieldRefreshID, refreshID,
			log.FieldSource, source.NameOf(c.src),
			log.FieldError, err,
			"error_type", log.ErrorTypeMalformed)
		records, err, result = nil, nil, metrics.ResultMalformed
	}
	if err != nil {
		c.opts.Metrics.ObserveRefresh(metrics.ResultError, time.Since(start))
		c.logger.ErrorContext(ctx, "Refresh failed",
			log.NewFields().
				WithRefresh(refreshID, source.NameOf(c.src), 0, c.State().Generation).
				WithError(err).
				WithOperation(log.OpRefresh).
				ToSlice()...)
		return c.fail(err), fmt.Errorf("fetch rows: %w", err)
	}

	rows := c.opts.Normalizer.NormalizeAll(records)
	st = c.replace(rows)

	c.opts.Metrics.ObserveRefresh(result, time.Since(start))
	c.opts.Metrics.SetRows(len(rows))
	c.logger.InfoContext(ctx, "Refresh completed",
		log.NewFields().
			WithRefresh(refreshID, source.NameOf(c.src), len(rows), st.Generation).
			WithOperation(log.OpRefresh).
			ToSlice()...)
	return st, nil
}

func (c *Controller) setLoading() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Status = StatusLoading
	c.state.Message = ""
}

func (c *Controller) fail(err error) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Status = StatusError
	c.state.Message = ErrorMessage(err)
	return c.state
}

func (c *Controller) replace(rows []core.Row) State {
	c.mu.Lock()
	c.rows = rows
	c.state = State{
		Status:     StatusReady,
		Generation: c.state.Generation + 1,
		FetchedAt:  c.opts.Now(),
		Rows:       len(rows),
	}
	st := c.state
	c.mu.Unlock()

	c.views.Purge()
	return st
}

// ErrorMessage formats a refresh failure for display.
func ErrorMessage(err error) string {
	msg := strings.TrimSuffix(strings.TrimSpace(err.Error()), ".")
	return msg + ". " + corsHint
}

// View runs filter → aggregate → summarize → render for q over the current
// rows. Results are cached per row generation.
func (c *Controller) View(q Query) View {
	c.mu.RLock()
	rows, st := c.rows, c.state
	c.mu.RUnlock()

	keys, selected := core.MonthOptions(rows, c.opts.Now())
	month := selected
	if q.MonthSet {
		month = q.Month
	}

	term := q.Term
	key := fmt.Sprintf("%d|%s|%s", st.Generation, month, strings.ToLower(term))
	comp, ok := c.views.Get(key)
	if ok {
		c.opts.Metrics.CacheHit()
	} else {
		c.opts.Metrics.CacheMiss()
		comp = c.compute(rows, core.Filter{Term: term, Month: month, FoldAccents: c.opts.FoldAccents})
		c.views.Set(key, comp)
	}

	return View{
		State:   st,
		Term:    term,
		Month:   month,
		Months:  c.opts.Renderer.MonthOptions(keys, month),
		KPIs:    comp.kpis,
		Table:   comp.table,
		Groups:  comp.groups,
		Summary: comp.summary,
		Matched: comp.matched,
	}
}

func (c *Controller) compute(rows []core.Row, f core.Filter) computed {
	filtered := f.Apply(rows)
	groups := core.GroupByDate(filtered)
	summary := core.Summarize(filtered)
	return computed{
		groups:  groups,
		summary: summary,
		matched: len(filtered),
		kpis:    c.opts.Renderer.KPIs(summary),
		table:   c.opts.Renderer.Table(groups),
	}
}
