package services

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/metrics"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type CategoryStore interface {
	List(ctx context.Context) ([]core.Category, error)
	Get(ctx context.Context, id int64) (core.Category, error)
	Create(ctx context.Context, in core.CategoryInput) (core.Category, error)
	Update(ctx context.Context, id int64, in core.CategoryInput) (core.Category, error)
	Delete(ctx context.Context, id int64) error
}

type TransactionStore interface {
	List(ctx context.Context, opts core.ListOptions) ([]core.Transaction, error)
	ListForRange(ctx context.Context, start, end string) ([]core.Transaction, error)
	Get(ctx context.Context, id int64) (core.Transaction, error)
	Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	Update(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error)
	Delete(ctx context.Context, id int64) error
}

type SummaryStore interface {
	MonthlyTotals(ctx context.Context, opts core.MonthOptions) (core.MonthlyTotals, error)
	MonthlyTotalsByCategory(ctx context.Context, opts core.MonthOptions) ([]core.CategoryMonthlyTotal, error)
}

// EventPublisher delivers change notifications; *amqp.Publisher implements it.
type EventPublisher interface {
	Publish(ctx context.Context, event amqp.LedgerEvent) error
}

// Options carries the optional collaborators of a Ledger. Zero values get defaults.
type Options struct {
	Cache     cache.Cache[core.MonthSummary]
	Events    EventPublisher
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	ListLimit int
	Now       func() time.Time
}

// Ledger is the entry point used by presentation code. It forwards to the
// repositories, keeps the month summary cache coherent with writes and
// announces committed writes as events.
type Ledger struct {
	categories   CategoryStore
	transactions TransactionStore
	summaries    SummaryStore

	cache      cache.Cache[core.MonthSummary]
	group      singleflight.Group
	generation atomic.Uint64
	// mu orders cache fills against invalidation
	mu sync.Mutex

	events    EventPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger
	listLimit int
	now       func() time.Time
}

func NewLedger(categories CategoryStore, transactions TransactionStore, summaries SummaryStore, opts Options) *Ledger {
	l := &Ledger{
		categories:   categories,
		transactions: transactions,
		summaries:    summaries,
		cache:        opts.Cache,
		events:       opts.Events,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		listLimit:    opts.ListLimit,
		now:          opts.Now,
	}
	if l.cache == nil {
		l.cache = cache.NewLRU[core.MonthSummary](24, 5*time.Minute)
	}
	if l.metrics == nil {
		l.metrics = metrics.New()
	}
	if l.logger == nil {
		l.logger = log.New(log.DefaultConfig())
	}
	l.logger = l.logger.WithComponent(log.ComponentLedger)
	if l.listLimit <= 0 {
		l.listLimit = core.DefaultListLimit
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Metrics exposes the instruments the ledger records into.
func (l *Ledger) Metrics() *metrics.Metrics {
	return l.metrics
}

func (l *Ledger) Categories(ctx context.Context) (cats []core.Category, err error) {
	defer l.observe(ctx, "category.list", time.Now(), &err)
	return l.categories.List(ctx)
}

func (l *Ledger) Category(ctx context.Context, id int64) (cat core.Category, err error) {
	defer l.observe(ctx, "category.get", time.Now(), &err)
	return l.categories.Get(ctx, id)
}

func (l *Ledger) CreateCategory(ctx context.Context, in core.CategoryInput) (cat core.Category, err error) {
	defer l.observe(ctx, "category.create", time.Now(), &err)
	if cat, err = l.categories.Create(ctx, in); err != nil {
		return cat, err
	}
	l.changed(ctx, amqp.Created, amqp.CategoryEntity, cat.ID)
	return cat, nil
}

// UpdateCategory renames or retypes a category. A retype re-signs the
// linked transactions, so cached summaries are dropped.
func (l *Ledger) UpdateCategory(ctx context.Context, id int64, in core.CategoryInput) (cat core.Category, err error) {
	defer l.observe(ctx, "category.update", time.Now(), &err)
	if cat, err = l.categories.Update(ctx, id, in); err != nil {
		return cat, err
	}
	l.changed(ctx, amqp.Updated, amqp.CategoryEntity, cat.ID)
	return cat, nil
}

func (l *Ledger) DeleteCategory(ctx context.Context, id int64) (err error) {
	defer l.observe(ctx, "category.delete", time.Now(), &err)
	if err = l.categories.Delete(ctx, id); err != nil {
		return err
	}
	l.changed(ctx, amqp.Deleted, amqp.CategoryEntity, id)
	return nil
}

// Transactions lists the latest transactions. A zero limit uses the configured default.
func (l *Ledger) Transactions(ctx context.Context, opts core.ListOptions) (txns []core.Transaction, err error) {
	defer l.observe(ctx, "transaction.list", time.Now(), &err)
	if opts.Limit <= 0 {
		opts.Limit = l.listLimit
	}
	return l.transactions.List(ctx, opts)
}

func (l *Ledger) TransactionsInRange(ctx context.Context, start, end string) (txns []core.Transaction, err error) {
	defer l.observe(ctx, "transaction.range", time.Now(), &err)
	return l.transactions.ListForRange(ctx, start, end)
}

func (l *Ledger) Transaction(ctx context.Context, id int64) (txn core.Transaction, err error) {
	defer l.observe(ctx, "transaction.get", time.Now(), &err)
	return l.transactions.Get(ctx, id)
}

func (l *Ledger) CreateTransaction(ctx context.Context, in core.TransactionInput) (txn core.Transaction, err error) {
	defer l.observe(ctx, "transaction.create", time.Now(), &err)
	if txn, err = l.transactions.Create(ctx, in); err != nil {
		return txn, err
	}
	l.changed(ctx, amqp.Created, amqp.TransactionEntity, txn.ID)
	return txn, nil
}

func (l *Ledger) UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) (txn core.Transaction, err error) {
	defer l.observe(ctx, "transaction.update", time.Now(), &err)
	if txn, err = l.transactions.Update(ctx, id, in); err != nil {
		return txn, err
	}
	l.changed(ctx, amqp.Updated, amqp.TransactionEntity, txn.ID)
	return txn, nil
}

func (l *Ledger) DeleteTransaction(ctx context.Context, id int64) (err error) {
	defer l.observe(ctx, "transaction.delete", time.Now(), &err)
	if err = l.transactions.Delete(ctx, id); err != nil {
		return err
	}
	l.changed(ctx, amqp.Deleted, amqp.TransactionEntity, id)
	return nil
}

// MonthSummary returns the totals and the per-category breakdown of the
// selected month. Results are cached per month until the next write, and
// concurrent requests for the same month share one computation.
func (l *Ledger) MonthSummary(ctx context.Context, opts core.MonthOptions) (summary core.MonthSummary, err error) {
	defer l.observe(ctx, "summary.month", time.Now(), &err)

	if opts.Target.IsZero() {
		opts.Target = l.now()
	}
	month := core.MonthBounds(opts.Target)
	key := month.Start[:7]

	if cached, ok := l.cache.Get(key); ok {
		l.metrics.CacheHit()
		return cloneSummary(cached), nil
	}
	l.metrics.CacheMiss()

	// Callers only share a computation started after the last write they
	// could have observed.
	gen := l.generation.Load()
	flight := key + "#" + strconv.FormatUint(gen, 10)

	ch := l.group.DoChan(flight, func() (any, error) {
		s, err := l.computeSummary(context.WithoutCancel(ctx), month, opts)
		if err != nil {
			return core.MonthSummary{}, err
		}
		l.mu.Lock()
		if l.generation.Load() == gen {
			l.cache.Set(key, s)
		}
		l.mu.Unlock()
		return s, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return core.MonthSummary{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return core.MonthSummary{}, res.Err
	}
	if res.Shared {
		l.logger.DebugContext(ctx, "Month summary shared with concurrent caller", log.FieldMonth, key)
	}
	return cloneSummary(res.Val.(core.MonthSummary)), nil
}

func (l *Ledger) computeSummary(ctx context.Context, month core.DateRange, opts core.MonthOptions) (core.MonthSummary, error) {
	s := core.MonthSummary{Month: month}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		totals, err := l.summaries.MonthlyTotals(gctx, opts)
		s.Totals = totals
		return err
	})
	g.Go(func() error {
		rows, err := l.summaries.MonthlyTotalsByCategory(gctx, opts)
		s.ByCategory = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthSummary{}, err
	}
	return s, nil
}

// changed invalidates cached summaries and publishes the event. Publishing
// is best effort: the write has already committed.
func (l *Ledger) changed(ctx context.Context, kind amqp.Kind, entity amqp.Entity, id int64) {
	l.mu.Lock()
	l.generation.Add(1)
	n := l.cache.Purge()
	l.mu.Unlock()
	if n > 0 {
		l.logger.DebugContext(ctx, "Summary cache purged", log.FieldCount, n)
	}

	if l.events == nil {
		l.metrics.EventPublished("skipped")
		return
	}

	event := amqp.NewLedgerEvent(kind, entity, id)
	if err := l.events.Publish(ctx, event); err != nil {
		l.metrics.EventPublished("error")
		l.logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEventID, event.ID,
			log.FieldError, err)
		return
	}
	l.metrics.EventPublished("ok")
}

func (l *Ledger) observe(ctx context.Context, op string, start time.Time, errp *error) {
	err := *errp
	l.metrics.ObserveStorage(op, time.Since(start), err)
	if err != nil {
		l.logger.OperationFailed(ctx, op, err, isExpected(err), log.FieldErrorType, errorType(err))
	}
}

// isExpected separates caller mistakes from failures of the store.
func isExpected(err error) bool {
	return errors.Is(err, core.ErrValidation) ||
		errors.Is(err, core.ErrDuplicateName) ||
		errors.Is(err, core.ErrNotFound)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation):
		return log.ErrorTypeValidation
	case errors.Is(err, core.ErrDuplicateName):
		return log.ErrorTypeConflict
	case errors.Is(err, core.ErrNotFound):
		return log.ErrorTypeNotFound
	case errors.Is(err, core.ErrStorage):
		return log.ErrorTypeDatabase
	default:
		return log.ErrorTypeInternal
	}
}

func cloneSummary(s core.MonthSummary) core.MonthSummary {
	s.ByCategory = slices.Clone(s.ByCategory)
	return s
}
