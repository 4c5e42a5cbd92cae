package analyze

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/querylens/querylens/internal/config"
	"github.com/querylens/querylens/internal/metadata"
	"github.com/querylens/querylens/internal/sqlparse"
	"github.com/querylens/querylens/internal/trace"
)

// Context carries the run-scoped shared state every detector reads:
// the structural-facts cache, the memoized metadata provider and an
// optional diagnostics logger. It is built fresh per analysis run and
// passed explicitly, never held in package state.
type Context struct {
	Facts    *sqlparse.Cache
	Metadata *metadata.CachedProvider
	Logger   *slog.Logger
}

// NewContext builds a run context. provider and logger may be nil; a nil
// logger discards diagnostics without changing behavior.
func NewContext(provider metadata.Provider, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	return &Context{
		Facts:    sqlparse.NewCache(sqlparse.New()),
		Metadata: metadata.NewCached(provider),
		Logger:   logger,
	}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Analyzer is one anti-pattern detector. Analyze re-scans the trace on
// every call and returns the issues it found in scan order; detectors
// hold no state between calls, so two runs over the same trace yield the
// same issues. Analyze must not mutate the trace and must not panic over
// malformed SQL: structural uncertainty means "do not flag".
type Analyzer interface {
	Name() string
	Analyze(ctx *Context, tr *trace.QueryTrace) []Issue
}

// Runner composes the detectors into a fixed-order pipeline and applies
// the cross-analyzer deduplication pass to their combined output.
type Runner struct {
	analyzers []Analyzer
	dedup     *Deduplicator
	logger    *slog.Logger
}

// NewRunner validates the threshold config and builds the standard
// pipeline. An invalid config is a construction-time error; analysis
// never starts with broken thresholds.
func NewRunner(cfg config.AnalysisConfig, logger *slog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis config: %w", err)
	}
	return &Runner{
		analyzers: []Analyzer{
			NewExcessiveJoins(cfg),
			NewJoinOptimization(cfg),
			NewFindAll(cfg),
			NewFlushInLoop(cfg),
			NewBatchClear(cfg),
			NewIneffectiveLike(cfg),
			NewLimitWithCollectionJoin(cfg),
			NewInjection(cfg),
			NewRepeatedQuery(cfg),
		},
		dedup:  NewDeduplicator(),
		logger: logger,
	}, nil
}

// Analyzers returns the pipeline order.
func (r *Runner) Analyzers() []Analyzer { return r.analyzers }

// Run executes every detector against the trace and returns the
// deduplicated issues. A detector failing on pathological input is
// logged and skipped; it never suppresses the findings of the others.
func (r *Runner) Run(tr *trace.QueryTrace, provider metadata.Provider) []Issue {
	ctx := NewContext(provider, r.logger)
	var issues []Issue
	for _, a := range r.analyzers {
		issues = append(issues, r.runOne(ctx, a, tr)...)
	}
	return r.dedup.Deduplicate(issues)
}

func (r *Runner) runOne(ctx *Context, a Analyzer, tr *trace.QueryTrace) (issues []Issue) {
	defer func() {
		if rec := recover(); rec != nil {
			ctx.Logger.Warn("analyzer failed, skipping",
				slog.String("analyzer", a.Name()),
				slog.Any("error", rec))
			issues = nil
		}
	}()
	return a.Analyze(ctx, tr)
}

// guardQuery runs fn for a single query and recovers from structural
// parsing blowups, so one unparseable statement cannot abort the scan of
// the rest of the trace. It returns false when fn panicked.
func guardQuery(ctx *Context, analyzer string, sql string, fn func()) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			ok = false
			ctx.Logger.Warn("failed to parse query, skipping",
				slog.String("analyzer", analyzer),
				slog.String("sql", truncate(sql, 200)),
				slog.Any("error", rec))
		}
	}()
	fn()
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
