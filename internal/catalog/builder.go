package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/llm"
	"github.com/BerylCAtieno/franchise-marketing-advisor/internal/models"
)

const (
	DefaultConcurrency = 4
	DefaultAttempts    = 3
	DefaultBackoff     = time.Second
)

// Builder turns a schema into a catalog. The zero value is not usable:
// Describer must be set.
type Builder struct {
	Describer   Describer
	Concurrency int
	Attempts    int
	Backoff     time.Duration
	// AllowGaps keeps the combinations that were described and reports the
	// rest in BuildReport.Omitted instead of failing the build.
	AllowGaps bool
	// Limit keeps only the first Limit combinations. Zero means all.
	Limit  int
	Logger *slog.Logger
	Now    func() time.Time
}

// Failure is a combination that could not be described.
type Failure struct {
	Key      string `json:"key"`
	Attempts int    `json:"attempts"`
	Err      error  `json:"-"`
}

type BuildReport struct {
	Total     int           `json:"total"`
	Described int           `json:"described"`
	Omitted   []Failure     `json:"omitted,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// BuildError lists every combination the build failed to describe.
type BuildError struct {
	Failures []Failure
}

func (e *BuildError) Error() string {
	keys := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		keys = append(keys, f.Key)
	}
	first := ""
	if len(e.Failures) > 0 && e.Failures[0].Err != nil {
		first = ": " + e.Failures[0].Err.Error()
	}
	return fmt.Sprintf("%v: %d combination(s) not described [%s]%s",
		ErrCatalogBuildFailure, len(e.Failures), strings.Join(keys, ", "), first)
}

func (e *BuildError) Unwrap() error { return ErrCatalogBuildFailure }

func (b *Builder) defaults() {
	if b.Concurrency <= 0 {
		b.Concurrency = DefaultConcurrency
	}
	if b.Attempts <= 0 {
		b.Attempts = DefaultAttempts
	}
	if b.Backoff < 0 {
		b.Backoff = 0
	}
	if b.Logger == nil {
		b.Logger = slog.Default()
	}
	if b.Now == nil {
		b.Now = time.Now
	}
}

// Build describes every combination of schema exactly once.
func (b *Builder) Build(ctx context.Context, schema models.Schema) (*Catalog, *BuildReport, error) {
	if b.Describer == nil {
		return nil, nil, fmt.Errorf("%w: no describer configured", ErrCatalogBuildFailure)
	}
	b.defaults()
	if err := schema.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCatalogBuildFailure, err)
	}

	combos := schema.Combinations()
	if b.Limit > 0 && b.Limit < len(combos) {
		combos = combos[:b.Limit]
	}
	seen := make(map[string]bool, len(combos))
	for _, p := range combos {
		if seen[p.Key()] {
			return nil, nil, fmt.Errorf("%w: schema repeats combination %s", ErrCatalogBuildFailure, p.Key())
		}
		seen[p.Key()] = true
	}

	start := b.Now()
	log := b.Logger.With("combinations", len(combos), "concurrency", b.Concurrency)
	log.Info("building persona catalog")

	results := make([]*models.Persona, len(combos))
	var (
		mu       sync.Mutex
		failures []indexedFailure
		done     atomic.Int64
	)
	step := max(len(combos)/10, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Concurrency)
	for i, p := range combos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, attempts, err := b.describe(gctx, p)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("persona description failed", "key", p.Key(), "attempts", attempts, "error", err)
				mu.Lock()
				failures = append(failures, indexedFailure{i, Failure{Key: p.Key(), Attempts: attempts, Err: err}})
				mu.Unlock()
			} else {
				results[i] = &models.Persona{
					Profile:     p,
					Key:         p.Key(),
					Description: d.Text,
					Tactics:     d.Tactics,
					Source:      d.Source,
					GeneratedAt: b.Now().UTC(),
				}
			}
			if n := done.Add(1); n%int64(step) == 0 {
				log.Info("catalog progress", "done", n)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCatalogBuildFailure, err)
	}

	sort.Slice(failures, func(i, j int) bool { return failures[i].index < failures[j].index })
	report := &BuildReport{Total: len(combos), Elapsed: b.Now().Sub(start)}
	for _, f := range failures {
		report.Omitted = append(report.Omitted, f.Failure)
	}
	if len(failures) > 0 && !b.AllowGaps {
		return nil, report, &BuildError{Failures: report.Omitted}
	}

	personas := make([]models.Persona, 0, len(combos))
	for _, r := range results {
		if r != nil {
			personas = append(personas, *r)
		}
	}
	report.Described = len(personas)
	if len(personas) == 0 {
		return nil, report, &BuildError{Failures: report.Omitted}
	}
	for _, f := range report.Omitted {
		log.Warn("persona omitted from catalog", "key", f.Key, "attempts", f.Attempts)
	}

	c, err := New(schema, start.UTC(), personas)
	if err != nil {
		return nil, report, fmt.Errorf("%w: %v", ErrCatalogBuildFailure, err)
	}
	log.Info("persona catalog built", "described", report.Described, "omitted", len(report.Omitted), "elapsed", report.Elapsed)
	return c, report, nil
}

type indexedFailure struct {
	index int
	Failure
}

// describe retries a single combination with exponential backoff. Rejected
// model errors are not retried.
func (b *Builder) describe(ctx context.Context, p models.StoreProfile) (Description, int, error) {
	var lastErr error
	for attempt := 0; attempt < b.Attempts; attempt++ {
		if attempt > 0 {
			wait := b.Backoff << (attempt - 1)
			if err := sleep(ctx, wait); err != nil {
				return Description{}, attempt, err
			}
		}
		d, err := b.Describer.Describe(ctx, p)
		if err == nil {
			return d, attempt + 1, nil
		}
		lastErr = err
		if llm.IsRejected(err) || ctx.Err() != nil {
			return Description{}, attempt + 1, err
		}
	}
	return Description{}, b.Attempts, lastErr
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
