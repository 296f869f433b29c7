package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/opensandbox/powercycle/internal/compute"
	"github.com/opensandbox/powercycle/internal/metrics"
)

// FailurePolicy decides what a batch does after one instance fails.
type FailurePolicy int

const (
	// FailFast stops the batch at the first failing instance.
	FailFast FailurePolicy = iota
	// ContinueOnError processes every instance and reports all failures at the end.
	ContinueOnError
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Controller  *Controller
	Session     compute.Session
	Policy      FailurePolicy
	Parallelism int // instances in flight at once (<= 1 = sequential)
	Logger      *log.Logger
}

// Runner applies one operation to a list of instance identifiers, in order.
type Runner struct {
	controller  *Controller
	session     compute.Session
	policy      FailurePolicy
	parallelism int
	guard       *Guard
	logger      *log.Logger
}

// NewRunner creates a batch runner.
func NewRunner(cfg RunnerConfig) *Runner {
	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		controller:  cfg.Controller,
		session:     cfg.Session,
		policy:      cfg.Policy,
		parallelism: parallelism,
		guard:       NewGuard(),
		logger:      logger.WithPrefix("batch"),
	}
}

// Run applies op to every identifier in ids. Under FailFast the first error is
// returned as is; under ContinueOnError all failures are joined.
func (r *Runner) Run(ctx context.Context, ids []string, op Operation) error {
	r.logger.Info("batch started", "operation", op, "instances", len(ids), "parallelism", r.parallelism)

	var errs []error
	if r.parallelism == 1 {
		errs = r.runSequential(ctx, ids, op)
	} else {
		errs = r.runParallel(ctx, ids, op)
	}
	metrics.ObserveBatch(len(errs))

	if len(errs) == 0 {
		r.logger.Info("batch finished", "operation", op, "instances", len(ids))
		return nil
	}
	if r.policy == FailFast {
		return errs[0]
	}
	for _, err := range errs {
		r.logger.Error("instance failed", "err", err)
	}
	return fmt.Errorf("%d of %d instances failed: %w", len(errs), len(ids), errors.Join(errs...))
}

func (r *Runner) runSequential(ctx context.Context, ids []string, op Operation) []error {
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return append(errs, fmt.Errorf("batch interrupted before %s: %w", id, err))
		}
		if err := r.runOne(ctx, id, op); err != nil {
			errs = append(errs, err)
			if r.policy == FailFast {
				return errs
			}
		}
	}
	return errs
}

func (r *Runner) runParallel(ctx context.Context, ids []string, op Operation) []error {
	// Each goroutine owns one slot; Wait orders the writes before the reads.
	results := make([]error, len(ids))

	if r.policy == FailFast {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.parallelism)
		for i, id := range ids {
			if gctx.Err() != nil {
				break
			}
			i, id := i, id
			g.Go(func() error {
				results[i] = r.runOne(gctx, id, op)
				return results[i]
			})
		}
		first := g.Wait()
		if first == nil {
			if err := ctx.Err(); err != nil {
				return []error{fmt.Errorf("batch interrupted: %w", err)}
			}
			return nil
		}
		// Instances already in flight when the first one failed may fail too;
		// they count as failures but the first error leads.
		errs := []error{first}
		for _, err := range results {
			if err != nil && err != first {
				errs = append(errs, err)
			}
		}
		return errs
	}

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			results[i] = r.runOne(ctx, id, op)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// runOne holds the identifier's guard for the whole observe, command, poll,
// confirm cycle so duplicates in the list never overlap.
func (r *Runner) runOne(ctx context.Context, id string, op Operation) error {
	unlock := r.guard.Lock(id)
	defer unlock()

	r.logger.Debug("processing", "instance", id, "operation", op)
	if err := r.controller.Run(ctx, op, r.session.Instance(id)); err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}
	return nil
}
