package lifecycle

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/opensandbox/powercycle/internal/compute"
	"github.com/opensandbox/powercycle/internal/metrics"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultMaxWait      = 10 * time.Minute
)

const (
	outcomeChanged   = "changed"
	outcomeUnchanged = "unchanged"
	outcomeOK        = "ok"
	outcomeFailed    = "failed"
)

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	PollInterval time.Duration // time between state reads while waiting (0 = 3s)
	MaxWait      time.Duration // give up waiting after this long (0 = 10m, <0 = no bound)
	Out          io.Writer     // operator-facing report lines
	Logger       *log.Logger
}

// Controller drives a single instance to the state an Operation asks for.
// It never trusts an earlier reading: every decision is made on a fresh
// Observe call.
type Controller struct {
	interval time.Duration
	maxWait  time.Duration
	logger   *log.Logger

	outMu sync.Mutex
	out   io.Writer
}

// NewController creates a lifecycle controller.
func NewController(cfg ControllerConfig) *Controller {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxWait := cfg.MaxWait
	if maxWait == 0 {
		maxWait = DefaultMaxWait
	}
	out := cfg.Out
	if out == nil {
		out = io.Discard
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		interval: interval,
		maxWait:  maxWait,
		logger:   logger.WithPrefix("lifecycle"),
		out:      out,
	}
}

// Run dispatches op against h.
func (c *Controller) Run(ctx context.Context, op Operation, h compute.Handle) error {
	switch op {
	case OpStart:
		return c.Start(ctx, h)
	case OpStop:
		return c.Stop(ctx, h)
	case OpStatus:
		return c.Status(ctx, h)
	}
	return fmt.Errorf("unknown operation %q", op)
}

// Start brings h to running. An instance that is already running is reported
// and left alone.
func (c *Controller) Start(ctx context.Context, h compute.Handle) error {
	return c.ensure(ctx, OpStart, h, h.IssueStart, "Instance %s is running")
}

// Stop brings h to stopped. An instance that is already stopped is reported
// and left alone.
func (c *Controller) Stop(ctx context.Context, h compute.Handle) error {
	return c.ensure(ctx, OpStop, h, h.IssueStop, "Instance %s stopped")
}

// Status reports the current state of h. It never issues a command.
func (c *Controller) Status(ctx context.Context, h compute.Handle) error {
	began := time.Now()
	outcome := outcomeFailed
	defer func() { metrics.ObserveOperation(OpStatus.String(), outcome, time.Since(began)) }()

	state, err := h.Observe(ctx)
	if err != nil {
		return fmt.Errorf("failed to observe %s: %w", h.ID(), err)
	}
	name, err := h.DisplayName(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve name of %s: %w", h.ID(), err)
	}
	c.report("Instance %s is %s", name, state)
	outcome = outcomeOK
	return nil
}

// ensure is the shared observe, command, poll, confirm cycle behind Start and Stop.
func (c *Controller) ensure(ctx context.Context, op Operation, h compute.Handle, issue func(context.Context) error, confirmed string) error {
	began := time.Now()
	outcome := outcomeFailed
	defer func() { metrics.ObserveOperation(op.String(), outcome, time.Since(began)) }()

	target := op.Target()
	state, err := h.Observe(ctx)
	if err != nil {
		return fmt.Errorf("failed to observe %s: %w", h.ID(), err)
	}

	if state == target {
		name, err := h.DisplayName(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve name of %s: %w", h.ID(), err)
		}
		c.report("Instance %s was already %s", name, target)
		outcome = outcomeUnchanged
		return nil
	}
	if state.Final() {
		return fmt.Errorf("cannot %s %s while it is %s: %w", op, h.ID(), state, compute.ErrUnreachableState)
	}

	if err := issue(ctx); err != nil {
		return fmt.Errorf("failed to %s %s: %w", op, h.ID(), err)
	}
	metrics.CommandsTotal.WithLabelValues(op.String()).Inc()
	c.logger.Debug("command issued", "instance", h.ID(), "operation", op, "from", state)

	if err := c.waitFor(ctx, op, h, target); err != nil {
		return err
	}

	name, err := h.DisplayName(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve name of %s: %w", h.ID(), err)
	}
	c.report(confirmed, name)
	outcome = outcomeChanged
	return nil
}

// waitFor reads the state of h every poll interval until it equals target.
// It gives up on ctx cancellation, on the max wait bound, or as soon as the
// instance reaches a state it cannot leave.
func (c *Controller) waitFor(ctx context.Context, op Operation, h compute.Handle, target compute.PowerState) error {
	var expired <-chan time.Time
	if c.maxWait > 0 {
		timer := time.NewTimer(c.maxWait)
		defer timer.Stop()
		expired = timer.C
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	last := compute.StateUnknown
	for {
		state, err := h.Observe(ctx)
		metrics.PollObservationsTotal.WithLabelValues(op.String()).Inc()
		if err != nil {
			return fmt.Errorf("failed to observe %s while waiting for %s: %w", h.ID(), target, err)
		}
		if state == target {
			return nil
		}
		if state.Final() {
			return fmt.Errorf("%s became %s while waiting for %s: %w", h.ID(), state, target, compute.ErrUnreachableState)
		}
		if state != last {
			c.logger.Debug("waiting", "instance", h.ID(), "state", state, "target", target)
			last = state
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("stopped waiting for %s to be %s: %w", h.ID(), target, ctx.Err())
		case <-expired:
			return fmt.Errorf("%s still %s after %s: %w", h.ID(), last, c.maxWait, compute.ErrTimeout)
		case <-ticker.C:
		}
	}
}

func (c *Controller) report(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format+"\n", args...)
}
