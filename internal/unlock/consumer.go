package unlock

import (
	"context"
	"log/slog"
	"time"
)

// Consumer is the background loop in serve mode: it polls the pending
// flag at a sub-second interval and starts an unlock attempt when one
// is requested. It exits on cancellation, with a bounded join at
// shutdown.
type Consumer struct {
	session  *Session
	orch     *Orchestrator
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewConsumer(session *Session, orch *Orchestrator, interval time.Duration, logger *slog.Logger) *Consumer {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		session:  session,
		orch:     orch,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the polling loop
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if !c.session.IsPending() || c.orch.InFlight() {
				continue
			}
			if err := c.orch.Attempt(ctx); err != nil {
				// Already classified and recorded by the orchestrator
				c.logger.Debug("unlock attempt did not succeed")
			}
		}
	}()
}

// Stop cancels the loop and waits up to timeout for it to exit
func (c *Consumer) Stop(timeout time.Duration) bool {
	if c.cancel == nil {
		return true
	}
	c.cancel()
	select {
	case <-c.done:
		return true
	case <-time.After(timeout):
		return false
	}
}
