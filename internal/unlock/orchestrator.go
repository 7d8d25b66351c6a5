package unlock

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/remotectl/unlockd/internal/crypto"
	"github.com/remotectl/unlockd/internal/history"
	"github.com/remotectl/unlockd/internal/vault"
)

var (
	ErrAttemptInFlight     = errors.New("unlock attempt already in flight")
	ErrAllStrategiesFailed = errors.New("all unlock strategies failed")
)

// State is the orchestrator's position in an unlock attempt
type State int32

const (
	StateIdle State = iota
	StatePendingRequested
	StateCredentialsFetched
	StateAttempting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePendingRequested:
		return "pending-requested"
	case StateCredentialsFetched:
		return "credentials-fetched"
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Prober answers whether the local session is locked
type Prober interface {
	IsLocked(ctx context.Context) bool
}

// Strategy is one way of getting the session unlocked. Attempt returns
// nil when the strategy ran to completion; whether the session actually
// unlocked is always decided by the probe afterwards.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, creds *vault.Credentials) error
}

// Recorder persists attempt outcomes
type Recorder interface {
	Record(a history.Attempt) error
}

// Options tune attempt timing
type Options struct {
	GraceWindow time.Duration // how long after a strategy to wait for the probe to flip
	ProbePoll   time.Duration
	Logger      *slog.Logger
	Recorder    Recorder
}

func (o *Options) setDefaults() {
	if o.GraceWindow <= 0 {
		o.GraceWindow = 8 * time.Second
	}
	if o.ProbePoll <= 0 {
		o.ProbePoll = 500 * time.Millisecond
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Orchestrator drives a single unlock attempt through its strategies.
// One attempt may be in flight per process; a request arriving while an
// attempt runs coalesces into it, since only one credential set exists
// to try.
type Orchestrator struct {
	opts       Options
	session    *Session
	probe      Prober
	strategies []Strategy

	state    atomic.Int32
	inFlight atomic.Bool
}

func NewOrchestrator(session *Session, probe Prober, strategies []Strategy, opts Options) *Orchestrator {
	opts.setDefaults()
	return &Orchestrator{
		opts:       opts,
		session:    session,
		probe:      probe,
		strategies: strategies,
	}
}

// State returns the current attempt state
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// InFlight reports whether an attempt is currently running
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

// Attempt runs one unlock attempt end to end: fetch credentials, try
// each strategy in priority order, and confirm via the lock-state
// probe. Credential or crypto failures abort immediately and clear the
// pending flag; partial key material is never retried.
func (o *Orchestrator) Attempt(ctx context.Context) error {
	if !o.inFlight.CompareAndSwap(false, true) {
		return ErrAttemptInFlight
	}
	defer o.inFlight.Store(false)
	defer o.state.Store(int32(StateIdle))

	o.state.Store(int32(StatePendingRequested))
	o.session.SetPending(true)

	creds, err := o.session.source.FetchCredentials()
	if err != nil {
		o.fail(classifyFetchError(err), "")
		return err
	}
	defer creds.Wipe()
	o.state.Store(int32(StateCredentialsFetched))

	if !o.probe.IsLocked(ctx) {
		o.succeed("session already unlocked", "none")
		return nil
	}

	o.state.Store(int32(StateAttempting))
	for _, s := range o.strategies {
		if err := ctx.Err(); err != nil {
			o.fail("attempt cancelled", s.Name())
			return err
		}

		o.opts.Logger.Info("trying unlock strategy", "strategy", s.Name())
		if err := s.Attempt(ctx, creds); err != nil {
			o.opts.Logger.Warn("unlock strategy failed",
				"strategy", s.Name(), "reason", classifyStrategyError(err))
			continue
		}

		if o.waitUnlocked(ctx) {
			o.succeed("session unlocked", s.Name())
			return nil
		}
		o.opts.Logger.Warn("session still locked after strategy", "strategy", s.Name())
	}

	o.fail("all unlock strategies failed", "")
	return ErrAllStrategiesFailed
}

// waitUnlocked polls the probe until it reports unlocked or the grace
// window elapses.
func (o *Orchestrator) waitUnlocked(ctx context.Context) bool {
	deadline := time.Now().Add(o.opts.GraceWindow)
	for {
		if !o.probe.IsLocked(ctx) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(o.opts.ProbePoll):
		}
	}
}

func (o *Orchestrator) succeed(message, strategy string) {
	o.state.Store(int32(StateSucceeded))
	o.session.ReportResult(true, message)
	o.record(history.Attempt{Outcome: history.OutcomeSucceeded, Strategy: strategy})
	o.opts.Logger.Info("unlock succeeded", "strategy", strategy)
}

func (o *Orchestrator) fail(reason, strategy string) {
	o.state.Store(int32(StateFailed))
	o.session.ReportResult(false, reason)
	o.record(history.Attempt{Outcome: history.OutcomeFailed, Strategy: strategy, Reason: reason})
	o.opts.Logger.Warn("unlock failed", "reason", reason)
}

func (o *Orchestrator) record(a history.Attempt) {
	if o.opts.Recorder == nil {
		return
	}
	if err := o.opts.Recorder.Record(a); err != nil {
		o.opts.Logger.Warn("failed to record unlock attempt", "error", err)
	}
}

// classifyFetchError maps vault and crypto failures to short reason
// strings. Raw error text never reaches external callers, it could
// embed secret fragments.
func classifyFetchError(err error) string {
	switch {
	case errors.Is(err, vault.ErrIncomplete):
		return "stored credentials incomplete"
	case errors.Is(err, vault.ErrCorrupt):
		return "stored credentials corrupt"
	case errors.Is(err, crypto.ErrAuthFailed):
		return "credential decryption failed"
	default:
		return "credential fetch failed"
	}
}

func classifyStrategyError(err error) string {
	switch {
	case errors.Is(err, ErrStrategyUnsupported):
		return "not supported on this platform"
	case errors.Is(err, ErrProviderTimeout):
		return "credential provider did not respond"
	default:
		return "strategy error"
	}
}
