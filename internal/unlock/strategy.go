package unlock

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/remotectl/unlockd/internal/lockstate"
	"github.com/remotectl/unlockd/internal/rfb"
	"github.com/remotectl/unlockd/internal/vault"
)

var (
	ErrStrategyUnsupported = errors.New("unlock strategy not supported on this platform")
	ErrProviderTimeout     = errors.New("credential provider did not report a result")
)

// NativeStrategy asks the platform's own session tooling to unlock.
// It runs without credentials: where the OS offers an unlock call at
// all, the call on behalf of a privileged process needs none.
type NativeStrategy struct {
	Run lockstate.Runner // nil means run real commands
}

func (s *NativeStrategy) Name() string { return "native" }

func (s *NativeStrategy) Attempt(ctx context.Context, _ *vault.Credentials) error {
	cmds := nativeUnlockCommands()
	if len(cmds) == 0 {
		return ErrStrategyUnsupported
	}

	run := s.Run
	if run == nil {
		run = execRunner
	}

	var lastErr error
	ran := false
	for _, cmd := range cmds {
		if _, err := run(ctx, cmd[0], cmd[1:]...); err != nil {
			lastErr = err
			continue
		}
		ran = true
	}
	if !ran {
		return fmt.Errorf("native unlock: %w", lastErr)
	}
	return nil
}

// ProviderHandoff hands the attempt to the privileged UI component.
// The component polls the loopback IPC, sees the pending flag, pulls
// the credentials and reports the outcome; this strategy just waits for
// that report within a bounded window.
type ProviderHandoff struct {
	Session *Session
	Wait    time.Duration
}

func (s *ProviderHandoff) Name() string { return "credential-provider" }

func (s *ProviderHandoff) Attempt(ctx context.Context, _ *vault.Credentials) error {
	wait := s.Wait
	if wait <= 0 {
		wait = 15 * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	res, ok := s.Session.awaitResult(wctx.Done())
	if !ok {
		return ErrProviderTimeout
	}
	if !res.Success {
		return fmt.Errorf("credential provider reported failure: %s", res.Message)
	}
	return nil
}

// DisplayInjection types the password into a local unauthenticated
// display server. Strictly the last resort.
type DisplayInjection struct {
	Opts rfb.Options
}

func (s *DisplayInjection) Name() string { return "rfb" }

func (s *DisplayInjection) Attempt(ctx context.Context, creds *vault.Credentials) error {
	return rfb.Inject(ctx, s.Opts, creds.Password)
}

func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return strings.TrimSpace(string(out)), err
}
