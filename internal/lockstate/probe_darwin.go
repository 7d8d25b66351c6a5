//go:build darwin

package lockstate

import (
	"context"
	"strings"
)

func platformSignals() []Signal {
	return []Signal{
		{Name: "login-window-console", Check: checkLoginWindowConsole},
		{Name: "screensaver-engine", Check: checkScreenSaverEngine},
	}
}

// checkLoginWindowConsole reports locked when the console is owned by
// root, which is the login window rather than a user session
func checkLoginWindowConsole(ctx context.Context, run Runner) (bool, error) {
	out, err := run(ctx, "stat", "-f", "%Su", "/dev/console")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "root", nil
}

func checkScreenSaverEngine(ctx context.Context, run Runner) (bool, error) {
	_, err := run(ctx, "pgrep", "-x", "ScreenSaverEngine")
	// pgrep exits non-zero when no process matches
	if err != nil {
		return false, nil
	}
	return true, nil
}
