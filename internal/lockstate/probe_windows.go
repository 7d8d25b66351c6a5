//go:build windows

package lockstate

import (
	"context"
	"strings"
)

func platformSignals() []Signal {
	return []Signal{
		{Name: "no-active-console-session", Check: checkNoActiveConsoleSession},
		{Name: "logonui-running", Check: checkLogonUIRunning},
	}
}

// checkNoActiveConsoleSession reports locked when quser finds no active
// console session
func checkNoActiveConsoleSession(ctx context.Context, run Runner) (bool, error) {
	out, err := run(ctx, "quser")
	if err != nil {
		// quser exits non-zero when nobody is logged on
		return true, nil
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(strings.ToLower(line), "active") {
			return false, nil
		}
	}
	return true, nil
}

// checkLogonUIRunning reports locked when the lock-screen process exists
func checkLogonUIRunning(ctx context.Context, run Runner) (bool, error) {
	out, err := run(ctx, "tasklist", "/FI", "IMAGENAME eq LogonUI.exe", "/NH")
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "LogonUI.exe"), nil
}
