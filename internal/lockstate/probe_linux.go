//go:build linux

package lockstate

import (
	"context"
	"errors"
	"strings"
)

func platformSignals() []Signal {
	return []Signal{
		{Name: "loginctl-locked-hint", Check: checkLoginctlLockedHint},
		{Name: "gnome-screensaver", Check: checkGnomeScreensaver},
		{Name: "freedesktop-screensaver", Check: checkFreedesktopScreensaver},
		{Name: "no-graphical-session", Check: checkNoGraphicalSession},
	}
}

// activeSession returns the first seat/tty session id from loginctl
func activeSession(ctx context.Context, run Runner) (string, error) {
	out, err := run(ctx, "loginctl", "list-sessions", "--no-legend")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "seat") && !strings.Contains(line, "tty") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 0 {
			return fields[0], nil
		}
	}
	return "", errors.New("no active session")
}

func checkLoginctlLockedHint(ctx context.Context, run Runner) (bool, error) {
	session, err := activeSession(ctx, run)
	if err != nil {
		return false, err
	}
	out, err := run(ctx, "loginctl", "show-session", session, "-p", "LockedHint", "--value")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "yes", nil
}

func checkGnomeScreensaver(ctx context.Context, run Runner) (bool, error) {
	out, err := run(ctx, "dbus-send", "--session",
		"--dest=org.gnome.ScreenSaver", "--type=method_call", "--print-reply",
		"/org/gnome/ScreenSaver", "org.gnome.ScreenSaver.GetActive")
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "boolean true"), nil
}

func checkFreedesktopScreensaver(ctx context.Context, run Runner) (bool, error) {
	out, err := run(ctx, "dbus-send", "--session",
		"--dest=org.freedesktop.ScreenSaver", "--type=method_call", "--print-reply",
		"/ScreenSaver", "org.freedesktop.ScreenSaver.GetActive")
	if err != nil {
		return false, err
	}
	return strings.Contains(out, "boolean true"), nil
}

// checkNoGraphicalSession treats "nobody logged in on a display or tty"
// as the login screen being up
func checkNoGraphicalSession(ctx context.Context, run Runner) (bool, error) {
	out, err := run(ctx, "who")
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, ":0") || strings.Contains(line, "tty") {
			return false, nil
		}
	}
	return true, nil
}
