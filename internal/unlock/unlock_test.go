package unlock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/remotectl/unlockd/internal/history"
	"github.com/remotectl/unlockd/internal/vault"
)

type fakeSource struct {
	creds *vault.Credentials
	err   error
	calls atomic.Int32
}

func (f *fakeSource) FetchCredentials() (*vault.Credentials, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	// Fresh copy each call, the orchestrator wipes what it gets
	return &vault.Credentials{
		Username: f.creds.Username,
		Password: append([]byte(nil), f.creds.Password...),
		Domain:   f.creds.Domain,
	}, nil
}

type fakeProbe struct {
	locked atomic.Bool
}

func (f *fakeProbe) IsLocked(ctx context.Context) bool {
	return f.locked.Load()
}

type fakeStrategy struct {
	name  string
	err   error
	calls atomic.Int32
	run   func()
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Attempt(ctx context.Context, creds *vault.Credentials) error {
	f.calls.Add(1)
	if f.run != nil {
		f.run()
	}
	return f.err
}

type memRecorder struct {
	mu       sync.Mutex
	attempts []history.Attempt
}

func (m *memRecorder) Record(a history.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *memRecorder) last(t *testing.T) history.Attempt {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.attempts) == 0 {
		t.Fatal("no attempts recorded")
	}
	return m.attempts[len(m.attempts)-1]
}

func testCreds() *vault.Credentials {
	return &vault.Credentials{Username: "alice", Password: []byte("s3cr3t"), Domain: "HOST"}
}

func quietOpts(rec Recorder) Options {
	return Options{
		GraceWindow: 200 * time.Millisecond,
		ProbePoll:   10 * time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Recorder:    rec,
	}
}

func TestCredentialsForConsumerGatedOnPending(t *testing.T) {
	s := NewSession(&fakeSource{creds: testCreds()})

	if _, err := s.CredentialsForConsumer(); !errors.Is(err, ErrNotPending) {
		t.Fatalf("got %v, want ErrNotPending", err)
	}

	s.SetPending(true)
	creds, err := s.CredentialsForConsumer()
	if err != nil {
		t.Fatalf("CredentialsForConsumer while pending: %v", err)
	}
	if creds.Username != "alice" || string(creds.Password) != "s3cr3t" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}

	s.SetPending(false)
	if _, err := s.CredentialsForConsumer(); !errors.Is(err, ErrNotPending) {
		t.Fatalf("gate reopened after pending cleared: %v", err)
	}
}

func TestAttemptSucceedsWhenStrategyUnlocks(t *testing.T) {
	probe := &fakeProbe{}
	probe.locked.Store(true)

	strat := &fakeStrategy{name: "native", run: func() { probe.locked.Store(false) }}
	rec := &memRecorder{}
	session := NewSession(&fakeSource{creds: testCreds()})
	o := NewOrchestrator(session, probe, []Strategy{strat}, quietOpts(rec))

	if err := o.Attempt(context.Background()); err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}

	if strat.calls.Load() != 1 {
		t.Errorf("strategy ran %d times, want 1", strat.calls.Load())
	}
	if session.IsPending() {
		t.Error("pending flag not cleared after success")
	}
	if res, ok := session.LastResult(); !ok || !res.Success {
		t.Errorf("last result not a success: %+v ok=%v", res, ok)
	}
	if a := rec.last(t); a.Outcome != history.OutcomeSucceeded || a.Strategy != "native" {
		t.Errorf("recorded attempt: %+v", a)
	}
	if o.State() != StateIdle {
		t.Errorf("state after attempt: %v", o.State())
	}
}

func TestAttemptFailsClosedOnVaultError(t *testing.T) {
	probe := &fakeProbe{}
	probe.locked.Store(true)

	strat := &fakeStrategy{name: "native"}
	rec := &memRecorder{}
	session := NewSession(&fakeSource{err: fmt.Errorf("fetch: %w", vault.ErrIncomplete)})
	o := NewOrchestrator(session, probe, []Strategy{strat}, quietOpts(rec))

	err := o.Attempt(context.Background())
	if !errors.Is(err, vault.ErrIncomplete) {
		t.Fatalf("got %v, want ErrIncomplete", err)
	}

	if strat.calls.Load() != 0 {
		t.Error("strategy ran despite credential failure")
	}
	if session.IsPending() {
		t.Error("pending flag not cleared on failure")
	}
	if a := rec.last(t); a.Outcome != history.OutcomeFailed || a.Reason != "stored credentials incomplete" {
		t.Errorf("recorded attempt: %+v", a)
	}
}

func TestAttemptSkipsStrategiesWhenAlreadyUnlocked(t *testing.T) {
	probe := &fakeProbe{} // unlocked
	strat := &fakeStrategy{name: "native"}
	session := NewSession(&fakeSource{creds: testCreds()})
	o := NewOrchestrator(session, probe, []Strategy{strat}, quietOpts(nil))

	if err := o.Attempt(context.Background()); err != nil {
		t.Fatalf("Attempt failed: %v", err)
	}
	if strat.calls.Load() != 0 {
		t.Error("strategy ran although session was already unlocked")
	}
}

func TestAttemptExhaustsStrategies(t *testing.T) {
	probe := &fakeProbe{}
	probe.locked.Store(true)

	s1 := &fakeStrategy{name: "native", err: ErrStrategyUnsupported}
	s2 := &fakeStrategy{name: "rfb"} // runs but session stays locked
	rec := &memRecorder{}
	session := NewSession(&fakeSource{creds: testCreds()})
	o := NewOrchestrator(session, probe, []Strategy{s1, s2}, quietOpts(rec))

	err := o.Attempt(context.Background())
	if !errors.Is(err, ErrAllStrategiesFailed) {
		t.Fatalf("got %v, want ErrAllStrategiesFailed", err)
	}
	if s1.calls.Load() != 1 || s2.calls.Load() != 1 {
		t.Errorf("strategy calls: %d, %d", s1.calls.Load(), s2.calls.Load())
	}
	if res, ok := session.LastResult(); !ok || res.Success {
		t.Errorf("last result: %+v ok=%v", res, ok)
	}
}

func TestSecondAttemptCoalesces(t *testing.T) {
	probe := &fakeProbe{}
	probe.locked.Store(true)

	release := make(chan struct{})
	strat := &fakeStrategy{name: "slow", run: func() {
		<-release
		probe.locked.Store(false)
	}}
	session := NewSession(&fakeSource{creds: testCreds()})
	o := NewOrchestrator(session, probe, []Strategy{strat}, quietOpts(nil))

	done := make(chan error, 1)
	go func() { done <- o.Attempt(context.Background()) }()

	// Wait for the first attempt to get in flight
	for !o.InFlight() {
		time.Sleep(time.Millisecond)
	}

	if err := o.Attempt(context.Background()); !errors.Is(err, ErrAttemptInFlight) {
		t.Fatalf("concurrent attempt: got %v, want ErrAttemptInFlight", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first attempt failed: %v", err)
	}
	if strat.calls.Load() != 1 {
		t.Errorf("strategy ran %d times, want 1", strat.calls.Load())
	}
}

func TestProviderHandoff(t *testing.T) {
	session := NewSession(&fakeSource{creds: testCreds()})
	session.SetPending(true)

	strat := &ProviderHandoff{Session: session, Wait: time.Second}

	go func() {
		time.Sleep(20 * time.Millisecond)
		session.ReportResult(true, "unlocked by provider")
	}()

	if err := strat.Attempt(context.Background(), nil); err != nil {
		t.Fatalf("handoff failed: %v", err)
	}
	if session.IsPending() {
		t.Error("pending flag not cleared by provider report")
	}
}

func TestProviderHandoffTimesOut(t *testing.T) {
	session := NewSession(&fakeSource{creds: testCreds()})
	strat := &ProviderHandoff{Session: session, Wait: 50 * time.Millisecond}

	err := strat.Attempt(context.Background(), nil)
	if !errors.Is(err, ErrProviderTimeout) {
		t.Fatalf("got %v, want ErrProviderTimeout", err)
	}
}

func TestNativeStrategyUsesRunner(t *testing.T) {
	if len(nativeUnlockCommands()) == 0 {
		strat := &NativeStrategy{}
		if err := strat.Attempt(context.Background(), nil); !errors.Is(err, ErrStrategyUnsupported) {
			t.Fatalf("got %v, want ErrStrategyUnsupported", err)
		}
		return
	}

	var mu sync.Mutex
	var ran [][]string
	strat := &NativeStrategy{Run: func(ctx context.Context, name string, args ...string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		ran = append(ran, append([]string{name}, args...))
		return "", nil
	}}

	if err := strat.Attempt(context.Background(), nil); err != nil {
		t.Fatalf("native strategy failed: %v", err)
	}
	if len(ran) != len(nativeUnlockCommands()) {
		t.Errorf("ran %d commands, want %d", len(ran), len(nativeUnlockCommands()))
	}
}

func TestNativeStrategyAllCommandsFail(t *testing.T) {
	if len(nativeUnlockCommands()) == 0 {
		t.Skip("no native commands on this platform")
	}
	strat := &NativeStrategy{Run: func(ctx context.Context, name string, args ...string) (string, error) {
		return "", errors.New("exec format error")
	}}
	if err := strat.Attempt(context.Background(), nil); err == nil {
		t.Fatal("expected error when every command fails")
	}
}

func TestConsumerDrivesAttempt(t *testing.T) {
	probe := &fakeProbe{} // unlocked, attempt succeeds immediately
	session := NewSession(&fakeSource{creds: testCreds()})
	o := NewOrchestrator(session, probe, nil, quietOpts(nil))
	c := NewConsumer(session, o, 10*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))

	c.Start(context.Background())
	session.SetPending(true)

	deadline := time.After(2 * time.Second)
	for session.IsPending() {
		select {
		case <-deadline:
			t.Fatal("consumer never picked the request up")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if res, ok := session.LastResult(); !ok || !res.Success {
		t.Fatalf("last result: %+v ok=%v", res, ok)
	}
	if !c.Stop(time.Second) {
		t.Fatal("consumer did not stop within the join timeout")
	}
}
