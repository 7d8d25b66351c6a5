package unlock

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/remotectl/unlockd/internal/vault"
)

var ErrNotPending = errors.New("no unlock pending")

// Result is the outcome of the most recent unlock attempt
type Result struct {
	Success bool
	Message string
	When    time.Time
}

// CredentialSource yields the stored unlock credentials
type CredentialSource interface {
	FetchCredentials() (*vault.Credentials, error)
}

// Session is the shared state between the command layer, the background
// consumer and the loopback IPC handlers: the pending flag and the last
// attempt result. One writer per field, any number of readers.
type Session struct {
	source  CredentialSource
	pending atomic.Bool

	mu     sync.Mutex
	last   *Result
	waiter chan Result
}

func NewSession(source CredentialSource) *Session {
	return &Session{source: source}
}

// SetPending marks an unlock request as in progress (or withdraws it)
func (s *Session) SetPending(v bool) {
	s.pending.Store(v)
}

// IsPending reports whether an unlock request is in progress
func (s *Session) IsPending() bool {
	return s.pending.Load()
}

// CredentialsForConsumer releases the stored credentials to the
// privileged UI component. It fails unless an unlock is pending, so
// credentials cannot be pulled outside an authorized request. The
// caller wipes the returned credentials.
func (s *Session) CredentialsForConsumer() (*vault.Credentials, error) {
	if !s.pending.Load() {
		return nil, ErrNotPending
	}
	return s.source.FetchCredentials()
}

// ReportResult records the attempt outcome, clears the pending flag and
// wakes anyone waiting on the result.
func (s *Session) ReportResult(success bool, message string) {
	res := Result{Success: success, Message: message, When: time.Now()}

	s.mu.Lock()
	s.last = &res
	w := s.waiter
	s.waiter = nil
	s.mu.Unlock()

	s.pending.Store(false)
	if w != nil {
		w <- res
	}
}

// LastResult returns the most recent attempt outcome, if any
func (s *Session) LastResult() (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Result{}, false
	}
	return *s.last, true
}

// awaitResult blocks until the next ReportResult or until done is
// closed. Single-in-flight attempts mean at most one waiter at a time.
func (s *Session) awaitResult(done <-chan struct{}) (Result, bool) {
	w := make(chan Result, 1)
	s.mu.Lock()
	s.waiter = w
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.waiter == w {
			s.waiter = nil
		}
		s.mu.Unlock()
	}()

	select {
	case res := <-w:
		return res, true
	case <-done:
		return Result{}, false
	}
}
