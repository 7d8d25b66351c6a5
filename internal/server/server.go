package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/remotectl/unlockd/internal/unlock"
)

// DefaultAddr is the fixed loopback endpoint the privileged UI
// component polls.
const DefaultAddr = "127.0.0.1:3459"

// Options configure the IPC server
type Options struct {
	Addr      string
	RateLimit rate.Limit // per-client requests per second
	RateBurst int
	Logger    *slog.Logger
}

func (o *Options) setDefaults() {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 20
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 40
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Server is the loopback IPC surface. The trust boundary is localhost
// plus OS process isolation; there is no token scheme on this channel.
type Server struct {
	opts    Options
	session *unlock.Session
	limiter *multiLimiter
	httpSrv *http.Server
}

func New(session *unlock.Session, opts Options) *Server {
	opts.setDefaults()
	s := &Server{
		opts:    opts,
		session: session,
		limiter: newMultiLimiter(opts.RateLimit, opts.RateBurst, 5*time.Minute),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /credential-provider/unlock", s.handlePendingStatus)
	mux.HandleFunc("GET /credential-provider/credentials", s.handleCredentials)
	mux.HandleFunc("POST /credential-provider/result", s.handleResult)
	mux.HandleFunc("POST /credential-provider/request", s.handleRequest)

	s.httpSrv = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.rateLimit(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the routing stack for tests
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe blocks until Shutdown or a listener error
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	s.opts.Logger.Info("ipc server listening", "addr", ln.Addr().String())
	err = s.httpSrv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) handlePendingStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"unlockPending": s.session.IsPending(),
	})
}

// handleCredentials releases the stored credentials to the provider,
// but only while an unlock is pending.
func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	creds, err := s.session.CredentialsForConsumer()
	if err != nil {
		if errors.Is(err, unlock.ErrNotPending) {
			writeError(w, http.StatusForbidden, "no unlock pending")
			return
		}
		s.opts.Logger.Warn("credential release failed", "error", err)
		writeError(w, http.StatusInternalServerError, "credentials unavailable")
		return
	}
	defer creds.Wipe()

	writeJSON(w, http.StatusOK, map[string]string{
		"username": creds.Username,
		"password": string(creds.Password),
		"domain":   creds.Domain,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed result body")
		return
	}

	s.session.ReportResult(body.Success, body.Error)
	s.opts.Logger.Info("provider reported unlock result", "success", body.Success)
	w.WriteHeader(http.StatusNoContent)
}

// handleRequest is the command channel's entry point: it raises the
// pending flag so the background consumer starts an attempt.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	s.session.SetPending(true)
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
