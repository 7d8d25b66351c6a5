package rfb

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"
)

const (
	// DefaultAddr is the loopback display server this client targets
	DefaultAddr = "127.0.0.1:5900"

	clientVersion = "RFB 003.008\n"
	versionLen    = 12
	serverInitLen = 24
	maxNameLen    = 1024

	securityNone = 1
	msgKeyEvent  = 4

	keysymSpace  = 0x0020
	keysymReturn = 0xff0d
)

var (
	ErrNotAvailable = errors.New("display server not available")
	ErrProtocol     = errors.New("protocol error")
	ErrTimeout      = errors.New("display server timeout")
	ErrNotReady     = errors.New("injector not in ready state")
)

// State is the injector's position in the protocol handshake
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateVersionExchanged
	StateSecurityNegotiated
	StateReady
)

// Options configure one injection attempt
type Options struct {
	Addr     string
	Timeout  time.Duration // per socket operation
	KeyDelay time.Duration // between key events
}

func (o *Options) setDefaults() {
	if o.Addr == "" {
		o.Addr = DefaultAddr
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.KeyDelay <= 0 {
		o.KeyDelay = 30 * time.Millisecond
	}
}

// Injector is a minimal remote-framebuffer client used as the last-resort
// unlock path: it performs the protocol handshake against a local
// no-authentication display server and injects keystrokes. One injector
// owns one connection; it is not safe for concurrent use.
type Injector struct {
	opts  Options
	conn  net.Conn
	state State
}

func New(opts Options) *Injector {
	opts.setDefaults()
	return &Injector{opts: opts}
}

// State returns the current handshake state
func (in *Injector) State() State {
	return in.state
}

// Connect dials the display server. A refused connection means no
// server is listening, reported as ErrNotAvailable.
func (in *Injector) Connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: in.opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", in.opts.Addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	in.conn = conn
	in.state = StateConnected
	return nil
}

// ExchangeVersions reads the server's 12-byte version banner and answers
// with the fixed client version.
func (in *Injector) ExchangeVersions() error {
	if in.state != StateConnected {
		return ErrNotReady
	}

	banner, err := in.recvExact(versionLen)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(string(banner), "RFB ") {
		return fmt.Errorf("%w: unexpected version banner %q", ErrProtocol, banner)
	}

	if err := in.send([]byte(clientVersion)); err != nil {
		return err
	}
	in.state = StateVersionExchanged
	return nil
}

// NegotiateSecurity reads the security type list and selects "None".
// Any server that does not offer it aborts the attempt.
func (in *Injector) NegotiateSecurity() error {
	if in.state != StateVersionExchanged {
		return ErrNotReady
	}

	countBuf, err := in.recvExact(1)
	if err != nil {
		return err
	}
	count := int(countBuf[0])
	if count == 0 {
		// Zero count is the server's way of refusing the connection
		return fmt.Errorf("%w: server refused security negotiation", ErrProtocol)
	}

	types, err := in.recvExact(count)
	if err != nil {
		return err
	}

	hasNone := false
	for _, t := range types {
		if t == securityNone {
			hasNone = true
			break
		}
	}
	if !hasNone {
		return fmt.Errorf("%w: server does not offer security type None", ErrProtocol)
	}

	if err := in.send([]byte{securityNone}); err != nil {
		return err
	}
	in.state = StateSecurityNegotiated
	return nil
}

// Initialize sends ClientInit (shared session) and drains ServerInit
func (in *Injector) Initialize() error {
	if in.state != StateSecurityNegotiated {
		return ErrNotReady
	}

	if err := in.send([]byte{1}); err != nil { // shared=1
		return err
	}

	init, err := in.recvExact(serverInitLen)
	if err != nil {
		return err
	}

	nameLen := binary.BigEndian.Uint32(init[20:24])
	if nameLen > maxNameLen {
		return fmt.Errorf("%w: desktop name length %d", ErrProtocol, nameLen)
	}
	if nameLen > 0 {
		if _, err := in.recvExact(int(nameLen)); err != nil {
			return err
		}
	}

	in.state = StateReady
	return nil
}

// TypePassword injects the password from the Ready state: a leading
// space to dismiss lock-screen widgets, one down/up key event pair per
// character, then Return to submit. The caller keeps ownership of the
// password buffer and wipes it regardless of this call's outcome.
func (in *Injector) TypePassword(password []byte) error {
	if in.state != StateReady {
		return ErrNotReady
	}

	if err := in.pressKey(keysymSpace); err != nil {
		return err
	}
	// Let the password field appear
	time.Sleep(in.opts.KeyDelay * 10)

	for _, c := range password {
		if err := in.pressKey(uint32(c)); err != nil {
			return err
		}
	}

	time.Sleep(in.opts.KeyDelay * 5)
	return in.pressKey(keysymReturn)
}

// Close tears the connection down and resets the state machine
func (in *Injector) Close() {
	if in.conn != nil {
		in.conn.Close()
		in.conn = nil
	}
	in.state = StateDisconnected
}

func (in *Injector) pressKey(keysym uint32) error {
	if err := in.sendKeyEvent(keysym, true); err != nil {
		return err
	}
	time.Sleep(in.opts.KeyDelay)
	if err := in.sendKeyEvent(keysym, false); err != nil {
		return err
	}
	time.Sleep(in.opts.KeyDelay)
	return nil
}

// sendKeyEvent writes one 8-byte KeyEvent message:
// type(1) down(1) padding(2) keysym(4, big endian)
func (in *Injector) sendKeyEvent(keysym uint32, down bool) error {
	msg := make([]byte, 8)
	msg[0] = msgKeyEvent
	if down {
		msg[1] = 1
	}
	binary.BigEndian.PutUint32(msg[4:], keysym)
	return in.send(msg)
}

func (in *Injector) send(data []byte) error {
	if err := in.conn.SetWriteDeadline(time.Now().Add(in.opts.Timeout)); err != nil {
		return fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	if _, err := in.conn.Write(data); err != nil {
		return wrapNetErr(err)
	}
	return nil
}

func (in *Injector) recvExact(n int) ([]byte, error) {
	if err := in.conn.SetReadDeadline(time.Now().Add(in.opts.Timeout)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(in.conn, buf); err != nil {
		return nil, wrapNetErr(err)
	}
	return buf, nil
}

func wrapNetErr(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrProtocol, err)
}
