// Package rfb implements a minimal remote-framebuffer client that
// injects keystrokes into a local, unauthenticated display server.
// It is the last-resort unlock path: the handshake only proceeds when
// the server offers the "None" security type, and every socket
// operation runs under a deadline so a stalled server cannot hang the
// unlock sequence.
package rfb
