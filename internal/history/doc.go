// Package history keeps a local, append-only log of unlock attempts.
// Entries record when an attempt ran, which strategy handled it and how
// it ended. Credential material never enters the log.
package history
