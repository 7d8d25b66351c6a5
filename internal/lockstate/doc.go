// Package lockstate answers "is the session locked?" from independent
// best-effort platform signals.
//
// Signals are combined with OR semantics: any positive signal means
// locked. A signal whose tool or API is missing simply contributes
// nothing; errors never decide the result. Signal sets are selected per
// platform at build time.
package lockstate
