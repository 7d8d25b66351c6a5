// Package secstore provides the per-platform opaque-blob keystore behind
// the credential vault.
//
// Two backends implement one Store interface:
//   - OS keyring (Windows Credential Manager, macOS Keychain, freedesktop
//     secret service) via zalando/go-keyring
//   - owner-only files under the service config directory, used when no
//     keyring is reachable
//
// Every blob is additionally sealed in a machine envelope
// (XChaCha20-Poly1305 under an HKDF key derived from a per-host salt
// file) before it reaches a backend, so compromising the backend's
// persistence alone is insufficient.
package secstore
