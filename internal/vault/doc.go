// Package vault stores the single remote-unlock credential pair with
// defense in depth.
//
// The payload ("username NUL password") is sealed with AES-256-GCM under
// a random key that is split in two: k1 goes to secure storage next to
// the ciphertext, k2 goes to a separate owner-only file. Reading the
// credentials requires both halves; deleting either one makes the vault
// fail closed.
//
// Writes across the two stores are not transactional. A crash mid-write
// can leave an inconsistent vault, which FetchCredentials treats as
// ErrIncomplete rather than returning partial data.
package vault
