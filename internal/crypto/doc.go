// Package crypto provides the cryptographic primitives for the unlock
// credential vault.
//
// Encryption uses AES-256-GCM with:
//   - 32-byte random keys from the system CSPRNG
//   - 12-byte random nonce per encryption operation
//   - Authenticated encryption prevents tampering
//
// Key splitting uses the XOR construction: SplitKey draws a fresh random
// k1 and derives k2 = key XOR k1, so either half alone is statistically
// independent of the key. CombineKey inverts the split.
//
// Memory safety:
//   - Use Wipe() to zero sensitive data on every exit path
//   - Use LockMemory()/UnlockMemory() to pin long-lived key material
package crypto
