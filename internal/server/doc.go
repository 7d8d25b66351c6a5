// Package server exposes the loopback IPC endpoints consumed by the
// privileged UI component during a remote unlock: pending status,
// gated credential release, and result reporting. It binds a fixed
// localhost port and rate-limits per client.
package server
