// Package unlock coordinates a remote unlock attempt: it fetches the
// stored credentials, tries each unlock strategy in priority order
// (native session tooling, credential-provider handoff, display-server
// injection) and confirms success through the lock-state probe. Shared
// state between the command layer, the loopback IPC and the background
// consumer is confined to the Session object.
package unlock
