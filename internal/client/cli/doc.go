// Package cli implements the interactive field capture client: a REPL over
// the local queue plus the background sync engine. Every command operates on
// durable local state, so the client is fully usable offline; connectivity
// only affects when the queue drains, never whether a capture succeeds.
package cli
