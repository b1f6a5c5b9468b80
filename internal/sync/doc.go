// Package sync runs supplier synchronization.
//
// The Orchestrator owns the run state machine
//
//	queued → running → completed | failed | partial
//
// A run is started by the scheduler or an operator, holds its supplier's lock
// for its whole lifetime, and waits for a global concurrency slot while
// queued. Processing fetches the supplier snapshot through its connector,
// classifies every remote item with the detector and then writes clean
// changes through, records conflicts for review (applying the profile's
// automatic resolution when one is configured) and records failures as
// SyncErrors without aborting the run.
//
// Finalization always runs, including after a panic: it derives the terminal
// status, persists the run, appends it to the history ledger, releases the
// supplier lock and records metrics.
//
// The Orchestrator also implements retry.Executor so recorded failures can
// be replayed in isolation.
//
// Time-of-day scheduling lives in the scheduler subpackage.
package sync
