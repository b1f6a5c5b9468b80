// Package inventory holds the domain model shared by every part of the
// synchronization engine: supplier profiles, runs, conflicts, errors and
// the history ledger.
package inventory
