// Package connector fetches supplier inventory snapshots.
//
// A Connector returns the full remote snapshot of one supplier. Connectors
// that can also fetch a single item implement ItemFetcher; the orchestrator
// uses it to replay failed item writes with fresh data.
//
// Two implementations are provided:
//   - api: HTTP GET of a JSON snapshot, with status-code classification
//   - file: a JSON or YAML snapshot read from disk on every fetch
package connector
