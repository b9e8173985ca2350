// Package history keeps an append-only record of skill invocations
// per task, one JSON file per task. The log is audit trail only; the
// controller never reads it to make transition decisions.
package history
