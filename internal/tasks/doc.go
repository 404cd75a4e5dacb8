// Package tasks runs long job operations concurrently with progress reporting.
//
// # Backup
//
// [Engine.Backup] fetches the full record of every given job and writes one file per job plus a manifest:
//   - A bounded worker pool fetches details in parallel, optionally throttled by its own rate limiter
//   - Each record is rendered with the [formatter] package in the requested format
//   - Per-job failures are recorded in the result and do not stop the run
//   - An expired session cancels the remaining work and fails the run with [shared.ErrSessionExpired]
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel.
// Updates use select with default to prevent blocking, so a slow reader only misses updates.
package tasks
