// Package repositories implements SQLite persistence for the client's local state.
//
// Nothing stored here is authoritative. The backend owns every record; the local database only lets separate
// CLI invocations share a login and lets `jobs list --cached` work offline.
//
// Key Implementations:
//   - [SessionRepository] : the single active session (one row, id = 1)
//   - [SubcategoryCacheRepository] : snapshot of the last fetched job list, replaced wholesale in one transaction
package repositories
