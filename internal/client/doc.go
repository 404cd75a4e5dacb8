// Package client holds the [Controller], the single owner of the session credential and the selected job id.
//
// # Flow
//
// Credential handling feeds the session-bearing request layer, which feeds the resource operations,
// which notify the view layer:
//
//  1. [Controller.HandleCredential] : identity credential → backend session, then one main data load and one list load
//  2. [Controller.Attach] : wires a [services.APIService] to read the bearer from the controller and report 401s
//  3. Resource operations : LoadMainData, SaveMainData, LoadSubcategories, LoadSubcategoryDetail,
//     SaveSubcategory, DeleteSubcategory
//  4. [Event] notifications to every [Listener]
//
// # Reconciliation
//
// After any mutation the full job list is re-fetched and replaces the old one. With reselect, a previous selection
// that is still present is re-fetched and stays selected. There is no merging and no conflict detection.
//
// # Errors
//
// Every operation reports failure twice: as a Status event carrying [Describe]'s message, and as the returned error.
// A 401 additionally drops the session and emits SessionExpired and LoggedOut.
//
// # Persistence
//
// The optional [SessionStore] lets separate CLI invocations share a login, and the optional [ListCache] keeps a
// local snapshot of the last successful list load (repositories.SessionRepository and
// repositories.SubcategoryCacheRepository).
package client
