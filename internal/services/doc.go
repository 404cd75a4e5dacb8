// Package services implements the HTTP side of the client: the session-bearing request layer, the typed
// backend endpoints, and the Google identity flow.
//
// # Request Layer
//
// [APIService] attaches the session credential from a [TokenSource] as a bearer token, tags every request
// with an X-Request-ID, and applies an optional rate limiter and per-request timeout from config.
//
// Authenticated calls fail fast with [shared.ErrNotAuthenticated] when no credential is held. No request is issued.
//
// A 401 invokes the OnExpired hook and fails with [shared.ErrSessionExpired].
// Other non-2xx responses become a [shared.BackendError] whose message is read from a JSON message or detail field.
// Transport failures wrap [shared.ErrNetwork].
//
// # Backend Endpoints
//
// [BackendService] implements [Backend]: login verification, logout, main data load/save and subcategory CRUD.
// Success flags in response bodies are returned to the caller, which decides how to present them.
//
// # Identity
//
// [IdentityService] runs the Google authorization-code flow and returns the id_token from the token response.
// [DecodeIdentityClaims] reads name and picture from an id_token without verifying it, for display only.
package services
