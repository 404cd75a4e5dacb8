// Package server provides HTTP routing, middleware and the Google sign-in callback for the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [BasicRouter] uses [http.ServeMux] internally with method filtering. The first [Middleware] added is the
// outermost wrapper.
//
// # Sign-In Callback
//
// [CallbackHandler] completes the authorization code flow: it checks the state parameter, exchanges the
// code through a [services.IdentityProvider] and sends the resulting id_token through a channel.
// Only the first callback is processed.
//
// [SignIn] ties it together. A temporary server starts on the configured address (localhost:3000 by default),
// the browser is pointed at Google, and the server shuts down once the callback arrives or the wait times out.
// The returned id_token is what the client hands to the backend's login endpoint.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// so a handler can keep its route definitions next to its implementation.
package server
