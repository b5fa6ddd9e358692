// Package api exposes the authentication endpoints over HTTP: login,
// logout, auth check, password reset, group listing, and the websocket
// entry point. Routing is gorilla/mux; every route runs behind the
// token-auth middleware so handlers read the acting identity from the
// request context.
package api
