// Package auth implements the token authentication and credential
// resolution core: multi-field login, opaque bearer token lifecycle, and
// the one-time-code password reset flow.
//
// The package is transport-agnostic. The HTTP and websocket adapters in
// pkg/middleware and pkg/ws extract a raw credential from their transport
// and delegate to the same TokenAuthenticator, so both produce identical
// authorization decisions.
package auth
