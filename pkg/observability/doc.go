// Package observability provides structured logging, authentication
// metrics, and panic recovery helpers shared across the service.
package observability
