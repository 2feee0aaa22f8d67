// Package http provides a retrying HTTP client for fetching model outputs
// over plain HTTPS. Transient failures (transport errors, 5xx) are retried
// with exponential backoff and jitter; 4xx errors fail immediately with a
// sentinel error the caller can match.
package http
