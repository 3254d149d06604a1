// Package server implements the static file engine: request path
// resolution with root containment, MIME inference, chunked streaming and
// the plain-text error responses that go with them.
package server
