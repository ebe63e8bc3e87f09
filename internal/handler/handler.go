// Package handler is the HTTP layer.
//
// It parses and validates requests, calls the service layer and shapes the
// JSON responses.
package handler
