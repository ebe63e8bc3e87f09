// Package errs defines the error shapes the sink returns to HTTP clients.
//
// Every failure leaves the service as an *HTTPError so Pub/Sub, sidecars
// and API callers always see the same JSON body, and so the status code
// alone decides whether a push is redelivered.
package errs
