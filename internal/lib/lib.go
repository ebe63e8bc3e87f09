// Package lib holds helpers that do not fit strictly into the layered
// packages: the nginx access line parser, background jobs (Redis/Asynq)
// and the Resend email client.
package lib
