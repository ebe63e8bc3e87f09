// Package model holds the records the sink receives, normalises and stores.
package model
