// Package service contains the business logic.
//
// It turns decoded requests into normalised log records, flags nginx server
// errors, raises throttled alerts and reads stored records back for the API.
package service
