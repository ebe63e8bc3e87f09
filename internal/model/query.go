package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultAccessLogLimit = 50
	MaxAccessLogLimit     = 500
)

// AccessLogQuery filters the stored records. Zero values mean "no filter".
type AccessLogQuery struct {
	Namespace string    `query:"namespace" validate:"omitempty,max=253"`
	Pod       string    `query:"pod" validate:"omitempty,max=253"`
	Source    string    `query:"source" validate:"omitempty,oneof=pubsub direct"`
	MinStatus int       `query:"min_status" validate:"omitempty,min=100,max=599"`
	MaxStatus int       `query:"max_status" validate:"omitempty,min=100,max=599,gtefield=MinStatus"`
	Since     time.Time `query:"since"`
	Limit     int       `query:"limit" validate:"omitempty,min=1,max=500"`
}

var validate = validator.New()

func (q *AccessLogQuery) Validate() error {
	return validate.Struct(q)
}

// EffectiveLimit applies the default page size.
func (q *AccessLogQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultAccessLogLimit
	}
	if q.Limit > MaxAccessLogLimit {
		return MaxAccessLogLimit
	}
	return q.Limit
}

// GetAccessLogRequest addresses one stored record.
type GetAccessLogRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}

func (r *GetAccessLogRequest) Validate() error {
	return validate.Struct(r)
}

// AccessLogList is the listing response.
type AccessLogList struct {
	Items []LogRecord `json:"items"`
	Count int         `json:"count"`
}
