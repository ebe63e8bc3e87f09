package model

import "net/http"

// AccessLog is a parsed nginx access line.
//
// Lines in the combined format fill the typed fields. Lines logged with a
// JSON log_format also keep every original key in Fields.
type AccessLog struct {
	RemoteAddr    string         `json:"remote_addr"`
	RemoteUser    string         `json:"remote_user,omitempty"`
	TimeLocal     string         `json:"time_local"`
	Method        string         `json:"method"`
	Path          string         `json:"path"`
	Protocol      string         `json:"protocol"`
	Status        int            `json:"status"`
	BodyBytesSent int64          `json:"body_bytes_sent"`
	HTTPReferer   string         `json:"http_referer"`
	UserAgent     string         `json:"user_agent"`
	Fields        map[string]any `json:"fields,omitempty"`
}

// IsServerError reports a status at or above threshold (500 when zero).
func (a *AccessLog) IsServerError(threshold int) bool {
	if a == nil {
		return false
	}
	if threshold <= 0 {
		threshold = http.StatusInternalServerError
	}
	return a.Status >= threshold
}
