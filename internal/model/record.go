package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Source tells where a record came from.
type Source string

const (
	SourcePubSub Source = "pubsub"
	SourceDirect Source = "direct"
)

func (s Source) String() string { return string(s) }

// LogRecord is the normalised form of every ingested log entry.
type LogRecord struct {
	ID        uuid.UUID       `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Source    Source          `json:"source"`
	Cluster   string          `json:"cluster,omitempty"`
	Namespace string          `json:"namespace,omitempty"`
	Pod       string          `json:"pod,omitempty"`
	Container string          `json:"container,omitempty"`
	Message   string          `json:"message,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Raw       json.RawMessage `json:"raw_entry"`
	Nginx     *AccessLog      `json:"parsed_nginx,omitempty"`
}

// Status returns the parsed nginx status, zero when the line did not parse.
func (r *LogRecord) Status() int {
	if r.Nginx == nil {
		return 0
	}
	return r.Nginx.Status
}
