package service

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/lib/nginx"
	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// BuildPubSubRecord normalises a decoded Cloud Logging entry.
//
// The payload is jsonPayload when present, textPayload otherwise. The nginx
// line is taken from textPayload, then jsonPayload.message, then
// jsonPayload.log (the field the GKE logging agent uses for raw container
// output).
func BuildPubSubRecord(entry []byte, now time.Time) (*model.LogRecord, error) {
	if !gjson.ValidBytes(entry) {
		return nil, fmt.Errorf("log entry is not valid JSON")
	}

	doc := gjson.ParseBytes(entry)
	if !doc.IsObject() {
		return nil, fmt.Errorf("log entry is not a JSON object")
	}

	labels := doc.Get("resource.labels")

	record := &model.LogRecord{
		ID:        uuid.New(),
		Timestamp: now.UTC(),
		Source:    model.SourcePubSub,
		Cluster:   labels.Get("cluster_name").String(),
		Namespace: labels.Get("namespace_name").String(),
		Pod:       labels.Get("pod_name").String(),
		Container: labels.Get("container_name").String(),
		Raw:       json.RawMessage(doc.Raw),
	}

	jsonPayload := doc.Get("jsonPayload")
	textPayload := doc.Get("textPayload")

	switch {
	case jsonPayload.IsObject():
		record.Payload = json.RawMessage(jsonPayload.Raw)
	case textPayload.Exists():
		record.Payload = json.RawMessage(textPayload.Raw)
	}

	for _, path := range []string{"textPayload", "jsonPayload.message", "jsonPayload.log"} {
		if v := doc.Get(path); v.Type == gjson.String && v.String() != "" {
			record.Message = v.String()
			break
		}
	}

	attachNginx(record)
	return record, nil
}

// BuildDirectRecord normalises a sidecar post. body is kept verbatim as the
// raw entry.
func BuildDirectRecord(body []byte, direct model.DirectLog, now time.Time) *model.LogRecord {
	record := &model.LogRecord{
		ID:        uuid.New(),
		Timestamp: now.UTC(),
		Source:    model.SourceDirect,
		Namespace: direct.Namespace,
		Pod:       direct.Pod,
		Message:   direct.Message,
		Raw:       json.RawMessage(body),
	}

	attachNginx(record)
	return record
}

func attachNginx(record *model.LogRecord) {
	if record.Message == "" {
		return
	}
	if parsed, ok := nginx.Parse(record.Message); ok {
		record.Nginx = parsed
	}
}
