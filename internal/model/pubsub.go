package model

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// PushRequest is the body Pub/Sub POSTs to a push subscription.
type PushRequest struct {
	Message      PushMessage `json:"message"`
	Subscription string      `json:"subscription"`
}

// PushMessage is a single Pub/Sub message. Data is base64.
type PushMessage struct {
	Data        string            `json:"data"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	MessageID   string            `json:"messageId"`
	PublishTime string            `json:"publishTime"`
}

// HasData reports whether the message carries a payload.
func (m PushMessage) HasData() bool {
	return strings.TrimSpace(m.Data) != ""
}

// Decode returns the raw bytes of Data. Publishers are inconsistent about
// padding and alphabet, so standard, URL-safe and unpadded forms are all
// accepted.
func (m PushMessage) Decode() ([]byte, error) {
	data := strings.TrimSpace(m.Data)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return decoded, nil
		}
	}
	return nil, fmt.Errorf("message data is not valid base64")
}

// DirectLog is what a sidecar posts straight to the sink.
type DirectLog struct {
	Pod       string `json:"pod"`
	Namespace string `json:"namespace"`
	Message   string `json:"message"`
}

// CloudLoggingEntry is the subset of a Cloud Logging LogEntry the sink reads.
type CloudLoggingEntry struct {
	TextPayload string         `json:"textPayload,omitempty"`
	JSONPayload map[string]any `json:"jsonPayload,omitempty"`
	Resource    struct {
		Type   string            `json:"type"`
		Labels map[string]string `json:"labels"`
	} `json:"resource"`
}
