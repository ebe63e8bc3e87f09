// Package nginx parses nginx access log lines.
//
// Two shapes are understood: the stock "combined" log_format and JSON
// log_formats (escape=json). Anything else is reported as not parsed.
package nginx

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/spf13/cast"
)

// combinedPattern matches
//
//	127.0.0.1 - - [10/Oct/2023:10:30:45 +0000] "GET / HTTP/1.1" 200 612 "-" "Mozilla/5.0..."
//
// anchored at the start of the line; trailing custom fields are ignored.
var combinedPattern = regexp.MustCompile(
	`^(\S+) - (\S+) \[(.*?)\] "(\S+) (\S+) (\S+)" (\d+) (\d+) "(.*?)" "(.*?)"`,
)

// Parse returns the parsed line, or false when it is neither format.
func Parse(line string) (*model.AccessLog, bool) {
	if m := combinedPattern.FindStringSubmatch(line); m != nil {
		return fromCombined(m)
	}

	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "{") {
		var fields map[string]any
		if err := json.Unmarshal([]byte(trimmed), &fields); err == nil {
			return fromJSON(fields), true
		}
	}

	return nil, false
}

// fromCombined rejects the line when status or bytes overflow.
func fromCombined(m []string) (*model.AccessLog, bool) {
	status, err := strconv.Atoi(m[7])
	if err != nil {
		return nil, false
	}
	bytesSent, err := strconv.ParseInt(m[8], 10, 64)
	if err != nil {
		return nil, false
	}

	return &model.AccessLog{
		RemoteAddr:    m[1],
		RemoteUser:    dash(m[2]),
		TimeLocal:     m[3],
		Method:        m[4],
		Path:          m[5],
		Protocol:      m[6],
		Status:        status,
		BodyBytesSent: bytesSent,
		HTTPReferer:   dash(m[9]),
		UserAgent:     m[10],
	}, true
}

// fromJSON maps the variable names nginx users commonly pick in a JSON
// log_format onto AccessLog. Unknown keys survive in Fields.
func fromJSON(fields map[string]any) *model.AccessLog {
	entry := &model.AccessLog{
		RemoteAddr:  first(fields, "remote_addr", "client_ip"),
		RemoteUser:  dash(first(fields, "remote_user")),
		TimeLocal:   first(fields, "time_local", "time_iso8601", "time"),
		Method:      first(fields, "request_method", "method"),
		Path:        first(fields, "request_uri", "uri", "path"),
		Protocol:    first(fields, "server_protocol", "protocol"),
		HTTPReferer: dash(first(fields, "http_referer", "referer")),
		UserAgent:   first(fields, "http_user_agent", "user_agent"),
		Fields:      fields,
	}

	if status, ok := toInt64(fields["status"]); ok {
		entry.Status = int(status)
	}
	for _, key := range []string{"body_bytes_sent", "bytes_sent"} {
		if n, ok := toInt64(fields[key]); ok {
			entry.BodyBytesSent = n
			break
		}
	}

	// $request is "METHOD URI PROTOCOL"; only used to fill gaps.
	if request := first(fields, "request"); request != "" {
		parts := strings.Fields(request)
		if len(parts) == 3 {
			if entry.Method == "" {
				entry.Method = parts[0]
			}
			if entry.Path == "" {
				entry.Path = parts[1]
			}
			if entry.Protocol == "" {
				entry.Protocol = parts[2]
			}
		}
	}

	return entry
}

// toInt64 accepts JSON numbers and numeric strings. Strings are read as
// base 10 so zero-padded values like "0502" are not taken for octal.
func toInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case nil:
		return 0, false
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	n, err := cast.ToInt64E(v)
	return n, err == nil
}

func first(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		if s := cast.ToString(v); s != "" {
			return s
		}
	}
	return ""
}

func dash(s string) string {
	if s == "-" {
		return ""
	}
	return s
}
