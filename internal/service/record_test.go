package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/deppfellow/nginx-log-sink/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

const combinedLine = `10.0.0.7 - - [01/Mar/2024:11:59:59 +0000] "GET /api/cart HTTP/1.1" 502 157 "-" "Go-http-client/1.1"`

func TestBuildPubSubRecord_TextPayload(t *testing.T) {
	entry := `{
		"textPayload": ` + mustJSON(t, combinedLine) + `,
		"resource": {"type": "k8s_container", "labels": {
			"cluster_name": "prod-eu", "namespace_name": "shop",
			"pod_name": "web-1", "container_name": "nginx"}}
	}`

	record, err := BuildPubSubRecord([]byte(entry), testNow)
	require.NoError(t, err)

	assert.Equal(t, model.SourcePubSub, record.Source)
	assert.Equal(t, time.UTC, record.Timestamp.Location())
	assert.Equal(t, "prod-eu", record.Cluster)
	assert.Equal(t, "shop", record.Namespace)
	assert.Equal(t, "web-1", record.Pod)
	assert.Equal(t, "nginx", record.Container)
	assert.Equal(t, combinedLine, record.Message)
	assert.JSONEq(t, mustJSON(t, combinedLine), string(record.Payload))
	assert.JSONEq(t, entry, string(record.Raw))

	require.NotNil(t, record.Nginx)
	assert.Equal(t, 502, record.Nginx.Status)
	assert.Equal(t, "/api/cart", record.Nginx.Path)
}

func TestBuildPubSubRecord_JSONPayload(t *testing.T) {
	entry := `{"jsonPayload": {"log": ` + mustJSON(t, combinedLine) + `, "stream": "stdout"},
		"resource": {"labels": {"namespace_name": "shop"}}}`

	record, err := BuildPubSubRecord([]byte(entry), testNow)
	require.NoError(t, err)

	assert.JSONEq(t, `{"log": `+mustJSON(t, combinedLine)+`, "stream": "stdout"}`, string(record.Payload))
	assert.Equal(t, combinedLine, record.Message)
	require.NotNil(t, record.Nginx)
	assert.Equal(t, "", record.Pod)
}

func TestBuildPubSubRecord_NoNginxLine(t *testing.T) {
	record, err := BuildPubSubRecord([]byte(`{"jsonPayload": {"level": "info", "msg": "hi"}}`), testNow)
	require.NoError(t, err)

	assert.Empty(t, record.Message)
	assert.Nil(t, record.Nginx)
	assert.Zero(t, record.Status())
}

func TestBuildPubSubRecord_Invalid(t *testing.T) {
	_, err := BuildPubSubRecord([]byte(`not json`), testNow)
	assert.Error(t, err)

	_, err = BuildPubSubRecord([]byte(`["array"]`), testNow)
	assert.Error(t, err)
}

func TestBuildDirectRecord(t *testing.T) {
	body := []byte(`{"pod":"web-2","namespace":"shop","message":` + mustJSON(t, combinedLine) + `}`)
	var direct model.DirectLog
	require.NoError(t, json.Unmarshal(body, &direct))

	record := BuildDirectRecord(body, direct, testNow)

	assert.Equal(t, model.SourceDirect, record.Source)
	assert.Equal(t, "web-2", record.Pod)
	assert.Equal(t, "shop", record.Namespace)
	assert.Equal(t, string(body), string(record.Raw))
	require.NotNil(t, record.Nginx)
	assert.Equal(t, "10.0.0.7", record.Nginx.RemoteAddr)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
