package nginx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Combined(t *testing.T) {
	line := `127.0.0.1 - - [10/Oct/2023:10:30:45 +0000] "GET /index.html HTTP/1.1" 200 612 "-" "Mozilla/5.0 (X11; Linux x86_64)"`

	got, ok := Parse(line)
	require.True(t, ok)

	assert.Equal(t, "127.0.0.1", got.RemoteAddr)
	assert.Equal(t, "", got.RemoteUser)
	assert.Equal(t, "10/Oct/2023:10:30:45 +0000", got.TimeLocal)
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, "/index.html", got.Path)
	assert.Equal(t, "HTTP/1.1", got.Protocol)
	assert.Equal(t, 200, got.Status)
	assert.Equal(t, int64(612), got.BodyBytesSent)
	assert.Equal(t, "", got.HTTPReferer)
	assert.Equal(t, "Mozilla/5.0 (X11; Linux x86_64)", got.UserAgent)
	assert.Nil(t, got.Fields)
}

func TestParse_CombinedWithUserAndReferer(t *testing.T) {
	line := `10.0.0.7 - alice [10/Oct/2023:10:30:45 +0000] "POST /api/orders HTTP/2.0" 502 0 "https://shop.example.com/cart" "curl/8.4.0" rt=0.012`

	got, ok := Parse(line)
	require.True(t, ok)

	assert.Equal(t, "alice", got.RemoteUser)
	assert.Equal(t, 502, got.Status)
	assert.Equal(t, "https://shop.example.com/cart", got.HTTPReferer)
	assert.True(t, got.IsServerError(0))
}

func TestParse_JSON(t *testing.T) {
	line := `  {"remote_addr":"10.1.2.3","request":"DELETE /items/9 HTTP/1.1","status":"503","body_bytes_sent":"17","http_user_agent":"Go-http-client/1.1","http_referer":"-","upstream":"api:8080"}`

	got, ok := Parse(line)
	require.True(t, ok)

	assert.Equal(t, "10.1.2.3", got.RemoteAddr)
	assert.Equal(t, "DELETE", got.Method)
	assert.Equal(t, "/items/9", got.Path)
	assert.Equal(t, "HTTP/1.1", got.Protocol)
	assert.Equal(t, 503, got.Status)
	assert.Equal(t, int64(17), got.BodyBytesSent)
	assert.Equal(t, "", got.HTTPReferer)
	assert.Equal(t, "Go-http-client/1.1", got.UserAgent)
	assert.Equal(t, "api:8080", got.Fields["upstream"])
}

func TestParse_JSONNumericStatus(t *testing.T) {
	got, ok := Parse(`{"status":404,"request_method":"GET","request_uri":"/missing"}`)
	require.True(t, ok)

	assert.Equal(t, 404, got.Status)
	assert.Equal(t, "GET", got.Method)
	assert.Equal(t, "/missing", got.Path)
	assert.False(t, got.IsServerError(500))
}

func TestParse_JSONZeroPaddedStrings(t *testing.T) {
	got, ok := Parse(`{"status":"0502","body_bytes_sent":"010","request":"GET /pay HTTP/1.1"}`)
	require.True(t, ok)

	assert.Equal(t, 502, got.Status)
	assert.Equal(t, int64(10), got.BodyBytesSent)
	assert.True(t, got.IsServerError(0))
}

func TestParse_JSONNonNumericStatus(t *testing.T) {
	got, ok := Parse(`{"status":"-","bytes_sent":"12"}`)
	require.True(t, ok)

	assert.Zero(t, got.Status)
	assert.Equal(t, int64(12), got.BodyBytesSent)
}

func TestParse_Unparseable(t *testing.T) {
	for _, line := range []string{
		"",
		"2023/10/10 10:30:45 [error] 7#7: *1 connect() failed",
		"{not json",
		`127.0.0.1 [10/Oct/2023:10:30:45 +0000] "GET / HTTP/1.1" 200 612`,
		// byte count past int64
		`127.0.0.1 - - [10/Oct/2023:10:30:45 +0000] "GET / HTTP/1.1" 200 99999999999999999999 "-" "curl"`,
	} {
		got, ok := Parse(line)
		assert.False(t, ok, line)
		assert.Nil(t, got, line)
	}
}
