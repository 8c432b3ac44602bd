package clientinfo

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		browser string
		os      string
	}{
		{
			name:    "Chrome Windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			browser: BrowserChrome,
			os:      OSWindows,
		},
		{
			name:    "Edge Windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			browser: BrowserEdge,
			os:      OSWindows,
		},
		{
			name:    "Firefox Linux",
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			browser: BrowserFirefox,
			os:      OSLinux,
		},
		{
			name:    "Safari Mac",
			ua:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			browser: BrowserSafari,
			os:      OSMac,
		},
		{
			name:    "Safari iPhone",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
			browser: BrowserSafari,
			os:      OSiOS,
		},
		{
			name:    "Chrome Android",
			ua:      "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			browser: BrowserChrome,
			os:      OSAndroid,
		},
		{
			name:    "curl",
			ua:      "curl/8.4.0",
			browser: BrowserOther,
			os:      OSOther,
		},
		{
			name:    "empty",
			ua:      "",
			browser: BrowserOther,
			os:      OSOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			browser, os := ParseUserAgent(tt.ua)
			assert.Equal(t, tt.browser, browser)
			assert.Equal(t, tt.os, os)
		})
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.5:43210"
	assert.Equal(t, "10.0.0.5", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " , 10.0.0.1")
	assert.Equal(t, "10.0.0.5", ClientIP(req))

	req = httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", ClientIP(req))
}

func TestFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.168.1.10:5000"
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")

	info := FromRequest(req)
	assert.Equal(t, "192.168.1.10", info.IP)
	assert.Equal(t, "Firefox on Linux", info.Summary())
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithInfo(context.Background(), Info{IP: "1.2.3.4", Browser: BrowserEdge, OS: OSMac})
	info, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "1.2.3.4", info.IP)
	assert.Equal(t, "Edge on Mac", info.Summary())
}
