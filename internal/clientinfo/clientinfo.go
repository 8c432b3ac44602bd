// Package clientinfo 提取请求方的 IP 与客户端摘要
package clientinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// 浏览器分类
const (
	BrowserChrome  = "Chrome"
	BrowserFirefox = "Firefox"
	BrowserSafari  = "Safari"
	BrowserEdge    = "Edge"
	BrowserOther   = "Other"
)

// 操作系统分类
const (
	OSWindows = "Windows"
	OSMac     = "Mac"
	OSLinux   = "Linux"
	OSAndroid = "Android"
	OSiOS     = "iOS"
	OSOther   = "Other"
)

// Info 请求方信息
type Info struct {
	IP        string
	UserAgent string
	Browser   string
	OS        string
}

// Summary 客户端摘要，例如 "Chrome on Windows"
func (i Info) Summary() string {
	return i.Browser + " on " + i.OS
}

// FromRequest 从 HTTP 请求中提取客户端信息
func FromRequest(r *http.Request) Info {
	ua := r.UserAgent()
	browser, os := ParseUserAgent(ua)
	return Info{
		IP:        ClientIP(r),
		UserAgent: ua,
		Browser:   browser,
		OS:        os,
	}
}

// ClientIP 优先取 X-Forwarded-For 的第一个地址，否则取对端地址
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// ParseUserAgent 将 User-Agent 归类为浏览器和操作系统
func ParseUserAgent(ua string) (browser, os string) {
	return parseBrowser(ua), parseOS(ua)
}

// Edge 与 Chrome 的 UA 都含 Chrome，Chrome 的 UA 含 Safari，顺序不能调换
func parseBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "Edg/"), strings.Contains(ua, "Edge/"), strings.Contains(ua, "EdgA/"), strings.Contains(ua, "EdgiOS/"):
		return BrowserEdge
	case strings.Contains(ua, "Firefox/"), strings.Contains(ua, "FxiOS/"):
		return BrowserFirefox
	case strings.Contains(ua, "Chrome/"), strings.Contains(ua, "CriOS/"):
		return BrowserChrome
	case strings.Contains(ua, "Safari/"):
		return BrowserSafari
	default:
		return BrowserOther
	}
}

// Android 的 UA 含 Linux，iOS 的 UA 含 Mac OS X
func parseOS(ua string) string {
	switch {
	case strings.Contains(ua, "Android"):
		return OSAndroid
	case strings.Contains(ua, "iPhone"), strings.Contains(ua, "iPad"), strings.Contains(ua, "iPod"):
		return OSiOS
	case strings.Contains(ua, "Windows"):
		return OSWindows
	case strings.Contains(ua, "Macintosh"), strings.Contains(ua, "Mac OS"):
		return OSMac
	case strings.Contains(ua, "Linux"):
		return OSLinux
	default:
		return OSOther
	}
}

type contextKey struct{}

// WithInfo 将客户端信息放入 context
func WithInfo(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, contextKey{}, info)
}

// FromContext 从 context 中读取客户端信息
func FromContext(ctx context.Context) (Info, bool) {
	if ctx == nil {
		return Info{}, false
	}
	info, ok := ctx.Value(contextKey{}).(Info)
	return info, ok
}
