package ws

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// LocalOrigin reports whether origin is empty or names a loopback host.
// Browsers send an Origin header on cross-site requests, so anything else is
// a page the user happens to have open.
func LocalOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func checkOrigin(r *http.Request) bool {
	return LocalOrigin(r.Header.Get("Origin"))
}
