package audit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller address recorded on audit entries. Proxy
// headers win over RemoteAddr so entries stay useful behind a load
// balancer; the first X-Forwarded-For hop is taken as the origin.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return strings.TrimSpace(realIP)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}
