package protection

import (
	"net"
	"strings"
)

// ClientID derives the rate-limit key for a request from its source
// address and the caller's user or session id. The first X-Forwarded-For
// hop wins over the socket address; callers pass an empty forwardedFor
// unless a trusted proxy set it.
func ClientID(remoteAddr, forwardedFor, userID, sessionID string) string {
	ip := ""
	if forwardedFor != "" {
		ip = strings.TrimSpace(strings.Split(forwardedFor, ",")[0])
	}
	if ip == "" {
		ip = remoteAddr
		if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
			ip = host
		}
	}
	if ip == "" {
		ip = "unknown"
	}

	owner := strings.TrimSpace(userID)
	if owner == "" {
		owner = strings.TrimSpace(sessionID)
	}
	if owner == "" {
		owner = "anon"
	}
	return ip + ":" + owner
}
