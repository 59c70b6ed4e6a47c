package logger

import (
	"fmt"
	"log/slog"
	"net"
	"strings"
)

// MaskIP hides the host part of an address ("203.0.113.x", "2001:db8:85a3::x")
func MaskIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "[invalid-ip]"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.x", v4[0], v4[1], v4[2])
	}

	// Keep the /48 routing prefix
	masked := make(net.IP, net.IPv6len)
	copy(masked, parsed[:6])
	return masked.String() + "x"
}

// MaskUsername keeps the first character ("a****")
func MaskUsername(username string) string {
	if len(username) <= 1 {
		return strings.Repeat("*", len(username))
	}
	return username[:1] + strings.Repeat("*", len(username)-1)
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the actual value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// IPAttr logs an address in full outside production and masked inside it
func IPAttr(key, ip, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, MaskIP(ip))
	}
	return slog.String(key, ip)
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{"password", "token", "secret", "request_id", "push_id", "auth"}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
