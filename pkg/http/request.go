package http

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// IPConfig holds the proxies whose forwarding headers are believed
type IPConfig struct {
	trusted []*net.IPNet
}

// NewIPConfig parses trusted proxy entries. Each entry is a CIDR range or a bare IP.
func NewIPConfig(trustedProxies []string) (*IPConfig, error) {
	cfg := &IPConfig{trusted: make([]*net.IPNet, 0, len(trustedProxies))}

	for _, entry := range trustedProxies {
		if _, ipNet, err := net.ParseCIDR(entry); err == nil {
			cfg.trusted = append(cfg.trusted, ipNet)
			continue
		}

		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", entry)
		}
		bits := 128
		if ip.To4() != nil {
			ip = ip.To4()
			bits = 32
		}
		cfg.trusted = append(cfg.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}

	return cfg, nil
}

// isTrusted reports whether ip belongs to a trusted proxy
func (c *IPConfig) isTrusted(ip string) bool {
	if c == nil || len(c.trusted) == 0 {
		return false
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}

	for _, ipNet := range c.trusted {
		if ipNet.Contains(parsed) {
			return true
		}
	}
	return false
}

// ExtractClientIP returns the address sessions are bound to.
//
// Forwarding headers are only read when the direct peer is a trusted proxy.
// X-Forwarded-For is walked from the right and the first hop that is not itself
// a trusted proxy wins, so a client cannot choose its own address by prepending
// entries.
func ExtractClientIP(r *http.Request, config *IPConfig) string {
	remoteIP := getRemoteAddr(r)

	if !config.isTrusted(remoteIP) {
		return remoteIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		leftmost := ""
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if !isValidIP(hop) {
				continue
			}
			if !config.isTrusted(hop) {
				return hop
			}
			leftmost = hop
		}
		if leftmost != "" {
			return leftmost
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); isValidIP(xri) {
		return xri
	}

	return remoteIP
}

// BearerToken returns the token from an "Authorization: Bearer" header, or ""
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// getRemoteAddr extracts the IP address from RemoteAddr (removing port if present)
func getRemoteAddr(r *http.Request) string {
	if r.RemoteAddr != "" {
		if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return ip
		}
		return r.RemoteAddr
	}
	return "unknown"
}

func isValidIP(ip string) bool {
	return net.ParseIP(ip) != nil
}
