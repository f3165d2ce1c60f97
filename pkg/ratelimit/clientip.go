package ratelimit

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP extracts the caller's address, honoring X-Forwarded-For only when
// the immediate peer address falls inside one of the trusted proxy CIDRs —
// otherwise a spoofed header could be used to dodge rate limiting entirely.
func ClientIP(r *http.Request, trustedProxies []netip.Prefix) string {
	peer := peerAddr(r)

	if len(trustedProxies) > 0 && peer.IsValid() && isTrusted(peer, trustedProxies) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			candidate := strings.TrimSpace(parts[0])
			if addr, err := netip.ParseAddr(candidate); err == nil {
				return addr.String()
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if addr, err := netip.ParseAddr(xri); err == nil {
				return addr.String()
			}
		}
	}

	if peer.IsValid() {
		return peer.String()
	}
	return r.RemoteAddr
}

func peerAddr(r *http.Request) netip.Addr {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, _ := netip.ParseAddr(host)
	return addr
}

func isTrusted(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ParseCIDRs parses a comma-separated list of CIDR blocks, skipping blanks.
func ParseCIDRs(s string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := netip.ParsePrefix(part)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
