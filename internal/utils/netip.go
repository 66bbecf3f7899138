package utils

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// HostOnly strips an optional port from "ip:port", "[v6]:port" or "host".
func HostOnly(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(s); err == nil {
		return h
	}
	return strings.Trim(s, "[]")
}

// ClientIP resolves the caller's address. Behind a trusted proxy the
// forwarding headers win, in order CF-Connecting-IP, the left-most
// X-Forwarded-For entry, X-Real-IP; otherwise only RemoteAddr counts.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		candidates := []string{
			r.Header.Get("CF-Connecting-IP"),
			firstListed(r.Header.Get("X-Forwarded-For")),
			r.Header.Get("X-Real-IP"),
		}
		for _, c := range candidates {
			if ip := HostOnly(c); ip != "" {
				return ip
			}
		}
	}
	return HostOnly(r.RemoteAddr)
}

func firstListed(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

// PrefixSet matches addresses against single IPs and CIDR prefixes.
type PrefixSet struct {
	prefixes []netip.Prefix
}

// NewPrefixSet parses entries like "10.0.0.0/8" or "192.168.1.4".
// Unparseable entries are skipped.
func NewPrefixSet(entries []string) *PrefixSet {
	s := &PrefixSet{}
	for _, raw := range entries {
		e := strings.TrimSpace(raw)
		if e == "" {
			continue
		}
		if p, err := netip.ParsePrefix(e); err == nil {
			s.prefixes = append(s.prefixes, p.Masked())
			continue
		}
		if a, err := netip.ParseAddr(e); err == nil {
			a = a.Unmap()
			s.prefixes = append(s.prefixes, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return s
}

func (s *PrefixSet) Len() int { return len(s.prefixes) }

// Contains reports whether ip falls in any prefix. Invalid input never matches.
func (s *PrefixSet) Contains(ip string) bool {
	a, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	a = a.Unmap()
	for _, p := range s.prefixes {
		if p.Contains(a) {
			return true
		}
	}
	return false
}
