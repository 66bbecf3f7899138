package discovery

import (
	"net/url"
	"strings"
)

// NormalizeReplicas turns raw registry values into a replica set: each URL is
// trimmed, loses its trailing slashes and must be an absolute http(s) URL with
// a host. Invalid entries are dropped; duplicates keep their first position.
func NormalizeReplicas(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		u, ok := normalizeReplica(r)
		if !ok {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func normalizeReplica(raw string) (string, bool) {
	s := strings.TrimRight(strings.TrimSpace(raw), "/")
	if s == "" {
		return "", false
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	return s, true
}
