package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/utils"
)

// hostPattern is an allowed Host: exact, or "*.example.com" for any subdomain.
type hostPattern struct {
	exact  string
	suffix string // ".example.com" for wildcards
}

func parseHostPatterns(hosts []string) []hostPattern {
	out := make([]hostPattern, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "":
		case strings.HasPrefix(h, "*."):
			out = append(out, hostPattern{suffix: h[1:]})
		default:
			out = append(out, hostPattern{exact: utils.HostOnly(h)})
		}
	}
	return out
}

func (p hostPattern) match(host string) bool {
	if p.suffix != "" {
		return len(host) > len(p.suffix) && strings.HasSuffix(host, p.suffix)
	}
	return host == p.exact
}

// EnforceHost guards mutating ops routes against DNS-rebinding style calls:
// the request Host (port ignored, case-insensitive) must match an allowed
// pattern. An empty list is a passthrough.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	patterns := parseHostPatterns(allowedHosts)
	if len(patterns) == 0 {
		log.Debug("EnforceHost: empty allow-list, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	log.Debug("EnforceHost: initialized", logger.Strings("hosts", allowedHosts))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := strings.ToLower(utils.HostOnly(r.Host))
			for _, p := range patterns {
				if p.match(host) {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Warn("EnforceHost: rejected",
				logger.String("host", r.Host),
				logger.String("path", r.URL.Path))
			w.WriteHeader(http.StatusForbidden)
		})
	}
}
