package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/relay/internal/logger"
	"github.com/MrSnakeDoc/relay/internal/utils"
)

// AllowOnlyCIDRS lets through only callers whose IP falls in one of the
// allowed IPs/CIDRs. An empty list does not filter.
// trustProxy should be true when running behind a trusted reverse proxy/tunnel.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	set := utils.NewPrefixSet(allowed)
	if set.Len() == 0 {
		log.Debug("AllowOnlyCIDRS: empty allow-list, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	log.Debug("AllowOnlyCIDRS: initialized",
		logger.Int("rules", set.Len()),
		logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !set.Contains(ip) {
				log.Warn("AllowOnlyCIDRS: rejected",
					logger.String("ip", ip),
					logger.String("path", r.URL.Path))
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
