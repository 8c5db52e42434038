package mw

import (
	"net/http"

	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/utils"
)

// AllowOnlyCIDRS allows only specific IPs/CIDRs. If the list is empty, it does NOT filter (passthrough).
// trustProxy should be true when running behind a trusted reverse proxy/tunnel (e.g., cloudflared).
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	set, rejected := utils.NewAddrSet(allowed)
	if len(rejected) > 0 {
		log.Warn("ignoring invalid CIDR allow-list entries", logger.Strings("entries", rejected))
	}
	if set.Empty() {
		log.Debug("AllowOnlyCIDRS: empty allow-list, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := utils.ResolveClient(r, trustProxy)
			if !set.Contains(c.Addr) {
				log.Warn("request rejected by CIDR allow-list",
					logger.String("ip", c.String()),
					logger.String("ip_source", c.Source),
					logger.String("path", r.URL.Path))
				deny(w, http.StatusForbidden, "client address not allowed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
