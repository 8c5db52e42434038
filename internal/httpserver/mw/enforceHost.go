package mw

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/linkdesk/internal/logger"
	"github.com/MrSnakeDoc/linkdesk/internal/utils"
)

// EnforceHost allows requests only if r.Host matches one of the allowed hosts.
// Supports wildcard patterns like "*.example.com"; a pattern without a port
// matches the host on any port. If allowedHosts is empty, it acts as a passthrough.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(allowedHosts) == 0 {
		log.Debug("EnforceHost: empty allowedHosts, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, pattern := range allowedHosts {
				if matchHost(r.Host, pattern) {
					next.ServeHTTP(w, r)
					return
				}
			}

			log.Warn("request rejected by host allow-list",
				logger.String("host", r.Host),
				logger.String("path", r.URL.Path))
			deny(w, http.StatusForbidden, "host not allowed")
		})
	}
}

// matchHost checks if host matches pattern (supports wildcard *.example.com)
func matchHost(host, pattern string) bool {
	host = strings.ToLower(host)
	pattern = strings.ToLower(pattern)
	if !strings.Contains(pattern, ":") {
		host = utils.ParseHostNoPort(host)
	}

	if host == pattern {
		return true
	}
	// Wildcard match: *.example.com matches sub.example.com
	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}
	return false
}
