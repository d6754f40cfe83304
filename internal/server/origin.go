// Package server normalizes and validates HTTP origins for WebSocket and
// CORS requests to enforce configured access control.
package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/ryanuber/go-glob"
	log "github.com/sirupsen/logrus"
)

// normalizeOrigins splits configured origins into exact origins and glob
// patterns. A lone "*" allows every origin.
func normalizeOrigins(origins []string) (exact, patterns []string, allowAll bool) {
	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}

		if trimmed == "*" {
			allowAll = true
			continue
		}

		if strings.Contains(trimmed, "*") {
			patterns = append(patterns, strings.TrimRight(strings.ToLower(trimmed), "/"))
			continue
		}

		normalizedOrigin, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warnf("Ignoring invalid origin in configuration: %q", origin)
			continue
		}

		exact = append(exact, normalizedOrigin)
	}

	return exact, patterns, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}

	normalized := strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host)
	return normalized, true
}

// originAllowed reports whether origin matches the configuration.
func originAllowed(origin string) bool {
	if origin == "" {
		return false
	}

	normalizedOrigin, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}

	configMu.RLock()
	defer configMu.RUnlock()

	if allowAllOrigins {
		return true
	}

	if _, exists := allowedOrigins[normalizedOrigin]; exists {
		return true
	}

	for _, pattern := range originPatterns {
		if glob.Glob(pattern, normalizedOrigin) {
			return true
		}
	}
	return false
}

func isOriginAllowed(r *http.Request) bool {
	return originAllowed(r.Header.Get("Origin"))
}

func checkOrigin(r *http.Request) bool {
	if isOriginAllowed(r) {
		return true
	}

	log.Warnf("Blocked WebSocket connection from disallowed origin: %q", r.Header.Get("Origin"))
	return false
}
