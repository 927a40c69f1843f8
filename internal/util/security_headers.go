package util

import (
	"net/http"
	"strings"
)

// WithSecurityHeaders sets response headers for a private JSON and file API.
// Responses are never cached: job data is per-user and download redirects
// point at short-lived presigned URLs. Streamed uploads are served under a
// sandboxing CSP with nosniff so a stored file cannot run in the API origin.
// HSTS is sent on TLS, or on X-Forwarded-Proto=https from a trusted proxy.
func WithSecurityHeaders(trusted *TrustedProxies, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; sandbox")
		h.Set("Cache-Control", "no-store")

		if r.TLS != nil || (trusted.trustsPeer(r) &&
			strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")) {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
