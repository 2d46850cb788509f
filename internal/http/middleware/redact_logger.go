// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the structured access logger. This
// API carries user email addresses in query strings and chat ObjectIDs in
// paths, so the logger scrubs emails and hex ids from logged metadata and
// fully masks the webhook signature headers. Request and response bodies
// are never logged.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
// MaskHeaders lists extra header names (case-insensitive) whose values are
// replaced with "[REDACTED]", merged with the built-in sensitive set
// (Authorization, Cookie, and the svix signature headers).
type RedactOptions struct {
	MaskHeaders []string
}

var (
	redactEmailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Mongo ObjectIDs: 24 hex chars. Redacted so chat ids do not
	// accumulate in logs tied to emails.
	redactHexIDRE = regexp.MustCompile(`(?i)\b[0-9a-f]{24}\b`)
)

// RedactingLogger returns a Gin middleware that logs each request with
// sensitive values scrubbed, attaches a request-scoped logger to the
// context, and picks the log level from the response status (info for 2xx,
// warn for 4xx, error for 5xx).
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization":  {},
		"cookie":         {},
		"svix-signature": {},
		"svix-id":        {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	redact := func(s string) string {
		if s == "" {
			return s
		}
		s = redactEmailRE.ReplaceAllString(s, "[REDACTED:email]")
		return redactHexIDRE.ReplaceAllString(s, "[REDACTED:id]")
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := redact(c.Request.URL.RawQuery)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, masked := maskHeaders[strings.ToLower(k)]; masked {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}

		rid, _ := c.Get(requestIDKey)
		l := log.With().
			Str("request_id", asString(rid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(loggerKey, &l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		ev.
			Str("query", safeQuery).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
