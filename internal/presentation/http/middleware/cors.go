package middleware

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sangkips/pos-engine/internal/config"
)

// registerHeaders are the request headers every register client sends
var registerHeaders = []string{"Authorization", "Content-Type", IdempotencyKeyHeader, RequestIDHeader}

// CORSMiddleware allows the register front end to call the API. Configured
// headers are merged with the ones checkout and auth depend on, and the
// replay and rate limit headers are exposed so the client can read them.
func CORSMiddleware(cfg *config.CORSConfig) gin.HandlerFunc {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     methods,
		AllowHeaders:     mergeHeaders(cfg.AllowedHeaders, registerHeaders),
		ExposeHeaders:    []string{RequestIDHeader, ReplayedHeader, "Retry-After", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func mergeHeaders(configured, required []string) []string {
	out := append([]string(nil), configured...)
	seen := make(map[string]bool, len(out))
	for _, h := range out {
		seen[http.CanonicalHeaderKey(h)] = true
	}
	for _, h := range required {
		if !seen[http.CanonicalHeaderKey(h)] {
			out = append(out, h)
		}
	}
	return out
}
