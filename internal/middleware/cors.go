package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig lists the browser origins allowed to call the API.
// An empty AllowedOrigins disables CORS headers entirely.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int // seconds
}

// DefaultCORSConfig returns the methods and headers the API uses.
func DefaultCORSConfig(origins []string) *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", RequestIDHeader},
		MaxAge:         600,
	}
}

func (c *CORSConfig) allowOrigin(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	for _, allowed := range c.AllowedOrigins {
		switch {
		case allowed == "*":
			return "*", true
		case allowed == origin:
			return origin, true
		case strings.HasPrefix(allowed, "*.") && strings.HasSuffix(origin, allowed[1:]):
			return origin, true
		}
	}
	return "", false
}

// CORS sets Access-Control-* headers for allowed origins and answers
// preflight requests without reaching the router.
func CORS(config *CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(config.AllowedMethods, ", ")
	headers := strings.Join(config.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed, ok := config.allowOrigin(origin)
			if ok {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", allowed)
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				h.Set("Access-Control-Max-Age", maxAge)
				h.Add("Vary", "Origin")
			}

			if ok && r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
