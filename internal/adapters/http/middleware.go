// This file contains HTTP transport layer middleware for security, rate
// limiting, and DDoS protection.
package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

// RateLimitConfig holds configuration for rate limiting.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
	Enabled           bool
}

// DDoSProtectionConfig holds configuration for DDoS protection.
type DDoSProtectionConfig struct {
	MaxRequestSize    int64
	MaxHeaderSize     int
	MaxConcurrentReqs int
	Enabled           bool
}

// SecurityConfig holds all security-related configuration.
type SecurityConfig struct {
	RateLimitEnabled      bool
	RateLimitRPM          string
	RateLimitBurst        string
	DDoSProtectionEnabled bool
	MaxRequestSize        string
	MaxHeaderSize         string
	CORSOrigin            string
}

// SetupSecurityMiddleware configures and applies all security middleware to the router.
func SetupSecurityMiddleware(r *chi.Mux, cfg SecurityConfig, log zerolog.Logger) {
	r.Use(securityHeaders)

	origin := cfg.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	ddosConfig := parseDDoSProtectionConfig(cfg.MaxRequestSize, cfg.MaxHeaderSize)
	ddosConfig.Enabled = cfg.DDoSProtectionEnabled
	r.Use(ddosProtection(ddosConfig, log))

	rateLimitConfig := parseRateLimitConfig(cfg.RateLimitRPM, cfg.RateLimitBurst)
	rateLimitConfig.Enabled = cfg.RateLimitEnabled
	r.Use(rateLimit(rateLimitConfig, log))
}

// rateLimit creates a rate limiting middleware that limits requests per client IP address and endpoint.
func rateLimit(config RateLimitConfig, log zerolog.Logger) func(next http.Handler) http.Handler {
	if !config.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	requestsPerMinute := config.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 100
	}

	burstSize := config.BurstSize
	if burstSize <= 0 {
		burstSize = requestsPerMinute / 5
		if burstSize < 1 {
			burstSize = 1
		}
	}

	limiter := httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			log.Warn().Str("ip", getClientIP(r)).Str("path", r.URL.Path).Msg("rate limit exceeded")

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "60")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded","message":"too many requests, please try again later"}`))
		}),
	)

	return limiter
}

// ddosProtection creates middleware to protect against DDoS attacks.
func ddosProtection(config DDoSProtectionConfig, log zerolog.Logger) func(next http.Handler) http.Handler {
	if !config.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, config.MaxRequestSize)
			}

			if config.MaxHeaderSize > 0 {
				headerSize := 0
				for key, values := range r.Header {
					headerSize += len(key)
					for _, value := range values {
						headerSize += len(value)
					}
				}
				if headerSize > config.MaxHeaderSize {
					log.Warn().Str("ip", getClientIP(r)).Int("header_size", headerSize).Msg("request header too large")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusRequestEntityTooLarge)
					w.Write([]byte(`{"error":"request header too large"}`))
					return
				}
			}

			if isSuspiciousRequest(r) {
				log.Warn().Str("ip", getClientIP(r)).Str("path", r.URL.Path).Str("user_agent", r.UserAgent()).Msg("suspicious request detected")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"suspicious request detected"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// securityHeaders adds security-related HTTP headers to responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'")

		next.ServeHTTP(w, r)
	})
}

// getClientIP extracts the real client IP address from the request.
func getClientIP(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// isSuspiciousRequest checks for common DDoS attack patterns.
func isSuspiciousRequest(r *http.Request) bool {
	userAgent := strings.ToLower(r.UserAgent())
	suspiciousAgents := []string{
		"sqlmap", "nikto", "nmap", "masscan",
		"scanner", "bot", "crawler", "spider",
		"wget", "python-requests",
	}

	if userAgent != "" {
		for _, suspicious := range suspiciousAgents {
			if strings.Contains(userAgent, suspicious) {
				if strings.Contains(userAgent, "googlebot") ||
					strings.Contains(userAgent, "bingbot") {
					continue
				}
				return true
			}
		}
	}

	query := r.URL.RawQuery
	if query != "" {
		queryLower := strings.ToLower(query)
		suspiciousPatterns := []string{
			"union select", "1=1", "1' or '1'='1",
			"drop table", "delete from", "exec(",
			"<script", "javascript:", "onerror=",
		}
		for _, pattern := range suspiciousPatterns {
			if strings.Contains(queryLower, pattern) {
				return true
			}
		}
	}

	if len(r.URL.Path) > 2048 {
		return true
	}

	return false
}

// parseRateLimitConfig parses rate limit configuration from environment variables.
func parseRateLimitConfig(requestsPerMinute, burstSize string) RateLimitConfig {
	config := RateLimitConfig{
		Enabled: true,
	}

	if requestsPerMinute != "" {
		if val, err := strconv.Atoi(requestsPerMinute); err == nil && val > 0 {
			config.RequestsPerMinute = val
		} else {
			config.RequestsPerMinute = 100
		}
	} else {
		config.RequestsPerMinute = 100
	}

	if burstSize != "" {
		if val, err := strconv.Atoi(burstSize); err == nil && val > 0 {
			config.BurstSize = val
		} else {
			config.BurstSize = config.RequestsPerMinute / 5
		}
	} else {
		config.BurstSize = config.RequestsPerMinute / 5
	}

	return config
}

// parseDDoSProtectionConfig parses DDoS protection configuration from environment variables.
func parseDDoSProtectionConfig(maxRequestSize, maxHeaderSize string) DDoSProtectionConfig {
	config := DDoSProtectionConfig{
		Enabled:        true,
		MaxRequestSize: 10 * 1024 * 1024,
		MaxHeaderSize:  8192,
	}

	if maxRequestSize != "" {
		if val, err := strconv.ParseInt(maxRequestSize, 10, 64); err == nil && val > 0 {
			config.MaxRequestSize = val
		}
	}

	if maxHeaderSize != "" {
		if val, err := strconv.Atoi(maxHeaderSize); err == nil && val > 0 {
			config.MaxHeaderSize = val
		}
	}

	return config
}
