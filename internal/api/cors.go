package api

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

const (
	corsAllowHeaders  = "Range, Content-Type, Authorization, X-Framecut-Request-Id, X-Framecut-Device-Id"
	corsExposeHeaders = "Content-Range, Accept-Ranges, Content-Length, Content-Type"
	corsAllowMethods  = "GET, HEAD, POST, DELETE, OPTIONS"
)

// CORSAllowlist admits browser origins from localhost and the
// Framecut web app. Denied non-preflight requests are still served,
// just without CORS headers; denied preflights get 403.
func CORSAllowlist() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !isAllowedOrigin(origin) {
				if r.Method == http.MethodOptions {
					WriteError(w, http.StatusForbidden, "origin not allowed", "FORBIDDEN")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Expose-Headers", corsExposeHeaders)

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return false
	}

	host := u.Hostname()
	if host == "localhost" || host == "127.0.0.1" {
		return true
	}

	for _, suffix := range []string{".app.framecut.co", ".app.framecut.local"} {
		if strings.HasSuffix(host, suffix) {
			return isValidSubdomainLabel(strings.TrimSuffix(host, suffix))
		}
	}
	return false
}

// isValidSubdomainLabel accepts a single DNS label: letters, digits,
// and interior hyphens only.
func isValidSubdomainLabel(label string) bool {
	if label == "" || strings.Contains(label, ".") {
		return false
	}
	if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
		return false
	}
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}

// LoopbackGuard rejects requests that do not originate from the local
// machine. Media preview bypasses bearer auth, so it only serves
// loopback clients.
func LoopbackGuard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemoteAddr(r.RemoteAddr) {
				WriteError(w, http.StatusForbidden, "loopback clients only", "FORBIDDEN")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isLoopbackRemoteAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = strings.Trim(addr, "[]")
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
