package main

import "net/http"

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
	"Access-Control-Allow-Headers": "Content-Type",
}

// allowCrossOrigin adds CORS headers to every response, error responses
// included. The dashboard is served from a different port than this API, so
// browsers require them. Preflight requests are answered here and never reach
// the wrapped handler.
func allowCrossOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, value := range corsHeaders {
			w.Header().Set(name, value)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
