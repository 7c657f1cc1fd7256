package router

import (
	"net/http"
	"strings"
)

func middlewareMaintenance(list []string) Middleware {
	endpoints := make(map[string]struct{})
	for _, endpoint := range list {
		endpoint = strings.TrimSpace(endpoint)
		if endpoint == "" {
			continue
		}
		endpoints[endpoint] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			if _, blocked := endpoints[route]; blocked {
				writeJSON(w, ErrorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
