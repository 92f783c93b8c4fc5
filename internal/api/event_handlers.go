package api

import (
	"net/http"

	"github.com/dailyblend/blender/internal/sse"
)

// registerEventRoutes mounts the event stream on the router directly; it is
// a long-lived text/event-stream response, not a huma operation.
func (s *Server) registerEventRoutes(events *sse.Manager) {
	if events == nil {
		return
	}

	stream := sse.NewHandler(events, streamSubject, s.logger)
	s.router.Get("/api/v1/events", func(w http.ResponseWriter, r *http.Request) {
		if _, err := RequireViewer(r.Context()); err != nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		stream.ServeHTTP(w, r)
	})
}

func streamSubject(r *http.Request) (string, bool) {
	claims, err := GetClaims(r.Context())
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}
