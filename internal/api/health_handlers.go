package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
	NextFire   *time.Time                 `json:"next_fire,omitempty" doc:"When the next daily blend fires"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"store":     s.checkStore(ctx),
		"scheduler": s.checkScheduler(),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	out := &HealthOutput{Body: HealthResponse{Status: overall, Components: components}}
	if s.runner != nil {
		if next := s.runner.NextFire(); !next.IsZero() {
			out.Body.NextFire = &next
		}
	}
	return out, nil
}

// checkStore verifies the selection store answers.
func (s *Server) checkStore(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "store not configured",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := s.store.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "store ping failed",
		}
	}

	return ComponentHealth{
		Status:  "healthy",
		Latency: latency.String(),
	}
}

// checkScheduler reports whether the daily trigger is armed.
func (s *Server) checkScheduler() ComponentHealth {
	if s.runner == nil {
		return ComponentHealth{
			Status:  "degraded",
			Message: "scheduler not configured",
		}
	}

	if s.runner.Running() {
		return ComponentHealth{Status: "healthy", Message: "blend running"}
	}
	if s.runner.NextFire().IsZero() {
		return ComponentHealth{Status: "degraded", Message: "scheduler not armed"}
	}
	return ComponentHealth{Status: "healthy", Message: "idle"}
}
