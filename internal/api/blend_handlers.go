package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dailyblend/blender/internal/announce"
	"github.com/dailyblend/blender/internal/service"
)

func (s *Server) registerBlendRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Get status",
		Description: "Returns the override, queue and pool sizes and scheduler state",
		Tags:        []string{"Blend"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "forceBlend",
		Method:      http.MethodPost,
		Path:        "/api/v1/force",
		Summary:     "Force blend",
		Description: "Blends a level immediately without touching the queue or pool",
		Tags:        []string{"Blend"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleForce)

	huma.Register(s.api, huma.Operation{
		OperationID: "previewBlend",
		Method:      http.MethodPost,
		Path:        "/api/v1/preview",
		Summary:     "Preview blend",
		Description: "Formats the announcement for a level without publishing it",
		Tags:        []string{"Blend"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePreview)
}

// StatusOutput wraps the selection status for Huma.
type StatusOutput struct {
	Body service.Status
}

// BlendOutput wraps the result of a forced blend for Huma.
type BlendOutput struct {
	Body service.Result
}

// PreviewOutput wraps a formatted announcement for Huma.
type PreviewOutput struct {
	Body announce.Announcement
}

func (s *Server) handleGetStatus(ctx context.Context, _ *struct{}) (*StatusOutput, error) {
	if _, err := RequireViewer(ctx); err != nil {
		return nil, err
	}

	st, err := s.commands.Status(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &StatusOutput{Body: *st}, nil
}

func (s *Server) handleForce(ctx context.Context, input *LevelInput) (*BlendOutput, error) {
	claims, err := RequireOperator(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("forced blend requested via api", "subject", claims.Subject, "level", input.Body.Level)
	res, err := s.commands.Force(ctx, input.Body.Level)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &BlendOutput{Body: *res}, nil
}

func (s *Server) handlePreview(ctx context.Context, input *LevelInput) (*PreviewOutput, error) {
	if _, err := RequireViewer(ctx); err != nil {
		return nil, err
	}

	a, err := s.commands.Preview(ctx, input.Body.Level)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &PreviewOutput{Body: *a}, nil
}
