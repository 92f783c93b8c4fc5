package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dailyblend/blender/internal/domain"
)

func (s *Server) registerSelectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getOverride",
		Method:      http.MethodGet,
		Path:        "/api/v1/override",
		Summary:     "Get override",
		Description: "Returns the level forced for the next daily blend, if any",
		Tags:        []string{"Selection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetOverride)

	huma.Register(s.api, huma.Operation{
		OperationID: "setOverride",
		Method:      http.MethodPut,
		Path:        "/api/v1/override",
		Summary:     "Set override",
		Description: "Forces a level for the next daily blend, replacing any previous override",
		Tags:        []string{"Selection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetOverride)

	huma.Register(s.api, huma.Operation{
		OperationID: "listQueue",
		Method:      http.MethodGet,
		Path:        "/api/v1/queue",
		Summary:     "List queue",
		Description: "Returns the date queue in calendar order",
		Tags:        []string{"Selection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListQueue)

	huma.Register(s.api, huma.Operation{
		OperationID: "scheduleLevel",
		Method:      http.MethodPut,
		Path:        "/api/v1/queue/{date}",
		Summary:     "Schedule level",
		Description: "Queues a level for a calendar day, replacing any entry for that day",
		Tags:        []string{"Selection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSchedule)

	huma.Register(s.api, huma.Operation{
		OperationID:   "unscheduleLevel",
		Method:        http.MethodDelete,
		Path:          "/api/v1/queue/{date}",
		Summary:       "Unschedule level",
		Description:   "Removes the queue entry for a calendar day",
		Tags:          []string{"Selection"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleUnschedule)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPool",
		Method:      http.MethodGet,
		Path:        "/api/v1/pool",
		Summary:     "List random pool",
		Description: "Returns the random pool in insertion order",
		Tags:        []string{"Selection"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListPool)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addToPool",
		Method:        http.MethodPost,
		Path:          "/api/v1/pool",
		Summary:       "Add to random pool",
		Description:   "Adds a level to the random pool",
		Tags:          []string{"Selection"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddToPool)

	huma.Register(s.api, huma.Operation{
		OperationID:   "removeFromPool",
		Method:        http.MethodDelete,
		Path:          "/api/v1/pool/{id}",
		Summary:       "Remove from random pool",
		Description:   "Removes one pool entry by ID",
		Tags:          []string{"Selection"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleRemoveFromPool)
}

// === DTOs ===

// LevelBody is the request body of every endpoint that names a level.
type LevelBody struct {
	Level string `json:"level" minLength:"1" maxLength:"2048" doc:"Level download URL on codex.rhythm.cafe"`
}

// LevelInput wraps a level body.
type LevelInput struct {
	Body LevelBody
}

// OverrideResponse contains the pending override.
type OverrideResponse struct {
	Level string `json:"level,omitempty" doc:"Pending override, empty when none"`
}

// OverrideOutput wraps the override response for Huma.
type OverrideOutput struct {
	Body OverrideResponse
}

// QueueEntryResponse is one scheduled level.
type QueueEntryResponse struct {
	Date  string `json:"date" doc:"Calendar day as MM DD"`
	Level string `json:"level" doc:"Level reference"`
}

// QueueResponse lists the date queue.
type QueueResponse struct {
	Entries []QueueEntryResponse `json:"entries"`
}

// QueueOutput wraps the queue response for Huma.
type QueueOutput struct {
	Body QueueResponse
}

// QueueEntryOutput wraps a single scheduled entry for Huma.
type QueueEntryOutput struct {
	Body QueueEntryResponse
}

// DateInput identifies a queue entry by day.
type DateInput struct {
	Date string `path:"date" doc:"Calendar day as MM-DD"`
}

// ScheduleInput contains parameters for scheduling a level.
type ScheduleInput struct {
	Date string `path:"date" doc:"Calendar day as MM-DD"`
	Body LevelBody
}

// PoolEntryResponse is one member of the random pool.
type PoolEntryResponse struct {
	ID      string    `json:"id" doc:"Pool entry ID"`
	Level   string    `json:"level" doc:"Level reference"`
	AddedAt time.Time `json:"added_at" doc:"When the entry was added"`
}

// PoolResponse lists the random pool.
type PoolResponse struct {
	Entries []PoolEntryResponse `json:"entries"`
}

// PoolOutput wraps the pool response for Huma.
type PoolOutput struct {
	Body PoolResponse
}

// PoolEntryOutput wraps a single pool entry for Huma.
type PoolEntryOutput struct {
	Body PoolEntryResponse
}

// PoolEntryIDInput identifies a pool entry.
type PoolEntryIDInput struct {
	ID string `path:"id" doc:"Pool entry ID"`
}

func toQueueEntry(e domain.ScheduledEntry) QueueEntryResponse {
	return QueueEntryResponse{Date: e.Date.String(), Level: string(e.Ref)}
}

func toPoolEntry(e domain.PoolEntry) PoolEntryResponse {
	return PoolEntryResponse{ID: e.ID, Level: string(e.Ref), AddedAt: e.AddedAt}
}

// === Handlers ===

func (s *Server) handleGetOverride(ctx context.Context, _ *struct{}) (*OverrideOutput, error) {
	if _, err := RequireViewer(ctx); err != nil {
		return nil, err
	}

	ref, _, err := s.commands.Override(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}
	return &OverrideOutput{Body: OverrideResponse{Level: string(ref)}}, nil
}

func (s *Server) handleSetOverride(ctx context.Context, input *LevelInput) (*OverrideOutput, error) {
	claims, err := RequireOperator(ctx)
	if err != nil {
		return nil, err
	}

	ref, err := s.commands.SetOverride(ctx, input.Body.Level)
	if err != nil {
		return nil, toAPIError(err)
	}
	s.logger.Info("override set via api", "subject", claims.Subject, "level", ref)
	return &OverrideOutput{Body: OverrideResponse{Level: string(ref)}}, nil
}

func (s *Server) handleListQueue(ctx context.Context, _ *struct{}) (*QueueOutput, error) {
	if _, err := RequireViewer(ctx); err != nil {
		return nil, err
	}

	entries, err := s.commands.ListQueue(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}

	resp := QueueResponse{Entries: make([]QueueEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toQueueEntry(e))
	}
	return &QueueOutput{Body: resp}, nil
}

func (s *Server) handleSchedule(ctx context.Context, input *ScheduleInput) (*QueueEntryOutput, error) {
	claims, err := RequireOperator(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.commands.Schedule(ctx, input.Date, input.Body.Level)
	if err != nil {
		return nil, toAPIError(err)
	}
	s.logger.Info("level scheduled via api", "subject", claims.Subject, "date", entry.Date.String())
	return &QueueEntryOutput{Body: toQueueEntry(entry)}, nil
}

func (s *Server) handleUnschedule(ctx context.Context, input *DateInput) (*struct{}, error) {
	if _, err := RequireOperator(ctx); err != nil {
		return nil, err
	}

	if err := s.commands.Unschedule(ctx, input.Date); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}

func (s *Server) handleListPool(ctx context.Context, _ *struct{}) (*PoolOutput, error) {
	if _, err := RequireViewer(ctx); err != nil {
		return nil, err
	}

	entries, err := s.commands.ListPool(ctx)
	if err != nil {
		return nil, toAPIError(err)
	}

	resp := PoolResponse{Entries: make([]PoolEntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toPoolEntry(e))
	}
	return &PoolOutput{Body: resp}, nil
}

func (s *Server) handleAddToPool(ctx context.Context, input *LevelInput) (*PoolEntryOutput, error) {
	claims, err := RequireOperator(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := s.commands.AddToPool(ctx, input.Body.Level)
	if err != nil {
		return nil, toAPIError(err)
	}
	s.logger.Info("level added to pool via api", "subject", claims.Subject, "entry_id", entry.ID)
	return &PoolEntryOutput{Body: toPoolEntry(entry)}, nil
}

func (s *Server) handleRemoveFromPool(ctx context.Context, input *PoolEntryIDInput) (*struct{}, error) {
	if _, err := RequireOperator(ctx); err != nil {
		return nil, err
	}

	if err := s.commands.RemoveFromPool(ctx, input.ID); err != nil {
		return nil, toAPIError(err)
	}
	return nil, nil
}
