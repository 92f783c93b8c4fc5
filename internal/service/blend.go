package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dailyblend/blender/internal/announce"
	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/id"
	"github.com/dailyblend/blender/internal/level"
	"github.com/dailyblend/blender/internal/selection"
	"github.com/dailyblend/blender/internal/sse"
	"github.com/dailyblend/blender/internal/store"
)

// Resolver looks up level metadata in the catalog.
type Resolver interface {
	Resolve(ctx context.Context, id domain.LevelID) (*domain.LevelMetadata, error)
}

// Publisher delivers a formatted announcement.
type Publisher interface {
	Publish(ctx context.Context, a *announce.Announcement) error
}

// Stages of a blend cycle, used to label failures.
const (
	StageSelect  = "select"
	StageParse   = "parse"
	StageResolve = "resolve"
	StageFormat  = "format"
	StagePublish = "publish"
)

// StageError records where a blend cycle failed. The wrapped error keeps its
// code, so errors.Is and errors.CodeOf see through it.
type StageError struct {
	RunID string
	Stage string
	Ref   domain.LevelReference
	Err   error
}

func (e *StageError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("blend %s failed: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("blend %s failed for %s: %v", e.Stage, e.Ref, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result describes one completed blend.
type Result struct {
	RunID        string                 `json:"run_id"`
	Selection    domain.Selection       `json:"selection"`
	LevelID      domain.LevelID         `json:"level_id"`
	Announcement *announce.Announcement `json:"announcement"`
}

// BlendService runs blend cycles: select, resolve, format and publish.
type BlendService struct {
	store     store.SelectionStore
	catalog   Resolver
	publisher Publisher
	location  *time.Location
	now       func() time.Time
	events    EventEmitter
	logger    *slog.Logger
}

// NewBlendService creates a blend service. loc decides which calendar day
// "today" is; nil means UTC.
func NewBlendService(st store.SelectionStore, catalog Resolver, publisher Publisher, loc *time.Location, logger *slog.Logger) *BlendService {
	if loc == nil {
		loc = time.UTC
	}
	return &BlendService{
		store:     st,
		catalog:   catalog,
		publisher: publisher,
		location:  loc,
		now:       time.Now,
		events:    noopEmitter{},
		logger:    logger,
	}
}

// SetClock replaces the time source.
func (s *BlendService) SetClock(now func() time.Time) {
	s.now = now
}

// SetEmitter sends blend events to e.
func (s *BlendService) SetEmitter(e EventEmitter) {
	s.events = e
}

// Today returns the current time in the service's location.
func (s *BlendService) Today() time.Time {
	return s.now().In(s.location)
}

// RunDaily performs the scheduled cycle. The selected entry is consumed
// before publishing and is not restored if a later stage fails.
func (s *BlendService) RunDaily(ctx context.Context) (*Result, error) {
	runID := id.NewRunID()
	today := s.Today()
	logger := s.logger.With("run_id", runID, "date", domain.DateKeyFor(today).String())
	s.events.Emit(sse.NewBlendStartedEvent(runID, false))

	sel, err := selection.SelectForToday(ctx, s.store, domain.DateKeyFor(today))
	if err != nil {
		logger.Warn("blend selection failed", "error", err)
		stageErr := &StageError{RunID: runID, Stage: StageSelect, Err: err}
		s.events.Emit(failureEvent(runID, "", stageErr))
		return nil, stageErr
	}
	logger.Info("level selected", "level", sel.Ref, "source", sel.Source)

	return s.blend(ctx, runID, sel, today, logger)
}

// Force blends ref immediately without reading or changing stored state.
func (s *BlendService) Force(ctx context.Context, ref domain.LevelReference) (*Result, error) {
	runID := id.NewRunID()
	logger := s.logger.With("run_id", runID)
	logger.Info("forced blend", "level", ref)
	s.events.Emit(sse.NewBlendStartedEvent(runID, true))

	return s.blend(ctx, runID, domain.Selection{Ref: ref, Source: domain.SourceForce}, s.Today(), logger)
}

// Preview resolves and formats ref without publishing.
func (s *BlendService) Preview(ctx context.Context, ref domain.LevelReference) (*announce.Announcement, error) {
	_, a, err := s.prepare(ctx, "", ref, s.Today())
	return a, err
}

func (s *BlendService) blend(ctx context.Context, runID string, sel domain.Selection, today time.Time, logger *slog.Logger) (*Result, error) {
	levelID, a, err := s.prepare(ctx, runID, sel.Ref, today)
	if err != nil {
		logger.Error("blend failed", "level", sel.Ref, "source", sel.Source, "error", err)
		s.events.Emit(failureEvent(runID, sel.Ref, err))
		return nil, err
	}

	if err := s.publisher.Publish(ctx, a); err != nil {
		logger.Error("blend failed", "level", sel.Ref, "source", sel.Source, "stage", StagePublish, "error", err)
		stageErr := &StageError{RunID: runID, Stage: StagePublish, Ref: sel.Ref, Err: err}
		s.events.Emit(failureEvent(runID, sel.Ref, stageErr))
		return nil, stageErr
	}

	logger.Info("level blended", "level", sel.Ref, "level_id", levelID, "source", sel.Source)
	s.events.Emit(sse.NewBlendPublishedEvent(sse.BlendPublishedEventData{
		RunID:   runID,
		Level:   sel.Ref,
		LevelID: levelID,
		Source:  sel.Source,
		Title:   a.Title,
	}))
	return &Result{RunID: runID, Selection: sel, LevelID: levelID, Announcement: a}, nil
}

// prepare runs the parse, resolve and format stages.
func (s *BlendService) prepare(ctx context.Context, runID string, ref domain.LevelReference, today time.Time) (domain.LevelID, *announce.Announcement, error) {
	levelID, err := level.Parse(ref)
	if err != nil {
		return "", nil, &StageError{RunID: runID, Stage: StageParse, Ref: ref, Err: err}
	}

	meta, err := s.catalog.Resolve(ctx, levelID)
	if err != nil {
		return "", nil, &StageError{RunID: runID, Stage: StageResolve, Ref: ref, Err: err}
	}

	a, err := announce.Format(meta, today)
	if err != nil {
		return "", nil, &StageError{RunID: runID, Stage: StageFormat, Ref: ref, Err: err}
	}
	return levelID, a, nil
}
