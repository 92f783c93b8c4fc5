package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dailyblend/blender/internal/announce"
	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/level"
	"github.com/dailyblend/blender/internal/sse"
	"github.com/dailyblend/blender/internal/store"
	"github.com/dailyblend/blender/internal/validation"
)

// Runner executes blend jobs under the scheduler's single-flight guard.
type Runner interface {
	Force(ctx context.Context, job func(context.Context) error) error
	Running() bool
	NextFire() time.Time
}

// levelInput is the payload of every command that names a level.
type levelInput struct {
	Level string `json:"level" validate:"required,max=2048"`
}

// scheduleInput is the payload of the queue command.
type scheduleInput struct {
	Level string `json:"level" validate:"required,max=2048"`
	Date  string `json:"date" validate:"required,datekey"`
}

// dateInput is the payload of the unschedule command.
type dateInput struct {
	Date string `json:"date" validate:"required,datekey"`
}

// Status summarises the selection state for operators.
type Status struct {
	Override  domain.LevelReference `json:"override,omitempty" yaml:"override,omitempty"`
	QueueSize int                   `json:"queue_size" yaml:"queue_size"`
	PoolSize  int                   `json:"pool_size" yaml:"pool_size"`
	Running   bool                  `json:"running" yaml:"running"`
	NextFire  time.Time             `json:"next_fire,omitzero" yaml:"next_fire,omitempty"`
}

// Text renders the status as a chat reply.
func (s Status) Text() string {
	var b strings.Builder
	if s.Override != "" {
		fmt.Fprintf(&b, "Override: %s\n", s.Override)
	} else {
		b.WriteString("Override: none\n")
	}
	fmt.Fprintf(&b, "Queued: %d\n", s.QueueSize)
	fmt.Fprintf(&b, "Random pool: %d\n", s.PoolSize)
	if s.Running {
		b.WriteString("A blend is running right now.\n")
	}
	if !s.NextFire.IsZero() {
		fmt.Fprintf(&b, "Next blend: %s", s.NextFire.Format(time.RFC1123))
	}
	return strings.TrimRight(b.String(), "\n")
}

// CommandService implements the operator commands shared by the chat
// frontend, the admin API and blendctl.
type CommandService struct {
	store     store.SelectionStore
	blend     *BlendService
	runner    Runner
	validator *validation.Validator
	events    EventEmitter
	logger    *slog.Logger
}

// NewCommandService creates a command service. runner may be nil, in which
// case Force runs without the single-flight guard and Status omits scheduler
// state (blendctl).
func NewCommandService(st store.SelectionStore, blend *BlendService, runner Runner, v *validation.Validator, logger *slog.Logger) *CommandService {
	return &CommandService{
		store:     st,
		blend:     blend,
		runner:    runner,
		validator: v,
		events:    noopEmitter{},
		logger:    logger,
	}
}

// SetEmitter sends selection.changed events to e.
func (s *CommandService) SetEmitter(e EventEmitter) {
	s.events = e
}

// checkLevel validates the raw input and the level reference it carries.
// Bad references fail here with INVALID_SOURCE instead of at blend time.
func (s *CommandService) checkLevel(raw string) (domain.LevelReference, error) {
	if err := s.validator.Validate(levelInput{Level: raw}); err != nil {
		return "", err
	}
	ref := level.Normalize(domain.LevelReference(raw))
	if _, err := level.Parse(ref); err != nil {
		return "", err
	}
	return ref, nil
}

// SetOverride makes ref the level for the next firing.
func (s *CommandService) SetOverride(ctx context.Context, raw string) (domain.LevelReference, error) {
	ref, err := s.checkLevel(raw)
	if err != nil {
		return "", err
	}
	if err := s.store.SetOverride(ctx, ref); err != nil {
		return "", err
	}
	s.logger.Info("override set", "level", ref)
	s.events.Emit(sse.NewSelectionChangedEvent(selectionEvent(sse.TargetOverride, sse.ActionSet, ref)))
	return ref, nil
}

// AddToPool adds ref to the random pool.
func (s *CommandService) AddToPool(ctx context.Context, raw string) (domain.PoolEntry, error) {
	ref, err := s.checkLevel(raw)
	if err != nil {
		return domain.PoolEntry{}, err
	}
	entry, err := s.store.AddToPool(ctx, ref)
	if err != nil {
		return domain.PoolEntry{}, err
	}
	s.logger.Info("level added to random pool", "level", ref, "entry_id", entry.ID)
	added := selectionEvent(sse.TargetPool, sse.ActionAdded, ref)
	added.EntryID = entry.ID
	s.events.Emit(sse.NewSelectionChangedEvent(added))
	return entry, nil
}

// RemoveFromPool deletes a pool member by entry ID.
func (s *CommandService) RemoveFromPool(ctx context.Context, entryID string) error {
	if err := s.store.RemoveFromPool(ctx, entryID); err != nil {
		return err
	}
	s.logger.Info("level removed from random pool", "entry_id", entryID)
	removed := selectionEvent(sse.TargetPool, sse.ActionRemoved, "")
	removed.EntryID = entryID
	s.events.Emit(sse.NewSelectionChangedEvent(removed))
	return nil
}

// Schedule queues ref for the given "MM DD" date, replacing any entry.
func (s *CommandService) Schedule(ctx context.Context, rawDate, raw string) (domain.ScheduledEntry, error) {
	if err := s.validator.Validate(scheduleInput{Level: raw, Date: rawDate}); err != nil {
		return domain.ScheduledEntry{}, err
	}
	ref, err := s.checkLevel(raw)
	if err != nil {
		return domain.ScheduledEntry{}, err
	}
	date, err := domain.ParseDateKey(rawDate)
	if err != nil {
		return domain.ScheduledEntry{}, err
	}

	if err := s.store.Enqueue(ctx, date, ref); err != nil {
		return domain.ScheduledEntry{}, err
	}
	s.logger.Info("level scheduled", "level", ref, "date", date.String())
	queued := selectionEvent(sse.TargetQueue, sse.ActionAdded, ref)
	queued.Date = date.String()
	s.events.Emit(sse.NewSelectionChangedEvent(queued))
	return domain.ScheduledEntry{Date: date, Ref: ref}, nil
}

// Unschedule removes the queue entry for rawDate.
func (s *CommandService) Unschedule(ctx context.Context, rawDate string) error {
	if err := s.validator.Validate(dateInput{Date: rawDate}); err != nil {
		return err
	}
	date, err := domain.ParseDateKey(rawDate)
	if err != nil {
		return err
	}
	if err := s.store.Unschedule(ctx, date); err != nil {
		return err
	}
	s.logger.Info("level unscheduled", "date", date.String())
	unqueued := selectionEvent(sse.TargetQueue, sse.ActionRemoved, "")
	unqueued.Date = date.String()
	s.events.Emit(sse.NewSelectionChangedEvent(unqueued))
	return nil
}

// Force blends ref now. Stored state is left untouched.
func (s *CommandService) Force(ctx context.Context, raw string) (*Result, error) {
	ref, err := s.checkLevel(raw)
	if err != nil {
		return nil, err
	}

	if s.runner == nil {
		return s.blend.Force(ctx, ref)
	}

	var res *Result
	err = s.runner.Force(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.blend.Force(ctx, ref)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Preview formats ref without publishing.
func (s *CommandService) Preview(ctx context.Context, raw string) (*announce.Announcement, error) {
	ref, err := s.checkLevel(raw)
	if err != nil {
		return nil, err
	}
	return s.blend.Preview(ctx, ref)
}

// Override returns the pending override, if any.
func (s *CommandService) Override(ctx context.Context) (domain.LevelReference, bool, error) {
	return s.store.PeekOverride(ctx)
}

// ClearOverride drops the pending override and returns it.
func (s *CommandService) ClearOverride(ctx context.Context) (domain.LevelReference, bool, error) {
	ref, ok, err := s.store.TakeOverride(ctx)
	if err != nil {
		return "", false, err
	}
	if ok {
		s.logger.Info("override cleared", "level", ref)
		s.events.Emit(sse.NewSelectionChangedEvent(selectionEvent(sse.TargetOverride, sse.ActionCleared, ref)))
	}
	return ref, ok, nil
}

// ListQueue returns the queue in calendar order.
func (s *CommandService) ListQueue(ctx context.Context) ([]domain.ScheduledEntry, error) {
	return s.store.ListQueue(ctx)
}

// ListPool returns the random pool in insertion order.
func (s *CommandService) ListPool(ctx context.Context) ([]domain.PoolEntry, error) {
	return s.store.ListPool(ctx)
}

// Status reports the selection state and, with a runner, scheduler state.
func (s *CommandService) Status(ctx context.Context) (*Status, error) {
	override, _, err := s.store.PeekOverride(ctx)
	if err != nil {
		return nil, err
	}
	queue, err := s.store.ListQueue(ctx)
	if err != nil {
		return nil, err
	}
	pool, err := s.store.ListPool(ctx)
	if err != nil {
		return nil, err
	}

	st := &Status{Override: override, QueueSize: len(queue), PoolSize: len(pool)}
	if s.runner != nil {
		st.Running = s.runner.Running()
		st.NextFire = s.runner.NextFire()
	}
	return st, nil
}

// RenderQueue formats queue entries one per line as "MM DD: ref".
func RenderQueue(entries []domain.ScheduledEntry) string {
	if len(entries) == 0 {
		return "Queue is empty."
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Date, e.Ref))
	}
	return strings.Join(lines, "\n")
}

// RenderPool formats pool entries one reference per line.
func RenderPool(entries []domain.PoolEntry) string {
	if len(entries) == 0 {
		return "Pool is empty."
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, string(e.Ref))
	}
	return strings.Join(lines, "\n")
}
