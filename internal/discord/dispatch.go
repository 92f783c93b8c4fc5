package discord

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/service"
)

// maxContentRunes is Discord's message content limit.
const maxContentRunes = 2000

const deniedMessage = "You are not allowed to use this command."

// Commands is the core side of the slash command contract.
type Commands interface {
	SetOverride(ctx context.Context, raw string) (domain.LevelReference, error)
	AddToPool(ctx context.Context, raw string) (domain.PoolEntry, error)
	Schedule(ctx context.Context, rawDate, raw string) (domain.ScheduledEntry, error)
	Force(ctx context.Context, raw string) (*service.Result, error)
	ListQueue(ctx context.Context) ([]domain.ScheduledEntry, error)
	ListPool(ctx context.Context) ([]domain.PoolEntry, error)
	Status(ctx context.Context) (*service.Status, error)
}

// Request is a slash command invocation stripped of session details.
type Request struct {
	Command string
	Options map[string]string
	User    string
	Roles   []string
}

// Reply is what the bot answers with.
type Reply struct {
	Content   string
	Ephemeral bool
}

// Dispatcher routes slash commands to the command service after checking the
// invoking member's roles.
type Dispatcher struct {
	commands     Commands
	allowedRoles []string
	logger       *slog.Logger
}

// NewDispatcher creates a dispatcher. Members need at least one of
// allowedRoles; an empty list denies everyone.
func NewDispatcher(commands Commands, allowedRoles []string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		commands:     commands,
		allowedRoles: allowedRoles,
		logger:       logger,
	}
}

// Allowed reports whether a member holding roles may use the bot.
func (d *Dispatcher) Allowed(roles []string) bool {
	for _, r := range roles {
		if slices.Contains(d.allowedRoles, r) {
			return true
		}
	}
	return false
}

// Dispatch runs req and renders the reply.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Reply {
	logger := d.logger.With("command", req.Command, "user", req.User)

	if !d.Allowed(req.Roles) {
		logger.Warn("command denied")
		return Reply{Content: deniedMessage, Ephemeral: true}
	}

	content, err := d.run(ctx, req)
	if err != nil {
		logger.Warn("command failed", "error", err)
		return Reply{Content: clip(err.Error()), Ephemeral: true}
	}

	logger.Info("command handled")
	return Reply{Content: clip(content)}
}

func (d *Dispatcher) run(ctx context.Context, req Request) (string, error) {
	level := req.Options[optionLevel]

	switch req.Command {
	case commandBlend:
		ref, err := d.commands.SetOverride(ctx, level)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Blending %s today.", ref), nil

	case commandRandomBlend:
		entry, err := d.commands.AddToPool(ctx, level)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Blending %s randomly.", entry.Ref), nil

	case commandQueueBlend:
		entry, err := d.commands.Schedule(ctx, req.Options[optionDate], level)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Blending %s on %s.", entry.Ref, entry.Date), nil

	case commandForceBlend:
		if _, err := d.commands.Force(ctx, level); err != nil {
			return "", err
		}
		return "Blending!", nil

	case commandViewQueue:
		entries, err := d.commands.ListQueue(ctx)
		if err != nil {
			return "", err
		}
		return service.RenderQueue(entries), nil

	case commandViewRandom:
		entries, err := d.commands.ListPool(ctx)
		if err != nil {
			return "", err
		}
		return service.RenderPool(entries), nil

	case commandStatus:
		st, err := d.commands.Status(ctx)
		if err != nil {
			return "", err
		}
		return st.Text(), nil

	default:
		return "", fmt.Errorf("unknown command %q", req.Command)
	}
}

// clip truncates s to the message limit, keeping whole lines when possible.
func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= maxContentRunes {
		return s
	}
	const suffix = "\n…"
	cut := runes[:maxContentRunes-len([]rune(suffix))]
	for i := len(cut) - 1; i > 0; i-- {
		if cut[i] == '\n' {
			cut = cut[:i]
			break
		}
	}
	return string(cut) + suffix
}
