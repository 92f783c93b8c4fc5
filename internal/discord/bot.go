// Package discord is the slash command frontend of the bot.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// customStatus is shown under the bot's name.
const customStatus = "Making coffee ☕"

// commandTimeout bounds one interaction, including a forced blend.
const commandTimeout = 2 * time.Minute

// Bot owns the Discord gateway session.
type Bot struct {
	session    *discordgo.Session
	dispatcher *Dispatcher
	guildID    string
	onReady    func()
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New creates a bot for token. onReady runs after every Ready event, once the
// commands are registered; it must be idempotent.
func New(token, guildID string, dispatcher *Dispatcher, onReady func(), logger *slog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		session:    session,
		dispatcher: dispatcher,
		guildID:    guildID,
		onReady:    onReady,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}

	session.AddHandler(b.handleReady)
	session.AddHandler(b.handleInteraction)

	return b, nil
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

// Close disconnects from the gateway, then cancels in-flight commands and
// waits for them.
func (b *Bot) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	err := b.session.Close()
	b.cancel()
	b.wg.Wait()
	return err
}

// track registers an in-flight interaction. It fails once Close has begun, so
// no Add races the final Wait.
func (b *Bot) track() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.wg.Add(1)
	return true
}

func (b *Bot) handleReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("logged in to discord", "user", r.User.String(), "user_id", r.User.ID)

	err := s.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{{
			Name:  "Custom Status",
			Type:  discordgo.ActivityTypeCustom,
			State: customStatus,
		}},
	})
	if err != nil {
		b.logger.Warn("failed to set custom status", "error", err)
	}

	cmds, err := s.ApplicationCommandBulkOverwrite(r.User.ID, b.guildID, applicationCommands())
	if err != nil {
		b.logger.Error("failed to register slash commands", "guild_id", b.guildID, "error", err)
	} else {
		b.logger.Info("slash commands registered", "guild_id", b.guildID, "count", len(cmds))
	}

	if b.onReady != nil {
		b.onReady()
	}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if !b.track() {
		return
	}
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	req := requestFrom(i.Interaction)

	// A forced blend waits on the catalog and the webhook, which can take
	// longer than the initial response window.
	if req.Command == commandForceBlend && b.dispatcher.Allowed(req.Roles) {
		b.deferred(ctx, s, i.Interaction, req)
		return
	}

	reply := b.dispatcher.Dispatch(ctx, req)
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: responseData(reply),
	})
	if err != nil {
		b.logger.Error("failed to respond to interaction", "command", req.Command, "error", err)
	}
}

func (b *Bot) deferred(ctx context.Context, s *discordgo.Session, i *discordgo.Interaction, req Request) {
	err := s.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		b.logger.Error("failed to defer interaction", "command", req.Command, "error", err)
		return
	}

	reply := b.dispatcher.Dispatch(ctx, req)
	if _, err := s.InteractionResponseEdit(i, &discordgo.WebhookEdit{
		Content:         &reply.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}); err != nil {
		b.logger.Error("failed to edit deferred response", "command", req.Command, "error", err)
	}
}

func responseData(reply Reply) *discordgo.InteractionResponseData {
	data := &discordgo.InteractionResponseData{
		Content:         reply.Content,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if reply.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return data
}
