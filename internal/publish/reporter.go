package publish

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// maxContent is Discord's message content ceiling.
const maxContent = 2000

// OpsReporter sends operator notices to an optional webhook. Without a URL
// notices are only logged.
type OpsReporter struct {
	hook   *Webhook
	logger *slog.Logger
}

// NewOpsReporter creates a reporter. url may be empty; a malformed one is an
// error.
func NewOpsReporter(url string, client *http.Client, logger *slog.Logger) (*OpsReporter, error) {
	r := &OpsReporter{logger: logger}
	if url == "" {
		return r, nil
	}
	hook, err := NewWebhook(url, client, logger)
	if err != nil {
		return nil, err
	}
	r.hook = hook
	return r, nil
}

// Alert logs message and, when configured, posts it to the operator channel.
func (r *OpsReporter) Alert(ctx context.Context, message string) error {
	r.logger.Warn("operator alert", "message", message)
	if r.hook == nil {
		return nil
	}

	if runes := []rune(message); len(runes) > maxContent {
		message = string(runes[:maxContent-3]) + "..."
	}
	err := r.hook.execute(ctx, &discordgo.WebhookParams{
		Content:         message,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
	if err != nil {
		r.logger.Error("failed to deliver operator alert", "error", err)
		return err
	}
	return nil
}

// Enabled reports whether alerts leave the process.
func (r *OpsReporter) Enabled() bool {
	return r.hook != nil
}
