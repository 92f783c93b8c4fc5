// Package publish delivers announcements and operator notices to Discord
// webhooks.
package publish

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/dailyblend/blender/internal/announce"
	"github.com/dailyblend/blender/internal/errors"
)

const (
	// DefaultTimeout bounds one webhook delivery.
	DefaultTimeout = 30 * time.Second

	maxExcerpt = 512
)

// ParseWebhookURL extracts the webhook ID and token from a URL of the form
// https://discord.com/api/webhooks/{id}/{token}.
func ParseWebhookURL(raw string) (id, token string, err error) {
	invalid := errors.Validation("webhook URL must look like https://discord.com/api/webhooks/{id}/{token}")

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", "", invalid
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	i := slices.Index(segments, "webhooks")
	if i < 0 || len(segments) != i+3 || segments[i+1] == "" || segments[i+2] == "" {
		return "", "", invalid
	}
	return segments[i+1], segments[i+2], nil
}

// originTransport sends every request to the scheme and host of the
// configured webhook URL, so relays and test servers receive what discordgo
// would send to discord.com.
type originTransport struct {
	scheme string
	host   string
	base   http.RoundTripper
}

func (t originTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == t.scheme && req.URL.Host == t.host {
		return t.base.RoundTrip(req)
	}
	out := req.Clone(req.Context())
	out.URL.Scheme = t.scheme
	out.URL.Host = t.host
	out.Host = t.host
	return t.base.RoundTrip(out)
}

// Webhook posts announcements to a Discord webhook.
type Webhook struct {
	session *discordgo.Session
	id      string
	token   string
	logger  *slog.Logger
}

// NewWebhook creates a publisher for rawURL. A nil client gets a default one
// with DefaultTimeout.
func NewWebhook(rawURL string, client *http.Client, logger *slog.Logger) (*Webhook, error) {
	id, token, err := ParseWebhookURL(rawURL)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(rawURL)

	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	routed := *client
	routed.Transport = originTransport{scheme: u.Scheme, host: u.Host, base: base}

	// Webhook execution is authorised by the token in the path; the session
	// never logs in.
	session, err := discordgo.New("")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create discord session")
	}
	session.Client = &routed
	session.UserAgent = "DailyBlend/1.0"
	// A failed post is reported, never repeated; the caller decides.
	session.MaxRestRetries = 0
	session.ShouldRetryOnRateLimit = false

	return &Webhook{
		session: session,
		id:      id,
		token:   token,
		logger:  logger,
	}, nil
}

// Publish sends the level card and the about card as one message.
func (w *Webhook) Publish(ctx context.Context, a *announce.Announcement) error {
	return w.execute(ctx, &discordgo.WebhookParams{
		Embeds:          embedsFor(a),
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	})
}

func (w *Webhook) execute(ctx context.Context, params *discordgo.WebhookParams) error {
	_, err := w.session.WebhookExecute(w.id, w.token, false, params, discordgo.WithContext(ctx))
	if err == nil {
		w.logger.Debug("webhook message delivered", "webhook_id", w.id)
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		status := restErr.Response.StatusCode
		return errors.PublishFailedf("webhook answered %d", status).
			WithDetails(map[string]any{"status": status, "body": excerpt(restErr.ResponseBody)})
	}
	return errors.PublishFailedf("deliver webhook message").WithCause(err)
}

func excerpt(body []byte) string {
	if len(body) <= maxExcerpt {
		return string(body)
	}
	return string(body[:maxExcerpt]) + "..."
}

func embedsFor(a *announce.Announcement) []*discordgo.MessageEmbed {
	card := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: a.Title},
		Color:  a.Color,
		Fields: make([]*discordgo.MessageEmbedField, 0, len(a.Fields)),
	}
	for _, f := range a.Fields {
		card.Fields = append(card.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if a.ImageURL != "" {
		card.Image = &discordgo.MessageEmbedImage{URL: a.ImageURL}
	}

	about := &discordgo.MessageEmbed{
		Author:      &discordgo.MessageEmbedAuthor{Name: a.About.Title},
		Description: a.About.Body,
	}
	return []*discordgo.MessageEmbed{card, about}
}
