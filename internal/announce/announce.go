// Package announce builds the Daily Blend announcement from level metadata.
package announce

import (
	"fmt"
	"strings"
	"time"

	"github.com/dailyblend/blender/internal/domain"
	"github.com/dailyblend/blender/internal/errors"
)

const (
	// MaxFieldLength mirrors the embed field ceiling the announcement is posted into.
	MaxFieldLength = 256

	ellipsis = "..."

	// Purple is the level card accent colour.
	Purple = 0x9B59B6

	headerDateLayout = "Monday, January 02, 2006"

	aboutTitle = "About the Daily Blend Café"
	aboutBody  = "The Daily Blend Café is like a book club for custom levels! " +
		"Play the daily level and post your score (enable Detailed Level Results in Advanced Settings), " +
		"and leave a comment with what you liked about the level!"
)

// Field is one labelled value of the level card.
type Field struct {
	Name   string `json:"name" yaml:"name"`
	Value  string `json:"value" yaml:"value"`
	Inline bool   `json:"inline" yaml:"inline"`
}

// Block is a titled paragraph.
type Block struct {
	Title string `json:"title" yaml:"title"`
	Body  string `json:"body" yaml:"body"`
}

// Announcement is the formatted, publish-ready Daily Blend post.
// It is never persisted.
type Announcement struct {
	Title    string  `json:"title" yaml:"title"`
	Color    int     `json:"color" yaml:"color"`
	Fields   []Field `json:"fields" yaml:"fields"`
	ImageURL string  `json:"image_url" yaml:"image_url"`
	About    Block   `json:"about" yaml:"about"`
}

// Field returns the value of the named field and whether it is present.
func (a *Announcement) Field(name string) (string, bool) {
	for _, f := range a.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Text renders the announcement as plain text for previews and logs.
func (a *Announcement) Text() string {
	var b strings.Builder
	b.WriteString(a.Title)
	b.WriteByte('\n')
	for _, f := range a.Fields {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Value)
	}
	if a.ImageURL != "" {
		fmt.Fprintf(&b, "Image: %s\n", a.ImageURL)
	}
	b.WriteByte('\n')
	b.WriteString(a.About.Title)
	b.WriteByte('\n')
	b.WriteString(a.About.Body)
	return b.String()
}

// Format builds the announcement for meta on the given day.
// It fails on an unknown difficulty or when the level supports no player mode.
func Format(meta *domain.LevelMetadata, today time.Time) (*Announcement, error) {
	mode, ok := domain.PlayerModeOf(meta.SinglePlayer, meta.TwoPlayer)
	if !ok {
		return nil, errors.UnsupportedModeCombination(meta.ID.String())
	}

	difficulty, ok := meta.Difficulty.Label()
	if !ok {
		return nil, errors.UnknownDifficulty(int(meta.Difficulty))
	}

	tags := make([]string, 0, len(meta.Tags))
	for _, tag := range meta.Tags {
		tags = append(tags, "**["+tag+"]**")
	}

	fields := []Field{
		{Name: "Level", Value: meta.Artist + " - " + meta.Song, Inline: true},
		{Name: "Creator", Value: Truncate(strings.Join(meta.Authors, ", ")), Inline: true},
	}
	if meta.Description != "" {
		fields = append(fields, Field{Name: "Description", Value: Truncate(meta.Description)})
	}
	fields = append(fields,
		Field{Name: "Tags", Value: Truncate(strings.Join(tags, ", "))},
		Field{Name: "Modes", Value: mode.Label(), Inline: true},
		Field{Name: "Difficulty", Value: difficulty, Inline: true},
		Field{Name: "Download", Value: "[Link](" + meta.DownloadURL + ")", Inline: true},
	)

	return &Announcement{
		Title:    "Daily Blend: " + today.Format(headerDateLayout),
		Color:    Purple,
		Fields:   fields,
		ImageURL: meta.ImageURL,
		About:    Block{Title: aboutTitle, Body: aboutBody},
	}, nil
}

// Truncate shortens s to MaxFieldLength characters, replacing the tail with
// an ellipsis. Length is counted in code points.
func Truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxFieldLength {
		return s
	}
	return string(runes[:MaxFieldLength-len(ellipsis)]) + ellipsis
}
