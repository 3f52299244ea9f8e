package discord

import (
	"time"

	"ghnotify/internal/format"
)

// Embed is the webhook embed object. Field names follow the Discord API.
type Embed struct {
	Title       string          `json:"title,omitempty"`
	Description string          `json:"description,omitempty"`
	URL         string          `json:"url,omitempty"`
	Color       int             `json:"color,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"` // ISO 8601
	Fields      []EmbedField    `json:"fields,omitempty"`
	Author      *EmbedAuthor    `json:"author,omitempty"`
	Thumbnail   *EmbedThumbnail `json:"thumbnail,omitempty"`
}

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedAuthor struct {
	Name    string `json:"name"`
	URL     string `json:"url,omitempty"`
	IconURL string `json:"icon_url,omitempty"`
}

type EmbedThumbnail struct {
	URL string `json:"url"`
}

// webhookPayload is the POST body. Content is the plain-text line above the
// embeds.
type webhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// EmbedFromRecord converts a display record into its wire shape.
func EmbedFromRecord(rec format.Record) Embed {
	e := Embed{
		Title:       rec.Title,
		Description: rec.Excerpt,
		URL:         rec.URL,
		Color:       rec.Color,
	}
	if !rec.Timestamp.IsZero() {
		e.Timestamp = rec.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range rec.Fields {
		e.Fields = append(e.Fields, EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if rec.Author.Name != "" {
		e.Author = &EmbedAuthor{Name: rec.Author.Name, URL: rec.Author.URL, IconURL: rec.Author.IconURL}
	}
	if rec.ThumbnailURL != "" {
		e.Thumbnail = &EmbedThumbnail{URL: rec.ThumbnailURL}
	}
	return e
}
