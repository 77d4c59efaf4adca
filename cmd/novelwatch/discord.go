// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.mistmint.dev/novelwatch/internal/request"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// Announcement sending.

const discordAPI = "https://discord.com/api/v10"

const sendRetryLimit = 5 // N attempts to retry message sending

// suppressEmbeds keeps announcement walls clean of link previews.
// https://discord.com/developers/docs/resources/message#message-object-message-flags
const suppressEmbeds = 1 << 2

// Discord error codes returned when the bot isn't a member of a thread.
// https://discord.com/developers/docs/topics/opcodes-and-status-codes#json
const (
	codeMissingAccess      = 50001
	codeMissingPermissions = 50013
)

type message struct {
	Content         string          `json:"content"`
	Embeds          []*embed        `json:"embeds,omitempty"`
	AllowedMentions allowedMentions `json:"allowed_mentions"`
	Flags           int             `json:"flags,omitempty"`
}

type allowedMentions struct {
	// Parse is always present and empty: thread announcements ping nobody.
	Parse []string `json:"parse"`
}

// https://discord.com/developers/docs/resources/message#embed-object
type embed struct {
	Author      *embedAuthor `json:"author,omitempty"`
	Title       string       `json:"title,omitempty"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Image       *embedImage  `json:"image,omitempty"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Color       int          `json:"color,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedAuthor struct {
	Name string `json:"name"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url,omitempty"`
}

// threadID resolves the destination thread of a novel from the environment:
// the secret is named <SHORTCODE>_THREAD_ID.
func (c *checker) threadID(n *novel) (string, error) {
	key := strings.ToUpper(n.shortCode()) + "_THREAD_ID"
	id := strings.TrimSpace(c.getenv(key))
	if id == "" {
		return "", fmt.Errorf("%w: environment variable %s is not set for %q", errNoThread, key, n.Title)
	}
	return id, nil
}

// announce posts a single message to the novel's thread. It returns a nil
// error only when the message was actually accepted by Discord (or the run
// is dry), so callers can safely set a milestone flag afterwards. A missing
// thread secret or a send failure is logged and skips this novel; other
// novels keep processing.
func (c *checker) announce(ctx context.Context, n *novel, msg *message) error {
	threadID, err := c.threadID(n)
	if err != nil {
		c.logf("%v", err)
		return err
	}

	c.slog.Debug("sending announcement",
		"novel", n.Title,
		"thread", threadID,
		"len", len(msg.Content),
		"embeds", len(msg.Embeds),
	)
	if c.dry {
		return nil
	}

	if err := c.send(ctx, threadID, msg); err != nil {
		c.slog.Warn("failed to send announcement", "novel", n.Title, "thread", threadID, "error", err)
		return err
	}
	return nil
}

func (c *checker) send(ctx context.Context, threadID string, msg *message) error {
	err := c.post(ctx, threadID, msg)
	if err == nil {
		return nil
	}

	// The bot may not be a member of the thread yet; join and retry once.
	if needsThreadJoin(err) {
		if jerr := c.joinThread(ctx, threadID); jerr != nil {
			c.slog.Warn("failed to join thread", "thread", threadID, "error", jerr)
			return err
		}
		err = c.post(ctx, threadID, msg)
	}

	for range sendRetryLimit {
		if err == nil {
			return nil
		}
		retryable, wait := sendRetryAfter(err)
		if !retryable {
			return err
		}
		c.slog.Warn("rate limited by Discord, waiting", "thread", threadID, "wait", wait)
		time.Sleep(wait)
		err = c.post(ctx, threadID, msg)
	}
	return err
}

func (c *checker) post(ctx context.Context, threadID string, msg *message) error {
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method: http.MethodPost,
		URL:    discordAPI + "/channels/" + threadID + "/messages",
		Body:   msg,
		Headers: map[string]string{
			"Authorization": "Bot " + c.botToken,
		},
		HTTPClient: c.httpc,
		Scrubber:   c.scrubber,
	})
	return err
}

func (c *checker) joinThread(ctx context.Context, threadID string) error {
	_, err := request.Make[request.IgnoreResponse](ctx, request.Params{
		Method: http.MethodPut,
		URL:    discordAPI + "/channels/" + threadID + "/thread-members/@me",
		Headers: map[string]string{
			"Authorization": "Bot " + c.botToken,
		},
		HTTPClient: c.httpc,
		Scrubber:   c.scrubber,
	})
	return err
}

func needsThreadJoin(err error) bool {
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusForbidden {
		return false
	}

	var errorResponse struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(statusErr.Body, &errorResponse); err != nil {
		return strings.Contains(string(statusErr.Body), "Missing Access")
	}
	return errorResponse.Code == codeMissingAccess || errorResponse.Code == codeMissingPermissions
}

func sendRetryAfter(err error) (retryable bool, wait time.Duration) {
	var statusErr *request.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		return false, 0
	}

	var errorResponse struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(statusErr.Body, &errorResponse); err != nil {
		return true, time.Second
	}

	return true, min(time.Duration(errorResponse.RetryAfter*float64(time.Second)), 5*time.Second)
}

var (
	hrTagRe      = regexp.MustCompile(`(?i)<hr[^>]*>`)
	trailSpaceRe = regexp.MustCompile(`[ \t]+\n`)
	leadSpaceRe  = regexp.MustCompile(`\n[ \t]+`)
	multiSpaceRe = regexp.MustCompile(`[ \t]+`)
)

// maxEmbedDescription is slightly below Discord's 4096-character limit on
// embed descriptions, leaving room for the truncation marker.
const maxEmbedDescription = 4000

// cleanDescription turns an entry's HTML description into plain text for an
// embed: everything after the first <hr> is dropped (the feed puts promo
// links there), tags are stripped, entities unescaped and whitespace
// squashed.
func cleanDescription(raw string) string {
	if raw == "" {
		return ""
	}

	if loc := hrTagRe.FindStringIndex(raw); loc != nil {
		raw = raw[:loc[0]]
	}

	text := raw
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		text = doc.Text()
	}

	text = trailSpaceRe.ReplaceAllString(text, "\n")
	text = leadSpaceRe.ReplaceAllString(text, "\n")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if runes := []rune(text); len(runes) > maxEmbedDescription {
		text = strings.TrimRight(string(runes[:maxEmbedDescription]), " ") + "…"
	}
	return text
}

// embedColor is the pastel accent used on all announcement embeds.
const embedColor = 0xAEC6CF

// buildEntryEmbed builds the rich embed attached to launch announcements:
// translator credit, clickable series title, cleaned summary, cover art and
// a host footer. The timestamp is the chapter's publish time, which Discord
// renders in each viewer's local timezone.
func (c *checker) buildEntryEmbed(n *novel, item *gofeed.Item) *embed {
	e := &embed{
		Title:       n.Title,
		URL:         n.URL,
		Description: cleanDescription(item.Description),
		Color:       embedColor,
		Timestamp:   entryTime(item, c.now()).UTC().Format(time.RFC3339),
	}
	if n.Translator != "" {
		e.Author = &embedAuthor{Name: n.Translator}
	}
	if n.FeaturedImage != "" {
		e.Image = &embedImage{URL: n.FeaturedImage}
	}
	if n.Host != "" {
		e.Footer = &embedFooter{Text: n.Host, IconURL: n.HostLogo}
	}
	return e
}
