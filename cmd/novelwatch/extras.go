// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Extras / side-story checker.

//go:embed extras.tmpl
var extrasTemplate string

// extraTotals is the expected amount of bonus content, parsed from the
// registry's chapter-count description with literal keyword matching.
type extraTotals struct {
	Extras      int
	SideStories int
}

func (t extraTotals) total() int { return t.Extras + t.SideStories }

var (
	extrasCountRe      = regexp.MustCompile(`(?i)(\d+)\s*extras?`)
	sideStoriesCountRe = regexp.MustCompile(`(?i)(\d+)\s*(?:side stories|side story)`)
)

// parseChapterCount extracts extra and side-story totals from a description
// like "120 chapters + 5 extras + 2 side stories". The phrasing is a
// deliberate low-tech heuristic: anything that doesn't literally say
// "extras" or "side stories" counts as zero.
func parseChapterCount(s string) extraTotals {
	var t extraTotals
	if m := extrasCountRe.FindStringSubmatch(s); m != nil {
		t.Extras, _ = strconv.Atoi(m[1])
	}
	if m := sideStoriesCountRe.FindStringSubmatch(s); m != nil {
		t.SideStories, _ = strconv.Atoi(m[1])
	}
	return t
}

var extraKeywordRe = regexp.MustCompile(`(?i)\b(?:extras?|side stor(?:y|ies))\b`)

// newestExtra returns the chapter label of the most recent entry that looks
// like an extra or a side story, in feed order.
func newestExtra(items []*gofeed.Item) (label string, ok bool) {
	for _, item := range items {
		for _, field := range []string{chapterField(item), customField(item, "volume")} {
			if field != "" && extraKeywordRe.MatchString(field) {
				return field, true
			}
		}
	}
	return "", false
}

// extrasDue decides whether a new extras announcement is owed: the newest
// extra's label must differ from the last announced one (string inequality,
// not numeric ordering), the lifetime extra_announced cap must be unset, and
// the series must not be completed or have its final chapter in the feed.
func extrasDue(n *novel, items []*gofeed.Item, st *novelState) (label string, due bool) {
	if st.ExtraAnnounced || st.completed() {
		return "", false
	}
	if n.LastChapter != "" {
		for _, item := range items {
			if strings.Contains(chapterField(item), n.LastChapter) {
				return "", false
			}
		}
	}

	label, ok := newestExtra(items)
	if !ok || label == st.LastExtraAnnounced {
		return "", false
	}
	return label, true
}

func (c *checker) checkExtras(ctx context.Context) {
	for _, n := range c.novels {
		// Extras drop in advance access first.
		if n.PaidFeed == "" {
			continue
		}

		st := c.getState(n.Title)
		if st.ExtraAnnounced {
			c.slog.Debug("extras already announced", "novel", n.Title)
			continue
		}
		if st.completed() {
			c.slog.Debug("skipping extras, series completed", "novel", n.Title)
			continue
		}

		items, err := c.fetchFeed(ctx, n.PaidFeed)
		if err != nil {
			c.slog.Warn("fetching paid feed failed", "novel", n.Title, "error", err)
			continue
		}

		label, due := extrasDue(n, items, st)
		if !due {
			c.slog.Debug("no new extras", "novel", n.Title, "last", st.LastExtraAnnounced)
			continue
		}

		msg := &message{
			Content: buildExtrasMessage(n, label),
			Flags:   suppressEmbeds,
		}
		if err := c.announce(ctx, n, msg); err != nil {
			continue
		}
		st.ExtraAnnounced = true
		st.LastExtraAnnounced = label
		c.logf("Sent extras announcement for %s (%s)", n.Title, label)
	}
}

func buildExtrasMessage(n *novel, label string) string {
	totals := parseChapterCount(n.ChapterCount)

	var parts []string
	if totals.Extras > 0 {
		parts = append(parts, strings.ToUpper(noun(totals.Extras, "extra")))
	}
	if totals.SideStories > 0 {
		parts = append(parts, strings.ToUpper(noun(totals.SideStories, "side story")))
	}
	dispLabel := "BONUS CONTENT"
	if len(parts) > 0 {
		dispLabel = strings.Join(parts, " + ")
	}

	base := fmt.Sprintf("***[%s](%s)***", n.Title, n.URL)
	var remaining string
	switch {
	case totals.total() > 0:
		remaining = fmt.Sprintf("%s is almost at the very end — just %s left before we wrap up this journey for good.",
			base, remainingPhrase(totals))
	default:
		remaining = fmt.Sprintf("%s is at the very end — no extras or side stories left!", base)
	}

	dropped := fmt.Sprintf("%s (%s) just dropped", label, dispLabel)
	return fmt.Sprintf(extrasTemplate, dispLabel, remaining, dropped, n.Host)
}

func remainingPhrase(t extraTotals) string {
	switch {
	case t.Extras > 0 && t.SideStories > 0:
		return fmt.Sprintf("%d %s and %d %s",
			t.Extras, noun(t.Extras, "extra"), t.SideStories, noun(t.SideStories, "side story"))
	case t.Extras > 0:
		return fmt.Sprintf("%d %s", t.Extras, noun(t.Extras, "extra"))
	default:
		return fmt.Sprintf("%d %s", t.SideStories, noun(t.SideStories, "side story"))
	}
}

func noun(n int, singular string) string {
	if n == 1 {
		return singular
	}
	if singular == "side story" {
		return "side stories"
	}
	return singular + "s"
}
