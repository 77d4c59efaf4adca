// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Arc tracker: watches both feeds of a novel for chapters that open a new
// arc, keeps the running unlocked/locked lists in the state record, and
// announces when a new arc opens in advance access.

//go:embed arcs.tmpl
var arcsTemplate string

// arcHistory is the per-novel arc bookkeeping kept inside the state record.
// Arcs accumulate in Locked while they are advance-access only and move to
// Unlocked once their first chapter shows up on the free feed.
type arcHistory struct {
	Unlocked      []string `json:"unlocked,omitempty"`
	Locked        []string `json:"locked,omitempty"`
	LastAnnounced string   `json:"last_announced,omitempty"`
}

func (h *arcHistory) empty() bool { return len(h.Unlocked) == 0 && len(h.Locked) == 0 }

var (
	// newMarkerRe matches chapter labels that end a "first chapter of an
	// arc" marker: "... 001", "...(1)" or "....1", optionally wrapped in
	// markdown stars.
	newMarkerRe = regexp.MustCompile(`(001|\(1\)|\.\s*1)(\*+)?\s*$`)
	// partNumberRe matches "12.3"-style sub-chapter labels, which are
	// continuations rather than arc starts on their own.
	partNumberRe = regexp.MustCompile(`^\**\s*\d+\.\d+\s*\**$`)
	// volumeLabelRe matches volume fields that name an arc outright.
	volumeLabelRe = regexp.MustCompile(`(?i)^(?:arc|world|plane|story|volume|vol|v)\s*\d+`)

	arcNumberRe      = regexp.MustCompile(`【Arc\s*(\d+)】`)
	arcPrefixRe      = regexp.MustCompile(`^【Arc\s*\d+】`)
	trailingMarkerRe = regexp.MustCompile(`(?:\s+001|\(1\)|\.\s*1)$`)
	numberPrefixRe   = regexp.MustCompile(`^.*?\d+[^\w\s]*\s*`)
)

func isNewMarker(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && newMarkerRe.MatchString(s)
}

// looksLikeArcStart reports whether an entry's volume, chapter name and name
// extension together mark the first chapter of a new arc.
func looksLikeArcStart(vol, chap, extend string) bool {
	if isNewMarker(extend) || isNewMarker(chap) {
		return true
	}
	if partNumberRe.MatchString(extend) {
		return volumeLabelRe.MatchString(vol)
	}
	return volumeLabelRe.MatchString(vol)
}

// arcBase extracts the bare arc title from an arc-start entry: the volume
// field when present, otherwise the name extension with its first-chapter
// marker stripped, otherwise the chapter name. Any leading numbering
// ("Arc 3:", "World 2 -") is removed so that the same arc seen on both
// feeds reduces to the same string.
func arcBase(item *gofeed.Item) (string, bool) {
	vol := customField(item, "volume")
	extend := customField(item, "nameextend")
	chap := customField(item, "chaptername")
	if !looksLikeArcStart(vol, chap, extend) {
		return "", false
	}

	var base string
	switch {
	case vol != "":
		base = strings.TrimSpace(strings.ReplaceAll(vol, "*", ""))
	case extend != "":
		base = strings.TrimSpace(trailingMarkerRe.ReplaceAllString(strings.Trim(extend, "* "), ""))
	default:
		base = chap
	}
	return numberPrefixRe.ReplaceAllString(base, ""), true
}

func newArcBases(items []*gofeed.Item) []string {
	var bases []string
	for _, item := range items {
		if base, ok := arcBase(item); ok && base != "" {
			bases = append(bases, base)
		}
	}
	return bases
}

func arcNumber(title string) int {
	m := arcNumberRe.FindStringSubmatch(title)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func arcBaseOf(full string) string { return arcPrefixRe.ReplaceAllString(full, "") }

// nextNumber continues arc numbering from the last announced arc, falling
// back to the highest number seen anywhere in the history.
func (h *arcHistory) nextNumber() int {
	if n := arcNumber(h.LastAnnounced); n > 0 {
		return n + 1
	}
	max := 0
	for _, t := range slices.Concat(h.Unlocked, h.Locked) {
		if n := arcNumber(t); n > max {
			max = n
		}
	}
	return max + 1
}

func (h *arcHistory) seen(base string) bool {
	for _, t := range slices.Concat(h.Unlocked, h.Locked) {
		if arcBaseOf(t) == base {
			return true
		}
	}
	return false
}

// recordFree registers an arc base seen on the free feed: a matching locked
// arc moves to the unlocked list, an unknown base is appended as a
// brand-new unlocked arc.
func (h *arcHistory) recordFree(base string) {
	for i, full := range h.Locked {
		if strings.HasSuffix(full, base) {
			h.Locked = slices.Delete(h.Locked, i, i+1)
			if !slices.Contains(h.Unlocked, full) {
				h.Unlocked = append(h.Unlocked, full)
			}
			return
		}
	}
	if !h.seen(base) {
		h.Unlocked = append(h.Unlocked, fmt.Sprintf("【Arc %d】%s", h.nextNumber(), base))
	}
}

// recordPaid registers an arc base seen on the paid feed as a new locked
// arc, unless the history already knows it.
func (h *arcHistory) recordPaid(base string) {
	if !h.seen(base) {
		h.Locked = append(h.Locked, fmt.Sprintf("【Arc %d】%s", h.nextNumber(), base))
	}
}

func (h *arcHistory) dedupe() {
	h.Unlocked = dedupe(h.Unlocked)
	h.Locked = dedupe(h.Locked)
}

func dedupe(list []string) []string {
	var out []string
	for _, s := range list {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func (c *checker) checkArcs(ctx context.Context) {
	for _, n := range c.novels {
		// The locked/unlocked distinction needs both feeds.
		if n.FreeFeed == "" || n.PaidFeed == "" {
			continue
		}

		free, err := c.fetchFeed(ctx, n.FreeFeed)
		if err != nil {
			c.slog.Warn("fetching free feed failed", "novel", n.Title, "error", err)
			continue
		}
		paid, err := c.fetchFeed(ctx, n.PaidFeed)
		if err != nil {
			c.slog.Warn("fetching paid feed failed", "novel", n.Title, "error", err)
			continue
		}

		st := c.getState(n.Title)
		h := st.arcs()
		firstRun := h.empty()

		for _, base := range newArcBases(free) {
			h.recordFree(base)
		}
		for _, base := range newArcBases(paid) {
			h.recordPaid(base)
		}
		h.dedupe()

		if firstRun {
			// Bootstrap numbering without announcing arcs that
			// predate the tracker.
			if len(h.Locked) > 0 {
				h.LastAnnounced = h.Locked[len(h.Locked)-1]
			}
			c.slog.Debug("bootstrapped arc history",
				"novel", n.Title, "unlocked", len(h.Unlocked), "locked", len(h.Locked))
			continue
		}

		if len(h.Locked) == 0 {
			c.slog.Debug("no locked arcs", "novel", n.Title)
			continue
		}
		newFull := h.Locked[len(h.Locked)-1]
		if newFull == h.LastAnnounced {
			c.slog.Debug("arc already announced", "novel", n.Title, "arc", newFull)
			continue
		}

		msg := &message{
			Content: buildArcMessage(n, newFull, h),
			Flags:   suppressEmbeds,
		}
		if err := c.announce(ctx, n, msg); err != nil {
			continue
		}
		h.LastAnnounced = newFull
		c.logf("Sent arc announcement for %s (%s)", n.Title, newFull)
	}
}

func buildArcMessage(n *novel, newFull string, h *arcHistory) string {
	return fmt.Sprintf(arcsTemplate,
		n.Title, n.URL, newFull, arcList(h.Unlocked), arcList(h.Locked), n.Host)
}

// arcList renders stored arc titles as markdown lines, bolding the
// 【Arc N】 numbering when present.
func arcList(titles []string) string {
	if len(titles) == 0 {
		return "None"
	}
	lines := make([]string, len(titles))
	for i, t := range titles {
		if m := arcPrefixRe.FindString(t); m != "" {
			lines[i] = "**" + m + "**" + strings.TrimPrefix(t, m)
		} else {
			lines[i] = "**" + t + "**"
		}
	}
	return strings.Join(lines, "\n")
}
