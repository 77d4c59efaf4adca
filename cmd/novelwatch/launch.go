// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// New series launch checker.

//go:embed launch.tmpl
var launchTemplate string

// launchDue reports whether a new-series launch announcement is owed: the
// free feed has at least one entry and the novel was never launched before.
// It fires once, ever, per novel.
func launchDue(items []*gofeed.Item, st *novelState) bool {
	return !st.LaunchFree && len(items) > 0
}

func (c *checker) checkLaunches(ctx context.Context) {
	for _, n := range c.novels {
		// Launches are only announced once a novel is publicly readable.
		if n.FreeFeed == "" {
			continue
		}

		st := c.getState(n.Title)
		if st.LaunchFree {
			c.slog.Debug("already launched", "novel", n.Title)
			continue
		}

		items, err := c.fetchFeed(ctx, n.FreeFeed)
		if err != nil {
			c.slog.Warn("fetching free feed failed", "novel", n.Title, "error", err)
			continue
		}
		if !launchDue(items, st) {
			c.slog.Debug("no launch due", "novel", n.Title)
			continue
		}

		// The feed is most-recent-first, so the oldest entry is the first
		// public chapter.
		entry := items[len(items)-1]

		msg := &message{
			Content: fmt.Sprintf(launchTemplate,
				n.Title, n.URL, chapterField(entry), entry.Link, n.Host),
			Embeds: []*embed{c.buildEntryEmbed(n, entry)},
		}
		if err := c.announce(ctx, n, msg); err != nil {
			continue
		}
		st.LaunchFree = true
		c.logf("Sent launch announcement for %s", n.Title)
	}
}
