// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.mistmint.dev/novelwatch/internal/version"

	"github.com/mmcdole/gofeed"
)

// Feed fetching.

// fetchFeed fetches and parses a single feed, returning its entries in feed
// order (most recent first). There is no conditional GET, caching or retry:
// the checkers run on a schedule and a failed feed is simply skipped until
// the next run.
func (c *checker) fetchFeed(ctx context.Context, url string) ([]*gofeed.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		const readLimit = 16384 // 16 KB is enough for error messages (probably)
		body, err := io.ReadAll(io.LimitReader(res.Body, readLimit))
		if err != nil {
			body = []byte("unable to read body")
		}
		return nil, fmt.Errorf("want 200, got %d: %s", res.StatusCode, body)
	}

	feed, err := c.fp.Parse(res.Body)
	if err != nil {
		return nil, err
	}

	c.slog.Debug("fetched feed",
		"feed", url,
		"entries", len(feed.Items),
		"content_type", res.Header.Get("Content-Type"),
	)

	return feed.Items, nil
}

// customField returns a custom RSS element of a feed entry, with
// non-breaking spaces normalized.
func customField(item *gofeed.Item, key string) string {
	if item.Custom == nil {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(item.Custom[key], " ", " "))
}

// chapterField returns the chapter label of a feed entry. The hosting site
// publishes chapter names in custom RSS elements (chaptername, nameextend);
// entries without them fall back to the entry title.
func chapterField(item *gofeed.Item) string {
	s := customField(item, "chaptername") + customField(item, "nameextend")
	if s == "" {
		return strings.TrimSpace(item.Title)
	}
	return s
}

// entryTime returns the publish time of a feed entry, falling back to the
// update time, then to now.
func entryTime(item *gofeed.Item, now time.Time) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return now
}
