// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Completion checker.

var (
	//go:embed completion_paid.tmpl
	paidCompletionTemplate string

	//go:embed completion_free.tmpl
	freeCompletionTemplate string

	//go:embed completion_only_free.tmpl
	onlyFreeCompletionTemplate string
)

// completionKind names which of the three completion milestones is due.
// A series with a paid feed completes twice: first on the paid feed, later
// on the free one. A free-only series completes exactly once.
type completionKind int

const (
	paidCompletion completionKind = iota
	freeCompletion
	onlyFreeCompletion
)

func (k completionKind) String() string {
	switch k {
	case paidCompletion:
		return "paid_completion"
	case freeCompletion:
		return "free_completion"
	case onlyFreeCompletion:
		return "only_free_completion"
	}
	return "unknown"
}

// completionDue scans feed entries for the novel's final-chapter marker and
// reports which completion milestone is owed, if any. Matching is a literal
// substring check against the entry's chapter label: an entry that doesn't
// contain the marker is silently skipped.
func completionDue(n *novel, kind feedKind, items []*gofeed.Item, st *novelState) (entry *gofeed.Item, ck completionKind, due bool) {
	if n.LastChapter == "" {
		return nil, 0, false
	}
	for _, item := range items {
		if !strings.Contains(chapterField(item), n.LastChapter) {
			continue
		}
		switch {
		case kind == feedPaid:
			if st.PaidCompletion {
				return nil, 0, false
			}
			return item, paidCompletion, true
		case n.PaidFeed == "":
			if st.OnlyFreeCompletion {
				return nil, 0, false
			}
			return item, onlyFreeCompletion, true
		default:
			if st.FreeCompletion {
				return nil, 0, false
			}
			return item, freeCompletion, true
		}
	}
	return nil, 0, false
}

// completionFlagged reports whether the completion milestone reachable from
// this feed was already announced, letting the checker skip the fetch.
func completionFlagged(n *novel, kind feedKind, st *novelState) bool {
	if kind == feedPaid {
		return st.PaidCompletion
	}
	if n.PaidFeed == "" {
		return st.OnlyFreeCompletion
	}
	return st.FreeCompletion
}

func (c *checker) checkCompletions(ctx context.Context, kind feedKind) {
	for _, n := range c.novels {
		// Without a final-chapter marker we don't know what "complete" means.
		if n.LastChapter == "" {
			continue
		}
		url := n.feedURL(kind)
		if url == "" {
			continue
		}

		st := c.getState(n.Title)
		if completionFlagged(n, kind, st) {
			c.slog.Debug("already notified", "novel", n.Title, "feed", kind)
			continue
		}

		items, err := c.fetchFeed(ctx, url)
		if err != nil {
			c.slog.Warn("fetching feed failed", "novel", n.Title, "feed", kind, "error", err)
			continue
		}

		entry, ck, due := completionDue(n, kind, items, st)
		if !due {
			c.slog.Debug("no completion due", "novel", n.Title, "feed", kind)
			continue
		}

		msg := &message{
			Content: c.buildCompletionMessage(n, ck, entry),
			// Completion walls read better without link previews.
			Flags: suppressEmbeds,
		}
		if err := c.announce(ctx, n, msg); err != nil {
			continue
		}
		switch ck {
		case paidCompletion:
			st.PaidCompletion = true
		case freeCompletion:
			st.FreeCompletion = true
		case onlyFreeCompletion:
			st.OnlyFreeCompletion = true
		}
		c.logf("Sent %s announcement for %s", ck, n.Title)
	}
}

func (c *checker) buildCompletionMessage(n *novel, ck completionKind, entry *gofeed.Item) string {
	count := n.ChapterCount
	if count == "" {
		count = "the entire series"
	}
	chap := chapterField(entry)

	if ck == freeCompletion {
		return fmt.Sprintf(freeCompletionTemplate, n.Title, n.URL, count, n.Host)
	}

	duration, err := runDuration(n.StartDate, entryTime(entry, c.now()))
	if err != nil {
		c.slog.Warn("unparseable start date", "novel", n.Title, "start_date", n.StartDate, "error", err)
		duration = "all this time"
	}

	tmpl := paidCompletionTemplate
	if ck == onlyFreeCompletion {
		tmpl = onlyFreeCompletionTemplate
	}
	return fmt.Sprintf(tmpl, n.Title, n.URL, chap, entry.Link, duration, count, n.Host)
}

// runDuration phrases how long a series ran, from its DD/MM/YYYY start date
// to the final chapter's publish time: "a year and 2 months", "more than
// 3 weeks", "less than a week".
func runDuration(startDate string, end time.Time) (string, error) {
	start, err := time.Parse("2/1/2006", startDate)
	if err != nil {
		return "", err
	}

	years, months, days := dateDiff(start, end)

	if years > 0 {
		if months > 0 {
			if days > 0 {
				return "more than " + countPhrase(years, "year") + " and " + countPhrase(months, "month"), nil
			}
			return countPhrase(years, "year") + " and " + countPhrase(months, "month"), nil
		}
		if days > 0 {
			return "more than " + countPhrase(years, "year"), nil
		}
		return countPhrase(years, "year"), nil
	}

	if months > 0 {
		if days > 0 {
			return "more than " + countPhrase(months, "month"), nil
		}
		return countPhrase(months, "month"), nil
	}

	weeks, rem := days/7, days%7
	if weeks > 0 {
		if rem > 0 {
			return fmt.Sprintf("more than %d week%s", weeks, plural(weeks)), nil
		}
		return fmt.Sprintf("%d week%s", weeks, plural(weeks)), nil
	}
	if rem > 0 {
		return "more than a week", nil
	}
	return "less than a week", nil
}

// dateDiff is the calendar difference between two dates, computed the way
// humans count: whole months first, leftover days after. Month addition
// clamps to shorter months, so January 31 plus a month is the end of
// February, not March 2.
func dateDiff(start, end time.Time) (years, months, days int) {
	y1, m1, d1 := start.Date()
	y2, m2, d2 := end.Date()
	startDate := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	endDate := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)

	total := (y2-y1)*12 + int(m2) - int(m1)
	if addMonths(startDate, total).After(endDate) {
		total--
	}
	days = int(endDate.Sub(addMonths(startDate, total)) / (24 * time.Hour))
	return total / 12, total % 12, days
}

func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	mm := int(m) - 1 + n
	y, mm = y+mm/12, mm%12
	if mm < 0 {
		y, mm = y-1, mm+12
	}
	month := time.Month(mm + 1)
	if last := daysIn(y, month); d > last {
		d = last
	}
	return time.Date(y, month, d, 0, 0, 0, 0, t.Location())
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func countPhrase(n int, unit string) string {
	if n == 1 {
		return "a " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
