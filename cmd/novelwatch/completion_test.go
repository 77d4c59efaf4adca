// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	"go.mistmint.dev/novelwatch/internal/testutil"

	"github.com/mmcdole/gofeed"
)

func TestRunDuration(t *testing.T) {
	t.Parallel()

	cases := []struct {
		start string
		end   time.Time
		want  string
	}{
		{start: "14/02/2024", end: date(2025, 4, 14), want: "a year and 2 months"},
		{start: "14/02/2024", end: date(2025, 4, 20), want: "more than a year and 2 months"},
		{start: "14/02/2024", end: date(2025, 2, 14), want: "a year"},
		{start: "14/02/2024", end: date(2025, 2, 20), want: "more than a year"},
		{start: "14/02/2023", end: date(2025, 3, 14), want: "2 years and a month"},
		{start: "14/02/2025", end: date(2025, 3, 14), want: "a month"},
		{start: "14/02/2025", end: date(2025, 3, 16), want: "more than a month"},
		{start: "01/03/2025", end: date(2025, 3, 24), want: "more than 3 weeks"},
		{start: "10/03/2025", end: date(2025, 3, 24), want: "2 weeks"},
		{start: "20/03/2025", end: date(2025, 3, 24), want: "more than a week"},
		{start: "24/03/2025", end: date(2025, 3, 24), want: "less than a week"},
		// Month arithmetic clamps: a month after January 31 is the end of
		// February, so March 1 is one month and a day in.
		{start: "31/01/2025", end: date(2025, 3, 1), want: "more than a month"},
		{start: "31/01/2025", end: date(2025, 2, 28), want: "a month"},
	}

	for _, tc := range cases {
		got, err := runDuration(tc.start, tc.end)
		if err != nil {
			t.Fatalf("runDuration(%q, %s): %v", tc.start, tc.end, err)
		}
		if got != tc.want {
			t.Errorf("runDuration(%q, %s) = %q, want %q", tc.start, tc.end, got, tc.want)
		}
	}

	if _, err := runDuration("not a date", date(2025, 3, 24)); err == nil {
		t.Error("want error for unparseable start date, got nil")
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCompletionDue(t *testing.T) {
	t.Parallel()

	n := testNovel()
	final := &gofeed.Item{Custom: map[string]string{
		"chaptername": "Chapter 120",
		"nameextend":  " [END]",
	}}
	items := []*gofeed.Item{final, {Custom: map[string]string{"chaptername": "Chapter 119"}}}

	_, ck, due := completionDue(n, feedPaid, items, &novelState{})
	testutil.AssertEqual(t, due, true)
	testutil.AssertEqual(t, ck, paidCompletion)

	_, ck, due = completionDue(n, feedFree, items, &novelState{})
	testutil.AssertEqual(t, due, true)
	testutil.AssertEqual(t, ck, freeCompletion)

	freeOnly := testNovel()
	freeOnly.PaidFeed = ""
	_, ck, due = completionDue(freeOnly, feedFree, items, &novelState{})
	testutil.AssertEqual(t, due, true)
	testutil.AssertEqual(t, ck, onlyFreeCompletion)

	// Already announced milestones don't fire again.
	_, _, due = completionDue(n, feedPaid, items, &novelState{PaidCompletion: true})
	testutil.AssertEqual(t, due, false)
	_, _, due = completionDue(n, feedFree, items, &novelState{FreeCompletion: true})
	testutil.AssertEqual(t, due, false)
	_, _, due = completionDue(freeOnly, feedFree, items, &novelState{OnlyFreeCompletion: true})
	testutil.AssertEqual(t, due, false)

	// No final chapter in the feed, nothing due.
	_, _, due = completionDue(n, feedPaid, items[1:], &novelState{})
	testutil.AssertEqual(t, due, false)

	// Without a marker we can't detect completion at all.
	unmarked := testNovel()
	unmarked.LastChapter = ""
	_, _, due = completionDue(unmarked, feedPaid, items, &novelState{})
	testutil.AssertEqual(t, due, false)
}

func TestCheckCompletionsPaid(t *testing.T) {
	t.Parallel()

	tm := testMux(t, map[string]http.HandlerFunc{
		paidFeed: serveFeed(t, "testdata/feeds/final.xml"),
	})
	c := testChecker(t, tm)
	c.novels = []*novel{testNovel()}

	c.checkCompletions(context.Background(), feedPaid)

	testutil.AssertEqual(t, len(tm.sent), 1)
	content := tm.sent[0].Message.Content
	assertContains(t, content, "Completion Announcement")
	assertContains(t, content, "Chapter 120 [END]")
	// Started 14/02/2024, final chapter on 10/03/2025.
	assertContains(t, content, "more than a year")
	assertContains(t, content, "binge all advance releases")
	testutil.AssertEqual(t, tm.sent[0].Message.Flags, suppressEmbeds)

	testutil.AssertEqual(t, c.getState("The Demon Lord").PaidCompletion, true)

	c.checkCompletions(context.Background(), feedPaid)
	testutil.AssertEqual(t, len(tm.sent), 1)
}

func TestCheckCompletionsFree(t *testing.T) {
	t.Parallel()

	tm := testMux(t, map[string]http.HandlerFunc{
		freeFeed: serveFeed(t, "testdata/feeds/final.xml"),
	})
	c := testChecker(t, tm)
	c.novels = []*novel{testNovel()}

	c.checkCompletions(context.Background(), feedFree)

	testutil.AssertEqual(t, len(tm.sent), 1)
	content := tm.sent[0].Message.Content
	assertContains(t, content, "Complete Series Unlocked")
	assertContains(t, content, "120 chapters + 5 extras + 2 side stories")
	testutil.AssertEqual(t, c.getState("The Demon Lord").FreeCompletion, true)
}

func TestCheckCompletionsFreeOnlyNovel(t *testing.T) {
	t.Parallel()

	tm := testMux(t, map[string]http.HandlerFunc{
		freeFeed: serveFeed(t, "testdata/feeds/final.xml"),
	})
	c := testChecker(t, tm)
	n := testNovel()
	n.PaidFeed = ""
	c.novels = []*novel{n}

	c.checkCompletions(context.Background(), feedFree)

	testutil.AssertEqual(t, len(tm.sent), 1)
	content := tm.sent[0].Message.Content
	assertContains(t, content, "Completion Announcement")
	assertContains(t, content, "binge on all the releases")
	testutil.AssertEqual(t, c.getState("The Demon Lord").OnlyFreeCompletion, true)
}

func TestCompletionMessageFallbacks(t *testing.T) {
	t.Parallel()

	c := testChecker(t, testMux(t, nil))
	n := testNovel()
	n.ChapterCount = ""
	n.StartDate = "garbage"

	entry := &gofeed.Item{
		Link:   "https://mistmint.example/the-demon-lord/120",
		Custom: map[string]string{"chaptername": "Chapter 120"},
	}
	content := c.buildCompletionMessage(n, paidCompletion, entry)
	assertContains(t, content, "the entire series")
	assertContains(t, content, "all this time")
}
