// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"net/http"
	"testing"

	"go.mistmint.dev/novelwatch/internal/testutil"

	"github.com/mmcdole/gofeed"
)

func TestLaunchDue(t *testing.T) {
	t.Parallel()

	items := []*gofeed.Item{{Title: "The Demon Lord"}}

	testutil.AssertEqual(t, launchDue(items, &novelState{}), true)
	testutil.AssertEqual(t, launchDue(nil, &novelState{}), false)
	testutil.AssertEqual(t, launchDue(items, &novelState{LaunchFree: true}), false)
}

func TestCheckLaunches(t *testing.T) {
	t.Parallel()

	tm := testMux(t, map[string]http.HandlerFunc{
		freeFeed: serveFeed(t, "testdata/feeds/free_launch.xml"),
	})
	c := testChecker(t, tm)
	c.novels = []*novel{testNovel()}

	c.checkLaunches(context.Background())

	testutil.AssertEqual(t, len(tm.sent), 1)
	got := tm.sent[0]
	testutil.AssertEqual(t, got.Thread, "1001")
	assertContains(t, got.Message.Content, "New Series Launch")
	// The announcement links the oldest entry, the first public chapter.
	assertContains(t, got.Message.Content, "https://mistmint.example/the-demon-lord/1")
	assertContains(t, got.Message.Content, "Chapter 1")

	testutil.AssertEqual(t, len(got.Message.Embeds), 1)
	testutil.AssertEqual(t, got.Message.Embeds[0].Title, "The Demon Lord")
	// Promo links after <hr> don't leak into the embed.
	testutil.AssertEqual(t, got.Message.Embeds[0].Description, "In which our demon lord wakes up.")

	testutil.AssertEqual(t, c.getState("The Demon Lord").LaunchFree, true)

	// Flag set, the second pass doesn't even fetch.
	c.checkLaunches(context.Background())
	testutil.AssertEqual(t, len(tm.sent), 1)
}

func TestCheckLaunchesSkipsPaidOnlyNovel(t *testing.T) {
	t.Parallel()

	tm := testMux(t, nil)
	c := testChecker(t, tm)
	n := testNovel()
	n.FreeFeed = ""
	c.novels = []*novel{n}

	c.checkLaunches(context.Background())
	testutil.AssertEqual(t, len(tm.sent), 0)
}

func TestCheckLaunchesKeepsFlagUnsetOnSendFailure(t *testing.T) {
	t.Parallel()

	tm := testMux(t, map[string]http.HandlerFunc{
		freeFeed: serveFeed(t, "testdata/feeds/free_launch.xml"),
		postMessage: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message": "Invalid Form Body", "code": 50035}`))
		},
	})
	c := testChecker(t, tm)
	c.novels = []*novel{testNovel()}

	c.checkLaunches(context.Background())

	testutil.AssertEqual(t, len(tm.sent), 0)
	testutil.AssertEqual(t, c.getState("The Demon Lord").LaunchFree, false)
}
