// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Novelwatch watches web novel RSS feeds and announces milestones to Discord.

It checks per-novel feeds for milestone events (a new free series launching,
a series completing its free or advance-access run, bonus chapters dropping,
a new arc opening in advance access) and posts each announcement exactly
once into the novel's Discord thread.

# Usage

	$ novelwatch [flags...] <command>

Available commands:

  - launch: announce novels whose free feed has its first chapters.
  - completion: announce finished runs; requires -feed free or -feed paid.
  - extras: announce newly dropped extras and side stories.
  - arcs: track arcs across both feeds and announce new advance-access arcs.
  - run: all of the above in sequence.
  - state: print a table of per-novel announcement state.

# Environment Variables

The novelwatch program relies on the following environment variables:

  - DISCORD_BOT_TOKEN: Discord bot token used to post announcements. Not
    required in dry-run mode.
  - REGISTRY_FILE: path to the novel registry. Defaults to "novels.star".
  - STATE_FILE: path to the state file. Defaults to "state.json".
  - <SHORTCODE>_THREAD_ID: Discord thread ID for each novel, keyed by the
    novel's short code. For example, a novel titled "The Demon Lord" reads
    its thread ID from THE_DEMON_LORD_THREAD_ID. Novels without a thread ID
    are skipped.

# Registry

novelwatch loads the novel registry from a file written in Starlark. The file
defines a list of novels, for example:

	novels = [
	    novel(
	        title = "The Demon Lord",
	        url = "https://example.com/novels/the-demon-lord",
	        free_feed = "https://example.com/feeds/the-demon-lord/free",
	        paid_feed = "https://example.com/feeds/the-demon-lord/paid",
	        last_chapter = "Chapter 120",
	        chapter_count = "120 chapters + 5 extras + 2 side stories",
	        start_date = "14/02/2024",
	        host = "Mistmint Haven",
	    )
	]

Each novel must have a title; everything else is optional. A checker that
needs a missing field (for example, completion needs last_chapter) simply
skips the novel. An explicit short_code overrides the one derived from the
title.

# State

State is a flat JSON object in STATE_FILE mapping novel titles to
announcement records. Every announcement flag is permanent: once set, the
corresponding announcement is never repeated, and flags are only ever reset
by editing the file by hand. The file must exist and contain at least {};
novelwatch refuses to invent an empty state on its own so that a missing or
corrupted file can't cause announcements to repeat.

In dry-run mode (-dry) novelwatch logs every decision at debug level, posts
nothing and leaves the state file untouched.
*/
package main

import (
	_ "embed"

	"go.mistmint.dev/novelwatch/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
