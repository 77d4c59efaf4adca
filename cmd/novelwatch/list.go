// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// listState prints a table of per-novel announcement state to w.
func (c *checker) listState(w io.Writer) error {
	const (
		colorReset  = "\033[0m"
		colorGreen  = "\033[32m"
		colorYellow = "\033[33m"
		colorGray   = "\033[90m"
	)

	fmt.Fprintln(w, "NOVEL                                     LAUNCH  COMPLETION  EXTRAS  ARCS")

	var (
		total     int
		completed int
		untracked int
	)

	for _, n := range c.novels {
		total++
		st, hasState := c.state[n.Title]

		title := n.Title
		// Truncate the title to ~40 chars to keep the table compact.
		if utf8.RuneCountInString(title) > 40 {
			title = string([]rune(title)[:37]) + "..."
		}

		if !hasState {
			untracked++
			fmt.Fprintf(w, "%s%s\n", pad(title, 42), colorGray+"NO STATE"+colorReset)
			continue
		}

		launchStr := "-"
		if st.LaunchFree {
			launchStr = colorGreen + "SENT" + colorReset
		}

		var completionStr string
		switch {
		case st.PaidCompletion && st.FreeCompletion:
			completionStr = colorGreen + "PAID+FREE" + colorReset
		case st.OnlyFreeCompletion:
			completionStr = colorGreen + "FREE ONLY" + colorReset
		case st.PaidCompletion:
			completionStr = colorYellow + "PAID" + colorReset
		case st.FreeCompletion:
			completionStr = colorYellow + "FREE" + colorReset
		default:
			completionStr = "-"
		}
		if st.completed() {
			completed++
		}

		extrasStr := "-"
		switch {
		case st.ExtraAnnounced:
			extrasStr = colorGreen + "SENT" + colorReset
		case st.LastExtraAnnounced != "":
			extrasStr = colorYellow + "PARTIAL" + colorReset
		}

		arcsStr := "-"
		if st.Arcs != nil && !st.Arcs.empty() {
			arcsStr = fmt.Sprintf("%d/%d", len(st.Arcs.Unlocked), len(st.Arcs.Unlocked)+len(st.Arcs.Locked))
		}

		// NOVEL (42) | LAUNCH (8) | COMPLETION (12) | EXTRAS (8) | ARCS
		fmt.Fprintf(w, "%s%s%s%s%s\n",
			pad(title, 42),
			pad(launchStr, 8),
			pad(completionStr, 12),
			pad(extrasStr, 8),
			arcsStr,
		)
	}

	fmt.Fprintf(w, "\nSummary: %d total, %s%d completed%s, %s%d untracked%s\n",
		total,
		colorGreen, completed, colorReset,
		colorGray, untracked, colorReset,
	)

	return nil
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

func pad(s string, width int) string {
	l := utf8.RuneCountInString(stripANSI(s))
	if l >= width {
		return s
	}
	return s + strings.Repeat(" ", width-l)
}
