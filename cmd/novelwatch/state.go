// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.mistmint.dev/novelwatch/internal/atomicio"
)

// Announcement state.
//
// The state file is a single JSON object mapping novel title to a record of
// milestone flags. Every flag transitions false→true at most once and is
// never reset automatically: once a milestone is announced, it stays
// announced until an operator edits the file by hand.

type novelState struct {
	LaunchFree         bool        `json:"launch_free,omitempty"`
	PaidCompletion     bool        `json:"paid_completion,omitempty"`
	FreeCompletion     bool        `json:"free_completion,omitempty"`
	OnlyFreeCompletion bool        `json:"only_free_completion,omitempty"`
	ExtraAnnounced     bool        `json:"extra_announced,omitempty"`
	LastExtraAnnounced string      `json:"last_extra_announced,omitempty"`
	Arcs               *arcHistory `json:"arcs,omitempty"`
}

// completed reports whether any completion milestone has been announced.
func (st *novelState) completed() bool {
	return st.PaidCompletion || st.FreeCompletion || st.OnlyFreeCompletion
}

// arcs returns the novel's arc history, creating it on first use.
func (st *novelState) arcs() *arcHistory {
	if st.Arcs == nil {
		st.Arcs = new(arcHistory)
	}
	return st.Arcs
}

// getState returns the state record for a novel, lazily creating an empty
// one on first encounter.
func (c *checker) getState(title string) *novelState {
	st, ok := c.state[title]
	if !ok {
		st = new(novelState)
		c.state[title] = st
	}
	return st
}

func (c *checker) loadState() error {
	b, err := os.ReadFile(c.statePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("state file %s does not exist: create it with contents {} and rerun", c.statePath)
		}
		return fmt.Errorf("reading state: %w", err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return fmt.Errorf("state file %s is empty: reset it to {} and rerun", c.statePath)
	}

	state := make(map[string]*novelState)
	if err := json.Unmarshal(b, &state); err != nil {
		return fmt.Errorf("state file %s is malformed (%v): reset it to {} and rerun", c.statePath, err)
	}
	c.state = state
	return nil
}

// saveState rewrites the whole state document. It is called once per run,
// after all novels have been processed.
func (c *checker) saveState() error {
	b, err := json.MarshalIndent(c.state, "", "  ")
	if err != nil {
		return err
	}
	return atomicio.WriteFile(c.statePath, append(b, '\n'), 0o644)
}
