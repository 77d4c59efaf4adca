// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Novel registry.
//
// The registry is a Starlark file defining a list of novel() records. It is
// a static, read-only input: novelwatch never modifies it.

// feedKind selects which of a novel's feeds a checker looks at.
type feedKind string

const (
	feedFree feedKind = "free"
	feedPaid feedKind = "paid"
)

type novel struct {
	Title         string `json:"title"`
	ShortCode     string `json:"short_code,omitempty"`
	URL           string `json:"url,omitempty"`
	FreeFeed      string `json:"free_feed,omitempty"`
	PaidFeed      string `json:"paid_feed,omitempty"`
	FeaturedImage string `json:"featured_image,omitempty"`
	LastChapter   string `json:"last_chapter,omitempty"`
	ChapterCount  string `json:"chapter_count,omitempty"`
	StartDate     string `json:"start_date,omitempty"` // DD/MM/YYYY
	Host          string `json:"host,omitempty"`
	Translator    string `json:"translator,omitempty"`
	HostLogo      string `json:"host_logo,omitempty"`
}

func (n *novel) String() string        { return fmt.Sprintf("<novel title=%q>", n.Title) }
func (n *novel) Type() string          { return "novel" }
func (n *novel) Freeze()               {} // immutable
func (n *novel) Truth() starlark.Bool  { return starlark.Bool(n.Title != "") }
func (n *novel) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable: %s", n.Type()) }

// feedURL returns the URL of the novel's free or paid feed, or an empty
// string when the novel doesn't have one.
func (n *novel) feedURL(kind feedKind) string {
	if kind == feedPaid {
		return n.PaidFeed
	}
	return n.FreeFeed
}

var shortCodeRe = regexp.MustCompile(`[^A-Z0-9]+`)

// shortCode returns the stable per-novel identifier used to name destination
// secrets. An explicit short_code from the registry is used verbatim;
// otherwise it is derived from the title: uppercase, non-alphanumeric runs
// collapsed to underscores.
func (n *novel) shortCode() string {
	if n.ShortCode != "" {
		return n.ShortCode
	}
	return strings.Trim(shortCodeRe.ReplaceAllString(strings.ToUpper(n.Title), "_"), "_")
}

func novelBuiltin(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("unexpected positional arguments")
	}
	n := new(novel)
	if err := starlark.UnpackArgs("novel", args, kwargs,
		"title", &n.Title,
		"url?", &n.URL,
		"short_code?", &n.ShortCode,
		"free_feed?", &n.FreeFeed,
		"paid_feed?", &n.PaidFeed,
		"featured_image?", &n.FeaturedImage,
		"last_chapter?", &n.LastChapter,
		"chapter_count?", &n.ChapterCount,
		"start_date?", &n.StartDate,
		"host?", &n.Host,
		"translator?", &n.Translator,
		"host_logo?", &n.HostLogo,
	); err != nil {
		return nil, err
	}
	return n, nil
}

func (c *checker) loadRegistry() error {
	b, err := os.ReadFile(c.registryPath)
	if err != nil {
		return fmt.Errorf("reading registry: %w", err)
	}
	novels, err := parseRegistry(c.registryPath, string(b), c.logf)
	if err != nil {
		return fmt.Errorf("parsing registry %s: %w", c.registryPath, err)
	}
	c.novels = novels
	return nil
}

func parseRegistry(filename, src string, logf func(string, ...any)) ([]*novel, error) {
	globals, err := starlark.ExecFileOptions(
		&syntax.FileOptions{
			TopLevelControl: true,
		},
		&starlark.Thread{
			Print: func(_ *starlark.Thread, msg string) { logf("%s", msg) },
		},
		filename,
		src,
		starlark.StringDict{
			"novel": starlark.NewBuiltin("novel", novelBuiltin),
		},
	)
	if err != nil {
		return nil, err
	}

	novelsList, ok := globals["novels"].(*starlark.List)
	if !ok {
		return nil, errors.New("novels must be defined and be a list")
	}

	var (
		novels []*novel
		titles = make(map[string]bool)
	)

	for elem := range novelsList.Elements() {
		n, ok := elem.(*novel)
		if !ok {
			continue
		}
		if n.Title == "" {
			return nil, errors.New("novel with empty title")
		}
		if titles[n.Title] {
			return nil, fmt.Errorf("duplicate novel %q", n.Title)
		}
		titles[n.Title] = true
		for _, feed := range []string{n.FreeFeed, n.PaidFeed} {
			if feed == "" {
				continue
			}
			if _, err := url.ParseRequestURI(feed); err != nil {
				return nil, fmt.Errorf("invalid feed URL %q of novel %q", feed, n.Title)
			}
		}
		novels = append(novels, n)
	}

	return novels, nil
}
