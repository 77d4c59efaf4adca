// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.mistmint.dev/novelwatch/internal/cli"
	"go.mistmint.dev/novelwatch/internal/request"

	"github.com/mmcdole/gofeed"
)

// Some types of errors that can happen during novelwatch execution.
var (
	errNoBotToken = errors.New("environment variable DISCORD_BOT_TOKEN is not defined")
	errNoThread   = errors.New("missing thread ID")
)

func main() { cli.Main(new(checker)) }

func (c *checker) Flags(fs *flag.FlagSet) {
	fs.StringVar(&c.feed, "feed", "", "Feed to check: 'free' or 'paid' (honored in supported commands).")
	fs.BoolVar(&c.dry, "dry", false, "Enable dry-run mode: log decisions, but don't post announcements or save state.")
}

type checker struct {
	init sync.Once

	// configuration
	dry          bool
	feed         string
	botToken     string
	registryPath string
	statePath    string
	// now acts as time.Now, but can be mocked for testing.
	now func() time.Time

	// initialized by doInit
	fp        *gofeed.Parser
	getenv    func(string) string
	httpc     *http.Client
	logf      func(string, ...any)
	scrubber  *strings.Replacer
	slog      *slog.Logger
	slogLevel *slog.LevelVar

	// loaded by loadRegistry and loadState
	novels []*novel
	state  map[string]*novelState
}

func (c *checker) doInit(env *cli.Env) {
	c.logf = env.Logf
	if c.now == nil {
		c.now = time.Now
	}
	if c.getenv == nil {
		c.getenv = env.Getenv
	}
	if c.httpc == nil {
		c.httpc = request.DefaultClient
	}

	c.fp = gofeed.NewParser()

	if c.botToken != "" {
		c.scrubber = strings.NewReplacer(
			c.botToken, "[EXPUNGED]",
		)
	}

	c.slogLevel = new(slog.LevelVar)
	c.slog = slog.New(slog.NewTextHandler(env.Stderr, &slog.HandlerOptions{
		Level: c.slogLevel,
	}))
}

func (c *checker) Run(ctx context.Context, env *cli.Env) error {
	// Load configuration from environment variables.
	c.botToken = cmp.Or(c.botToken, env.Getenv("DISCORD_BOT_TOKEN"))
	c.registryPath = cmp.Or(c.registryPath, env.Getenv("REGISTRY_FILE"), "novels.star")
	c.statePath = cmp.Or(c.statePath, env.Getenv("STATE_FILE"), "state.json")

	// Initialize internal state.
	c.init.Do(func() {
		c.doInit(env)
	})

	// Enable debug logging in dry-run mode.
	if c.dry {
		c.slogLevel.Set(slog.LevelDebug)
	}

	if len(env.Args) == 0 {
		return fmt.Errorf("%w: command is required, see -help for usage", cli.ErrInvalidArgs)
	}
	command := env.Args[0]

	if err := c.loadRegistry(); err != nil {
		return err
	}
	if err := c.loadState(); err != nil {
		return err
	}

	switch command {
	case "state":
		return c.listState(env.Stdout)
	case "launch", "completion", "extras", "arcs", "run":
		// Announcing commands need the bot credential, except in dry-run mode
		// where nothing is sent.
		if c.botToken == "" && !c.dry {
			return errNoBotToken
		}
	default:
		return fmt.Errorf("%w: no such command %q", cli.ErrInvalidArgs, command)
	}

	switch command {
	case "launch":
		if c.feed != "" && feedKind(c.feed) != feedFree {
			return fmt.Errorf("%w: launches are only announced on the free feed", cli.ErrInvalidArgs)
		}
		c.checkLaunches(ctx)
	case "completion":
		kind := feedKind(c.feed)
		if kind != feedFree && kind != feedPaid {
			return fmt.Errorf("%w: completion command requires -feed free or -feed paid", cli.ErrInvalidArgs)
		}
		c.checkCompletions(ctx, kind)
	case "extras":
		if c.feed != "" && feedKind(c.feed) != feedPaid {
			return fmt.Errorf("%w: extras are only announced on the paid feed", cli.ErrInvalidArgs)
		}
		c.checkExtras(ctx)
	case "arcs":
		c.checkArcs(ctx)
	case "run":
		if c.feed != "" {
			return fmt.Errorf("%w: run checks both feeds, drop the -feed flag", cli.ErrInvalidArgs)
		}
		c.checkLaunches(ctx)
		c.checkCompletions(ctx, feedFree)
		c.checkCompletions(ctx, feedPaid)
		c.checkExtras(ctx)
		c.checkArcs(ctx)
	}

	if c.dry {
		return nil
	}
	return c.saveState()
}
