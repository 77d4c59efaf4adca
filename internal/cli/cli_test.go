// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"

	"go.mistmint.dev/novelwatch/internal/testutil"
)

func testEnv(args ...string) (*Env, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &Env{
		Args:   args,
		Getenv: func(string) string { return "" },
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
	}, &stdout, &stderr
}

func TestRun(t *testing.T) {
	t.Parallel()

	var gotArgs []string
	app := AppFunc(func(_ context.Context, env *Env) error {
		gotArgs = env.Args
		return nil
	})

	env, _, _ := testEnv("hello", "world")
	if err := Run(context.Background(), app, env); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, gotArgs, []string{"hello", "world"})
}

func TestRunPropagatesError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("it broke")
	app := AppFunc(func(context.Context, *Env) error { return wantErr })

	env, _, _ := testEnv()
	err := Run(context.Background(), app, env)
	if !errors.Is(err, wantErr) {
		t.Fatalf("Run returned %v, want %v", err, wantErr)
	}
}

type flagApp struct {
	verbose bool
	ran     bool
}

func (a *flagApp) Flags(fs *flag.FlagSet) {
	fs.BoolVar(&a.verbose, "verbose", false, "Be more verbose.")
}

func (a *flagApp) Run(context.Context, *Env) error {
	a.ran = true
	return nil
}

func TestRunParsesFlags(t *testing.T) {
	t.Parallel()

	app := new(flagApp)
	env, _, _ := testEnv("-verbose", "arg")
	if err := Run(context.Background(), app, env); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, app.verbose, true)
	testutil.AssertEqual(t, app.ran, true)
	testutil.AssertEqual(t, env.Args, []string{"arg"})
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	app := AppFunc(func(context.Context, *Env) error {
		t.Fatal("app must not run when -version is passed")
		return nil
	})

	env, _, stderr := testEnv("-version")
	err := Run(context.Background(), app, env)
	if !errors.Is(err, ErrExitVersion) {
		t.Fatalf("Run returned %v, want ErrExitVersion", err)
	}
	if stderr.Len() == 0 {
		t.Fatal("version output is empty")
	}
}

func TestRunInvalidFlag(t *testing.T) {
	t.Parallel()

	app := AppFunc(func(context.Context, *Env) error { return nil })
	env, _, _ := testEnv("-no-such-flag")
	err := Run(context.Background(), app, env)
	if err == nil {
		t.Fatal("Run succeeded with an invalid flag")
	}
	if isPrintableError(err) {
		t.Fatalf("flag parse error %v must be unprintable", err)
	}
}

func TestEnvLogf(t *testing.T) {
	t.Parallel()

	env, _, stderr := testEnv()
	env.Logf("hello %s", "world")
	testutil.AssertEqual(t, stderr.String(), "hello world\n")
}
