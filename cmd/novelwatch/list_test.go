// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"testing"

	"go.mistmint.dev/novelwatch/internal/testutil"

	"golang.org/x/tools/txtar"
)

func TestListState(t *testing.T) {
	t.Parallel()

	testutil.RunGolden(t, "testdata/list/*.txtar", func(t *testing.T, match string) []byte {
		ar := txtar.Parse(readFile(t, match))

		c := testChecker(t, testMux(t, nil))
		novels, err := parseRegistry("novels.star", string(testutil.ExtractTxtarFile(t, ar, "novels.star")), t.Logf)
		if err != nil {
			t.Fatal(err)
		}
		c.novels = novels
		c.state = testutil.UnmarshalJSON[map[string]*novelState](t, testutil.ExtractTxtarFile(t, ar, "state.json"))

		var buf bytes.Buffer
		if err := c.listState(&buf); err != nil {
			t.Fatal(err)
		}
		return buf.Bytes()
	}, *update)
}

func TestPad(t *testing.T) {
	t.Parallel()

	testutil.AssertEqual(t, pad("ab", 4), "ab  ")
	testutil.AssertEqual(t, pad("abcd", 4), "abcd")
	testutil.AssertEqual(t, pad("abcde", 4), "abcde")
	// ANSI escapes don't count towards the width.
	testutil.AssertEqual(t, pad("\033[32mok\033[0m", 4), "\033[32mok\033[0m  ")
	testutil.AssertEqual(t, stripANSI("\033[90mNO STATE\033[0m"), "NO STATE")
}
