// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package version

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	if !strings.Contains(ua, CmdName()+"/") {
		t.Fatalf("UserAgent() = %q, want it to start with %q", ua, CmdName()+"/")
	}
	if !strings.Contains(ua, "(+https://go.mistmint.dev/novelwatch)") {
		t.Fatalf("UserAgent() = %q, missing bot information page", ua)
	}
}

func TestString(t *testing.T) {
	s := Version().String()
	if !strings.Contains(s, CmdName()) {
		t.Fatalf("Version().String() = %q, want it to mention %q", s, CmdName())
	}
}
