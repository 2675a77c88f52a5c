package domain

import (
	"strings"
	"testing"
)

// FuzzParseAccountID checks that parsing never panics on arbitrary input
// and that an accepted value is always trimmed and bounded.
func FuzzParseAccountID(f *testing.F) {
	f.Add("")
	f.Add("acct-bob")
	f.Add("  padded  ")
	f.Add(strings.Repeat("x", 200))
	f.Add("\x00\xff")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseAccountID(input)
		if err != nil {
			return
		}
		s := string(id)
		if s == "" {
			t.Errorf("accepted empty account id from %q", input)
		}
		if len(s) > 128 {
			t.Errorf("accepted oversized account id (%d bytes)", len(s))
		}
		if s != strings.TrimSpace(s) {
			t.Errorf("accepted untrimmed account id %q", s)
		}
	})
}

// FuzzParseOrgID checks the numeric parse never panics and never yields a
// zero id.
func FuzzParseOrgID(f *testing.F) {
	f.Add("")
	f.Add("0")
	f.Add("1")
	f.Add("4294967295")
	f.Add("4294967296")
	f.Add("-7")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseOrgID(input)
		if err == nil && id == 0 {
			t.Errorf("accepted zero org id from %q", input)
		}
	})
}
