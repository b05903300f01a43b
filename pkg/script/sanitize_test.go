package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeWellFormedPassesThrough(t *testing.T) {
	s := &Sanitizer{}
	src := `var x = 1;
if (x > 0) {
	console.log("positive");
}`
	out, err := s.Sanitize(src)
	require.NoError(t, err)
	require.Equal(t, src, out, "well-formed input must come back byte-identical")
}

func TestSanitizeStripsHTMLCommentMarkers(t *testing.T) {
	s := &Sanitizer{}
	out, err := s.Sanitize("<!--\nvar x = 1;\n//-->")
	require.NoError(t, err)
	require.NotContains(t, out, "<!--")
	require.NotContains(t, out, "-->")
	require.Contains(t, out, "var x = 1;")
}

func TestSanitizeAppendsMissingBrace(t *testing.T) {
	s := &Sanitizer{}
	out, err := s.Sanitize("if (x) { y = 1;")
	require.NoError(t, err)
	require.Equal(t, strings.Count(out, "{"), strings.Count(out, "}"))
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), "}"))
}

func TestSanitizeAppendsClosersInNestingOrder(t *testing.T) {
	s := &Sanitizer{}
	out, err := s.Sanitize("function f() { g([1, 2")
	require.NoError(t, err)
	// innermost first: bracket, paren, brace
	idx := strings.LastIndex(out, "2")
	tail := strings.Map(func(r rune) rune {
		if r == '\n' || r == ' ' {
			return -1
		}
		return r
	}, out[idx+1:])
	require.Equal(t, "])}", tail)
}

func TestSanitizeRejectsUnmatchedCloser(t *testing.T) {
	s := &Sanitizer{}
	_, err := s.Sanitize("var x = 1; }")
	require.Error(t, err)
	var serr *SanitizeError
	require.ErrorAs(t, err, &serr)
}

func TestSanitizeRejectsDeficitOverBound(t *testing.T) {
	s := &Sanitizer{}
	_, err := s.Sanitize(strings.Repeat("{", MaxRepairTokens+1))
	require.Error(t, err)

	out, err := s.Sanitize(strings.Repeat("{", MaxRepairTokens))
	require.NoError(t, err)
	require.Equal(t, MaxRepairTokens, strings.Count(out, "}"))
}

func TestSanitizeRepairBoundOverride(t *testing.T) {
	s := &Sanitizer{MaxRepair: 2}
	_, err := s.Sanitize("{{{")
	require.Error(t, err)

	_, err = s.Sanitize("{{")
	require.NoError(t, err)
}

func TestSanitizeIgnoresBracesInStrings(t *testing.T) {
	s := &Sanitizer{}
	src := `var a = "{ not a block }"; var b = '}';`
	out, err := s.Sanitize(src)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestSanitizeIgnoresBracesInComments(t *testing.T) {
	s := &Sanitizer{}
	src := "// { opener in comment\n/* } closer too */\nvar x = 1;"
	out, err := s.Sanitize(src)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestSanitizeRepairTable(t *testing.T) {
	s := &Sanitizer{}

	out, err := s.Sanitize("if (x > 1) then { y = 2; }")
	require.NoError(t, err)
	require.Equal(t, "if (x > 1) { y = 2; }", out)

	out, err = s.Sanitize("if (a) { b(); } elseif (c) { d(); } else { e(); }")
	require.NoError(t, err)
	require.Contains(t, out, "else if (c)")

	out, err = s.Sanitize("if x > 1 { y = 2; }")
	require.NoError(t, err)
	require.Equal(t, "if (x > 1) { y = 2; }", out)
}

func TestSanitizeLeavesValidCodeAlone(t *testing.T) {
	s := &Sanitizer{}
	// Repair-table lookalikes inside a string literal, and an identifier
	// that happens to spell a fused keyword, are all valid code and must
	// round-trip untouched.
	src := `var msg = "if (x) then {"; var elseif = 1;`
	out, err := s.Sanitize(src)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestSanitizeRepairLeavesStringContentAlone(t *testing.T) {
	s := &Sanitizer{}
	// The script needs repair, but only its code may be rewritten; the
	// repair-table lookalike inside the string stays byte-for-byte.
	out, err := s.Sanitize(`var msg = "if (x) then {"; if (y) {`)
	require.NoError(t, err)
	require.Contains(t, out, `"if (x) then {"`)
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), "}"))
}

func TestSanitizeRegexLiteralPassesThrough(t *testing.T) {
	s := &Sanitizer{}
	src := `var x = "a)b".replace(/\)/g, "");`
	out, err := s.Sanitize(src)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestSanitizeIgnoresBracketsInRegexLiterals(t *testing.T) {
	s := &Sanitizer{}
	// Needs a brace appended; the escaped paren and character class in the
	// regex must not be counted as structure along the way.
	out, err := s.Sanitize(`var x = s.replace(/[)(]\)/g, ""); if (x) {`)
	require.NoError(t, err)
	require.Contains(t, out, `/[)(]\)/g`)
	require.True(t, strings.HasSuffix(strings.TrimSpace(out), "}"))
}

func TestSanitizeDivisionIsNotARegex(t *testing.T) {
	s := &Sanitizer{}
	src := "var half = (a + b) / 2; var third = a / 3;"
	out, err := s.Sanitize(src)
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestSanitizeIdempotent(t *testing.T) {
	s := &Sanitizer{}
	first, err := s.Sanitize("if (x) { y = 1;")
	require.NoError(t, err)
	second, err := s.Sanitize(first)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
