package script

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// MaxRepairTokens bounds how many closing tokens the sanitizer will append
// to balance a script. Past this, the malformation is treated as too severe
// to repair and sanitization fails instead of guessing structure.
const MaxRepairTokens = 8

// SanitizeError reports a script that could not be repaired.
type SanitizeError struct {
	Reason string
}

func (e *SanitizeError) Error() string {
	return "sanitize: " + e.Reason
}

// textualRepair is one entry of the fixed repair table: a known pattern of
// malformed source mapped to its replacement. The table is closed; the
// sanitizer is not a heuristic engine.
type textualRepair struct {
	pattern     *regexp.Regexp
	replacement string
}

var repairTable = []textualRepair{
	// "if (x) then {" — stray BASIC-style keyword between condition and block
	{regexp.MustCompile(`\bif\s*\(([^)]*)\)\s*then\b`), "if ($1)"},
	// "elseif" fused keyword
	{regexp.MustCompile(`\belseif\b`), "else if"},
	// "if x > 1 {" without parentheses around a simple comparison
	{regexp.MustCompile(`\bif\s+([A-Za-z_$][\w$.]*\s*[<>=!]=?\s*[\w$.'"]+)\s*\{`), "if ($1) {"},
}

// Sanitizer repairs and neutralizes malformed script text before execution.
// It only transforms text; a script's origin and identity are untouched.
type Sanitizer struct {
	// MaxRepair overrides MaxRepairTokens when positive.
	MaxRepair int
}

func (s *Sanitizer) maxRepair() int {
	if s.MaxRepair > 0 {
		return s.MaxRepair
	}
	return MaxRepairTokens
}

// Sanitize returns script text safe to hand to the host, or a *SanitizeError
// when the input is too malformed to repair. Source that already parses
// (after HTML comment markers are stripped) is returned unchanged; repair
// only ever runs on text the parser rejects.
func (s *Sanitizer) Sanitize(source string) (string, error) {
	out := stripHTMLComments(source)

	if _, err := goja.Compile("", out, false); err == nil {
		return out, nil
	}

	out, err := s.balance(out)
	if err != nil {
		return "", err
	}
	return applyRepairs(out), nil
}

// stripHTMLComments removes the <!-- and --> markers that legacy pages use
// to hide script bodies from pre-script browsers. Only the markers go; the
// code between them stays.
func stripHTMLComments(source string) string {
	if !strings.Contains(source, "<!--") && !strings.Contains(source, "-->") {
		return source
	}
	source = strings.ReplaceAll(source, "<!--", "")
	source = strings.ReplaceAll(source, "//-->", "")
	source = strings.ReplaceAll(source, "-->", "")
	return source
}

// span marks a half-open region of source as code or literal content.
type span struct {
	start, end int
	code       bool
}

// lexSpans partitions source into code spans and literal spans: string
// literals, JS comments, and regex literals. Structural scans and textual
// repairs walk code spans only, so literal content is never miscounted as
// structure or rewritten by the repair table. The spans cover every byte
// of source exactly once, in order.
func lexSpans(source string) []span {
	var spans []span
	n := len(source)
	i := 0
	codeStart := 0
	var lastCode byte

	flushCode := func(end int) {
		if end > codeStart {
			spans = append(spans, span{codeStart, end, true})
		}
	}
	literal := func(end int) {
		flushCode(i)
		spans = append(spans, span{i, end, false})
		i = end
		codeStart = end
	}

	for i < n {
		c := source[i]
		switch c {
		case '\'', '"', '`':
			literal(skipString(source, i))
			lastCode = 0
			continue
		case '/':
			if i+1 < n && source[i+1] == '/' {
				literal(skipLineComment(source, i))
				continue
			}
			if i+1 < n && source[i+1] == '*' {
				literal(skipBlockComment(source, i))
				continue
			}
			// A slash after an identifier, number, or closing bracket is
			// division; anywhere else it opens a regex literal.
			if regexPossible(lastCode) {
				literal(skipRegex(source, i))
				lastCode = 0
				continue
			}
		}
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			lastCode = c
		}
		i++
	}
	flushCode(n)
	return spans
}

// regexPossible reports whether a / following the given code byte starts a
// regex literal. Zero means start of input or just after a literal.
func regexPossible(last byte) bool {
	switch last {
	case 0, '(', '[', '{', '}', ',', ';', ':', '=', '!', '&', '|', '?',
		'+', '-', '*', '%', '<', '>', '^', '~':
		return true
	}
	return false
}

// balance appends the minimum closing tokens needed to bring brace, paren,
// and bracket nesting to zero, counting only code spans. An unmatched
// closing token, or a deficit larger than the repair bound, fails
// sanitization.
func (s *Sanitizer) balance(source string) (string, error) {
	var stack []byte

	for _, sp := range lexSpans(source) {
		if !sp.code {
			continue
		}
		for i := sp.start; i < sp.end; i++ {
			switch c := source[i]; c {
			case '{', '(', '[':
				stack = append(stack, closerFor(c))
			case '}', ')', ']':
				if len(stack) == 0 || stack[len(stack)-1] != c {
					return "", &SanitizeError{Reason: fmt.Sprintf("unmatched closing %q", c)}
				}
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(stack) == 0 {
		return source, nil
	}
	if len(stack) > s.maxRepair() {
		return "", &SanitizeError{Reason: fmt.Sprintf("%d unclosed tokens exceeds repair bound %d", len(stack), s.maxRepair())}
	}

	var sb strings.Builder
	sb.WriteString(source)
	if !strings.HasSuffix(source, "\n") {
		sb.WriteByte('\n')
	}
	for j := len(stack) - 1; j >= 0; j-- {
		sb.WriteByte(stack[j])
	}
	sb.WriteByte('\n')
	return sb.String(), nil
}

// applyRepairs runs the repair table over the code spans of source,
// leaving string, comment, and regex content byte-for-byte intact.
func applyRepairs(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	for _, sp := range lexSpans(source) {
		chunk := source[sp.start:sp.end]
		if sp.code {
			for _, repair := range repairTable {
				chunk = repair.pattern.ReplaceAllString(chunk, repair.replacement)
			}
		}
		sb.WriteString(chunk)
	}
	return sb.String()
}

func closerFor(open byte) byte {
	switch open {
	case '{':
		return '}'
	case '(':
		return ')'
	}
	return ']'
}

// skipString returns the index after the string literal starting at i.
// An unterminated literal consumes to end of input; balancing treats the
// remainder as string content rather than miscounting it.
func skipString(source string, i int) int {
	quote := source[i]
	i++
	for i < len(source) {
		if source[i] == '\\' {
			i += 2
			continue
		}
		if source[i] == quote {
			return i + 1
		}
		// Plain quotes do not span lines; template literals do
		if quote != '`' && source[i] == '\n' {
			return i + 1
		}
		i++
	}
	return i
}

func skipLineComment(source string, i int) int {
	for i < len(source) && source[i] != '\n' {
		i++
	}
	return i
}

func skipBlockComment(source string, i int) int {
	i += 2
	for i+1 < len(source) {
		if source[i] == '*' && source[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(source)
}

// skipRegex returns the index after the regex literal starting at i.
// Escapes and character classes are honored; an unescaped slash outside a
// class ends the literal. A newline before the close means the slash was
// not a regex after all, so the scan stops there.
func skipRegex(source string, i int) int {
	i++
	inClass := false
	for i < len(source) {
		switch source[i] {
		case '\\':
			i += 2
			continue
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				return i + 1
			}
		case '\n':
			return i
		}
		i++
	}
	return i
}
