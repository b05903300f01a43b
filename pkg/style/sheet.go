package style

import (
	"fmt"
	"strings"
)

// Selector represents a CSS selector
type Selector struct {
	Raw         string       // Original selector string
	Type        SelectorType // Type of selector
	Value       string       // The actual value (element name, class name, or id)
	Specificity int          // Specificity score for the cascade
}

type SelectorType int

const (
	ElementSelector SelectorType = iota // div, p, span
	ClassSelector                       // .classname
	IDSelector                          // #idname
	UniversalSelector                   // *
)

// Rule represents a CSS rule (selector + declarations)
type Rule struct {
	Selector     Selector
	Declarations map[string]string // property -> value
}

// Stylesheet represents a parsed CSS stylesheet
type Stylesheet struct {
	Rules []Rule
}

// ParseStylesheet parses stylesheet text into rules. Malformed rules are
// skipped, never partially applied; each skip is reported in the returned
// error slice so the caller can log it.
func ParseStylesheet(css string) (*Stylesheet, []error) {
	stylesheet := &Stylesheet{
		Rules: make([]Rule, 0),
	}
	var skipped []error

	css = strings.TrimSpace(css)
	if css == "" {
		return stylesheet, nil
	}

	for _, ruleStr := range splitRules(css) {
		rule, err := parseRule(ruleStr)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("skipping rule %q: %w", truncate(ruleStr, 60), err))
			continue
		}
		stylesheet.Rules = append(stylesheet.Rules, rule)
	}

	return stylesheet, skipped
}

// splitRules splits CSS into individual rules by brace nesting.
func splitRules(css string) []string {
	rules := make([]string, 0)
	depth := 0
	start := 0

	for i, ch := range css {
		if ch == '{' {
			depth++
		} else if ch == '}' {
			depth--
			if depth == 0 {
				ruleStr := css[start : i+1]
				if strings.TrimSpace(ruleStr) != "" {
					rules = append(rules, ruleStr)
				}
				start = i + 1
			}
		}
	}

	// Trailing text with no closing brace is itself a malformed rule; let
	// parseRule reject it so the skip gets reported.
	if tail := strings.TrimSpace(css[start:]); tail != "" {
		rules = append(rules, tail)
	}

	return rules
}

// parseRule parses a single CSS rule
func parseRule(ruleStr string) (Rule, error) {
	bracePos := strings.Index(ruleStr, "{")
	if bracePos == -1 {
		return Rule{}, fmt.Errorf("no opening brace found")
	}

	selectorStr := strings.TrimSpace(ruleStr[:bracePos])
	if selectorStr == "" {
		return Rule{}, fmt.Errorf("empty selector")
	}
	selector, err := parseSelector(selectorStr)
	if err != nil {
		return Rule{}, err
	}

	declStart := bracePos + 1
	declEnd := strings.LastIndex(ruleStr, "}")
	if declEnd == -1 || declEnd < declStart {
		return Rule{}, fmt.Errorf("no closing brace found")
	}

	declarations := parseDeclarations(ruleStr[declStart:declEnd])
	if len(declarations) == 0 {
		return Rule{}, fmt.Errorf("no declarations")
	}

	return Rule{
		Selector:     selector,
		Declarations: declarations,
	}, nil
}

// parseSelector parses a selector string and determines its type
func parseSelector(selectorStr string) (Selector, error) {
	selectorStr = strings.TrimSpace(selectorStr)

	if strings.ContainsAny(selectorStr, " >+~,") {
		return Selector{}, fmt.Errorf("unsupported compound selector %q", selectorStr)
	}

	if selectorStr == "*" {
		return Selector{
			Type: UniversalSelector,
			Raw:  selectorStr,
		}, nil
	}

	if strings.HasPrefix(selectorStr, "#") {
		if len(selectorStr) == 1 {
			return Selector{}, fmt.Errorf("empty id selector")
		}
		return Selector{
			Type:        IDSelector,
			Value:       selectorStr[1:],
			Raw:         selectorStr,
			Specificity: 100,
		}, nil
	}

	if strings.HasPrefix(selectorStr, ".") {
		if len(selectorStr) == 1 {
			return Selector{}, fmt.Errorf("empty class selector")
		}
		return Selector{
			Type:        ClassSelector,
			Value:       selectorStr[1:],
			Raw:         selectorStr,
			Specificity: 10,
		}, nil
	}

	return Selector{
		Type:        ElementSelector,
		Value:       strings.ToLower(selectorStr),
		Raw:         selectorStr,
		Specificity: 1,
	}, nil
}

// parseDeclarations parses CSS declarations into a map
func parseDeclarations(declStr string) map[string]string {
	declarations := make(map[string]string)

	for _, part := range strings.Split(declStr, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		colonPos := strings.Index(part, ":")
		if colonPos == -1 {
			continue
		}

		property := strings.TrimSpace(strings.ToLower(part[:colonPos]))
		value := strings.TrimSpace(part[colonPos+1:])

		if property != "" && value != "" {
			// Expand shorthand properties into their longhand forms
			style := NewStyle()
			expandShorthand(style, property, value)
			for k, v := range style.Properties {
				declarations[k] = v
			}
		}
	}

	return declarations
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
