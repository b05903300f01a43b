package style

import (
	"strings"

	"github.com/Sneed-Group/wink-browser/pkg/dom"
)

// Matches returns true if the node matches the selector.
func Matches(node *dom.Node, selector Selector) bool {
	if node.Type != dom.ElementNode {
		return false
	}

	switch selector.Type {
	case UniversalSelector:
		return true
	case ElementSelector:
		return node.TagName == selector.Value
	case IDSelector:
		id, ok := node.GetAttribute("id")
		return ok && id == selector.Value
	case ClassSelector:
		classAttr, ok := node.GetAttribute("class")
		if !ok {
			return false
		}
		for _, class := range strings.Fields(classAttr) {
			if class == selector.Value {
				return true
			}
		}
	}
	return false
}

// MatchingRules returns the rules in the stylesheet that match the node,
// in stylesheet order.
func MatchingRules(node *dom.Node, sheet *Stylesheet) []Rule {
	matches := make([]Rule, 0)
	for _, rule := range sheet.Rules {
		if Matches(node, rule.Selector) {
			matches = append(matches, rule)
		}
	}
	return matches
}
