package style

import (
	"fmt"
	"sort"

	"github.com/Sneed-Group/wink-browser/pkg/dom"
	"github.com/Sneed-Group/wink-browser/pkg/logging"
	"github.com/Sneed-Group/wink-browser/pkg/resource"
)

// Source tiers for the cascade. This engine's precedence is deliberate and
// not the CSS-standard origin cascade: embedded <style> blocks beat external
// stylesheets, and inline style attributes beat both. Within a tier, rules
// are ordered by selector specificity, then sheet order.
type sourceTier int

const (
	tierUserAgent sourceTier = iota
	tierExternal
	tierBlock
)

// tieredRule is a rule tagged with the tier of the sheet it came from.
type tieredRule struct {
	Rule
	tier sourceTier
}

// Resolver computes a Style for every element in a document from the three
// style sources: embedded <style> blocks, inline style attributes, and
// external stylesheets referenced by <link> elements.
type Resolver struct {
	fetcher resource.Fetcher
	sink    logging.Sink
}

// NewResolver creates a Resolver. fetcher may be nil, in which case external
// stylesheets are skipped (and logged as unavailable).
func NewResolver(fetcher resource.Fetcher, sink logging.Sink) *Resolver {
	if sink == nil {
		sink = logging.Nop{}
	}
	return &Resolver{fetcher: fetcher, sink: sink}
}

// Resolve computes the style map for the whole document. Running it twice
// over an unchanged document yields identical results; it reads the DOM and
// the sheets but mutates neither.
func (r *Resolver) Resolve(doc *dom.Document) map[*dom.Node]*Style {
	blockSheets := r.parseStyleBlocks(doc)
	externalSheets := r.fetchExternalSheets(doc)

	styles := make(map[*dom.Node]*Style)
	doc.Root.Walk(func(node *dom.Node) bool {
		if node.Type == dom.ElementNode && node.TagName != "document" {
			styles[node] = r.computeStyle(node, externalSheets, blockSheets)
		}
		return true
	})
	return styles
}

// parseStyleBlocks collects and parses <style> element contents in
// document order.
func (r *Resolver) parseStyleBlocks(doc *dom.Document) []*Stylesheet {
	sheets := make([]*Stylesheet, 0)
	for _, node := range doc.Root.FindAll("style") {
		sheet, skipped := ParseStylesheet(node.TextContent())
		for _, err := range skipped {
			r.sink.Log(logging.Warn, fmt.Sprintf("style block: %v", err), "")
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

// fetchExternalSheets fetches and parses stylesheets referenced by
// <link rel="stylesheet"> elements, in document order. A sheet that cannot
// be fetched is logged and skipped; it never aborts the load.
func (r *Resolver) fetchExternalSheets(doc *dom.Document) []*Stylesheet {
	sheets := make([]*Stylesheet, 0)
	for _, node := range doc.Root.FindAll("link") {
		if rel, _ := node.GetAttribute("rel"); rel != "stylesheet" {
			continue
		}
		href, ok := node.GetAttribute("href")
		if !ok || href == "" {
			continue
		}
		if r.fetcher == nil {
			r.sink.Log(logging.Warn, fmt.Sprintf("no fetcher; skipping external stylesheet %s", href), "")
			continue
		}
		body, _, err := r.fetcher.Fetch(href, resource.KindStyle)
		if err != nil {
			r.sink.Log(logging.Warn, fmt.Sprintf("external stylesheet %s: %v", href, err), "")
			continue
		}
		sheet, skipped := ParseStylesheet(string(body))
		for _, serr := range skipped {
			r.sink.Log(logging.Warn, fmt.Sprintf("external stylesheet %s: %v", href, serr), "")
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

// computeStyle applies the cascade for one element.
func (r *Resolver) computeStyle(node *dom.Node, external, blocks []*Stylesheet) *Style {
	finalStyle := NewStyle()

	applyUserAgentStyles(node, finalStyle)

	// Collect matching rules from both sheet tiers
	allRules := make([]tieredRule, 0)
	for _, sheet := range external {
		for _, rule := range MatchingRules(node, sheet) {
			allRules = append(allRules, tieredRule{Rule: rule, tier: tierExternal})
		}
	}
	for _, sheet := range blocks {
		for _, rule := range MatchingRules(node, sheet) {
			allRules = append(allRules, tieredRule{Rule: rule, tier: tierBlock})
		}
	}

	// Lower tier first, then lower specificity first; later applications
	// overwrite earlier ones. Stable sort keeps sheet order for ties.
	sort.SliceStable(allRules, func(i, j int) bool {
		if allRules[i].tier != allRules[j].tier {
			return allRules[i].tier < allRules[j].tier
		}
		return allRules[i].Selector.Specificity < allRules[j].Selector.Specificity
	})

	for _, rule := range allRules {
		for property, value := range rule.Declarations {
			finalStyle.Set(property, value)
		}
	}

	// Inline styles win over every sheet rule
	if styleAttr, ok := node.GetAttribute("style"); ok {
		inlineStyle := ParseInlineStyle(styleAttr)
		for property, value := range inlineStyle.Properties {
			finalStyle.Set(property, value)
		}
	}

	return finalStyle
}

// applyUserAgentStyles applies default browser styles based on element type.
func applyUserAgentStyles(node *dom.Node, style *Style) {
	if node.Type != dom.ElementNode {
		return
	}

	switch node.TagName {
	case "a":
		style.Set("color", "#0645ad")
		style.Set("text-decoration", "underline")
	case "b", "strong":
		style.Set("font-weight", "bold")
	case "i", "em":
		style.Set("font-style", "italic")
	}
}
