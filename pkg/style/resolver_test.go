package style

import (
	"testing"

	"github.com/Sneed-Group/wink-browser/pkg/dom"
	"github.com/Sneed-Group/wink-browser/pkg/logging"
	"github.com/Sneed-Group/wink-browser/pkg/resource"
)

func mustParse(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(html, "http://example.com/")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return doc
}

func findOne(t *testing.T, doc *dom.Document, tag string) *dom.Node {
	t.Helper()
	nodes := doc.Root.FindAll(tag)
	if len(nodes) != 1 {
		t.Fatalf("expected exactly 1 <%s>, got %d", tag, len(nodes))
	}
	return nodes[0]
}

func TestInlineOverridesStyleBlock(t *testing.T) {
	doc := mustParse(t, `<html><head><style>p { color: red; }</style></head>
		<body><p style="color: blue">hi</p></body></html>`)

	resolver := NewResolver(nil, logging.Nop{})
	styles := resolver.Resolve(doc)

	p := findOne(t, doc, "p")
	color, _ := styles[p].Get("color")
	if color != "blue" {
		t.Errorf("expected inline color 'blue' to win over style block, got %q", color)
	}
}

func TestStyleBlockOverridesExternal(t *testing.T) {
	fetcher := resource.NewStaticFetcher("http://example.com/")
	fetcher.Add("http://example.com/site.css", []byte(`p { color: red; font-size: 20px; }`), "text/css")

	doc := mustParse(t, `<html><head>
		<link rel="stylesheet" href="http://example.com/site.css">
		<style>p { color: green; }</style>
	</head><body><p>hi</p></body></html>`)

	resolver := NewResolver(fetcher, logging.Nop{})
	styles := resolver.Resolve(doc)

	p := findOne(t, doc, "p")
	if color, _ := styles[p].Get("color"); color != "green" {
		t.Errorf("expected style block to beat external sheet, got color %q", color)
	}
	// Properties the block does not touch still come from the external sheet
	if size, _ := styles[p].Get("font-size"); size != "20px" {
		t.Errorf("expected font-size from external sheet, got %q", size)
	}
}

func TestHigherSpecificityWins(t *testing.T) {
	doc := mustParse(t, `<html><head><style>
		p { color: red; }
		.note { color: green; }
		#lead { color: blue; }
	</style></head><body><p id="lead" class="note">hi</p></body></html>`)

	resolver := NewResolver(nil, logging.Nop{})
	styles := resolver.Resolve(doc)

	p := findOne(t, doc, "p")
	if color, _ := styles[p].Get("color"); color != "blue" {
		t.Errorf("expected id selector to win, got color %q", color)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	doc := mustParse(t, `<html><head><style>p { color: red; } .c { margin: 4px; }</style></head>
		<body><p class="c">one</p><div style="color: blue">two</div></body></html>`)

	resolver := NewResolver(nil, logging.Nop{})
	first := resolver.Resolve(doc)
	second := resolver.Resolve(doc)

	if len(first) != len(second) {
		t.Fatalf("expected same style map size, got %d then %d", len(first), len(second))
	}
	for node, style := range first {
		other, ok := second[node]
		if !ok {
			t.Fatalf("node %q missing from second resolve", node.TagName)
		}
		if len(style.Properties) != len(other.Properties) {
			t.Errorf("node %q: property count changed between resolves", node.TagName)
		}
		for k, v := range style.Properties {
			if other.Properties[k] != v {
				t.Errorf("node %q: %s changed from %q to %q", node.TagName, k, v, other.Properties[k])
			}
		}
	}
}

func TestUnavailableExternalSheetIsSkipped(t *testing.T) {
	capture := &logging.Capture{}
	doc := mustParse(t, `<html><head>
		<link rel="stylesheet" href="http://example.com/missing.css">
		<style>p { color: red; }</style>
	</head><body><p>hi</p></body></html>`)

	resolver := NewResolver(resource.NewStaticFetcher("http://example.com/"), capture)
	styles := resolver.Resolve(doc)

	p := findOne(t, doc, "p")
	if color, _ := styles[p].Get("color"); color != "red" {
		t.Errorf("expected block styles to still apply, got color %q", color)
	}
	if len(capture.Events) == 0 {
		t.Error("expected the failed fetch to be logged")
	}
}

func TestMalformedRuleNeverPartiallyApplies(t *testing.T) {
	capture := &logging.Capture{}
	doc := mustParse(t, `<html><head><style>
		p { color: red; }
		div > p { color: blue; margin: 99px; }
	</style></head><body><div><p>hi</p></div></body></html>`)

	resolver := NewResolver(nil, capture)
	styles := resolver.Resolve(doc)

	p := findOne(t, doc, "p")
	if color, _ := styles[p].Get("color"); color != "red" {
		t.Errorf("expected malformed rule skipped entirely, got color %q", color)
	}
	if _, ok := styles[p].Get("margin-top"); ok {
		t.Error("expected no declaration from the skipped rule to apply")
	}
	if len(capture.Events) != 1 {
		t.Errorf("expected 1 logged skip, got %d", len(capture.Events))
	}
}

func TestUserAgentDefaults(t *testing.T) {
	doc := mustParse(t, `<html><body><a href="/x">link</a><b>bold</b></body></html>`)

	resolver := NewResolver(nil, logging.Nop{})
	styles := resolver.Resolve(doc)

	a := findOne(t, doc, "a")
	if deco, _ := styles[a].Get("text-decoration"); deco != "underline" {
		t.Errorf("expected anchors underlined by default, got %q", deco)
	}
	b := findOne(t, doc, "b")
	if weight, _ := styles[b].Get("font-weight"); weight != "bold" {
		t.Errorf("expected <b> bold by default, got %q", weight)
	}
}

func TestAuthorStyleOverridesUserAgent(t *testing.T) {
	doc := mustParse(t, `<html><head><style>a { color: black; }</style></head>
		<body><a href="/x">link</a></body></html>`)

	resolver := NewResolver(nil, logging.Nop{})
	styles := resolver.Resolve(doc)

	a := findOne(t, doc, "a")
	if color, _ := styles[a].Get("color"); color != "black" {
		t.Errorf("expected author rule to beat user-agent default, got %q", color)
	}
}
