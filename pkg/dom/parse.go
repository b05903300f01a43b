package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ParseString builds a Document from HTML source text. Tokenizing and tree
// construction are delegated to golang.org/x/net/html; this package only
// converts the resulting tree into our node model.
func ParseString(content, baseURL string) (*Document, error) {
	return Parse(strings.NewReader(content), baseURL)
}

// Parse builds a Document from an io.Reader of HTML.
func Parse(r io.Reader, baseURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	doc := NewDocument(baseURL)
	convertChildren(root, doc.Root)
	return doc, nil
}

func convertChildren(src *html.Node, parent *Node) {
	for c := src.FirstChild; c != nil; c = c.NextSibling {
		if n := convertNode(c); n != nil {
			parent.AddChild(n)
			convertChildren(c, n)
		}
	}
}

// convertNode maps one x/net/html node to ours. Doctype nodes and
// whitespace-only text return nil and are dropped.
func convertNode(src *html.Node) *Node {
	switch src.Type {
	case html.ElementNode:
		n := &Node{
			Type:     ElementNode,
			TagName:  strings.ToLower(src.Data),
			Children: make([]*Node, 0),
		}
		if len(src.Attr) > 0 {
			n.Attributes = make(map[string]string, len(src.Attr))
			for _, a := range src.Attr {
				n.Attributes[strings.ToLower(a.Key)] = a.Val
			}
		}
		return n
	case html.TextNode:
		text := stripControlChars(src.Data)
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return &Node{Type: TextNode, Text: text}
	case html.CommentNode:
		return &Node{Type: CommentNode, Text: src.Data}
	default:
		return nil
	}
}

// ParseFragmentString parses a snippet of HTML markup and returns the
// resulting nodes with their parent pointers cleared, ready for insertion.
// Used for innerHTML-style assignment from scripts.
func ParseFragmentString(content string) ([]*Node, error) {
	doc, err := ParseString(content, "")
	if err != nil {
		return nil, err
	}
	body := doc.Root.FindAll("body")
	if len(body) == 0 {
		return nil, nil
	}
	nodes := body[0].Children
	for _, n := range nodes {
		n.Parent = nil
	}
	return nodes, nil
}

// stripControlChars removes control characters that upset rendering.
// Tab, newline, and carriage return survive.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
