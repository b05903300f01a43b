// Package script discovers, repairs, and executes the scripts of one
// document load.
package script

import (
	"github.com/Sneed-Group/wink-browser/pkg/dom"
)

// Origin says where a script's source text came from.
type Origin int

const (
	OriginInline Origin = iota
	OriginExternal
)

func (o Origin) String() string {
	if o == OriginExternal {
		return "external"
	}
	return "inline"
}

// State is the lifecycle state of a script within one document load.
// Transitions run Pending → Sanitized → Executed|Failed, or Pending → Failed
// when fetching or sanitizing fails. Terminal states are never re-entered.
type State int

const (
	StatePending State = iota
	StateSanitized
	StateExecuted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateSanitized:
		return "sanitized"
	case StateExecuted:
		return "executed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Record tracks one script through a document load. Sanitization transforms
// Sanitized only; Source, Origin, and URL never change after discovery.
type Record struct {
	Source    string // raw source text (empty until fetched, for external)
	Sanitized string
	Origin    Origin
	URL       string // src attribute for external scripts
	State     State
	Err       error     // set when State is StateFailed
	Node      *dom.Node // the <script> element, non-owning
}

// CollectScripts walks the document in document order and creates a Record
// for every <script> element that holds JavaScript. Elements with a type
// attribute naming another language are skipped entirely — they produce no
// record, not a failed one.
func CollectScripts(doc *dom.Document) []*Record {
	var records []*Record
	doc.Root.Walk(func(node *dom.Node) bool {
		if node.Type != dom.ElementNode || node.TagName != "script" {
			return true
		}
		if typ, ok := node.GetAttribute("type"); ok && !isJavaScriptType(typ) {
			return true
		}
		rec := &Record{State: StatePending, Node: node}
		if src, ok := node.GetAttribute("src"); ok && src != "" {
			rec.Origin = OriginExternal
			rec.URL = src
		} else {
			rec.Origin = OriginInline
			rec.Source = node.TextContent()
		}
		records = append(records, rec)
		return true
	})
	return records
}

func isJavaScriptType(typ string) bool {
	switch typ {
	case "", "text/javascript", "application/javascript", "module":
		return true
	}
	return false
}
