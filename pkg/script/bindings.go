package script

import (
	"strconv"
	"strings"

	"github.com/Sneed-Group/wink-browser/pkg/dom"

	"github.com/dop251/goja"
)

// domContext holds shared state for DOM bindings within a single load.
// It maintains a node-to-proxy cache so the same JS object is returned for
// the same underlying *dom.Node (needed for === identity checks).
type domContext struct {
	vm    *goja.Runtime
	doc   *dom.Document
	cache map[*dom.Node]goja.Value
}

func newDOMContext(vm *goja.Runtime, doc *dom.Document) *domContext {
	return &domContext{
		vm:    vm,
		doc:   doc,
		cache: make(map[*dom.Node]goja.Value),
	}
}

// registerDocument sets up the global `document` object on the goja runtime.
func registerDocument(vm *goja.Runtime, doc *dom.Document) *domContext {
	ctx := newDOMContext(vm, doc)

	docObj := vm.NewObject()
	docObj.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Null()
		}
		id := call.Arguments[0].String()
		var found *dom.Node
		doc.Root.Walk(func(n *dom.Node) bool {
			if found != nil {
				return false
			}
			if n.Type == dom.ElementNode {
				if v, ok := n.GetAttribute("id"); ok && v == id {
					found = n
					return false
				}
			}
			return true
		})
		if found == nil {
			return goja.Null()
		}
		return ctx.elementProxy(found)
	})
	docObj.Set("getElementsByTagName", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return ctx.elementArray(nil)
		}
		tag := strings.ToLower(call.Arguments[0].String())
		return ctx.elementArray(doc.Root.FindAll(tag))
	})
	docObj.Set("getElementsByClassName", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return ctx.elementArray(nil)
		}
		cls := call.Arguments[0].String()
		var nodes []*dom.Node
		doc.Root.Walk(func(n *dom.Node) bool {
			if n.Type == dom.ElementNode {
				if classes, ok := n.GetAttribute("class"); ok {
					for _, c := range strings.Fields(classes) {
						if c == cls {
							nodes = append(nodes, n)
							break
						}
					}
				}
			}
			return true
		})
		return ctx.elementArray(nodes)
	})
	docObj.Set("createElement", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			panic(vm.NewTypeError("createElement requires a tag name"))
		}
		tag := strings.ToLower(call.Arguments[0].String())
		node := &dom.Node{
			Type:       dom.ElementNode,
			TagName:    tag,
			Attributes: make(map[string]string),
			Children:   make([]*dom.Node, 0),
		}
		return ctx.elementProxy(node)
	})
	docObj.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		text := ""
		if len(call.Arguments) > 0 {
			text = call.Arguments[0].String()
		}
		return ctx.elementProxy(&dom.Node{Type: dom.TextNode, Text: text})
	})

	// document.body / document.head / document.documentElement
	for tag, prop := range map[string]string{"body": "body", "head": "head", "html": "documentElement"} {
		tag, prop := tag, prop
		docObj.DefineAccessorProperty(prop, vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if nodes := doc.Root.FindAll(tag); len(nodes) > 0 {
				return ctx.elementProxy(nodes[0])
			}
			return goja.Null()
		}), nil, goja.FLAG_FALSE, goja.FLAG_TRUE)
	}

	vm.Set("document", docObj)
	return ctx
}

// elementArray creates a JS array of element proxies.
func (ctx *domContext) elementArray(nodes []*dom.Node) goja.Value {
	arr := ctx.vm.NewArray()
	for i, n := range nodes {
		arr.Set(strconv.Itoa(i), ctx.elementProxy(n))
	}
	arr.Set("length", len(nodes))
	return arr
}

// elementProxy creates (or retrieves from cache) a JS object wrapping a node.
func (ctx *domContext) elementProxy(node *dom.Node) goja.Value {
	if v, ok := ctx.cache[node]; ok {
		return v
	}
	v := ctx.vm.NewDynamicObject(&elementAccessor{ctx: ctx, node: node})
	ctx.cache[node] = v
	return v
}

// unwrapNode extracts the *dom.Node from a proxy value.
func (ctx *domContext) unwrapNode(val goja.Value) *dom.Node {
	if val == nil || goja.IsNull(val) || goja.IsUndefined(val) {
		return nil
	}
	obj := val.ToObject(ctx.vm)
	for node, cached := range ctx.cache {
		if cached.SameAs(obj) {
			return node
		}
	}
	return nil
}

// elementAccessor implements goja.DynamicObject to intercept property
// access on DOM element proxies.
type elementAccessor struct {
	ctx  *domContext
	node *dom.Node
}

func (e *elementAccessor) Get(key string) goja.Value {
	vm := e.ctx.vm

	switch key {
	case "nodeType":
		switch e.node.Type {
		case dom.TextNode:
			return vm.ToValue(3)
		case dom.CommentNode:
			return vm.ToValue(8)
		}
		return vm.ToValue(1)
	case "nodeName":
		if e.node.Type == dom.TextNode {
			return vm.ToValue("#text")
		}
		return vm.ToValue(strings.ToUpper(e.node.TagName))
	case "tagName":
		if e.node.Type != dom.ElementNode {
			return goja.Undefined()
		}
		return vm.ToValue(strings.ToUpper(e.node.TagName))
	case "id":
		id, _ := e.node.GetAttribute("id")
		return vm.ToValue(id)
	case "className":
		cls, _ := e.node.GetAttribute("class")
		return vm.ToValue(cls)
	case "textContent":
		return vm.ToValue(e.node.TextContent())
	case "innerHTML":
		return vm.ToValue(e.node.Serialize())
	case "outerHTML":
		return vm.ToValue(e.node.SerializeOuter())
	case "getAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return goja.Null()
			}
			val, ok := e.node.GetAttribute(call.Arguments[0].String())
			if !ok {
				return goja.Null()
			}
			return vm.ToValue(val)
		})
	case "setAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) < 2 {
				return goja.Undefined()
			}
			e.node.SetAttribute(call.Arguments[0].String(), call.Arguments[1].String())
			return goja.Undefined()
		})
	case "hasAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return vm.ToValue(false)
			}
			_, ok := e.node.GetAttribute(call.Arguments[0].String())
			return vm.ToValue(ok)
		})
	case "removeAttribute":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) > 0 && e.node.Attributes != nil {
				delete(e.node.Attributes, call.Arguments[0].String())
			}
			return goja.Undefined()
		})
	case "children":
		var elChildren []*dom.Node
		for _, child := range e.node.Children {
			if child.Type == dom.ElementNode {
				elChildren = append(elChildren, child)
			}
		}
		return e.ctx.elementArray(elChildren)
	case "childNodes":
		return e.ctx.elementArray(e.node.Children)
	case "parentElement", "parentNode":
		if e.node.Parent != nil && e.node.Parent.Type == dom.ElementNode &&
			e.node.Parent.TagName != "document" {
			return e.ctx.elementProxy(e.node.Parent)
		}
		return goja.Null()
	case "firstChild":
		if len(e.node.Children) > 0 {
			return e.ctx.elementProxy(e.node.Children[0])
		}
		return goja.Null()
	case "lastChild":
		if len(e.node.Children) > 0 {
			return e.ctx.elementProxy(e.node.Children[len(e.node.Children)-1])
		}
		return goja.Null()
	case "appendChild":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return goja.Null()
			}
			child := e.ctx.unwrapNode(call.Arguments[0])
			if child == nil {
				return goja.Null()
			}
			if child.Parent != nil {
				child.Parent.RemoveChild(child)
			}
			e.node.AddChild(child)
			return call.Arguments[0]
		})
	case "removeChild":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return goja.Null()
			}
			child := e.ctx.unwrapNode(call.Arguments[0])
			if child == nil || e.node.RemoveChild(child) == nil {
				return goja.Null()
			}
			return call.Arguments[0]
		})
	case "insertBefore":
		return vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if len(call.Arguments) == 0 {
				return goja.Null()
			}
			newChild := e.ctx.unwrapNode(call.Arguments[0])
			if newChild == nil {
				return goja.Null()
			}
			var refChild *dom.Node
			if len(call.Arguments) > 1 {
				refChild = e.ctx.unwrapNode(call.Arguments[1])
			}
			e.node.InsertBefore(newChild, refChild)
			return call.Arguments[0]
		})
	}
	return goja.Undefined()
}

func (e *elementAccessor) Set(key string, val goja.Value) bool {
	switch key {
	case "textContent":
		e.node.Children = nil
		e.node.AppendText(val.String())
		return true
	case "innerHTML":
		nodes, err := dom.ParseFragmentString(val.String())
		if err != nil {
			return false
		}
		e.node.Children = nil
		for _, n := range nodes {
			e.node.AddChild(n)
		}
		return true
	case "id":
		e.node.SetAttribute("id", val.String())
		return true
	case "className":
		e.node.SetAttribute("class", val.String())
		return true
	case "nodeValue":
		if e.node.Type == dom.TextNode {
			e.node.Text = val.String()
			return true
		}
	}
	return false
}

func (e *elementAccessor) Has(key string) bool {
	return !goja.IsUndefined(e.Get(key))
}

func (e *elementAccessor) Delete(key string) bool {
	return false
}

func (e *elementAccessor) Keys() []string {
	return []string{"nodeType", "nodeName", "tagName", "id", "className",
		"textContent", "innerHTML", "children", "childNodes"}
}
