package layout

import (
	"github.com/Sneed-Group/wink-browser/pkg/dom"
	"github.com/Sneed-Group/wink-browser/pkg/style"
)

// Box is one node of the positioned box tree. Geometry is in viewport
// coordinates: X/Y locate the border edge, Width/Height are the content
// size, and the edges sit outside it.
type Box struct {
	Node   *dom.Node    // source node, non-owning
	Style  *style.Style // computed style of the source node
	Kind   Kind
	X      float64
	Y      float64
	Width  float64 // content width
	Height float64 // content height

	Margin  style.BoxEdge
	Padding style.BoxEdge
	Border  style.BoxEdge

	Children []*Box
	Parent   *Box // non-owning

	ZIndex     int
	PaintOrder int // document-order index; ties in ZIndex paint in this order

	Text string // set for text boxes

	// Image / media boxes
	ImageURL string
	Pending  bool // geometry is a placeholder awaiting a deferred fetch
}

// BorderBoxWidth returns the width of the border box (content + padding +
// border, margins excluded).
func (b *Box) BorderBoxWidth() float64 {
	return b.Width + b.Padding.Left + b.Padding.Right + b.Border.Left + b.Border.Right
}

// BorderBoxHeight returns the height of the border box.
func (b *Box) BorderBoxHeight() float64 {
	return b.Height + b.Padding.Top + b.Padding.Bottom + b.Border.Top + b.Border.Bottom
}

// MarginBoxWidth returns the full horizontal extent including margins.
func (b *Box) MarginBoxWidth() float64 {
	return b.BorderBoxWidth() + b.Margin.Left + b.Margin.Right
}

// MarginBoxHeight returns the full vertical extent including margins.
func (b *Box) MarginBoxHeight() float64 {
	return b.BorderBoxHeight() + b.Margin.Top + b.Margin.Bottom
}

// AddChild links a child box into the tree.
func (b *Box) AddChild(child *Box) {
	child.Parent = b
	b.Children = append(b.Children, child)
}

// Descend visits b and every descendant box depth-first in paint-tree order.
func (b *Box) Descend(visit func(*Box)) {
	visit(b)
	for _, child := range b.Children {
		child.Descend(visit)
	}
}
