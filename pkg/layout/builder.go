package layout

import (
	"strconv"
	"strings"

	"github.com/fogleman/gg"

	"github.com/Sneed-Group/wink-browser/pkg/dom"
	"github.com/Sneed-Group/wink-browser/pkg/logging"
	"github.com/Sneed-Group/wink-browser/pkg/resource"
	"github.com/Sneed-Group/wink-browser/pkg/style"
)

// Placeholder geometry reserved for an image or media box whose resource is
// not yet (or never) available. Layout never blocks on a resource fetch.
const (
	PlaceholderWidth  = 300.0
	PlaceholderHeight = 150.0
)

// Builder walks the styled DOM and produces the positioned box tree.
type Builder struct {
	viewportWidth  float64
	viewportHeight float64
	images         *resource.ImageCache // may be nil
	sink           logging.Sink

	// measure carries the same font face the painter draws with, so text
	// boxes are sized by the glyphs that will actually be rendered.
	measure *gg.Context

	styles     map[*dom.Node]*style.Style
	paintOrder int
	deferred   []*Box
}

// NewBuilder creates a Builder for the given viewport. images may be nil,
// in which case every image box gets placeholder geometry.
func NewBuilder(viewportWidth, viewportHeight float64, images *resource.ImageCache, sink logging.Sink) *Builder {
	if sink == nil {
		sink = logging.Nop{}
	}
	return &Builder{
		viewportWidth:  viewportWidth,
		viewportHeight: viewportHeight,
		images:         images,
		sink:           sink,
		measure:        gg.NewContext(1, 1),
	}
}

// Build lays out the document and returns the top-level boxes in document
// order. Non-visual elements (script, style, metadata tags) produce no box
// and their subtrees are not descended for box generation.
func (b *Builder) Build(doc *dom.Document, styles map[*dom.Node]*style.Style) []*Box {
	b.styles = styles
	b.paintOrder = 0
	b.deferred = nil

	root := &Box{Kind: KindBlock, Width: b.viewportWidth, Height: b.viewportHeight}
	b.flowChildren(root, doc.Root.Children, 0, 0, b.viewportWidth)

	for _, child := range root.Children {
		child.Parent = nil
	}
	return root.Children
}

// Deferred returns image/media boxes holding placeholder geometry, awaiting
// a resource fetch that completes after layout.
func (b *Builder) Deferred() []*Box {
	return b.deferred
}

// flow tracks the inline cursor within one block container.
type flow struct {
	left, right float64 // line extents
	x, y        float64
	lineHeight  float64
}

func (f *flow) breakLine() {
	if f.lineHeight > 0 {
		f.y += f.lineHeight
		f.lineHeight = 0
	}
	f.x = f.left
}

// flowChildren lays out nodes into parent starting at (contentX, contentY)
// with the given available width, and returns the flowed height.
func (b *Builder) flowChildren(parent *Box, nodes []*dom.Node, contentX, contentY, avail float64) float64 {
	f := &flow{left: contentX, right: contentX + avail, x: contentX, y: contentY}

	for _, node := range nodes {
		switch node.Type {
		case dom.TextNode:
			b.flowText(parent, node, f)
		case dom.CommentNode:
			// comments produce no box
		case dom.ElementNode:
			b.flowElement(parent, node, f)
		}
	}

	f.breakLine()
	return f.y - contentY
}

func (b *Builder) flowElement(parent *Box, node *dom.Node, f *flow) {
	category := Categorize(node.TagName)
	if category == CategoryNonVisual {
		return
	}

	st := b.styles[node]
	if st == nil {
		st = style.NewStyle()
	}
	if disp, ok := st.Get("display"); ok && disp == "none" {
		return
	}

	box := &Box{
		Node:       node,
		Style:      st,
		Margin:     st.GetMargin(),
		Padding:    st.GetPadding(),
		Border:     st.GetBorderWidth(),
		ZIndex:     st.GetZIndex(),
		PaintOrder: b.nextPaintOrder(),
	}

	box.Kind = kindFor(category, st)

	switch box.Kind {
	case KindImage, KindMedia:
		b.sizeReplaced(box, node, st)
		b.placeInline(parent, box, f)
	case KindInline:
		b.layoutInline(parent, box, node, f)
	default:
		b.layoutBlock(parent, box, node, f)
	}
}

// kindFor derives the box kind from the tag category, letting an explicit
// display property flip block/inline behavior.
func kindFor(category TagCategory, st *style.Style) Kind {
	switch category {
	case CategoryImage:
		return KindImage
	case CategoryMedia:
		return KindMedia
	}
	disp, _ := st.Get("display")
	switch disp {
	case "inline", "inline-block":
		return KindInline
	case "block":
		return KindBlock
	}
	if category == CategoryInline {
		return KindInline
	}
	return KindBlock
}

func (b *Builder) layoutBlock(parent *Box, box *Box, node *dom.Node, f *flow) {
	f.breakLine()

	edges := box.Margin.Left + box.Margin.Right +
		box.Padding.Left + box.Padding.Right +
		box.Border.Left + box.Border.Right
	avail := (f.right - f.left) - edges
	if avail < 0 {
		avail = 0
	}

	if w, ok := box.Style.GetLength("width"); ok {
		box.Width = w
	} else {
		box.Width = avail
	}

	if positioned := b.positionOut(box); !positioned {
		box.X = f.left + box.Margin.Left
		box.Y = f.y + box.Margin.Top
	}
	parent.AddChild(box)

	contentX := box.X + box.Border.Left + box.Padding.Left
	contentY := box.Y + box.Border.Top + box.Padding.Top
	flowed := b.flowChildren(box, node.Children, contentX, contentY, box.Width)

	if h, ok := box.Style.GetLength("height"); ok {
		box.Height = h
	} else {
		box.Height = flowed
	}

	if isInFlow(box) {
		f.y = box.Y + box.BorderBoxHeight() + box.Margin.Bottom
		f.x = f.left
	}
}

func (b *Builder) layoutInline(parent *Box, box *Box, node *dom.Node, f *flow) {
	fontSize := box.Style.GetFontSize()

	if positioned := b.positionOut(box); positioned {
		parent.AddChild(box)
		if w, ok := box.Style.GetLength("width"); ok {
			box.Width = w
		}
		if h, ok := box.Style.GetLength("height"); ok {
			box.Height = h
		} else {
			box.Height = fontSize * 1.2
		}
		contentX := box.X + box.Border.Left + box.Padding.Left
		contentY := box.Y + box.Border.Top + box.Padding.Top
		b.flowChildren(box, node.Children, contentX, contentY, box.Width)
		return
	}

	if node.TagName == "br" {
		box.Width = 0
		box.Height = fontSize * 1.2
		box.X = f.x
		box.Y = f.y
		parent.AddChild(box)
		if f.lineHeight < box.Height {
			f.lineHeight = box.Height
		}
		f.breakLine()
		return
	}

	// Lay out the inline's children to learn its extent, then place it on
	// the current line, wrapping to the next line when it cannot fit.
	box.X = f.x + box.Margin.Left
	box.Y = f.y + box.Margin.Top
	parent.AddChild(box)

	contentX := box.X + box.Border.Left + box.Padding.Left
	contentY := box.Y + box.Border.Top + box.Padding.Top
	remaining := f.right - contentX
	if remaining < 0 {
		remaining = 0
	}
	flowed := b.flowChildren(box, node.Children, contentX, contentY, remaining)

	if w, ok := box.Style.GetLength("width"); ok {
		box.Width = w
	} else {
		box.Width = b.inlineContentWidth(box)
	}
	if h, ok := box.Style.GetLength("height"); ok {
		box.Height = h
	} else if flowed > 0 {
		box.Height = flowed
	} else {
		box.Height = fontSize * 1.2
	}

	b.advanceInline(box, f)
}

// placeInline adds a replaced box (already sized) to the current line.
func (b *Builder) placeInline(parent *Box, box *Box, f *flow) {
	if positioned := b.positionOut(box); positioned {
		parent.AddChild(box)
		return
	}
	parent.AddChild(box)
	b.advanceInline(box, f)
}

// inlineContentWidth measures an inline box by the extent of its children.
func (b *Builder) inlineContentWidth(box *Box) float64 {
	if len(box.Children) == 0 {
		return 0
	}
	maxRight := box.X
	for _, child := range box.Children {
		right := child.X + child.BorderBoxWidth()
		if right > maxRight {
			maxRight = right
		}
	}
	return maxRight - box.X
}

func (b *Builder) flowText(parent *Box, node *dom.Node, f *flow) {
	text := strings.TrimSpace(node.Text)
	if text == "" {
		return
	}

	st := parent.Style
	if st == nil {
		st = style.NewStyle()
	}
	fontSize := st.GetFontSize()

	box := &Box{
		Node:       node,
		Style:      st,
		Kind:       KindOther,
		Text:       text,
		PaintOrder: b.nextPaintOrder(),
		Width:      b.textWidth(text),
		Height:     fontSize * 1.2,
	}
	parent.AddChild(box)
	b.advanceInline(box, f)
}

// textWidth measures text with the painter's face.
func (b *Builder) textWidth(text string) float64 {
	w, _ := b.measure.MeasureString(text)
	return w
}

// advanceInline positions box at the flow cursor, wrapping to a new line
// when the box overflows the right edge and is not the first on its line.
// Descendants laid out at a provisional position shift by the same delta.
func (b *Builder) advanceInline(box *Box, f *flow) {
	w := box.MarginBoxWidth()
	if f.x+w > f.right && f.x > f.left {
		f.breakLine()
	}
	oldX, oldY := box.X, box.Y
	box.X = f.x + box.Margin.Left
	box.Y = f.y + box.Margin.Top
	for _, child := range box.Children {
		shiftSubtree(child, box.X-oldX, box.Y-oldY)
	}

	f.x = box.X + box.BorderBoxWidth() + box.Margin.Right
	if h := box.MarginBoxHeight(); h > f.lineHeight {
		f.lineHeight = h
	}
}

func shiftSubtree(box *Box, dx, dy float64) {
	if dx == 0 && dy == 0 {
		return
	}
	box.Descend(func(bx *Box) {
		bx.X += dx
		bx.Y += dy
	})
}

// sizeReplaced computes geometry for image and media boxes. Unavailable
// resources reserve placeholder geometry and are marked for deferred
// content replacement; layout never waits for a fetch.
func (b *Builder) sizeReplaced(box *Box, node *dom.Node, st *style.Style) {
	if src, ok := node.GetAttribute("src"); ok {
		box.ImageURL = src
	}

	w, hasW := st.GetLength("width")
	h, hasH := st.GetLength("height")
	if !hasW {
		w, hasW = attrLength(node, "width")
	}
	if !hasH {
		h, hasH = attrLength(node, "height")
	}

	if hasW && hasH {
		box.Width, box.Height = w, h
		return
	}

	if box.Kind == KindImage && box.ImageURL != "" && b.images != nil {
		if img, ok := b.images.Get(box.ImageURL); ok {
			bounds := img.Bounds()
			iw, ih := float64(bounds.Dx()), float64(bounds.Dy())
			box.Width, box.Height = scaleIntrinsic(iw, ih, w, hasW, h, hasH)
			return
		}
		// Not yet decoded: reserve placeholder geometry and let the
		// deferred completion swap the painted content in later.
		box.Pending = true
		b.deferred = append(b.deferred, box)
	}

	box.Width, box.Height = PlaceholderWidth, PlaceholderHeight
	if hasW {
		box.Width = w
	}
	if hasH {
		box.Height = h
	}
}

// scaleIntrinsic resolves missing dimensions from the intrinsic size,
// preserving aspect ratio when only one dimension is given.
func scaleIntrinsic(iw, ih, w float64, hasW bool, h float64, hasH bool) (float64, float64) {
	switch {
	case hasW && ih > 0 && iw > 0:
		return w, nonNegative(w * ih / iw)
	case hasH && iw > 0 && ih > 0:
		return nonNegative(h * iw / ih), h
	default:
		return iw, ih
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// attrLength reads a numeric HTML size attribute (e.g. width="120").
func attrLength(node *dom.Node, name string) (float64, bool) {
	val, ok := node.GetAttribute(name)
	if !ok {
		return 0, false
	}
	val = strings.TrimSuffix(strings.TrimSpace(val), "px")
	n, err := strconv.ParseFloat(val, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// positionOut handles absolute/fixed positioning overrides. Returns true
// when the box was taken out of normal flow and positioned directly.
func (b *Builder) positionOut(box *Box) bool {
	pos, _ := box.Style.Get("position")
	if pos != "absolute" && pos != "fixed" {
		return false
	}
	left, _ := box.Style.GetLength("left")
	top, _ := box.Style.GetLength("top")
	box.X = left + box.Margin.Left
	box.Y = top + box.Margin.Top
	return true
}

func isInFlow(box *Box) bool {
	pos, _ := box.Style.Get("position")
	return pos != "absolute" && pos != "fixed"
}

func (b *Builder) nextPaintOrder() int {
	b.paintOrder++
	return b.paintOrder
}
