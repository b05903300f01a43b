package paint

import (
	"github.com/Sneed-Group/wink-browser/pkg/layout"
)

// ScrollRegion is the scrollable extent of one rendered document. Offsets
// are always within [0, content - viewport] on each axis.
type ScrollRegion struct {
	ContentWidth  float64
	ContentHeight float64
	OffsetX       float64
	OffsetY       float64
}

// Coordinator owns painting and the scroll region for one rendered
// document. All operations are synchronous: a paint plus scroll-region
// update is one pass, triggered once per layout completion and once per
// input event that moves the viewport.
type Coordinator struct {
	painter        *Painter
	viewportWidth  float64
	viewportHeight float64

	boxes  []*layout.Box
	region ScrollRegion

	dragging    bool
	dragStartX  float64
	dragStartY  float64
	dragOriginX float64
	dragOriginY float64
}

func NewCoordinator(painter *Painter, viewportWidth, viewportHeight float64) *Coordinator {
	return &Coordinator{
		painter:        painter,
		viewportWidth:  viewportWidth,
		viewportHeight: viewportHeight,
	}
}

// SetBoxes installs a freshly laid-out box tree: paints it, recomputes the
// scroll region from the union bounding box of the top-level boxes, and
// clamps the offsets into the new range.
func (c *Coordinator) SetBoxes(boxes []*layout.Box) {
	c.boxes = boxes
	c.region.ContentWidth, c.region.ContentHeight = contentExtent(boxes)
	c.clamp()
	c.Repaint()
}

// Repaint re-rasterizes at the current offsets. Used by deferred image
// completions, which update painted content without re-running layout.
func (c *Coordinator) Repaint() {
	c.painter.Paint(c.boxes, c.region.OffsetX, c.region.OffsetY)
}

// Region returns the current scroll region.
func (c *Coordinator) Region() ScrollRegion {
	return c.region
}

// HScrollVisible reports whether content exceeds the viewport horizontally.
// Scrollbar visibility is a pure function of this comparison.
func (c *Coordinator) HScrollVisible() bool {
	return c.region.ContentWidth > c.viewportWidth
}

// VScrollVisible reports whether content exceeds the viewport vertically.
func (c *Coordinator) VScrollVisible() bool {
	return c.region.ContentHeight > c.viewportHeight
}

// Wheel applies wheel input. Deltas follow the usual convention: a negative
// deltaY scrolls toward the end of the content. The resulting offsets are
// clamped and the surface repaints.
func (c *Coordinator) Wheel(deltaX, deltaY float64) {
	c.region.OffsetX -= deltaX
	c.region.OffsetY -= deltaY
	c.clamp()
	c.Repaint()
}

// PointerPress begins a drag gesture at viewport position (x, y).
func (c *Coordinator) PointerPress(x, y float64) {
	c.dragging = true
	c.dragStartX, c.dragStartY = x, y
	c.dragOriginX, c.dragOriginY = c.region.OffsetX, c.region.OffsetY
}

// PointerMove applies the cumulative pointer delta since the press: the
// content follows the pointer, so offsets move opposite the drag.
func (c *Coordinator) PointerMove(x, y float64) {
	if !c.dragging {
		return
	}
	c.region.OffsetX = c.dragOriginX - (x - c.dragStartX)
	c.region.OffsetY = c.dragOriginY - (y - c.dragStartY)
	c.clamp()
	c.Repaint()
}

// PointerRelease ends the drag gesture.
func (c *Coordinator) PointerRelease() {
	c.dragging = false
}

// clamp forces offsets into [0, content - viewport]; when content fits in
// the viewport on an axis, scrolling is disabled and the offset is 0.
func (c *Coordinator) clamp() {
	c.region.OffsetX = clampOffset(c.region.OffsetX, c.region.ContentWidth, c.viewportWidth)
	c.region.OffsetY = clampOffset(c.region.OffsetY, c.region.ContentHeight, c.viewportHeight)
}

func clampOffset(offset, content, viewport float64) float64 {
	max := content - viewport
	if max <= 0 {
		return 0
	}
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}

// contentExtent computes the union bounding box of the top-level boxes,
// measured from the viewport origin so content at negative coordinates
// cannot shrink the region.
func contentExtent(boxes []*layout.Box) (width, height float64) {
	for _, box := range boxes {
		if right := box.X + box.BorderBoxWidth() + box.Margin.Right; right > width {
			width = right
		}
		if bottom := box.Y + box.BorderBoxHeight() + box.Margin.Bottom; bottom > height {
			height = bottom
		}
	}
	return width, height
}
