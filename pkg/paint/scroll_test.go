package paint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sneed-Group/wink-browser/pkg/layout"
)

func newTestCoordinator(viewportW, viewportH float64, boxes []*layout.Box) *Coordinator {
	painter := NewPainter(int(viewportW), int(viewportH), nil)
	c := NewCoordinator(painter, viewportW, viewportH)
	c.SetBoxes(boxes)
	return c
}

func tallContent(height float64) []*layout.Box {
	return []*layout.Box{{Kind: layout.KindBlock, Width: 200, Height: height}}
}

func TestScrollRegionFromContentExtent(t *testing.T) {
	boxes := []*layout.Box{
		{Kind: layout.KindBlock, X: 0, Y: 0, Width: 300, Height: 500},
		{Kind: layout.KindBlock, X: 100, Y: 500, Width: 350, Height: 200},
	}
	c := newTestCoordinator(400, 400, boxes)

	region := c.Region()
	require.Equal(t, 450.0, region.ContentWidth)
	require.Equal(t, 700.0, region.ContentHeight)
	require.Equal(t, 0.0, region.OffsetX)
	require.Equal(t, 0.0, region.OffsetY)
}

func TestWheelClampsAtContentEnd(t *testing.T) {
	c := newTestCoordinator(400, 400, tallContent(1000))

	c.Wheel(0, -3000)

	require.Equal(t, 600.0, c.Region().OffsetY, "offset must clamp to content minus viewport")
}

func TestWheelClampsAtTop(t *testing.T) {
	c := newTestCoordinator(400, 400, tallContent(1000))

	c.Wheel(0, -100)
	c.Wheel(0, 500)

	require.Equal(t, 0.0, c.Region().OffsetY)
}

func TestWheelNoScrollWhenContentFits(t *testing.T) {
	c := newTestCoordinator(400, 400, tallContent(300))

	c.Wheel(0, -500)

	require.Equal(t, 0.0, c.Region().OffsetY, "offset stays 0 when content fits the viewport")
}

func TestScrollbarVisibility(t *testing.T) {
	c := newTestCoordinator(400, 400, tallContent(1000))
	require.False(t, c.HScrollVisible(), "content width 200 fits viewport 400")
	require.True(t, c.VScrollVisible())

	fits := newTestCoordinator(400, 400, tallContent(300))
	require.False(t, fits.VScrollVisible())

	wide := newTestCoordinator(400, 400, []*layout.Box{
		{Kind: layout.KindBlock, Width: 900, Height: 100},
	})
	require.True(t, wide.HScrollVisible())
	require.False(t, wide.VScrollVisible())
}

func TestDragScrollsByCumulativeDelta(t *testing.T) {
	c := newTestCoordinator(400, 400, tallContent(1000))

	c.PointerPress(200, 300)
	c.PointerMove(200, 250)
	require.Equal(t, 50.0, c.Region().OffsetY, "content follows the pointer upward")

	c.PointerMove(200, 100)
	require.Equal(t, 200.0, c.Region().OffsetY, "delta is cumulative from the press point")

	c.PointerMove(200, 350)
	require.Equal(t, 0.0, c.Region().OffsetY, "dragging past the origin clamps at 0")

	c.PointerRelease()
	c.PointerMove(200, 0)
	require.Equal(t, 0.0, c.Region().OffsetY, "moves after release are ignored")
}

func TestDragClampsAtContentEnd(t *testing.T) {
	c := newTestCoordinator(400, 400, tallContent(1000))

	c.PointerPress(200, 400)
	c.PointerMove(200, -5000)

	require.Equal(t, 600.0, c.Region().OffsetY)
}

func TestHorizontalWheel(t *testing.T) {
	c := newTestCoordinator(400, 400, []*layout.Box{
		{Kind: layout.KindBlock, Width: 1000, Height: 100},
	})

	c.Wheel(-150, 0)
	require.Equal(t, 150.0, c.Region().OffsetX)

	c.Wheel(-10000, 0)
	require.Equal(t, 600.0, c.Region().OffsetX)
}

func TestSetBoxesReclampsExistingOffset(t *testing.T) {
	c := newTestCoordinator(400, 400, tallContent(1000))
	c.Wheel(0, -3000)
	require.Equal(t, 600.0, c.Region().OffsetY)

	// Shorter content arrives (e.g. after a reflow): the old offset would
	// overshoot and must be pulled back into range.
	c.SetBoxes(tallContent(500))
	require.Equal(t, 100.0, c.Region().OffsetY)

	c.SetBoxes(tallContent(200))
	require.Equal(t, 0.0, c.Region().OffsetY)
}

func TestPaintProducesViewportImage(t *testing.T) {
	c := newTestCoordinator(200, 100, tallContent(400))

	img := c.painter.Image()
	bounds := img.Bounds()
	require.Equal(t, 200, bounds.Dx())
	require.Equal(t, 100, bounds.Dy())
}
