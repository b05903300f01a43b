package paint

import (
	"image"
	"sort"

	"github.com/fogleman/gg"

	"github.com/Sneed-Group/wink-browser/pkg/layout"
	"github.com/Sneed-Group/wink-browser/pkg/resource"
	"github.com/Sneed-Group/wink-browser/pkg/style"
)

// Painter rasterizes a box tree onto a gg context.
type Painter struct {
	context *gg.Context
	images  *resource.ImageCache // may be nil
}

func NewPainter(width, height int, images *resource.ImageCache) *Painter {
	return &Painter{
		context: gg.NewContext(width, height),
		images:  images,
	}
}

// Paint renders the box tree with the viewport scrolled to (offsetX,
// offsetY). Boxes paint in ascending z-index; within a z-index, ascending
// paint-order index, so later document content covers earlier content.
func (p *Painter) Paint(boxes []*layout.Box, offsetX, offsetY float64) {
	p.context.SetRGB(1, 1, 1)
	p.context.Clear()

	all := collectAllBoxes(boxes)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].ZIndex != all[j].ZIndex {
			return all[i].ZIndex < all[j].ZIndex
		}
		return all[i].PaintOrder < all[j].PaintOrder
	})

	for _, box := range all {
		p.drawBox(box, offsetX, offsetY)
	}
}

// Image returns the painted surface.
func (p *Painter) Image() image.Image {
	return p.context.Image()
}

// SavePNG writes the painted surface to disk.
func (p *Painter) SavePNG(path string) error {
	return p.context.SavePNG(path)
}

// collectAllBoxes flattens the box tree into a single list.
func collectAllBoxes(boxes []*layout.Box) []*layout.Box {
	result := make([]*layout.Box, 0)
	for _, box := range boxes {
		result = append(result, box)
		result = append(result, collectAllBoxes(box.Children)...)
	}
	return result
}

func (p *Painter) drawBox(box *layout.Box, offsetX, offsetY float64) {
	x := box.X - offsetX
	y := box.Y - offsetY

	p.drawBackground(box, x, y)
	p.drawBorders(box, x, y)

	contentX := x + box.Border.Left + box.Padding.Left
	contentY := y + box.Border.Top + box.Padding.Top

	switch {
	case box.Text != "":
		p.drawText(box, contentX, contentY)
	case box.Kind == layout.KindImage:
		p.drawImage(box, contentX, contentY)
	case box.Kind == layout.KindMedia:
		p.drawPlaceholder(contentX, contentY, box.Width, box.Height)
	}
}

func (p *Painter) drawBackground(box *layout.Box, x, y float64) {
	if box.Style == nil {
		return
	}
	bgColor, ok := box.Style.Get("background-color")
	if !ok {
		return
	}
	color, ok := style.ParseColor(bgColor)
	if !ok || color.A == 0 {
		return
	}

	// Background covers content + padding (not margin or border)
	w := box.Width + box.Padding.Left + box.Padding.Right
	h := box.Height + box.Padding.Top + box.Padding.Bottom
	if w <= 0 || h <= 0 {
		return
	}
	p.setColor(color)
	p.context.DrawRectangle(x+box.Border.Left, y+box.Border.Top, w, h)
	p.context.Fill()
}

func (p *Painter) drawBorders(box *layout.Box, x, y float64) {
	if box.Style == nil {
		return
	}
	if box.Border.Top == 0 && box.Border.Right == 0 &&
		box.Border.Bottom == 0 && box.Border.Left == 0 {
		return
	}

	color := style.Color{R: 0, G: 0, B: 0, A: 1}
	if c, ok := box.Style.Get("border-color"); ok {
		if parsed, ok := style.ParseColor(c); ok {
			color = parsed
		}
	}
	p.setColor(color)

	w := box.BorderBoxWidth()
	h := box.BorderBoxHeight()
	if box.Border.Top > 0 {
		p.context.DrawRectangle(x, y, w, box.Border.Top)
	}
	if box.Border.Bottom > 0 {
		p.context.DrawRectangle(x, y+h-box.Border.Bottom, w, box.Border.Bottom)
	}
	if box.Border.Left > 0 {
		p.context.DrawRectangle(x, y, box.Border.Left, h)
	}
	if box.Border.Right > 0 {
		p.context.DrawRectangle(x+w-box.Border.Right, y, box.Border.Right, h)
	}
	p.context.Fill()
}

func (p *Painter) drawText(box *layout.Box, x, y float64) {
	color := style.Color{R: 0, G: 0, B: 0, A: 1}
	if box.Style != nil {
		color = box.Style.GetColor()
	}
	p.setColor(color)
	// Baseline sits near the bottom of the line box
	p.context.DrawString(box.Text, x, y+box.Height*0.8)
}

func (p *Painter) drawImage(box *layout.Box, x, y float64) {
	if p.images != nil && box.ImageURL != "" {
		if img, ok := p.images.Get(box.ImageURL); ok {
			bounds := img.Bounds()
			iw, ih := float64(bounds.Dx()), float64(bounds.Dy())
			if iw > 0 && ih > 0 && box.Width > 0 && box.Height > 0 {
				p.context.Push()
				p.context.Translate(x, y)
				p.context.Scale(box.Width/iw, box.Height/ih)
				p.context.DrawImage(img, 0, 0)
				p.context.Pop()
				return
			}
		}
	}
	// Resource missing or still pending: keep the reserved geometry visible
	p.drawPlaceholder(x, y, box.Width, box.Height)
}

// drawPlaceholder draws the reserved region for unavailable content: a light
// fill with a thin outline, matching the geometry layout reserved.
func (p *Painter) drawPlaceholder(x, y, w, h float64) {
	if w <= 0 || h <= 0 {
		return
	}
	p.context.SetRGB(0.93, 0.93, 0.93)
	p.context.DrawRectangle(x, y, w, h)
	p.context.Fill()
	p.context.SetRGB(0.6, 0.6, 0.6)
	p.context.SetLineWidth(1)
	p.context.DrawRectangle(x+0.5, y+0.5, w-1, h-1)
	p.context.Stroke()
}

func (p *Painter) setColor(c style.Color) {
	p.context.SetRGBA(
		float64(c.R)/255.0,
		float64(c.G)/255.0,
		float64(c.B)/255.0,
		c.A,
	)
}
