package main

import (
	"context"
	"fmt"
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/Sneed-Group/wink-browser/pkg/dom"
	"github.com/Sneed-Group/wink-browser/pkg/engine"
	"github.com/Sneed-Group/wink-browser/pkg/logging"
	"github.com/Sneed-Group/wink-browser/pkg/resource"
)

const (
	viewportWidth  = 1024
	viewportHeight = 700
)

func main() {
	a := app.New()
	w := a.NewWindow("wink browser")
	w.Resize(fyne.NewSize(1024, 768))

	view := newViewport()
	status := widget.NewLabel("Enter a URL and press Enter")
	sink := logging.NewDefaultSink(logging.Warn)

	var (
		mu     sync.Mutex
		cancel context.CancelFunc
	)

	urlEntry := widget.NewEntry()
	urlEntry.SetPlaceHolder("https://example.com")
	urlEntry.OnSubmitted = func(url string) {
		status.SetText("Loading " + url + "...")

		// Navigating cancels the previous load between its phases; its
		// partial state is discarded when the new load's state replaces it.
		mu.Lock()
		if cancel != nil {
			cancel()
		}
		ctx, newCancel := context.WithCancel(context.Background())
		cancel = newCancel
		mu.Unlock()

		go func() {
			fetcher := resource.NewHTTPFetcher(url)
			body, _, err := fetcher.Fetch(url, resource.KindDocument)
			if err != nil {
				fyne.Do(func() { status.SetText("Error: " + err.Error()) })
				return
			}

			doc, err := dom.ParseString(string(body), url)
			if err != nil {
				fyne.Do(func() { status.SetText("Parse error: " + err.Error()) })
				return
			}

			eng := engine.New(engine.Options{
				ViewportWidth:  viewportWidth,
				ViewportHeight: viewportHeight,
				Fetcher:        fetcher,
				Sink:           sink,
			})
			load, err := eng.Run(ctx, doc)
			if err != nil {
				fyne.Do(func() { status.SetText("Render error: " + err.Error()) })
				return
			}
			load.SetOnRepaint(func() {
				fyne.Do(view.refresh)
			})

			fyne.Do(func() {
				view.setLoad(load)
				status.SetText(url)
				w.SetTitle(fmt.Sprintf("wink - %s", url))
			})
		}()
	}

	topBar := container.NewBorder(nil, nil, nil, nil, urlEntry)
	content := container.NewBorder(topBar, status, nil, nil, view)
	w.SetContent(content)

	// Keep focus on URL entry to prevent Tab freeze with no other focusable widgets
	w.Canvas().Focus(urlEntry)

	w.ShowAndRun()
}

// viewport displays the painted surface and forwards wheel and drag input
// into the load's scroll coordinator.
type viewport struct {
	widget.BaseWidget
	img  *canvas.Image
	load *engine.Load

	dragging bool
}

func newViewport() *viewport {
	blank := image.NewRGBA(image.Rect(0, 0, viewportWidth, viewportHeight))
	v := &viewport{img: canvas.NewImageFromImage(blank)}
	v.img.FillMode = canvas.ImageFillOriginal
	v.ExtendBaseWidget(v)
	return v
}

func (v *viewport) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.img)
}

func (v *viewport) setLoad(load *engine.Load) {
	v.load = load
	v.refresh()
}

func (v *viewport) refresh() {
	if v.load == nil {
		return
	}
	v.img.Image = v.load.Image()
	v.img.Refresh()
}

// Scrolled forwards wheel input.
func (v *viewport) Scrolled(ev *fyne.ScrollEvent) {
	if v.load == nil {
		return
	}
	v.load.Wheel(float64(ev.Scrolled.DX), float64(ev.Scrolled.DY))
	v.refresh()
}

// Dragged forwards drag gestures as press/move pairs.
func (v *viewport) Dragged(ev *fyne.DragEvent) {
	if v.load == nil {
		return
	}
	x := float64(ev.Position.X)
	y := float64(ev.Position.Y)
	if !v.dragging {
		v.dragging = true
		v.load.PointerPress(x-float64(ev.Dragged.DX), y-float64(ev.Dragged.DY))
	}
	v.load.PointerMove(x, y)
	v.refresh()
}

// DragEnd completes the gesture.
func (v *viewport) DragEnd() {
	v.dragging = false
	if v.load != nil {
		v.load.PointerRelease()
	}
}
