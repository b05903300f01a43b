// Package engine sequences one document load through the rendering
// pipeline: style resolution, script execution, layout, then paint. Each
// load gets its own context object; nothing is process-wide, so multiple
// loads (tabs) can run side by side without cross-talk.
package engine

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/Sneed-Group/wink-browser/pkg/dom"
	"github.com/Sneed-Group/wink-browser/pkg/layout"
	"github.com/Sneed-Group/wink-browser/pkg/logging"
	"github.com/Sneed-Group/wink-browser/pkg/paint"
	"github.com/Sneed-Group/wink-browser/pkg/resource"
	"github.com/Sneed-Group/wink-browser/pkg/script"
	"github.com/Sneed-Group/wink-browser/pkg/style"
)

// Options configures an Engine.
type Options struct {
	ViewportWidth  float64
	ViewportHeight float64
	Fetcher        resource.Fetcher // may be nil; external resources then report unavailable
	Sink           logging.Sink     // may be nil; defaults to discard
}

// Engine runs document loads. It is cheap; per-load state lives on the
// Load it returns.
type Engine struct {
	opts   Options
	images *resource.ImageCache
}

func New(opts Options) *Engine {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 800
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 600
	}
	if opts.Sink == nil {
		opts.Sink = logging.Nop{}
	}
	e := &Engine{opts: opts}
	if opts.Fetcher != nil {
		e.images = resource.NewImageCache(opts.Fetcher)
	}
	return e
}

// Report is the per-load outcome summary: one entry per script, collected
// instead of threading failures through control flow.
type Report struct {
	Scripts []*script.Record
}

// FailedScripts returns the records that ended in the failed state.
func (r *Report) FailedScripts() []*script.Record {
	var failed []*script.Record
	for _, rec := range r.Scripts {
		if rec.State == script.StateFailed {
			failed = append(failed, rec)
		}
	}
	return failed
}

// Load is the per-load pipeline state. After Run completes it stays useful
// as the input surface: wheel and pointer events route to the scroll
// coordinator, and deferred image completions repaint through it.
type Load struct {
	Doc    *dom.Document
	Styles map[*dom.Node]*style.Style
	Boxes  []*layout.Box
	Report Report

	mu          sync.Mutex
	coordinator *paint.Coordinator
	painter     *paint.Painter
	onRepaint   func()
	deferred    []*layout.Box
}

// PendingImages reports how many image boxes still hold placeholder
// geometry awaiting a deferred fetch.
func (l *Load) PendingImages() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, box := range l.deferred {
		if box.Pending {
			n++
		}
	}
	return n
}

// Run executes the full pipeline for doc. Phases run strictly in sequence;
// ctx is checked between phases, and a cancelled load's partial state is
// discarded, never resumed. Component failures inside a phase are recovered
// where they occur and never abort the load.
func (e *Engine) Run(ctx context.Context, doc *dom.Document) (*Load, error) {
	load := &Load{Doc: doc}

	// Phase 1: style resolution
	resolver := style.NewResolver(e.opts.Fetcher, e.opts.Sink)
	load.Styles = resolver.Resolve(doc)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load cancelled after style phase: %w", err)
	}

	// Phase 2: script execution; scripts may mutate the DOM
	records := script.CollectScripts(doc)
	host := script.NewHost(e.opts.Fetcher, e.opts.Sink)
	host.Execute(doc, records)
	load.Report.Scripts = records
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load cancelled after script phase: %w", err)
	}

	// Styles are recomputed when any style source changed; script mutations
	// may have touched all three, so resolve again before layout.
	load.Styles = resolver.Resolve(doc)

	// Phase 3: layout
	builder := layout.NewBuilder(e.opts.ViewportWidth, e.opts.ViewportHeight, e.images, e.opts.Sink)
	load.Boxes = builder.Build(doc, load.Styles)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load cancelled after layout phase: %w", err)
	}

	// Phase 4: paint and scroll region, one synchronous pass
	load.painter = paint.NewPainter(int(e.opts.ViewportWidth), int(e.opts.ViewportHeight), e.images)
	load.coordinator = paint.NewCoordinator(load.painter, e.opts.ViewportWidth, e.opts.ViewportHeight)
	load.coordinator.SetBoxes(load.Boxes)

	// Deferred image completions: fetched concurrently, independent of the
	// pipeline, each updating painted content without re-running layout.
	load.deferred = builder.Deferred()
	e.completeDeferred(ctx, load, load.deferred)

	return load, nil
}

func (e *Engine) completeDeferred(ctx context.Context, load *Load, pending []*layout.Box) {
	if e.images == nil {
		return
	}
	for _, box := range pending {
		box := box
		go func() {
			if ctx.Err() != nil {
				return
			}
			if _, err := e.images.Load(box.ImageURL); err != nil {
				// Placeholder stays until a later successful fetch, if any
				e.opts.Sink.Log(logging.Warn, fmt.Sprintf("image %s: %v", box.ImageURL, err), "")
				return
			}
			load.mu.Lock()
			box.Pending = false
			load.coordinator.Repaint()
			cb := load.onRepaint
			load.mu.Unlock()
			if cb != nil {
				cb()
			}
		}()
	}
}

// SetOnRepaint registers a callback invoked after any repaint that was not
// initiated by the caller (deferred image completions).
func (l *Load) SetOnRepaint(fn func()) {
	l.mu.Lock()
	l.onRepaint = fn
	l.mu.Unlock()
}

// Image returns the painted viewport surface.
func (l *Load) Image() image.Image {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.painter.Image()
}

// SavePNG writes the painted viewport to disk.
func (l *Load) SavePNG(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.painter.SavePNG(path)
}

// Region returns the current scroll region.
func (l *Load) Region() paint.ScrollRegion {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.coordinator.Region()
}

// ScrollbarsVisible reports horizontal and vertical scrollbar visibility.
func (l *Load) ScrollbarsVisible() (horizontal, vertical bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.coordinator.HScrollVisible(), l.coordinator.VScrollVisible()
}

// Wheel forwards wheel input to the scroll coordinator.
func (l *Load) Wheel(deltaX, deltaY float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.coordinator.Wheel(deltaX, deltaY)
}

// PointerPress forwards a pointer press at viewport coordinates.
func (l *Load) PointerPress(x, y float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.coordinator.PointerPress(x, y)
}

// PointerMove forwards a pointer move during a drag.
func (l *Load) PointerMove(x, y float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.coordinator.PointerMove(x, y)
}

// PointerRelease ends a drag gesture.
func (l *Load) PointerRelease() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.coordinator.PointerRelease()
}
