package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Sneed-Group/wink-browser/pkg/dom"
	"github.com/Sneed-Group/wink-browser/pkg/logging"
	"github.com/Sneed-Group/wink-browser/pkg/resource"

	"github.com/dop251/goja"
)

// contextLines is the window of source lines logged around a failure point.
const contextLines = 3

// RuntimeError reports a script that threw (or panicked) during evaluation.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string { return "script runtime: " + e.Err.Error() }
func (e *RuntimeError) Unwrap() error { return e.Err }

// Host executes sanitized scripts against a shared global environment
// scoped to one document load. Create a new Host per load; the goja runtime
// and the DOM proxy cache inside it must not outlive the load.
type Host struct {
	vm        *goja.Runtime
	fetcher   resource.Fetcher
	sink      logging.Sink
	sanitizer *Sanitizer
}

// NewHost creates a Host for one document load. fetcher may be nil, in
// which case external scripts and the fetch capability report unavailable.
func NewHost(fetcher resource.Fetcher, sink logging.Sink) *Host {
	if sink == nil {
		sink = logging.Nop{}
	}
	h := &Host{
		vm:        goja.New(),
		fetcher:   fetcher,
		sink:      sink,
		sanitizer: &Sanitizer{},
	}
	// Runaway recursion must surface as a script error, not exhaust the
	// process stack.
	h.vm.SetMaxCallStackSize(4096)
	h.registerConsole()
	h.registerFetch()
	return h
}

// Execute runs the records in document order against doc. External scripts
// are fetched synchronously before evaluation so execution order matches
// document order. A failure in one script never prevents the next from
// running; outcomes land on the records.
func (h *Host) Execute(doc *dom.Document, records []*Record) {
	registerDocument(h.vm, doc)

	for i, rec := range records {
		h.runOne(i, rec)
	}
}

func (h *Host) runOne(index int, rec *Record) {
	if rec.Origin == OriginExternal {
		if h.fetcher == nil {
			rec.State = StateFailed
			rec.Err = fmt.Errorf("%w: no fetcher for %s", resource.ErrUnavailable, rec.URL)
			h.sink.Log(logging.Warn, fmt.Sprintf("script %d (%s): %v", index, rec.URL, rec.Err), "")
			return
		}
		body, _, err := h.fetcher.Fetch(rec.URL, resource.KindScript)
		if err != nil {
			rec.State = StateFailed
			rec.Err = err
			h.sink.Log(logging.Warn, fmt.Sprintf("script %d (%s): %v", index, rec.URL, err), "")
			return
		}
		rec.Source = string(body)
	}

	sanitized, err := h.sanitizer.Sanitize(rec.Source)
	if err != nil {
		rec.State = StateFailed
		rec.Err = err
		h.sink.Log(logging.Warn,
			fmt.Sprintf("script %d (%s): %v", index, rec.Origin, err),
			sourceContext(rec.Source, 1))
		return
	}
	rec.Sanitized = sanitized
	rec.State = StateSanitized

	if err := h.evaluate(sanitized); err != nil {
		rec.State = StateFailed
		rec.Err = &RuntimeError{Err: err}
		h.sink.Log(logging.Error,
			fmt.Sprintf("script %d (%s): %v", index, rec.Origin, err),
			sourceContext(sanitized, failureLine(err)))
		return
	}
	rec.State = StateExecuted
}

// evaluate runs source on the shared runtime. goja reports thrown values as
// errors; the recover converts runtime panics (stack exhaustion and the
// like) into errors too, so no script failure escapes the host.
func (h *Host) evaluate(source string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during evaluation: %v", r)
		}
	}()
	_, err = h.vm.RunString(source)
	return err
}

func (h *Host) registerConsole() {
	forward := func(sev logging.Severity) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = arg.String()
			}
			h.sink.Log(sev, strings.Join(parts, " "), "")
			return goja.Undefined()
		}
	}
	console := h.vm.NewObject()
	console.Set("log", forward(logging.Info))
	console.Set("info", forward(logging.Info))
	console.Set("warn", forward(logging.Warn))
	console.Set("error", forward(logging.Error))
	h.vm.Set("console", console)
}

// registerFetch exposes fetchResource(url, kind) to scripts. kind is one of
// "script", "style", "image"; the result is {content, contentType} or null
// when the resource is unavailable (logged, never thrown).
func (h *Host) registerFetch() {
	h.vm.Set("fetchResource", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			return goja.Null()
		}
		url := call.Arguments[0].String()
		kind := resource.KindScript
		if len(call.Arguments) > 1 {
			switch call.Arguments[1].String() {
			case "style":
				kind = resource.KindStyle
			case "image":
				kind = resource.KindImage
			}
		}
		if h.fetcher == nil {
			h.sink.Log(logging.Warn, fmt.Sprintf("fetchResource %s: no fetcher", url), "")
			return goja.Null()
		}
		body, contentType, err := h.fetcher.Fetch(url, kind)
		if err != nil {
			h.sink.Log(logging.Warn, fmt.Sprintf("fetchResource %s: %v", url, err), "")
			return goja.Null()
		}
		result := h.vm.NewObject()
		result.Set("content", string(body))
		result.Set("contentType", contentType)
		return result
	})
}

var errLinePattern = regexp.MustCompile(`:(\d+):\d+`)

// failureLine pulls the 1-based source line out of a goja error position,
// defaulting to the first line.
func failureLine(err error) int {
	if m := errLinePattern.FindStringSubmatch(err.Error()); m != nil {
		if n, convErr := strconv.Atoi(m[1]); convErr == nil && n > 0 {
			return n
		}
	}
	return 1
}

// sourceContext renders a fixed window of numbered lines around the failure
// point for the log sink.
func sourceContext(source string, line int) string {
	lines := strings.Split(source, "\n")
	lo := line - 1 - contextLines
	if lo < 0 {
		lo = 0
	}
	hi := line - 1 + contextLines
	if hi > len(lines)-1 {
		hi = len(lines) - 1
	}
	var sb strings.Builder
	for i := lo; i <= hi; i++ {
		marker := "  "
		if i == line-1 {
			marker = "> "
		}
		fmt.Fprintf(&sb, "%s%3d | %s\n", marker, i+1, lines[i])
	}
	return strings.TrimRight(sb.String(), "\n")
}
