package script

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sneed-Group/wink-browser/pkg/dom"
	"github.com/Sneed-Group/wink-browser/pkg/logging"
	"github.com/Sneed-Group/wink-browser/pkg/resource"
)

func parseDoc(t *testing.T, html string) *dom.Document {
	t.Helper()
	doc, err := dom.ParseString(html, "http://example.com/")
	require.NoError(t, err)
	return doc
}

func TestCollectScriptsDocumentOrder(t *testing.T) {
	doc := parseDoc(t, `<html><head>
		<script>var a = 1;</script>
		<script src="http://example.com/b.js"></script>
	</head><body>
		<script>var c = 3;</script>
		<script type="text/vbscript">Dim x</script>
	</body></html>`)

	records := CollectScripts(doc)
	require.Len(t, records, 3, "non-JavaScript type must produce no record")

	require.Equal(t, OriginInline, records[0].Origin)
	require.Equal(t, "var a = 1;", records[0].Source)
	require.Equal(t, OriginExternal, records[1].Origin)
	require.Equal(t, "http://example.com/b.js", records[1].URL)
	require.Equal(t, OriginInline, records[2].Origin)
	require.Equal(t, StatePending, records[0].State)
}

func TestExecuteOrderMatchesDocumentOrder(t *testing.T) {
	fetcher := resource.NewStaticFetcher("http://example.com/")
	fetcher.Add("http://example.com/mid.js", []byte(`order.push("external");`), "application/javascript")

	doc := parseDoc(t, `<html><head>
		<script>var order = ["first"];</script>
		<script src="http://example.com/mid.js"></script>
		<script>
			var el = document.createElement("p");
			el.textContent = order.join(",") + ",last";
			document.body.appendChild(el);
		</script>
	</head><body></body></html>`)

	host := NewHost(fetcher, logging.Nop{})
	records := CollectScripts(doc)
	host.Execute(doc, records)

	for i, rec := range records {
		require.Equal(t, StateExecuted, rec.State, "script %d: %v", i, rec.Err)
	}

	ps := doc.Root.FindAll("p")
	require.Len(t, ps, 1)
	require.Equal(t, "first,external,last", ps[0].TextContent())
}

func TestFailureDoesNotStopLaterScripts(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<script>var shared = 1;</script>
		<script>throw new Error("boom");</script>
		<script>shared = shared + 1; document.body.id = "after-" + shared;</script>
	</body></html>`)

	capture := &logging.Capture{}
	host := NewHost(nil, capture)
	records := CollectScripts(doc)
	host.Execute(doc, records)

	require.Equal(t, StateExecuted, records[0].State)
	require.Equal(t, StateFailed, records[1].State)
	require.Equal(t, StateExecuted, records[2].State)

	var rerr *RuntimeError
	require.ErrorAs(t, records[1].Err, &rerr)

	body := doc.Root.FindAll("body")[0]
	id, _ := body.GetAttribute("id")
	require.Equal(t, "after-2", id, "state from before the failure must survive")

	require.NotEmpty(t, capture.Events, "runtime failure must be logged")
	require.NotEmpty(t, capture.Events[0].Context, "log must carry source context")
}

func TestExternalFetchFailureIsIsolated(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<script src="http://example.com/missing.js"></script>
		<script>document.body.className = "ran";</script>
	</body></html>`)

	host := NewHost(resource.NewStaticFetcher("http://example.com/"), logging.Nop{})
	records := CollectScripts(doc)
	host.Execute(doc, records)

	require.Equal(t, StateFailed, records[0].State)
	require.ErrorIs(t, records[0].Err, resource.ErrUnavailable)
	require.Equal(t, StateExecuted, records[1].State)
}

func TestNilFetcherFailsExternalScripts(t *testing.T) {
	doc := parseDoc(t, `<html><body><script src="http://example.com/a.js"></script></body></html>`)

	host := NewHost(nil, logging.Nop{})
	records := CollectScripts(doc)
	host.Execute(doc, records)

	require.Equal(t, StateFailed, records[0].State)
	require.ErrorIs(t, records[0].Err, resource.ErrUnavailable)
}

func TestSanitizeFailureMarksRecord(t *testing.T) {
	doc := parseDoc(t, `<html><body><script>var x = 1; }</script></body></html>`)

	host := NewHost(nil, logging.Nop{})
	records := CollectScripts(doc)
	host.Execute(doc, records)

	require.Equal(t, StateFailed, records[0].State)
	var serr *SanitizeError
	require.ErrorAs(t, records[0].Err, &serr)
	require.Empty(t, records[0].Sanitized)
}

func TestRepairedScriptExecutes(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<script>var x = 5; if (x > 0) { document.body.id = "repaired";</script>
	</body></html>`)

	host := NewHost(nil, logging.Nop{})
	records := CollectScripts(doc)
	host.Execute(doc, records)

	require.Equal(t, StateExecuted, records[0].State, "err: %v", records[0].Err)
	body := doc.Root.FindAll("body")[0]
	id, _ := body.GetAttribute("id")
	require.Equal(t, "repaired", id)
}

func TestConsoleForwardsToSink(t *testing.T) {
	doc := parseDoc(t, `<html><body><script>
		console.log("hello", 42);
		console.warn("careful");
		console.error("bad");
	</script></body></html>`)

	capture := &logging.Capture{}
	host := NewHost(nil, capture)
	host.Execute(doc, CollectScripts(doc))

	require.Len(t, capture.Events, 3)
	require.Equal(t, logging.Info, capture.Events[0].Severity)
	require.Equal(t, "hello 42", capture.Events[0].Message)
	require.Equal(t, logging.Warn, capture.Events[1].Severity)
	require.Equal(t, logging.Error, capture.Events[2].Severity)
}

func TestFetchResourceBinding(t *testing.T) {
	fetcher := resource.NewStaticFetcher("http://example.com/")
	fetcher.Add("http://example.com/data.txt", []byte("payload"), "text/plain")

	doc := parseDoc(t, `<html><body><script>
		var res = fetchResource("http://example.com/data.txt");
		document.body.id = res.content + "/" + res.contentType;
		var missing = fetchResource("http://example.com/nope.txt");
		if (missing === null) { document.body.className = "null-on-miss"; }
	</script></body></html>`)

	host := NewHost(fetcher, logging.Nop{})
	records := CollectScripts(doc)
	host.Execute(doc, records)

	require.Equal(t, StateExecuted, records[0].State, "err: %v", records[0].Err)
	body := doc.Root.FindAll("body")[0]
	id, _ := body.GetAttribute("id")
	require.Equal(t, "payload/text/plain", id)
	class, _ := body.GetAttribute("class")
	require.Equal(t, "null-on-miss", class)
}

func TestDocumentBindings(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div id="target" class="box">before</div>
		<script>
			var el = document.getElementById("target");
			el.textContent = "after";
			el.setAttribute("data-seen", "yes");
			var divs = document.getElementsByTagName("div");
			document.body.id = "count-" + divs.length;
			var boxes = document.getElementsByClassName("box");
			el.className = el.className + " found-" + boxes.length;
		</script>
	</body></html>`)

	host := NewHost(nil, logging.Nop{})
	records := CollectScripts(doc)
	host.Execute(doc, records)

	require.Equal(t, StateExecuted, records[0].State, "err: %v", records[0].Err)

	divs := doc.Root.FindAll("div")
	require.Len(t, divs, 1)
	require.Equal(t, "after", divs[0].TextContent())
	seen, _ := divs[0].GetAttribute("data-seen")
	require.Equal(t, "yes", seen)
	class, _ := divs[0].GetAttribute("class")
	require.Equal(t, "box found-1", class)

	body := doc.Root.FindAll("body")[0]
	id, _ := body.GetAttribute("id")
	require.Equal(t, "count-1", id)
}

func TestInnerHTMLAssignmentParsesFragment(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<div id="target"></div>
		<script>
			document.getElementById("target").innerHTML = "<b>bold</b> text";
		</script>
	</body></html>`)

	host := NewHost(nil, logging.Nop{})
	records := CollectScripts(doc)
	host.Execute(doc, records)

	require.Equal(t, StateExecuted, records[0].State, "err: %v", records[0].Err)
	div := doc.Root.FindAll("div")[0]
	require.Len(t, div.Children, 2)
	require.Equal(t, "b", div.Children[0].TagName)
	require.Equal(t, "bold text", div.TextContent())
}

func TestPanicDuringEvaluationIsContained(t *testing.T) {
	doc := parseDoc(t, `<html><body>
		<script>function f() { f(); } f();</script>
		<script>document.body.id = "survived";</script>
	</body></html>`)

	host := NewHost(nil, logging.Nop{})
	records := CollectScripts(doc)
	host.Execute(doc, records)

	require.Equal(t, StateFailed, records[0].State)
	require.Equal(t, StateExecuted, records[1].State)
	body := doc.Root.FindAll("body")[0]
	id, _ := body.GetAttribute("id")
	require.Equal(t, "survived", id)
}

func TestFailureLineExtraction(t *testing.T) {
	require.Equal(t, 1, failureLine(errString("no position here")))
	require.Equal(t, 7, failureLine(errString("ReferenceError: x is not defined at <eval>:7:3(1)")))
}

type errString string

func (e errString) Error() string { return string(e) }

func TestSourceContextWindow(t *testing.T) {
	src := "one\ntwo\nthree\nfour\nfive\nsix\nseven\neight\nnine"
	ctx := sourceContext(src, 5)
	require.Contains(t, ctx, ">   5 | five")
	require.Contains(t, ctx, "    2 | two")
	require.Contains(t, ctx, "    8 | eight")
	require.NotContains(t, ctx, "one")
	require.NotContains(t, ctx, "nine")
}
