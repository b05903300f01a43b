package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sneed-Group/wink-browser/pkg/dom"
	"github.com/Sneed-Group/wink-browser/pkg/engine"
	"github.com/Sneed-Group/wink-browser/pkg/logging"
	"github.com/Sneed-Group/wink-browser/pkg/resource"
)

func main() {
	width := flag.Int("w", 800, "viewport width in pixels")
	height := flag.Int("h", 600, "viewport height in pixels")
	output := flag.String("o", "output.png", "output PNG file path")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: winkshot [flags] <url-or-file>\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	target := flag.Arg(0)

	level := logging.Warn
	if *verbose {
		level = logging.Debug
	}
	sink := logging.NewDefaultSink(level)

	var (
		fetcher resource.Fetcher
		markup  []byte
		baseURL string
		err     error
	)
	if resource.IsNetworkURL(target) {
		fmt.Fprintf(os.Stderr, "Fetching %s...\n", target)
		httpFetcher := resource.NewHTTPFetcher(target)
		markup, _, err = httpFetcher.Fetch(target, resource.KindDocument)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching URL: %v\n", err)
			os.Exit(1)
		}
		fetcher = httpFetcher
		baseURL = target
	} else {
		markup, err = os.ReadFile(target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
			os.Exit(1)
		}
		fetcher = &fileFetcher{baseDir: filepath.Dir(target)}
		baseURL = target
	}

	doc, err := dom.ParseString(string(markup), baseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing HTML: %v\n", err)
		os.Exit(1)
	}

	eng := engine.New(engine.Options{
		ViewportWidth:  float64(*width),
		ViewportHeight: float64(*height),
		Fetcher:        fetcher,
		Sink:           sink,
	})

	fmt.Fprintf(os.Stderr, "Rendering %dx%d...\n", *width, *height)
	load, err := eng.Run(context.Background(), doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		os.Exit(1)
	}

	if failed := load.Report.FailedScripts(); len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "%d script(s) failed; rendered around them\n", len(failed))
	}

	if err := load.SavePNG(*output); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving PNG: %v\n", err)
		os.Exit(1)
	}
	region := load.Region()
	fmt.Printf("Saved %s (content %.0fx%.0f)\n", *output, region.ContentWidth, region.ContentHeight)
}

// fileFetcher resolves resource references against the input file's
// directory, so local pages can reference sibling stylesheets and images.
type fileFetcher struct {
	baseDir string
}

func (f *fileFetcher) Fetch(rawURL string, kind resource.Kind) ([]byte, string, error) {
	if resource.IsNetworkURL(rawURL) {
		return resource.NewHTTPFetcher("").Fetch(rawURL, kind)
	}
	path := rawURL
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.baseDir, path)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", resource.ErrUnavailable, err)
	}
	return body, contentTypeForPath(path), nil
}

func contentTypeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".css":
		return "text/css"
	case ".js":
		return "text/javascript"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	}
	return ""
}
