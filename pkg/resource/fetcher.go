package resource

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Kind identifies what a caller expects a fetched resource to be. The
// classification gates content-type checks, not transport.
type Kind int

const (
	KindDocument Kind = iota
	KindScript
	KindStyle
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindScript:
		return "script"
	case KindStyle:
		return "style"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// ErrUnavailable reports a resource that could not be retrieved. Callers
// treat it as a resource-not-available state, never as a pipeline abort.
var ErrUnavailable = errors.New("resource unavailable")

// Fetcher retrieves resources by URL and expected kind.
type Fetcher interface {
	Fetch(rawURL string, kind Kind) (body []byte, contentType string, err error)
}

const userAgent = "wink-browser/1.0 (compatible; Go)"

// HTTPFetcher fetches resources over HTTP/HTTPS, resolving relative URLs
// against a base URL.
type HTTPFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPFetcher creates an HTTPFetcher with the given base URL.
// Relative URLs passed to Fetch will be resolved against this base.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch retrieves the resource at the given URL.
// Relative URLs are resolved against the fetcher's base URL.
func (f *HTTPFetcher) Fetch(rawURL string, kind Kind) ([]byte, string, error) {
	resolved := rawURL
	if !IsNetworkURL(rawURL) && f.baseURL != "" {
		resolved = ResolveURL(f.baseURL, rawURL)
	}
	if !IsNetworkURL(resolved) {
		return nil, "", fmt.Errorf("%w: non-network URL %s", ErrUnavailable, resolved)
	}

	req, err := http.NewRequest("GET", resolved, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: creating request: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: fetching %s: %v", ErrUnavailable, resolved, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("%w: HTTP %d fetching %s", ErrUnavailable, resp.StatusCode, resolved)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading %s: %v", ErrUnavailable, resolved, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if err := checkContentType(kind, contentType); err != nil {
		return nil, "", err
	}
	return body, contentType, nil
}

// checkContentType rejects bodies whose declared type contradicts the
// requested kind. Empty content types pass; servers frequently omit them.
func checkContentType(kind Kind, contentType string) error {
	ct := strings.ToLower(contentType)
	if ct == "" {
		return nil
	}
	switch kind {
	case KindStyle:
		if !strings.HasPrefix(ct, "text/") && !strings.Contains(ct, "css") {
			return fmt.Errorf("%w: unexpected content type for stylesheet: %s", ErrUnavailable, contentType)
		}
	case KindScript:
		if !strings.HasPrefix(ct, "text/") && !strings.Contains(ct, "javascript") && !strings.Contains(ct, "ecmascript") {
			return fmt.Errorf("%w: unexpected content type for script: %s", ErrUnavailable, contentType)
		}
	}
	// Documents take whatever the server sends; images are sniffed by the
	// decoder, not the header.
	return nil
}

// IsNetworkURL reports whether s has an http or https scheme.
func IsNetworkURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// ResolveURL resolves a possibly-relative URL against a base URL.
// If ref is already absolute, it is returned as-is.
func ResolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

// StaticFetcher serves resources from an in-memory map keyed by resolved
// URL. Used for local files and tests.
type StaticFetcher struct {
	BaseURL   string
	Resources map[string][]byte
	Types     map[string]string // optional content types, same keys
}

func NewStaticFetcher(baseURL string) *StaticFetcher {
	return &StaticFetcher{
		BaseURL:   baseURL,
		Resources: make(map[string][]byte),
		Types:     make(map[string]string),
	}
}

// Add registers a resource under the given URL.
func (f *StaticFetcher) Add(rawURL string, body []byte, contentType string) {
	f.Resources[rawURL] = body
	if contentType != "" {
		f.Types[rawURL] = contentType
	}
}

func (f *StaticFetcher) Fetch(rawURL string, kind Kind) ([]byte, string, error) {
	resolved := rawURL
	if f.BaseURL != "" && !IsNetworkURL(rawURL) {
		resolved = ResolveURL(f.BaseURL, rawURL)
	}
	body, ok := f.Resources[resolved]
	if !ok {
		// Fall back to the unresolved key so tests can register bare paths.
		if body, ok = f.Resources[rawURL]; !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrUnavailable, resolved)
		}
		resolved = rawURL
	}
	return body, f.Types[resolved], nil
}
