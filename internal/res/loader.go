package res

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ResourceType represents the type of resource
type ResourceType int

const (
	// ResourceTypeUnknown is an unknown resource type
	ResourceTypeUnknown ResourceType = iota
	// ResourceTypeImage is an image resource
	ResourceTypeImage
	// ResourceTypeCSS is a CSS resource
	ResourceTypeCSS
	// ResourceTypeHTML is a document
	ResourceTypeHTML
	// ResourceTypeOther is any other resource
	ResourceTypeOther
)

var (
	// ErrNotFound is returned when a local resource exists in no search path.
	ErrNotFound = errors.New("resource not found")
	// ErrWrongType is returned when a resource is not of the requested type.
	ErrWrongType = errors.New("unexpected resource type")
	// ErrForbidden is returned for a local file outside the loader's roots,
	// or a remote URL the loader may not fetch.
	ErrForbidden = errors.New("resource not allowed")
)

// MaxResourceSize caps the bytes read for a single resource.
const MaxResourceSize = 32 << 20

// Resource represents a loaded resource
type Resource struct {
	URL      string
	Type     ResourceType
	Data     []byte
	MimeType string
}

// Loader fetches documents, stylesheets and images from files, HTTP(S) and
// data URLs. Loaded resources are cached by the URL they were requested with.
//
// Local files are read only below the directory of a local BaseURL and the
// search paths. Remote URLs are fetched only from the origin of a remote
// BaseURL unless AllowRemote is set.
type Loader struct {
	// BaseURL is the URL or file path relative references resolve against
	BaseURL string

	cache     map[string]*Resource
	sizes     map[string]Size
	cacheLock sync.RWMutex

	searchPaths []string
	remote      bool

	client *http.Client
}

// NewLoader creates a new resource loader
func NewLoader(baseURL string) *Loader {
	l := &Loader{
		BaseURL: baseURL,
		cache:   make(map[string]*Resource),
		sizes:   make(map[string]Size),
	}
	l.client = &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			return l.checkRemote(req.URL)
		},
	}
	return l
}

// AllowRemote lets the loader fetch from any HTTP(S) origin.
func (l *Loader) AllowRemote(allow bool) {
	l.remote = allow
}

// AddSearchPath adds a directory to search for local resources
func (l *Loader) AddSearchPath(path string) {
	l.searchPaths = append(l.searchPaths, path)
}

// Load loads a resource from a URL or file path
func (l *Loader) Load(urlStr string) (*Resource, error) {
	return l.LoadContext(context.Background(), urlStr)
}

// LoadContext is Load with a context bounding remote fetches.
func (l *Loader) LoadContext(ctx context.Context, urlStr string) (*Resource, error) {
	l.cacheLock.RLock()
	if res, ok := l.cache[urlStr]; ok {
		l.cacheLock.RUnlock()
		return res, nil
	}
	l.cacheLock.RUnlock()

	var (
		res *Resource
		err error
	)
	if strings.HasPrefix(urlStr, "data:") {
		res, err = parseDataURL(urlStr)
	} else {
		var resolved string
		resolved, err = l.resolveURL(urlStr)
		if err != nil {
			return nil, err
		}
		if isRemote(resolved) {
			var u *url.URL
			if u, err = url.Parse(resolved); err != nil {
				return nil, err
			}
			if err = l.checkRemote(u); err != nil {
				return nil, err
			}
			res, err = l.loadRemote(ctx, resolved)
		} else {
			res, err = l.loadLocal(resolved)
		}
	}
	if err != nil {
		return nil, err
	}

	l.cacheLock.Lock()
	l.cache[urlStr] = res
	l.cacheLock.Unlock()
	return res, nil
}

func isRemote(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// parseDataURL parses a data URL (RFC 2397) and returns a Resource.
// Examples:
//
//	data:image/png;base64,<base64>
//	data:text/plain,Hello%20World
func parseDataURL(u string) (*Resource, error) {
	s, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, fmt.Errorf("not a data URL")
	}
	meta, dataPart, found := strings.Cut(s, ",")
	if !found {
		return nil, fmt.Errorf("invalid data URL")
	}

	mime := "text/plain"
	isBase64 := false
	if meta != "" {
		comps := strings.Split(meta, ";")
		if comps[0] != "" {
			mime = strings.ToLower(comps[0])
		}
		for _, c := range comps[1:] {
			if strings.EqualFold(strings.TrimSpace(c), "base64") {
				isBase64 = true
			}
		}
	}

	var data []byte
	if isBase64 {
		var err error
		data, err = base64.StdEncoding.DecodeString(strings.TrimSpace(dataPart))
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data URL: %w", err)
		}
	} else if d, err := url.PathUnescape(dataPart); err == nil {
		data = []byte(d)
	} else {
		data = []byte(dataPart)
	}

	return &Resource{URL: u, Data: data, MimeType: mime, Type: determineResourceType(mime, "")}, nil
}

// resolveURL resolves a URL relative to the base URL
func (l *Loader) resolveURL(urlStr string) (string, error) {
	if isRemote(urlStr) {
		return urlStr, nil
	}
	if strings.HasPrefix(urlStr, "file://") {
		return strings.TrimPrefix(urlStr, "file://"), nil
	}

	if !isRemote(l.BaseURL) {
		if filepath.IsAbs(urlStr) {
			return urlStr, nil
		}
		base := l.BaseURL
		if base == "" {
			return urlStr, nil
		}
		if fi, err := os.Stat(base); err == nil && fi.IsDir() {
			return filepath.Join(base, urlStr), nil
		}
		return filepath.Join(filepath.Dir(base), urlStr), nil
	}

	baseURL, err := url.Parse(l.BaseURL)
	if err != nil {
		return "", err
	}
	relURL, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(relURL).String(), nil
}

// loadRemote loads a resource from a remote URL
func (l *Loader) loadRemote(ctx context.Context, urlStr string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: HTTP error: %s", urlStr, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResourceSize))
	if err != nil {
		return nil, err
	}

	mime, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	mime = strings.ToLower(strings.TrimSpace(mime))
	if mime == "" {
		mime = determineMimeType(urlStr)
	}
	return &Resource{
		URL:      urlStr,
		Data:     data,
		MimeType: mime,
		Type:     determineResourceType(mime, urlStr),
	}, nil
}

// checkRemote allows any origin when remote loading is on, and otherwise
// only the origin of a remote BaseURL.
func (l *Loader) checkRemote(u *url.URL) error {
	if l.remote {
		return nil
	}
	if isRemote(l.BaseURL) {
		if base, err := url.Parse(l.BaseURL); err == nil && base.Scheme == u.Scheme && base.Host == u.Host {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrForbidden, u.Redacted())
}

// roots are the directories local files may be read from.
func (l *Loader) roots() []string {
	var roots []string
	if l.BaseURL != "" && !isRemote(l.BaseURL) {
		base := l.BaseURL
		if fi, err := os.Stat(base); err != nil || !fi.IsDir() {
			base = filepath.Dir(base)
		}
		roots = append(roots, base)
	}
	return append(roots, l.searchPaths...)
}

func (l *Loader) allowedLocal(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range l.roots() {
		if within(root, abs) {
			return true
		}
	}
	return false
}

func within(root, path string) bool {
	r, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(r, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// loadLocal loads a resource from a local file. A path outside the roots is
// only looked up by name in the search paths.
func (l *Loader) loadLocal(path string) (*Resource, error) {
	if !l.allowedLocal(path) {
		res, err := l.loadFromSearchPaths(path)
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrForbidden, path)
		}
		return res, err
	}
	data, err := readFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return l.loadFromSearchPaths(path)
		}
		return nil, err
	}
	return localResource(path, data), nil
}

// loadFromSearchPaths tries to load a resource from the search paths
func (l *Loader) loadFromSearchPaths(filename string) (*Resource, error) {
	base := filepath.Base(filename)
	for _, searchPath := range l.searchPaths {
		path := filepath.Join(searchPath, base)
		data, err := readFile(path)
		if err != nil {
			continue
		}
		return localResource(path, data), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxResourceSize))
}

func localResource(path string, data []byte) *Resource {
	mime := determineMimeType(path)
	return &Resource{URL: path, Data: data, MimeType: mime, Type: determineResourceType(mime, path)}
}

// determineMimeType determines the MIME type of a file
func determineMimeType(path string) string {
	if u, err := url.Parse(path); err == nil && u.Path != "" {
		path = u.Path
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".bmp":
		return "image/bmp"
	case ".svg":
		return "image/svg+xml"
	case ".css":
		return "text/css"
	case ".html", ".htm":
		return "text/html"
	default:
		return "application/octet-stream"
	}
}

// determineResourceType determines the type of a resource
func determineResourceType(mimeType, path string) ResourceType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return ResourceTypeImage
	case mimeType == "text/css":
		return ResourceTypeCSS
	case mimeType == "text/html" || mimeType == "application/xhtml+xml":
		return ResourceTypeHTML
	}

	switch determineMimeType(path) {
	case "text/css":
		return ResourceTypeCSS
	case "text/html":
		return ResourceTypeHTML
	case "application/octet-stream":
		return ResourceTypeOther
	}
	return ResourceTypeImage
}

// LoadImage loads an image resource
func (l *Loader) LoadImage(urlStr string) (*Resource, error) {
	res, err := l.Load(urlStr)
	if err != nil {
		return nil, err
	}
	if res.Type != ResourceTypeImage {
		return nil, fmt.Errorf("%w: %s is not an image", ErrWrongType, urlStr)
	}
	return res, nil
}

// LoadCSS loads a CSS resource
func (l *Loader) LoadCSS(ctx context.Context, urlStr string) (*Resource, error) {
	res, err := l.LoadContext(ctx, urlStr)
	if err != nil {
		return nil, err
	}
	if res.Type != ResourceTypeCSS {
		return nil, fmt.Errorf("%w: %s is not CSS", ErrWrongType, urlStr)
	}
	return res, nil
}

// LoadHTML loads a document. Any text resource is accepted.
func (l *Loader) LoadHTML(ctx context.Context, urlStr string) (*Resource, error) {
	return l.LoadContext(ctx, urlStr)
}

// GetString returns the resource data as a string
func (r *Resource) GetString() string {
	return string(r.Data)
}
