package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var errNoSource = errors.New("no source configured")

// fetchResult is what the file server answered for one path.
type fetchResult struct {
	Status      int
	ContentType string
	Body        []byte
	Truncated   bool
}

// OK reports a 2xx status.
func (r *fetchResult) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// contentFetcher retrieves the raw bytes behind a resolved path.
type contentFetcher interface {
	Fetch(ctx context.Context, path string) (*fetchResult, error)
}

// readCapped reads at most max bytes and reports whether more were available.
func readCapped(r io.Reader, max int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > max {
		return data[:max], true, nil
	}
	return data, false, nil
}

// httpFetcher issues plain unauthenticated GETs against the upstream file server.
type httpFetcher struct {
	base     *url.URL
	client   *http.Client
	maxBytes int64
}

func newHTTPFetcher(base string, timeout time.Duration, maxBytes int64) (*httpFetcher, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream %q: %w", base, err)
	}
	return &httpFetcher{
		base:     u,
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}, nil
}

// target joins path onto the upstream URL. The host always stays the
// upstream's, even for paths like "//other.host/x".
func (f *httpFetcher) target(path string) string {
	path, _, _ = strings.Cut(path, "#")
	pathPart, query, _ := strings.Cut(path, "?")
	u := *f.base
	u.Path = strings.TrimSuffix(f.base.Path, "/") + pathPart
	u.RawPath = ""
	u.RawQuery = query
	u.Fragment = ""
	return u.String()
}

func (f *httpFetcher) Fetch(ctx context.Context, path string) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.target(path), nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, truncated, err := readCapped(resp.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return &fetchResult{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Truncated:   truncated,
	}, nil
}

// localFetcher answers for logical roots that are backed by local directories.
// Files are opened through os.Root, so nothing outside a root directory is reachable.
type localFetcher struct {
	dirs     map[string]string
	roots    map[string]*os.Root
	maxBytes int64
}

func openLocalFetcher(dirs map[string]string, maxBytes int64) (*localFetcher, error) {
	lf := &localFetcher{
		dirs:     dirs,
		roots:    make(map[string]*os.Root, len(dirs)),
		maxBytes: maxBytes,
	}
	for name, dir := range dirs {
		root, err := os.OpenRoot(dir)
		if err != nil {
			lf.close()
			return nil, fmt.Errorf("open root %s: %w", name, err)
		}
		lf.roots[name] = root
	}
	return lf, nil
}

// handles reports whether path lives under a locally backed root.
func (f *localFetcher) handles(path string) bool {
	if f == nil {
		return false
	}
	_, ok := f.roots[rootOf(path)]
	return ok
}

// relName strips the root prefix, query and fragment from a resolved path.
func relName(path string) string {
	path, _, _ = strings.Cut(path, "?")
	path, _, _ = strings.Cut(path, "#")
	rest := strings.TrimPrefix(path, "/")
	_, rel, _ := strings.Cut(rest, "/")
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return "."
	}
	return rel
}

// absPath maps a resolved path to its file on disk.
func (f *localFetcher) absPath(path string) (string, bool) {
	dir, ok := f.dirs[rootOf(path)]
	if !ok {
		return "", false
	}
	return filepath.Join(dir, filepath.FromSlash(relName(path))), true
}

func (f *localFetcher) Fetch(ctx context.Context, path string) (*fetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, ok := f.roots[rootOf(path)]
	if !ok {
		return nil, fmt.Errorf("%w for %s", errNoSource, path)
	}

	name := relName(path)
	file, err := root.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return textResult(http.StatusNotFound, "not found"), nil
		}
		return textResult(http.StatusForbidden, "forbidden"), nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return listDirectory(file)
	}

	body, truncated, err := readCapped(file, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return &fetchResult{
		Status:      http.StatusOK,
		ContentType: contentTypeForPath(name, body),
		Body:        body,
		Truncated:   truncated,
	}, nil
}

// listDirectory renders a plain-text listing, directories suffixed with "/".
func listDirectory(dir *os.File) (*fetchResult, error) {
	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir.Name(), err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return textResult(http.StatusOK, strings.Join(names, "\n")), nil
}

func textResult(status int, body string) *fetchResult {
	return &fetchResult{
		Status:      status,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(body),
	}
}

func (f *localFetcher) close() {
	if f == nil {
		return
	}
	for _, root := range f.roots {
		root.Close()
	}
}

// sourceFetcher prefers a local root and falls back to the upstream server.
type sourceFetcher struct {
	local    *localFetcher
	upstream *httpFetcher
}

func (f *sourceFetcher) Fetch(ctx context.Context, path string) (*fetchResult, error) {
	if f.local.handles(path) {
		return f.local.Fetch(ctx, path)
	}
	if f.upstream != nil {
		return f.upstream.Fetch(ctx, path)
	}
	return nil, fmt.Errorf("%w for %s", errNoSource, path)
}
