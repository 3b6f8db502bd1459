// Package source resolves the workbook argument to a local file. Plain paths
// pass through; http(s) URLs are downloaded into a cache directory with
// conditional requests, so a published spreadsheet can be used directly.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"didacal/internal/config"
	appLog "didacal/internal/log"
)

const (
	bodyFile = "workbook.xlsx"
	metaFile = "meta.json"

	// maxWorkbookBytes bounds a single download.
	maxWorkbookBytes = 64 << 20
)

// cacheMeta holds the validators of the cached download.
type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads remote workbooks into a disk cache.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher creates a Fetcher caching under cacheDir. An empty cacheDir
// uses DefaultCacheDir.
func NewFetcher(cacheDir string) *Fetcher {
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}
	return &Fetcher{
		client:   &http.Client{Timeout: 30 * time.Second},
		cacheDir: cacheDir,
	}
}

// DefaultCacheDir is the per-user cache directory, or a temp directory when
// the platform has none.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "didacal")
	}
	return filepath.Join(os.TempDir(), "didacal-cache")
}

// IsRemote reports whether input names an http(s) resource.
func IsRemote(input string) bool {
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Resolve returns a local path for input. Remote inputs are fetched first.
func (f *Fetcher) Resolve(ctx context.Context, input string) (string, error) {
	if !IsRemote(input) {
		return input, nil
	}
	return f.Fetch(ctx, input)
}

// Fetch downloads rawURL, honoring ETag and Last-Modified, and returns the
// path of the cached copy. When the server is unreachable or answers with
// an error status, a previously cached copy is used if there is one.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	dir := f.cachePathForURL(rawURL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("source: create cache dir: %w", err)
	}

	body := filepath.Join(dir, bodyFile)
	meta, _ := loadMeta(dir)
	_, statErr := os.Stat(body)
	cached := statErr == nil

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("source: %w", err)
	}
	if cached && meta.URL == rawURL {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("workbook fetch start", "url", redactURL(rawURL))

	resp, err := f.client.Do(req)
	if err != nil {
		if cached {
			appLog.Error("workbook fetch failed; using cached copy", err, "url", redactURL(rawURL))
			return body, nil
		}
		return "", fmt.Errorf("source: fetch %s: %w", redactURL(rawURL), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkbookBytes+1))
		if err != nil {
			return "", fmt.Errorf("source: read %s: %w", redactURL(rawURL), err)
		}
		if len(data) > maxWorkbookBytes {
			return "", fmt.Errorf("source: %s is larger than %d bytes", redactURL(rawURL), maxWorkbookBytes)
		}
		next := cacheMeta{
			URL:          rawURL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(dir, next, data); err != nil {
			return "", fmt.Errorf("source: save cache: %w", err)
		}
		appLog.Info("workbook downloaded", "url", redactURL(rawURL), "bytes", len(data))
		return body, nil

	case http.StatusNotModified:
		if !cached {
			return "", errors.New("source: 304 Not Modified but no cached workbook")
		}
		appLog.Debug("workbook not modified; using cache", "url", redactURL(rawURL))
		return body, nil

	default:
		if cached {
			appLog.Error("workbook fetch non-OK; using cached copy", errors.New(resp.Status),
				"url", redactURL(rawURL), "status", resp.StatusCode)
			return body, nil
		}
		return "", fmt.Errorf("source: fetch %s: %s", redactURL(rawURL), resp.Status)
	}
}

func (f *Fetcher) cachePathForURL(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

// saveCache writes the body before the metadata so the validators never
// describe a body that is not there.
func saveCache(dir string, meta cacheMeta, body []byte) error {
	if err := config.WriteFileAtomic(filepath.Join(dir, bodyFile), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return config.WriteFileAtomic(filepath.Join(dir, metaFile), data, 0o600)
}

// redactURL keeps only scheme and host; sharing links carry their access
// token in the path or query.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(redacted)"
	}
	return strings.ToLower(u.Scheme) + "://" + u.Host + "/...(redacted)"
}
