package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestIsRemote(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"schedule.xlsx", false},
		{"/srv/data/schedule.xlsx", false},
		{`C:\data\schedule.xlsx`, false},
		{"https://example.com/s/abc/download", true},
		{"http://127.0.0.1:9000/schedule.xlsx", true},
		{"ftp://example.com/schedule.xlsx", false},
		{"https:///nohost", false},
	}
	for _, tt := range tests {
		if got := IsRemote(tt.in); got != tt.want {
			t.Errorf("IsRemote(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolveLocalPassesThrough(t *testing.T) {
	f := NewFetcher(t.TempDir())
	got, err := f.Resolve(context.Background(), "schedule.xlsx")
	if err != nil || got != "schedule.xlsx" {
		t.Fatalf("Resolve = %q, %v", got, err)
	}
}

func TestFetchUsesConditionalRequests(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte("xlsx-bytes"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	u := srv.URL + "/schedule.xlsx?token=secret"

	first, err := f.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := f.Resolve(context.Background(), u)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if first != second || filepath.Base(first) != bodyFile {
		t.Fatalf("paths = %q, %q", first, second)
	}

	data, err := os.ReadFile(second)
	if err != nil || string(data) != "xlsx-bytes" {
		t.Fatalf("cached body = %q, %v", data, err)
	}
	if hits.Load() != 2 || notModified.Load() != 1 {
		t.Fatalf("hits = %d, not modified = %d", hits.Load(), notModified.Load())
	}
}

func TestFetchFallsBackToCache(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("xlsx-bytes"))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	fail.Store(true)
	path, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch with cache: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "xlsx-bytes" {
		t.Fatalf("fallback body = %q", data)
	}
}

func TestFetchErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	if _, err := f.Fetch(context.Background(), srv.URL+"/missing.xlsx"); err == nil {
		t.Fatal("expected error for 404 without cache")
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://Example.com/s/abc?token=secret")
	if got != "https://Example.com/...(redacted)" {
		t.Fatalf("redactURL = %q", got)
	}
	if redactURL("not a url") != "(redacted)" {
		t.Fatal("relative input should be fully redacted")
	}
}
