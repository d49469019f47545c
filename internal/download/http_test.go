package download_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aaxsplit/internal/download"
	"aaxsplit/internal/logging"
	"aaxsplit/internal/services"
)

func TestHTTPDownloaderStreamsToTarget(t *testing.T) {
	payload := bytes.Repeat([]byte("aax"), 4096)
	var gotAgent, gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotQuery = r.URL.RawQuery
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	d, err := download.ParseDescriptor("product_id=BK_1&domain=www.audible.co.uk&awtype=aax&codec=LC")
	if err != nil {
		t.Fatalf("ParseDescriptor: %v", err)
	}
	target := filepath.Join(t.TempDir(), "BK_1.aax")
	var progress bytes.Buffer
	dl := download.NewHTTPDownloader(server.URL+"/cgi-bin/assemble.aa", "Test Agent 1.0", 10*time.Second, &progress, logging.NewNop())

	if err := dl.Download(context.Background(), d, target); err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil || !bytes.Equal(data, payload) {
		t.Fatalf("unexpected downloaded data (%d bytes, %v)", len(data), err)
	}
	if _, err := os.Stat(target + ".part"); !os.IsNotExist(err) {
		t.Fatalf("partial file should be gone: %v", err)
	}
	if gotAgent != "Test Agent 1.0" {
		t.Fatalf("unexpected user agent %q", gotAgent)
	}
	if gotQuery != d.Encode() {
		t.Fatalf("unexpected query %q", gotQuery)
	}
}

func TestHTTPDownloaderRefusesExistingTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "exists.aax")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dl := download.NewHTTPDownloader("http://127.0.0.1:1/", "", time.Second, nil, nil)
	err := dl.Download(context.Background(), download.Descriptor{}, target)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHTTPDownloaderStatusErrors(t *testing.T) {
	cases := map[int]error{
		http.StatusForbidden:          services.ErrExternalTool,
		http.StatusServiceUnavailable: services.ErrTransient,
	}
	for status, want := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))
		target := filepath.Join(t.TempDir(), "book.aax")
		dl := download.NewHTTPDownloader(server.URL, "", time.Second, nil, nil)
		err := dl.Download(context.Background(), download.Descriptor{}, target)
		server.Close()
		if !errors.Is(err, want) {
			t.Fatalf("status %d: expected %v, got %v", status, want, err)
		}
		if _, statErr := os.Stat(target); !os.IsNotExist(statErr) {
			t.Fatalf("status %d: target must not exist", status)
		}
	}
}
