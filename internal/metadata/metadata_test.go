package metadata_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"aaxsplit/internal/media/ffprobe"
	"aaxsplit/internal/metadata"
	"aaxsplit/internal/services"
)

func TestSidecarRoundTrip(t *testing.T) {
	dir := t.TempDir()
	book := metadata.Book{ID: "B00EXAMPLE", Title: "The Example", Author: "Jane Author", Series: "Examples", SeriesBook: "2"}
	path, err := metadata.WriteRecord(dir, book)
	if err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if path != filepath.Join(dir, "B00EXAMPLE.json") {
		t.Fatalf("unexpected record path %q", path)
	}

	got, err := metadata.NewSidecarResolver(dir).Lookup(context.Background(), "", "B00EXAMPLE")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != book {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestSidecarLookupErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "BROKEN0000.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	resolver := metadata.NewSidecarResolver(dir)
	ctx := context.Background()

	if _, err := resolver.Lookup(ctx, "www.audible.com", "MISSING000"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := resolver.Lookup(ctx, "", "BROKEN0000"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for malformed record, got %v", err)
	}
	if _, err := resolver.Lookup(ctx, "", "../etc"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation for path-like id, got %v", err)
	}
	if _, err := metadata.NewSidecarResolver("").Lookup(ctx, "", "B00EXAMPLE"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without a directory, got %v", err)
	}
}

func TestSidecarFillsMissingID(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "B000000001.json"), []byte(`{"title":"Untagged"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	book, err := metadata.NewSidecarResolver(dir).Lookup(context.Background(), "www.audible.co.uk", "B000000001")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if book.ID != "B000000001" || book.Title != "Untagged" {
		t.Fatalf("unexpected book: %+v", book)
	}
}

func TestFromProbe(t *testing.T) {
	probe := ffprobe.Result{Metadata: map[string]string{
		"album":  "Album Title",
		"artist": "Jane Author",
		"date":   "2014",
	}, Streams: map[string]ffprobe.Stream{
		"0:0": {ID: "0:0", Kind: "Audio", Language: "ger"},
	}, StreamOrder: []string{"0:0"}}
	book := metadata.FromProbe("", "/books/whatever.m4b", probe)
	if book.Title != "Album Title" || book.Author != "Jane Author" || book.ReleaseDate != "2014" || book.Language != "de" {
		t.Fatalf("unexpected book: %+v", book)
	}

	untagged := metadata.FromProbe("", "/books/the_long-walk.m4b", ffprobe.Result{})
	if untagged.Title != "The Long Walk" {
		t.Fatalf("unexpected derived title %q", untagged.Title)
	}
}

func TestTitleFromFilename(t *testing.T) {
	cases := map[string]string{
		"/x/a_tale.of_two.m4b": "A Tale Of Two",
		"HELLO-world.aax":      "Hello World",
		".m4b":                 "",
	}
	for in, want := range cases {
		if got := metadata.TitleFromFilename(in); got != want {
			t.Fatalf("TitleFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSidecarPrefersDomainRecord(t *testing.T) {
	dir := t.TempDir()
	if _, err := metadata.WriteRecord(dir, metadata.Book{ID: "B00EXAMPLE", Title: "Generic"}); err != nil {
		t.Fatal(err)
	}
	domainDir := filepath.Join(dir, "www.audible.com")
	if err := os.MkdirAll(domainDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := metadata.WriteRecord(domainDir, metadata.Book{ID: "B00EXAMPLE", Title: "US Edition"}); err != nil {
		t.Fatal(err)
	}
	resolver := metadata.NewSidecarResolver(dir)

	us, err := resolver.Lookup(context.Background(), "www.audible.com", "B00EXAMPLE")
	if err != nil || us.Title != "US Edition" {
		t.Fatalf("expected domain record, got %+v (%v)", us, err)
	}
	uk, err := resolver.Lookup(context.Background(), "www.audible.co.uk", "B00EXAMPLE")
	if err != nil || uk.Title != "Generic" {
		t.Fatalf("expected fallback record, got %+v (%v)", uk, err)
	}
}
