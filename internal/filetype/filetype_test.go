package filetype_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"aaxsplit/internal/config"
	"aaxsplit/internal/conversion"
	"aaxsplit/internal/download"
	"aaxsplit/internal/filetype"
	"aaxsplit/internal/library"
	"aaxsplit/internal/media/ffprobe"
	"aaxsplit/internal/metadata"
	"aaxsplit/internal/services"
	"aaxsplit/internal/testsupport"
)

type recordingSplitter struct {
	paths []string
}

func (s *recordingSplitter) Split(_ context.Context, path string) (*conversion.Report, error) {
	s.paths = append(s.paths, path)
	return &conversion.Report{Source: path}, nil
}

type fakeDownloader struct {
	targets []string
	err     error
}

func (d *fakeDownloader) Download(_ context.Context, _ download.Descriptor, target string) error {
	d.targets = append(d.targets, target)
	if d.err != nil {
		return d.err
	}
	return os.WriteFile(target, []byte("container"), 0o644)
}

func tagProber(title, artist string) conversion.Prober {
	return func(context.Context, string) (ffprobe.Result, error) {
		return ffprobe.Result{Metadata: map[string]string{"title": title, "artist": artist}, Duration: 60}, nil
	}
}

func failingProber(t *testing.T) conversion.Prober {
	return func(context.Context, string) (ffprobe.Result, error) {
		t.Fatal("prober must not run when a metadata record exists")
		return ffprobe.Result{}, nil
	}
}

func writeRecord(t *testing.T, cfg *config.Config, book metadata.Book) {
	t.Helper()
	if err := os.MkdirAll(cfg.Paths.MetadataDir, 0o755); err != nil {
		t.Fatalf("mkdir metadata dir: %v", err)
	}
	if _, err := metadata.WriteRecord(cfg.Paths.MetadataDir, book); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
}

func incoming(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	path := filepath.Join(testsupport.BaseDir(cfg), "incoming", name)
	testsupport.WriteFile(t, path, 64)
	return path
}

func TestMatchOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	reg := filetype.NewRegistry(cfg, &recordingSplitter{}, nil)
	cases := map[string]string{
		"B00ABCDEFG.aax":     "aax",
		"B00ABCDEFG_ep5.AAX": "aax",
		"B00ABCDEFG_ep7.aax": "container",
		"my book.aax":        "container",
		"book.m4b":           "container",
		"Book.M4A":           "container",
		"B00ABCDEFG.adh":     "adh",
		"notes.txt":          "",
	}
	for name, want := range cases {
		got, ok := reg.Match(filepath.Join("/in", name))
		if got != want || ok != (want != "") {
			t.Fatalf("Match(%q) = %q, %v; want %q", name, got, ok, want)
		}
	}
	if id, ok := filetype.CatalogID("/in/B00ABCDEFG_ep6.aax"); !ok || id != "B00ABCDEFG" {
		t.Fatalf("unexpected catalog id %q", id)
	}
}

func TestHandleUnsupported(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := filetype.NewRegistry(cfg, &recordingSplitter{}, nil).Handle(context.Background(), "/in/cover.png")
	if !errors.Is(err, services.ErrUnsupportedFile) {
		t.Fatalf("expected ErrUnsupportedFile, got %v", err)
	}
}

func TestAAXShelvesWithRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	book := metadata.Book{ID: "B00ABCDEFG", Title: "The Hobbit", Author: "J. R. R. Tolkien", Series: "Middle-earth", SeriesBook: "1"}
	writeRecord(t, cfg, book)
	splitter := &recordingSplitter{}
	reg := filetype.NewRegistry(cfg, splitter, nil, filetype.WithProber(failingProber(t)))

	src := incoming(t, cfg, "B00ABCDEFG_ep5.aax")
	if _, err := reg.Handle(context.Background(), src); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	dir := filepath.Join(cfg.Paths.LibraryDir, library.BookDir(book))
	want := filepath.Join(dir, "B00ABCDEFG.aax")
	if len(splitter.paths) != 1 || splitter.paths[0] != want {
		t.Fatalf("expected split of %s, got %v", want, splitter.paths)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source should have moved: %v", err)
	}
	stored, err := metadata.ReadRecord(filepath.Join(dir, "B00ABCDEFG.json"))
	if err != nil || stored.Title != "The Hobbit" {
		t.Fatalf("unexpected shelved record %+v (%v)", stored, err)
	}
}

func TestAAXFallsBackToContainerTags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	splitter := &recordingSplitter{}
	reg := filetype.NewRegistry(cfg, splitter, nil, filetype.WithProber(tagProber("Dune", "Frank Herbert")))

	if _, err := reg.Handle(context.Background(), incoming(t, cfg, "B00DUNE000.aax")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, "Dune", "B00DUNE000.aax")
	if len(splitter.paths) != 1 || splitter.paths[0] != want {
		t.Fatalf("expected split of %s, got %v", want, splitter.paths)
	}
}

func TestAAXMismatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeRecord(t, cfg, metadata.Book{ID: "B00ABCDEFG", Title: "Other"})
	// The record lives under the requested name but describes another book.
	if err := os.Rename(filepath.Join(cfg.Paths.MetadataDir, "B00ABCDEFG.json"), filepath.Join(cfg.Paths.MetadataDir, "B00ZZZZZZZ.json")); err != nil {
		t.Fatalf("rename record: %v", err)
	}

	splitter := &recordingSplitter{}
	src := incoming(t, cfg, "B00ZZZZZZZ.aax")
	_, err := filetype.NewRegistry(cfg, splitter, nil).Handle(context.Background(), src)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected mismatch to fail closed, got %v", err)
	}
	if len(splitter.paths) != 0 {
		t.Fatal("nothing may be split after a mismatch")
	}
	if _, statErr := os.Stat(src); statErr != nil {
		t.Fatalf("source must stay in place: %v", statErr)
	}

	if _, err := filetype.NewRegistry(cfg, splitter, nil, filetype.WithAcceptMismatch(true)).Handle(context.Background(), src); err != nil {
		t.Fatalf("accepted mismatch: %v", err)
	}
	if len(splitter.paths) != 1 || filepath.Base(splitter.paths[0]) != "B00ABCDEFG.aax" {
		t.Fatalf("expected book shelved under the resolved id, got %v", splitter.paths)
	}
}

func TestDescriptorDownloadsAndSplits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	book := metadata.Book{ID: "B00ABCDEFG", Title: "Dune", Author: "Frank Herbert"}
	writeRecord(t, cfg, book)
	src := incoming(t, cfg, "dune.adh")
	if err := os.WriteFile(src, []byte("user_id=1&product_id=B00ABCDEFG&domain=www.audible.com&codec=LC_64_22050_stereo&awtype=AAX\n"), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}

	splitter := &recordingSplitter{}
	downloader := &fakeDownloader{}
	reg := filetype.NewRegistry(cfg, splitter, nil, filetype.WithDownloader(downloader))
	if _, err := reg.Handle(context.Background(), src); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	dir := filepath.Join(cfg.Paths.LibraryDir, library.BookDir(book))
	target := filepath.Join(dir, "B00ABCDEFG.aax")
	if len(downloader.targets) != 1 || downloader.targets[0] != target {
		t.Fatalf("unexpected download targets %v", downloader.targets)
	}
	if len(splitter.paths) != 1 || splitter.paths[0] != target {
		t.Fatalf("expected downloaded file to be split, got %v", splitter.paths)
	}
	if _, err := os.Stat(filepath.Join(dir, "B00ABCDEFG.adh")); err != nil {
		t.Fatalf("descriptor should be shelved: %v", err)
	}
}

func TestDescriptorRejections(t *testing.T) {
	cases := map[string]struct {
		body string
		want error
	}{
		"missing domain":     {"product_id=B00ABCDEFG&awtype=AAX&codec=x", services.ErrValidation},
		"null product":       {"product_id=null&domain=www.audible.com&awtype=AAX&codec=x", services.ErrValidation},
		"unsupported format": {"product_id=B00ABCDEFG&domain=www.audible.com&awtype=MP3&codec=mp3", services.ErrUnsupportedFile},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			src := incoming(t, cfg, "book.adh")
			if err := os.WriteFile(src, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write descriptor: %v", err)
			}
			downloader := &fakeDownloader{}
			_, err := filetype.NewRegistry(cfg, &recordingSplitter{}, nil, filetype.WithDownloader(downloader)).
				Handle(context.Background(), src)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(downloader.targets) != 0 {
				t.Fatal("rejected descriptors must not download")
			}
			if _, statErr := os.Stat(src); statErr != nil {
				t.Fatalf("rejected descriptor must stay in place: %v", statErr)
			}
		})
	}
}

func TestContainerUsesProbeTags(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	splitter := &recordingSplitter{}
	reg := filetype.NewRegistry(cfg, splitter, nil, filetype.WithProber(tagProber("", "")))

	if _, err := reg.Handle(context.Background(), incoming(t, cfg, "the_long-walk.m4b")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, library.BookDir(metadata.Book{Title: "The Long Walk"}), "the_long-walk.m4b")
	if len(splitter.paths) != 1 || splitter.paths[0] != want {
		t.Fatalf("expected split of %s, got %v", want, splitter.paths)
	}
}
