package metadata

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	textlang "golang.org/x/text/language"

	"aaxsplit/internal/language"
	"aaxsplit/internal/media/ffprobe"
)

// Book is the descriptive record of one audiobook.
type Book struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	Narrator    string `json:"narrator,omitempty"`
	Publisher   string `json:"publisher,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	Series      string `json:"series,omitempty"`
	SeriesBook  string `json:"series_book,omitempty"`
	SeriesLink  string `json:"series_link,omitempty"`
	Language    string `json:"language,omitempty"`
}

// FromProbe builds a book from container tags. When the container carries no
// title, one is derived from the file name.
func FromProbe(id, path string, probe ffprobe.Result) Book {
	book := Book{
		ID:          id,
		Title:       probe.Tag("title", "album"),
		Author:      probe.Tag("artist", "album_artist", "author"),
		Narrator:    probe.Tag("narrator", "composer"),
		Publisher:   probe.Tag("publisher", "copyright"),
		ReleaseDate: probe.Tag("date"),
		Language:    language.ToISO2(language.FromTags(probe.Metadata)),
	}
	if book.Language == "" {
		if audio, ok := probe.AudioStream(); ok {
			book.Language = language.ToISO2(audio.Language)
		}
	}
	if book.Title == "" {
		book.Title = TitleFromFilename(path)
	}
	return book
}

// TitleFromFilename turns "the_long-walk.m4b" into "The Long Walk".
func TitleFromFilename(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return ""
	}
	return cases.Title(textlang.English).String(base)
}
