// Package library lays converted books out on disk.
package library

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"aaxsplit/internal/metadata"
)

// UnknownDir names the book directory when no usable metadata exists.
const UnknownDir = "Unknown"

var reColonSeparator = regexp.MustCompile(` *: +`)

// SafeFilename reduces name to characters that are valid in file names on
// every common filesystem. "Title: Subtitle" becomes "Title - Subtitle".
func SafeFilename(name string) string {
	name = norm.NFC.String(name)
	name = reColonSeparator.ReplaceAllString(name, " - ")

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || strings.ContainsRune(" ._-", r) {
			b.WriteRune(r)
		}
	}
	out := strings.TrimRightFunc(b.String(), unicode.IsSpace)
	return strings.TrimRight(out, ".")
}

// BookDir returns the library-relative directory for book: an optional series
// directory containing "<series book> - <title>". A leading "The " on the
// first component moves to the end before the component is made safe, so
// "The Hobbit" files under "Hobbit The".
func BookDir(book metadata.Book) string {
	var parts []string
	if series := strings.TrimSpace(book.Series); series != "" {
		parts = append(parts, series)
	}

	var title string
	if seriesBook := strings.TrimSpace(book.SeriesBook); seriesBook != "" {
		title = seriesBook
	}
	if t := strings.TrimSpace(book.Title); t != "" {
		if title != "" {
			title += " - "
		}
		title += t
	}
	if title != "" {
		parts = append(parts, title)
	}

	if len(parts) > 0 && strings.HasPrefix(parts[0], "The ") {
		parts[0] = parts[0][len("The "):] + ", The"
	}

	safe := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := SafeFilename(p); s != "" {
			safe = append(safe, s)
		}
	}
	if len(safe) == 0 {
		return UnknownDir
	}
	return filepath.Join(safe...)
}
