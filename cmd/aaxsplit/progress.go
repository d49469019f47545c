package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"aaxsplit/internal/chapters"
)

// barProgress renders one progress bar per converted file. It stays silent
// when the writer is not a terminal.
type barProgress struct {
	out     io.Writer
	visible bool
	bar     *progressbar.ProgressBar
}

func newBarProgress(out io.Writer) *barProgress {
	return &barProgress{out: out, visible: isTerminalWriter(out)}
}

func (p *barProgress) Planned(source string, jobs []chapters.Job) {
	p.bar = progressbar.NewOptions(len(jobs),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(fmt.Sprintf("Splitting %s", filepath.Base(source))),
		progressbar.OptionSetVisibility(p.visible),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(p.out)
		}),
	)
}

func (p *barProgress) Finished(chapters.JobResult) {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
