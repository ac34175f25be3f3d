package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/MimeLyc/srt-line-translator/pkg/log"
)

// progressReporter draws a progress bar on a terminal and falls back to
// periodic log lines otherwise.
type progressReporter struct {
	out   io.Writer
	name  string
	tty   bool
	bar   *progressbar.ProgressBar
	total int
}

func newProgressReporter(out io.Writer, name string) *progressReporter {
	return &progressReporter{out: out, name: name, tty: isTerminal(out)}
}

func (p *progressReporter) Update(done, total int) {
	if !p.tty {
		if total > 0 && (done == total || done%50 == 0) {
			log.Info("Progress %s: %d/%d entries", p.name, done, total)
		}
		return
	}

	if p.bar == nil || p.total != total {
		p.total = total
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(fmt.Sprintf("[cyan]%s[reset]", p.name)),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}
	_ = p.bar.Set(done)
}

func (p *progressReporter) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(p.out)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
