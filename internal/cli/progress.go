package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Progress reports record-loading progress on a terminal bar.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a byte-based progress bar. A negative total renders a
// spinner instead of a bar.
func NewProgress(w io.Writer, total int64, description string) *Progress {
	if w == nil {
		w = os.Stderr
	}
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return &Progress{bar: bar}
}

// Add advances the bar by n bytes.
func (p *Progress) Add(n int64) {
	if err := p.bar.Add64(n); err != nil {
		slog.Debug("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar.
func (p *Progress) Finish() {
	if err := p.bar.Finish(); err != nil {
		slog.Debug("Failed to finish progress bar", "error", err)
	}
}
