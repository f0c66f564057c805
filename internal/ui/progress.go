package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressBar renders download progress in bytes with throughput.
// A total of -1 renders an indeterminate spinner until the size is known.
type ProgressBar struct {
	bar   *progressbar.ProgressBar
	total int64
}

// NewProgressBar creates a byte progress bar on stderr
func NewProgressBar(total int64, description string) *ProgressBar {
	return NewProgressBarWithWriter(total, description, os.Stderr)
}

// NewProgressBarWithWriter creates a progress bar that writes to a specific writer
func NewProgressBarWithWriter(total int64, description string, writer io.Writer) *ProgressBar {
	bar := progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetWriter(writer),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionEnableColorCodes(false),
	)

	return &ProgressBar{bar: bar, total: total}
}

// Update moves the bar to done bytes, adopting total once the server reports it
func (p *ProgressBar) Update(done, total int64) {
	if total > 0 && total != p.total {
		p.total = total
		p.bar.ChangeMax64(total)
	}
	_ = p.bar.Set64(done)
}

// Finish completes the progress bar
func (p *ProgressBar) Finish() error {
	return p.bar.Finish()
}

// Clear clears the progress bar from the terminal
func (p *ProgressBar) Clear() error {
	return p.bar.Clear()
}

// Spinner prints start and finish lines for operations with unknown duration
type Spinner struct {
	description string
	startTime   time.Time
	out         io.Writer
}

// NewSpinner creates a spinner writing to out
func NewSpinner(description string, out io.Writer) *Spinner {
	return &Spinner{
		description: description,
		startTime:   time.Now(),
		out:         out,
	}
}

// Start begins the operation
func (s *Spinner) Start() {
	s.startTime = time.Now()
	fmt.Fprintf(s.out, "%s...\n", s.description)
}

// Stop ends the operation
func (s *Spinner) Stop(success bool) {
	elapsed := time.Since(s.startTime)

	if success {
		fmt.Fprintf(s.out, "✓ %s (completed in %v)\n", s.description, elapsed.Round(time.Millisecond))
	} else {
		fmt.Fprintf(s.out, "✗ %s (failed after %v)\n", s.description, elapsed.Round(time.Millisecond))
	}
}
