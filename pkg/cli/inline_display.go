package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
)

// InlineDisplayManager shows fetch progress on a single spinner line
type InlineDisplayManager struct {
	out     io.Writer
	spinner *spinner.Spinner
	started time.Time
}

func NewInlineDisplayManager(out io.Writer) interfaces.Display {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Prefix = "⏳ "

	return &InlineDisplayManager{
		out:     out,
		spinner: s,
	}
}

func (d *InlineDisplayManager) ShowFetching(dagID string, window model.TimeWindow) {
	d.started = time.Now()
	d.spinner.Suffix = fmt.Sprintf(" Fetching task instances of %s (%s)", dagID, window.String())
	if !d.spinner.Active() {
		d.spinner.Start()
	}
}

func (d *InlineDisplayManager) ShowFetched(records, dropped int) {
	d.Stop()

	elapsed := time.Since(d.started).Round(time.Millisecond)
	msg := fmt.Sprintf("✅ Fetched %d task instances in %s", records, elapsed)
	if dropped > 0 {
		msg += color.New(color.FgYellow).Sprintf(" (%d dropped)", dropped)
	}
	fmt.Fprintln(d.out, msg)
}

// Stop spinner and clean up display
func (d *InlineDisplayManager) Stop() {
	if d.spinner.Active() {
		d.spinner.Stop()
		fmt.Fprint(d.out, "\r\033[K") // Clear current line
	}
}

type noopDisplay struct{}

func (noopDisplay) ShowFetching(string, model.TimeWindow) {}
func (noopDisplay) ShowFetched(int, int)                   {}
func (noopDisplay) Stop()                                  {}
