package ui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"sirc/internal/driver"
)

// LowerAllWithProgress runs driver.LowerAll while rendering the progress
// view to out. The driver's own Progress sink is replaced.
func LowerAllWithProgress(ctx context.Context, title string, units []string, opts driver.Options, out io.Writer) (*driver.BatchResult, error) {
	events := make(chan driver.Event, 256)
	type outcome struct {
		res *driver.BatchResult
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		o := opts
		o.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.LowerAll(ctx, units, o)
		done <- outcome{res: res, err: err}
		close(events)
	}()

	program := tea.NewProgram(NewProgressModel(title, units, events), tea.WithOutput(out), tea.WithContext(ctx))
	_, uiErr := program.Run()
	// the view may quit early; keep the workers unblocked
	go func() {
		for range events {
		}
	}()
	res := <-done
	if uiErr != nil && res.err == nil {
		return res.res, uiErr
	}
	return res.res, res.err
}
