package main

import (
	"context"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hiveworks/hiveflow/internal/bus"
	"github.com/hiveworks/hiveflow/internal/tui"
)

// runWithTUI runs the live monitor over the hive's event stream.
func runWithTUI(ctx context.Context, swarmID string, events <-chan bus.Event, outstanding map[string]bool) (retErr error) {
	// Suppress log output while the TUI is active (it corrupts the display)
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	// Recover from panics
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runWithTUI: %v", r)
		}
	}()

	program := tea.NewProgram(tui.New(swarmID), tea.WithAltScreen())

	// Forward events until every task resolves.
	runDone := make(chan error, 1)
	go func() {
		runDone <- forwardEvents(ctx, program, events, outstanding)
	}()

	tuiDone := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				tuiDone <- fmt.Errorf("PANIC in TUI: %v", r)
			}
		}()
		_, err := program.Run()
		tuiDone <- err
	}()

	select {
	case err := <-runDone:
		// Run finished: show the banner and wait for the operator to
		// quit so they can read the final state.
		if err != nil {
			program.Send(tui.RunDoneMsg{Success: false, Message: err.Error()})
		} else {
			program.Send(tui.RunDoneMsg{Success: true, Message: "all tasks resolved"})
		}
		<-tuiDone
		return err

	case err := <-tuiDone:
		// Operator quit before the run finished.
		return err
	}
}

// forwardEvents pumps bus events into the TUI until every submitted
// task reaches a terminal state.
func forwardEvents(ctx context.Context, program *tea.Program, events <-chan bus.Event, outstanding map[string]bool) error {
	failed := 0
	for len(outstanding) > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("stopped with %d task(s) unresolved", len(outstanding))
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("event bus closed with %d task(s) unresolved", len(outstanding))
			}
			program.Send(tui.BusEventMsg{Event: ev})
			if terminalEvent(ev) && outstanding[ev.TaskID] {
				delete(outstanding, ev.TaskID)
				if ev.Type == bus.TopicTaskFailed {
					failed++
				}
			}
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d task(s) failed", failed)
	}
	return nil
}
