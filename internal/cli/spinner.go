package cli

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// elapsedAfter is how long a stage runs before the spinner starts
// showing the elapsed time next to the message. Small dumps index in
// well under this; multi-gigabyte dumps run for minutes.
const elapsedAfter = 2 * time.Second

// Spinner animates a single status line on stderr while a dump is
// loaded and indexed. It writes to stderr so table, JSON, and CSV
// output on stdout stays clean when piped.
type Spinner struct {
	message string
	parent  context.Context
	started time.Time
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// newSpinner creates a spinner with the given status message.
func newSpinner(message string) *Spinner {
	return newSpinnerWithContext(context.Background(), message)
}

// newSpinnerWithContext creates a spinner that also stops when ctx is
// cancelled, so an interrupted load clears its status line.
func newSpinnerWithContext(ctx context.Context, message string) *Spinner {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Spinner{
		message: message,
		parent:  ctx,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the animation. Call Stop (or a StopWith variant) before
// printing anything else to stderr.
func (s *Spinner) Start() {
	s.started = time.Now()
	go func() {
		defer close(s.stopped)
		defer clearStatusLine()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for frame := 0; ; frame++ {
			select {
			case <-s.parent.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				s.render(frame)
			}
		}
	}()
}

func (s *Spinner) render(frame int) {
	line := s.message
	if elapsed := time.Since(s.started); elapsed >= elapsedAfter {
		line = fmt.Sprintf("%s (%s)", s.message, elapsed.Round(time.Second))
	}
	fmt.Fprintf(os.Stderr, "\r\x1b[2K%s %s",
		styleIconSpinner.Render(spinnerFrames[frame%len(spinnerFrames)]),
		StyleDim.Render(line))
}

func clearStatusLine() {
	fmt.Fprint(os.Stderr, "\r\x1b[2K")
}

// Stop halts the animation and clears the status line. Safe to call
// more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.stopped
}

// StopWithSuccess stops the spinner and prints a success line, e.g.
// "Indexed 48213 objects".
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	fmt.Fprintln(os.Stderr, styleIconSuccess.Render(iconSuccess)+" "+message)
}

// StopWithError stops the spinner and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	fmt.Fprintln(os.Stderr, styleIconError.Render(iconError)+" "+message)
}

// Cancelled reports whether the surrounding command was interrupted,
// as opposed to the spinner being stopped by a completed stage.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
