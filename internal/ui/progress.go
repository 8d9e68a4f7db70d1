package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Spinner represents an animated spinner for long operations
type Spinner struct {
	out       io.Writer
	frames    []string
	current   int
	message   string
	startTime time.Time
	stop      chan struct{}
	done      chan struct{}
	started   bool
	stopped   bool
	mu        sync.Mutex
}

// NewSpinner creates a new spinner writing to the Show helpers' output.
func NewSpinner(message string) *Spinner {
	return &Spinner{
		out:     stdout,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start begins the spinner animation. Animation frames are only drawn on a
// color capable terminal.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.startTime = time.Now()
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.mu.Lock()
				if supportsColor {
					fmt.Fprintf(s.out, "\r%s %s %s",
						ColorProgress(s.frames[s.current]),
						s.message,
						strings.Repeat(" ", 20),
					)
				}
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Unlock()
			}
		}
	}()
}

// Stop stops the spinner and prints the final status with the elapsed time.
func (s *Spinner) Stop(success bool, message string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	elapsed := time.Since(s.startTime)
	s.mu.Unlock()

	close(s.stop)
	if started {
		<-s.done
	}

	if supportsColor {
		fmt.Fprint(s.out, "\r\033[K")
	}
	if started {
		message = fmt.Sprintf("%s %s", message, ColorDim("("+formatDuration(elapsed)+")"))
	}
	if success {
		fmt.Fprintf(s.out, "%s %s\n", ColorSuccess("✓"), message)
	} else {
		fmt.Fprintf(s.out, "%s %s\n", ColorError("✗"), message)
	}
}

// UpdateMessage updates the spinner message
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh%dm", hours, minutes)
}
