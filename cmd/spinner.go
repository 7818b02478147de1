package cmd

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"
)

// detailWidth is the widest detail line, in terminal cells.
const detailWidth = 72

// spinner renders a rotating indicator with a label and a detail line
// that updates in-place while provisioning runs. On a non-terminal it
// prints each label once instead.
type spinner struct {
	mu      sync.Mutex
	out     io.Writer
	tty     bool
	label   string
	detail  string
	done    chan struct{}
	started bool
	stopped sync.Once
}

func newSpinner(f *os.File) *spinner {
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return &spinner{out: f, tty: tty, done: make(chan struct{})}
}

func (s *spinner) setLabel(l string) {
	s.mu.Lock()
	s.label = l
	s.mu.Unlock()
	if !s.tty {
		fmt.Fprintf(s.out, "  %s\n", l)
	}
}

func (s *spinner) setDetail(d string) {
	s.mu.Lock()
	s.detail = ansi.Truncate(d, detailWidth, "...")
	s.mu.Unlock()
}

// start launches the render loop in a goroutine.
func (s *spinner) start() {
	if !s.tty {
		return
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	go func() {
		i := 0
		for {
			select {
			case <-s.done:
				return
			case <-time.After(80 * time.Millisecond):
				s.mu.Lock()
				label := s.label
				detail := s.detail
				s.mu.Unlock()

				frame := frames[i%len(frames)]
				i++

				// \r returns to column 0; \033[K clears to end of line.
				fmt.Fprintf(s.out, "\r\033[K  %s %s\n\r\033[K    %s", frame, label, dim.Render(detail))
				// Move cursor up one line so next tick overwrites both lines.
				fmt.Fprint(s.out, "\033[1A")
			}
		}
	}()
}

// stop halts the spinner and prints a final status line. Only the first
// call has an effect.
func (s *spinner) stop(err error) {
	s.stopped.Do(func() {
		close(s.done)
		s.mu.Lock()
		started, label := s.started, s.label
		s.mu.Unlock()
		if !started {
			return
		}
		time.Sleep(90 * time.Millisecond) // let last frame finish

		// Clear both lines used by the spinner.
		fmt.Fprint(s.out, "\r\033[K\033[1B\r\033[K\033[1A")

		if err == nil {
			ok := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
			fmt.Fprintf(s.out, "  %s %s\n", ok.Render("✓"), label)
		} else {
			bad := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
			fmt.Fprintf(s.out, "  %s %s\n", bad.Render("✗"), label)
		}
	})
}

// afterSpinner stops the spinner before the first write so dumped output
// and child process lines do not collide with the animation.
type afterSpinner struct {
	sp *spinner
	w  io.Writer
}

func (a afterSpinner) Write(p []byte) (int, error) {
	a.sp.stop(nil)
	return a.w.Write(p)
}
