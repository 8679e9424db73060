package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"kasafinder/internal/page"
)

const clearScreen = "\033[H\033[2J"

var namedColors = map[page.Color]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Terminal draws frames as coloured text lines. On a TTY each frame
// replaces the previous one; otherwise frames are appended plainly.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	geometry Geometry
	tty      bool
	palette  map[page.Color]*color.Color
}

// NewTerminal returns a renderer writing to w. Geometry is in character
// cells, one row per line.
func NewTerminal(w io.Writer, g Geometry) *Terminal {
	return &Terminal{
		out:      w,
		geometry: g,
		tty:      IsTerminal(w),
		palette:  make(map[page.Color]*color.Color),
	}
}

// SetOutput redirects later frames to w, such as a console writer that
// keeps the prompt intact. Colour and screen clearing stay as detected for
// the original writer.
func (t *Terminal) SetOutput(w io.Writer) {
	t.mu.Lock()
	t.out = w
	t.mu.Unlock()
}

// Geometry returns the surface size.
func (t *Terminal) Geometry() Geometry {
	return t.geometry
}

// Render draws f.
func (t *Terminal) Render(f Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	if t.tty {
		b.WriteString(clearScreen)
	}
	b.WriteString(t.paint("white", f.Label))
	b.WriteByte('\n')
	for _, row := range f.Cells {
		for i, c := range row {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t.paint(c.Color, c.Text))
		}
		b.WriteByte('\n')
	}
	b.WriteString(StatusLine(f.Status))
	b.WriteByte('\n')

	_, err := io.WriteString(t.out, b.String())
	return err
}

func (t *Terminal) paint(name page.Color, text string) string {
	c, ok := t.palette[name]
	if !ok {
		attr, known := namedColors[page.Color(strings.ToLower(string(name)))]
		if !known {
			c = nil
		} else {
			c = color.New(attr)
			if t.tty {
				c.EnableColor()
			} else {
				c.DisableColor()
			}
		}
		t.palette[name] = c
	}
	if c == nil {
		return text
	}
	return c.Sprint(text)
}

// StatusLine formats s for a single text line.
func StatusLine(s Status) string {
	first, last := 0, 0
	if s.Total > 0 {
		first = s.Offset + 1
		last = s.Offset + s.Visible
		if last > s.Total {
			last = s.Total
		}
	}
	line := fmt.Sprintf("%s | %d devices | rows %d-%d of %d", s.Phase, s.Devices, first, last, s.Total)
	if s.Dropped > 0 {
		line += fmt.Sprintf(" | %d not shown", s.Dropped)
	}
	return line
}
