package display

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"kasafinder/internal/page"
)

// Console is an interactive prompt that stands in for the touch screen.
type Console struct {
	presenter *Presenter
	rl        *readline.Instance
	out       io.Writer
}

// NewConsole opens a readline prompt driving p.
func NewConsole(p *Presenter) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "kasa> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("page",
				readline.PcItem("broadcast"),
				readline.PcItem("direct"),
				readline.PcItem("combined"),
			),
			readline.PcItem("scroll"),
			readline.PcItem("drag"),
			readline.PcItem("top"),
			readline.PcItem("bottom"),
			readline.PcItem("show"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{presenter: p, rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that does not disturb the prompt.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run reads commands until quit, EOF or ctx ends.
func (c *Console) Run(ctx context.Context) error {
	defer c.rl.Close()

	c.printHelp()
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
		if c.Execute(line) {
			return nil
		}
	}
}

// Execute runs one command line and reports whether the console should
// exit.
func (c *Console) Execute(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()
	case "page", "p":
		c.cmdPage(args)
	case "scroll", "s":
		c.cmdScroll(args)
	case "drag":
		c.cmdDrag(args)
	case "top":
		c.presenter.ScrollTo(0)
	case "bottom":
		c.presenter.ScrollBy(1 << 30)
	case "show":
		c.presenter.Redraw()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (c *Console) cmdPage(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: page <broadcast|direct|combined>")
		return
	}
	kind, err := page.ParseKind(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return
	}
	if !c.presenter.Select(kind) {
		fmt.Fprintf(c.out, "Page %s has no results yet\n", kind)
	}
}

func (c *Console) cmdScroll(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: scroll <rows>")
		return
	}
	delta, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid row count: %s\n", args[0])
		return
	}
	c.presenter.ScrollBy(delta)
}

// cmdDrag replays a pointer gesture: drag <fromY> <toY>.
func (c *Console) cmdDrag(args []string) {
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: drag <fromY> <toY>")
		return
	}
	from, err1 := strconv.Atoi(args[0])
	to, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		fmt.Fprintln(c.out, "Pixel positions must be integers")
		return
	}
	c.presenter.PointerDown(from)
	c.presenter.PointerUp(to)
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Commands:
  page <name>        - Show the broadcast, direct or combined page
  scroll <rows>      - Scroll by rows (negative scrolls back)
  drag <fromY> <toY> - Replay a touch drag in pixels
  top | bottom       - Jump to the first or last rows
  show               - Redraw the current page
  quit               - Exit`)
}
