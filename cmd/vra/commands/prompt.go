package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/fivetwenty-io/vra/pkg/vra"
	"golang.org/x/term"
)

// colorNotifier prints notifications to a terminal, colored by level.
type colorNotifier struct {
	out    io.Writer
	colors map[vra.Level]*color.Color
}

func newColorNotifier(out io.Writer, noColor bool) *colorNotifier {
	colors := map[vra.Level]*color.Color{
		vra.LevelSuccess: color.New(color.FgGreen),
		vra.LevelInfo:    color.New(color.FgCyan),
		vra.LevelWarning: color.New(color.FgYellow),
		vra.LevelDanger:  color.New(color.FgRed, color.Bold),
	}

	if noColor {
		for _, c := range colors {
			c.DisableColor()
		}
	}

	return &colorNotifier{out: out, colors: colors}
}

// Notify implements vra.Notifier.
func (n *colorNotifier) Notify(level vra.Level, message, title string) {
	c, ok := n.colors[level]
	if !ok {
		c = n.colors[vra.LevelInfo]
	}

	if title != "" {
		_, _ = c.Fprintf(n.out, "%s: %s\n", title, message)

		return
	}

	_, _ = c.Fprintln(n.out, message)
}

// terminalConfirmer asks y/N questions on the controlling terminal.
type terminalConfirmer struct {
	in         *bufio.Reader
	out        io.Writer
	assumeYes  bool
	isTerminal func() bool

	mu sync.Mutex
}

func newTerminalConfirmer(in io.Reader, out io.Writer, assumeYes bool) *terminalConfirmer {
	return &terminalConfirmer{
		in:        bufio.NewReader(in),
		out:       out,
		assumeYes: assumeYes,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
	}
}

// Confirm implements vra.Confirmer. Without a terminal every prompt is
// declined unless --yes was given.
func (c *terminalConfirmer) Confirm(ctx context.Context, prompt string) bool {
	if c.assumeYes {
		return true
	}

	if !c.isTerminal() {
		_, _ = fmt.Fprintf(c.out, "%s Declined: not a terminal (use --yes)\n", prompt)

		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil {
		return false
	}

	_, _ = fmt.Fprintf(c.out, "%s [y/N]: ", prompt)

	answer, err := c.in.ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// promptLine reads one line of input after printing label.
func promptLine(in *bufio.Reader, out io.Writer, label string) string {
	_, _ = fmt.Fprint(out, label)

	line, _ := in.ReadString('\n')

	return strings.TrimSpace(line)
}

// promptPassword reads a password without echo when stdin is a terminal.
func promptPassword(in *bufio.Reader, out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptLine(in, out, "Password: "), nil
	}

	_, _ = fmt.Fprint(out, "Password: ")

	password, err := term.ReadPassword(fd)

	_, _ = fmt.Fprintln(out)

	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	return string(password), nil
}
