package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)

	errorBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("#FF6B6B"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E5C07B"))
)

// Console asks the operator on a terminal.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console approver reading answers from in.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Approve shows the entry and waits for Y/N. Anything other than y or yes
// declines. Returns an error if input ends or ctx is cancelled.
func (c *Console) Approve(ctx context.Context, p Proposal) (bool, error) {
	c.render(p, boxStyle)
	fmt.Fprint(c.out, "Add this entry? [y/N] ")

	type answer struct {
		line string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		ch <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && strings.TrimSpace(a.line) == "" {
			fmt.Fprintln(c.out)
			return false, fmt.Errorf("reading answer: %w", a.err)
		}
		switch strings.ToLower(strings.TrimSpace(a.line)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

// Present shows a discarded proposal and why.
func (c *Console) Present(p Proposal) {
	c.render(p, errorBoxStyle)
	fmt.Fprintf(c.out, "Discarded: %v\n\n", p.Err)
}

func (c *Console) render(p Proposal, style lipgloss.Style) {
	header := headerStyle.Render(fmt.Sprintf("%s  (from %s)", p.Key, p.Source))
	body := strings.TrimRight(p.Text, "\n")
	fmt.Fprintln(c.out, style.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body)))
	for _, w := range p.Warnings {
		fmt.Fprintln(c.out, warnStyle.Render("! "+w))
	}
}
