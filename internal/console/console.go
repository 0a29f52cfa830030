// Package console plays a session in a terminal. Modals are printed as
// numbered options; the player answers by number or by typing (part of) an
// option, with small typos forgiven.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/talgya/goobernor/internal/game"
)

// Game is the part of the orchestrator the console drives.
type Game interface {
	Choose(index int) error
	Resign() error
	Snapshot() game.ReadModel
	CurrentModal() (game.Modal, bool)
}

// Console prints game updates and reads player input.
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	lastHour int // day*24+hour of the last printed status; -1 before any
}

// New creates a console writing to out.
func New(out io.Writer) *Console {
	return &Console{out: out, lastHour: -1}
}

// PromptChoice prints a modal with numbered options.
func (c *Console) PromptChoice(m game.Modal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n== %s ==\n%s\n", m.Title, m.Body)
	for i, o := range m.Options {
		fmt.Fprintf(c.out, "  [%d] %s\n", i+1, o.Text)
	}
	fmt.Fprint(c.out, "> ")
}

// DismissModal is a no-op; the next status line replaces the modal.
func (c *Console) DismissModal() {}

// Refresh prints a status line once per game hour.
func (c *Console) Refresh(rm game.ReadModel) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stamp := rm.Day*24 + rm.Hour
	if stamp == c.lastHour {
		return
	}
	c.lastHour = stamp
	fmt.Fprintln(c.out, statusLine(rm))
}

func statusLine(rm game.ReadModel) string {
	d := rm.Display
	return fmt.Sprintf("%s | %s %s | grid %s | at risk %s | generators %s | approval %s | orange %s | purple %s",
		rm.Date, d.Temperature, rm.Conditions, d.GridStability, d.PopulationAtRisk,
		d.GeneratorCount, d.Approval, d.OrangeFunds, d.PurpleFunds)
}

const help = `commands:
  <n> or text   answer the modal on screen
  status        show the current status
  resign        the Goobernor resigns
  quit          save and exit`

// Run reads commands from in until EOF, quit, or ctx is cancelled.
func (c *Console) Run(ctx context.Context, in io.Reader, g Game) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			if quit := c.handle(line, g); quit {
				return nil
			}
		}
	}
}

// handle runs one input line and reports whether the player quit.
func (c *Console) handle(line string, g Game) bool {
	cmd := strings.ToLower(strings.TrimSpace(line))
	switch cmd {
	case "":
		return false
	case "quit", "exit", "q":
		return true
	case "help", "?":
		c.println(help)
		return false
	case "status":
		c.println(statusLine(g.Snapshot()))
		return false
	case "resign":
		if err := g.Resign(); err != nil {
			c.println("Nobody is resigning right now.")
		}
		return false
	}

	m, ok := g.CurrentModal()
	if !ok {
		c.println("Nothing to answer. Type help for commands.")
		return false
	}
	idx, ok := Match(cmd, m.Options)
	if !ok {
		c.println(fmt.Sprintf("Pick 1-%d.", len(m.Options)))
		return false
	}
	if err := g.Choose(idx); err != nil && !errors.Is(err, game.ErrNoModal) {
		c.println(err.Error())
	}
	return false
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, s)
}

// Match resolves an answer to an option index. It accepts a 1-based number,
// a unique substring of at least three letters, or the closest option prefix
// within a small edit distance.
func Match(answer string, options []game.Option) (int, bool) {
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer == "" || len(options) == 0 {
		return 0, false
	}
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(options) {
			return 0, false
		}
		return n - 1, true
	}
	if len([]rune(answer)) < 3 {
		return 0, false
	}

	texts := make([]string, len(options))
	for i, o := range options {
		texts[i] = strings.ToLower(o.Text)
	}

	found := -1
	for i, t := range texts {
		if strings.Contains(t, answer) {
			if found >= 0 {
				return 0, false
			}
			found = i
		}
	}
	if found >= 0 {
		return found, true
	}

	best, bestDist, tied := -1, 0, false
	limit := distanceLimit(len([]rune(answer)))
	for i, t := range texts {
		dist := levenshtein.ComputeDistance(answer, prefix(t, len([]rune(answer))))
		if dist > limit {
			continue
		}
		switch {
		case best < 0 || dist < bestDist:
			best, bestDist, tied = i, dist, false
		case dist == bestDist:
			tied = true
		}
	}
	if best < 0 || tied {
		return 0, false
	}
	return best, true
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
