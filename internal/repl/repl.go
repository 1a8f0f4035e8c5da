// Package repl is a line-oriented front end for one Lad Maker session.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manash/ladmaker/internal/cost"
	"github.com/manash/ladmaker/internal/display"
	"github.com/manash/ladmaker/internal/image"
	"github.com/manash/ladmaker/internal/session"
	"github.com/manash/ladmaker/internal/share"
)

type REPL struct {
	in        io.Reader
	out       io.Writer
	err       io.Writer
	machine   *session.Machine
	shares    *share.Service
	displayer *display.Displayer
	saver     *image.Saver
	estimate  cost.Estimate
	commands  map[string]Command
	running   bool
	generated int
}

type Config struct {
	In        io.Reader
	Out       io.Writer
	Err       io.Writer
	Machine   *session.Machine
	Shares    *share.Service
	Displayer *display.Displayer
	Saver     *image.Saver
	// Estimate is the price of one generation, reported by the cost command.
	Estimate cost.Estimate
}

func New(cfg *Config) *REPL {
	r := &REPL{
		in:        cfg.In,
		out:       cfg.Out,
		err:       cfg.Err,
		machine:   cfg.Machine,
		shares:    cfg.Shares,
		displayer: cfg.Displayer,
		saver:     cfg.Saver,
		estimate:  cfg.Estimate,
		commands:  make(map[string]Command),
	}
	r.registerCommands()
	return r
}

// Run reads commands from In until quit, end of input or ctx is done. Each
// command runs against the one session Machine; open blocks on
// Machine.Settled, so the prompt always shows a settled state unless a
// generation was interrupted.
func (r *REPL) Run(ctx context.Context) error {
	r.running = true
	r.printWelcome()

	lines := bufio.NewScanner(r.in)
	for r.running && ctx.Err() == nil {
		r.printPrompt()
		if !lines.Scan() {
			fmt.Fprintln(r.out)
			return lines.Err()
		}
		r.dispatch(ctx, splitArgs(lines.Text()))
	}
	return ctx.Err()
}

// dispatch runs one command line and reports its error on Err.
func (r *REPL) dispatch(ctx context.Context, args []string) {
	if len(args) == 0 {
		return
	}
	name := strings.ToLower(args[0])
	cmd, ok := r.commands[name]
	if !ok {
		fmt.Fprintf(r.err, "Error: unknown command: %s (type 'help' for available commands)\n", name)
		return
	}
	if err := cmd.Execute(ctx, r, args[1:]); err != nil {
		fmt.Fprintf(r.err, "Error: %v\n", err)
	}
}

// Stop ends Run after the current command.
func (r *REPL) Stop() {
	r.running = false
}

func (r *REPL) printWelcome() {
	fmt.Fprintln(r.out, "Lad Maker interactive mode")
	fmt.Fprintln(r.out, "Open a photo with 'open <path>'. Type 'help' for commands, 'quit' to exit.")
	fmt.Fprintln(r.out)
}

// printPrompt shows the session state, e.g. "ladmaker (result)> ".
func (r *REPL) printPrompt() {
	fmt.Fprintf(r.out, "ladmaker (%s)> ", r.machine.State().Kind)
}

// splitArgs splits a line on spaces and tabs. Single or double quotes group
// words, so paths with spaces can be passed; the other quote kind is kept
// literally inside a quoted word.
func splitArgs(line string) []string {
	var (
		args  []string
		word  strings.Builder
		quote rune
		open  bool
	)
	flush := func() {
		if open {
			args = append(args, word.String())
			word.Reset()
			open = false
		}
	}

	for _, ch := range line {
		switch {
		case quote != 0 && ch == quote:
			quote = 0
		case quote != 0:
			word.WriteRune(ch)
		case ch == '"' || ch == '\'':
			quote, open = ch, true
		case ch == ' ' || ch == '\t':
			flush()
		default:
			word.WriteRune(ch)
			open = true
		}
	}
	flush()
	return args
}
