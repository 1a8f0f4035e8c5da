package repl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/manash/ladmaker/internal/image"
	"github.com/manash/ladmaker/internal/session"
	"github.com/manash/ladmaker/internal/share"
)

var errNoResult = errors.New("no generated image yet; open a photo first")

type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Usage() string
	Execute(ctx context.Context, r *REPL, args []string) error
}

func allCommands() []Command {
	return []Command{
		&OpenCommand{},
		&ResetCommand{},
		&StatusCommand{},
		&SaveCommand{},
		&ShareCommand{},
		&ShowCommand{},
		&CostCommand{},
		&HelpCommand{},
		&QuitCommand{},
	}
}

func (r *REPL) registerCommands() {
	for _, cmd := range allCommands() {
		r.commands[cmd.Name()] = cmd
		for _, alias := range cmd.Aliases() {
			r.commands[alias] = cmd
		}
	}
}

// result returns the current state if it holds a generated image.
func (r *REPL) result() (session.State, error) {
	st := r.machine.State()
	if st.Kind != session.KindResult {
		return st, errNoResult
	}
	return st, nil
}

// OpenCommand selects a photo and waits for the generation to settle.
type OpenCommand struct{}

func (c *OpenCommand) Name() string        { return "open" }
func (c *OpenCommand) Aliases() []string   { return []string{"load", "o"} }
func (c *OpenCommand) Description() string { return "Transform a photo into a Lad" }
func (c *OpenCommand) Usage() string       { return "open <path>" }

func (c *OpenCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}

	img, err := image.Load(args[0])
	if err != nil {
		return err
	}
	if err := r.machine.ImageSelected(img); err != nil {
		if errors.Is(err, session.ErrBusy) {
			return fmt.Errorf("%w (type 'reset')", err)
		}
		return err
	}

	fmt.Fprintf(r.out, "Transforming %s (%s)...\n", img.Name, humanize.Bytes(uint64(img.Size)))

	st, err := r.machine.Settled(ctx)
	if err != nil {
		return err
	}
	switch st.Kind {
	case session.KindError:
		fmt.Fprintf(r.out, "Something went wrong: %s\n", st.Message)
		fmt.Fprintln(r.out, "Type 'reset' to try again.")
		return nil
	case session.KindResult:
		r.generated++
		fmt.Fprintf(r.out, "Your Lad is ready: %s\n", st.Generated)
		if err := r.displayer.Show(ctx, st.Generated); err != nil {
			fmt.Fprintf(r.err, "Warning: failed to display: %v\n", err)
		}
		fmt.Fprintln(r.out, "Use 'save', 'share <layout>' or 'reset'.")
	}
	return nil
}

// ResetCommand returns to the upload state.
type ResetCommand struct{}

func (c *ResetCommand) Name() string        { return "reset" }
func (c *ResetCommand) Aliases() []string   { return []string{"new", "r"} }
func (c *ResetCommand) Description() string { return "Start over with a new photo" }
func (c *ResetCommand) Usage() string       { return "reset" }

func (c *ResetCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	r.machine.Reset()
	fmt.Fprintln(r.out, "Ready for a new photo.")
	return nil
}

// StatusCommand prints the session state.
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Aliases() []string   { return []string{"state", "s"} }
func (c *StatusCommand) Description() string { return "Show the session state" }
func (c *StatusCommand) Usage() string       { return "status" }

func (c *StatusCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	st := r.machine.State()
	fmt.Fprintf(r.out, "State: %s\n", st.Kind)
	if st.Original != "" {
		fmt.Fprintf(r.out, "  Original:  %s\n", st.Original)
	}
	if st.Generated != "" {
		fmt.Fprintf(r.out, "  Generated: %s\n", st.Generated)
	}
	if st.Message != "" {
		fmt.Fprintf(r.out, "  Message:   %s\n", st.Message)
	}
	return nil
}

// SaveCommand downloads the generated image.
type SaveCommand struct{}

func (c *SaveCommand) Name() string        { return "save" }
func (c *SaveCommand) Aliases() []string   { return []string{"download"} }
func (c *SaveCommand) Description() string { return "Save the generated image" }
func (c *SaveCommand) Usage() string       { return "save [path]" }

func (c *SaveCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	st, err := r.result()
	if err != nil {
		return err
	}

	if len(args) > 0 {
		if err := r.saver.Save(ctx, st.Generated, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Saved: %s\n", args[0])
		return nil
	}

	path, err := r.shares.Download(ctx, st.Generated)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved: %s\n", path)
	return nil
}

// ShareCommand composes and shares a before and after screenshot.
type ShareCommand struct{}

func (c *ShareCommand) Name() string        { return "share" }
func (c *ShareCommand) Aliases() []string   { return nil }
func (c *ShareCommand) Description() string { return "Share a before and after screenshot" }
func (c *ShareCommand) Usage() string       { return "share <portrait|landscape|all>" }

func (c *ShareCommand) Execute(ctx context.Context, r *REPL, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", c.Usage())
	}
	st, err := r.result()
	if err != nil {
		return err
	}

	var outcomes []share.Outcome
	if name := strings.ToLower(args[0]); name == "all" {
		if outcomes, err = r.shares.ShareAll(ctx, st.Original, st.Generated); err != nil {
			return err
		}
	} else {
		l, err := share.ParseLayout(name)
		if err != nil {
			return err
		}
		out, err := r.shares.Share(ctx, l, st.Original, st.Generated)
		if err != nil {
			return err
		}
		outcomes = append(outcomes, out)
	}

	for _, out := range outcomes {
		if out.Path != "" {
			fmt.Fprintf(r.out, "Screenshot saved: %s\n", out.Path)
		}
	}
	fmt.Fprintf(r.out, "Post it with %s and %s\n", share.Hashtag, share.Website)
	return nil
}

// ShowCommand redraws the generated image in the terminal.
type ShowCommand struct{}

func (c *ShowCommand) Name() string        { return "show" }
func (c *ShowCommand) Aliases() []string   { return []string{"view"} }
func (c *ShowCommand) Description() string { return "Display the generated image" }
func (c *ShowCommand) Usage() string       { return "show" }

func (c *ShowCommand) Execute(ctx context.Context, r *REPL, _ []string) error {
	st, err := r.result()
	if err != nil {
		return err
	}
	if !r.displayer.Enabled() {
		fmt.Fprintf(r.out, "This terminal cannot show images. Open %s instead.\n", st.Generated)
		return nil
	}
	return r.displayer.Show(ctx, st.Generated)
}

// CostCommand reports the estimated spend of this run.
type CostCommand struct{}

func (c *CostCommand) Name() string        { return "cost" }
func (c *CostCommand) Aliases() []string   { return []string{"$"} }
func (c *CostCommand) Description() string { return "Show estimated cost" }
func (c *CostCommand) Usage() string       { return "cost" }

func (c *CostCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	if !r.estimate.Known {
		fmt.Fprintln(r.out, "No price known for the current request settings.")
		return nil
	}
	fmt.Fprintf(r.out, "Per image: $%.3f\n", r.estimate.PerImage)
	fmt.Fprintf(r.out, "This run:  $%.3f (%d image(s))\n", r.estimate.PerImage*float64(r.generated), r.generated)
	return nil
}

// HelpCommand shows available commands
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Aliases() []string   { return []string{"?"} }
func (c *HelpCommand) Description() string { return "Show available commands" }
func (c *HelpCommand) Usage() string       { return "help" }

func (c *HelpCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Available commands:")
	fmt.Fprintln(r.out)

	for _, cmd := range allCommands() {
		aliases := ""
		if len(cmd.Aliases()) > 0 {
			aliases = fmt.Sprintf(" (%s)", strings.Join(cmd.Aliases(), ", "))
		}
		fmt.Fprintf(r.out, "  %-20s%s\n", cmd.Name()+aliases, cmd.Description())
		fmt.Fprintf(r.out, "                      Usage: %s\n", cmd.Usage())
	}

	return nil
}

// QuitCommand exits the REPL
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Aliases() []string   { return []string{"exit", "q"} }
func (c *QuitCommand) Description() string { return "Exit interactive mode" }
func (c *QuitCommand) Usage() string       { return "quit" }

func (c *QuitCommand) Execute(_ context.Context, r *REPL, _ []string) error {
	fmt.Fprintln(r.out, "Goodbye!")
	r.Stop()
	return nil
}
