package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/manash/ladmaker/internal/keys"
	"github.com/manash/ladmaker/internal/provider"
	"github.com/manash/ladmaker/pkg/models"
)

var providerName = string(models.ProviderOpenAI)

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the stored API key",
	}
	cmd.AddCommand(newKeysSetCmd(app), newKeysShowCmd(app), newKeysDeleteCmd(app), newKeysPathCmd(app))
	return cmd
}

func newKeysSetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set [key]",
		Short: "Store an API key (prompts when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Keys()
			if err != nil {
				return err
			}

			var key string
			if len(args) == 1 {
				key = args[0]
			} else if key, err = promptKey(cmd.InOrStdin(), app.Out); err != nil {
				return err
			}

			if err := provider.CheckCredential(key); err != nil {
				return err
			}
			if err := store.Set(providerName, key); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Stored %s key %s in %s\n", providerName, keys.Mask(strings.TrimSpace(key)), store.Path())
			return nil
		},
	}
}

func newKeysShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show which key would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Keys()
			if err != nil {
				return err
			}
			r := &keys.Resolver{
				Store:    store,
				Provider: providerName,
				EnvVar:   "OPENAI_API_KEY",
				Getenv:   app.Getenv,
			}
			key, source := r.Resolve()
			if key == "" {
				fmt.Fprintf(app.Out, "No key configured. Run 'ladmaker keys set' or set %s.\n", r.EnvVar)
				return nil
			}
			status := "ok"
			if err := provider.CheckCredential(key); err != nil {
				status = err.Error()
			}
			fmt.Fprintf(app.Out, "%s: %s (%s, %s)\n", providerName, keys.Mask(key), source, status)
			return nil
		},
	}
}

func newKeysDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Remove the stored key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Keys()
			if err != nil {
				return err
			}
			if err := store.Delete(providerName); err != nil {
				if errors.Is(err, keys.ErrNoKey) {
					fmt.Fprintln(app.Out, "No stored key.")
					return nil
				}
				return err
			}
			fmt.Fprintf(app.Out, "Deleted %s key\n", providerName)
			return nil
		},
	}
}

func newKeysPathCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where keys are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.Keys()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, store.Path())
			return nil
		},
	}
}

// promptKey reads a key without echo on a terminal, or a line otherwise.
func promptKey(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter API key: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read key: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}
