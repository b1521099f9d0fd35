package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cfgtree/pkg/editor/term"
)

// openScreen returns an initialised terminal screen. Tests replace it.
var openScreen = func() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	return screen, nil
}

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the settings in the terminal",
		Long: `Edit opens an interactive editor. Every confirmed change is saved.

Keys:
  Up/Down, Tab     move focus
  Enter            collapse a group, confirm text
  PgUp/PgDn        step numbers
  Left/Right       pick a variant
  Esc, Ctrl+C      quit`,
		Args: cobra.NoArgs,
		RunE: runEdit,
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	screen, err := openScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	defer screen.Fini()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	err = term.Run(ctx, screen, s.editor, s.schema.App.Store(), s.save)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
