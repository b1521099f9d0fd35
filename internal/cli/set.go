package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cfgtree/pkg/codec"
	"github.com/mesh-intelligence/cfgtree/pkg/config"
)

func newSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long: `Set parses value as JSON, falling back to a plain string, stores it
under key and saves the settings. Quote strings that look like numbers.

Example:
  cfgtree set ui.thickness 5
  cfgtree set ui.color.discrim Named
  cfgtree set window.title '"42"'`,
		Args: cobra.ExactArgs(2),
		RunE: runSet,
	}
}

func runSet(cmd *cobra.Command, args []string) error {
	key, text := args[0], args[1]

	s, err := openSession(cmd, true, codec.WithGenerationBump())
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.lookup(key); err != nil {
		return err
	}
	err = s.codec.Apply(s.schema.App.Store(), []codec.Entry{{Key: key, Value: codec.ParseValue(text)}})
	if errors.Is(err, codec.ErrDecode) {
		return userError("%s", err)
	}
	if err != nil {
		return err
	}
	if err := config.Validate(s.schema.App); err != nil {
		return userError("%s", err)
	}
	if err := s.save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, text)
	return nil
}
