package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cfgtree/pkg/codec"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting as JSON",
		Long: `Get prints the stored value of a single key.

Example:
  cfgtree get ui.thickness
  cfgtree get ui.color.discrim`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, true)
			if err != nil {
				return err
			}
			defer s.Close()

			e, err := s.lookup(args[0])
			if err != nil {
				return err
			}
			out, err := codec.EncodeValue(e.Value)
			if err != nil {
				return fmt.Errorf("encode %s: %w", e.Key, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
