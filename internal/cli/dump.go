package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/cfgtree/pkg/codec"
)

func newDumpCmd() *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the stored settings",
		Long: `Dump prints every setting in the configured format.

--match limits the output to keys whose path matches a glob, with path
segments separated by "/".

Example:
  cfgtree dump
  cfgtree dump --format yaml --match 'ui/**'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []codec.Option
			if match != "" {
				opts = append(opts, codec.WithMatch(match))
			}
			s, err := openSession(cmd, true, opts...)
			if err != nil {
				return err
			}
			defer s.Close()

			data, err := s.codec.Serialize(s.schema.App.Store())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			out.Write(data)
			if !bytes.HasSuffix(data, []byte("\n")) {
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "only keys whose path matches this glob")
	return cmd
}
