package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize settings storage",
		Long: "Create the configuration and data directories, then store the current\n" +
			"settings. Stored values are kept; missing keys get their defaults.",
		Args: cobra.NoArgs,
		RunE: runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, true)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.save(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "cfgtree initialized successfully")
	return nil
}
