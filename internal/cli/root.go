// Package cli implements the cfgtree command-line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/cfgtree/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	format    string
	sink      string
	compress  bool
	verbose   bool
}

var flags rootFlags

// cfg is the CLI configuration loaded by PersistentPreRunE.
var cfg *viper.Viper

// NewRootCmd creates the top-level "cfgtree" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cfgtree",
		Short: "Inspect and edit a typed settings tree",
		Long: "cfgtree loads the settings tree from its sink, then prints, changes,\n" +
			"validates or interactively edits it.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return loadSettings(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.StringVar(&flags.format, cfgKeyFormat, defaultFormat, "settings encoding: json, pretty, yaml or toml")
	pf.StringVar(&flags.sink, cfgKeySink, paths.SinkFile, "settings storage: file or sqlite")
	pf.BoolVar(&flags.compress, cfgKeyCompress, false, "compress file storage with zstd")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newDumpCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newSetCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newEditCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitError tags an error with the process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// userError reports a mistake in the command line or the data it names.
func userError(format string, args ...any) error {
	return &exitError{code: exitUserError, err: fmt.Errorf(format, args...)}
}

func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	return exitSysError
}

// loadSettings reads config.yaml and binds the global flags over it.
func loadSettings(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	pf := cmd.Root().PersistentFlags()
	for _, key := range []string{cfgKeyFormat, cfgKeySink, cfgKeyCompress} {
		if err := v.BindPFlag(key, pf.Lookup(key)); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
	}
	cfg = v
	return nil
}

// newLogger returns the logger commands hand to the library.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if flags.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// resolveDataDir returns the data directory:
// --data-dir flag > config.yaml data_dir > CFGTREE_DATA_DIR env > platform default.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flags.dataDir, cfg.GetString(cfgKeyDataDir))
}
