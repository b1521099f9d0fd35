// Package paths resolves where cfgtree keeps its CLI configuration and the
// persisted settings.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "cfgtree"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "CFGTREE_CONFIG_DIR"
	EnvDataDir   = "CFGTREE_DATA_DIR"
)

// ConfigFileName is the viper config file inside the config directory.
const ConfigFileName = "config.yaml"

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/cfgtree (fallback ~/.config/cfgtree)
// macOS:   ~/Library/Application Support/cfgtree
// Windows: %APPDATA%/cfgtree
func DefaultConfigDir() (string, error) {
	return platform("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific data directory.
//
// Linux:   $XDG_DATA_HOME/cfgtree (fallback ~/.local/share/cfgtree)
// macOS and Windows: same as the config directory.
func DefaultDataDir() (string, error) {
	return platform("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func platform(xdgVar, homeSub string) (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv(xdgVar); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, homeSub, appName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > CFGTREE_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > value from config.yaml > CFGTREE_DATA_DIR > DefaultDataDir().
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultDataDir()
}

// Sink names accepted by StoreFile.
const (
	SinkFile   = "file"
	SinkSQLite = "sqlite"
)

// StoreFile returns the file the settings are persisted to. File sinks use
// the format name as extension and append ".zst" when compressed.
func StoreFile(dataDir, sink, format string, compress bool) (string, error) {
	switch sink {
	case SinkSQLite:
		return filepath.Join(dataDir, "settings.db"), nil
	case SinkFile:
		ext := ".json"
		switch format {
		case "yaml", "toml":
			ext = "." + format
		}
		name := "settings" + ext
		if compress {
			name += ".zst"
		}
		return filepath.Join(dataDir, name), nil
	}
	return "", fmt.Errorf("unknown sink %q", sink)
}
