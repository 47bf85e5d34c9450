package pipeline

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/foundryrun/harvest/pkg/core"
)

// CLIFlags are the flag.FlagSet-parsed command-line arguments accepted
// by cmd/harvest, mirroring translate/src/cli.rs's Args but using
// manual flag parsing the way cmd/iter/main.go (teacher) does, rather
// than a clap-equivalent Go library — the teacher never reaches for a
// CLI framework, so neither do we.
type CLIFlags struct {
	Input          string
	Output         string
	DiagnosticsDir string
	Force          bool
	ConfigPath     string
	Overrides      overrideList // repeatable -config NAME=VALUE
	PrintConfig    bool
}

// overrideList implements flag.Value so -config can be repeated.
type overrideList []string

func (o *overrideList) String() string { return strings.Join(*o, ",") }
func (o *overrideList) Set(v string) error {
	*o = append(*o, v)
	return nil
}

// ParseFlags parses args (typically os.Args[1:]) into CLIFlags.
func ParseFlags(fs *flag.FlagSet, args []string) (*CLIFlags, error) {
	f := &CLIFlags{}
	fs.StringVar(&f.Input, "input", "", "path to the source tree to transform")
	fs.StringVar(&f.Output, "output", "", "path to write final artifacts to")
	fs.StringVar(&f.DiagnosticsDir, "diagnostics-dir", "", "diagnostics root directory (default: a temp dir)")
	fs.BoolVar(&f.Force, "force", false, "wipe non-empty output/diagnostics directories instead of failing")
	fs.StringVar(&f.ConfigPath, "config-file", "config.toml", "path to a TOML config file")
	fs.Var(&f.Overrides, "config", "override a config key: NAME=VALUE (repeatable)")
	fs.BoolVar(&f.PrintConfig, "print-config-path", false, "print the resolved user config path and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 && f.Input == "" {
		f.Input = fs.Arg(0)
	}
	return f, nil
}

// UserConfigPath resolves the per-user config file location, the way
// directories::ProjectDirs::from("", "", "harvest") does in the
// original's translate/src/cli.rs, without pulling in an extra
// dependency: $XDG_CONFIG_HOME/harvest/config.toml, falling back to
// $HOME/.config/harvest/config.toml.
func UserConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "harvest", "config.toml")
}

// LoadLayeredConfig builds a Config by layering, lowest precedence
// first: built-in defaults, the user config file, the repo-local config
// file named by flags.ConfigPath, then -config overrides, then the
// dedicated path/force flags. This mirrors translate/src/cli.rs's
// load_config layering order.
func LoadLayeredConfig(flags *CLIFlags) (*core.Config, error) {
	cfg := core.DefaultConfig()

	if userPath := UserConfigPath(); userPath != "" {
		if _, err := os.Stat(userPath); err == nil {
			if err := cfg.DecodeFileInto(userPath); err != nil {
				return nil, err
			}
		}
	}

	if flags.ConfigPath != "" {
		if _, err := os.Stat(flags.ConfigPath); err == nil {
			if err := cfg.DecodeFileInto(flags.ConfigPath); err != nil {
				return nil, err
			}
		}
	}

	for _, kv := range flags.Overrides {
		if err := applyOverride(cfg, kv); err != nil {
			return nil, err
		}
	}

	if flags.Input != "" {
		cfg.Input = flags.Input
	}
	if flags.Output != "" {
		cfg.Output = flags.Output
	}
	if flags.DiagnosticsDir != "" {
		cfg.DiagnosticsDir = flags.DiagnosticsDir
	}
	if flags.Force {
		cfg.Force = true
	}

	return cfg, nil
}

// applyOverride applies one -config NAME=VALUE flag to cfg. Only the
// handful of top-level scalar fields a command-line override plausibly
// targets are supported; anything else is reported as an error rather
// than silently ignored, since an override is an explicit ask from the
// caller (unlike an unrecognized TOML key, which is merely warned).
func applyOverride(cfg *core.Config, kv string) error {
	name, value, ok := strings.Cut(kv, "=")
	if !ok {
		return fmt.Errorf("pipeline: -config value %q is not NAME=VALUE", kv)
	}
	switch name {
	case "input":
		cfg.Input = value
	case "output":
		cfg.Output = value
	case "diagnostics_dir":
		cfg.DiagnosticsDir = value
	case "log_filter":
		cfg.LogFilter = value
	case "force":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("pipeline: -config force=%q: %w", value, err)
		}
		cfg.Force = b
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("pipeline: -config: unrecognized override key %q", name)
	}
	return nil
}
