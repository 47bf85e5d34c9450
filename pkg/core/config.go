package core

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/foundryrun/harvest/internal/logger"
)

// Config is the process-wide configuration, loaded from TOML the way
// internal/config.Config is in the teacher (BurntSushi/toml, struct
// tags), generalized from that repo's service-oriented sections to the
// tool-pipeline sections this spec calls for. Tools is intentionally an
// opaque map of toml.Primitive (delayed decode) per tool name; each
// tool's package owns the concrete shape of its own sub-config and
// decodes it from Tools[name] itself (mirroring the original's
// HashMap<String, Value> + per-tool serde::Deserialize).
type Config struct {
	Input           string                    `toml:"input"`
	Output          string                    `toml:"output"`
	DiagnosticsDir  string                    `toml:"diagnostics_dir"`
	Force           bool                      `toml:"force"`
	LogFilter       string                    `toml:"log_filter"`
	Logging         LoggingConfig             `toml:"logging"`
	Status          StatusConfig              `toml:"status"`
	Watch           WatchConfig               `toml:"watch"`
	MCP             MCPConfig                 `toml:"mcp"`
	Tools map[string]toml.Primitive `toml:"tools"`
}

// LoggingConfig mirrors internal/config.LoggingConfig (teacher), trimmed
// to the fields this module's ambient logger (internal/logger) actually
// consumes.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Format     string   `toml:"format"`
	Output     []string `toml:"output"`
	TimeFormat string   `toml:"time_format"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// StatusConfig controls internal/status, the optional go-chi dashboard.
type StatusConfig struct {
	Addr          string   `toml:"addr"`
	AllowOrigins  []string `toml:"allow_origins"`
}

// WatchConfig controls internal/watch, the optional fsnotify-based
// input watcher. Default off: the driver loop's default behavior
// (run once, exit on quiescence) is unchanged unless a config file
// opts in; no command-line flag or -config override sets it.
type WatchConfig struct {
	Enabled     bool `toml:"enabled"`
	DebounceMs  int  `toml:"debounce_ms"`
}

// MCPConfig controls internal/mcpsrv, the optional mark3labs/mcp-go
// front end.
type MCPConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// DefaultConfig returns a Config with every field at its zero-ish
// default, matching the minimal recognized-keys table.
func DefaultConfig() *Config {
	return &Config{
		LogFilter: "",
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     []string{"console"},
			TimeFormat: "15:04:05.000",
			MaxSizeMB:  100,
			MaxBackups: 5,
		},
		Watch: WatchConfig{DebounceMs: 300},
		Tools: map[string]toml.Primitive{},
	}
}

// DecodeToolConfig decodes the tool-specific sub-config for toolName
// into out, which must be a pointer. Returns nil with out left
// unmodified if no sub-config was provided for toolName — tools must
// apply their own defaults in that case.
func (c *Config) DecodeToolConfig(toolName string, out any) error {
	prim, ok := c.Tools[toolName]
	if !ok {
		return nil
	}
	if err := toml.PrimitiveDecode(prim, out); err != nil {
		return fmt.Errorf("decode tools.%s: %w", toolName, err)
	}
	return nil
}

// DecodeFileInto decodes the TOML file at path into cfg (which should
// already hold defaults) and warns about any undecoded keys, matching
// spec.md §6's "ease moving between versions" policy and
// core/src/config.rs's unknown_field_warning. Used by every layer of
// pkg/pipeline's layered config loader so each file it reads gets the
// same unknown-key warning, not just the single-file case.
func (c *Config) DecodeFileInto(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	WarnUnknownKeys(meta)
	return nil
}

// WarnUnknownKeys logs every key in meta.Undecoded(), prefixed by the
// tool name when the key lives under a [tools.*] table — the Go
// realization of unknown_field_warning(prefix, unknown) from
// core/src/config.rs.
func WarnUnknownKeys(meta toml.MetaData) {
	for _, key := range meta.Undecoded() {
		logger.GetLogger().Warn().Str("key", key.String()).Msg("unrecognized config key, ignoring")
	}
}
