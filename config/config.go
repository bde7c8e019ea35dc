// Package config loads engine settings for a project.
//
// Settings come from, in increasing precedence:
//   - built-in defaults
//   - <project>/.recoverkit/config.toml
//   - <project>/.env (only for variables not already set)
//   - RECOVERKIT_* environment variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/vinayprograms/recoverkit/phase"
)

// DirName is the project-local directory holding config and state.
const DirName = ".recoverkit"

// FileName is the config file inside DirName.
const FileName = "config.toml"

// Environment variables.
const (
	EnvStateDir   = "RECOVERKIT_STATE_DIR"
	EnvBackend    = "RECOVERKIT_BACKEND"
	EnvLogLevel   = "RECOVERKIT_LOG_LEVEL"
	EnvPruneHours = "RECOVERKIT_PRUNE_HOURS"
)

// Backend selects the retry store implementation.
type Backend string

const (
	BackendFile   Backend = "file"
	BackendBadger Backend = "badger"
	BackendMemory Backend = "memory"
)

// Recorder backend names.
const (
	RecorderMarkdown = "markdown"
	RecorderBleve    = "bleve"
)

// Config holds resolved settings. Directory fields are absolute.
type Config struct {
	ProjectRoot     string
	StateDir        string
	MemoryDir       string
	Backend         Backend
	LogLevel        string
	PruneAfterHours int
	Limits          phase.Limits
	Recorders       []string
}

// PruneAfter returns the prune age.
func (c *Config) PruneAfter() time.Duration {
	return time.Duration(c.PruneAfterHours) * time.Hour
}

// tomlConfig is the TOML representation.
type tomlConfig struct {
	StateDir        string         `toml:"state_dir"`
	MemoryDir       string         `toml:"memory_dir"`
	Backend         string         `toml:"backend"`
	LogLevel        string         `toml:"log_level"`
	PruneAfterHours *int           `toml:"prune_after_hours"`
	Limits          map[string]int `toml:"limits"`
	Recorder        *struct {
		Backends []string `toml:"backends"`
	} `toml:"recorder"`
}

// Default returns the built-in settings for a project root.
func Default(root string) *Config {
	stateDir := filepath.Join(root, DirName)
	return &Config{
		ProjectRoot:     root,
		StateDir:        stateDir,
		MemoryDir:       filepath.Join(stateDir, "memory"),
		Backend:         BackendFile,
		LogLevel:        "warn",
		PruneAfterHours: 24,
		Limits:          phase.DefaultLimits(),
		Recorders:       []string{RecorderMarkdown, RecorderBleve},
	}
}

// Parse applies TOML content on top of the defaults for root.
func Parse(content, root string) (*Config, error) {
	var raw tomlConfig
	md, err := toml.Decode(content, &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	cfg := Default(root)
	if raw.StateDir != "" {
		cfg.StateDir = resolve(root, raw.StateDir)
		cfg.MemoryDir = filepath.Join(cfg.StateDir, "memory")
	}
	if raw.MemoryDir != "" {
		cfg.MemoryDir = resolve(root, raw.MemoryDir)
	}
	if raw.Backend != "" {
		cfg.Backend = Backend(strings.ToLower(raw.Backend))
	}
	if raw.LogLevel != "" {
		cfg.LogLevel = raw.LogLevel
	}
	if raw.PruneAfterHours != nil {
		cfg.PruneAfterHours = *raw.PruneAfterHours
	}
	if len(raw.Limits) > 0 {
		limits, err := cfg.Limits.Merge(raw.Limits)
		if err != nil {
			return nil, fmt.Errorf("invalid [limits]: %w", err)
		}
		cfg.Limits = limits
	}
	if raw.Recorder != nil {
		cfg.Recorders = raw.Recorder.Backends
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads a config file for root.
func LoadFile(path, root string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(string(content), root)
}

// Load resolves settings for a project root. A missing config file or .env
// is not an error.
func Load(root string) (*Config, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	cfg := Default(abs)
	path := filepath.Join(abs, DirName, FileName)
	if _, statErr := os.Stat(path); statErr == nil {
		cfg, err = LoadFile(path, abs)
		if err != nil {
			return nil, err
		}
	}

	envFile := filepath.Join(abs, ".env")
	if _, statErr := os.Stat(envFile); statErr == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvStateDir); v != "" {
		followsState := c.MemoryDir == filepath.Join(c.StateDir, "memory")
		c.StateDir = resolve(c.ProjectRoot, v)
		if followsState {
			c.MemoryDir = filepath.Join(c.StateDir, "memory")
		}
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = Backend(strings.ToLower(v))
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	hours, err := getEnvInt(EnvPruneHours, c.PruneAfterHours)
	if err != nil {
		return err
	}
	c.PruneAfterHours = hours
	return nil
}

// Validate checks the settings.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want file, badger or memory)", c.Backend)
	}
	if c.PruneAfterHours < 1 {
		return fmt.Errorf("prune_after_hours must be at least 1, got %d", c.PruneAfterHours)
	}
	for _, r := range c.Recorders {
		if r != RecorderMarkdown && r != RecorderBleve {
			return fmt.Errorf("unknown recorder backend %q", r)
		}
	}
	return nil
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(root, p)
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}
