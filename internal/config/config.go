// Package config handles loading, defaulting, and validation of melvind's
// TOML configuration file. Every section maps to a typed struct so the
// rest of the codebase gets strong typing without manual key lookups.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Data     DataConfig     `toml:"data"     json:"data"`
	Logging  LoggingConfig  `toml:"logging"  json:"logging"`
	HTTP     HTTPConfig     `toml:"http"     json:"http"`
	Console  ConsoleConfig  `toml:"console"  json:"console"`
	Melvin   MelvinConfig   `toml:"melvin"   json:"melvin"`
	MapImage MapImageConfig `toml:"mapimage" json:"mapimage"`
}

type DataConfig struct {
	Root    string `toml:"root"    json:"root"`
	Archive string `toml:"archive" json:"archive"`
}

type LoggingConfig struct {
	Level string `toml:"level" json:"level"`
}

// HTTPConfig configures the operator dashboard/status HTTP server
// (internal/app), which also hosts the WebSocket telemetry hub.
type HTTPConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

// ConsoleConfig configures the length-prefixed TCP task-list console.
type ConsoleConfig struct {
	Bind string `toml:"bind" json:"bind"`
}

// MelvinConfig carries the simulator endpoint and tuning knobs for the
// flight computer and scheduler.
type MelvinConfig struct {
	SimulatorURL    string  `toml:"simulator_url"     json:"simulator_url"`
	MinBattery      float64 `toml:"min_battery"       json:"min_battery"`
	MaxBatteryLow   float64 `toml:"max_battery_low"   json:"max_battery_low"`
	MaxBatteryHigh  float64 `toml:"max_battery_high"  json:"max_battery_high"`
	BeaconSkipList  string  `toml:"beacon_skip_list"  json:"beacon_skip_list"`
}

// MapImageConfig locates the on-disk mmap-backed full-resolution map image.
type MapImageConfig struct {
	Path        string `toml:"path"         json:"path"`
	SnapshotDir string `toml:"snapshot_dir" json:"snapshot_dir"`
}

// DefaultConfigDir returns the XDG-compliant config directory for melvin.
// It respects $XDG_CONFIG_HOME and falls back to ~/.config/melvin.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "melvin")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "melvin")
}

// DefaultDataDir returns the XDG-compliant data directory for melvin.
// It respects $XDG_DATA_HOME and falls back to ~/.local/share/melvin.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "melvin")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "melvin")
}

// FindConfigFile searches for a config file in standard locations:
//  1. $MELVIN_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/melvin/config.toml
//  3. ~/.config/melvin/config.toml
//  4. /etc/melvin/melvin.toml
//  5. configs/example.toml (bundled fallback)
//
// Returns the path to the first file found, or empty string if none exist.
// An empty return means the caller should use Default() directly.
func FindConfigFile() string {
	if env := os.Getenv("MELVIN_CONFIG"); env != "" {
		if _, err := os.Stat(env); err == nil {
			return env
		}
	}

	xdgPath := filepath.Join(DefaultConfigDir(), "config.toml")
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}

	legacyPath := "/etc/melvin/melvin.toml"
	if _, err := os.Stat(legacyPath); err == nil {
		return legacyPath
	}

	if _, err := os.Stat("configs/example.toml"); err == nil {
		return "configs/example.toml"
	}

	return ""
}

// ProfileInfo describes a config profile discovered in the config directory.
type ProfileInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// ListProfiles scans a directory for .toml files and returns them as profiles.
func ListProfiles(configDir string) ([]ProfileInfo, error) {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var profiles []ProfileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".toml")
		profiles = append(profiles, ProfileInfo{
			Name:    name,
			Path:    filepath.Join(configDir, e.Name()),
			ModTime: info.ModTime(),
		})
	}
	return profiles, nil
}

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file omits a field.
func Default() Config {
	dataDir := DefaultDataDir()
	return Config{
		Data: DataConfig{
			Root:    dataDir,
			Archive: filepath.Join(dataDir, "archive"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Bind: "0.0.0.0:8080",
		},
		Console: ConsoleConfig{
			Bind: "0.0.0.0:1337",
		},
		Melvin: MelvinConfig{
			SimulatorURL:   "http://localhost:3000",
			MinBattery:     10.0,
			MaxBatteryLow:  90.0,
			MaxBatteryHigh: 100.0,
			BeaconSkipList: "",
		},
		MapImage: MapImageConfig{
			Path:        filepath.Join(dataDir, "map.bin"),
			SnapshotDir: filepath.Join(dataDir, "snapshots"),
		},
	}
}

// Load reads the TOML file at path, layers it on top of the defaults, and
// validates the result. Data directories are created automatically if they
// don't exist.
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	// Expand ~ in path fields so users can write "~/.local/share/..." in TOML.
	cfg.Data.Root = expandHome(cfg.Data.Root)
	cfg.Data.Archive = expandHome(cfg.Data.Archive)
	cfg.MapImage.Path = expandHome(cfg.MapImage.Path)
	cfg.MapImage.SnapshotDir = expandHome(cfg.MapImage.SnapshotDir)

	if err := validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, ensureDirs(cfg)
}

// EnsureDirectories creates the XDG config dir and data directories.
// Called by the daemon on startup regardless of whether a config file was found.
func EnsureDirectories(cfg Config) error {
	if err := os.MkdirAll(DefaultConfigDir(), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return ensureDirs(cfg)
}

func ensureDirs(cfg Config) error {
	if err := os.MkdirAll(cfg.Data.Root, 0o755); err != nil {
		return fmt.Errorf("create data root: %w", err)
	}
	if err := os.MkdirAll(cfg.Data.Archive, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	if err := os.MkdirAll(cfg.MapImage.SnapshotDir, 0o755); err != nil {
		return fmt.Errorf("create map snapshot dir: %w", err)
	}
	return nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func validate(cfg Config) error {
	if cfg.Data.Root == "" {
		return errors.New("data.root must not be empty")
	}
	if cfg.Data.Archive == "" {
		return errors.New("data.archive must not be empty")
	}
	if cfg.Melvin.SimulatorURL == "" {
		return errors.New("melvin.simulator_url must not be empty")
	}
	if cfg.Melvin.MinBattery < 0 || cfg.Melvin.MinBattery > 100 {
		return errors.New("melvin.min_battery must be between 0 and 100")
	}
	if cfg.Melvin.MaxBatteryHigh <= cfg.Melvin.MinBattery {
		return errors.New("melvin.max_battery_high must be greater than min_battery")
	}
	if cfg.MapImage.Path == "" {
		return errors.New("mapimage.path must not be empty")
	}
	return nil
}
