package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/natefinch/atomic"

	"github.com/buttonmasher/masher/internal/hotkeys"
	"github.com/buttonmasher/masher/internal/profile"
)

const (
	configFileName = "config.json"
	configDirName  = "masher"
	metricsSubDir  = "metrics"
)

// Environment overrides, read after an optional .env file.
const (
	EnvConfigDir = "MASHER_CONFIG_DIR"
	EnvProfiles  = "MASHER_PROFILES"
	EnvLogLevel  = "MASHER_LOG_LEVEL"
	EnvBeep      = "MASHER_BEEP"
)

// Config represents the application configuration
type Config struct {
	Hotkeys      hotkeys.Bindings `json:"hotkeys"`
	ProfilesPath string           `json:"profiles_path,omitempty"`
	LogLevel     string           `json:"log_level,omitempty"`
	Beep         *bool            `json:"beep,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Hotkeys:  hotkeys.DefaultBindings(),
		LogLevel: "info",
	}
}

// BeepEnabled reports whether start/stop/capture tones are wanted. Tones are
// on unless turned off.
func (c *Config) BeepEnabled() bool {
	return c.Beep == nil || *c.Beep
}

// getConfigDir returns the user's config directory for masher
func getConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(usr.HomeDir, ".config", configDirName)
	return configDir, nil
}

// getConfigPath returns the full path to the config file
func getConfigPath() (string, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFileName), nil
}

// LoadConfig loads configuration from file and applies environment
// overrides on top. A .env file in the working directory is read first, so
// it can relocate the config directory too.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	config := Default()
	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// applyEnv lets the environment override file settings.
func applyEnv(config *Config) error {
	if path := os.Getenv(EnvProfiles); path != "" {
		config.ProfilesPath = path
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		config.LogLevel = level
	}
	if beep := os.Getenv(EnvBeep); beep != "" {
		on, err := strconv.ParseBool(beep)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", EnvBeep, beep, err)
		}
		config.Beep = &on
	}
	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config) error {
	configDir, err := getConfigDir()
	if err != nil {
		return err
	}

	// Create config directory if it doesn't exist
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	configPath, err := getConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return atomic.WriteFile(configPath, bytes.NewReader(data))
}

// GetConfigPath returns the full path to the config file (exported for CLI commands)
func GetConfigPath() (string, error) {
	return getConfigPath()
}

// GetProfilesPath returns where the profiles document lives: the configured
// path with a leading ~ expanded, or the default file in the config dir.
func GetProfilesPath(config *Config) (string, error) {
	if config != nil && config.ProfilesPath != "" {
		return expandHome(config.ProfilesPath)
	}
	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, profile.DefaultFileName), nil
}

// GetMetricsDir returns the metrics directory path
func GetMetricsDir() (string, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, metricsSubDir), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	return filepath.Join(usr.HomeDir, strings.TrimPrefix(path, "~")), nil
}
