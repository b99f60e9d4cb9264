package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"fmcw/frame"
)

//go:embed fmcw.toml
var defaultConfigData []byte

// Global state for the selected radar profile
var (
	ProfileName string
	SampleBits  int
	SweepLen    int
	FFT         bool
	LogPath     string
	MetricsAddr string
)

// Config represents the entire TOML configuration structure
type Config struct {
	Default string  `toml:"default"`
	Radar   []Radar `toml:"radar"`
}

// Radar represents one acquisition profile
type Radar struct {
	Name        string `toml:"name"`
	SampleBits  int    `toml:"sample_bits"`
	SweepLen    int    `toml:"sweep_len"`
	FFT         bool   `toml:"fft"`
	LogPath     string `toml:"log_path"`
	MetricsAddr string `toml:"metrics_addr"`
}

// configPath determines the config file path based on the operating system
func configPath() (string, error) {
	var configDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "fmcw")
	default:
		configDir, err = os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine user home directory: %w", err)
		}
	}

	return filepath.Join(configDir, ".fmcw"), nil
}

// Initialize loads and validates the configuration file.
// If the config file doesn't exist, it creates it from the embedded default.
func Initialize() error {
	configPath, err := configPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configDir := filepath.Dir(configPath)
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
		}
		if err := os.WriteFile(configPath, defaultConfigData, 0644); err != nil {
			return fmt.Errorf("failed to create default config file at %s: %w", configPath, err)
		}
	}

	var conf Config
	if _, err := toml.DecodeFile(configPath, &conf); err != nil {
		return fmt.Errorf("failed to parse TOML config at %s: %w", configPath, err)
	}

	return apply(&conf)
}

// apply validates conf and stores the default profile in the package
// globals.
func apply(conf *Config) error {
	if conf.Default == "" {
		return errors.New("`default` key is missing or empty in config")
	}

	var found *Radar
	for i := range conf.Radar {
		if conf.Radar[i].Name == conf.Default {
			found = &conf.Radar[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("default profile %q not found in radar array", conf.Default)
	}

	// The frame parser owns the real parameter rules; reject a
	// profile the stream could never satisfy before touching any
	// hardware.
	if _, err := frame.NewParser(found.SampleBits, found.SweepLen, found.FFT); err != nil {
		return fmt.Errorf("profile %q: %w", found.Name, err)
	}

	ProfileName = found.Name
	SampleBits = found.SampleBits
	SweepLen = found.SweepLen
	FFT = found.FFT
	LogPath = found.LogPath
	MetricsAddr = found.MetricsAddr

	return nil
}
