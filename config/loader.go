package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "codebook.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/codebook"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// UserDataDir is the directory for the default registry database
	UserDataDir = ".local/share/codebook"
	// RegistryFile is the default registry database name
	RegistryFile = "registry.db"

	// EnvNATSURL overrides nats.url
	EnvNATSURL = "NATS_URL"
	// EnvStoragePath overrides storage.path
	EnvStoragePath = "CODEBOOK_DB"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
	home   string
	cwd    string
	getenv func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	return &Loader{
		logger: logger,
		home:   home,
		cwd:    cwd,
		getenv: os.Getenv,
	}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/codebook/config.yaml)
// 3. Project config (codebook.yaml in current or parent directories)
// 4. Explicit config file (explicitPath, if non-empty)
// 5. Environment variables (NATS_URL, CODEBOOK_DB)
func (l *Loader) Load(explicitPath string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Load user config
	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if userConfig, err := LoadFromFile(userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	projectConfigPath := l.findProjectConfig()
	if projectConfigPath != "" {
		if projectConfig, err := LoadFromFile(projectConfigPath); err == nil {
			l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
			config.Merge(projectConfig)
		} else {
			l.logger.Warn("Failed to load project config", slog.String("path", projectConfigPath), slog.String("error", err.Error()))
		}
	} else {
		l.logger.Debug("No project config found")
	}

	// An explicit file must load
	if explicitPath != "" {
		explicitConfig, err := LoadFromFile(explicitPath)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", explicitPath))
		config.Merge(explicitConfig)
	}

	// Environment overrides
	if url := l.getenv(EnvNATSURL); url != "" {
		config.NATS.URL = url
	}
	if path := l.getenv(EnvStoragePath); path != "" {
		config.Storage.Path = path
	}

	// Default registry location
	if config.Storage.Path == "" {
		config.Storage.Path = l.defaultStoragePath()
		l.logger.Debug("Using default registry path", slog.String("path", config.Storage.Path))
	}

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()
	if userConfigPath == "" {
		return fmt.Errorf("no home directory")
	}

	// Check if it already exists
	if _, err := os.Stat(userConfigPath); err == nil {
		return nil // Already exists
	}

	// Create default config
	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	if l.home == "" {
		return ""
	}
	return filepath.Join(l.home, UserConfigDir, UserConfigFile)
}

// defaultStoragePath returns the registry path under the user data directory,
// falling back to the working directory.
func (l *Loader) defaultStoragePath() string {
	if l.home == "" {
		return filepath.Join(l.cwd, ".codebook", RegistryFile)
	}
	return filepath.Join(l.home, UserDataDir, RegistryFile)
}

// findProjectConfig searches for codebook.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	if l.cwd == "" {
		return ""
	}

	dir := l.cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}
