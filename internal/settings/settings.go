// ABOUTME: Settings schema, defaults and validation for the console
// ABOUTME: Components receive values by parameter and never read this store directly

package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Settings is the persisted console configuration. Fields map one-to-one
// onto the YAML file; ${VAR} references are expanded at load time.
type Settings struct {
	// ServiceURL is the agent gateway base URL. Empty means unconfigured.
	ServiceURL string `yaml:"service_url"`
	// AuthToken is the bearer token sent to the gateway, empty for none.
	AuthToken string `yaml:"auth_token"`
	// PersistChats asks the gateway to store exchanges server-side.
	PersistChats bool `yaml:"persist_chats"`
	// MergeStrategy is how hydrated history and the live exchange
	// combine: "replace" or "append".
	MergeStrategy string `yaml:"merge_strategy"`
	// ArchivePath overrides the local transcript archive location.
	ArchivePath string `yaml:"archive_path"`
	// PanelLayout is stored for UI shells and never interpreted here.
	PanelLayout string `yaml:"panel_layout"`

	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig controls console log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when no file exists yet.
func Default() Settings {
	return Settings{
		PersistChats:  true,
		MergeStrategy: "replace",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks field values, returning the first failure.
func (s *Settings) Validate() error {
	switch s.MergeStrategy {
	case "", "replace", "append":
	default:
		return fmt.Errorf("merge_strategy must be \"replace\" or \"append\", got %q", s.MergeStrategy)
	}
	switch s.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", s.Logging.Level)
	}
	switch s.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", s.Logging.Format)
	}
	return nil
}

// applyDefaults fills zero values after a load so partial files behave.
func (s *Settings) applyDefaults() {
	if s.MergeStrategy == "" {
		s.MergeStrategy = "replace"
	}
	if s.Logging.Level == "" {
		s.Logging.Level = "info"
	}
	if s.Logging.Format == "" {
		s.Logging.Format = "text"
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} with the environment value, or the
// empty string when unset.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// DefaultPath returns the settings file under the XDG config directory.
func DefaultPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "agent-scope", "settings.yaml"), nil
}

// DefaultArchivePath returns the transcript archive under the XDG data
// directory.
func DefaultArchivePath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "agent-scope", "archive.db"), nil
}
