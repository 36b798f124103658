package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DirName is the per-repository state directory.
const DirName = ".aura"

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = 1

// Config represents the complete aura configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	Logging   LoggingConfig             `json:"logging" mapstructure:"logging"`
	BuildFix  BuildFixConfig            `json:"buildFix" mapstructure:"buildFix"`
	Languages map[string]LanguageConfig `json:"languages" mapstructure:"languages"`
	Index     IndexConfig               `json:"index" mapstructure:"index"`
	Storage   StorageConfig             `json:"storage" mapstructure:"storage"`
	Fixer     FixerConfig               `json:"fixer" mapstructure:"fixer"`
	Patterns  PatternsConfig            `json:"patterns" mapstructure:"patterns"`
	Worktree  WorktreeConfig            `json:"worktree" mapstructure:"worktree"`
	Search    SearchConfig              `json:"search" mapstructure:"search"`
	Issues    IssuesConfig              `json:"issues" mapstructure:"issues"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" mapstructure:"level"`
	File       bool   `json:"file" mapstructure:"file"`
	MaxSize    string `json:"maxSize" mapstructure:"maxSize"`
	MaxBackups int    `json:"maxBackups" mapstructure:"maxBackups"`
}

// CommandConfig overrides the command run for a build ecosystem
type CommandConfig struct {
	Command string   `json:"command" mapstructure:"command"`
	Args    []string `json:"args" mapstructure:"args"`
}

// BuildFixConfig bounds the build-fix loop
type BuildFixConfig struct {
	MaxIterations       int                      `json:"maxIterations" mapstructure:"maxIterations"`
	MaxFilesPerFix      int                      `json:"maxFilesPerFix" mapstructure:"maxFilesPerFix"`
	BuildTimeoutSeconds int                      `json:"buildTimeoutSeconds" mapstructure:"buildTimeoutSeconds"`
	OutputLimitBytes    int                      `json:"outputLimitBytes" mapstructure:"outputLimitBytes"`
	Commands            map[string]CommandConfig `json:"commands" mapstructure:"commands"`
}

// LanguageConfig configures a script refactoring backend
type LanguageConfig struct {
	Interpreter    string `json:"interpreter" mapstructure:"interpreter"`
	Script         string `json:"script" mapstructure:"script"`
	TimeoutSeconds int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// IndexConfig locates the precomputed code graph
type IndexConfig struct {
	ScipPath string `json:"scipPath" mapstructure:"scipPath"`
}

// StorageConfig locates the workflow and run-history database
type StorageConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// FixerConfig configures the OpenAI-compatible fixer
type FixerConfig struct {
	Enabled        bool   `json:"enabled" mapstructure:"enabled"`
	BaseURL        string `json:"baseURL" mapstructure:"baseURL"`
	Model          string `json:"model" mapstructure:"model"`
	APIKeyEnv      string `json:"apiKeyEnv" mapstructure:"apiKeyEnv"`
	TimeoutSeconds int    `json:"timeoutSeconds" mapstructure:"timeoutSeconds"`
}

// PatternsConfig lists extra pattern directories
type PatternsConfig struct {
	Dirs []string `json:"dirs" mapstructure:"dirs"`
}

// WorktreeConfig fixes the path comparison contract
type WorktreeConfig struct {
	CaseInsensitive bool `json:"caseInsensitive" mapstructure:"caseInsensitive"`
}

// SearchConfig bounds text search
type SearchConfig struct {
	MaxResults       int      `json:"maxResults" mapstructure:"maxResults"`
	MaxFileSizeBytes int      `json:"maxFileSizeBytes" mapstructure:"maxFileSizeBytes"`
	Ignore           []string `json:"ignore" mapstructure:"ignore"`
}

// IssuesConfig selects the issue tracker used by workflow from_issue.
// Repository ("owner/name") resolves bare "#12" references.
type IssuesConfig struct {
	Provider   string `json:"provider" mapstructure:"provider"`
	Repository string `json:"repository" mapstructure:"repository"`
	BaseURL    string `json:"baseURL" mapstructure:"baseURL"`
	TokenEnv   string `json:"tokenEnv" mapstructure:"tokenEnv"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Logging: LoggingConfig{
			Level:      "info",
			File:       true,
			MaxSize:    "10MB",
			MaxBackups: 3,
		},
		BuildFix: BuildFixConfig{
			MaxIterations:       5,
			MaxFilesPerFix:      3,
			BuildTimeoutSeconds: 300,
			OutputLimitBytes:    4000,
			Commands:            map[string]CommandConfig{},
		},
		Languages: map[string]LanguageConfig{
			"python": {
				Interpreter:    "python3",
				Script:         "scripts/python/refactor.py",
				TimeoutSeconds: 60,
			},
			"typescript": {
				Interpreter:    "node",
				Script:         "scripts/typescript/refactor.js",
				TimeoutSeconds: 60,
			},
		},
		Index: IndexConfig{
			ScipPath: ".scip/index.scip",
		},
		Storage: StorageConfig{
			Path: filepath.Join(DirName, "aura.db"),
		},
		Fixer: FixerConfig{
			Enabled:        false,
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			TimeoutSeconds: 120,
		},
		Patterns: PatternsConfig{
			Dirs: []string{filepath.Join(DirName, "patterns")},
		},
		Search: SearchConfig{
			MaxResults:       100,
			MaxFileSizeBytes: 1000000,
			Ignore:           []string{".git", DirName, "node_modules", "bin", "obj", "target", "vendor"},
		},
		Issues: IssuesConfig{
			Provider: "github",
			TokenEnv: "GITHUB_TOKEN",
		},
	}
}

// envKeys are the settings that can be overridden with AURA_* variables,
// e.g. AURA_BUILDFIX_MAXITERATIONS=3.
var envKeys = []string{
	"logging.level",
	"logging.file",
	"buildFix.maxIterations",
	"buildFix.maxFilesPerFix",
	"buildFix.buildTimeoutSeconds",
	"index.scipPath",
	"storage.path",
	"fixer.enabled",
	"fixer.baseURL",
	"fixer.model",
	"worktree.caseInsensitive",
	"issues.repository",
}

// LoadConfig loads configuration from .aura/config.json, layered over the
// defaults and under AURA_* environment overrides.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, DirName))
	v.SetEnvPrefix("AURA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to .aura/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.BuildFix.MaxIterations < 1 {
		return &ConfigError{Field: "buildFix.maxIterations", Message: "must be at least 1"}
	}
	if c.BuildFix.MaxFilesPerFix < 1 {
		return &ConfigError{Field: "buildFix.maxFilesPerFix", Message: "must be at least 1"}
	}
	if c.BuildFix.BuildTimeoutSeconds < 1 {
		return &ConfigError{Field: "buildFix.buildTimeoutSeconds", Message: "must be at least 1"}
	}
	for name, lang := range c.Languages {
		if lang.Interpreter == "" || lang.Script == "" {
			return &ConfigError{Field: "languages." + name, Message: "interpreter and script are required"}
		}
	}
	if c.Fixer.Enabled && c.Fixer.Model == "" {
		return &ConfigError{Field: "fixer.model", Message: "required when the fixer is enabled"}
	}
	if c.Issues.Provider != "" && c.Issues.Provider != "github" {
		return &ConfigError{Field: "issues.provider", Message: "unsupported provider " + c.Issues.Provider}
	}
	return nil
}

// ResolvePath makes a config-relative path absolute against repoRoot.
func ResolvePath(repoRoot, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}

// LogPath returns <repoRoot>/.aura/logs/mcp.log.
func LogPath(repoRoot string) string {
	return filepath.Join(repoRoot, DirName, "logs", "mcp.log")
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
