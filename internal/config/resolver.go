// Package config resolves Lorehound configuration from file, environment,
// and CLI flags, tracking where each value came from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueSource records where a resolved value came from.
type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is one configuration value plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries CLI overrides into resolution.
type ResolveOptions struct {
	ConfigPath       string
	CLIDBPath        string
	CLIAIEndpoint    string
	CLIAIModel       string
	CLIMinConfidence string
}

// ResolvedConfig is the fully resolved configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath        ResolvedValue `json:"db_path"`
	AIEndpoint    ResolvedValue `json:"ai_endpoint"`
	AIAPIKey      ResolvedValue `json:"ai_api_key"`
	AIModel       ResolvedValue `json:"ai_model"`
	MinConfidence ResolvedValue `json:"min_confidence"`
	DebounceMS    ResolvedValue `json:"debounce_ms"`

	// StoplistExtra supplements the detector's built-in stoplist.
	StoplistExtra []string `json:"stoplist_extra,omitempty"`
}

type fileConfig struct {
	DBPath string `yaml:"db_path"`
	AI     struct {
		Endpoint string `yaml:"endpoint"`
		APIKey   string `yaml:"api_key"`
		Model    string `yaml:"model"`
	} `yaml:"ai"`
	Detect struct {
		MinConfidence string   `yaml:"min_confidence"`
		StoplistExtra []string `yaml:"stoplist_extra"`
		DebounceMS    int      `yaml:"debounce_ms"`
	} `yaml:"detect"`
}

// DefaultConfigPath is ~/.lorehound/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".lorehound", "config.yaml")
}

// Resolve loads the config file (if present) and applies env and CLI
// overrides. Precedence: CLI > env > config file > default.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	out.StoplistExtra = cfg.Detect.StoplistExtra

	out.DBPath = resolveValue(opts.CLIDBPath, "LOREHOUND_DB", cfg.DBPath, "")
	out.AIEndpoint = resolveValue(opts.CLIAIEndpoint, "LOREHOUND_AI_ENDPOINT", cfg.AI.Endpoint, "")
	out.AIAPIKey = resolveValue("", "LOREHOUND_AI_API_KEY", cfg.AI.APIKey, "")
	out.AIModel = resolveValue(opts.CLIAIModel, "LOREHOUND_AI_MODEL", cfg.AI.Model, "gpt-4o-mini")
	out.MinConfidence = resolveValue(opts.CLIMinConfidence, "LOREHOUND_MIN_CONFIDENCE", cfg.Detect.MinConfidence, "low")

	debounce := ""
	if cfg.Detect.DebounceMS > 0 {
		debounce = fmt.Sprintf("%d", cfg.Detect.DebounceMS)
	}
	out.DebounceMS = resolveValue("", "LOREHOUND_DEBOUNCE_MS", debounce, "600")

	return out, nil
}

// resolveValue applies the precedence chain for a single value.
func resolveValue(cli, envVar, fileVal, def string) ResolvedValue {
	if cli != "" {
		return ResolvedValue{Value: cli, Source: SourceCLI}
	}
	if v := os.Getenv(envVar); v != "" {
		return ResolvedValue{Value: v, Source: SourceEnv, From: envVar}
	}
	if fileVal != "" {
		return ResolvedValue{Value: fileVal, Source: SourceConfig}
	}
	if def != "" {
		return ResolvedValue{Value: def, Source: SourceDefault}
	}
	return ResolvedValue{Source: SourceUnknown}
}

// loadConfig reads the YAML config file. A missing file is not an error —
// every value has an env or default fallback.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}
