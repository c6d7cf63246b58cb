// Package config handles repcoach configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/repcoach/config.yaml, /etc/repcoach/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "repcoach", "config.yaml"))
	}

	paths = append(paths, "/etc/repcoach/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all repcoach configuration.
type Config struct {
	Listen         ListenConfig     `yaml:"listen"`
	Ollama         OllamaConfig     `yaml:"ollama"`
	Generation     GenerationConfig `yaml:"generation"`
	DataDir        string           `yaml:"data_dir"`
	DefaultPersona string           `yaml:"default_persona"`
	HistoryDays    int              `yaml:"history_days"`
	LogLevel       string           `yaml:"log_level"`
	LogFormat      string           `yaml:"log_format"` // "text" (default) or "json"
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// OllamaConfig defines the model backend. An unreachable or empty URL
// is not fatal: the coach falls back to rule-based generation.
type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

// GenerationConfig bounds LLM generation calls.
type GenerationConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 8080},
		Ollama: OllamaConfig{
			URL:   "http://localhost:11434",
			Model: "qwen3:4b",
		},
		Generation: GenerationConfig{
			MaxTokens:   2048,
			Temperature: 0.7,
			TimeoutSec:  45,
		},
		DataDir:        "data",
		DefaultPersona: "calm",
		HistoryDays:    7,
	}
}
