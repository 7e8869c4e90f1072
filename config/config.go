package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Knowledge     KnowledgeConfig     `yaml:"knowledge"`
	Completion    CompletionConfig    `yaml:"completion"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Synthesis     SynthesisConfig     `yaml:"synthesis"`
	Audio         AudioConfig         `yaml:"audio"`
	Exchange      ExchangeConfig      `yaml:"exchange"`
	Log           LogConfig           `yaml:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type KnowledgeConfig struct {
	Language  string `yaml:"language"`
	UserAgent string `yaml:"user_agent"`
	BaseURL   string `yaml:"base_url"`
}

type CompletionConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

type TranscriptionConfig struct {
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`
	BaseURL  string `yaml:"base_url"`
}

type SynthesisConfig struct {
	BaseURL     string `yaml:"base_url"`
	ArtifactDir string `yaml:"artifact_dir"`
}

type AudioConfig struct {
	// Input is "microphone" or "file".
	Input   string `yaml:"input"`
	FileDir string `yaml:"file_dir"`
	// Output is "speaker" or "none".
	Output string `yaml:"output"`
}

type ExchangeConfig struct {
	Store string      `yaml:"store"`
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Knowledge.Language == "" {
		c.Knowledge.Language = "en"
	}
	if c.Completion.Provider == "" {
		c.Completion.Provider = "gemini"
	}
	if c.Transcription.Language == "" {
		c.Transcription.Language = "en"
	}
	if c.Synthesis.ArtifactDir == "" {
		c.Synthesis.ArtifactDir = "./data"
	}
	if c.Audio.Input == "" {
		c.Audio.Input = "microphone"
	}
	if c.Audio.FileDir == "" {
		c.Audio.FileDir = "./audio"
	}
	if c.Audio.Output == "" {
		c.Audio.Output = "speaker"
	}
	if c.Exchange.Store == "" {
		c.Exchange.Store = "memory"
	}
	if c.Exchange.Path == "" {
		switch c.Exchange.Store {
		case "file":
			c.Exchange.Path = "./data/exchange.yaml"
		case "sqlite":
			c.Exchange.Path = "./data/askme.db"
		}
	}
	if c.Exchange.Redis.Addr == "" {
		c.Exchange.Redis.Addr = "localhost:6379"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate rejects unknown providers, backends and devices.
func (c *Config) Validate() error {
	var errs []error

	switch c.Completion.Provider {
	case "gemini", "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("completion.provider: unknown provider %q", c.Completion.Provider))
	}

	switch c.Audio.Input {
	case "microphone", "file":
	default:
		errs = append(errs, fmt.Errorf("audio.input: unknown input %q", c.Audio.Input))
	}

	switch c.Audio.Output {
	case "speaker", "none":
	default:
		errs = append(errs, fmt.Errorf("audio.output: unknown output %q", c.Audio.Output))
	}

	switch c.Exchange.Store {
	case "memory", "file", "sqlite", "redis":
	default:
		errs = append(errs, fmt.Errorf("exchange.store: unknown store %q", c.Exchange.Store))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ArtifactPath is where synthesized speech is written before playback.
func (c *Config) ArtifactPath() string {
	return filepath.Join(c.Synthesis.ArtifactDir, "answer.mp3")
}
