package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ServiceName = "Financial Document Analyzer"
	Version     = "1.0.0"
)

type Config struct {
	Server    Server    `yaml:"server"`
	Upload    Upload    `yaml:"upload"`
	Staging   Staging   `yaml:"staging"`
	Generator Generator `yaml:"generator"`
	AI        AI        `yaml:"ai"`
	Auth      Auth      `yaml:"auth"`
	RateLimit RateLimit `yaml:"rateLimit"`
	Log       Log       `yaml:"log"`
}

type Server struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

type Upload struct {
	MaxBytes          int64    `yaml:"maxBytes"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
	// MaxTextChars caps extracted text; 0 means unlimited.
	MaxTextChars int `yaml:"maxTextChars"`
}

type Staging struct {
	Backend string `yaml:"backend"` // local | minio
	Dir     string `yaml:"dir"`
	Minio   Minio  `yaml:"minio"`
}

type Minio struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
	BucketName string `yaml:"bucketName"`
	Region     string `yaml:"region"`
	UseSSL     bool   `yaml:"useSSL"`
	Prefix     string `yaml:"prefix"`
}

type Generator struct {
	Mode string `yaml:"mode"` // mock | ai
}

type AI struct {
	Provider       string        `yaml:"provider"` // gemini | openai
	Model          string        `yaml:"model"`
	APIKey         string        `yaml:"apiKey"`
	BaseURL        string        `yaml:"baseURL"`
	Temperature    float32       `yaml:"temperature"`
	MaxTokens      int           `yaml:"maxTokens"`
	MaxPromptChars int           `yaml:"maxPromptChars"`
	Timeout        time.Duration `yaml:"timeout"`
}

type Auth struct {
	// APIKeys maps client name to key. Empty disables auth.
	APIKeys map[string]string `yaml:"apiKeys"`
}

type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"` // 0 disables
	Burst             int     `yaml:"burst"`
}

type Log struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    3 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Upload: Upload{
			MaxBytes:          10 << 20,
			AllowedExtensions: []string{".pdf", ".txt"},
		},
		Staging:   Staging{Backend: "local"},
		Generator: Generator{Mode: "mock"},
		AI: AI{
			Provider:       "gemini",
			Temperature:    0.1,
			MaxTokens:      2048,
			MaxPromptChars: 4000,
			Timeout:        60 * time.Second,
		},
		RateLimit: RateLimit{RequestsPerSecond: 5, Burst: 10},
		Log:       Log{Level: "info"},
	}
}

// Load reads a YAML config file over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	for i, ext := range cfg.Upload.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.Upload.AllowedExtensions[i] = ext
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("FINSIGHT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FINSIGHT_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("FINSIGHT_GENERATOR"); v != "" {
		c.Generator.Mode = v
	}
	if v := os.Getenv("FINSIGHT_AI_PROVIDER"); v != "" {
		c.AI.Provider = v
	}
	if c.AI.APIKey == "" {
		switch c.AI.Provider {
		case "gemini":
			c.AI.APIKey = os.Getenv("GOOGLE_API_KEY")
		case "openai":
			c.AI.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.maxBytes must be positive"))
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("upload.allowedExtensions must not be empty"))
	}
	for _, ext := range c.Upload.AllowedExtensions {
		if !extractable[ext] {
			errs = append(errs, fmt.Errorf("upload.allowedExtensions: no extractor for %q", ext))
		}
	}
	switch c.Staging.Backend {
	case "local":
	case "minio":
		if c.Staging.Minio.Endpoint == "" || c.Staging.Minio.BucketName == "" {
			errs = append(errs, errors.New("staging.minio.endpoint and bucketName are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("staging.backend must be local or minio, got %q", c.Staging.Backend))
	}
	switch c.Generator.Mode {
	case "mock", "ai":
	default:
		errs = append(errs, fmt.Errorf("generator.mode must be mock or ai, got %q", c.Generator.Mode))
	}
	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		errs = append(errs, fmt.Errorf("ai.provider must be gemini or openai, got %q", c.AI.Provider))
	}
	if c.AI.MaxPromptChars <= 0 {
		errs = append(errs, errors.New("ai.maxPromptChars must be positive"))
	}
	if c.AI.Timeout <= 0 {
		errs = append(errs, errors.New("ai.timeout must be positive"))
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("rateLimit.requestsPerSecond must not be negative"))
	}
	return errors.Join(errs...)
}

// extensions the built-in extractors understand
var extractable = map[string]bool{".pdf": true, ".txt": true, ".md": true, ".csv": true}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
