package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel      int    `yaml:"log_level"`
	LogFile       string `yaml:"log_file"`
	DataDir       string `yaml:"data_dir" validate:"required"`
	FileExtension string `yaml:"file_extension" validate:"oneof=mp3 m4a flac wav"`
	Tagger        string `yaml:"tagger" validate:"oneof=id3 ffmpeg"`

	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Retention RetentionConfig `yaml:"retention"`
}

type ServerConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`
}

type StorageConfig struct {
	// Type of storage: "local", "gcs" or "minio"
	Type string `yaml:"type" validate:"oneof=local gcs minio"`

	// Local storage options
	OutputDir string `yaml:"output_dir" validate:"required"`

	// Bucket storage options (gcs, minio)
	Bucket          string `yaml:"bucket" validate:"required_unless=Type local"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
	PublicBaseURL   string `yaml:"public_base_url"`

	// MinIO options
	Endpoint  string `yaml:"endpoint" validate:"required_if=Type minio"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type FetchConfig struct {
	YtDlpPath  string        `yaml:"ytdlp_path"`
	FFmpegPath string        `yaml:"ffmpeg_path"`
	Timeout    time.Duration `yaml:"timeout"`
}

type RetentionConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	ReadyTTL time.Duration `yaml:"ready_ttl"`
	Schedule string        `yaml:"schedule"`
}

func Load(path string) (*Config, error) {
	// A missing .env is fine, the environment may already be populated.
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config

	// Unmarshal the YAML data into the struct
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	config.applyEnv()
	config.setDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv()
	cfg.setDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"DATA_DIR":         &c.DataDir,
		"PORT":             &c.Server.Port,
		"STORAGE_TYPE":     &c.Storage.Type,
		"GCS_BUCKET":       &c.Storage.Bucket,
		"MINIO_ENDPOINT":   &c.Storage.Endpoint,
		"MINIO_ACCESS_KEY": &c.Storage.AccessKey,
		"MINIO_SECRET_KEY": &c.Storage.SecretKey,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*field = v
		}
	}
}

func (c *Config) setDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}

	if c.FileExtension == "" {
		c.FileExtension = "mp3"
	}

	if c.Tagger == "" {
		c.Tagger = "id3"
	}

	// Set defaults if not provided
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}

	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "output"
	}

	if c.Fetch.YtDlpPath == "" {
		c.Fetch.YtDlpPath = "yt-dlp"
	}

	if c.Fetch.FFmpegPath == "" {
		c.Fetch.FFmpegPath = "ffmpeg"
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 30 * time.Minute
	}

	if c.Retention.TTL == 0 {
		c.Retention.TTL = 24 * time.Hour
	}

	if c.Retention.ReadyTTL == 0 {
		c.Retention.ReadyTTL = 7 * 24 * time.Hour
	}

	if c.Retention.Schedule == "" {
		c.Retention.Schedule = "@every 2h"
	}
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
