package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gophertribe/voxnote/pkg/storage"
)

// Config is the explicit service configuration. Secrets may be left out of
// the file and supplied via environment variables instead.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	DBPath string `yaml:"db_path"`

	Deepgram struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"deepgram"`

	AI struct {
		Provider string `yaml:"provider"` // anthropic, gemini, openai, moonshot
		APIKey   string `yaml:"api_key"`
	} `yaml:"ai"`

	Storage struct {
		PreferLocal bool   `yaml:"prefer_local"`
		ForceRemote bool   `yaml:"force_remote"`
		LocalDir    string `yaml:"local_dir"`
		S3          struct {
			Bucket          string `yaml:"bucket"`
			Region          string `yaml:"region"`
			AccessKeyID     string `yaml:"access_key_id"`
			SecretAccessKey string `yaml:"secret_access_key"`
		} `yaml:"s3"`
	} `yaml:"storage"`

	Calendar struct {
		CredentialsFile string `yaml:"credentials_file"`
		CalendarID      string `yaml:"calendar_id"`
	} `yaml:"calendar"`

	Telegram struct {
		Token string `yaml:"token"`
	} `yaml:"telegram"`

	Discord struct {
		Token string `yaml:"token"`
	} `yaml:"discord"`

	Git struct {
		Enabled     bool   `yaml:"enabled"`
		AuthorName  string `yaml:"author_name"`
		AuthorEmail string `yaml:"author_email"`
	} `yaml:"git"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Port = "8080"
	cfg.DBPath = "voxnote.db"
	cfg.AI.Provider = "anthropic"
	cfg.Storage.LocalDir = filepath.Join("data", "notes")
	return cfg
}

// Load reads the YAML config file and applies environment overrides. A
// missing file is not an error: everything can come from env.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

var providerKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"moonshot":  "MOONSHOT_API_KEY",
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Deepgram.APIKey, "DEEPGRAM_API_KEY")
	if envKey, ok := providerKeyEnv[c.AI.Provider]; ok {
		setFromEnv(&c.AI.APIKey, envKey)
	}
	setFromEnv(&c.Storage.S3.Bucket, "AWS_S3_BUCKET")
	setFromEnv(&c.Storage.S3.Region, "AWS_REGION")
	setFromEnv(&c.Storage.S3.AccessKeyID, "AWS_ACCESS_KEY_ID")
	setFromEnv(&c.Storage.S3.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	setFromEnv(&c.Telegram.Token, "TELEGRAM_TOKEN")
	setFromEnv(&c.Discord.Token, "DISCORD_TOKEN")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// StorageConfig maps the config onto the storage policy value object.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		PreferLocal:     c.Storage.PreferLocal,
		ForceRemote:     c.Storage.ForceRemote,
		LocalDir:        c.Storage.LocalDir,
		Bucket:          c.Storage.S3.Bucket,
		Region:          c.Storage.S3.Region,
		AccessKeyID:     c.Storage.S3.AccessKeyID,
		SecretAccessKey: c.Storage.S3.SecretAccessKey,
	}
}
