package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName names the config directory and the environment prefix.
const AppName = "term-chat"

// EnvPrefix is prepended to environment overrides, e.g. TERM_CHAT_MODEL.
const EnvPrefix = "TERM_CHAT"

const (
	DefaultBaseURL        = "https://beta.sree.shop/v1"
	DefaultModel          = "Provider-3/gpt-4.1-mini"
	DefaultTemperature    = 0.7
	DefaultModelsFile     = "models.json"
	DefaultRequestTimeout = 60 * time.Second
	DefaultLogLevel       = "info"
)

type Config struct {
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	APIKey         string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Model          string        `mapstructure:"model" yaml:"model"`
	Temperature    float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	ModelsFile     string        `mapstructure:"models_file" yaml:"models_file"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	Log            LogConfig     `mapstructure:"log" yaml:"log"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("api_key", "")
	v.SetDefault("model", DefaultModel)
	v.SetDefault("temperature", DefaultTemperature)
	v.SetDefault("max_tokens", 0)
	v.SetDefault("models_file", DefaultModelsFile)
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.file", "")
}

// Load reads config.yaml from the user config dir (or the working directory),
// applies TERM_CHAT_* environment overrides and resolves secrets.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path searches the
// default locations; a missing file is not an error.
func LoadFile(path string) (*Config, error) {
	v := newViper(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := read(v, path)
	if err != nil {
		return nil, err
	}

	if cfg.BaseURL, err = ResolveValue(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("base_url: %w", err)
	}
	if cfg.APIKey, err = ResolveValue(cfg.APIKey); err != nil {
		return nil, fmt.Errorf("api_key: %w", err)
	}

	// TERM_CHAT_API_KEY is already covered by AutomaticEnv.
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return cfg, nil
}

// LoadRaw reads the file as written, over the defaults. Secret references
// stay unresolved and environment overrides are ignored, so the result is
// safe to edit and save back.
func LoadRaw(path string) (*Config, error) {
	return read(newViper(path), path)
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		return v
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := Dir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")
	return v
}

func read(v *viper.Viper, path string) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(path != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings that would make every request fail.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is not configured")
	}
	if c.APIKey == "" {
		return fmt.Errorf("no API key configured. Set api_key in %s or %s_API_KEY", configFileName, EnvPrefix)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", c.Temperature)
	}
	return nil
}

const configFileName = "config.yaml"

// Dir returns the directory holding the config file.
func Dir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config dir: %w", err)
	}
	return filepath.Join(configDir, AppName), nil
}

// GetConfigPath returns the path where the config file should be located
func GetConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// DefaultLogPath is where the chat UI writes its log when log.file is unset.
func DefaultLogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName+".log"), nil
}

// Exists returns true if a config file exists
func Exists() bool {
	path, err := GetConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// SaveFile writes cfg as YAML to path, creating its directory.
func SaveFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	header := "# term-chat configuration. Values may reference ${ENV_VARS}, $(commands) or op:// secrets.\n"
	return os.WriteFile(path, append([]byte(header), data...), 0600)
}
