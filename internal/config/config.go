package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ServerConfigPath is the default server config location.
const ServerConfigPath = "config.yaml"

// ClientConfigPath is the default terminal client config location.
const ClientConfigPath = "chat.yaml"

// ServerConfig represents server configuration loaded from YAML.
type ServerConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	// DatabaseURL selects the Postgres store. When empty the server runs
	// on the in-memory store and loses everything on restart.
	DatabaseURL string `yaml:"databaseURL"`

	ModelProvider   string `yaml:"modelProvider"`
	GeminiAPIKey    string `yaml:"geminiAPIKey"`
	GenerationModel string `yaml:"generationModel"`
	OpenAIAPIKey    string `yaml:"openaiAPIKey"`
	OpenAIModel     string `yaml:"openaiModel"`

	JWKSURL     string `yaml:"jwksURL"`
	Issuer      string `yaml:"issuer"`
	Audience    string `yaml:"audience"`
	UserinfoURL string `yaml:"userinfoURL"`

	// RedisAddr enables the profile cache and the askModel rate limiter;
	// empty disables both.
	RedisAddr              string `yaml:"redisAddr"`
	ProfileCacheTTLSeconds int    `yaml:"profileCacheTTLSeconds"`

	// AskModelRateLimit caps model calls per user per window. Zero
	// disables throttling.
	AskModelRateLimit         int `yaml:"askModelRateLimit"`
	AskModelRateWindowSeconds int `yaml:"askModelRateWindowSeconds"`

	TrustedProxies []string `yaml:"trustedProxies"`
}

// ClientConfig represents terminal client configuration loaded from YAML.
type ClientConfig struct {
	ServerURL string `yaml:"serverURL"`
	Token     string `yaml:"token"`
	LogFile   string `yaml:"logFile"`
	LogLevel  string `yaml:"logLevel"`
}

// LoadServer reads server config from path (defaults to config.yaml).
func LoadServer(path string) (ServerConfig, error) {
	cfg := ServerConfig{}
	if path == "" {
		path = ServerConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("PROFILE_CACHE_TTL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse PROFILE_CACHE_TTL_SECONDS: %w", err)
		}
		cfg.ProfileCacheTTLSeconds = n
	}
	if err := validateServerConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateServerConfig(cfg ServerConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.JWKSURL == "" {
		return errors.New("config: jwksURL is required (set in config.yaml)")
	}
	if cfg.Issuer == "" {
		return errors.New("config: issuer is required (set in config.yaml)")
	}
	if cfg.Audience == "" {
		return errors.New("config: audience is required (set in config.yaml)")
	}
	if cfg.UserinfoURL == "" {
		return errors.New("config: userinfoURL is required (set in config.yaml)")
	}
	switch cfg.ModelProvider {
	case "", "gemini":
		if cfg.GeminiAPIKey == "" {
			return errors.New("config: geminiAPIKey is required (set in config.yaml or GEMINI_API_KEY)")
		}
		if cfg.GenerationModel == "" {
			return errors.New("config: generationModel is required (set in config.yaml)")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return errors.New("config: openaiAPIKey is required (set in config.yaml or OPENAI_API_KEY)")
		}
		if cfg.OpenAIModel == "" {
			return errors.New("config: openaiModel is required (set in config.yaml)")
		}
	default:
		return fmt.Errorf("config: unknown modelProvider %q (want gemini or openai)", cfg.ModelProvider)
	}
	if cfg.ProfileCacheTTLSeconds < 0 {
		return errors.New("config: profileCacheTTLSeconds must not be negative")
	}
	if cfg.AskModelRateLimit < 0 || cfg.AskModelRateWindowSeconds < 0 {
		return errors.New("config: askModel rate limit settings must not be negative")
	}
	if cfg.AskModelRateLimit > 0 && cfg.RedisAddr == "" {
		return errors.New("config: askModelRateLimit requires redisAddr")
	}
	return nil
}

// LoadClient reads client config from path (defaults to chat.yaml).
func LoadClient(path string) (ClientConfig, error) {
	cfg := ClientConfig{}
	if path == "" {
		path = ClientConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("MINICHAT_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("MINICHAT_TOKEN"); v != "" {
		cfg.Token = v
	}
	if cfg.ServerURL == "" {
		return cfg, errors.New("config: serverURL is required (set in chat.yaml or MINICHAT_SERVER_URL)")
	}
	if cfg.Token == "" {
		return cfg, errors.New("config: token is required (set in chat.yaml or MINICHAT_TOKEN)")
	}
	return cfg, nil
}
