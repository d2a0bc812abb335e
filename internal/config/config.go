package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for Patient Explorer.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Matching  MatchingConfig  `yaml:"matching"`
	Directory DirectoryConfig `yaml:"directory"`
	Consent   ConsentConfig   `yaml:"consent"`
	Audit     AuditConfig     `yaml:"audit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

// MatchingConfig holds the matching engine thresholds.
type MatchingConfig struct {
	DefaultRegion        string  `yaml:"default_region"`
	NameHighThreshold    int     `yaml:"name_high_threshold"`
	NameMediumThreshold  int     `yaml:"name_medium_threshold"`
	AutoAcceptConfidence float64 `yaml:"auto_accept_confidence"`
	PhonelessNamePenalty float64 `yaml:"phoneless_name_penalty"`
}

// DirectoryConfig holds contact directory API configuration.
type DirectoryConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	PageSize       int    `yaml:"page_size"`
}

// ConsentConfig holds SMS outreach consent configuration.
type ConsentConfig struct {
	ExpirationDays int      `yaml:"expiration_days"`
	OptInKeywords  []string `yaml:"opt_in_keywords"`
	OptOutKeywords []string `yaml:"opt_out_keywords"`
}

// AuditConfig holds audit logging configuration.
type AuditConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// Load loads configuration from a YAML file, expanding environment
// variables in the file body first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := LoadFromEnv()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables with
// sensible defaults.
func LoadFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnvInt("PORT", 3010),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Matching: MatchingConfig{
			DefaultRegion:        getEnv("MATCH_DEFAULT_REGION", "US"),
			NameHighThreshold:    getEnvInt("MATCH_NAME_HIGH_THRESHOLD", 90),
			NameMediumThreshold:  getEnvInt("MATCH_NAME_MEDIUM_THRESHOLD", 75),
			AutoAcceptConfidence: getEnvFloat("MATCH_AUTO_ACCEPT_CONFIDENCE", 0.90),
			PhonelessNamePenalty: getEnvFloat("MATCH_PHONELESS_NAME_PENALTY", 0.8),
		},
		Directory: DirectoryConfig{
			BaseURL:        getEnv("DIRECTORY_BASE_URL", ""),
			APIToken:       getEnv("DIRECTORY_API_TOKEN", ""),
			TimeoutSeconds: getEnvInt("DIRECTORY_TIMEOUT_SECONDS", 30),
			PageSize:       getEnvInt("DIRECTORY_PAGE_SIZE", 100),
		},
		Consent: ConsentConfig{
			ExpirationDays: getEnvInt("CONSENT_EXPIRATION_DAYS", 365),
			OptInKeywords:  []string{"YES", "START", "UNSTOP"},
			OptOutKeywords: []string{"STOP", "STOPALL", "UNSUBSCRIBE", "CANCEL", "END", "QUIT"},
		},
		Audit: AuditConfig{
			Enabled:       getEnvBool("AUDIT_ENABLED", true),
			RetentionDays: getEnvInt("AUDIT_RETENTION_DAYS", 2190), // 6 years
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
