package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load builds the configuration from, lowest priority first:
//  1. defaults
//  2. the YAML file named by NOTES_CONFIG_FILE, when set
//  3. environment variables
func Load() (*Config, error) {
	cfg := Defaults(getEnvironment())
	cfg.LoadedFrom = append(cfg.LoadedFrom, "defaults")

	if path := os.Getenv("NOTES_CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.File = path
		cfg.LoadedFrom = append(cfg.LoadedFrom, path)
	}

	loadEnvironmentVariables(cfg)
	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Defaults returns a configuration that runs locally without any setup.
func Defaults(env Environment) *Config {
	return &Config{
		Environment: env,
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Store: Store{
			Backend:     BackendMemory,
			SQLitePath:  "notes.db",
			AWSRegion:   "us-east-1",
			CallTimeout: 10 * time.Second,
		},
		Groq: Groq{
			Model: "llama3-70b-8192",
		},
		Observability: Observability{
			Namespace:     "notes",
			EnableMetrics: true,
		},
		Client: Client{
			APIURL: "http://localhost:8080",
		},
		Dynamic: Dynamic{
			LogLevel:           "info",
			SummariesPerMinute: 30,
			SummariesEnabled:   true,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func loadEnvironmentVariables(cfg *Config) {
	setString(&cfg.Server.Address, "SERVER_ADDRESS")
	setBool(&cfg.Server.IsLambda, "IS_LAMBDA")
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		cfg.Server.AllowedOrigins = splitList(val)
	}

	setString(&cfg.Store.Backend, "STORE_BACKEND")
	setString(&cfg.Store.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Store.AWSRegion, "AWS_REGION")
	setString(&cfg.Store.TableName, "TABLE_NAME")
	setDuration(&cfg.Store.CallTimeout, "NOTES_CALL_TIMEOUT")

	setString(&cfg.Supabase.URL, "SUPABASE_URL")
	setString(&cfg.Supabase.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")
	setString(&cfg.Supabase.AnonKey, "SUPABASE_ANON_KEY")
	setString(&cfg.Supabase.JWTSecret, "SUPABASE_JWT_SECRET")

	setString(&cfg.Groq.APIKey, "GROQ_API_KEY")
	setString(&cfg.Groq.Model, "GROQ_MODEL")
	setString(&cfg.Groq.BaseURL, "GROQ_BASE_URL")

	setBool(&cfg.Events.Enabled, "ENABLE_EVENTS")
	setString(&cfg.Events.BusName, "EVENT_BUS_NAME")

	setBool(&cfg.Observability.EnableMetrics, "ENABLE_METRICS")
	setBool(&cfg.Observability.EnableTracing, "ENABLE_TRACING")
	setString(&cfg.Observability.OTLPEndpoint, "OTLP_ENDPOINT")

	setString(&cfg.Client.APIURL, "NOTES_API_URL")
	setString(&cfg.Client.StateDir, "NOTES_STATE_DIR")

	setString(&cfg.Dynamic.LogLevel, "LOG_LEVEL")
	setInt(&cfg.Dynamic.SummariesPerMinute, "SUMMARIES_PER_MINUTE")
	setBool(&cfg.Dynamic.SummariesEnabled, "ENABLE_SUMMARIES")
}

func getEnvironment() Environment {
	switch strings.ToLower(os.Getenv("ENVIRONMENT")) {
	case "production", "prod":
		return Production
	case "staging", "stage":
		return Staging
	default:
		return Development
	}
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

// Unparseable values keep the current setting.
func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
