// Package config loads the settings shared by the API server and the CLI.
package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
	BackendSupabase = "supabase"
)

type Config struct {
	Environment   Environment   `yaml:"environment"`
	Server        Server        `yaml:"server"`
	Store         Store         `yaml:"store"`
	Supabase      Supabase      `yaml:"supabase"`
	Groq          Groq          `yaml:"groq"`
	Events        Events        `yaml:"events"`
	Observability Observability `yaml:"observability"`
	Client        Client        `yaml:"client"`
	Dynamic       Dynamic       `yaml:"dynamic"`

	// File is the YAML overlay that was applied, if any.
	File string `yaml:"-"`
	// LoadedFrom lists the sources in the order they were applied.
	LoadedFrom []string `yaml:"-"`
}

type Server struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	IsLambda        bool          `yaml:"is_lambda"`
}

type Store struct {
	Backend     string        `yaml:"backend"`
	SQLitePath  string        `yaml:"sqlite_path"`
	AWSRegion   string        `yaml:"aws_region"`
	TableName   string        `yaml:"table_name"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

type Supabase struct {
	URL            string `yaml:"url"`
	ServiceRoleKey string `yaml:"service_role_key"`
	AnonKey        string `yaml:"anon_key"`
	JWTSecret      string `yaml:"jwt_secret"`
}

type Groq struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type Events struct {
	Enabled bool   `yaml:"enabled"`
	BusName string `yaml:"bus_name"`
}

type Observability struct {
	Namespace     string `yaml:"namespace"`
	EnableMetrics bool   `yaml:"enable_metrics"`
	EnableTracing bool   `yaml:"enable_tracing"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
}

// Client configures the CLI.
type Client struct {
	APIURL   string `yaml:"api_url"`
	StateDir string `yaml:"state_dir"`
}

// Dynamic holds the settings that can change while the process runs.
type Dynamic struct {
	LogLevel           string `yaml:"log_level"`
	SummariesPerMinute int    `yaml:"summaries_per_minute"`
	SummariesEnabled   bool   `yaml:"summaries_enabled"`
}

// Validate checks the settings the selected backend and features need.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("unknown environment %q", c.Environment))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for the sqlite backend"))
		}
	case BackendDynamoDB:
		if c.Store.TableName == "" {
			errs = append(errs, errors.New("TABLE_NAME is required for the dynamodb backend"))
		}
		if c.Store.AWSRegion == "" {
			errs = append(errs, errors.New("AWS_REGION is required for the dynamodb backend"))
		}
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if c.Store.CallTimeout <= 0 {
		errs = append(errs, errors.New("NOTES_CALL_TIMEOUT must be positive"))
	}
	if c.Events.Enabled && c.Events.BusName == "" {
		errs = append(errs, errors.New("EVENT_BUS_NAME is required when events are enabled"))
	}
	if c.Observability.EnableTracing && c.Observability.OTLPEndpoint == "" {
		errs = append(errs, errors.New("OTLP_ENDPOINT is required when tracing is enabled"))
	}
	if c.Server.Address == "" && !c.Server.IsLambda {
		errs = append(errs, errors.New("SERVER_ADDRESS is required"))
	}
	if err := c.Dynamic.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (d Dynamic) Validate() error {
	if d.SummariesPerMinute < 0 {
		return fmt.Errorf("SUMMARIES_PER_MINUTE must not be negative, got %d", d.SummariesPerMinute)
	}
	if d.LogLevel != "" {
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(d.LogLevel)); err != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q", d.LogLevel)
		}
	}
	return nil
}

// AuthConfigured reports whether the server can verify bearer tokens.
func (c *Config) AuthConfigured() bool {
	return c.Supabase.JWTSecret != "" || (c.Supabase.URL != "" && c.Supabase.AnonKey != "")
}
