package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("dataport version %s, commit %s, built at %s", version, commit, date)
}

const envPrefix = "DATAPORT"

type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
}

// APIConfig describes how to reach the DataPort REST API.
type APIConfig struct {
	BaseURL          string            `mapstructure:"base_url" validate:"required,url"`
	HealthURL        string            `mapstructure:"health_url" validate:"omitempty,url"`
	LoginPath        string            `mapstructure:"login_path" validate:"required,startswith=/"`
	LogoutPath       string            `mapstructure:"logout_path" validate:"required,startswith=/"`
	RefreshPath      string            `mapstructure:"refresh_path" validate:"required,startswith=/"`
	MePath           string            `mapstructure:"me_path" validate:"required,startswith=/"`
	SchemaURL        string            `mapstructure:"schema_url" validate:"omitempty,url"`
	Timeout          time.Duration     `mapstructure:"timeout" validate:"gte=0"`
	RefreshBuffer    time.Duration     `mapstructure:"refresh_buffer" validate:"gte=0"`
	ProactiveRefresh bool              `mapstructure:"proactive_refresh"`
	Headers          map[string]string `mapstructure:"headers"`
}

// StorageBackend selects where credentials are persisted.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageFile   StorageBackend = "file"
	StorageSQLite StorageBackend = "sqlite"
	StorageRedis  StorageBackend = "redis"
	// StorageNone disables persistence entirely; the token store becomes a no-op.
	StorageNone StorageBackend = "none"
)

type StorageConfig struct {
	Backend    StorageBackend `mapstructure:"backend" validate:"oneof=memory file sqlite redis none"`
	FilePath   string         `mapstructure:"file_path" validate:"required_if=Backend file"`
	SQLitePath string         `mapstructure:"sqlite_path" validate:"required_if=Backend sqlite"`
	Redis      RedisConfig    `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
	Prefix   string `mapstructure:"prefix"`
}

type SessionConfig struct {
	// LoginPath is where the user agent is sent after a forced logout.
	LoginPath string `mapstructure:"login_path" validate:"required"`
}

type ServerMode string

const (
	ServerModeSSE   ServerMode = "sse"
	ServerModeSTDIO ServerMode = "stdio"
	ServerModeHTTP  ServerMode = "http"
)

type ServerConfig struct {
	Port          int        `mapstructure:"port" validate:"gte=0,lte=65535"`
	Host          string     `mapstructure:"host"`
	Mode          ServerMode `mapstructure:"mode" validate:"oneof=sse stdio http"`
	Name          string     `mapstructure:"name"`
	Version       string     `mapstructure:"version"`
	SchemaFile    string     `mapstructure:"schema_file"`
	SelectionFile string     `mapstructure:"selection_file"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level" validate:"oneof=debug info warn error dpanic panic fatal"`
	Format            string `mapstructure:"format" validate:"omitempty,oneof=json console"`
	Color             bool   `mapstructure:"color"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	OutputPath        string `mapstructure:"output_path"`
	AppendToFile      bool   `mapstructure:"append_to_file"`
	DisableConsole    bool   `mapstructure:"disable_console"`
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"api-url":   "api.base_url",
	"storage":   "storage.backend",
	"log-level": "logging.level",
	"log-file":  "logging.output_path",
	"mode":      "server.mode",
	"schema":    "server.schema_file",
	"selection": "server.selection_file",
}

// InitFlags registers the configuration flags on fs (without parsing)
func InitFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "Path to a config.yaml file")
	fs.String("api-url", "", "DataPort API base URL (e.g. http://localhost:8000/api/v1)")
	fs.String("storage", "", "Credential storage backend (memory|file|sqlite|redis|none)")
	fs.String("log-level", "", "Log level (debug|info|warn|error)")
	fs.String("log-file", "", "Write logs to this file")
	fs.String("mode", "", "MCP server mode (stdio|sse|http)")
	fs.String("schema", "", "Path to a local OpenAPI schema file")
	fs.String("selection", "", "Path to a YAML file selecting exposed routes")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dataport"
	}
	return filepath.Join(home, ".dataport")
}

func setDefaults(v *viper.Viper) {
	dataDir := defaultDataDir()

	v.SetDefault("api.base_url", "http://localhost:8000/api/v1")
	v.SetDefault("api.health_url", "")
	v.SetDefault("api.login_path", "/auth/login")
	v.SetDefault("api.logout_path", "/auth/logout")
	v.SetDefault("api.refresh_path", "/auth/refresh")
	v.SetDefault("api.me_path", "/users/me/")
	v.SetDefault("api.schema_url", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.refresh_buffer", 5*time.Minute)
	v.SetDefault("api.proactive_refresh", false)
	v.SetDefault("api.headers", map[string]string{})

	v.SetDefault("storage.backend", string(StorageFile))
	v.SetDefault("storage.file_path", filepath.Join(dataDir, "credentials.json"))
	v.SetDefault("storage.sqlite_path", filepath.Join(dataDir, "credentials.db"))
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "dataport:")

	v.SetDefault("session.login_path", "/login")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
	v.SetDefault("logging.disable_stacktrace", true)
	v.SetDefault("logging.output_path", "")
	v.SetDefault("logging.append_to_file", true)
	v.SetDefault("logging.disable_console", false)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.mode", string(ServerModeSTDIO))
	v.SetDefault("server.name", "DataPort MCP")
	v.SetDefault("server.version", version)
	v.SetDefault("server.schema_file", "")
	v.SetDefault("server.selection_file", "")
}

// Load resolves the configuration from defaults, config.yaml, .env, the environment
// and the flags in fs, in increasing order of precedence. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := readConfigFile(v, fs); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper, fs *pflag.FlagSet) error {
	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			return nil
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath(defaultDataDir())
	v.AddConfigPath("/etc/dataport")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Validate checks the struct tags of the configuration.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// HealthBaseURL returns the root the health endpoints hang off. When unset it is
// derived from the API base URL by dropping the /api[/vN] suffix.
func (a APIConfig) HealthBaseURL() string {
	if a.HealthURL != "" {
		return strings.TrimRight(a.HealthURL, "/")
	}
	base := strings.TrimRight(a.BaseURL, "/")
	if i := strings.LastIndex(base, "/api"); i >= 0 {
		return base[:i]
	}
	return base
}

// SchemaLocation returns the OpenAPI schema URL, defaulting to {root}/api/schema/.
func (a APIConfig) SchemaLocation() string {
	if a.SchemaURL != "" {
		return a.SchemaURL
	}
	return a.HealthBaseURL() + "/api/schema/"
}
