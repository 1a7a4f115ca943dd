package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"consultdesk/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Store      StoreConfig      `yaml:"store"`
	Supabase   SupabaseConfig   `yaml:"supabase"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
}

type StoreConfig struct {
	// Backend selects the data store: supabase, postgres or sqlite.
	Backend string `yaml:"backend"`
}

type SupabaseConfig struct {
	URL            string `yaml:"url"`
	AnonKey        string `yaml:"anon_key"`
	ServiceRoleKey string `yaml:"service_role_key"`
	JWTSecret      string `yaml:"jwt_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Port         int   `yaml:"port"`
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`

	// Requests/WindowSeconds configure the shared redis window when redis is set.
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`

	// TrustedProxies lists proxy addresses or CIDRs whose X-Forwarded-For is honoured.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken     string  `yaml:"bot_token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
	Debug        bool    `yaml:"debug"`
}

type DatabaseConfig struct {
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DBName         string `yaml:"dbname"`
	SSLMode        string `yaml:"sslmode"`
	MaxConnections int    `yaml:"max_connections"`
}

// ConnString returns DSN when set, otherwise builds a URL from the parts.
func (p PostgresConfig) ConnString() string {
	if p.DSN != "" {
		return p.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(p.User, p.Password),
		Host:   fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:   "/" + p.DBName,
	}
	q := u.Query()
	if p.SSLMode != "" {
		q.Set("sslmode", p.SSLMode)
	}
	if p.MaxConnections > 0 {
		q.Set("pool_max_conns", fmt.Sprintf("%d", p.MaxConnections))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile      string `yaml:"credentials_file"`
	ConsultationsSpreadsheetID string `yaml:"consultations_spreadsheet_id"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// ${VAR} references are expanded before parsing
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnv fills hosted-store settings from the process environment when the
// file leaves them empty. The NEXT_PUBLIC_ names are what the browser bundle
// used, so deployments often only define those.
func (c *Config) applyEnv() {
	if c.Supabase.URL == "" {
		c.Supabase.URL = firstEnv("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")
	}
	if c.Supabase.AnonKey == "" {
		c.Supabase.AnonKey = firstEnv("SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY")
	}
	if c.Supabase.ServiceRoleKey == "" {
		c.Supabase.ServiceRoleKey = os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	}
	if c.Supabase.JWTSecret == "" {
		c.Supabase.JWTSecret = os.Getenv("SUPABASE_JWT_SECRET")
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSupabase:
		if c.Supabase.URL == "" {
			return errors.New("supabase url is required")
		}
		if _, err := url.ParseRequestURI(c.Supabase.URL); err != nil {
			return fmt.Errorf("supabase url is invalid: %w", err)
		}
		if c.Supabase.AnonKey == "" {
			return errors.New("supabase anon key is required")
		}
	case BackendPostgres:
		if c.Database.Postgres.DSN == "" && c.Database.Postgres.Host == "" {
			return errors.New("postgres dsn or host is required")
		}
	case BackendSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	// without the hosted auth endpoint tokens can only be checked locally
	if c.Store.Backend != BackendSupabase && c.Supabase.JWTSecret == "" && c.Supabase.URL == "" {
		return errors.New("supabase jwt secret or url is required to verify tokens")
	}

	if c.Telegram.BotToken != "" && len(c.Telegram.AdminChatIDs) == 0 {
		return errors.New("telegram admin_chat_ids is required when bot_token is set")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		if c.Supabase.URL != "" {
			c.Store.Backend = BackendSupabase
		} else {
			c.Store.Backend = BackendSQLite
		}
	}
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))

	if c.Supabase.TimeoutSeconds == 0 {
		c.Supabase.TimeoutSeconds = 10
	}
	if c.Database.Postgres.Port == 0 {
		c.Database.Postgres.Port = 5432
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.MaxBodyBytes == 0 {
		c.API.HTTP.MaxBodyBytes = 1 << 20
	}
	if c.API.RateLimit.Requests == 0 {
		c.API.RateLimit.Requests = models.RateLimitRequests
	}
	if c.API.RateLimit.WindowSeconds == 0 {
		c.API.RateLimit.WindowSeconds = models.RateLimitWindow
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.App.Name == "" {
		c.App.Name = "consultdesk"
	}
}
