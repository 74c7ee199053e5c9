package utils

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"bilingualmanga/pkg/database"
)

const EnvPrefix = "MANGAREADER"

type Config struct {
	DB      database.Config
	HTTP    HTTPConfig
	GRPC    GRPCConfig
	Ichiran IchiranConfig
	Segment SegmentConfig
	Anki    AnkiConfig
	Auth    AuthConfig
	Events  EventsConfig
	Log     LogConfig
}

type HTTPConfig struct {
	Addr string
}

type GRPCConfig struct {
	Addr string
}

type IchiranConfig struct {
	URL     string
	Timeout time.Duration
}

type SegmentConfig struct {
	Concurrency   int
	LocalFallback bool
}

type AnkiConfig struct {
	URL   string
	Deck  string
	Model string
	Tags  []string
}

// EventsConfig is the plain TCP event feed. An empty Addr disables it.
type EventsConfig struct {
	Addr string
}

type LogConfig struct {
	Level slog.Level
}

type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration
	// PasswordHash is a bcrypt hash. Token issuing is disabled while it is empty.
	PasswordHash string
}

func setDefaults(v *viper.Viper) {
	def := database.DefaultConfig()
	v.SetDefault("db.driver", def.Driver)
	v.SetDefault("db.dsn", def.DSN)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("ichiran.url", "http://localhost:3000")
	v.SetDefault("ichiran.timeout", 30*time.Second)
	v.SetDefault("segment.concurrency", 4)
	v.SetDefault("segment.local_fallback", true)
	v.SetDefault("anki.url", "http://localhost:8765")
	v.SetDefault("anki.deck", "Expression Mining")
	v.SetDefault("anki.model", "Basic")
	v.SetDefault("anki.tags", []string{"bilingualmanga"})
	// dev default (change for demo / production)
	v.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	v.SetDefault("auth.jwt_issuer", "bilingualmanga")
	v.SetDefault("auth.jwt_ttl", 24*time.Hour)
	v.SetDefault("auth.password_hash", "")
	v.SetDefault("events.addr", ":7070")
	v.SetDefault("log.level", "info")
}

// Load reads defaults, then the optional config file at path, then
// MANGAREADER_* environment variables (db.dsn is MANGAREADER_DB_DSN).
func Load(path string) (Config, error) {
	var level slog.Level
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := level.UnmarshalText([]byte(v.GetString("log.level"))); err != nil {
		return Config{}, fmt.Errorf("log.level: %w", err)
	}

	cfg := Config{
		DB: database.Config{
			Driver: v.GetString("db.driver"),
			DSN:    v.GetString("db.dsn"),
		},
		HTTP: HTTPConfig{Addr: v.GetString("http.addr")},
		GRPC: GRPCConfig{Addr: v.GetString("grpc.addr")},
		Ichiran: IchiranConfig{
			URL:     strings.TrimRight(v.GetString("ichiran.url"), "/"),
			Timeout: v.GetDuration("ichiran.timeout"),
		},
		Segment: SegmentConfig{
			Concurrency:   v.GetInt("segment.concurrency"),
			LocalFallback: v.GetBool("segment.local_fallback"),
		},
		Anki: AnkiConfig{
			URL:   v.GetString("anki.url"),
			Deck:  v.GetString("anki.deck"),
			Model: v.GetString("anki.model"),
			Tags:  v.GetStringSlice("anki.tags"),
		},
		Auth: AuthConfig{
			JWTSecret:    v.GetString("auth.jwt_secret"),
			JWTIssuer:    v.GetString("auth.jwt_issuer"),
			JWTDuration:  v.GetDuration("auth.jwt_ttl"),
			PasswordHash: v.GetString("auth.password_hash"),
		},
		Events: EventsConfig{Addr: v.GetString("events.addr")},
		Log:    LogConfig{Level: level},
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case database.DriverSQLite, database.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("db.driver must be %q or %q, got %q", database.DriverSQLite, database.DriverPostgres, c.DB.Driver))
	}
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("db.dsn is required"))
	}
	if c.Segment.Concurrency < 1 {
		errs = append(errs, errors.New("segment.concurrency must be at least 1"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.JWTDuration <= 0 {
		errs = append(errs, errors.New("auth.jwt_ttl must be positive"))
	}
	return errors.Join(errs...)
}
