package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Lifecycle LifecycleConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Events    EventsConfig
}

type HTTPConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	// Driver selects the store: postgres, or memory for a single-node dev run
	Driver         string
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
	Migrate        bool
}

// DSN builds the postgres url used by both pgxpool and golang-migrate
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

type LifecycleConfig struct {
	// Interval between ticks in continuous mode
	Interval time.Duration
	// Once runs a single tick and exits (batch mode)
	Once    bool
	LockTTL time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
}

type EventsConfig struct {
	BufferSize int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":9000")
	v.SetDefault("http.shutdown_timeout", 5*time.Second)

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "atlas")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.migrations_path", "file://internal/shared/db/migrations/sql")
	v.SetDefault("db.migrate", true)

	v.SetDefault("lifecycle.interval", time.Second)
	v.SetDefault("lifecycle.once", false)
	v.SetDefault("lifecycle.lock_ttl", 10*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "auction-events")

	v.SetDefault("events.buffer_size", 256)
}

// Load reads .env (if present), environment variables and command line flags,
// in increasing order of precedence. Keys map to env vars by upper-casing and
// replacing dots, so db.host is DB_HOST.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fs := pflag.NewFlagSet("atlas", pflag.ContinueOnError)
	fs.Bool("once", false, "run a single lifecycle tick and exit")
	fs.String("addr", "", "HTTP listen address")
	fs.Duration("interval", 0, "lifecycle polling interval")
	fs.Bool("migrate", true, "run database migrations on start")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parse flags: %w", err)
	}
	bindings := map[string]string{
		"lifecycle.once":     "once",
		"http.addr":          "addr",
		"lifecycle.interval": "interval",
		"db.migrate":         "migrate",
	}
	for key, flag := range bindings {
		f := fs.Lookup(flag)
		if !f.Changed {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return nil, fmt.Errorf("config: bind flag %s: %w", flag, err)
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:            v.GetString("http.addr"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Driver:         v.GetString("db.driver"),
			Host:           v.GetString("db.host"),
			Port:           v.GetString("db.port"),
			User:           v.GetString("db.user"),
			Password:       v.GetString("db.password"),
			Name:           v.GetString("db.name"),
			SSLMode:        v.GetString("db.sslmode"),
			MaxConns:       v.GetInt32("db.max_conns"),
			MigrationsPath: v.GetString("db.migrations_path"),
			Migrate:        v.GetBool("db.migrate"),
		},
		Lifecycle: LifecycleConfig{
			Interval: v.GetDuration("lifecycle.interval"),
			Once:     v.GetBool("lifecycle.once"),
			LockTTL:  v.GetDuration("lifecycle.lock_ttl"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("kafka.enabled"),
			Brokers: splitList(v.GetString("kafka.brokers")),
			Topic:   v.GetString("kafka.topic"),
		},
		Events: EventsConfig{
			BufferSize: v.GetInt("events.buffer_size"),
		},
	}

	if cfg.Lifecycle.Interval <= 0 {
		return nil, fmt.Errorf("config: lifecycle interval must be positive, got %s", cfg.Lifecycle.Interval)
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "memory" {
		return nil, fmt.Errorf("config: unknown db driver %q", cfg.Database.Driver)
	}
	if cfg.Events.BufferSize < 1 {
		return nil, fmt.Errorf("config: events buffer size must be positive, got %d", cfg.Events.BufferSize)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
