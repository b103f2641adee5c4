package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CARTFLOW_"

type Config struct {
	AppEnv   string `koanf:"app_env"`
	LogLevel string `koanf:"log_level"`
	LogFile  string `koanf:"log_file"`

	GRPCPort int `koanf:"grpc_port"`
	HTTPPort int `koanf:"http_port"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	Postgres struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"postgres"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Lock struct {
		Backend string        `koanf:"backend"` // local | redis
		TTL     time.Duration `koanf:"ttl"`
		Retry   time.Duration `koanf:"retry"`
	} `koanf:"lock"`

	ProductService struct {
		BaseURL string        `koanf:"base_url"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"product_service"`

	Notifier struct {
		Backend string `koanf:"backend"` // rabbitmq | kafka
	} `koanf:"notifier"`

	Rabbit struct {
		URL        string `koanf:"url"`
		Exchange   string `koanf:"exchange"`
		RoutingKey string `koanf:"routing_key"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers []string `koanf:"brokers"`
		Topic   string   `koanf:"topic"`
	} `koanf:"kafka"`

	Outbox struct {
		Enabled     bool          `koanf:"enabled"`
		Interval    time.Duration `koanf:"interval"`
		BatchSize   int           `koanf:"batch_size"`
		MaxAttempts int           `koanf:"max_attempts"`
	} `koanf:"outbox"`

	MaxTxAttempts int `koanf:"max_tx_attempts"`
}

func Default() Config {
	var c Config
	c.AppEnv = "dev"
	c.LogLevel = "info"
	c.HTTPPort = 8080
	c.GRPCPort = 8081

	c.HTTP.ReadTimeout = 15 * time.Second
	c.HTTP.WriteTimeout = 15 * time.Second
	c.HTTP.IdleTimeout = 60 * time.Second
	c.HTTP.ShutdownTimeout = 10 * time.Second

	c.Postgres.MaxOpenConns = 20
	c.Postgres.MaxIdleConns = 5
	c.Postgres.ConnMaxLifetime = 30 * time.Minute

	c.Lock.Backend = "local"
	c.Lock.TTL = 5 * time.Second
	c.Lock.Retry = 25 * time.Millisecond

	c.ProductService.Timeout = 2 * time.Second

	c.Notifier.Backend = "rabbitmq"
	c.Rabbit.Exchange = "orders-cancel.ex"
	c.Rabbit.RoutingKey = "cancellation"
	c.Kafka.Topic = "orders.cancellation"

	c.Outbox.Interval = 5 * time.Second
	c.Outbox.BatchSize = 100
	c.Outbox.MaxAttempts = 20

	c.MaxTxAttempts = 3
	return c
}

// Load reads defaults, then the optional YAML file named by CONFIG_FILE, then
// CARTFLOW_* environment variables (nested keys separated by "__", e.g.
// CARTFLOW_POSTGRES__DSN).
func Load() (Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	return cfg, nil
}

// listKeys are read from the environment as comma separated values.
var listKeys = map[string]bool{
	"kafka.brokers": true,
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ReplaceAll(s, "__", ".")
	return strings.ToLower(s)
}

func envValue(key, value string) (string, any) {
	key = envKey(key)
	if !listKeys[key] {
		return key, value
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// Service names the binary a config is validated for.
type Service string

const (
	ServiceCart    Service = "cart"
	ServiceOrders  Service = "orders"
	ServiceCatalog Service = "catalog"
)

func (c Config) Validate(svc Service) error {
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn required")
	}
	if c.MaxTxAttempts <= 0 {
		return fmt.Errorf("max_tx_attempts must be positive")
	}

	switch svc {
	case ServiceCart:
		if c.ProductService.BaseURL == "" {
			return fmt.Errorf("product_service.base_url required")
		}
		switch c.Lock.Backend {
		case "local":
		case "redis":
			if c.Redis.Addr == "" {
				return fmt.Errorf("redis.addr required for redis lock backend")
			}
		default:
			return fmt.Errorf("unknown lock.backend %q", c.Lock.Backend)
		}
	case ServiceOrders:
		switch c.Notifier.Backend {
		case "rabbitmq":
			if c.Rabbit.URL == "" {
				return fmt.Errorf("rabbitmq.url required")
			}
		case "kafka":
			if len(c.Kafka.Brokers) == 0 {
				return fmt.Errorf("kafka.brokers required")
			}
		default:
			return fmt.Errorf("unknown notifier.backend %q", c.Notifier.Backend)
		}
	}
	return nil
}
