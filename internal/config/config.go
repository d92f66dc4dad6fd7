package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port          string         `yaml:"port"`
	GinMode       string         `yaml:"gin_mode"`
	FeaturedLimit int            `yaml:"featured_limit"`
	SecurityLog   string         `yaml:"security_log"`
	Database      DatabaseConfig `yaml:"database"`
	Session       SessionConfig  `yaml:"session"`
	Events        EventsConfig   `yaml:"events"`
	SMTP          SMTPConfig     `yaml:"smtp"`
	TLS           TLSConfig      `yaml:"tls"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

type SessionConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
	SecureCookie  bool          `yaml:"secure_cookie"`
}

type EventsConfig struct {
	Backend      string `yaml:"backend"`
	KafkaBrokers string `yaml:"kafka_brokers"`
	KafkaTopic   string `yaml:"kafka_topic"`
	AMQPURL      string `yaml:"amqp_url"`
}

type SMTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`
	Pass string `yaml:"pass"`
	From string `yaml:"from"`
}

type TLSConfig struct {
	SelfSigned bool   `yaml:"self_signed"`
	HTTPSPort  string `yaml:"https_port"`
	CertFile   string `yaml:"cert_file"`
	KeyFile    string `yaml:"key_file"`
}

// Default returns the settings used for local development.
func Default() Config {
	return Config{
		Port:          "5000",
		GinMode:       "release",
		FeaturedLimit: 8,
		SecurityLog:   "security.log",
		Database:      DatabaseConfig{Driver: "sqlite3", URL: "loja_online.db"},
		Session:       SessionConfig{TTL: 24 * time.Hour},
		Events:        EventsConfig{Backend: "none", KafkaTopic: "loja.order.placed"},
		SMTP:          SMTPConfig{Host: "smtp.gmail.com", Port: 587},
		TLS:           TLSConfig{HTTPSPort: "8443", CertFile: "localhost.crt", KeyFile: "localhost.key"},
	}
}

// Load reads the optional YAML file at path on top of the defaults and then
// applies environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

type lookupFunc func(string) (string, bool)

func getenv(lookup lookupFunc, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (c *Config) applyEnv(lookup lookupFunc) error {
	c.Port = getenv(lookup, "PORT", c.Port)
	c.GinMode = getenv(lookup, "GIN_MODE", c.GinMode)
	c.SecurityLog = getenv(lookup, "SECURITY_LOG", c.SecurityLog)
	c.Database.Driver = getenv(lookup, "DATABASE_DRIVER", c.Database.Driver)
	c.Database.URL = getenv(lookup, "DATABASE_URL", c.Database.URL)
	c.Session.RedisAddr = getenv(lookup, "REDIS_ADDR", c.Session.RedisAddr)
	c.Session.RedisPassword = getenv(lookup, "REDIS_PASSWORD", c.Session.RedisPassword)
	c.Events.Backend = getenv(lookup, "EVENTS_BACKEND", c.Events.Backend)
	c.Events.KafkaBrokers = getenv(lookup, "KAFKA_BROKERS", c.Events.KafkaBrokers)
	c.Events.AMQPURL = getenv(lookup, "AMQP_URL", c.Events.AMQPURL)
	c.SMTP.Host = getenv(lookup, "SMTP_HOST", c.SMTP.Host)
	c.SMTP.User = getenv(lookup, "SMTP_USER", c.SMTP.User)
	c.SMTP.Pass = getenv(lookup, "SMTP_PASS", c.SMTP.Pass)
	c.TLS.HTTPSPort = getenv(lookup, "HTTPS_PORT", c.TLS.HTTPSPort)
	c.TLS.CertFile = getenv(lookup, "TLS_CERT_FILE", c.TLS.CertFile)
	c.TLS.KeyFile = getenv(lookup, "TLS_KEY_FILE", c.TLS.KeyFile)

	var errs []error
	if v := getenv(lookup, "SESSION_TTL", ""); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SESSION_TTL: %w", err))
		} else {
			c.Session.TTL = ttl
		}
	}
	if v := getenv(lookup, "SMTP_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SMTP_PORT: %w", err))
		} else {
			c.SMTP.Port = port
		}
	}
	if v := getenv(lookup, "FEATURED_LIMIT", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FEATURED_LIMIT: %w", err))
		} else {
			c.FeaturedLimit = n
		}
	}
	if v := getenv(lookup, "TLS_SELF_SIGNED", ""); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("TLS_SELF_SIGNED: %w", err))
		} else {
			c.TLS.SelfSigned = b
		}
	}
	return errors.Join(errs...)
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite3", "sqlite":
	case "postgres", "pgx":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database url is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	switch c.Events.Backend {
	case "none", "":
	case "kafka":
		if strings.TrimSpace(c.Events.KafkaBrokers) == "" {
			errs = append(errs, errors.New("kafka backend needs KAFKA_BROKERS"))
		}
	case "rabbitmq":
		if c.Events.AMQPURL == "" {
			errs = append(errs, errors.New("rabbitmq backend needs AMQP_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown events backend %q", c.Events.Backend))
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		errs = append(errs, fmt.Errorf("unknown gin mode %q", c.GinMode))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive"))
	}
	return errors.Join(errs...)
}
