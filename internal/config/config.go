package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Transport names accepted by the transport key.
const (
	TransportPolling = "polling"
	TransportRelay   = "relay"
)

type Config struct {
	LogLevel     string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPAddr     string        `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080"`
	Redis        Redis         `yaml:"redis"`
	SQLitePath   string        `yaml:"sqlite-path" env:"SQLITE_PATH" env-default:"tictactoe.db"`
	JWTSecret    string        `yaml:"jwt-secret" env:"JWT_SECRET" env-default:"change-me"`
	Transport    string        `yaml:"transport" env:"TRANSPORT" env-default:"polling"`
	AIDelay      time.Duration `yaml:"ai-delay" env:"AI_DELAY" env-default:"500ms"`
	PollInterval time.Duration `yaml:"poll-interval" env:"POLL_INTERVAL" env-default:"1s"`
	SessionTTL   time.Duration `yaml:"session-ttl" env:"SESSION_TTL" env-default:"1h"`
	SeatTTL      time.Duration `yaml:"seat-ttl" env:"SEAT_TTL" env-default:"24h"`
	Telemetry    Telemetry     `yaml:"telemetry"`
}

type Redis struct {
	// Addr is empty when sessions live in process memory.
	Addr string `yaml:"addr" env:"REDIS_ADDR"`
}

type Telemetry struct {
	Enabled  bool   `yaml:"enabled" env:"OTEL_ENABLED" env-default:"false"`
	Endpoint string `yaml:"endpoint" env:"OTEL_ENDPOINT" env-default:"otel-collector:4317"`
}

// Load reads the config file at path, then applies environment overrides.
// An empty path reads the environment only.
func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(config)
	} else {
		err = cleanenv.ReadConfig(path, config)
	}
	if err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("unable to load config file: %w", err))
	}

	return config
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportPolling:
	case TransportRelay:
		if c.Redis.Addr == "" {
			return fmt.Errorf("transport %q needs redis.addr", c.Transport)
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive, got %s", c.PollInterval)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session-ttl must be positive, got %s", c.SessionTTL)
	}
	return nil
}

// UseRedis reports whether sessions are stored in redis.
func (c *Config) UseRedis() bool {
	return c.Redis.Addr != ""
}
