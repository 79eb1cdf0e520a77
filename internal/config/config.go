package config

import (
	"fmt"
	"net"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
)

type Config struct {
	LogLevel   string `yaml:"log-level" env:"TTT_LOG_LEVEL" env-default:"info"`
	ListenHost string `yaml:"listen-host" env:"TTT_LISTEN_HOST" env-default:"127.0.0.1"`
	HTTPPort   string `yaml:"http-port" env:"TTT_HTTP_PORT" env-default:"9090"`
	SocketPort string `yaml:"socket-port" env:"TTT_SOCKET_PORT" env-default:"9091"`
	Storage    string `yaml:"storage" env:"TTT_STORAGE" env-default:"memory"`
	Redis      Redis  `yaml:"redis"`
	Bot        Bot    `yaml:"bot"`
}

type Redis struct {
	Host       string        `yaml:"host" env:"TTT_REDIS_HOST" env-default:"localhost"`
	Port       string        `yaml:"port" env:"TTT_REDIS_PORT" env-default:"6379"`
	SessionTTL time.Duration `yaml:"session-ttl" env:"TTT_REDIS_SESSION_TTL" env-default:"24h"`
}

type Bot struct {
	ThinkDelay time.Duration `yaml:"think-delay" env:"TTT_BOT_THINK_DELAY" env-default:"0s"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load - reads the config file, applies env overrides and validates the result.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	switch that.Storage {
	case StorageMemory, StorageRedis:
	default:
		return fmt.Errorf("unknown storage %q", that.Storage)
	}

	if that.Bot.ThinkDelay < 0 {
		return fmt.Errorf("bot think-delay must not be negative, got %s", that.Bot.ThinkDelay)
	}

	return nil
}

func (that *Config) HTTPAddr() string {
	return net.JoinHostPort(that.ListenHost, that.HTTPPort)
}

func (that *Config) SocketAddr() string {
	return net.JoinHostPort(that.ListenHost, that.SocketPort)
}

func (that *Redis) GetRedisAddr() string {
	return net.JoinHostPort(that.Host, that.Port)
}
