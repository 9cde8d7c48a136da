// config - источник загрузки конфигурации фронтенд-гейтвея web-ads.
//
// Источники (по убыванию приоритета):
//  1. явный путь --config;
//  2. CONFIG_PATH;
//  3. ./local.yaml;
//  4. только ENV (cleanenv).
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Драйверы хранилища refresh-токена.
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	API      APIConfig     `yaml:"api"`
	Auth     AuthConfig    `yaml:"auth"`
	Storage  StorageConfig `yaml:"storage"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig - таймауты: входящего запроса UI, одной попытки к апстриму
// и стартовой инициализации сессии.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service"  env:"SERVICE"          env-default:"15s"`
	Upstream time.Duration `yaml:"upstream" env:"UPSTREAM_TIMEOUT" env-default:"10s"`
	Init     time.Duration `yaml:"init"     env:"INIT_TIMEOUT"     env-default:"10s"`
}

// HTTPConfig - локальный HTTP-сервер гейтвея, к которому обращается UI.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"127.0.0.1"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
}

func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// APIConfig - удалённый REST API маркетплейса.
type APIConfig struct {
	BaseURL     string  `yaml:"base_url"     env:"API_BASE_URL"     env-default:"http://localhost:8080/api"`
	RefreshPath string  `yaml:"refresh_path" env:"API_REFRESH_PATH" env-default:"/auth/refresh"`
	UserAgent   string  `yaml:"user_agent"   env:"API_USER_AGENT"   env-default:"web-ads-gateway"`
	RPS         float64 `yaml:"rps"          env:"API_RPS"          env-default:"0"`
	Burst       int     `yaml:"burst"        env:"API_BURST"        env-default:"10"`
}

// AuthConfig - поведение конвейера обновления токенов.
// CoalesceRefresh=false сохраняет исходное поведение: каждый 403 обновляет
// токен самостоятельно.
type AuthConfig struct {
	CoalesceRefresh bool `yaml:"coalesce_refresh" env:"AUTH_COALESCE_REFRESH" env-default:"false"`
}

// StorageConfig - долговременное хранилище refresh-токена.
type StorageConfig struct {
	Driver     string `yaml:"driver"      env:"STORAGE_DRIVER" env-default:"sqlite"`
	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"    env-default:"web-ads.db"`
	RedisURL   string `yaml:"redis_url"   env:"REDIS_URL"      env-default:"redis://localhost:6379/0"`
	RedisKey   string `yaml:"redis_key"   env:"REDIS_KEY"      env-default:"web-ads:refresh_token"`
}

// MetricsConfig - экспорт prometheus на основном HTTP-сервере.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path"    env:"METRICS_PATH"    env-default:"/metrics"`
}

// Validate проверяет значения, которые cleanenv проверить не может.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageSQLite, StorageRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.API.BaseURL == "" {
		return fmt.Errorf("empty api base url")
	}

	if c.API.RPS < 0 || c.API.Burst < 0 {
		return fmt.Errorf("negative api rate limit")
	}

	return nil
}

// MustLoad - паника при ошибке загрузки.
func MustLoad(path string) *Config {
	cfg, err := Load(path)

	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	finish := func() (*Config, error) {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}

		return &cfg, nil
	}

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return finish()
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return finish()
}
