package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	DriverMemory   = "memory"
	DriverHTTP     = "http"
	DriverPostgres = "postgres"
)

var ErrConfiguration = errors.New("invalid configuration")

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	Auth      AuthConfig      `yaml:"auth"`
	HTTP      HTTPConfig      `yaml:"http"`
	UserStore UserStoreConfig `yaml:"user_store"`
	Redis     RedisConf       `yaml:"redis"`
	Admin     AdminSeed       `yaml:"admin"`
}

type AuthConfig struct {
	AccessTokenSecret  string        `yaml:"access_token_secret" env:"ACCESS_TOKEN_SECRET" env-required:"true"`
	RefreshTokenSecret string        `yaml:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET" env-required:"true"`
	BcryptCost         int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-required:"true"`
	SessionSecret      string        `yaml:"session_secret" env:"SESSION_SECRET" env-required:"true"`
	AccessTokenTTL     time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL    time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"720h"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type UserStoreConfig struct {
	Driver  string        `yaml:"driver" env:"USER_STORE_DRIVER" env-default:"memory"`
	BaseURL string        `yaml:"base_url" env:"USER_STORE_URL"`
	DSN     string        `yaml:"dsn" env:"USER_STORE_DSN"`
	Timeout time.Duration `yaml:"timeout" env:"USER_STORE_TIMEOUT" env-default:"5s"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"REDIS_DB"`
}

// AdminSeed creates an administrator in the memory user store on startup.
type AdminSeed struct {
	Email    string `yaml:"email" env:"ADMIN_EMAIL"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProd
}

func (c *Config) Validate() error {
	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		return fmt.Errorf("%w: unknown env %q", ErrConfiguration, c.Env)
	}

	a := c.Auth
	switch {
	case a.AccessTokenSecret == "" || a.RefreshTokenSecret == "":
		return fmt.Errorf("%w: token secrets must be set", ErrConfiguration)
	case a.AccessTokenSecret == a.RefreshTokenSecret:
		return fmt.Errorf("%w: access and refresh token secrets must differ", ErrConfiguration)
	case a.SessionSecret == "":
		return fmt.Errorf("%w: session secret must be set", ErrConfiguration)
	case a.BcryptCost < bcrypt.MinCost || a.BcryptCost > bcrypt.MaxCost:
		return fmt.Errorf("%w: bcrypt cost %d outside [%d, %d]", ErrConfiguration, a.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	case a.AccessTokenTTL <= 0 || a.RefreshTokenTTL <= 0:
		return fmt.Errorf("%w: token lifetimes must be positive", ErrConfiguration)
	}

	switch c.UserStore.Driver {
	case DriverMemory:
	case DriverHTTP:
		if c.UserStore.BaseURL == "" {
			return fmt.Errorf("%w: user_store.base_url is required for the http driver", ErrConfiguration)
		}
	case DriverPostgres:
		if c.UserStore.DSN == "" {
			return fmt.Errorf("%w: user_store.dsn is required for the postgres driver", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown user store driver %q", ErrConfiguration, c.UserStore.Driver)
	}

	if c.UserStore.Timeout <= 0 {
		return fmt.Errorf("%w: user store timeout must be positive", ErrConfiguration)
	}

	return nil
}

// Load reads configPath (when set) and then the environment, and validates
// the result.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config file does not exist: %s", ErrConfiguration, configPath)
		}

		if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
			return nil, fmt.Errorf("%w: cannot read config: %w", ErrConfiguration, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("%w: cannot read environment: %w", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoadPath(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}

	return cfg
}

// ResolvePath prefers the --config flag value and falls back to CONFIG_PATH.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	return os.Getenv("CONFIG_PATH")
}
