package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env:"APP_ENV" env-default:"local"`
	HTTPServer HTTPServer `yaml:"http_server"`
	DB         DB         `yaml:"db"`
	Auth       Auth       `yaml:"auth"`
	Mail       Mail       `yaml:"mail"`
}

type HTTPServer struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env-default:"60s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env-default:"10s"`
}

type DB struct {
	DSN string `yaml:"dsn" env:"DB_DSN" env-default:"file:reviewhub.db?cache=shared&mode=rwc"`
}

// Auth satisfies the getter interface the token service and middleware consume.
type Auth struct {
	SigningKey      string   `yaml:"signing_key" env:"AUTH_SIGNING_KEY" env-required:"true"`
	TokenExpiration int      `yaml:"token_expiration" env:"AUTH_TOKEN_EXPIRATION" env-default:"24"`
	Issuer          string   `yaml:"issuer" env:"AUTH_ISSUER" env-default:"reviewhub"`
	Audience        []string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:"reviewhub"`
	BcryptCost      int      `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST" env-default:"14"`
}

func (a Auth) GetSigningKey() string { return a.SigningKey }

// GetTokenExpiration returns the credential lifetime in hours.
func (a Auth) GetTokenExpiration() int { return a.TokenExpiration }

func (a Auth) GetIssuer() string { return a.Issuer }

func (a Auth) GetAudience() []string { return a.Audience }

func (a Auth) GetBcryptCost() int { return a.BcryptCost }

type Mail struct {
	Sender string `yaml:"sender" env:"MAIL_SENDER" env-default:"manager@reviewhub.local"`
}

// MustLoad reads the config file at path, falling back to environment-only
// configuration when no path is given.
func MustLoad(configPath string) *Config {
	config, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	return config
}

func Load(path string) (*Config, error) {
	var config Config

	if path == "" {
		if err := cleanenv.ReadEnv(&config); err != nil {
			return nil, err
		}
		return &config, nil
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	if err := cleanenv.ReadConfig(path, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
