package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MaxExpireAfter is the hard ceiling on temporary URL lifetimes.
const MaxExpireAfter = 7 * 24 * time.Hour

var ErrExpireAfterTooLong = errors.New("config: expire-after must not be more than 7 days")

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Env         string `env:"APP_ENV" envDefault:"development"`
	DatabaseURL string `env:"DB_URL"`

	// Storage driver: "s3" or "local".
	Driver     string `env:"FV_DRIVER" envDefault:"local"`
	PublicDir  string `env:"FV_PUBLIC_DIRECTORY" envDefault:"public"`
	PrivateDir string `env:"FV_PRIVATE_DIRECTORY" envDefault:"private"`

	ExpireAfter        time.Duration `env:"FV_EXPIRE_AFTER" envDefault:"24h"`
	OverwriteOnExists  bool          `env:"FV_OVERWRITE_ON_EXISTS" envDefault:"false"`
	SkipUploadOnExists bool          `env:"FV_SKIP_UPLOAD_ON_EXISTS" envDefault:"false"`

	AWSRegion string `env:"AWS_REGION"`
	AWSBucket string `env:"AWS_BUCKET_NAME"`

	LocalDataDir string `env:"FV_LOCAL_DATA_DIR" envDefault:"./data"`
	LocalBaseURL string `env:"FV_LOCAL_BASE_URL" envDefault:"http://localhost:8080/files"`
	LocalSecret  string `env:"FV_LOCAL_SECRET" envDefault:"filevault-dev-secret"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ExpireAfter <= 0 || c.ExpireAfter > MaxExpireAfter {
		return ErrExpireAfterTooLong
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
