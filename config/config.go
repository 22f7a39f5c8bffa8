package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"library-lending/logger"
)

const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

type Storage struct {
	Driver     string `envconfig:"STORAGE_DRIVER" default:"file"`
	DataDir    string `envconfig:"DATA_DIR" default:"data"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"library.db"`
}

type Operator struct {
	Username string `envconfig:"OPERATOR" default:"admin"`
	Password string `envconfig:"OPERATOR_PASSWORD" json:"-"`
}

// Config is embedded so every variable is LIBRARY_<NAME>, without the
// sub-struct name in between.
type Config struct {
	Storage
	Operator
	logger.Log
}

// Option overrides a value after the environment has been read.
type Option func(*Config)

func WithDataDir(dir string) Option {
	return func(c *Config) { c.Storage.DataDir = dir }
}

func WithDriver(driver string) Option {
	return func(c *Config) { c.Storage.Driver = driver }
}

// Load reads LIBRARY_* variables, after loading a .env file from the working
// directory when one exists.
func Load(ops ...Option) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("library", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "read environment")
	}
	for _, op := range ops {
		op(&cfg)
	}
	switch cfg.Storage.Driver {
	case DriverFile, DriverSQLite:
	default:
		return Config{}, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	return cfg, nil
}
