package main

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/nkiryanov/authclient/internal/logger"
	"github.com/nkiryanov/authclient/internal/service/validate"
)

const (
	defaultAPIURL          = "http://localhost:3000"
	defaultLoggingLevel    = logger.LevelInfo
	defaultEnvironment     = logger.EnvProduction
	defaultStoreBackend    = StoreFile
	defaultStoreFile       = ".authclient/tokens.json"
	defaultSupportsRefresh = true
	defaultRequestTimeout  = 10 * time.Second
)

// Token store backends
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	// Backend API address
	APIURL string `json:"api_url" validate:"required,url"`

	// Default logging level
	LogLevel string `json:"log_level" validate:"oneof=debug info warn error"`

	// Environment
	Environment string `json:"environment" validate:"oneof=dev prod"`

	// Where tokens are kept between runs
	StoreBackend string `json:"store" validate:"oneof=memory file redis postgres"`

	// Token file for 'file' backend
	StoreFile string `json:"store_file" validate:"required_if=StoreBackend file"`

	// Redis address for 'redis' backend
	RedisAddr string `json:"redis_addr" validate:"required_if=StoreBackend redis"`

	// Database to connect to for 'postgres' backend
	DatabaseDSN string `json:"database_dsn" validate:"required_if=StoreBackend postgres"`

	// Secret key, hex encoded
	// If set tokens are encrypted before they reach the store
	SecretKey string `json:"secret_key" validate:"omitempty,hexadecimal,len=64"`

	// Backend issues refresh tokens
	SupportsRefresh bool `json:"supports_refresh"`

	// Timeout of a single backend request
	RequestTimeout time.Duration `json:"request_timeout" validate:"gt=0"`
}

func NewConfig() *Config {
	return &Config{
		APIURL:          defaultAPIURL,
		LogLevel:        defaultLoggingLevel,
		Environment:     defaultEnvironment,
		StoreBackend:    defaultStoreBackend,
		StoreFile:       defaultStoreFile,
		SupportsRefresh: defaultSupportsRefresh,
		RequestTimeout:  defaultRequestTimeout,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) error {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) error {
		return func(value string) error {
			if value != "" {
				*o = value
			}
			return nil
		}
	}
	setBool := func(o *bool) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = b
			return nil
		}
	}
	setDuration := func(o *time.Duration) func(value string) error {
		return func(value string) error {
			if value == "" {
				return nil
			}
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			*o = d
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"API_URL":          setString(&c.APIURL),
		"LOG_LEVEL":        setString(&c.LogLevel),
		"ENVIRONMENT":      setString(&c.Environment),
		"TOKEN_STORE":      setString(&c.StoreBackend),
		"TOKEN_STORE_FILE": setString(&c.StoreFile),
		"REDIS_ADDR":       setString(&c.RedisAddr),
		"DATABASE_URI":     setString(&c.DatabaseDSN),
		"SECRET_KEY":       setString(&c.SecretKey),
		"SUPPORTS_REFRESH": setBool(&c.SupportsRefresh),
		"REQUEST_TIMEOUT":  setDuration(&c.RequestTimeout),
	}

	var errs []error
	for key, parseFn := range envMap {
		if err := parseFn(getenv(key)); err != nil {
			errs = append(errs, errors.New(key+": "+err.Error()))
		}
	}
	return errors.Join(errs...)
}

// Parse flags and return remaining arguments (command and its args)
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("authclient", pflag.ContinueOnError)
	// Flags after command belong to the command
	fs.SetInterspersed(false)

	fs.StringVarP(&c.APIURL, "api", "u", c.APIURL, "Backend API address")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.StoreBackend, "store", "s", c.StoreBackend, "Token store (memory, file, redis, postgres)")
	fs.StringVarP(&c.StoreFile, "store-file", "f", c.StoreFile, "Token file for 'file' store")
	fs.StringVarP(&c.RedisAddr, "redis", "r", c.RedisAddr, "Redis address for 'redis' store")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string for 'postgres' store")
	fs.StringVarP(&c.SecretKey, "secret-key", "k", c.SecretKey, "Hex key to encrypt stored tokens")
	fs.BoolVar(&c.SupportsRefresh, "supports-refresh", c.SupportsRefresh, "Backend issues refresh tokens")
	fs.DurationVarP(&c.RequestTimeout, "timeout", "t", c.RequestTimeout, "Backend request timeout")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

func (c *Config) Validate() error {
	return validate.Struct(c)
}
