package dynamodel

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config describes how to connect to DynamoDB.
// Zero fields fall back to the AWS SDK defaults (environment, shared config files)
// or to the package defaults.
type Config struct {
	Region string `yaml:"region"`
	// Endpoint overrides the service endpoint, for example to use DynamoDB Local.
	Endpoint string `yaml:"endpoint"`

	// Static credentials. Both must be set to take effect.
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	RetryTimeout      time.Duration `yaml:"retry_timeout"`
	BatchRetryTimeout time.Duration `yaml:"batch_retry_timeout"`

	// LogLevel enables logging at the given zap level ("debug", "info", ...).
	// Logging is disabled when empty.
	LogLevel string `yaml:"log_level"`
}

// Environment variables overriding Config fields in LoadConfig.
const (
	EnvRegion            = "DYNAMODEL_REGION"
	EnvEndpoint          = "DYNAMODEL_ENDPOINT"
	EnvAccessKey         = "DYNAMODEL_ACCESS_KEY"
	EnvSecretKey         = "DYNAMODEL_SECRET_KEY"
	EnvRetryTimeout      = "DYNAMODEL_RETRY_TIMEOUT"
	EnvBatchRetryTimeout = "DYNAMODEL_BATCH_RETRY_TIMEOUT"
	EnvLogLevel          = "DYNAMODEL_LOG_LEVEL"
)

// LoadConfig reads configuration from, in increasing order of precedence:
// a .env file in the working directory, the YAML file at path, and DYNAMODEL_* environment variables.
// Missing files are fine; path may be empty to skip the YAML file.
func LoadConfig(path string) (Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("dynamodel: loading .env: %w", err)
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("dynamodel: reading config: %w", err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("dynamodel: parsing config %s: %w", path, err)
			}
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg *Config) loadEnv() error {
	strs := []struct {
		env string
		dst *string
	}{
		{EnvRegion, &cfg.Region},
		{EnvEndpoint, &cfg.Endpoint},
		{EnvAccessKey, &cfg.AccessKey},
		{EnvSecretKey, &cfg.SecretKey},
		{EnvLogLevel, &cfg.LogLevel},
	}
	for _, s := range strs {
		if v, ok := os.LookupEnv(s.env); ok {
			*s.dst = v
		}
	}

	durs := []struct {
		env string
		dst *time.Duration
	}{
		{EnvRetryTimeout, &cfg.RetryTimeout},
		{EnvBatchRetryTimeout, &cfg.BatchRetryTimeout},
	}
	for _, d := range durs {
		v, ok := os.LookupEnv(d.env)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("dynamodel: %s: %w", d.env, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Logger builds the logger described by LogLevel.
func (cfg Config) Logger() (*zap.Logger, error) {
	if cfg.LogLevel == "" {
		return zap.NewNop(), nil
	}
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("dynamodel: log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	return zcfg.Build()
}

// Options returns the DB options described by this config.
func (cfg Config) Options() ([]Option, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	opts := []Option{WithLogger(logger)}
	if cfg.RetryTimeout > 0 {
		opts = append(opts, WithRetryTimeout(cfg.RetryTimeout))
	}
	if cfg.BatchRetryTimeout > 0 {
		opts = append(opts, WithBatchRetryTimeout(cfg.BatchRetryTimeout))
	}
	return opts, nil
}

// Open loads the AWS configuration and returns a DB using it.
func (cfg Config) Open(ctx context.Context, extra ...Option) (*DB, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("dynamodel: loading AWS config: %w", err)
	}

	opts, err := cfg.Options()
	if err != nil {
		return nil, err
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	db := newDB(client, append(opts, extra...))
	db.retryer = awsCfg.Retryer
	return db, nil
}
