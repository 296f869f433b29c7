package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/opensandbox/powercycle/internal/credentials"
)

const envPrefix = "POWERCYCLE"

// Provider names accepted by Config.Provider.
const (
	ProviderEC2   = "ec2"
	ProviderLocal = "local"
)

// Config holds all runtime settings for a powercycle run.
type Config struct {
	// Credentials
	ConfigFile string // credential profile file (default ~/.aws/config)
	Profile    string // profile name; empty means prompt
	Region     string // overrides the profile's region when set

	Provider string // "ec2" or "local"

	// Lifecycle
	PollInterval    time.Duration
	MaxWait         time.Duration // <0 disables the bound
	ContinueOnError bool
	Parallelism     int

	// Output
	MetricsFile string // node_exporter textfile path; empty disables
	LogLevel    string

	// AWS Secrets Manager. If set, the secret's JSON keys are applied as
	// environment variables before anything else is read; env vars win.
	SecretsARN     string
	SecretsApplied int // secret keys set as environment variables
	SecretsKeys    int // keys in the secret
}

// fetchSecret returns the string value of a Secrets Manager secret.
var fetchSecret = getSecretString

// Load resolves configuration from flags, POWERCYCLE_* environment variables
// and defaults, in that order of precedence. flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	var applied, total int
	if arn := os.Getenv(envPrefix + "_SECRETS_ARN"); arn != "" {
		var err error
		if applied, total, err = loadSecretsManager(arn); err != nil {
			return nil, fmt.Errorf("failed to load secrets from %s: %w", arn, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("config-file", credentials.DefaultPath())
	v.SetDefault("provider", ProviderEC2)
	v.SetDefault("poll-interval", 3*time.Second)
	v.SetDefault("max-wait", 10*time.Minute)
	v.SetDefault("continue-on-error", false)
	v.SetDefault("parallel", 1)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	cfg := &Config{
		ConfigFile:      v.GetString("config-file"),
		Profile:         v.GetString("profile"),
		Region:          v.GetString("region"),
		Provider:        strings.ToLower(v.GetString("provider")),
		PollInterval:    v.GetDuration("poll-interval"),
		MaxWait:         v.GetDuration("max-wait"),
		ContinueOnError: v.GetBool("continue-on-error"),
		Parallelism:     v.GetInt("parallel"),
		MetricsFile:     v.GetString("metrics-file"),
		LogLevel:        v.GetString("log-level"),
		SecretsARN:      os.Getenv(envPrefix + "_SECRETS_ARN"),
		SecretsApplied:  applied,
		SecretsKeys:     total,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("invalid poll interval %s: must be positive", c.PollInterval)
	}
	if c.MaxWait == 0 {
		return fmt.Errorf("invalid max wait %s: must be non-zero (negative disables the limit)", c.MaxWait)
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("invalid parallelism %d: must be at least 1", c.Parallelism)
	}
	switch c.Provider {
	case ProviderEC2, ProviderLocal:
	default:
		return fmt.Errorf("invalid provider %q (want %s or %s)", c.Provider, ProviderEC2, ProviderLocal)
	}
	return nil
}

// loadSecretsManager fetches a JSON secret from AWS Secrets Manager and sets
// any values as environment variables (only if not already set, so explicit
// env vars always win). It runs before logging is configured, so the counts
// are returned for the caller to report.
func loadSecretsManager(arn string) (applied, total int, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	raw, err := fetchSecret(ctx, arn)
	if err != nil {
		return 0, 0, err
	}
	return applySecrets(raw)
}

// getSecretString reads a secret with the default AWS credential chain.
func getSecretString(ctx context.Context, arn string) (string, error) {
	// Extract region from ARN: arn:aws:secretsmanager:REGION:ACCOUNT:secret:NAME
	var opts []func(*awsconfig.LoadOptions) error
	if parts := strings.Split(arn, ":"); len(parts) >= 4 && parts[3] != "" {
		opts = append(opts, awsconfig.WithRegion(parts[3]))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("load AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(awsCfg)
	result, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &arn,
	})
	if err != nil {
		return "", fmt.Errorf("GetSecretValue: %w", err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", arn)
	}
	return *result.SecretString, nil
}

// applySecrets sets each key of a JSON object as an environment variable
// unless it is already set.
func applySecrets(raw string) (applied, total int, err error) {
	var secrets map[string]string
	if err := json.Unmarshal([]byte(raw), &secrets); err != nil {
		return 0, 0, fmt.Errorf("parse secret JSON: %w", err)
	}
	for key, value := range secrets {
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return applied, len(secrets), fmt.Errorf("set %s: %w", key, err)
			}
			applied++
		}
	}
	return applied, len(secrets), nil
}
