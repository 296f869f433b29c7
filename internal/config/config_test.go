package config

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POWERCYCLE_SECRETS_ARN", "")
	t.Setenv("POWERCYCLE_PROFILE", "")
	t.Setenv("POWERCYCLE_POLL_INTERVAL", "")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.PollInterval != 3*time.Second {
		t.Errorf("expected poll interval 3s, got %s", cfg.PollInterval)
	}
	if cfg.MaxWait != 10*time.Minute {
		t.Errorf("expected max wait 10m, got %s", cfg.MaxWait)
	}
	if cfg.Provider != ProviderEC2 {
		t.Errorf("expected provider ec2, got %s", cfg.Provider)
	}
	if cfg.Parallelism != 1 {
		t.Errorf("expected parallelism 1, got %d", cfg.Parallelism)
	}
	if cfg.ContinueOnError {
		t.Error("expected fail-fast by default")
	}
	if cfg.ConfigFile == "" {
		t.Error("expected a default credential file path")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("POWERCYCLE_PROFILE", "staging")
	t.Setenv("POWERCYCLE_POLL_INTERVAL", "500ms")
	t.Setenv("POWERCYCLE_CONTINUE_ON_ERROR", "true")
	t.Setenv("POWERCYCLE_PROVIDER", "LOCAL")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Profile != "staging" {
		t.Errorf("expected profile staging, got %s", cfg.Profile)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %s", cfg.PollInterval)
	}
	if !cfg.ContinueOnError {
		t.Error("expected continue-on-error")
	}
	if cfg.Provider != ProviderLocal {
		t.Errorf("expected provider local, got %s", cfg.Provider)
	}
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("POWERCYCLE_PARALLEL", "2")
	t.Setenv("POWERCYCLE_REGION", "us-west-2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("parallel", 1, "")
	flags.String("region", "", "")
	if err := flags.Parse([]string{"--parallel", "8"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Parallelism != 8 {
		t.Errorf("expected flag value 8, got %d", cfg.Parallelism)
	}
	if cfg.Region != "us-west-2" {
		t.Errorf("expected env region us-west-2 for unset flag, got %s", cfg.Region)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"POWERCYCLE_PARALLEL":      "0",
		"POWERCYCLE_POLL_INTERVAL": "-1s",
		"POWERCYCLE_PROVIDER":      "gcp",
		"POWERCYCLE_MAX_WAIT":      "0s",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(nil); err == nil {
				t.Fatalf("expected error for %s=%s, got nil", key, value)
			}
		})
	}
}

func TestApplySecretsEnvWins(t *testing.T) {
	t.Setenv("POWERCYCLE_PROFILE", "from-env")
	t.Setenv("POWERCYCLE_REGION", "")

	applied, total, err := applySecrets(`{"POWERCYCLE_PROFILE":"from-secret","POWERCYCLE_REGION":"eu-central-1"}`)
	if err != nil {
		t.Fatalf("applySecrets() error: %v", err)
	}
	if applied != 1 || total != 2 {
		t.Errorf("expected 1 of 2 applied, got %d of %d", applied, total)
	}
	if got := os.Getenv("POWERCYCLE_PROFILE"); got != "from-env" {
		t.Errorf("env value should win, got %s", got)
	}
	if got := os.Getenv("POWERCYCLE_REGION"); got != "eu-central-1" {
		t.Errorf("expected secret region, got %s", got)
	}
}

func TestApplySecretsInvalidJSON(t *testing.T) {
	if _, _, err := applySecrets("not json"); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoadNegativeMaxWait(t *testing.T) {
	t.Setenv("POWERCYCLE_MAX_WAIT", "-1s")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.MaxWait >= 0 {
		t.Errorf("expected a negative max wait, got %s", cfg.MaxWait)
	}
}

func stubSecret(t *testing.T, raw string, err error) {
	t.Helper()
	orig := fetchSecret
	fetchSecret = func(context.Context, string) (string, error) { return raw, err }
	t.Cleanup(func() { fetchSecret = orig })
}

func TestLoadFromSecretsManager(t *testing.T) {
	t.Setenv("POWERCYCLE_SECRETS_ARN", "arn:aws:secretsmanager:eu-west-1:123456789012:secret:powercycle")
	t.Setenv("POWERCYCLE_PROFILE", "")
	t.Setenv("POWERCYCLE_PARALLEL", "3")
	stubSecret(t, `{"POWERCYCLE_PROFILE":"ops","POWERCYCLE_PARALLEL":"9"}`, nil)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Profile != "ops" {
		t.Errorf("expected profile from secret, got %q", cfg.Profile)
	}
	if cfg.Parallelism != 3 {
		t.Errorf("expected env parallelism 3 to win, got %d", cfg.Parallelism)
	}
	if cfg.SecretsApplied != 1 || cfg.SecretsKeys != 2 {
		t.Errorf("expected 1 of 2 secrets applied, got %d of %d", cfg.SecretsApplied, cfg.SecretsKeys)
	}
}

func TestLoadSecretsManagerError(t *testing.T) {
	t.Setenv("POWERCYCLE_SECRETS_ARN", "arn:aws:secretsmanager:eu-west-1:123456789012:secret:powercycle")
	errDenied := errors.New("access denied")
	stubSecret(t, "", errDenied)

	if _, err := Load(nil); !errors.Is(err, errDenied) {
		t.Fatalf("expected access denied error, got %v", err)
	}
}
