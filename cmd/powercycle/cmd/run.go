package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/opensandbox/powercycle/internal/compute"
	"github.com/opensandbox/powercycle/internal/config"
	"github.com/opensandbox/powercycle/internal/credentials"
	"github.com/opensandbox/powercycle/internal/instances"
	"github.com/opensandbox/powercycle/internal/lifecycle"
	"github.com/opensandbox/powercycle/internal/logging"
	"github.com/opensandbox/powercycle/internal/metrics"
)

type runOptions struct {
	instancesFile string
	start         bool
	stop          bool
	status        bool
	operation     lifecycle.Operation
}

// run wires one invocation together. The instance list is read before any
// credential or provider work so a bad path fails without side effects.
func run(ctx context.Context, cfg *config.Config, opts runOptions, deps runtimeDeps, out, errOut io.Writer) error {
	logger := logging.Setup(errOut, cfg.LogLevel).With("run", uuid.NewString())
	if cfg.SecretsARN != "" {
		logger.Info("secrets loaded from Secrets Manager", "applied", cfg.SecretsApplied, "keys", cfg.SecretsKeys)
	}

	ids, err := instances.Load(opts.instancesFile)
	if err != nil {
		return err
	}
	logger.Debug("instances loaded", "file", opts.instancesFile, "count", len(ids))

	session, err := openSession(ctx, cfg, ids, deps, out, logger)
	if err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		defer func() {
			if werr := metrics.WriteTextfile(cfg.MetricsFile); werr != nil {
				logger.Warn("failed to write metrics", "file", cfg.MetricsFile, "err", werr)
			}
		}()
	}

	policy := lifecycle.FailFast
	if cfg.ContinueOnError {
		policy = lifecycle.ContinueOnError
	}
	runner := lifecycle.NewRunner(lifecycle.RunnerConfig{
		Controller: lifecycle.NewController(lifecycle.ControllerConfig{
			PollInterval: cfg.PollInterval,
			MaxWait:      cfg.MaxWait,
			Out:          out,
			Logger:       logger,
		}),
		Session:     session,
		Policy:      policy,
		Parallelism: cfg.Parallelism,
		Logger:      logger,
	})
	return runner.Run(ctx, ids, opts.operation)
}

func openSession(ctx context.Context, cfg *config.Config, ids []string, deps runtimeDeps, out io.Writer, logger *log.Logger) (compute.Session, error) {
	if cfg.Provider == config.ProviderLocal {
		logger.Warn("using the local in-memory provider, no cloud calls will be made")
		return newLocalSession(ids), nil
	}

	file, err := credentials.Load(cfg.ConfigFile)
	if err != nil {
		if errors.Is(err, credentials.ErrConfigMissing) {
			return nil, fmt.Errorf("%w: create one at %s", credentials.ErrConfigMissing, cfg.ConfigFile)
		}
		return nil, err
	}
	profile, err := credentials.Resolve(file, cfg.Profile, deps.in, out)
	if err != nil {
		return nil, err
	}
	logger.Info("profile selected", "profile", profile.Name, "static_keys", profile.HasStaticKeys())

	return deps.newSession(ctx, cfg, profile)
}
