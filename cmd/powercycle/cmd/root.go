package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/opensandbox/powercycle/internal/compute"
	"github.com/opensandbox/powercycle/internal/config"
	"github.com/opensandbox/powercycle/internal/credentials"
	"github.com/opensandbox/powercycle/internal/lifecycle"
)

// sessionFactory builds the provider session for a resolved profile.
type sessionFactory func(ctx context.Context, cfg *config.Config, profile *credentials.Profile) (compute.Session, error)

type runtimeDeps struct {
	in         io.Reader
	newSession sessionFactory
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return newRootCmd(runtimeDeps{in: os.Stdin, newSession: newEC2Session}).ExecuteContext(ctx)
}

func newRootCmd(deps runtimeDeps) *cobra.Command {
	var opts runOptions

	root := &cobra.Command{
		Use:   "powercycle -i INSTANCES_FILE (--start | --stop | --status)",
		Short: "Start, stop or inspect a list of EC2 instances",
		Long: `powercycle brings every instance listed in INSTANCES_FILE to the requested
power state, one identifier per line, using a credential profile chosen from
~/.aws/config.

Stop and start leave instances that are already in the requested state alone.
Every transition is confirmed by polling the live state until it settles.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.start:
				opts.operation = lifecycle.OpStart
			case opts.stop:
				opts.operation = lifecycle.OpStop
			default:
				opts.operation = lifecycle.OpStatus
			}

			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts, deps, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := root.Flags()
	f.StringVarP(&opts.instancesFile, "instances", "i", "", "file containing instances, one per line (required)")
	f.BoolVar(&opts.start, "start", false, "start the instances")
	f.BoolVar(&opts.stop, "stop", false, "stop the instances")
	f.BoolVar(&opts.status, "status", false, "retrieve the status of the instances")

	f.String("config-file", credentials.DefaultPath(), "credential profile file")
	f.String("profile", "", "profile to use instead of prompting")
	f.String("region", "", "region override for the selected profile")
	f.String("provider", config.ProviderEC2, "compute provider (ec2, local)")
	f.Duration("poll-interval", lifecycle.DefaultPollInterval, "time between state checks while waiting")
	f.Duration("max-wait", lifecycle.DefaultMaxWait, "give up waiting on one instance after this long (must be non-zero; negative for no limit)")
	f.Bool("continue-on-error", false, "keep going after an instance fails and report all failures at the end")
	f.Int("parallel", 1, "number of instances to process at once")
	f.String("metrics-file", "", "write Prometheus metrics to this textfile when done")
	f.String("log-level", "info", "log level (debug, info, warn, error)")

	_ = root.MarkFlagRequired("instances")
	root.MarkFlagsMutuallyExclusive("start", "stop", "status")
	root.MarkFlagsOneRequired("start", "stop", "status")

	return root
}
