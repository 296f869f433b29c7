package cmd

import (
	"context"

	"github.com/opensandbox/powercycle/internal/compute"
	"github.com/opensandbox/powercycle/internal/config"
	"github.com/opensandbox/powercycle/internal/credentials"
)

// localTransitionSteps is how many reads a simulated start or stop stays in
// its transitional state.
const localTransitionSteps = 2

func newEC2Session(ctx context.Context, cfg *config.Config, profile *credentials.Profile) (compute.Session, error) {
	return compute.NewEC2Session(ctx, sessionConfig(cfg, profile))
}

// sessionConfig maps a selected profile onto EC2 session settings. Static keys
// are used as is. Otherwise the SDK resolves the profile by name from the
// credential file, unless the section is one the SDK cannot address, in which
// case the default chain runs with only the region applied.
func sessionConfig(cfg *config.Config, profile *credentials.Profile) compute.EC2SessionConfig {
	sc := compute.EC2SessionConfig{Region: profile.Region}
	if cfg.Region != "" {
		sc.Region = cfg.Region
	}
	switch {
	case profile.HasStaticKeys():
		sc.AccessKeyID = profile.AccessKeyID
		sc.SecretAccessKey = profile.SecretAccessKey
		sc.SessionToken = profile.SessionToken
	case profile.SharedConfigName() != "":
		sc.Profile = profile.SharedConfigName()
		sc.ConfigFile = cfg.ConfigFile
	}
	return sc
}

// newLocalSession seeds a dry-run session with every listed instance stopped
// and named after its identifier.
func newLocalSession(ids []string) *compute.LocalSession {
	s := compute.NewLocalSession(localTransitionSteps)
	for _, id := range ids {
		s.Add(id, id, compute.StateStopped)
	}
	return s
}
