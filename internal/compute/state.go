package compute

import "strings"

// PowerState is the provider-reported lifecycle phase of an instance.
// Values use the EC2 vocabulary and are reported verbatim.
type PowerState string

const (
	StatePending      PowerState = "pending"
	StateRunning      PowerState = "running"
	StateStopping     PowerState = "stopping"
	StateStopped      PowerState = "stopped"
	StateShuttingDown PowerState = "shutting-down"
	StateTerminated   PowerState = "terminated"
	StateUnknown      PowerState = "unknown"
)

// ParsePowerState maps a provider state name onto a PowerState.
// Unrecognised names map to StateUnknown.
func ParsePowerState(s string) PowerState {
	switch st := PowerState(strings.ToLower(strings.TrimSpace(s))); st {
	case StatePending, StateRunning, StateStopping, StateStopped, StateShuttingDown, StateTerminated:
		return st
	}
	return StateUnknown
}

func (s PowerState) String() string { return string(s) }

// Final reports whether no power command can move the instance out of s.
func (s PowerState) Final() bool {
	return s == StateShuttingDown || s == StateTerminated
}
