package lifecycle

import (
	"fmt"
	"strings"

	"github.com/opensandbox/powercycle/internal/compute"
)

// Operation selects what a run does to every instance.
type Operation string

const (
	OpStart  Operation = "start"
	OpStop   Operation = "stop"
	OpStatus Operation = "status"
)

// ParseOperation validates an operation name.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpStart, OpStop, OpStatus:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q (want start, stop or status)", s)
}

func (o Operation) String() string { return string(o) }

// Target is the power state the operation drives an instance to.
// Status has no target and returns the empty state.
func (o Operation) Target() compute.PowerState {
	switch o {
	case OpStart:
		return compute.StateRunning
	case OpStop:
		return compute.StateStopped
	}
	return ""
}
