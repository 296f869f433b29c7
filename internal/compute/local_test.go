package compute

import (
	"context"
	"errors"
	"testing"
)

func TestLocalSession_StartTransitionsThroughPending(t *testing.T) {
	s := NewLocalSession(2)
	s.Add("i-1", "web", StateStopped)
	h := s.Instance("i-1")
	ctx := context.Background()

	if err := h.IssueStart(ctx); err != nil {
		t.Fatalf("IssueStart() error: %v", err)
	}

	want := []PowerState{StatePending, StatePending, StateRunning, StateRunning}
	for n, w := range want {
		got, err := h.Observe(ctx)
		if err != nil {
			t.Fatalf("Observe() #%d error: %v", n, err)
		}
		if got != w {
			t.Errorf("Observe() #%d = %s, want %s", n, got, w)
		}
	}

	starts, stops := s.Calls("i-1")
	if starts != 1 || stops != 0 {
		t.Errorf("Calls() = %d, %d, want 1, 0", starts, stops)
	}
}

func TestLocalSession_ZeroStepsSettlesImmediately(t *testing.T) {
	s := NewLocalSession(0)
	s.Add("i-1", "web", StateRunning)
	h := s.Instance("i-1")

	if err := h.IssueStop(context.Background()); err != nil {
		t.Fatalf("IssueStop() error: %v", err)
	}
	got, _ := h.Observe(context.Background())
	if got != StateStopped {
		t.Errorf("expected stopped, got %s", got)
	}
}

func TestLocalSession_TerminatedIgnoresCommands(t *testing.T) {
	s := NewLocalSession(1)
	s.Add("i-1", "web", StateTerminated)
	h := s.Instance("i-1")

	if err := h.IssueStart(context.Background()); err != nil {
		t.Fatalf("IssueStart() error: %v", err)
	}
	got, _ := h.Observe(context.Background())
	if got != StateTerminated {
		t.Errorf("expected terminated, got %s", got)
	}
}

func TestLocalSession_NotFound(t *testing.T) {
	s := NewLocalSession(1)
	_, err := s.Instance("i-missing").Observe(context.Background())
	if !errors.Is(err, ErrInstanceNotFound) {
		t.Errorf("expected ErrInstanceNotFound, got %v", err)
	}
}

func TestLocalSession_Unavailable(t *testing.T) {
	s := NewLocalSession(1)
	s.Add("i-1", "web", StateRunning)
	s.SetUnavailable(true)

	if err := s.Instance("i-1").IssueStop(context.Background()); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestLocalSession_DisplayNameFallsBackToID(t *testing.T) {
	s := NewLocalSession(1)
	s.Add("i-1", "", StateRunning)
	name, err := s.Instance("i-1").DisplayName(context.Background())
	if err != nil {
		t.Fatalf("DisplayName() error: %v", err)
	}
	if name != "i-1" {
		t.Errorf("expected i-1, got %s", name)
	}
}

func TestParsePowerState(t *testing.T) {
	tests := map[string]PowerState{
		"running":       StateRunning,
		"Stopped":       StateStopped,
		" pending ":     StatePending,
		"shutting-down": StateShuttingDown,
		"terminated":    StateTerminated,
		"stopping":      StateStopping,
		"rebooting":     StateUnknown,
		"":              StateUnknown,
	}
	for in, want := range tests {
		if got := ParsePowerState(in); got != want {
			t.Errorf("ParsePowerState(%q) = %s, want %s", in, got, want)
		}
	}
}
