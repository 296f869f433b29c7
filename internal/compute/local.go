package compute

import (
	"context"
	"fmt"
	"sync"
)

// LocalSession is an in-memory compute provider for development and dry runs.
// Start and stop commands pass through pending/stopping for a fixed number of
// observations before settling.
type LocalSession struct {
	mu          sync.Mutex
	steps       int
	instances   map[string]*localMachine
	unavailable bool
}

type localMachine struct {
	name      string
	state     PowerState
	target    PowerState
	remaining int
	starts    int
	stops     int
	observes  int
}

// NewLocalSession creates a local session whose transitions take the given
// number of observations to settle.
func NewLocalSession(transitionSteps int) *LocalSession {
	if transitionSteps < 0 {
		transitionSteps = 0
	}
	return &LocalSession{
		steps:     transitionSteps,
		instances: make(map[string]*localMachine),
	}
}

// Add registers an instance with a display name and an initial state.
func (s *LocalSession) Add(id, name string, state PowerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[id] = &localMachine{name: name, state: state}
}

// SetState forces the observed state of an instance, cancelling any transition.
func (s *LocalSession) SetState(id string, state PowerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.instances[id]; ok {
		m.state = state
		m.target = ""
		m.remaining = 0
	}
}

// SetUnavailable makes every call fail with ErrProviderUnavailable.
func (s *LocalSession) SetUnavailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = v
}

// Calls returns how many start and stop commands an instance received.
func (s *LocalSession) Calls(id string) (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.instances[id]; ok {
		return m.starts, m.stops
	}
	return 0, 0
}

// Observations returns how many times an instance's state was read.
func (s *LocalSession) Observations(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.instances[id]; ok {
		return m.observes
	}
	return 0
}

func (s *LocalSession) Instance(id string) Handle {
	return &localInstance{session: s, id: id}
}

func (s *LocalSession) lookup(id string) (*localMachine, error) {
	if s.unavailable {
		return nil, fmt.Errorf("local: %w", ErrProviderUnavailable)
	}
	m, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("local: instance %s: %w", id, ErrInstanceNotFound)
	}
	return m, nil
}

type localInstance struct {
	session *LocalSession
	id      string
}

func (i *localInstance) ID() string { return i.id }

func (i *localInstance) Observe(_ context.Context) (PowerState, error) {
	i.session.mu.Lock()
	defer i.session.mu.Unlock()

	m, err := i.session.lookup(i.id)
	if err != nil {
		return StateUnknown, err
	}
	m.observes++
	state := m.state
	if m.target != "" {
		if m.remaining <= 0 {
			m.state = m.target
			m.target = ""
		} else {
			m.remaining--
		}
	}
	return state, nil
}

func (i *localInstance) DisplayName(_ context.Context) (string, error) {
	i.session.mu.Lock()
	defer i.session.mu.Unlock()

	m, err := i.session.lookup(i.id)
	if err != nil {
		return "", err
	}
	if m.name == "" {
		return i.id, nil
	}
	return m.name, nil
}

func (i *localInstance) IssueStart(_ context.Context) error {
	return i.transition(StatePending, StateRunning, func(m *localMachine) { m.starts++ })
}

func (i *localInstance) IssueStop(_ context.Context) error {
	return i.transition(StateStopping, StateStopped, func(m *localMachine) { m.stops++ })
}

func (i *localInstance) transition(via, to PowerState, count func(*localMachine)) error {
	i.session.mu.Lock()
	defer i.session.mu.Unlock()

	m, err := i.session.lookup(i.id)
	if err != nil {
		return err
	}
	count(m)
	if m.state == to || m.state.Final() {
		return nil
	}
	if i.session.steps == 0 {
		m.state = to
		return nil
	}
	m.state = via
	m.target = to
	m.remaining = i.session.steps - 1
	return nil
}
