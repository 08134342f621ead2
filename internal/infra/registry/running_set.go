package registry

import (
	"sort"
	"sync"

	"subgraphd/internal/domain"
)

// RunningSet tracks which deployments are currently admitted. One set is
// shared process-wide by every provider handle; the mutex guards only the
// map itself, so no I/O ever happens under it.
type RunningSet struct {
	mu      sync.Mutex
	running map[domain.DeploymentID]struct{}
}

func NewRunningSet() *RunningSet {
	return &RunningSet{
		running: make(map[domain.DeploymentID]struct{}),
	}
}

// TryStart inserts the deployment if absent. It reports whether the caller
// won admission; a false return means some other start already holds it.
func (s *RunningSet) TryStart(id domain.DeploymentID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.running[id]; exists {
		return false
	}
	s.running[id] = struct{}{}
	return true
}

// Stop removes the deployment. It reports whether the deployment was
// present; false means there is nothing to stop.
func (s *RunningSet) Stop(id domain.DeploymentID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.running[id]; !exists {
		return false
	}
	delete(s.running, id)
	return true
}

func (s *RunningSet) Contains(id domain.DeploymentID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.running[id]
	return exists
}

func (s *RunningSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// Snapshot returns the admitted deployments in lexical order.
func (s *RunningSet) Snapshot() []domain.DeploymentID {
	s.mu.Lock()
	ids := make([]domain.DeploymentID, 0, len(s.running))
	for id := range s.running {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
