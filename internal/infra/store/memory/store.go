// Package memory is an in-memory implementation of the deployment metadata
// store, used in tests and for running without persistence.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"subgraphd/internal/domain"
)

// Store keeps all deployment metadata in process memory guarded by a
// sync.RWMutex.
type Store struct {
	mu      sync.RWMutex
	closed  bool
	markers map[domain.DeploymentID]domain.FailureMarker
	dynamic map[domain.DeploymentID][]domain.DynamicDataSourceRecord
	indexes map[domain.DeploymentID][]domain.IndexDefinition
}

func New() *Store {
	return &Store{
		markers: make(map[domain.DeploymentID]domain.FailureMarker),
		dynamic: make(map[domain.DeploymentID][]domain.DynamicDataSourceRecord),
		indexes: make(map[domain.DeploymentID][]domain.IndexDefinition),
	}
}

func (s *Store) ApplyFailureMarker(_ context.Context, id domain.DeploymentID, marker domain.FailureMarker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	s.markers[id] = marker
	return nil
}

func (s *Store) FailureMarker(_ context.Context, id domain.DeploymentID) (domain.FailureMarker, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.FailureMarker{}, false, domain.ErrStoreClosed
	}
	marker, ok := s.markers[id]
	return marker, ok, nil
}

func (s *Store) BuildAttributeIndexes(_ context.Context, id domain.DeploymentID, defs []domain.IndexDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	s.indexes[id] = append([]domain.IndexDefinition(nil), defs...)
	return nil
}

// RecordDynamicDataSource stores a dynamic data source row. Recording the
// same ordinal again replaces the previous row.
func (s *Store) RecordDynamicDataSource(_ context.Context, id domain.DeploymentID, record domain.DynamicDataSourceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	rows := s.dynamic[id]
	for i := range rows {
		if rows[i].Ordinal == record.Ordinal {
			rows[i] = record
			return nil
		}
	}
	s.dynamic[id] = append(rows, record)
	return nil
}

func (s *Store) RunEntityQuery(_ context.Context, query domain.EntityQuery) ([]json.RawMessage, error) {
	if query.Entity != domain.EntityDynamicDataSource {
		return nil, domain.E(domain.CodeInvalidArgument, "memory.RunEntityQuery",
			fmt.Sprintf("unsupported entity %q", query.Entity), nil)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}

	rows := append([]domain.DynamicDataSourceRecord(nil), s.dynamic[query.Deployment]...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Ordinal < rows[j].Ordinal })

	result := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		encoded, err := json.Marshal(row)
		if err != nil {
			return nil, domain.E(domain.CodeStoreError, "memory.RunEntityQuery", "", err)
		}
		result = append(result, encoded)
	}
	return result, nil
}

// AttributeIndexes returns the definitions recorded for a deployment. Tests
// read them back; the provider only writes.
func (s *Store) AttributeIndexes(id domain.DeploymentID) []domain.IndexDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.IndexDefinition(nil), s.indexes[id]...)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var (
	_ domain.MetadataStore = (*Store)(nil)
	_ domain.QueryRunner   = (*Store)(nil)
)
