// Package bolt persists deployment metadata in a local bbolt database. It is
// the default backend for single-node operation.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"subgraphd/internal/domain"
)

const (
	schemaVersion = 1

	rootBucketName    = "deployment_metadata"
	metaBucketName    = "meta"
	markersBucketName = "failure_markers"
	dynamicBucketName = "dynamic_data_sources"
	indexesBucketName = "attribute_indexes"
	versionKey        = "version"
)

// Store wraps a bbolt database holding one bucket per metadata collection.
// Dynamic data source rows live in a nested bucket per deployment, keyed by
// big-endian ordinal so cursor order is creation order.
type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	path   string
	closed bool
}

func Open(path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("metadata db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure metadata dir: %w", err)
	}
	options := &bolt.Options{Timeout: time.Second}
	base, err := bolt.Open(trimmed, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	if err := ensureSchema(base); err != nil {
		_ = base.Close()
		return nil, err
	}
	return &Store{db: base, path: trimmed}, nil
}

func ensureSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		root, err := tx.CreateBucketIfNotExists([]byte(rootBucketName))
		if err != nil {
			return fmt.Errorf("create root bucket: %w", err)
		}
		meta, err := root.CreateBucketIfNotExists([]byte(metaBucketName))
		if err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		for _, name := range []string{markersBucketName, dynamicBucketName, indexesBucketName} {
			if _, err := root.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}

		currentVersion := readSchemaVersion(meta)
		switch {
		case currentVersion == 0:
			return writeSchemaVersion(meta, schemaVersion)
		case currentVersion > schemaVersion:
			return fmt.Errorf("unsupported metadata schema version %d", currentVersion)
		default:
			return nil
		}
	})
}

func readSchemaVersion(meta *bolt.Bucket) int {
	raw := meta.Get([]byte(versionKey))
	if len(raw) != 8 {
		return 0
	}
	return int(binary.BigEndian.Uint64(raw))
}

func writeSchemaVersion(meta *bolt.Bucket, version int) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(version))
	return meta.Put([]byte(versionKey), buf)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) ApplyFailureMarker(_ context.Context, id domain.DeploymentID, marker domain.FailureMarker) error {
	encoded, err := json.Marshal(marker)
	if err != nil {
		return domain.E(domain.CodeStoreError, "bolt.ApplyFailureMarker", "", err)
	}
	return wrapStoreError("bolt.ApplyFailureMarker", s.update(func(tx *bolt.Tx) error {
		bucket, err := collectionBucket(tx, markersBucketName)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), encoded)
	}))
}

func (s *Store) FailureMarker(_ context.Context, id domain.DeploymentID) (domain.FailureMarker, bool, error) {
	var (
		marker domain.FailureMarker
		found  bool
	)
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := collectionBucket(tx, markersBucketName)
		if err != nil {
			return err
		}
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &marker); err != nil {
			return fmt.Errorf("decode failure marker for %s: %w", id, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return domain.FailureMarker{}, false, wrapStoreError("bolt.FailureMarker", err)
	}
	return marker, found, nil
}

func (s *Store) BuildAttributeIndexes(_ context.Context, id domain.DeploymentID, defs []domain.IndexDefinition) error {
	encoded, err := json.Marshal(defs)
	if err != nil {
		return domain.E(domain.CodeStoreError, "bolt.BuildAttributeIndexes", "", err)
	}
	return wrapStoreError("bolt.BuildAttributeIndexes", s.update(func(tx *bolt.Tx) error {
		bucket, err := collectionBucket(tx, indexesBucketName)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(id), encoded)
	}))
}

func (s *Store) RecordDynamicDataSource(_ context.Context, id domain.DeploymentID, record domain.DynamicDataSourceRecord) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return domain.E(domain.CodeStoreError, "bolt.RecordDynamicDataSource", "", err)
	}
	return wrapStoreError("bolt.RecordDynamicDataSource", s.update(func(tx *bolt.Tx) error {
		collection, err := collectionBucket(tx, dynamicBucketName)
		if err != nil {
			return err
		}
		rows, err := collection.CreateBucketIfNotExists([]byte(id))
		if err != nil {
			return fmt.Errorf("create rows bucket for %s: %w", id, err)
		}
		return rows.Put(ordinalKey(record.Ordinal), encoded)
	}))
}

func (s *Store) RunEntityQuery(_ context.Context, query domain.EntityQuery) ([]json.RawMessage, error) {
	if query.Entity != domain.EntityDynamicDataSource {
		return nil, domain.E(domain.CodeInvalidArgument, "bolt.RunEntityQuery",
			fmt.Sprintf("unsupported entity %q", query.Entity), nil)
	}

	var result []json.RawMessage
	err := s.view(func(tx *bolt.Tx) error {
		collection, err := collectionBucket(tx, dynamicBucketName)
		if err != nil {
			return err
		}
		rows := collection.Bucket([]byte(query.Deployment))
		if rows == nil {
			return nil
		}
		return rows.ForEach(func(_, value []byte) error {
			result = append(result, append(json.RawMessage(nil), value...))
			return nil
		})
	})
	if err != nil {
		return nil, wrapStoreError("bolt.RunEntityQuery", err)
	}
	return result, nil
}

// AttributeIndexes returns the recorded index definitions for a deployment.
func (s *Store) AttributeIndexes(id domain.DeploymentID) ([]domain.IndexDefinition, error) {
	var defs []domain.IndexDefinition
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := collectionBucket(tx, indexesBucketName)
		if err != nil {
			return err
		}
		raw := bucket.Get([]byte(id))
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &defs)
	})
	if err != nil {
		return nil, wrapStoreError("bolt.AttributeIndexes", err)
	}
	return defs, nil
}

// MarkedDeployments returns the IDs that carry a failure marker, sorted.
func (s *Store) MarkedDeployments() ([]domain.DeploymentID, error) {
	var ids []domain.DeploymentID
	err := s.view(func(tx *bolt.Tx) error {
		bucket, err := collectionBucket(tx, markersBucketName)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(key, _ []byte) error {
			ids = append(ids, domain.DeploymentID(key))
			return nil
		})
	})
	if err != nil {
		return nil, wrapStoreError("bolt.MarkedDeployments", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *Store) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	return s.db.Update(fn)
}

func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrStoreClosed) {
		return err
	}
	return domain.Wrap(domain.CodeStoreError, op, err)
}

func collectionBucket(tx *bolt.Tx, name string) (*bolt.Bucket, error) {
	root := tx.Bucket([]byte(rootBucketName))
	if root == nil {
		return nil, fmt.Errorf("missing root bucket")
	}
	bucket := root.Bucket([]byte(name))
	if bucket == nil {
		return nil, fmt.Errorf("missing %s bucket", name)
	}
	return bucket, nil
}

func ordinalKey(ordinal int) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(ordinal))
	return buf
}

var (
	_ domain.MetadataStore = (*Store)(nil)
	_ domain.QueryRunner   = (*Store)(nil)
)
