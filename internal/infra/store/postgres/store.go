// Package postgres is a PostgreSQL implementation of the deployment metadata
// store for multi-node deployments that share one database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"subgraphd/internal/domain"
)

// Store persists deployment metadata in PostgreSQL. Callers own the *sql.DB
// and its driver registration.
type Store struct {
	db      *sql.DB
	markers string
	dynamic string
	indexes string
}

// New creates a store with default table names.
func New(db *sql.DB) *Store {
	return NewWithConfig(db, DefaultTableConfig())
}

// NewWithConfig creates a store with custom table names.
func NewWithConfig(db *sql.DB, config TableConfig) *Store {
	return &Store{
		db:      db,
		markers: config.MarkersTable,
		dynamic: config.DynamicDataSourcesTable,
		indexes: config.AttributeIndexesTable,
	}
}

// EnsureSchema applies the idempotent DDL for all metadata tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	config := TableConfig{
		MarkersTable:            s.markers,
		DynamicDataSourcesTable: s.dynamic,
		AttributeIndexesTable:   s.indexes,
	}
	if _, err := s.db.ExecContext(ctx, MigrationUp(config)); err != nil {
		return wrapStoreError("postgres.EnsureSchema", err)
	}
	return nil
}

func (s *Store) ApplyFailureMarker(ctx context.Context, id domain.DeploymentID, marker domain.FailureMarker) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (deployment, failed, reason, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (deployment)
		DO UPDATE SET failed = EXCLUDED.failed, reason = EXCLUDED.reason, updated_at = EXCLUDED.updated_at
	`, s.markers)

	if _, err := s.db.ExecContext(ctx, query, string(id), marker.Failed, marker.Reason, marker.UpdatedAt); err != nil {
		return wrapStoreError("postgres.ApplyFailureMarker", err)
	}
	return nil
}

func (s *Store) FailureMarker(ctx context.Context, id domain.DeploymentID) (domain.FailureMarker, bool, error) {
	query := fmt.Sprintf(`
		SELECT failed, reason, updated_at
		FROM %s
		WHERE deployment = $1
	`, s.markers)

	var marker domain.FailureMarker
	err := s.db.QueryRowContext(ctx, query, string(id)).Scan(
		&marker.Failed,
		&marker.Reason,
		&marker.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FailureMarker{}, false, nil
	}
	if err != nil {
		return domain.FailureMarker{}, false, wrapStoreError("postgres.FailureMarker", err)
	}
	return marker, true, nil
}

func (s *Store) RecordDynamicDataSource(ctx context.Context, id domain.DeploymentID, record domain.DynamicDataSourceRecord) error {
	definition, err := json.Marshal(record)
	if err != nil {
		return domain.E(domain.CodeStoreError, "postgres.RecordDynamicDataSource", "", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, deployment, ordinal, definition)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (deployment, ordinal)
		DO UPDATE SET definition = EXCLUDED.definition
	`, s.dynamic)

	if _, err := s.db.ExecContext(ctx, query, uuid.New().String(), string(id), record.Ordinal, definition); err != nil {
		return wrapStoreError("postgres.RecordDynamicDataSource", err)
	}
	return nil
}

func (s *Store) BuildAttributeIndexes(ctx context.Context, id domain.DeploymentID, defs []domain.IndexDefinition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreError("postgres.BuildAttributeIndexes", err)
	}
	defer tx.Rollback()

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE deployment = $1`, s.indexes)
	if _, err := tx.ExecContext(ctx, deleteQuery, string(id)); err != nil {
		return wrapStoreError("postgres.BuildAttributeIndexes", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (id, deployment, entity_number, attribute_number, entity_name, attribute_name, value_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.indexes)
	for _, def := range defs {
		if _, err := tx.ExecContext(ctx, insertQuery,
			uuid.New().String(), string(id),
			def.EntityNumber, def.AttributeNumber,
			def.EntityName, def.AttributeName, string(def.ValueType),
		); err != nil {
			return wrapStoreError("postgres.BuildAttributeIndexes", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreError("postgres.BuildAttributeIndexes", err)
	}
	return nil
}

func (s *Store) RunEntityQuery(ctx context.Context, query domain.EntityQuery) ([]json.RawMessage, error) {
	if query.Entity != domain.EntityDynamicDataSource {
		return nil, domain.E(domain.CodeInvalidArgument, "postgres.RunEntityQuery",
			fmt.Sprintf("unsupported entity %q", query.Entity), nil)
	}

	stmt := fmt.Sprintf(`
		SELECT definition
		FROM %s
		WHERE deployment = $1
		ORDER BY ordinal ASC
	`, s.dynamic)

	rows, err := s.db.QueryContext(ctx, stmt, string(query.Deployment))
	if err != nil {
		return nil, wrapStoreError("postgres.RunEntityQuery", err)
	}
	defer rows.Close()

	var result []json.RawMessage
	for rows.Next() {
		var definition []byte
		if err := rows.Scan(&definition); err != nil {
			return nil, wrapStoreError("postgres.RunEntityQuery", err)
		}
		result = append(result, json.RawMessage(definition))
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError("postgres.RunEntityQuery", err)
	}
	return result, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return domain.Wrap(domain.CodeStoreError, op, err)
}

var (
	_ domain.MetadataStore = (*Store)(nil)
	_ domain.QueryRunner   = (*Store)(nil)
)
