package postgres

import "fmt"

// TableConfig configures the table names used by the metadata store.
type TableConfig struct {
	// MarkersTable stores one failure marker row per deployment.
	MarkersTable string

	// DynamicDataSourcesTable stores dynamic data source rows keyed by
	// deployment and ordinal.
	DynamicDataSourcesTable string

	// AttributeIndexesTable stores derived attribute index definitions.
	AttributeIndexesTable string
}

// DefaultTableConfig returns the default table configuration.
func DefaultTableConfig() TableConfig {
	return TableConfig{
		MarkersTable:            "subgraph_failure_markers",
		DynamicDataSourcesTable: "subgraph_dynamic_data_sources",
		AttributeIndexesTable:   "subgraph_attribute_indexes",
	}
}

// MigrationUp returns the SQL to create the metadata tables. The DDL is
// idempotent so the daemon can apply it on startup.
func MigrationUp(config TableConfig) string {
	return fmt.Sprintf(`-- Failure markers, one row per deployment
CREATE TABLE IF NOT EXISTS %s (
    deployment TEXT PRIMARY KEY,
    failed BOOLEAN NOT NULL,
    reason TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Dynamic data sources, ordered by ordinal within a deployment
CREATE TABLE IF NOT EXISTS %s (
    id UUID PRIMARY KEY,
    deployment TEXT NOT NULL,
    ordinal BIGINT NOT NULL,
    definition JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (deployment, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_dynamic_data_sources_deployment ON %s(deployment, ordinal);

-- Attribute index definitions derived from the deployment schema
CREATE TABLE IF NOT EXISTS %s (
    id UUID PRIMARY KEY,
    deployment TEXT NOT NULL,
    entity_number INTEGER NOT NULL,
    attribute_number INTEGER NOT NULL,
    entity_name TEXT NOT NULL,
    attribute_name TEXT NOT NULL,
    value_type TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (deployment, entity_name, attribute_name)
);

CREATE INDEX IF NOT EXISTS idx_attribute_indexes_deployment ON %s(deployment);
`, config.MarkersTable, config.DynamicDataSourcesTable, config.DynamicDataSourcesTable,
		config.AttributeIndexesTable, config.AttributeIndexesTable)
}

// MigrationDown returns the SQL to drop the metadata tables.
func MigrationDown(config TableConfig) string {
	return fmt.Sprintf(`DROP TABLE IF EXISTS %s;
DROP TABLE IF EXISTS %s;
DROP TABLE IF EXISTS %s;
`, config.AttributeIndexesTable, config.DynamicDataSourcesTable, config.MarkersTable)
}
