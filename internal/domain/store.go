package domain

import (
	"context"
	"encoding/json"
	"time"
)

// FailureMarker records that resolution of a deployment failed. The marker is
// advisory: writing it never gates whether a later start may be attempted.
type FailureMarker struct {
	Failed    bool      `json:"failed"`
	Reason    string    `json:"reason,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DynamicDataSourceRecord is the persisted form of a data source instantiated
// from a template. The mapping is stored as a content link and resolved again
// at load time.
type DynamicDataSourceRecord struct {
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	Network       string `json:"network,omitempty"`
	Address       string `json:"address"`
	ABI           string `json:"abi"`
	StartBlock    uint64 `json:"startBlock"`
	MappingLink   string `json:"mappingLink"`
	Ordinal       int    `json:"ordinal"`
	CreationBlock uint64 `json:"creationBlock"`
}

// EntityDynamicDataSource is the collection name dynamic data source rows are
// queried under.
const EntityDynamicDataSource = "DynamicDataSource"

// EntityQuery selects the rows of one metadata collection for a deployment,
// ordered ascending by the named attribute.
type EntityQuery struct {
	Deployment DeploymentID
	Entity     string
	OrderBy    string
}

// QueryRunner executes entity queries against deployment metadata. Rows come
// back in their stored encoding; callers decode into the collection's record
// type.
type QueryRunner interface {
	RunEntityQuery(ctx context.Context, query EntityQuery) ([]json.RawMessage, error)
}

// MetadataStore persists per-deployment bookkeeping: failure markers,
// dynamic data source rows, and attribute index definitions.
type MetadataStore interface {
	ApplyFailureMarker(ctx context.Context, id DeploymentID, marker FailureMarker) error
	FailureMarker(ctx context.Context, id DeploymentID) (FailureMarker, bool, error)
	BuildAttributeIndexes(ctx context.Context, id DeploymentID, defs []IndexDefinition) error
	RecordDynamicDataSource(ctx context.Context, id DeploymentID, record DynamicDataSourceRecord) error
	Close() error
}
