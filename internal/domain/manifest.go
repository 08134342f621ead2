package domain

// Manifest is the resolved description of a deployment: its schema plus the
// ordered list of data sources feeding it. Dynamic data sources discovered at
// runtime are appended after the static ones and the relative order of both
// groups is preserved.
type Manifest struct {
	Deployment  DeploymentID
	SpecVersion string
	Description string
	Repository  string
	Schema      Schema
	DataSources []DataSource
	Templates   []Template
}

// AppendDynamicDataSources extends the manifest's data sources in loader
// order, after all statically declared ones.
func (m *Manifest) AppendDynamicDataSources(dynamic []DynamicDataSource) {
	for _, ds := range dynamic {
		m.DataSources = append(m.DataSources, ds.DataSource)
	}
}

// Schema holds the deployment's GraphQL schema: the content link it was
// fetched from, the raw SDL, and the entity types extracted from it.
type Schema struct {
	Link     string
	Source   string
	Entities []EntityType
}

// EntityType is an object type declared in the schema. Attribute order
// follows declaration order.
type EntityType struct {
	Name       string
	Attributes []Attribute
}

// Attribute is a single field of an entity type. Type is the base type name
// with any list and non-null wrappers stripped.
type Attribute struct {
	Name string
	Type string
	List bool
}

type DataSource struct {
	Kind    string
	Name    string
	Network string
	Source  ContractSource
	Mapping Mapping
}

type ContractSource struct {
	Address    string
	ABI        string
	StartBlock uint64
}

type Mapping struct {
	Kind          string
	APIVersion    string
	Language      string
	Entities      []string
	EventHandlers []EventHandler
	Link          string
}

type EventHandler struct {
	Event   string
	Handler string
}

// Template declares a parameterized data source that runtime processing can
// instantiate; instantiations surface later as dynamic data sources.
type Template struct {
	Kind    string
	Name    string
	Network string
	Source  TemplateSource
	Mapping Mapping
}

type TemplateSource struct {
	ABI string
}

// DynamicDataSource is a data source instantiated from a template during
// indexing and persisted in the metadata store. Ordinal is the discovery
// order and drives the append order on start.
type DynamicDataSource struct {
	DataSource
	Ordinal       int
	CreationBlock uint64
}
