package document

import "strings"

// Format identifies the source format a document was parsed from
type Format string

const (
	FormatLegacyProgram    Format = "legacy-program"
	FormatJobControl       Format = "job-control"
	FormatWorkflowPackage  Format = "workflow-package"
	FormatStructuredConfig Format = "structured-config"
	FormatTabularMapping   Format = "tabular-mapping"
	FormatSpreadsheet      Format = "spreadsheet"
)

// DependencyType tags a directed relation between two identifiers of one document
type DependencyType string

const (
	Precedes         DependencyType = "precedes"
	ReadsFrom        DependencyType = "reads-from"
	WritesTo         DependencyType = "writes-to"
	DependsOn        DependencyType = "depends-on"
	Sequential       DependencyType = "sequential"
	FormulaReference DependencyType = "formula-reference"
	DataFlow         DependencyType = "data-flow"
	UsesConnection   DependencyType = "uses-connection"
)

// Data source types that denote data (tables, files, datasets) rather than a connection technology
const (
	SourceFile     = "FILE"
	SourceDatabase = "DATABASE"
	SourceTape     = "TAPE"
	SourceDataset  = "DATASET"
)

// Metadata identifies one parsed source unit
type Metadata struct {
	Name         string                 `json:"name" yaml:"name"`
	ID           string                 `json:"id" yaml:"id"`
	Format       Format                 `json:"format" yaml:"format"`
	Description  string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Version      string                 `json:"version,omitempty" yaml:"version,omitempty"`
	Author       string                 `json:"author,omitempty" yaml:"author,omitempty"`
	CreatedDate  string                 `json:"createdDate,omitempty" yaml:"createdDate,omitempty"`
	ModifiedDate string                 `json:"modifiedDate,omitempty" yaml:"modifiedDate,omitempty"`
	FilePath     string                 `json:"filePath,omitempty" yaml:"filePath,omitempty"`
	Fingerprint  uint64                 `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
	Attributes   map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Component is a named unit of behavior inside a document (paragraph, step, task, sheet, stage)
type Component struct {
	Name        string                 `json:"name" yaml:"name"`
	ID          string                 `json:"id" yaml:"id"`
	Type        string                 `json:"type" yaml:"type"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Source      string                 `json:"source,omitempty" yaml:"source,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Operations returns the operations recorded in the component properties
func (c *Component) Operations() []string {
	if c.Properties == nil {
		return nil
	}
	ops, _ := c.Properties[PropertyOperations].([]string)
	return ops
}

// PropertyOperations is the component property listing performed operations
const PropertyOperations = "operations"

// DataSource is an external connection, file or dataset referenced by a document
type DataSource struct {
	Name             string                 `json:"name" yaml:"name"`
	ID               string                 `json:"id" yaml:"id"`
	Type             string                 `json:"type" yaml:"type"`
	ConnectionString string                 `json:"connectionString,omitempty" yaml:"connectionString,omitempty"`
	Server           string                 `json:"server,omitempty" yaml:"server,omitempty"`
	Database         string                 `json:"database,omitempty" yaml:"database,omitempty"`
	FilePath         string                 `json:"filePath,omitempty" yaml:"filePath,omitempty"`
	Description      string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Properties       map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// IsData reports whether the source denotes data rather than a connection technology
func (s *DataSource) IsData() bool {
	switch strings.ToUpper(s.Type) {
	case SourceFile, SourceDatabase, SourceTape, SourceDataset:
		return true
	}
	return false
}

// Parameter is a named value scoped to a document
type Parameter struct {
	Name        string                 `json:"name" yaml:"name"`
	Namespace   string                 `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	DataType    string                 `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	Value       interface{}            `json:"value,omitempty" yaml:"value,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// DataEntity is a table, sheet or dataset referenced by a possibly schema-qualified name
type DataEntity struct {
	Name        string                 `json:"name" yaml:"name"`
	Type        string                 `json:"type" yaml:"type"`
	Schema      string                 `json:"schema,omitempty" yaml:"schema,omitempty"`
	Database    string                 `json:"database,omitempty" yaml:"database,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     []string               `json:"columns,omitempty" yaml:"columns,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// QualifiedName returns schema.name when a schema is set
func (e *DataEntity) QualifiedName() string {
	if e.Schema == "" {
		return e.Name
	}
	return e.Schema + "." + e.Name
}

// FullName returns database.schema.name, omitting empty parts
func (e *DataEntity) FullName() string {
	if e.Database == "" {
		return e.QualifiedName()
	}
	return e.Database + "." + e.QualifiedName()
}

// EntityFromName splits a dotted reference into database, schema and name
func EntityFromName(name, entityType string) *DataEntity {
	entity := &DataEntity{Name: name, Type: entityType}
	parts := strings.Split(name, ".")
	switch {
	case len(parts) == 2:
		entity.Schema, entity.Name = parts[0], parts[1]
	case len(parts) >= 3:
		entity.Database = strings.Join(parts[:len(parts)-2], ".")
		entity.Schema, entity.Name = parts[len(parts)-2], parts[len(parts)-1]
	}
	return entity
}

// Dependency is a directed relation between two identifiers within one document
type Dependency struct {
	From        string                 `json:"from" yaml:"from"`
	To          string                 `json:"to" yaml:"to"`
	Type        DependencyType         `json:"type" yaml:"type"`
	Condition   string                 `json:"condition,omitempty" yaml:"condition,omitempty"`
	Expression  string                 `json:"expression,omitempty" yaml:"expression,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Document is the common output of every inspector
type Document struct {
	Metadata     Metadata      `json:"metadata" yaml:"metadata"`
	Components   []*Component  `json:"components,omitempty" yaml:"components,omitempty"`
	DataSources  []*DataSource `json:"dataSources,omitempty" yaml:"dataSources,omitempty"`
	Parameters   []*Parameter  `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	DataEntities []*DataEntity `json:"dataEntities,omitempty" yaml:"dataEntities,omitempty"`
	Dependencies []*Dependency `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// New creates an empty document
func New(metadata Metadata) *Document {
	return &Document{Metadata: metadata}
}

// AddComponent appends a component
func (d *Document) AddComponent(component *Component) {
	d.Components = append(d.Components, component)
}

// AddDataSource appends a data source
func (d *Document) AddDataSource(source *DataSource) {
	d.DataSources = append(d.DataSources, source)
}

// AddParameter appends a parameter
func (d *Document) AddParameter(parameter *Parameter) {
	d.Parameters = append(d.Parameters, parameter)
}

// AddDataEntity appends an entity unless one with the same qualified name is already present
func (d *Document) AddDataEntity(entity *DataEntity) {
	key := strings.ToUpper(entity.QualifiedName())
	for _, candidate := range d.DataEntities {
		if strings.ToUpper(candidate.QualifiedName()) == key {
			return
		}
	}
	d.DataEntities = append(d.DataEntities, entity)
}

// AddDependency appends a dependency
func (d *Document) AddDependency(dependency *Dependency) {
	d.Dependencies = append(d.Dependencies, dependency)
}

// LookupComponent returns a component by its document-scoped id
func (d *Document) LookupComponent(id string) *Component {
	for _, component := range d.Components {
		if component.ID == id {
			return component
		}
	}
	return nil
}

// Identifiers returns every identifier declared by the document: component ids,
// data source ids, parameter names and entity names (plain and qualified)
func (d *Document) Identifiers() map[string]bool {
	result := make(map[string]bool, len(d.Components)+len(d.DataSources)+len(d.DataEntities))
	for _, component := range d.Components {
		result[component.ID] = true
	}
	for _, source := range d.DataSources {
		result[source.ID] = true
	}
	for _, parameter := range d.Parameters {
		result[parameter.Name] = true
	}
	for _, entity := range d.DataEntities {
		result[entity.Name] = true
		result[entity.QualifiedName()] = true
		result[entity.FullName()] = true
	}
	return result
}

// TargetsData reports whether the dependency points at data (table, file, connection)
// rather than at another component
func (t DependencyType) TargetsData() bool {
	switch t {
	case ReadsFrom, WritesTo, UsesConnection, DataFlow:
		return true
	}
	return false
}

// DropUnresolved removes dependencies whose source is undeclared, or whose component
// target is undeclared. Data targets are kept since they may match a table or
// connection declared by another document. It returns the number of removed entries.
func (d *Document) DropUnresolved() int {
	declared := d.Identifiers()
	kept := d.Dependencies[:0]
	dropped := 0
	for _, dependency := range d.Dependencies {
		if dependency == nil || !declared[dependency.From] {
			dropped++
			continue
		}
		if !declared[dependency.To] && !dependency.Type.TargetsData() {
			dropped++
			continue
		}
		kept = append(kept, dependency)
	}
	for i := len(kept); i < len(d.Dependencies); i++ {
		d.Dependencies[i] = nil
	}
	d.Dependencies = kept
	return dropped
}
