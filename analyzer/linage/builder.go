package linage

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/viant/tracegraph/inspector/document"
	"github.com/viant/tracegraph/inspector/sqlref"
)

// Addition summarizes one AddDocument call
type Addition struct {
	DocumentID NodeID
	Nodes      int  // nodes created
	Edges      int  // edges created
	Dropped    int  // dependencies whose ends could not be resolved
	Unchanged  bool // the same content was already added
}

// Builder is the only writer of a Graph; additions are serialized
type Builder struct {
	graph  *Graph
	logger *slog.Logger
	mux    sync.Mutex
}

// BuilderOption customizes a builder
type BuilderOption func(b *Builder)

// WithLogger sets the builder logger
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder creates a builder extending graph, or a new graph when nil
func NewBuilder(graph *Graph, options ...BuilderOption) *Builder {
	if graph == nil {
		graph = New()
	}
	b := &Builder{graph: graph, logger: slog.Default()}
	for _, option := range options {
		option(b)
	}
	return b
}

// Graph returns the graph under construction
func (b *Builder) Graph() *Graph {
	return b.graph
}

// AddDocument merges the document into the graph and returns its Document node id
func (b *Builder) AddDocument(doc *document.Document) NodeID {
	return b.Add(doc).DocumentID
}

// Add merges the document into the graph. Table nodes are shared across documents by their
// normalized (schema, name) key; every other node is scoped by the document id.
func (b *Builder) Add(doc *document.Document) *Addition {
	if doc == nil {
		return &Addition{}
	}
	b.mux.Lock()
	defer b.mux.Unlock()
	g := b.graph
	g.mux.Lock()
	defer g.mux.Unlock()

	nodes, edges := len(g.nodes), len(g.edges)
	docID := doc.Metadata.ID
	if docID == "" {
		docID = doc.Metadata.Name
	}
	result := &Addition{DocumentID: DocumentID(docID)}
	if state, ok := g.documents[docID]; ok && state.fingerprint != 0 && state.fingerprint == doc.Metadata.Fingerprint {
		result.Unchanged = true
		return result
	}
	g.documents[docID] = &documentState{fingerprint: doc.Metadata.Fingerprint}

	a := &addition{graph: g, doc: doc, docID: docID, documentNode: result.DocumentID, tasks: map[string]NodeID{}, data: map[string]NodeID{}}
	a.document()
	a.dataSources()
	a.parameters()
	a.components()
	a.entities()
	result.Dropped = a.dependencies()
	g.dropped += result.Dropped

	result.Nodes = len(g.nodes) - nodes
	result.Edges = len(g.edges) - edges
	b.logger.Debug("added document",
		slog.String("document", docID),
		slog.String("format", string(doc.Metadata.Format)),
		slog.Int("nodes", result.Nodes),
		slog.Int("edges", result.Edges),
		slog.Int("dropped", result.Dropped))
	return result
}

// AddDocuments adds documents in order
func (b *Builder) AddDocuments(docs ...*document.Document) []NodeID {
	result := make([]NodeID, 0, len(docs))
	for _, doc := range docs {
		result = append(result, b.AddDocument(doc))
	}
	return result
}

// addition resolves document scoped identifiers to graph nodes
type addition struct {
	graph        *Graph
	doc          *document.Document
	docID        string
	documentNode NodeID
	tasks        map[string]NodeID // component ids
	data         map[string]NodeID // source ids, parameter names, entity names
}

func (a *addition) document() {
	meta := a.doc.Metadata
	a.graph.addNode(a.documentNode, KindDocument, meta.Name, map[string]interface{}{
		"format":       string(meta.Format),
		"description":  meta.Description,
		"version":      meta.Version,
		"author":       meta.Author,
		"createdDate":  meta.CreatedDate,
		"modifiedDate": meta.ModifiedDate,
		"filePath":     meta.FilePath,
	})
}

func (a *addition) dataSources() {
	for _, source := range a.doc.DataSources {
		if source == nil {
			continue
		}
		var id NodeID
		if source.IsData() {
			key := SourceKey(source)
			if key.IsZero() {
				continue
			}
			id = a.table(key, map[string]interface{}{
				"type":     strings.ToUpper(source.Type),
				"database": source.Database,
				"server":   source.Server,
				"filePath": source.FilePath,
			})
		} else {
			id = ConnectionID(a.docID, source.ID)
			a.graph.addNode(id, KindConnection, source.Name, map[string]interface{}{
				"connectionType":   source.Type,
				"server":           source.Server,
				"database":         source.Database,
				"connectionString": source.ConnectionString,
				"description":      source.Description,
			})
			a.graph.registerConnection(id, source.ID, source.Name)
		}
		declare(a.data, id, source.ID, source.Name)
		a.edge(a.documentNode, id, Contains, "", "")
	}
}

func (a *addition) parameters() {
	for _, parameter := range a.doc.Parameters {
		if parameter == nil || parameter.Name == "" {
			continue
		}
		namespace := parameter.Namespace
		if namespace == "" {
			namespace = "default"
		}
		id := ParameterID(a.docID, parameter.Namespace, parameter.Name)
		a.graph.addNode(id, KindParameter, parameter.Name, map[string]interface{}{
			"namespace":   namespace,
			"dataType":    parameter.DataType,
			"value":       parameter.Value,
			"description": parameter.Description,
		})
		declare(a.data, id, parameter.Name)
		a.edge(a.documentNode, id, Contains, "", "")
	}
}

// components adds tasks and links the tables their query snippets read and write
func (a *addition) components() {
	for _, component := range a.doc.Components {
		if component == nil {
			continue
		}
		id := TaskID(a.docID, component.ID)
		a.graph.addNode(id, KindTask, component.Name, map[string]interface{}{
			"taskType":    component.Type,
			"description": component.Description,
			"source":      component.Source,
			"document":    a.docID,
		})
		declare(a.tasks, id, component.ID)
		a.edge(a.documentNode, id, Contains, "", "")
		if !sqlref.IsQuery(component.Source) {
			continue
		}
		refs := sqlref.Extract(component.Source)
		for _, name := range refs.Reads {
			if table := a.tableByName(name); table != "" {
				a.edge(id, table, ReadsFrom, "", "")
			}
		}
		for _, name := range refs.Writes {
			if table := a.tableByName(name); table != "" {
				a.edge(id, table, WritesTo, "", "")
			}
		}
	}
}

func (a *addition) entities() {
	for _, entity := range a.doc.DataEntities {
		if entity == nil {
			continue
		}
		key := EntityKey(entity)
		if key.IsZero() {
			continue
		}
		id := a.table(key, map[string]interface{}{
			"type":        entity.Type,
			"database":    entity.Database,
			"description": entity.Description,
		})
		declare(a.data, id, entity.Name, entity.QualifiedName(), entity.FullName())
		for _, column := range entity.Columns {
			if strings.TrimSpace(column) == "" {
				continue
			}
			columnID := key.ColumnID(column)
			a.graph.addNode(columnID, KindColumn, column, map[string]interface{}{"table": key.String()})
			a.edge(id, columnID, HasColumn, "", "")
		}
	}
}

// dependencies converts document dependencies to edges and returns the number dropped
func (a *addition) dependencies() int {
	dropped := 0
	for _, dependency := range a.doc.Dependencies {
		if dependency == nil {
			continue
		}
		kind := EdgeKindOf(dependency.Type)
		from, ok := a.resolve(dependency.From, kind, false)
		if !ok {
			dropped++
			continue
		}
		to, ok := a.resolve(dependency.To, kind, true)
		if !ok {
			dropped++
			continue
		}
		a.edge(from, to, kind, dependency.Condition, dependency.Expression)
	}
	return dropped
}

// resolve maps a document identifier to a node, preferring data declarations for data
// relations. Data targets fall back to graph-wide table and connection names; component
// references never leave the document.
func (a *addition) resolve(ref string, kind EdgeKind, target bool) (NodeID, bool) {
	preferData := kind == Transforms || (target && kind.targetsData())
	scopes := []map[string]NodeID{a.tasks, a.data}
	if preferData {
		scopes = []map[string]NodeID{a.data, a.tasks}
	}
	for _, scope := range scopes {
		if id, ok := lookup(scope, ref); ok {
			return id, true
		}
	}
	switch {
	case kind == UsesConnection && target:
		return a.graph.lookupConnection(ref)
	case preferData:
		if ids := a.graph.lookupTables(ref); len(ids) == 1 {
			return ids[0], true
		}
	}
	return "", false
}

func lookup(scope map[string]NodeID, ref string) (NodeID, bool) {
	if id, ok := scope[ref]; ok {
		return id, true
	}
	id, ok := scope[strings.ToUpper(ref)]
	return id, ok
}

func declare(scope map[string]NodeID, id NodeID, refs ...string) {
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if _, ok := scope[ref]; !ok {
			scope[ref] = id
		}
		upper := strings.ToUpper(ref)
		if _, ok := scope[upper]; !ok {
			scope[upper] = id
		}
	}
}

// table returns the Table node of the key, creating it on first reference
func (a *addition) table(key TableKey, attributes map[string]interface{}) NodeID {
	if id, ok := a.graph.tables[key]; ok {
		a.graph.addNode(id, KindTable, key.Name, attributes)
		return id
	}
	values := map[string]interface{}{
		"schema":        key.Schema,
		"qualifiedName": key.String(),
	}
	for k, v := range attributes {
		values[k] = v
	}
	id := key.ID()
	a.graph.addNode(id, KindTable, key.Name, values)
	a.graph.tables[key] = id
	return id
}

// tableByName resolves a query reference to an existing or new table
func (a *addition) tableByName(name string) NodeID {
	if id, ok := lookup(a.data, name); ok && id.Kind() == KindTable {
		return id
	}
	key := ParseTableName(name)
	if key.IsZero() {
		return ""
	}
	return a.table(key, map[string]interface{}{"type": "table"})
}

func (a *addition) edge(from, to NodeID, kind EdgeKind, condition, expression string) {
	a.graph.addEdge(&Edge{
		From:       from,
		To:         to,
		Kind:       kind,
		Condition:  condition,
		Expression: expression,
		Label:      label(from, to, kind),
	})
}

func label(from, to NodeID, kind EdgeKind) string {
	_, source, _ := strings.Cut(string(from), ":")
	_, target, _ := strings.Cut(string(to), ":")
	return fmt.Sprintf("%s %s %s", source, strings.ToLower(strings.ReplaceAll(string(kind), "_", " ")), target)
}
