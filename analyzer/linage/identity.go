package linage

import (
	"fmt"
	"strings"

	"github.com/viant/tracegraph/inspector/document"
)

// NodeID is a graph-wide unique node reference: the node kind followed by a scope qualified identifier
type NodeID string

// MakeNodeID joins the kind tag and a scoped identifier
func MakeNodeID(kind NodeKind, scoped string) NodeID {
	return NodeID(string(kind) + ":" + scoped)
}

// ParseNodeID splits a node id into its kind and scoped identifier
func ParseNodeID(id NodeID) (NodeKind, string, error) {
	kind, scoped, ok := strings.Cut(string(id), ":")
	if !ok || scoped == "" {
		return "", "", fmt.Errorf("invalid node id: %q", id)
	}
	for _, candidate := range NodeKinds {
		if string(candidate) == kind {
			return candidate, scoped, nil
		}
	}
	return "", "", fmt.Errorf("unknown node kind %q in %q", kind, id)
}

// Kind returns the kind tag of the id, or an empty kind for a malformed id
func (id NodeID) Kind() NodeKind {
	kind, _, err := ParseNodeID(id)
	if err != nil {
		return ""
	}
	return kind
}

// DocumentID returns the Document node id for a document identifier
func DocumentID(docID string) NodeID {
	return MakeNodeID(KindDocument, docID)
}

// TaskID returns the Task node id of a component within a document
func TaskID(docID, componentID string) NodeID {
	return MakeNodeID(KindTask, docID+":"+componentID)
}

// ConnectionID returns the Connection node id of a data source within a document
func ConnectionID(docID, sourceID string) NodeID {
	return MakeNodeID(KindConnection, docID+":"+sourceID)
}

// ParameterID returns the Parameter node id; an empty namespace is reported as default
func ParameterID(docID, namespace, name string) NodeID {
	if namespace == "" {
		namespace = "default"
	}
	return MakeNodeID(KindParameter, docID+":"+namespace+":"+name)
}

// TableKey is the normalized (schema, name) identity of a Table node
type TableKey struct {
	Schema string
	Name   string
}

func (k TableKey) String() string {
	if k.Schema == "" {
		return k.Name
	}
	return k.Schema + "." + k.Name
}

// IsZero reports an empty key
func (k TableKey) IsZero() bool {
	return k.Name == ""
}

// ID returns the Table node id of the key
func (k TableKey) ID() NodeID {
	return MakeNodeID(KindTable, k.String())
}

// ColumnID returns the Column node id of a column in the table
func (k TableKey) ColumnID(column string) NodeID {
	return MakeNodeID(KindColumn, k.String()+"."+normalizePart(column))
}

// ParseTableName resolves a possibly qualified table reference: name, schema.name or
// database.schema.name (the database is discarded). Longer references keep the last two parts.
// Parts are trimmed, unquoted and upper-cased.
func ParseTableName(name string) TableKey {
	var parts []string
	for _, part := range strings.Split(name, ".") {
		if part = normalizePart(part); part != "" {
			parts = append(parts, part)
		}
	}
	switch len(parts) {
	case 0:
		return TableKey{}
	case 1:
		return TableKey{Name: parts[0]}
	}
	return TableKey{Schema: parts[len(parts)-2], Name: parts[len(parts)-1]}
}

// DatasetKey keys a file, tape or dataset by its full normalized name; dataset qualifiers are not schemas
func DatasetKey(name string) TableKey {
	var parts []string
	for _, part := range strings.Split(name, ".") {
		if part = normalizePart(part); part != "" {
			parts = append(parts, part)
		}
	}
	return TableKey{Name: strings.Join(parts, ".")}
}

// EntityKey resolves a data entity; an explicit schema wins over a qualified name
func EntityKey(entity *document.DataEntity) TableKey {
	if entity.Schema == "" {
		return ParseTableName(entity.Name)
	}
	key := ParseTableName(entity.Name)
	key.Schema = normalizePart(entity.Schema)
	return key
}

// SourceKey resolves a data-typed source: databases by schema, other data sources by full name
func SourceKey(source *document.DataSource) TableKey {
	name := source.Name
	if name == "" {
		name = source.ID
	}
	if strings.EqualFold(source.Type, document.SourceDatabase) {
		return ParseTableName(name)
	}
	return DatasetKey(name)
}

func normalizePart(part string) string {
	part = strings.TrimSpace(part)
	part = strings.Trim(part, "[]\"`")
	return strings.ToUpper(strings.TrimSpace(part))
}
