package linage

import "github.com/viant/tracegraph/inspector/document"

// NodeKind tags a graph node
type NodeKind string

const (
	KindDocument   NodeKind = "Document"
	KindConnection NodeKind = "Connection"
	KindParameter  NodeKind = "Parameter"
	KindTask       NodeKind = "Task"
	KindTable      NodeKind = "Table"
	KindColumn     NodeKind = "Column"
)

// NodeKinds lists every node kind in reporting order
var NodeKinds = []NodeKind{KindDocument, KindConnection, KindParameter, KindTask, KindTable, KindColumn}

// EdgeKind tags a graph edge
type EdgeKind string

const (
	Contains       EdgeKind = "CONTAINS"
	UsesConnection EdgeKind = "USES_CONNECTION"
	ReadsFrom      EdgeKind = "READS_FROM"
	WritesTo       EdgeKind = "WRITES_TO"
	Precedes       EdgeKind = "PRECEDES"
	DependsOn      EdgeKind = "DEPENDS_ON"
	HasColumn      EdgeKind = "HAS_COLUMN"
	Transforms     EdgeKind = "TRANSFORMS" // table to table mapping
)

// EdgeKinds lists every edge kind in reporting order
var EdgeKinds = []EdgeKind{Contains, UsesConnection, ReadsFrom, WritesTo, Precedes, DependsOn, HasColumn, Transforms}

// EdgeKindOf maps a document dependency type to an edge kind; unknown types become Precedes
func EdgeKindOf(dependencyType document.DependencyType) EdgeKind {
	switch dependencyType {
	case document.ReadsFrom:
		return ReadsFrom
	case document.WritesTo:
		return WritesTo
	case document.DependsOn, document.FormulaReference:
		return DependsOn
	case document.DataFlow:
		return Transforms
	case document.UsesConnection:
		return UsesConnection
	}
	return Precedes
}

func (k EdgeKind) targetsData() bool {
	switch k {
	case ReadsFrom, WritesTo, UsesConnection, Transforms:
		return true
	}
	return false
}

// Direction selects the side of a lineage trace
type Direction string

const (
	Upstream   Direction = "upstream"
	Downstream Direction = "downstream"
	Both       Direction = "both"
)

func (d Direction) upstream() bool {
	return d == Upstream || d == Both || d == ""
}

func (d Direction) downstream() bool {
	return d == Downstream || d == Both || d == ""
}
