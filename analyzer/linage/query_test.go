package linage_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/tracegraph/analyzer/linage"
	"github.com/viant/tracegraph/inspector/document"
	"gopkg.in/yaml.v3"
)

func lineageQuery(t *testing.T) *linage.Query {
	t.Helper()
	builder := linage.NewBuilder(nil)
	builder.Add(lineageDocument())
	return linage.NewQuery(builder.Graph())
}

func TestQuery_TraceLineage(t *testing.T) {
	query := lineageQuery(t)
	testCases := []struct {
		name             string
		table            string
		direction        linage.Direction
		expectUpstream   []linage.NodeID
		expectDownstream []linage.NodeID
	}{
		{name: "both", table: "STAGING", direction: linage.Both, expectUpstream: []linage.NodeID{"Table:RAW"}, expectDownstream: []linage.NodeID{"Table:MART"}},
		{name: "empty direction is both", table: "staging", expectUpstream: []linage.NodeID{"Table:RAW"}, expectDownstream: []linage.NodeID{"Table:MART"}},
		{name: "upstream only", table: "STAGING", direction: linage.Upstream, expectUpstream: []linage.NodeID{"Table:RAW"}},
		{name: "downstream only", table: "STAGING", direction: linage.Downstream, expectDownstream: []linage.NodeID{"Table:MART"}},
		{name: "one hop only", table: "RAW", direction: linage.Both, expectDownstream: []linage.NodeID{"Table:STAGING"}},
		{name: "source of mart", table: "MART", direction: linage.Upstream, expectUpstream: []linage.NodeID{"Table:STAGING"}},
		{name: "unknown table", table: "NOWHERE", direction: linage.Both},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			lineage := query.TraceLineage(testCase.table, testCase.direction)
			require.NotNil(t, lineage)
			assert.Equal(t, testCase.expectUpstream, ids(lineage.Upstream))
			assert.Equal(t, testCase.expectDownstream, ids(lineage.Downstream))
		})
	}
}

func TestQuery_TraceLineage_Deduplicated(t *testing.T) {
	doc := lineageDocument()
	doc.AddComponent(&document.Component{ID: "T3", Name: "T3"})
	doc.AddDependency(&document.Dependency{From: "T3", To: "RAW", Type: document.ReadsFrom})
	doc.AddDependency(&document.Dependency{From: "T3", To: "STAGING", Type: document.WritesTo})
	doc.AddDependency(&document.Dependency{From: "T3", To: "STAGING", Type: document.ReadsFrom})
	builder := linage.NewBuilder(nil)
	builder.Add(doc)

	lineage := linage.NewQuery(builder.Graph()).TraceLineage("STAGING", linage.Both)
	assert.Equal(t, []linage.NodeID{"Table:RAW"}, ids(lineage.Upstream))
	assert.Equal(t, []linage.NodeID{"Table:MART"}, ids(lineage.Downstream), "the table itself is excluded")
}

func TestQuery_ReadersWriters(t *testing.T) {
	query := lineageQuery(t)
	t1, t2 := linage.TaskID("etl", "T1"), linage.TaskID("etl", "T2")

	assert.Equal(t, []linage.NodeID{t2}, ids(query.ReadersOf("STAGING")))
	assert.Equal(t, []linage.NodeID{t1}, ids(query.WritersOf("STAGING")))
	assert.Empty(t, query.WritersOf("RAW"))
	assert.Empty(t, query.ReadersOf("UNKNOWN"))

	assert.Equal(t, []linage.NodeID{"Table:RAW"}, ids(query.TablesReadBy(t1)))
	assert.Equal(t, []linage.NodeID{"Table:STAGING"}, ids(query.TablesWrittenBy(t1)))
	assert.Empty(t, query.TablesReadBy("Task:etl:missing"))

	neighbors := map[linage.NodeID]bool{}
	for _, node := range append(query.ReadersOf("STAGING"), query.WritersOf("STAGING")...) {
		neighbors[node.ID] = true
	}
	importance, ok := query.NodeImportance("Table:STAGING")
	require.True(t, ok)
	assert.Equal(t, importance.InDegree, len(neighbors))
}

func TestQuery_DependenciesOf(t *testing.T) {
	query := lineageQuery(t)
	t1, t2 := linage.TaskID("etl", "T1"), linage.TaskID("etl", "T2")

	deps := query.DependenciesOf(t2)
	assert.Equal(t, []linage.NodeID{t1}, ids(deps.Predecessors))
	assert.Empty(t, deps.Successors)

	deps = query.DependenciesOf(t1)
	assert.Empty(t, deps.Predecessors)
	assert.Equal(t, []linage.NodeID{t2}, ids(deps.Successors))

	deps = query.DependenciesOf("Task:etl:missing")
	assert.Empty(t, deps.Predecessors)
	assert.Empty(t, deps.Successors)
}

func TestQuery_ContainmentOf(t *testing.T) {
	doc := lineageDocument()
	doc.AddDataSource(&document.DataSource{ID: "conn", Name: "Warehouse", Type: "OLEDB"})
	doc.AddDataSource(&document.DataSource{ID: "EXPORT.FILE", Name: "EXPORT.FILE", Type: document.SourceFile})
	doc.AddParameter(&document.Parameter{Name: "RunDate"})
	builder := linage.NewBuilder(nil)
	builder.Add(doc)
	query := linage.NewQuery(builder.Graph())

	for _, id := range []string{"etl", "Document:etl"} {
		containment := query.ContainmentOf(id)
		assert.Equal(t, []linage.NodeID{"Connection:etl:conn"}, ids(containment.Connections), id)
		assert.Equal(t, []linage.NodeID{"Parameter:etl:default:RunDate"}, ids(containment.Parameters), id)
		assert.Equal(t, []linage.NodeID{"Task:etl:T1", "Task:etl:T2"}, ids(containment.Tasks), id)
		assert.Equal(t, []linage.NodeID{"Table:EXPORT.FILE"}, ids(containment.Tables), id)
	}
	assert.Empty(t, query.ContainmentOf("missing").Tasks)
}

func TestQuery_Find(t *testing.T) {
	query := lineageQuery(t)
	assert.Len(t, query.FindByType(linage.KindTask), 2)
	assert.Len(t, query.FindByType(linage.KindTable), 3)
	assert.Empty(t, query.FindByType(linage.KindColumn))

	assert.Equal(t, []linage.NodeID{"Table:MART"}, ids(query.FindByName("MART")))
	assert.Empty(t, query.FindByName("MART", linage.KindTask))
	assert.Equal(t, []linage.NodeID{"Task:etl:T1", "Task:etl:T2"}, ids(query.Search("t", linage.KindTask)))
	assert.Equal(t, []linage.NodeID{"Table:STAGING"}, ids(query.Search("stag")))
}

func TestQuery_ShortestPath(t *testing.T) {
	query := lineageQuery(t)
	testCases := []struct {
		name     string
		from, to linage.NodeID
		expect   []linage.NodeID
		found    bool
	}{
		{name: "through task", from: "Document:etl", to: "Table:MART", expect: []linage.NodeID{"Document:etl", "Task:etl:T2", "Table:MART"}, found: true},
		{name: "direct", from: "Task:etl:T1", to: "Task:etl:T2", expect: []linage.NodeID{"Task:etl:T1", "Task:etl:T2"}, found: true},
		{name: "same node", from: "Table:RAW", to: "Table:RAW", expect: []linage.NodeID{"Table:RAW"}, found: true},
		{name: "against direction", from: "Table:MART", to: "Table:RAW"},
		{name: "unknown node", from: "Table:NOPE", to: "Table:RAW"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			actual, ok := query.ShortestPath(testCase.from, testCase.to)
			assert.Equal(t, testCase.found, ok)
			assert.Equal(t, testCase.expect, actual)
		})
	}
}

func TestQuery_Stats(t *testing.T) {
	builder := linage.NewBuilder(nil)
	builder.Add(lineageDocument())
	query := linage.NewQuery(builder.Graph())

	stats := query.Stats()
	assert.Equal(t, 6, stats.TotalNodes)
	assert.Equal(t, 7, stats.TotalEdges)
	assert.Equal(t, 1, stats.Nodes[linage.KindDocument])
	assert.Equal(t, 2, stats.Nodes[linage.KindTask])
	assert.Equal(t, 3, stats.Nodes[linage.KindTable])
	assert.Equal(t, 0, stats.Nodes[linage.KindColumn])
	assert.Equal(t, 2, stats.Edges[linage.Contains])
	assert.Equal(t, 2, stats.Edges[linage.ReadsFrom])
	assert.Equal(t, 2, stats.Edges[linage.WritesTo])
	assert.Equal(t, 1, stats.Edges[linage.Precedes])
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Components)
	assert.True(t, stats.WeaklyConnected)

	island := document.New(document.Metadata{ID: "island", Name: "island"})
	island.AddComponent(&document.Component{ID: "solo", Name: "solo"})
	builder.Add(island)
	stats = query.Stats()
	assert.Equal(t, 2, stats.Components)
	assert.False(t, stats.WeaklyConnected)

	components := query.ConnectedComponents()
	require.Len(t, components, 2)
	assert.Len(t, components[0], 6)
	assert.Equal(t, []linage.NodeID{"Document:island", "Task:island:solo"}, components[1])

	importance, ok := query.NodeImportance("Task:etl:T1")
	require.True(t, ok)
	assert.Equal(t, &linage.Importance{InDegree: 1, OutDegree: 3, TotalDegree: 4}, importance)
	_, ok = query.NodeImportance("Task:etl:none")
	assert.False(t, ok)
}

func TestQuery_EmptyGraph(t *testing.T) {
	query := linage.NewQuery(linage.New())
	stats := query.Stats()
	assert.Equal(t, 0, stats.TotalNodes)
	assert.Equal(t, 0, stats.Components)
	assert.False(t, stats.WeaklyConnected)
	assert.Empty(t, query.ConnectedComponents())
	assert.Empty(t, query.TraceLineage("X", linage.Both).Upstream)
}

func TestQuery_ReturnsCopies(t *testing.T) {
	builder := linage.NewBuilder(nil)
	builder.Add(lineageDocument())
	g := builder.Graph()
	query := linage.NewQuery(g)

	tables := query.FindByType(linage.KindTable)
	require.NotEmpty(t, tables)
	original := tables[0].Name
	tables[0].Name = "renamed"
	tables[0].Attributes = map[string]interface{}{"owner": "someone"}
	node, ok := g.Node(tables[0].ID)
	require.True(t, ok)
	assert.Equal(t, original, node.Name)
	assert.Nil(t, node.Attribute("owner"))

	node.Attributes["owner"] = "someone"
	again, ok := g.Node(node.ID)
	require.True(t, ok)
	assert.Nil(t, again.Attribute("owner"))

	readers := query.ReadersOf("STAGING")
	require.Len(t, readers, 1)
	reader := readers[0].ID
	readers[0].ID = "Task:forged"
	assert.Equal(t, []linage.NodeID{reader}, ids(query.ReadersOf("STAGING")))

	lineage := query.TraceLineage("STAGING", linage.Upstream)
	require.Len(t, lineage.Upstream, 1)
	lineage.Upstream[0].Kind = linage.KindTask
	assert.Len(t, query.FindByType(linage.KindTable), len(tables))

	edges := g.Edges()
	require.NotEmpty(t, edges)
	edge := *edges[0]
	edges[0].Kind = linage.Transforms
	assert.True(t, g.HasEdge(edge.From, edge.To, edge.Kind))
	assert.False(t, g.HasEdge(edge.From, edge.To, linage.Transforms))
}

func TestQuery_ConcurrentReads(t *testing.T) {
	builder := linage.NewBuilder(nil)
	query := linage.NewQuery(builder.Graph())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				query.TraceLineage("STAGING", linage.Both)
				query.Stats()
			}
		}()
	}
	builder.Add(lineageDocument())
	wg.Wait()
	assert.Equal(t, []linage.NodeID{"Table:RAW"}, ids(query.TraceLineage("STAGING", linage.Upstream).Upstream))
}

func TestGraph_NodeLink(t *testing.T) {
	builder := linage.NewBuilder(nil)
	doc := lineageDocument()
	doc.Dependencies[4].Condition = "Success"
	builder.Add(doc)
	dump := builder.Graph().NodeLink()

	assert.True(t, dump.Directed)
	require.Len(t, dump.Nodes, 6)
	require.Len(t, dump.Links, 7)
	assert.Equal(t, linage.NodeID("Document:etl"), dump.Nodes[0].ID)
	assert.Equal(t, linage.KindDocument, dump.Nodes[0].Type)
	assert.Equal(t, "etl", dump.Nodes[0].Properties["name"])

	last := dump.Links[len(dump.Links)-1]
	assert.Equal(t, linage.Precedes, last.Type)
	assert.Equal(t, "Success", last.Properties["condition"])

	data, err := json.Marshal(dump)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"source":"Task:etl:T1"`)
	data, err = yaml.Marshal(dump)
	require.NoError(t, err)
	assert.Contains(t, string(data), "directed: true")
}
