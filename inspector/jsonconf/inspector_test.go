package jsonconf_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/tracegraph/inspector/document"
	"github.com/viant/tracegraph/inspector/jsonconf"
)

const nightlyJobs = `{
  "name": "nightly",
  "id": "etl-nightly",
  "version": "2",
  "owner": "data-team",
  "connections": [
    {"id": "dw", "name": "Warehouse", "type": "postgres", "host": "db1", "database": "sales"}
  ],
  "jobs": [
    {"id": "extract", "name": "Extract", "inputs": ["raw.orders"], "outputs": [{"name": "orders", "schema": "staging"}], "connection": "Warehouse"},
    {"id": "load", "name": "Load", "depends_on": ["Extract"], "sql": "INSERT INTO mart.sales SELECT * FROM staging.orders"},
    {"id": "report", "depends_on": [{"id": "load"}, "missing"]}
  ],
  "parameters": {
    "run_date": "2024-01-01",
    "batch": {"value": 5, "description": "batch size"}
  }
}`

type edge struct {
	from, to string
	kind     document.DependencyType
}

func edges(doc *document.Document) []edge {
	var result []edge
	for _, dep := range doc.Dependencies {
		result = append(result, edge{from: dep.From, to: dep.To, kind: dep.Type})
	}
	return result
}

func componentIDs(doc *document.Document) []string {
	var result []string
	for _, component := range doc.Components {
		result = append(result, component.ID)
	}
	return result
}

func TestInspector_Jobs(t *testing.T) {
	inspector := jsonconf.NewInspector(nil)
	doc, err := inspector.InspectSource("nightly.json", []byte(nightlyJobs))
	require.NoError(t, err)

	assert.Equal(t, "etl-nightly", doc.Metadata.ID)
	assert.Equal(t, "nightly", doc.Metadata.Name)
	assert.Equal(t, "2", doc.Metadata.Version)
	assert.Equal(t, "data-team", doc.Metadata.Attributes["owner"])

	assert.Equal(t, []string{"extract", "load", "report"}, componentIDs(doc))
	assert.Equal(t, "Unknown Job", doc.Components[2].Name)
	assert.Equal(t, jsonconf.TypeJob, doc.Components[0].Type)
	assert.Equal(t, "INSERT INTO mart.sales SELECT * FROM staging.orders", doc.Components[1].Source)

	require.Len(t, doc.DataSources, 1)
	assert.Equal(t, "db1", doc.DataSources[0].Server)
	assert.Equal(t, "postgres", doc.DataSources[0].Type)

	assert.ElementsMatch(t, []edge{
		{from: "extract", to: "raw.orders", kind: document.ReadsFrom},
		{from: "extract", to: "staging.orders", kind: document.WritesTo},
		{from: "extract", to: "dw", kind: document.UsesConnection},
		{from: "extract", to: "load", kind: document.DependsOn},
		{from: "load", to: "report", kind: document.DependsOn},
	}, edges(doc))

	require.Len(t, doc.Parameters, 2)
	assert.Equal(t, "run_date", doc.Parameters[0].Name)
	assert.Equal(t, "string", doc.Parameters[0].DataType)
	assert.Equal(t, "batch", doc.Parameters[1].Name)
	assert.EqualValues(t, 5, doc.Parameters[1].Value)
	assert.Equal(t, "int", doc.Parameters[1].DataType)
	assert.Equal(t, "batch size", doc.Parameters[1].Description)
}

func TestInspector_Shapes(t *testing.T) {
	tests := []struct {
		name           string
		filename       string
		source         string
		wantComponents []string
		wantEdges      []edge
		wantEntities   []string
	}{
		{
			name:           "pipeline stages run in order",
			filename:       "flow.json",
			source:         `{"pipeline": [{"name": "a"}, {"name": "b"}, {"name": "c"}]}`,
			wantComponents: []string{"json_flow_stage_0", "json_flow_stage_1", "json_flow_stage_2"},
			wantEdges: []edge{
				{from: "json_flow_stage_0", to: "json_flow_stage_1", kind: document.Sequential},
				{from: "json_flow_stage_1", to: "json_flow_stage_2", kind: document.Sequential},
			},
		},
		{
			name:         "schema tables",
			filename:     "schema.json",
			source:       `{"schema": {"tables": [{"name": "customers", "schema": "sales", "columns": ["id", {"name": "email"}]}]}}`,
			wantEntities: []string{"sales.customers"},
		},
		{
			name:           "generic object",
			filename:       "cfg.json",
			source:         `{"name": "settings", "enabled": true}`,
			wantComponents: []string{"json_cfg_root"},
		},
	}
	inspector := jsonconf.NewInspector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := inspector.InspectSource(tt.filename, []byte(tt.source))
			require.NoError(t, err)
			assert.Equal(t, tt.wantComponents, componentIDs(doc))
			assert.Equal(t, tt.wantEdges, edges(doc))
			var entities []string
			for _, entity := range doc.DataEntities {
				entities = append(entities, entity.QualifiedName())
			}
			assert.Equal(t, tt.wantEntities, entities)
		})
	}
}

func TestInspector_Columns(t *testing.T) {
	inspector := jsonconf.NewInspector(nil)
	doc, err := inspector.InspectSource("schema.json", []byte(`{"tables": [{"name": "customers", "columns": ["id", {"name": "email"}]}]}`))
	require.NoError(t, err)
	require.Len(t, doc.DataEntities, 1)
	assert.Equal(t, []string{"id", "email"}, doc.DataEntities[0].Columns)
}

func TestInspector_Malformed(t *testing.T) {
	inspector := jsonconf.NewInspector(nil)
	for _, source := range []string{`{"bad": `, `[1, 2]`, ``} {
		_, err := inspector.InspectSource("bad.json", []byte(source))
		assert.True(t, errors.Is(err, document.ErrMalformedSource), source)
	}
}
