package csvmap_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/tracegraph/inspector/csvmap"
	"github.com/viant/tracegraph/inspector/document"
)

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

func entities(doc *document.Document) []string {
	var result []string
	for _, entity := range doc.DataEntities {
		result = append(result, entity.QualifiedName())
	}
	return result
}

func TestInspector_Lineage(t *testing.T) {
	source := "source_table,target_table,transformation\n" +
		"raw.orders,staging.orders,dedupe\n" +
		"staging.orders,mart.sales,aggregate\n" +
		"\n" +
		"staging.orders,mart.sales,aggregate\n"
	doc, err := csvmap.NewInspector(nil).InspectSource("lineage.csv", []byte(source))
	require.NoError(t, err)

	assert.Equal(t, "csv_lineage", doc.Metadata.ID)
	assert.Equal(t, "lineage", doc.Metadata.Name)
	assert.Equal(t, "CSV file with 3 rows", doc.Metadata.Description)
	assert.Equal(t, string(csvmap.ShapeLineage), doc.Metadata.Attributes["shape"])
	assert.Equal(t, 3, doc.Metadata.Attributes["column_count"])

	assert.Equal(t, []string{"raw.orders", "staging.orders", "mart.sales"}, entities(doc))
	assert.Equal(t, []edge{
		{from: "raw.orders", to: "staging.orders", kind: document.DataFlow},
		{from: "staging.orders", to: "mart.sales", kind: document.DataFlow},
	}, edges(doc))
	assert.Equal(t, "dedupe", doc.Dependencies[0].Expression)
	assert.Equal(t, "aggregate", doc.Dependencies[1].Properties["transformation"])
}

func TestInspector_LineageJobs(t *testing.T) {
	source := "job\tsource\ttarget\n" +
		"load_orders\traw.orders\tstaging.orders\n" +
		"load_orders\traw.customers\tstaging.customers\n"
	doc, err := csvmap.NewInspector(nil).InspectSource("jobs.tsv", []byte(source))
	require.NoError(t, err)

	require.Len(t, doc.Components, 1)
	job := doc.Components[0]
	assert.Equal(t, "csv_jobs_job_load_orders", job.ID)
	assert.Equal(t, csvmap.TypeLineageJob, job.Type)
	assert.ElementsMatch(t, []edge{
		{from: job.ID, to: "raw.orders", kind: document.ReadsFrom},
		{from: job.ID, to: "staging.orders", kind: document.WritesTo},
		{from: job.ID, to: "raw.customers", kind: document.ReadsFrom},
		{from: job.ID, to: "staging.customers", kind: document.WritesTo},
	}, edges(doc))
}

func TestInspector_FieldMapping(t *testing.T) {
	source := "source_table,source_field,target_table,target_field,mapping_logic\n" +
		"crm.customer,cust_id,dw.dim_customer,customer_key,surrogate lookup\n" +
		"crm.customer,email,dw.dim_customer,email_address,lower()\n"
	doc, err := csvmap.NewInspector(nil).InspectSource("fields.csv", []byte(source))
	require.NoError(t, err)

	assert.Equal(t, string(csvmap.ShapeFieldMapping), doc.Metadata.Attributes["shape"])
	require.Len(t, doc.Components, 2)
	assert.Equal(t, "csv_fields_mapping_0", doc.Components[0].ID)
	assert.Equal(t, "cust_id -> customer_key", doc.Components[0].Name)
	assert.Equal(t, csvmap.TypeFieldMapping, doc.Components[0].Type)
	assert.Equal(t, "lower()", doc.Components[1].Source)

	require.Len(t, doc.DataEntities, 2)
	assert.Equal(t, []string{"cust_id", "email"}, doc.DataEntities[0].Columns)
	assert.Equal(t, []string{"customer_key", "email_address"}, doc.DataEntities[1].Columns)
	assert.Equal(t, []edge{{from: "crm.customer", to: "dw.dim_customer", kind: document.DataFlow}}, edges(doc))
}

func TestInspector_Shapes(t *testing.T) {
	tests := []struct {
		name           string
		filename       string
		source         string
		wantShape      csvmap.Shape
		wantComponents []string
		wantEdges      []edge
	}{
		{
			name:           "etl metadata with upstream jobs",
			filename:       "catalog.csv",
			source:         "job_name,schedule,depends_on\nextract,daily,\nload,daily,extract\n",
			wantShape:      csvmap.ShapeMetadata,
			wantComponents: []string{"csv_catalog_etl_0", "csv_catalog_etl_1"},
			wantEdges:      []edge{{from: "csv_catalog_etl_0", to: "csv_catalog_etl_1", kind: document.DependsOn}},
		},
		{
			name:           "generic rows",
			filename:       "owners.csv",
			source:         "team,contact\nfinance,a@b.c\n,x@y.z\n",
			wantShape:      csvmap.ShapeGeneric,
			wantComponents: []string{"csv_owners_row_0", "csv_owners_row_1"},
		},
		{
			name:      "semicolon delimited",
			filename:  "eu.csv",
			source:    "source_table;target_table\nA;B\n",
			wantShape: csvmap.ShapeLineage,
			wantEdges: []edge{{from: "A", to: "B", kind: document.DataFlow}},
		},
		{
			name:      "spaced headers",
			filename:  "flows.csv",
			source:    "Source Table,Target Table\nA,B\n",
			wantShape: csvmap.ShapeLineage,
			wantEdges: []edge{{from: "A", to: "B", kind: document.DataFlow}},
		},
		{
			name:      "suffixed headers",
			filename:  "flows.csv",
			source:    "source_table_name,target_table_name\nC,D\n",
			wantShape: csvmap.ShapeLineage,
			wantEdges: []edge{{from: "C", to: "D", kind: document.DataFlow}},
		},
		{
			name:           "name and description",
			filename:       "jobs.csv",
			source:         "name,description\nextract,Pulls orders\n",
			wantShape:      csvmap.ShapeMetadata,
			wantComponents: []string{"csv_jobs_etl_0"},
		},
		{
			name:           "description without a job name",
			filename:       "teams.csv",
			source:         "team,Job Description\nfinance,books\n",
			wantShape:      csvmap.ShapeGeneric,
			wantComponents: []string{"csv_teams_row_0"},
		},
		{
			name:      "header only",
			filename:  "empty.csv",
			source:    "source_table,target_table\n",
			wantShape: csvmap.ShapeLineage,
		},
	}
	inspector := csvmap.NewInspector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := inspector.InspectSource(tt.filename, []byte(tt.source))
			require.NoError(t, err)
			assert.Equal(t, string(tt.wantShape), doc.Metadata.Attributes["shape"])
			var components []string
			for _, component := range doc.Components {
				components = append(components, component.ID)
			}
			assert.Equal(t, tt.wantComponents, components)
			assert.Equal(t, tt.wantEdges, edges(doc))
		})
	}
}

func TestInspector_MetadataDescription(t *testing.T) {
	source := "Job Name,Job Description,Depends On\nextract,Pulls orders,\nload,Loads mart,extract\n"
	doc, err := csvmap.NewInspector(nil).InspectSource("catalog.csv", []byte(source))
	require.NoError(t, err)
	assert.Equal(t, string(csvmap.ShapeMetadata), doc.Metadata.Attributes["shape"])
	require.Len(t, doc.Components, 2)
	assert.Equal(t, "extract", doc.Components[0].Name)
	assert.Equal(t, "Pulls orders", doc.Components[0].Description)
	assert.Equal(t, "Pulls orders", doc.Components[0].Properties["Job Description"])
	assert.Equal(t, []edge{{from: "csv_catalog_etl_0", to: "csv_catalog_etl_1", kind: document.DependsOn}}, edges(doc))
}

func TestInspector_GenericRowName(t *testing.T) {
	doc, err := csvmap.NewInspector(nil).InspectSource("owners.csv", []byte("team,contact\n,x@y.z\n"))
	require.NoError(t, err)
	require.Len(t, doc.Components, 1)
	assert.Equal(t, "Row0", doc.Components[0].Name)
	assert.Equal(t, "x@y.z", doc.Components[0].Properties["contact"])
}

func TestInspector_Malformed(t *testing.T) {
	inspector := csvmap.NewInspector(nil)
	for _, source := range []string{"", "\n\n", ",,\nx,y,z\n"} {
		_, err := inspector.InspectSource("bad.csv", []byte(source))
		assert.True(t, errors.Is(err, document.ErrMalformedSource), source)
	}
}
