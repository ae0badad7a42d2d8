package csvmap

import (
	"fmt"
	"strings"

	"github.com/viant/tracegraph/inspector/document"
)

var (
	sourceTableColumns = []string{"source_table", "source", "from_table"}
	targetTableColumns = []string{"target_table", "target", "to_table"}
	sourceFieldColumns = []string{"source_field", "source_column"}
	targetFieldColumns = []string{"target_field", "target_column"}
	transformColumns   = []string{"transformation", "transform", "logic", "mapping_logic"}
	jobColumns         = []string{"job", "job_name", "task", "task_name", "step"}
	nameColumns        = []string{"job_name", "etl_name", "name", "pipeline"}
	metadataColumns    = []string{"job_name", "etl_name", "pipeline", "schedule", "description"}
	descriptionColumns = []string{"description", "desc"}
	upstreamColumns    = []string{"depends_on", "upstream", "predecessors"}
)

type mapping struct {
	config *document.Config
	doc    *document.Document
	table  *table
	seen   map[string]bool
}

// detect checks field mapping before lineage, since field headers also name a source and target.
// Metadata also needs a job name column, otherwise rows would yield no components.
func (m *mapping) detect() Shape {
	t := m.table
	switch {
	case t.column(sourceFieldColumns...) != -1 && t.column(targetFieldColumns...) != -1:
		return ShapeFieldMapping
	case t.column(sourceTableColumns...) != -1 && t.column(targetTableColumns...) != -1:
		return ShapeLineage
	case t.column(metadataColumns...) != -1 && t.column(nameColumns...) != -1:
		return ShapeMetadata
	}
	return ShapeGeneric
}

// lineage maps each row to a table-to-table flow; with a job column the job
// becomes a component reading the source and writing the target
func (m *mapping) lineage() {
	t := m.table
	source, target := t.column(sourceTableColumns...), t.column(targetTableColumns...)
	transform := t.column(transformColumns...)
	job := t.column(jobColumns...)
	for _, row := range t.rows {
		sourceName, targetName := t.value(row, source), t.value(row, target)
		if sourceName == "" || targetName == "" {
			continue
		}
		from := m.entity(sourceName, nil)
		to := m.entity(targetName, nil)
		logic := t.value(row, transform)
		if jobName := t.value(row, job); jobName != "" {
			component := m.component(jobName)
			m.depend(&document.Dependency{From: component.ID, To: from, Type: document.ReadsFrom})
			m.depend(&document.Dependency{From: component.ID, To: to, Type: document.WritesTo, Expression: logic})
			continue
		}
		dependency := &document.Dependency{From: from, To: to, Type: document.DataFlow, Expression: logic}
		if logic != "" {
			dependency.Properties = map[string]interface{}{"transformation": logic}
		}
		m.depend(dependency)
	}
}

func (m *mapping) component(jobName string) *document.Component {
	id := fmt.Sprintf("%s_job_%s", m.doc.Metadata.ID, jobName)
	if component := m.doc.LookupComponent(id); component != nil {
		return component
	}
	component := &document.Component{
		Name:        jobName,
		ID:          id,
		Type:        TypeLineageJob,
		Description: "Lineage job " + jobName,
	}
	m.doc.AddComponent(component)
	return component
}

// fieldMapping maps each row to a component; when table columns are present the
// mapped fields are attached as entity columns and the tables linked by a flow
func (m *mapping) fieldMapping() {
	t := m.table
	sourceField, targetField := t.column(sourceFieldColumns...), t.column(targetFieldColumns...)
	sourceTable, targetTable := t.column(sourceTableColumns...), t.column(targetTableColumns...)
	logic := t.column(transformColumns...)
	for index, row := range t.rows {
		from, to := t.value(row, sourceField), t.value(row, targetField)
		if from == "" || to == "" {
			continue
		}
		m.doc.AddComponent(&document.Component{
			Name:        from + " -> " + to,
			ID:          fmt.Sprintf("%s_mapping_%d", m.doc.Metadata.ID, index),
			Type:        TypeFieldMapping,
			Description: fmt.Sprintf("Maps %s to %s", from, to),
			Source:      m.config.Snippet(t.value(row, logic)),
			Properties:  t.properties(row),
		})
		fromTable, toTable := t.value(row, sourceTable), t.value(row, targetTable)
		if fromTable == "" || toTable == "" {
			continue
		}
		fromID := m.entity(fromTable, []string{from})
		toID := m.entity(toTable, []string{to})
		m.depend(&document.Dependency{From: fromID, To: toID, Type: document.DataFlow})
	}
}

// metadata maps each row to a job component; an upstream column lists prerequisite job names
func (m *mapping) metadata() {
	t := m.table
	name := t.column(nameColumns...)
	description := t.column(descriptionColumns...)
	upstream := t.column(upstreamColumns...)
	ids := map[string]string{}
	var pending []*document.Dependency
	for index, row := range t.rows {
		jobName := t.value(row, name)
		if jobName == "" {
			continue
		}
		id := fmt.Sprintf("%s_etl_%d", m.doc.Metadata.ID, index)
		ids[jobName] = id
		m.doc.AddComponent(&document.Component{
			Name:        jobName,
			ID:          id,
			Type:        TypeJob,
			Description: t.value(row, description),
			Properties:  t.properties(row),
		})
		for _, prerequisite := range splitList(t.value(row, upstream)) {
			pending = append(pending, &document.Dependency{From: prerequisite, To: id, Type: document.DependsOn})
		}
	}
	for _, dependency := range pending {
		if id, ok := ids[dependency.From]; ok {
			dependency.From = id
		}
		m.depend(dependency)
	}
}

func (m *mapping) generic() {
	t := m.table
	for index, row := range t.rows {
		name := t.value(row, 0)
		if name == "" {
			name = fmt.Sprintf("Row%d", index)
		}
		m.doc.AddComponent(&document.Component{
			Name:        name,
			ID:          fmt.Sprintf("%s_row_%d", m.doc.Metadata.ID, index),
			Type:        TypeRow,
			Description: fmt.Sprintf("CSV row %d", index),
			Properties:  t.properties(row),
		})
	}
}

// entity declares a table, merging columns, and returns its qualified name
func (m *mapping) entity(name string, columns []string) string {
	entity := document.EntityFromName(name, TypeTable)
	key := strings.ToUpper(entity.QualifiedName())
	for _, existing := range m.doc.DataEntities {
		if strings.ToUpper(existing.QualifiedName()) == key {
			existing.Columns = appendUnique(existing.Columns, columns...)
			return existing.QualifiedName()
		}
	}
	entity.Columns = appendUnique(nil, columns...)
	m.doc.AddDataEntity(entity)
	return entity.QualifiedName()
}

func (m *mapping) depend(dependency *document.Dependency) {
	key := dependency.From + "\x00" + dependency.To + "\x00" + string(dependency.Type)
	if m.seen[key] {
		return
	}
	m.seen[key] = true
	m.doc.AddDependency(dependency)
}

func appendUnique(values []string, candidates ...string) []string {
	for _, candidate := range candidates {
		found := false
		for _, value := range values {
			if strings.EqualFold(value, candidate) {
				found = true
				break
			}
		}
		if !found {
			values = append(values, candidate)
		}
	}
	return values
}

func splitList(value string) []string {
	var result []string
	for _, item := range strings.FieldsFunc(value, func(r rune) bool { return r == ';' || r == ',' || r == '|' }) {
		if item = strings.TrimSpace(item); item != "" {
			result = append(result, item)
		}
	}
	return result
}
