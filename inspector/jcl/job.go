package jcl

import (
	"fmt"
	"strings"

	"github.com/viant/tracegraph/inspector/document"
)

type access struct {
	dataset string
	write   bool
}

type step struct {
	component *document.Component
	condition string
	accesses  []access
	lines     []string
	ddCount   int
}

type job struct {
	config   *document.Config
	steps    []*step
	datasets []*document.DataSource
	seen     map[string]*document.DataSource
}

func (j *job) parse(statements []*statement) {
	j.seen = map[string]*document.DataSource{}
	ids := map[string]int{}
	var current *step
	for _, statement := range statements {
		if match := execExpr.FindStringSubmatch(statement.text); match != nil {
			current = j.newStep(match[1], match[2], ids)
			current.lines = append(current.lines, statement.text)
			j.steps = append(j.steps, current)
			continue
		}
		if current == nil {
			continue
		}
		current.lines = append(current.lines, statement.text)
		if match := ddExpr.FindStringSubmatch(statement.text); match != nil {
			current.ddCount++
			j.dd(current, strings.ToUpper(match[1]), match[2])
		}
	}
	for _, s := range j.steps {
		var operations []string
		for _, a := range s.accesses {
			verb := "READ"
			if a.write {
				verb = "WRITE"
			}
			operations = append(operations, verb+" "+a.dataset)
		}
		s.component.Properties["ddCount"] = s.ddCount
		s.component.Properties[document.PropertyOperations] = operations
		s.component.Source = j.config.Snippet(strings.Join(s.lines, "\n"))
	}
}

func (j *job) newStep(name, rest string, ids map[string]int) *step {
	name = strings.ToUpper(name)
	id := name
	if count := ids[name]; count > 0 {
		id = fmt.Sprintf("%s#%d", name, count+1)
	}
	ids[name]++
	params := operands(rest)
	component := &document.Component{
		Name:       name,
		ID:         id,
		Type:       TypeStep,
		Properties: map[string]interface{}{},
	}
	executed := ""
	if program, ok := keyword(params, "PGM"); ok {
		executed = strings.ToUpper(program)
		component.Properties["program"] = executed
	} else if proc, ok := keyword(params, "PROC"); ok {
		executed = strings.ToUpper(proc)
		component.Properties["procedure"] = executed
	} else if len(params) > 0 && !strings.Contains(params[0], "=") {
		executed = strings.ToUpper(params[0])
		component.Properties["procedure"] = executed
	}
	component.Description = "JCL step executing " + executed
	result := &step{component: component}
	if cond, ok := keyword(params, "COND"); ok {
		result.condition = cond
		component.Properties["cond"] = cond
	}
	return result
}

// dd records the dataset referenced by a DD statement and the step's access to it
func (j *job) dd(s *step, ddName, rest string) {
	params := operands(rest)
	dsn, ok := keyword(params, "DSN", "DSNAME")
	if !ok {
		return
	}
	dsn = strings.ToUpper(strings.Trim(dsn, "'"))
	if index := strings.Index(dsn, "("); index > 0 {
		dsn = dsn[:index]
	}
	if dsn == "" || dsn == "NULLFILE" {
		return
	}
	disp, _ := keyword(params, "DISP")
	unit, _ := keyword(params, "UNIT")
	source, ok := j.seen[dsn]
	if !ok {
		source = &document.DataSource{
			Name:             dsn,
			ID:               dsn,
			Type:             datasetType(dsn, unit),
			ConnectionString: dsn,
			Description:      "Mainframe dataset: " + dsn,
			Properties:       map[string]interface{}{"ddName": ddName},
		}
		if disp != "" {
			source.Properties["disp"] = strings.ToUpper(disp)
		}
		j.seen[dsn] = source
		j.datasets = append(j.datasets, source)
	}
	a := access{dataset: dsn, write: isWrite(disp)}
	for _, existing := range s.accesses {
		if existing == a {
			return
		}
	}
	s.accesses = append(s.accesses, a)
}

func datasetType(dsn, unit string) string {
	switch {
	case strings.HasPrefix(dsn, "DB2."):
		return document.SourceDatabase
	case strings.Contains(dsn, "TAPE"), strings.Contains(strings.ToUpper(unit), "TAPE"):
		return document.SourceTape
	}
	return document.SourceDataset
}

// isWrite reports whether a disposition creates or extends the dataset:
// NEW, MOD, or an omitted status followed by CATLG
func isWrite(disp string) bool {
	disp = strings.ToUpper(strings.TrimSpace(disp))
	if disp == "" {
		return false
	}
	disp = strings.TrimSuffix(strings.TrimPrefix(disp, "("), ")")
	parts := strings.Split(disp, ",")
	status := strings.TrimSpace(parts[0])
	switch status {
	case "NEW", "MOD":
		return true
	case "":
		return len(parts) > 1 && strings.TrimSpace(parts[1]) == "CATLG"
	}
	return false
}
