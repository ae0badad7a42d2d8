package ssis

import (
	"strings"

	"github.com/viant/tracegraph/inspector/document"
	"github.com/viant/tracegraph/inspector/sqlref"
)

const TypeTable = "table"

// precedence constraint outcomes, keyed by the constraint value
const (
	ConditionSuccess    = "success"
	ConditionFailure    = "failure"
	ConditionCompletion = "completion"
)

var dataTypes = map[string]string{
	"2": "Int16", "3": "Int32", "4": "Single", "5": "Double", "6": "Currency", "7": "DateTime",
	"8": "String", "11": "Boolean", "13": "Object", "14": "Decimal", "16": "SByte", "17": "Byte",
	"18": "Char", "19": "UInt32", "20": "Int64", "21": "UInt64",
}

type pkg struct {
	config      *document.Config
	root        *element
	doc         *document.Document
	connections map[string]string
	tasks       map[string]string
	queryText   map[string]string
	seen        map[string]bool
}

func (p *pkg) extractConnections() {
	p.connections = map[string]string{}
	for _, manager := range p.root.path("ConnectionManagers", "ConnectionManager") {
		name := manager.property("ObjectName")
		refID := manager.attr("refId")
		id := firstNonEmpty(manager.property("DTSID"), refID, name)
		if id == "" {
			continue
		}
		source := &document.DataSource{
			Name:        name,
			ID:          id,
			Type:        manager.property("CreationName"),
			Description: manager.property("Description"),
			Properties:  map[string]interface{}{},
		}
		for _, data := range manager.child("ObjectData") {
			if value := data.attr("ConnectionString"); value != "" {
				source.ConnectionString = value
			}
			for _, inner := range data.child("ConnectionManager") {
				if value := inner.property("ConnectionString"); value != "" {
					source.ConnectionString = value
				}
			}
		}
		source.Server, source.Database = parseConnectionString(source.ConnectionString)
		if strings.Contains(strings.ToUpper(source.Type), "FILE") {
			source.FilePath = source.ConnectionString
		}
		if refID != "" {
			source.Properties["refId"] = refID
		}
		p.doc.AddDataSource(source)
		for _, key := range []string{id, manager.property("DTSID"), refID, name} {
			if key != "" {
				p.connections[key] = id
			}
		}
	}
}

// parseConnectionString reads server and database from key=value pairs
func parseConnectionString(value string) (server, database string) {
	for _, pair := range strings.Split(value, ";") {
		index := strings.Index(pair, "=")
		if index == -1 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(pair[:index]))
		val := strings.TrimSpace(pair[index+1:])
		switch key {
		case "data source", "server", "address", "addr":
			server = val
		case "initial catalog", "database":
			database = val
		}
	}
	return server, database
}

func (p *pkg) extractVariables() {
	for _, variable := range p.root.find("Variable", "PrecedenceConstraint") {
		name := variable.property("ObjectName")
		if name == "" {
			continue
		}
		parameter := &document.Parameter{
			Name:        name,
			Namespace:   firstNonEmpty(variable.property("Namespace"), "User"),
			DataType:    dataTypeName(variable.property("DataType")),
			Description: variable.property("Description"),
		}
		for _, value := range variable.child("VariableValue") {
			parameter.Value = strings.TrimSpace(value.text.String())
			if parameter.DataType == "" {
				parameter.DataType = dataTypeName(value.attr("DataType"))
			}
		}
		if expression := variable.property("Expression"); expression != "" {
			parameter.Properties = map[string]interface{}{"expression": expression}
		}
		p.doc.AddParameter(parameter)
	}
	for _, declared := range p.root.path("PackageParameters", "PackageParameter") {
		name := declared.property("ObjectName")
		if name == "" {
			continue
		}
		p.doc.AddParameter(&document.Parameter{
			Name:        name,
			Namespace:   "$Package",
			DataType:    dataTypeName(declared.property("DataType")),
			Value:       declared.property("ParameterValue"),
			Description: declared.property("Description"),
		})
	}
}

func dataTypeName(code string) string {
	if name, ok := dataTypes[code]; ok {
		return name
	}
	return code
}

func (p *pkg) extractTasks() {
	p.tasks = map[string]string{}
	p.queryText = map[string]string{}
	for _, executable := range p.root.find("Executable", "PrecedenceConstraint") {
		if executable.attr("IDREF") != "" {
			continue
		}
		name := executable.property("ObjectName")
		refID := executable.attr("refId")
		id := firstNonEmpty(executable.property("DTSID"), refID, name)
		if id == "" {
			continue
		}
		executableType := executable.property("ExecutableType")
		component := &document.Component{
			Name:        name,
			ID:          id,
			Type:        firstNonEmpty(executableType, "Unknown"),
			Description: executable.property("Description"),
			Properties:  map[string]interface{}{},
		}
		if executableType != "" {
			component.Properties["executableType"] = executableType
		}
		if refID != "" {
			component.Properties["refId"] = refID
		}
		if disabled := executable.property("Disabled"); strings.EqualFold(disabled, "true") || disabled == "-1" {
			component.Properties["disabled"] = true
		}
		for _, key := range []string{id, executable.property("DTSID"), refID, name} {
			if key != "" {
				p.tasks[key] = id
			}
		}

		var texts []string
		for _, task := range executable.find("SqlTaskData", "Executable") {
			if statement := strings.TrimSpace(task.attr("SqlStatementSource")); statement != "" {
				texts = append(texts, statement)
			}
			if connection := task.attr("Connection"); connection != "" {
				component.Properties["connection"] = connection
				p.usesConnection(id, connection)
			}
		}
		var stages []string
		for _, stage := range executable.find("component", "Executable") {
			stages = append(stages, stage.attr("name"))
			if command := p.pipelineComponent(id, stage); command != "" {
				texts = append(texts, command)
			}
		}
		if len(stages) > 0 {
			component.Properties["pipelineComponents"] = stages
		}
		text := strings.Join(texts, "\n")
		p.queryText[id] = text
		component.Source = p.config.Snippet(text)
		p.doc.AddComponent(component)
	}
}

// pipelineComponent links a data flow component's rowset and connection to its task
// and returns its query command
func (p *pkg) pipelineComponent(taskID string, stage *element) string {
	class := stage.attr("componentClassID")
	destination := strings.Contains(strings.ToLower(class+" "+stage.attr("name")), "destination")
	command, rowset := "", ""
	for _, property := range stage.path("properties", "property") {
		switch strings.ToLower(property.attr("name")) {
		case "sqlcommand":
			command = strings.TrimSpace(property.text.String())
		case "openrowset":
			rowset = strings.TrimSpace(property.text.String())
		}
	}
	if rowset != "" {
		entity := document.EntityFromName(unquote(rowset), TypeTable)
		entity.Description = "Data flow rowset of " + stage.attr("name")
		p.doc.AddDataEntity(entity)
		kind := document.ReadsFrom
		if destination {
			kind = document.WritesTo
		}
		p.depend(&document.Dependency{From: taskID, To: entity.QualifiedName(), Type: kind})
	}
	for _, connection := range stage.path("connections", "connection") {
		if ref := connection.attr("connectionManagerID"); ref != "" {
			p.usesConnection(taskID, strings.TrimSuffix(ref, ":external"))
		}
	}
	return command
}

func (p *pkg) usesConnection(taskID, ref string) {
	id, ok := p.connections[ref]
	if !ok {
		return
	}
	p.depend(&document.Dependency{From: taskID, To: id, Type: document.UsesConnection})
}

func (p *pkg) extractPrecedence() {
	for _, constraint := range p.root.find("PrecedenceConstraint") {
		from, to := constraint.property("From"), constraint.property("To")
		for _, ref := range constraint.child("Executable") {
			isFrom := ref.attr("IsFrom")
			if isFrom == "-1" || strings.EqualFold(isFrom, "true") {
				from = ref.attr("IDREF")
			} else {
				to = ref.attr("IDREF")
			}
		}
		dependency := &document.Dependency{
			From:       p.resolveTask(from),
			To:         p.resolveTask(to),
			Type:       document.Precedes,
			Condition:  condition(constraint.property("Value")),
			Expression: constraint.property("Expression"),
		}
		if evalOp := constraint.property("EvalOp"); evalOp != "" {
			dependency.Properties = map[string]interface{}{"evalOp": evalOp}
		}
		p.depend(dependency)
	}
}

func (p *pkg) resolveTask(ref string) string {
	if id, ok := p.tasks[ref]; ok {
		return id
	}
	return ref
}

// condition maps a constraint value to its outcome; an absent value means success
func condition(value string) string {
	switch strings.TrimSpace(value) {
	case "", "0":
		return ConditionSuccess
	case "1":
		return ConditionFailure
	case "2":
		return ConditionCompletion
	}
	return value
}

// extractQueries declares the tables referenced by task query text
func (p *pkg) extractQueries() {
	for _, component := range p.doc.Components {
		refs := sqlref.Extract(p.queryText[component.ID])
		for _, name := range refs.Reads {
			p.table(component.ID, name, document.ReadsFrom)
		}
		for _, name := range refs.Writes {
			p.table(component.ID, name, document.WritesTo)
		}
	}
}

func (p *pkg) table(taskID, name string, kind document.DependencyType) {
	entity := document.EntityFromName(name, TypeTable)
	entity.Description = "Extracted from " + taskID
	p.doc.AddDataEntity(entity)
	p.depend(&document.Dependency{From: taskID, To: entity.QualifiedName(), Type: kind})
}

func (p *pkg) depend(dependency *document.Dependency) {
	if p.seen == nil {
		p.seen = map[string]bool{}
	}
	key := dependency.From + "\x00" + dependency.To + "\x00" + string(dependency.Type)
	if p.seen[key] {
		return
	}
	p.seen[key] = true
	p.doc.AddDependency(dependency)
}

func unquote(name string) string {
	return strings.NewReplacer("[", "", "]", "", `"`, "", "`", "").Replace(name)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
