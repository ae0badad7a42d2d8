package jsonconf

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/viant/tracegraph/inspector/document"
)

var (
	readKeys  = []string{"inputs", "sources", "reads"}
	writeKeys = []string{"outputs", "targets", "writes"}
)

// jobs maps pipeline stages or job lists to components; stages run in list order
func (c *config) jobs(list gjson.Result, sequential bool) {
	docID := c.doc.Metadata.ID
	names := map[string]string{}
	type entry struct {
		component *document.Component
		item      gjson.Result
	}
	var entries []entry
	for index, item := range list.Array() {
		if !item.IsObject() {
			continue
		}
		component := &document.Component{
			Name:        firstString(item, "name"),
			ID:          firstString(item, "id"),
			Type:        firstString(item, "type"),
			Description: firstString(item, "description"),
			Source:      c.inspector.config.Snippet(firstString(item, "sql", "script", "query")),
			Properties:  properties(item, "name", "id", "type", "description", "sql", "script", "query"),
		}
		if sequential {
			if component.Name == "" {
				component.Name = fmt.Sprintf("Stage%d", index)
			}
			if component.ID == "" {
				component.ID = fmt.Sprintf("%s_stage_%d", docID, index)
			}
			if component.Type == "" {
				component.Type = TypeStage
			}
		} else {
			if component.ID == "" {
				component.ID = docID + "_" + firstNonEmpty(component.Name, "unknown")
			}
			if component.Name == "" {
				component.Name = "Unknown Job"
			}
			if component.Type == "" {
				component.Type = TypeJob
			}
		}
		c.doc.AddComponent(component)
		names[component.Name] = component.ID
		entries = append(entries, entry{component: component, item: item})
	}
	for index, current := range entries {
		component, item := current.component, current.item
		if sequential && index > 0 {
			c.depend(&document.Dependency{
				From: entries[index-1].component.ID,
				To:   component.ID,
				Type: document.Sequential,
			})
		}
		for _, ref := range item.Get("depends_on").Array() {
			c.dependsOn(component, ref, names)
		}
		if !item.Get("depends_on").Exists() {
			for _, ref := range item.Get("dependencies").Array() {
				c.dependsOn(component, ref, names)
			}
		}
		c.access(component, item, readKeys, document.ReadsFrom)
		c.access(component, item, writeKeys, document.WritesTo)
		if connection := firstString(item, "connection"); connection != "" {
			c.depend(&document.Dependency{From: component.ID, To: c.connectionID(connection), Type: document.UsesConnection})
		}
	}
}

// dependsOn records an explicit prerequisite, directed from the prerequisite to the dependent job
func (c *config) dependsOn(component *document.Component, ref gjson.Result, names map[string]string) {
	id := ref.String()
	if ref.IsObject() {
		id = firstString(ref, "id", "name")
	}
	if id == "" {
		return
	}
	if mapped, ok := names[id]; ok && c.doc.LookupComponent(id) == nil {
		id = mapped
	}
	c.depend(&document.Dependency{
		From:        id,
		To:          component.ID,
		Type:        document.DependsOn,
		Description: component.Name + " depends on " + id,
	})
}

// access declares the tables listed under keys and links them to the component
func (c *config) access(component *document.Component, item gjson.Result, keys []string, kind document.DependencyType) {
	for _, key := range keys {
		for _, ref := range item.Get(key).Array() {
			entity := c.entity(ref)
			if entity == nil {
				continue
			}
			c.doc.AddDataEntity(entity)
			c.depend(&document.Dependency{From: component.ID, To: entity.QualifiedName(), Type: kind})
		}
	}
}

func (c *config) entity(ref gjson.Result) *document.DataEntity {
	if !ref.IsObject() {
		name := ref.String()
		if name == "" {
			return nil
		}
		return document.EntityFromName(name, TypeTable)
	}
	name := firstString(ref, "name", "table")
	if name == "" {
		return nil
	}
	entity := document.EntityFromName(name, firstNonEmpty(firstString(ref, "type"), TypeTable))
	if schema := firstString(ref, "schema"); schema != "" {
		entity.Schema = schema
	}
	if database := firstString(ref, "database"); database != "" {
		entity.Database = database
	}
	entity.Description = firstString(ref, "description")
	for _, column := range ref.Get("columns").Array() {
		if column.IsObject() {
			if name := firstString(column, "name"); name != "" {
				entity.Columns = append(entity.Columns, name)
			}
			continue
		}
		entity.Columns = append(entity.Columns, column.String())
	}
	entity.Properties = properties(ref, "name", "table", "type", "schema", "database", "description", "columns")
	return entity
}

func (c *config) schema(tables gjson.Result) {
	for _, table := range tables.Array() {
		if entity := c.entity(table); entity != nil {
			c.doc.AddDataEntity(entity)
		}
	}
}

func (c *config) connections(list gjson.Result) {
	for _, item := range list.Array() {
		if !item.IsObject() {
			continue
		}
		name := firstNonEmpty(firstString(item, "name"), "Unknown")
		c.doc.AddDataSource(&document.DataSource{
			Name:             name,
			ID:               firstNonEmpty(firstString(item, "id"), name),
			Type:             firstNonEmpty(firstString(item, "type"), "connection"),
			ConnectionString: firstString(item, "connection_string", "url"),
			Server:           firstString(item, "server", "host"),
			Database:         firstString(item, "database"),
			FilePath:         firstString(item, "path", "file"),
			Description:      firstString(item, "description"),
			Properties:       properties(item, "name", "id", "type", "connection_string", "url", "server", "host", "database", "description"),
		})
	}
}

func (c *config) connectionID(ref string) string {
	for _, source := range c.doc.DataSources {
		if source.ID == ref || source.Name == ref {
			return source.ID
		}
	}
	return ref
}

func (c *config) parameters(value gjson.Result) {
	if value.IsArray() {
		for _, item := range value.Array() {
			if name := firstString(item, "name"); name != "" {
				c.parameter(name, item)
			}
		}
		return
	}
	value.ForEach(func(key, item gjson.Result) bool {
		c.parameter(key.String(), item)
		return true
	})
}

func (c *config) parameter(name string, item gjson.Result) {
	parameter := &document.Parameter{Name: name}
	if item.IsObject() {
		parameter.Value = item.Get("value").Value()
		parameter.DataType = firstString(item, "type")
		if parameter.DataType == "" && item.Get("value").Exists() {
			parameter.DataType = typeName(item.Get("value"))
		}
		parameter.Description = firstString(item, "description")
		parameter.Namespace = firstString(item, "namespace")
	} else {
		parameter.Value = item.Value()
		parameter.DataType = typeName(item)
	}
	c.doc.AddParameter(parameter)
}

// generic represents an unrecognized document as a single root component
func (c *config) generic() {
	c.doc.AddComponent(&document.Component{
		Name:        firstNonEmpty(firstString(c.root, "name"), "Root"),
		ID:          c.doc.Metadata.ID + "_root",
		Type:        TypeGeneric,
		Description: "Root JSON object",
		Properties:  properties(c.root),
	})
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
