// Package jsonconf extracts pipelines, jobs, tables and connections from JSON configuration files.
package jsonconf

import (
	"fmt"
	"path"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/viant/tracegraph/inspector/document"
)

const (
	TypeStage   = "stage"
	TypeJob     = "etl_job"
	TypeGeneric = "json_object"
	TypeTable   = "table"
)

var metadataKeys = map[string]bool{
	"name": true, "id": true, "description": true, "version": true, "author": true, "creator": true,
}

// Inspector detects the configuration shape by key presence
type Inspector struct {
	config *document.Config
}

// NewInspector creates a structured configuration inspector
func NewInspector(config *document.Config) *Inspector {
	if config == nil {
		config = document.DefaultConfig()
	}
	return &Inspector{config: config}
}

func (i *Inspector) Format() document.Format {
	return document.FormatStructuredConfig
}

func (i *Inspector) Extensions() []string {
	return []string{".json"}
}

func (i *Inspector) CanInspect(filename string, src []byte) bool {
	return strings.ToLower(path.Ext(filename)) == ".json"
}

// InspectSource parses a JSON configuration document
func (i *Inspector) InspectSource(filename string, src []byte) (*document.Document, error) {
	if !gjson.ValidBytes(src) {
		return nil, document.Malformed(filename, fmt.Errorf("invalid JSON"))
	}
	root := gjson.ParseBytes(src)
	if !root.IsObject() {
		return nil, document.Malformed(filename, fmt.Errorf("top-level value is %s, expected object", root.Type))
	}
	c := &config{inspector: i, root: root, seen: map[string]bool{}}
	c.doc = document.New(c.metadata(filename))
	c.parse()
	c.doc.DropUnresolved()
	return c.doc, nil
}

type config struct {
	inspector *Inspector
	root      gjson.Result
	doc       *document.Document
	seen      map[string]bool
}

func (c *config) metadata(filename string) document.Metadata {
	base := path.Base(filename)
	stem := strings.TrimSuffix(base, path.Ext(base))
	result := document.Metadata{
		Name:        firstString(c.root, "name"),
		ID:          firstString(c.root, "id"),
		Format:      document.FormatStructuredConfig,
		Description: firstString(c.root, "description"),
		Version:     firstString(c.root, "version"),
		Author:      firstString(c.root, "author", "creator"),
		FilePath:    filename,
		Attributes:  map[string]interface{}{},
	}
	if result.Name == "" {
		result.Name = stem
	}
	if result.ID == "" {
		result.ID = "json_" + stem
	}
	c.root.ForEach(func(key, value gjson.Result) bool {
		if !metadataKeys[key.String()] && !value.IsObject() && !value.IsArray() {
			result.Attributes[key.String()] = value.Value()
		}
		return true
	})
	return result
}

func (c *config) parse() {
	recognized := false
	if c.has("connections", "datasources") {
		c.connections(c.first("connections", "datasources"))
		recognized = true
	}
	if tables := c.tables(); tables.Exists() {
		c.schema(tables)
		recognized = true
	}
	switch {
	case c.has("pipeline", "stages"):
		c.jobs(c.first("pipeline", "stages"), true)
		recognized = true
	case c.has("jobs", "tasks"):
		c.jobs(c.first("jobs", "tasks"), false)
		recognized = true
	}
	if c.has("parameters", "variables") {
		c.parameters(c.first("parameters", "variables"))
	}
	if !recognized {
		c.generic()
	}
}

func (c *config) has(keys ...string) bool {
	return c.first(keys...).Exists()
}

func (c *config) first(keys ...string) gjson.Result {
	for _, key := range keys {
		if value := c.root.Get(key); value.Exists() {
			return value
		}
	}
	return gjson.Result{}
}

// tables returns schema.tables, or a top-level tables list
func (c *config) tables() gjson.Result {
	if nested := c.root.Get("schema.tables"); nested.IsArray() {
		return nested
	}
	if tables := c.root.Get("tables"); tables.IsArray() {
		return tables
	}
	return gjson.Result{}
}

func (c *config) depend(dependency *document.Dependency) {
	key := dependency.From + "\x00" + dependency.To + "\x00" + string(dependency.Type)
	if c.seen[key] {
		return
	}
	c.seen[key] = true
	c.doc.AddDependency(dependency)
}

func firstString(value gjson.Result, keys ...string) string {
	for _, key := range keys {
		if field := value.Get(key); field.Exists() && field.Type != gjson.Null {
			return field.String()
		}
	}
	return ""
}

// properties copies scalar and list fields, skipping nested objects and consumed keys
func properties(value gjson.Result, skip ...string) map[string]interface{} {
	result := map[string]interface{}{}
	value.ForEach(func(key, field gjson.Result) bool {
		name := key.String()
		for _, candidate := range skip {
			if candidate == name {
				return true
			}
		}
		if !field.IsObject() {
			result[name] = field.Value()
		}
		return true
	})
	return result
}

func typeName(value gjson.Result) string {
	switch value.Type {
	case gjson.String:
		return "string"
	case gjson.Number:
		if value.Num == float64(int64(value.Num)) {
			return "int"
		}
		return "float"
	case gjson.True, gjson.False:
		return "bool"
	case gjson.Null:
		return "null"
	}
	if value.IsArray() {
		return "list"
	}
	return "object"
}
