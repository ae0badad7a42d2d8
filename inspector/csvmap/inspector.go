// Package csvmap extracts lineage, field mappings and job metadata from delimited files.
package csvmap

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/viant/tracegraph/inspector/document"
)

const (
	TypeTable        = "table"
	TypeFieldMapping = "field_mapping"
	TypeJob          = "etl_job"
	TypeRow          = "csv_row"
	TypeLineageJob   = "lineage_job"
)

// Shape identifies how rows are interpreted
type Shape string

const (
	ShapeLineage      Shape = "lineage"
	ShapeFieldMapping Shape = "field-mapping"
	ShapeMetadata     Shape = "etl-metadata"
	ShapeGeneric      Shape = "generic"
)

// Inspector detects the mapping shape from column names
type Inspector struct {
	config *document.Config
}

// NewInspector creates a tabular mapping inspector
func NewInspector(config *document.Config) *Inspector {
	if config == nil {
		config = document.DefaultConfig()
	}
	return &Inspector{config: config}
}

func (i *Inspector) Format() document.Format {
	return document.FormatTabularMapping
}

func (i *Inspector) Extensions() []string {
	return []string{".csv", ".tsv"}
}

func (i *Inspector) CanInspect(filename string, src []byte) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".csv", ".tsv":
		return true
	}
	return false
}

// InspectSource parses a delimited file
func (i *Inspector) InspectSource(filename string, src []byte) (*document.Document, error) {
	table, err := read(filename, src)
	if err != nil {
		return nil, document.Malformed(filename, err)
	}
	base := path.Base(filename)
	stem := strings.TrimSuffix(base, path.Ext(base))
	doc := document.New(document.Metadata{
		Name:        stem,
		ID:          "csv_" + stem,
		Format:      document.FormatTabularMapping,
		Description: fmt.Sprintf("CSV file with %d rows", len(table.rows)),
		FilePath:    filename,
		Attributes: map[string]interface{}{
			"row_count":    len(table.rows),
			"column_count": len(table.header),
			"columns":      table.header,
		},
	})
	m := &mapping{config: i.config, doc: doc, table: table, seen: map[string]bool{}}
	shape := m.detect()
	doc.Metadata.Attributes["shape"] = string(shape)
	switch shape {
	case ShapeFieldMapping:
		m.fieldMapping()
	case ShapeLineage:
		m.lineage()
	case ShapeMetadata:
		m.metadata()
	default:
		m.generic()
	}
	doc.DropUnresolved()
	return doc, nil
}

type table struct {
	header []string
	keys   []string
	index  map[string]int
	rows   [][]string
}

func read(filename string, src []byte) (*table, error) {
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(src))
	reader.Comma = delimiter(filename, src)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	result := &table{index: map[string]int{}}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if result.header == nil {
			for i, name := range record {
				name = strings.TrimSpace(name)
				result.header = append(result.header, name)
				key := headerKey(name)
				result.keys = append(result.keys, key)
				if _, ok := result.index[key]; !ok {
					result.index[key] = i
				}
			}
			continue
		}
		if isBlank(record) {
			continue
		}
		result.rows = append(result.rows, record)
	}
	if isBlank(result.header) {
		return nil, fmt.Errorf("missing header row")
	}
	return result, nil
}

func delimiter(filename string, src []byte) rune {
	if strings.ToLower(path.Ext(filename)) == ".tsv" {
		return '\t'
	}
	line := src
	if index := bytes.IndexByte(src, '\n'); index != -1 {
		line = src[:index]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func isBlank(record []string) bool {
	for _, value := range record {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// minLikeLength is the shortest single-word candidate matched inside longer headers
const minLikeLength = 8

// column returns the index of the first header named by a candidate. Compound or long
// candidates also match headers containing them (source_table_name); short words such
// as source or name match whole headers only.
func (t *table) column(candidates ...string) int {
	for _, candidate := range candidates {
		if index, ok := t.index[candidate]; ok {
			return index
		}
	}
	for _, candidate := range candidates {
		if !strings.Contains(candidate, "_") && len(candidate) < minLikeLength {
			continue
		}
		for i, key := range t.keys {
			if strings.Contains(key, candidate) {
				return i
			}
		}
	}
	return -1
}

// headerKey lower-cases a header and joins its words with underscores: "Source Table" is source_table
func headerKey(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, "_")
}

func (t *table) value(row []string, column int) string {
	if column < 0 || column >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[column])
}

// properties maps header names to the row values
func (t *table) properties(row []string) map[string]interface{} {
	result := make(map[string]interface{}, len(t.header))
	for i, name := range t.header {
		if name == "" {
			continue
		}
		result[name] = t.value(row, i)
	}
	return result
}
