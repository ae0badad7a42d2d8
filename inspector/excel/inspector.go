// Package excel extracts sheets, named ranges, tables and cross-sheet formula references from workbooks.
package excel

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	"github.com/viant/tracegraph/inspector/document"
	"github.com/xuri/excelize/v2"
)

const (
	TypeSheet      = "sheet"
	TypeTable      = "table"
	TypeNamedRange = "named_range"
)

// Inspector reads xlsx and xlsm workbooks
type Inspector struct {
	config *document.Config
}

// NewInspector creates a spreadsheet inspector
func NewInspector(config *document.Config) *Inspector {
	if config == nil {
		config = document.DefaultConfig()
	}
	return &Inspector{config: config}
}

func (i *Inspector) Format() document.Format {
	return document.FormatSpreadsheet
}

func (i *Inspector) Extensions() []string {
	return []string{".xlsx", ".xlsm"}
}

func (i *Inspector) CanInspect(filename string, src []byte) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return true
	}
	return false
}

// InspectSource parses a workbook
func (i *Inspector) InspectSource(filename string, src []byte) (*document.Document, error) {
	file, err := excelize.OpenReader(bytes.NewReader(src))
	if err != nil {
		return nil, document.Malformed(filename, err)
	}
	defer file.Close()
	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, document.Malformed(filename, fmt.Errorf("workbook has no sheets"))
	}
	w := &workbook{config: i.config, file: file, sheets: sheets, seen: map[string]bool{}}
	w.doc = document.New(w.metadata(filename))
	for _, sheet := range sheets {
		if err := w.sheet(sheet); err != nil {
			return nil, document.Malformed(filename, err)
		}
	}
	w.definedNames()
	w.doc.DropUnresolved()
	return w.doc, nil
}

type workbook struct {
	config *document.Config
	file   *excelize.File
	sheets []string
	doc    *document.Document
	seen   map[string]bool
}

func (w *workbook) metadata(filename string) document.Metadata {
	base := path.Base(filename)
	stem := strings.TrimSuffix(base, path.Ext(base))
	result := document.Metadata{
		Name:        stem,
		ID:          "xlsx_" + stem,
		Format:      document.FormatSpreadsheet,
		Description: fmt.Sprintf("Excel workbook with %d sheets", len(w.sheets)),
		FilePath:    filename,
		Attributes: map[string]interface{}{
			"sheets":      w.sheets,
			"sheet_count": len(w.sheets),
		},
	}
	props, err := w.file.GetDocProps()
	if err != nil || props == nil {
		return result
	}
	result.Author = props.Creator
	result.CreatedDate = props.Created
	result.ModifiedDate = props.Modified
	result.Version = props.Version
	if props.Title != "" {
		result.Attributes["title"] = props.Title
	}
	if props.Description != "" {
		result.Description = props.Description
	}
	if props.LastModifiedBy != "" {
		result.Attributes["lastModifiedBy"] = props.LastModifiedBy
	}
	return result
}

// sheet adds the sheet component, its tables and its cross-sheet formula references
func (w *workbook) sheet(name string) error {
	rows, err := w.file.GetRows(name)
	if err != nil {
		return fmt.Errorf("sheet %v: %w", name, err)
	}
	columns := 0
	for _, row := range rows {
		if len(row) > columns {
			columns = len(row)
		}
	}
	var formulas []string
	referenced := map[string]bool{}
	for r, row := range rows {
		for c := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			formula, err := w.file.GetCellFormula(name, cell)
			if err != nil || formula == "" {
				continue
			}
			formulas = append(formulas, cell+": ="+formula)
			for _, sheet := range w.references(formula) {
				if !strings.EqualFold(sheet, name) {
					referenced[sheet] = true
				}
			}
		}
	}
	w.doc.AddComponent(&document.Component{
		Name:        name,
		ID:          name,
		Type:        TypeSheet,
		Description: "Worksheet " + name,
		Source:      w.config.Snippet(strings.Join(formulas, "\n")),
		Properties: map[string]interface{}{
			"rows":         len(rows),
			"columns":      columns,
			"hasFormulas":  len(formulas) > 0,
			"formulaCount": len(formulas),
		},
	})
	for _, sheet := range w.sheets {
		if !referenced[sheet] {
			continue
		}
		w.depend(&document.Dependency{
			From:        name,
			To:          sheet,
			Type:        document.FormulaReference,
			Description: name + " references " + sheet,
		})
	}
	return w.tables(name)
}

// tables declares the sheet's embedded tables with their header row as columns
func (w *workbook) tables(sheet string) error {
	tables, err := w.file.GetTables(sheet)
	if err != nil {
		return fmt.Errorf("tables of %v: %w", sheet, err)
	}
	for _, table := range tables {
		if table.Name == "" {
			continue
		}
		w.doc.AddDataEntity(&document.DataEntity{
			Name:        table.Name,
			Type:        TypeTable,
			Description: fmt.Sprintf("Table %s on sheet %s", table.Name, sheet),
			Columns:     w.header(sheet, table.Range),
			Properties: map[string]interface{}{
				"sheet": sheet,
				"range": table.Range,
			},
		})
	}
	return nil
}

func (w *workbook) header(sheet, ref string) []string {
	corners := strings.Split(strings.ReplaceAll(ref, "$", ""), ":")
	if len(corners) != 2 {
		return nil
	}
	fromCol, fromRow, err := excelize.CellNameToCoordinates(corners[0])
	if err != nil {
		return nil
	}
	toCol, _, err := excelize.CellNameToCoordinates(corners[1])
	if err != nil {
		return nil
	}
	var result []string
	for col := fromCol; col <= toCol; col++ {
		cell, err := excelize.CoordinatesToCellName(col, fromRow)
		if err != nil {
			continue
		}
		value, err := w.file.GetCellValue(sheet, cell)
		if err != nil || strings.TrimSpace(value) == "" {
			continue
		}
		result = append(result, strings.TrimSpace(value))
	}
	return result
}

// definedNames maps workbook and sheet scoped names to parameters
func (w *workbook) definedNames() {
	for _, name := range w.file.GetDefinedName() {
		parameter := &document.Parameter{
			Name:        name.Name,
			DataType:    TypeNamedRange,
			Value:       name.RefersTo,
			Description: name.Comment,
		}
		if name.Scope != "" && !strings.EqualFold(name.Scope, "Workbook") {
			parameter.Namespace = name.Scope
		}
		if sheets := w.references(name.RefersTo); len(sheets) > 0 {
			parameter.Properties = map[string]interface{}{"sheets": sheets}
		}
		w.doc.AddParameter(parameter)
	}
}

func (w *workbook) depend(dependency *document.Dependency) {
	key := dependency.From + "\x00" + dependency.To + "\x00" + string(dependency.Type)
	if w.seen[key] {
		return
	}
	w.seen[key] = true
	w.doc.AddDependency(dependency)
}
