package cobol

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/viant/tracegraph/inspector/document"
)

const (
	TypeParagraph = "COBOL_PARAGRAPH"
	TypeSection   = "COBOL_SECTION"
	TypeRecord    = "RECORD"
	TypeTable     = "TABLE"
)

var (
	programIDExpr   = regexp.MustCompile(`(?i)\bPROGRAM-ID\s*\.\s*['"]?([A-Z0-9][A-Z0-9-]*)`)
	authorExpr      = regexp.MustCompile(`(?im)^\s*AUTHOR\s*\.\s*([^.\n]+)`)
	dateWrittenExpr = regexp.MustCompile(`(?im)^\s*DATE-WRITTEN\s*\.\s*([^\n]+?)\.?\s*$`)
	divisionExpr    = regexp.MustCompile(`(?i)\b(IDENTIFICATION|ID|ENVIRONMENT|DATA|PROCEDURE)\s+DIVISION\b`)
)

// Inspector extracts paragraphs, files and records from COBOL programs
type Inspector struct {
	config *document.Config
}

// NewInspector creates a COBOL inspector
func NewInspector(config *document.Config) *Inspector {
	if config == nil {
		config = document.DefaultConfig()
	}
	return &Inspector{config: config}
}

func (i *Inspector) Format() document.Format {
	return document.FormatLegacyProgram
}

func (i *Inspector) Extensions() []string {
	return []string{".cbl", ".cob", ".cobol"}
}

// CanInspect reports whether the file carries a COBOL extension
func (i *Inspector) CanInspect(filename string, src []byte) bool {
	ext := strings.ToLower(path.Ext(filename))
	for _, candidate := range i.Extensions() {
		if candidate == ext {
			return true
		}
	}
	return false
}

// InspectSource parses a COBOL program
func (i *Inspector) InspectSource(filename string, src []byte) (*document.Document, error) {
	text, fixed := normalize(string(src))
	if !divisionExpr.MatchString(text) && !programIDExpr.MatchString(text) {
		return nil, document.Malformed(filename, fmt.Errorf("no division or program-id found"))
	}
	programID := ""
	if match := programIDExpr.FindStringSubmatch(text); match != nil {
		programID = strings.ToUpper(match[1])
	}
	if programID == "" {
		base := path.Base(filename)
		programID = strings.ToUpper(strings.TrimSuffix(base, path.Ext(base)))
	}

	metadata := document.Metadata{
		Name:     programID,
		ID:       programID,
		Format:   document.FormatLegacyProgram,
		FilePath: filename,
	}
	if match := authorExpr.FindStringSubmatch(text); match != nil {
		metadata.Author = strings.TrimSpace(match[1])
	}
	if match := dateWrittenExpr.FindStringSubmatch(text); match != nil {
		metadata.CreatedDate = strings.TrimSpace(match[1])
	}
	metadata.Description = "COBOL program: " + programID
	if metadata.Author != "" {
		metadata.Description += " by " + metadata.Author
	}

	doc := document.New(metadata)
	dataText, procedureText := splitDivisions(text)
	files := parseFileControl(dataText)
	for _, file := range files {
		doc.AddDataSource(file)
	}
	records := parseRecords(dataText)
	for _, record := range records.entities {
		doc.AddDataEntity(record)
	}

	p := &procedure{config: i.config, doc: doc, recordFile: records.recordFile, fixed: fixed}
	p.parse(procedureText)

	doc.Metadata.Attributes = map[string]interface{}{
		"paragraphs": len(doc.Components),
		"files":      len(files),
		"records":    len(records.entities),
	}
	if len(p.calls) > 0 {
		doc.Metadata.Attributes["calls"] = p.calls
	}
	doc.DropUnresolved()
	return doc, nil
}

// splitDivisions returns the text preceding the procedure division and the procedure body
func splitDivisions(text string) (string, string) {
	loc := procedureExpr.FindStringIndex(text)
	if loc == nil {
		return text, ""
	}
	return text[:loc[0]], text[loc[1]:]
}

var procedureExpr = regexp.MustCompile(`(?is)\bPROCEDURE\s+DIVISION\b[^.]*\.`)
