package cobol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/viant/tracegraph/inspector/document"
)

var (
	selectExpr  = regexp.MustCompile(`(?is)\bSELECT\s+(?:OPTIONAL\s+)?([A-Z0-9][A-Z0-9-]*)\s+ASSIGN\s+(?:TO\s+)?(?:DYNAMIC\s+|EXTERNAL\s+)?(?:'([^']+)'|"([^"]+)"|([A-Z0-9][\w-]*))`)
	sectionExpr = regexp.MustCompile(`(?im)^\s*(FILE|WORKING-STORAGE|LOCAL-STORAGE|LINKAGE|COMMUNICATION|REPORT|SCREEN)\s+SECTION\s*\.`)
	entryEnd    = regexp.MustCompile(`\.(\s|$)`)
	levelExpr   = regexp.MustCompile(`(?is)^\s*(\d{1,2})\s+([A-Z0-9][A-Z0-9-]*)?`)
	fdExpr      = regexp.MustCompile(`(?is)^\s*(?:FD|SD)\s+([A-Z0-9][A-Z0-9-]*)`)
	pictureExpr = regexp.MustCompile(`(?is)\bPIC(?:TURE)?\s+(?:IS\s+)?(\S+)`)
)

// parseFileControl maps SELECT ... ASSIGN entries to file data sources
func parseFileControl(text string) []*document.DataSource {
	var result []*document.DataSource
	seen := map[string]bool{}
	for _, match := range selectExpr.FindAllStringSubmatch(text, -1) {
		name := strings.ToUpper(match[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		target := match[2] + match[3] + match[4]
		result = append(result, &document.DataSource{
			Name:             name,
			ID:               name,
			Type:             document.SourceFile,
			ConnectionString: target,
			FilePath:         target,
			Description:      "COBOL file: " + name,
		})
	}
	return result
}

type records struct {
	entities   []*document.DataEntity
	recordFile map[string]string
}

// field is a record member with its level and picture clause
type field struct {
	Level   string `json:"level"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// parseRecords collects 01-level records from the file and working-storage
// sections; records declared under an FD are mapped to their file
func parseRecords(text string) *records {
	result := &records{recordFile: map[string]string{}}
	headers := sectionExpr.FindAllStringSubmatchIndex(text, -1)
	for i, header := range headers {
		section := strings.ToUpper(text[header[2]:header[3]])
		if section != "FILE" && section != "WORKING-STORAGE" {
			continue
		}
		end := len(text)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		result.parseSection(section, text[header[1]:end])
	}
	return result
}

func (r *records) parseSection(section, text string) {
	var record *document.DataEntity
	var fields []field
	currentFile := ""
	flush := func() {
		if record == nil {
			return
		}
		record.Description = fmt.Sprintf("COBOL data record with %d fields", len(fields))
		if len(fields) > 0 {
			record.Properties["fields"] = fields
		}
		r.entities = append(r.entities, record)
		record, fields = nil, nil
	}
	for _, entry := range splitEntries(text) {
		if match := fdExpr.FindStringSubmatch(entry); match != nil {
			flush()
			currentFile = strings.ToUpper(match[1])
			continue
		}
		match := levelExpr.FindStringSubmatch(entry)
		if match == nil {
			continue
		}
		level := match[1]
		name := strings.ToUpper(match[2])
		if name == "" || name == "FILLER" || strings.HasPrefix(name, "PIC") {
			if level == "01" || level == "1" {
				flush()
			}
			continue
		}
		switch level {
		case "01", "1":
			flush()
			record = &document.DataEntity{
				Name:       name,
				Type:       TypeRecord,
				Properties: map[string]interface{}{"section": section},
			}
			if section == "FILE" && currentFile != "" {
				record.Properties["file"] = currentFile
				r.recordFile[name] = currentFile
			}
		case "66", "77", "88":
		default:
			if record == nil {
				continue
			}
			item := field{Level: level, Name: name}
			if picture := pictureExpr.FindStringSubmatch(entry); picture != nil {
				item.Picture = strings.TrimSuffix(picture[1], ".")
			}
			fields = append(fields, item)
			record.Columns = append(record.Columns, name)
		}
	}
	flush()
}

// splitEntries splits data description text into period-terminated entries
func splitEntries(text string) []string {
	var result []string
	offset := 0
	for _, loc := range entryEnd.FindAllStringIndex(text, -1) {
		result = append(result, text[offset:loc[0]])
		offset = loc[1]
	}
	if rest := strings.TrimSpace(text[offset:]); rest != "" {
		result = append(result, rest)
	}
	return result
}
