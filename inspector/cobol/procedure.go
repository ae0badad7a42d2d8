package cobol

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/viant/tracegraph/inspector/document"
	"github.com/viant/tracegraph/inspector/sqlref"
)

var (
	labelExpr     = regexp.MustCompile(`(?im)^[ \t]*([A-Z0-9][A-Z0-9-]*)(?:[ \t]+(SECTION))?[ \t]*\.[ \t]*$`)
	statementExpr = regexp.MustCompile(`(?is)\bEXEC\s+SQL\b(.*?)\bEND-EXEC\b` +
		`|\bPERFORM\s+([A-Z0-9][A-Z0-9-]*)(?:\s+(?:THRU|THROUGH)\s+([A-Z0-9][A-Z0-9-]*))?` +
		`|\bCALL\s+(?:'([^']+)'|"([^"]+)"|([A-Z0-9][A-Z0-9-]*))` +
		`|\b(READ|WRITE|REWRITE)\s+([A-Z0-9][A-Z0-9-]*)`)
)

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// areaALimit is the deepest label indent in fixed format, column 11 once the
// sequence and indicator areas are blanked
const areaALimit = 10

// reserved words that may stand alone on a line but are not labels
var reserved = map[string]bool{
	"STOP": true, "EXIT": true, "GOBACK": true, "CONTINUE": true, "DECLARATIVES": true,
	"ELSE": true, "NEXT": true,
}

// inline perform keywords, the perform has no target paragraph
var performKeywords = map[string]bool{
	"UNTIL": true, "VARYING": true, "WITH": true, "TEST": true, "FOREVER": true, "TIMES": true,
}

type procedure struct {
	config     *document.Config
	doc        *document.Document
	recordFile map[string]string
	calls      []string
	seen       map[string]bool
	fixed      bool
}

type block struct {
	name    string
	section bool
	owner   string
	body    string
}

func (p *procedure) parse(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	blocks := p.blocks(text)
	files := map[string]bool{}
	for _, source := range p.doc.DataSources {
		files[source.ID] = true
	}
	labels := map[string]bool{}
	for _, b := range blocks {
		labels[b.name] = true
	}
	p.seen = map[string]bool{}
	for _, b := range blocks {
		component := &document.Component{
			Name:   b.name,
			ID:     b.name,
			Type:   TypeParagraph,
			Source: p.config.Snippet(strings.TrimSpace(b.body)),
		}
		if b.section {
			component.Type = TypeSection
		}
		operations := p.operations(component, b.body, labels, files)
		component.Description = fmt.Sprintf("COBOL paragraph with %d operations", len(operations))
		component.Properties = map[string]interface{}{}
		if len(operations) > 0 {
			component.Properties[document.PropertyOperations] = operations
		}
		if b.owner != "" {
			component.Properties["section"] = b.owner
		}
		p.doc.AddComponent(component)
	}
}

// blocks partitions procedure text into labeled sections and paragraphs
func (p *procedure) blocks(text string) []*block {
	var result []*block
	matches := labelExpr.FindAllStringSubmatchIndex(text, -1)
	owner := ""
	names := map[string]bool{}
	var valid [][]int
	for _, match := range matches {
		name := strings.ToUpper(text[match[2]:match[3]])
		if reserved[name] || strings.HasPrefix(name, "END-") || !strings.ContainsAny(name, letters) {
			continue
		}
		valid = append(valid, match)
	}
	valid = p.inAreaA(valid)
	for i, match := range valid {
		name := strings.ToUpper(text[match[2]:match[3]])
		isSection := match[4] != -1
		end := len(text)
		if i+1 < len(valid) {
			end = valid[i+1][0]
		}
		if names[name] {
			continue
		}
		names[name] = true
		b := &block{name: name, section: isSection, body: text[match[1]:end]}
		if isSection {
			owner = name
		} else {
			b.owner = owner
		}
		result = append(result, b)
	}
	return result
}

// inAreaA keeps labels that start in Area A: up to column 11 in fixed format,
// otherwise no deeper than the shallowest label. A data name continuing a
// statement on its own line sits in Area B.
func (p *procedure) inAreaA(matches [][]int) [][]int {
	limit := areaALimit
	if !p.fixed {
		limit = -1
		for _, match := range matches {
			if depth := indent(match); limit == -1 || depth < limit {
				limit = depth
			}
		}
	}
	var result [][]int
	for _, match := range matches {
		if indent(match) <= limit {
			result = append(result, match)
		}
	}
	return result
}

// indent is the label offset from the start of its line
func indent(match []int) int {
	return match[2] - match[0]
}

// operations records the verbs found in a block and derives its dependencies
func (p *procedure) operations(component *document.Component, body string, labels, files map[string]bool) []string {
	var result []string
	for _, loc := range statementExpr.FindAllStringSubmatchIndex(body, -1) {
		if loc[0] > 0 && body[loc[0]-1] == '-' {
			continue
		}
		group := func(i int) string {
			if loc[2*i] == -1 {
				return ""
			}
			return body[loc[2*i]:loc[2*i+1]]
		}
		switch {
		case loc[2] != -1:
			statement := strings.Join(strings.Fields(group(1)), " ")
			result = append(result, "SQL: "+p.config.Preview(statement))
			p.embeddedQuery(component.ID, statement)
		case loc[4] != -1:
			for _, target := range []string{group(2), group(3)} {
				target = strings.ToUpper(target)
				if target == "" || performKeywords[target] || !strings.ContainsAny(target, letters) {
					continue
				}
				result = append(result, "PERFORM "+target)
				if labels[target] && target != component.ID {
					p.depend(component.ID, target, document.Precedes, component.ID+" performs "+target)
				}
			}
		case loc[8] != -1 || loc[10] != -1 || loc[12] != -1:
			program := group(4) + group(5) + strings.ToUpper(group(6))
			result = append(result, "CALL "+program)
			p.addCall(program)
		case loc[14] != -1:
			verb := strings.ToUpper(group(7))
			target := strings.ToUpper(group(8))
			result = append(result, verb+" "+target)
			if verb == "READ" {
				if files[target] {
					p.depend(component.ID, target, document.ReadsFrom, component.ID+" reads from "+target)
				}
				continue
			}
			file := target
			if mapped, ok := p.recordFile[target]; ok {
				file = mapped
			}
			if files[file] {
				p.depend(component.ID, file, document.WritesTo, component.ID+" writes to "+file)
			}
		}
	}
	return result
}

// embeddedQuery declares tables referenced by an EXEC SQL block
func (p *procedure) embeddedQuery(from, statement string) {
	refs := sqlref.Extract(statement)
	for _, name := range refs.Reads {
		p.addTable(name)
		p.depend(from, name, document.ReadsFrom, from+" reads from "+name)
	}
	for _, name := range refs.Writes {
		p.addTable(name)
		p.depend(from, name, document.WritesTo, from+" writes to "+name)
	}
}

func (p *procedure) addTable(name string) {
	p.doc.AddDataEntity(document.EntityFromName(name, TypeTable))
}

func (p *procedure) addCall(program string) {
	for _, candidate := range p.calls {
		if candidate == program {
			return
		}
	}
	p.calls = append(p.calls, program)
}

func (p *procedure) depend(from, to string, kind document.DependencyType, description string) {
	key := from + "\x00" + to + "\x00" + string(kind)
	if p.seen[key] {
		return
	}
	p.seen[key] = true
	p.doc.AddDependency(&document.Dependency{From: from, To: to, Type: kind, Description: description})
}
