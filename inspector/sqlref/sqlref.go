// Package sqlref finds the tables a query snippet reads from and writes to.
package sqlref

import (
	"context"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/sql"
)

// References holds the tables read and written by a snippet, in order of first appearance
type References struct {
	Reads  []string
	Writes []string
}

// Tables returns read and written tables, de-duplicated
func (r *References) Tables() []string {
	var result []string
	seen := map[string]bool{}
	for _, name := range append(append([]string{}, r.Reads...), r.Writes...) {
		key := strings.ToUpper(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, name)
	}
	return result
}

const identifier = `(?:\[[^\]]+\]|"[^"]+"|` + "`[^`]+`" + `|[A-Za-z_#@][\w$#@]*)`
const qualified = identifier + `(?:\s*\.\s*` + identifier + `)*`

var (
	statementExpr = regexp.MustCompile(`(?is)\bSELECT\b.+?\bFROM\b|\bINSERT\s+INTO\b|\bUPDATE\s+\S+\s+SET\b|\bDELETE\s+FROM\b|\bMERGE\b.+?\bUSING\b|\bTRUNCATE\s+TABLE\b`)

	readExprs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bFROM\s+(` + qualified + `)`),
		regexp.MustCompile(`(?i)\bJOIN\s+(` + qualified + `)`),
		regexp.MustCompile(`(?i)\bUSING\s+(` + qualified + `)`),
	}
	writeExprs = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bINTO\s+(` + qualified + `)`),
		regexp.MustCompile(`(?i)\bUPDATE\s+(` + qualified + `)`),
		regexp.MustCompile(`(?i)\bMERGE\s+(?:INTO\s+)?(` + qualified + `)`),
		regexp.MustCompile(`(?i)\bDELETE\s+(?:FROM\s+)?(` + qualified + `)`),
		regexp.MustCompile(`(?i)\bTRUNCATE\s+TABLE\s+(` + qualified + `)`),
	}
	deleteSuffix   = regexp.MustCompile(`(?i)\bDELETE\s*$`)
	forSuffix      = regexp.MustCompile(`(?i)\bFOR\s*$`) // cursor FOR UPDATE OF col
	functionPrefix = regexp.MustCompile(`\(\s*\w+\s*$`) // EXTRACT(YEAR FROM x)
)

var reserved = map[string]bool{
	"SELECT": true, "WHERE": true, "SET": true, "VALUES": true, "LATERAL": true,
	"UNNEST": true, "TABLE": true, "ONLY": true, "DUAL": true, "INTO": true, "FROM": true,
	"OF": true,
}

// IsQuery reports whether text contains a recognizable query statement
func IsQuery(text string) bool {
	if text == "" {
		return false
	}
	return statementExpr.MatchString(Clean(text))
}

// Extract returns the tables referenced by the query text. Statements the SQL grammar
// parses are classified from their syntax tree, the others are matched lexically.
func Extract(text string) *References {
	c := newCollector()
	if !IsQuery(text) {
		return c.refs
	}
	src := []byte(text)
	parser := sitter.NewParser()
	parser.SetLanguage(sql.GetLanguage())
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil || tree == nil {
		c.match(Clean(text))
		return c.refs
	}
	root := tree.RootNode()
	if root.Type() != "program" || root.NamedChildCount() == 0 {
		c.match(Clean(text))
		return c.refs
	}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "comment", "marginalia":
			continue
		case "statement":
			if !child.HasError() && c.walk(child, src) {
				continue
			}
		}
		c.match(Clean(child.Content(src)))
	}
	return c.refs
}

type collector struct {
	refs   *References
	reads  map[string]bool
	writes map[string]bool
}

func newCollector() *collector {
	return &collector{refs: &References{}, reads: map[string]bool{}, writes: map[string]bool{}}
}

func (c *collector) add(raw string, write bool) {
	name, ok := tableName(raw)
	if !ok {
		return
	}
	key := strings.ToUpper(name)
	if write {
		if !c.writes[key] {
			c.writes[key] = true
			c.refs.Writes = append(c.refs.Writes, name)
		}
		return
	}
	if !c.reads[key] {
		c.reads[key] = true
		c.refs.Reads = append(c.refs.Reads, name)
	}
}

// walk records every object reference under node whose clause is known; it reports
// whether any reference was classified
func (c *collector) walk(node *sitter.Node, src []byte) bool {
	if node.Type() == "object_reference" {
		write, ok := role(node)
		if ok {
			c.add(node.Content(src), write)
		}
		return ok
	}
	found := false
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if c.walk(node.NamedChild(i), src) {
			found = true
		}
	}
	return found
}

// role classifies an object reference by the clause holding it
func role(node *sitter.Node) (write bool, ok bool) {
	parent := node.Parent()
	if parent == nil {
		return false, false
	}
	switch parent.Type() {
	case "relation":
		holder := parent.Parent()
		if holder == nil {
			return false, false
		}
		switch holder.Type() {
		case "from", "join", "cross_join", "lateral_join", "lateral_cross_join":
			return false, true
		case "update":
			return true, true
		}
	case "from": // DELETE FROM target
		return true, true
	case "insert":
		return true, true
	case "statement": // MERGE target and source, TRUNCATE targets
		for prev := node.PrevSibling(); prev != nil; prev = prev.PrevSibling() {
			switch prev.Type() {
			case "keyword_using":
				return false, true
			case "keyword_merge", "keyword_truncate":
				return true, true
			}
		}
	}
	return false, false
}

// match applies the lexical patterns to cleaned text
func (c *collector) match(cleaned string) {
	for _, expr := range readExprs {
		for _, loc := range expr.FindAllStringSubmatchIndex(cleaned, -1) {
			prefix := cleaned[:loc[0]]
			if deleteSuffix.MatchString(prefix) || functionPrefix.MatchString(prefix) {
				continue
			}
			if followedByHyphen(cleaned, loc[3]) {
				continue
			}
			c.add(cleaned[loc[2]:loc[3]], false)
		}
	}
	for _, expr := range writeExprs {
		for _, loc := range expr.FindAllStringSubmatchIndex(cleaned, -1) {
			if forSuffix.MatchString(cleaned[:loc[0]]) || followedByHyphen(cleaned, loc[3]) {
				continue
			}
			c.add(cleaned[loc[2]:loc[3]], true)
		}
	}
}

// followedByHyphen rejects COBOL data names such as WS-TABLE matched up to the hyphen
func followedByHyphen(text string, end int) bool {
	return end < len(text) && text[end] == '-'
}

// tableName normalizes quoting of a reference and rejects keywords, host variables
// and temp tables
func tableName(raw string) (string, bool) {
	parts := strings.Split(raw, ".")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, "[]\"`")
		parts[i] = part
	}
	name := strings.Join(parts, ".")
	if name == "" || strings.HasPrefix(name, "#") || strings.HasPrefix(name, "@") || strings.HasPrefix(name, ":") {
		return "", false
	}
	if reserved[strings.ToUpper(name)] {
		return "", false
	}
	return name, true
}

// Clean blanks comments and literal contents so that their text does not look like table references
func Clean(text string) string {
	buf := []byte(text)
	inString := false
	for i := 0; i < len(buf); i++ {
		switch {
		case inString:
			if buf[i] == '\'' {
				inString = false
			} else if buf[i] != '\n' {
				buf[i] = ' '
			}
		case buf[i] == '\'':
			inString = true
		case buf[i] == '-' && i+1 < len(buf) && buf[i+1] == '-':
			j := i
			for j < len(buf) && buf[j] != '\n' {
				buf[j] = ' '
				j++
			}
			i = j
		case buf[i] == '/' && i+1 < len(buf) && buf[i+1] == '*':
			j := i
			for j < len(buf) && !(buf[j] == '*' && j+1 < len(buf) && buf[j+1] == '/') {
				if buf[j] != '\n' {
					buf[j] = ' '
				}
				j++
			}
			if j < len(buf) {
				buf[j] = ' '
				if j+1 < len(buf) {
					buf[j+1] = ' '
				}
				j++
			}
			i = j
		}
	}
	return string(buf)
}
