package jcl

import "strings"

// statement is a logical control statement with continuations joined
type statement struct {
	text string
	line int
}

// joinStatements returns control statements, skipping comments and in-stream data.
// A statement whose operands end with a comma continues on the next // line.
func joinStatements(src string) []*statement {
	src = strings.ToValidUTF8(src, "")
	var result []*statement
	var current *statement
	for number, raw := range strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if len(line) > 72 && isSequenced(line) {
			line = strings.TrimRight(line[:72], " ")
		}
		if !strings.HasPrefix(line, "//") || strings.HasPrefix(line, "//*") {
			if strings.HasPrefix(line, "/*") || !strings.HasPrefix(line, "//") {
				current = nil
			}
			continue
		}
		if current != nil && continues(current.text) {
			current.text += firstField(line[2:])
			continue
		}
		current = &statement{text: stripComment(line), line: number + 1}
		result = append(result, current)
	}
	return result
}

func isSequenced(line string) bool {
	tail := strings.TrimSpace(line[72:])
	return tail != "" && strings.Trim(tail, "0123456789") == ""
}

func continues(text string) bool {
	return strings.HasSuffix(strings.TrimSpace(text), ",")
}

// stripComment drops trailing comment text that follows the operand field
func stripComment(line string) string {
	fields := 0
	inQuote := false
	inSpace := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\'' {
			inQuote = !inQuote
		}
		if inQuote {
			continue
		}
		if c == ' ' {
			if !inSpace {
				fields++
				inSpace = true
			}
			if fields >= 3 && i > 0 && line[i-1] != ' ' {
				return strings.TrimRight(line[:i], " ")
			}
			continue
		}
		inSpace = false
	}
	return strings.TrimRight(line, " ")
}

// firstField returns the operands of a continuation line
func firstField(text string) string {
	text = strings.TrimSpace(text)
	inQuote := false
	for i := 0; i < len(text); i++ {
		switch {
		case text[i] == '\'':
			inQuote = !inQuote
		case text[i] == ' ' && !inQuote:
			return text[:i]
		}
	}
	return text
}

// operands splits a parameter list on top-level commas
func operands(text string) []string {
	var result []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\'':
			inQuote = !inQuote
		case '(':
			if !inQuote {
				depth++
			}
		case ')':
			if !inQuote && depth > 0 {
				depth--
			}
		case ',':
			if !inQuote && depth == 0 {
				result = append(result, strings.TrimSpace(text[start:i]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		result = append(result, rest)
	}
	return result
}

// keyword returns the value of KEY=value among operands
func keyword(params []string, keys ...string) (string, bool) {
	for _, param := range params {
		index := strings.Index(param, "=")
		if index == -1 {
			continue
		}
		name := strings.ToUpper(strings.TrimSpace(param[:index]))
		for _, key := range keys {
			if name == key {
				return strings.TrimSpace(param[index+1:]), true
			}
		}
	}
	return "", false
}
