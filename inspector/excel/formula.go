package excel

import (
	"regexp"
	"strings"
)

var (
	literalExpr    = regexp.MustCompile(`"(?:[^"]|"")*"`)
	sheetRefExpr   = regexp.MustCompile(`(?:\[[^\]]*\])?(?:'((?:[^']|'')+)'|([A-Za-z_][\w.]*))!`)
	externalPrefix = regexp.MustCompile(`^\[[^\]]*\]`)
)

// references returns the workbook sheets named by Sheet! or 'Sheet Name'! prefixes in a formula,
// matched case-insensitively and reported with the workbook spelling
func (w *workbook) references(formula string) []string {
	formula = literalExpr.ReplaceAllString(formula, `""`)
	var result []string
	seen := map[string]bool{}
	for _, match := range sheetRefExpr.FindAllStringSubmatch(formula, -1) {
		name := match[2]
		if match[1] != "" {
			name = strings.ReplaceAll(match[1], "''", "'")
			name = externalPrefix.ReplaceAllString(name, "")
		}
		sheet := w.lookupSheet(name)
		if sheet == "" || seen[sheet] {
			continue
		}
		seen[sheet] = true
		result = append(result, sheet)
	}
	return result
}

func (w *workbook) lookupSheet(name string) string {
	for _, sheet := range w.sheets {
		if strings.EqualFold(sheet, name) {
			return sheet
		}
	}
	return ""
}
