package cobol

import "strings"

// normalize removes fixed-format sequence and indicator areas, comment lines
// and inline comments, leaving program text aligned as in free format
func normalize(src string) (string, bool) {
	src = strings.ToValidUTF8(src, "")
	src = strings.ReplaceAll(src, "\r\n", "\n")
	lines := strings.Split(src, "\n")
	fixed := isFixedFormat(lines)
	var builder strings.Builder
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if fixed && len(line) >= 7 {
			switch line[6] {
			case '*', '/':
				builder.WriteString("\n")
				continue
			case 'D', 'd':
				builder.WriteString("\n")
				continue
			}
			line = "       " + line[7:]
			if len(line) > 72 {
				line = line[:72]
			}
		} else if fixed && len(line) < 7 {
			builder.WriteString("\n")
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "*>") || (!fixed && strings.HasPrefix(trimmed, "*")) {
			builder.WriteString("\n")
			continue
		}
		if index := strings.Index(line, "*>"); index != -1 {
			line = line[:index]
		}
		builder.WriteString(line)
		builder.WriteString("\n")
	}
	return builder.String(), fixed
}

// isFixedFormat detects reference format: most non-blank lines carry a
// numeric or blank sequence area followed by an indicator column
func isFixedFormat(lines []string) bool {
	total, fixed := 0, 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		total++
		if len(line) < 7 {
			continue
		}
		area := line[:6]
		if strings.Trim(area, "0123456789") != "" && strings.TrimSpace(area) != "" {
			continue
		}
		if strings.ContainsRune(" *-/Dd", rune(line[6])) {
			fixed++
		}
	}
	if total == 0 {
		return false
	}
	return fixed*10 >= total*9 && hasSequenceOrIndicator(lines)
}

// hasSequenceOrIndicator avoids treating indented free-format text as fixed format
func hasSequenceOrIndicator(lines []string) bool {
	for _, line := range lines {
		if len(line) < 7 {
			continue
		}
		area := line[:6]
		if strings.TrimSpace(area) != "" && strings.Trim(area, "0123456789") == "" {
			return true
		}
		if strings.TrimSpace(area) == "" && (line[6] == '*' || line[6] == '/') {
			return true
		}
	}
	return false
}
