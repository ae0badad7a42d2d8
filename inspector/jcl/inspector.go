package jcl

import (
	"bufio"
	"bytes"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/viant/tracegraph/inspector/document"
)

const TypeStep = "JCL_STEP"

var (
	jobExpr  = regexp.MustCompile(`(?i)^//([A-Z0-9#@$]+)\s+JOB\b`)
	execExpr = regexp.MustCompile(`(?i)^//([A-Z0-9#@$]+)\s+EXEC\s+(.*)$`)
	ddExpr   = regexp.MustCompile(`(?i)^//([A-Z0-9#@$.]*)\s+DD\b\s*(.*)$`)
	procExpr = regexp.MustCompile(`(?i)^//([A-Z0-9#@$]+)\s+PROC\b`)
)

// Inspector extracts steps and datasets from job control scripts
type Inspector struct {
	config *document.Config
}

// NewInspector creates a JCL inspector
func NewInspector(config *document.Config) *Inspector {
	if config == nil {
		config = document.DefaultConfig()
	}
	return &Inspector{config: config}
}

func (i *Inspector) Format() document.Format {
	return document.FormatJobControl
}

func (i *Inspector) Extensions() []string {
	return []string{".jcl", ".txt"}
}

// CanInspect accepts .jcl files and any other claimed file whose first line starts with //
func (i *Inspector) CanInspect(filename string, src []byte) bool {
	ext := strings.ToLower(path.Ext(filename))
	if ext == ".jcl" {
		return true
	}
	if ext != ".txt" {
		return false
	}
	return strings.HasPrefix(firstLine(src), "//")
}

func firstLine(src []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(src))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			return line
		}
	}
	return ""
}

// InspectSource parses a job control script
func (i *Inspector) InspectSource(filename string, src []byte) (*document.Document, error) {
	statements := joinStatements(string(src))
	if len(statements) == 0 {
		return nil, document.Malformed(filename, fmt.Errorf("no job control statements"))
	}
	jobName := ""
	isProc := false
	for _, statement := range statements {
		if match := jobExpr.FindStringSubmatch(statement.text); match != nil {
			jobName = strings.ToUpper(match[1])
			break
		}
		if match := procExpr.FindStringSubmatch(statement.text); match != nil {
			jobName = strings.ToUpper(match[1])
			isProc = true
			break
		}
	}
	job := &job{config: i.config}
	job.parse(statements)
	if jobName == "" && len(job.steps) == 0 {
		return nil, document.Malformed(filename, fmt.Errorf("no JOB statement or EXEC step"))
	}
	if jobName == "" {
		base := path.Base(filename)
		jobName = strings.ToUpper(strings.TrimSuffix(base, path.Ext(base)))
	}

	doc := document.New(document.Metadata{
		Name:        jobName,
		ID:          jobName,
		Format:      document.FormatJobControl,
		FilePath:    filename,
		Description: "JCL batch job: " + jobName,
		Attributes: map[string]interface{}{
			"steps":    len(job.steps),
			"datasets": len(job.datasets),
		},
	})
	if isProc {
		doc.Metadata.Description = "JCL procedure: " + jobName
		doc.Metadata.Attributes["procedure"] = true
	}
	for _, dataset := range job.datasets {
		doc.AddDataSource(dataset)
	}
	for _, step := range job.steps {
		doc.AddComponent(step.component)
	}
	for index, step := range job.steps {
		if index+1 < len(job.steps) {
			next := job.steps[index+1]
			doc.AddDependency(&document.Dependency{
				From:        step.component.ID,
				To:          next.component.ID,
				Type:        document.Sequential,
				Condition:   next.condition,
				Description: fmt.Sprintf("%s must complete before %s", step.component.Name, next.component.Name),
			})
		}
		for _, access := range step.accesses {
			kind, verb := document.ReadsFrom, "reads from"
			if access.write {
				kind, verb = document.WritesTo, "writes to"
			}
			doc.AddDependency(&document.Dependency{
				From:        step.component.ID,
				To:          access.dataset,
				Type:        kind,
				Description: fmt.Sprintf("%s %s %s", step.component.Name, verb, access.dataset),
			})
		}
	}
	doc.DropUnresolved()
	return doc, nil
}
