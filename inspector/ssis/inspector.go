package ssis

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/tracegraph/inspector/document"
)

// DTSNamespace is the package markup namespace
const DTSNamespace = "www.microsoft.com/SqlServer/Dts"

// Inspector extracts connections, variables, tasks and precedence from SSIS packages
type Inspector struct {
	config *document.Config
}

// NewInspector creates an SSIS package inspector
func NewInspector(config *document.Config) *Inspector {
	if config == nil {
		config = document.DefaultConfig()
	}
	return &Inspector{config: config}
}

func (i *Inspector) Format() document.Format {
	return document.FormatWorkflowPackage
}

func (i *Inspector) Extensions() []string {
	return []string{".dtsx"}
}

func (i *Inspector) CanInspect(filename string, src []byte) bool {
	return strings.ToLower(path.Ext(filename)) == ".dtsx"
}

// InspectSource parses package markup
func (i *Inspector) InspectSource(filename string, src []byte) (*document.Document, error) {
	root, err := parse(src)
	if err != nil {
		return nil, document.Malformed(filename, err)
	}
	if root.name.Local != "Executable" || !strings.EqualFold(root.name.Space, DTSNamespace) {
		return nil, document.Malformed(filename, fmt.Errorf("root element %s:%s is not a package", root.name.Space, root.name.Local))
	}
	p := &pkg{config: i.config, root: root}
	doc := document.New(p.metadata(filename))
	p.doc = doc
	p.extractConnections()
	p.extractVariables()
	p.extractTasks()
	p.extractPrecedence()
	p.extractQueries()
	doc.DropUnresolved()
	return doc, nil
}

func (p *pkg) metadata(filename string) document.Metadata {
	root := p.root
	name := root.property("ObjectName")
	if name == "" {
		base := path.Base(filename)
		name = strings.TrimSuffix(base, path.Ext(base))
	}
	id := root.property("DTSID")
	if id == "" {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(filename)).String()
	}
	result := document.Metadata{
		Name:        name,
		ID:          id,
		Format:      document.FormatWorkflowPackage,
		Description: root.property("Description"),
		Author:      root.property("CreatorName"),
		CreatedDate: root.property("CreationDate"),
		FilePath:    filename,
		Attributes:  map[string]interface{}{},
	}
	major, minor := root.property("VersionMajor"), root.property("VersionMinor")
	if major != "" && minor != "" {
		result.Version = major + "." + minor
	}
	if computer := root.property("CreatorComputerName"); computer != "" {
		result.Attributes["creatorComputerName"] = computer
	}
	if lastModified := root.property("LastModifiedProductVersion"); lastModified != "" {
		result.Attributes["lastModifiedProductVersion"] = lastModified
	}
	return result
}
