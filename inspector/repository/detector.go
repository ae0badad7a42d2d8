package repository

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// Detector identifies the repository containing a scanned root
type Detector struct {
	markers []string
}

// New creates a detector; the first marker found walking up decides the repository kind
func New() *Detector {
	return &Detector{
		markers: []string{
			".git",
			".svn",
			"pom.xml",
			"build.xml",
		},
	}
}

// DetectRepository searches up from location for a repository marker. Without one the
// location itself is reported with kind "directory".
func (d *Detector) DetectRepository(location string) (*Repository, error) {
	absPath, err := filepath.Abs(location)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	start := absPath
	if !info.IsDir() {
		start = filepath.Dir(absPath)
	}
	root, marker := d.findRoot(start)
	if root == "" {
		return &Repository{Kind: "directory", Root: start, Name: filepath.Base(start)}, nil
	}
	repo := &Repository{Kind: kindOf(marker), Root: root, Name: filepath.Base(root)}
	if marker == ".git" {
		repo.Origin = gitOrigin(root)
		if name := nameFromOrigin(repo.Origin); name != "" {
			repo.Name = name
		}
	}
	return repo, nil
}

func (d *Detector) findRoot(dir string) (string, string) {
	for {
		for _, marker := range d.markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, marker
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ""
		}
		dir = parent
	}
}

// gitOrigin reads the origin remote url from the repository config
func gitOrigin(root string) string {
	file, err := os.Open(filepath.Join(root, ".git", "config"))
	if err != nil {
		return ""
	}
	defer file.Close()
	scanner := bufio.NewScanner(file)
	inOrigin := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "[") {
			inOrigin = line == `[remote "origin"]`
			continue
		}
		if inOrigin && strings.HasPrefix(line, "url") {
			if index := strings.Index(line, "="); index != -1 {
				return strings.TrimSpace(line[index+1:])
			}
		}
	}
	return ""
}

func nameFromOrigin(origin string) string {
	origin = strings.TrimSuffix(strings.TrimSuffix(origin, "/"), ".git")
	if origin == "" {
		return ""
	}
	if index := strings.LastIndexAny(origin, "/:"); index != -1 {
		return origin[index+1:]
	}
	return origin
}

func kindOf(marker string) string {
	switch marker {
	case ".git":
		return "git"
	case ".svn":
		return "svn"
	case "pom.xml":
		return "maven"
	case "build.xml":
		return "ant"
	}
	return "unknown"
}
