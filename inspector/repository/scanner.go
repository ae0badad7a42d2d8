package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/afs/url"
)

// DefaultIncludes selects every extension a registered inspector claims
var DefaultIncludes = []string{
	"**/*.cbl", "**/*.cob", "**/*.cobol",
	"**/*.jcl", "**/*.txt",
	"**/*.dtsx",
	"**/*.json",
	"**/*.csv", "**/*.tsv",
	"**/*.xlsx", "**/*.xlsm",
}

// DefaultExcludes skips version control and dependency folders
var DefaultExcludes = []string{"**/.git/**", "**/node_modules/**", "**/~$*"}

// Scanner lists source files below a root, filtered by case-insensitive glob patterns
// where ** spans directories
type Scanner struct {
	fs          afs.Service
	includes    []glob.Glob
	excludes    []glob.Glob
	maxFileSize int64
}

// ScannerOption customizes a scanner
type ScannerOption func(s *Scanner)

// WithMaxFileSize skips files larger than size bytes; 0 disables the limit
func WithMaxFileSize(size int64) ScannerOption {
	return func(s *Scanner) {
		s.maxFileSize = size
	}
}

// WithScannerFileSystem sets the storage service used to walk the tree
func WithScannerFileSystem(fs afs.Service) ScannerOption {
	return func(s *Scanner) {
		s.fs = fs
	}
}

// NewScanner compiles include and exclude patterns; empty includes select the default extensions
func NewScanner(includes, excludes []string, options ...ScannerOption) (*Scanner, error) {
	if len(includes) == 0 {
		includes = DefaultIncludes
	}
	s := &Scanner{fs: afs.New()}
	var err error
	if s.includes, err = compile(includes); err != nil {
		return nil, err
	}
	if s.excludes, err = compile(excludes); err != nil {
		return nil, err
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	result := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		matcher, err := glob.Compile(strings.ToLower(pattern), '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		result = append(result, matcher)
	}
	return result, nil
}

// matches tests the path with and without a leading slash so that **/x also matches x at the root
func matches(matchers []glob.Glob, relative string) bool {
	relative = strings.ToLower(relative)
	for _, matcher := range matchers {
		if matcher.Match(relative) || matcher.Match("/"+relative) {
			return true
		}
	}
	return false
}

// Included reports whether a relative path passes the include and exclude patterns
func (s *Scanner) Included(relative string) bool {
	return matches(s.includes, relative) && !matches(s.excludes, relative)
}

// Scan walks root and returns the selected files ordered by relative path
func (s *Scanner) Scan(ctx context.Context, root string) ([]*Asset, error) {
	var assets []*Asset
	var visitor storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		relative := path.Join(parent, info.Name())
		if info.IsDir() {
			return !matches(s.excludes, relative) && !matches(s.excludes, relative+"/"), nil
		}
		if !s.Included(relative) {
			return true, nil
		}
		if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
			return true, nil
		}
		assets = append(assets, &Asset{
			URL:          url.Join(baseURL, relative),
			RelativePath: relative,
			Size:         info.Size(),
			Modified:     info.ModTime(),
		})
		return true, nil
	}
	if err := s.fs.Walk(ctx, root, visitor); err != nil {
		return nil, fmt.Errorf("failed to scan %v: %w", root, err)
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].RelativePath < assets[j].RelativePath
	})
	return assets, nil
}
