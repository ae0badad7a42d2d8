package analyzer_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/tracegraph/analyzer"
	"github.com/viant/tracegraph/inspector/repository"
)

func TestLoadConfig(t *testing.T) {
	testCases := []struct {
		name      string
		content   string
		expect    *analyzer.Config
		expectErr bool
	}{
		{
			name: "explicit values",
			content: `root: /data/etl
include:
  - "**/*.jcl"
exclude: []
concurrency: 4
maxFileSize: 1048576
snippetLimit: 200
`,
			expect: &analyzer.Config{
				Root:         "/data/etl",
				Include:      []string{"**/*.jcl"},
				Exclude:      []string{},
				Concurrency:  4,
				MaxFileSize:  1048576,
				SnippetLimit: 200,
			},
		},
		{
			name:    "defaults",
			content: "root: /data/etl\n",
			expect: &analyzer.Config{
				Root:         "/data/etl",
				Include:      repository.DefaultIncludes,
				Exclude:      repository.DefaultExcludes,
				Concurrency:  runtime.NumCPU(),
				SnippetLimit: 500,
			},
		},
		{name: "missing root", content: "concurrency: 2\n", expectErr: true},
		{name: "negative size", content: "root: /x\nmaxFileSize: -1\n", expectErr: true},
		{name: "not yaml", content: "root: [", expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			location := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(location, []byte(testCase.content), 0644))
			actual, err := analyzer.LoadConfig(context.Background(), location)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expect, actual)
		})
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := analyzer.LoadConfig(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestConfig_DocumentConfig(t *testing.T) {
	config := analyzer.DefaultConfig("/data")
	config.SnippetLimit = 0
	assert.Equal(t, 0, config.DocumentConfig().SnippetLimit)
	assert.Equal(t, 50, config.DocumentConfig().OperationPreview)
}
