package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImport_YAMLList(t *testing.T) {
	data := []byte(`
- title: Go Engineer
  company: Acme
  sector: tech
  requirements: [go, sql]
  featured: true
- title: Data Analyst
  company: Initech
  isApproved: false
`)
	jobs, err := parseImport(data)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "Go Engineer", jobs[0].Title)
	assert.Equal(t, []string{"go", "sql"}, jobs[0].Requirements)
	assert.True(t, jobs[0].Featured)
	assert.Nil(t, jobs[0].IsApproved)
	require.NotNil(t, jobs[1].IsApproved)
	assert.False(t, *jobs[1].IsApproved)
}

func TestParseImport_JSONDocument(t *testing.T) {
	data := []byte(`{"jobs": [{"title": "SRE", "company": "Globex", "applyLink": "https://globex.example/jobs/1"}]}`)

	jobs, err := parseImport(data)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "SRE", jobs[0].Title)
	assert.Equal(t, "https://globex.example/jobs/1", jobs[0].ApplyLink)
}

func TestParseImport_Empty(t *testing.T) {
	_, err := parseImport([]byte(`jobs: []`))
	assert.Error(t, err)

	_, err = parseImport([]byte(`[]`))
	assert.Error(t, err)
}

func TestParseImport_Malformed(t *testing.T) {
	_, err := parseImport([]byte("jobs: [title: \"unterminated"))
	assert.Error(t, err)
}

func TestReadImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- title: Go Engineer\n"), 0o600))

	jobs, err := readImportFile(path)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	_, err = readImportFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBuildCLI_Commands(t *testing.T) {
	root := BuildCLI()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "sweep", "sync", "import", "hash-token", "grant-admin"})
}
