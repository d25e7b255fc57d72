package cli

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"jobmate/catalog-service/internal/model"
)

// importFile is the document form: a top-level "jobs" list.
type importFile struct {
	Jobs []model.JobInput `yaml:"jobs"`
}

// readImportFile reads postings from a YAML or JSON file holding either a
// list of postings or a document with a "jobs" list.
func readImportFile(path string) ([]model.JobInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseImport(data)
}

func parseImport(data []byte) ([]model.JobInput, error) {
	var list []model.JobInput
	if err := yaml.Unmarshal(data, &list); err == nil {
		if len(list) == 0 {
			return nil, errors.New("import file holds no jobs")
		}
		return list, nil
	}

	var doc importFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	if len(doc.Jobs) == 0 {
		return nil, errors.New("import file holds no jobs")
	}
	return doc.Jobs, nil
}
