package store

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/laguz/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type catalogFile struct {
	Markers []models.Marker `yaml:"markers"`
}

// LoadCatalog reads the marker catalog from path, or the embedded default
// catalog when path is empty.
func LoadCatalog(path string) ([]models.Marker, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", path, err)
		}
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog. Every entry must pass
// models.Marker.Validate and IDs must be unique.
func ParseCatalog(data []byte) ([]models.Marker, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog: parse: %w", err)
	}
	if len(f.Markers) == 0 {
		return nil, errors.New("catalog: no markers defined")
	}
	seen := make(map[string]struct{}, len(f.Markers))
	var errs []error
	for i := range f.Markers {
		m := &f.Markers[i]
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("marker %d (%q): %w", i, m.ID, err))
			continue
		}
		if _, dup := seen[m.ID]; dup {
			errs = append(errs, fmt.Errorf("marker %d: duplicate id %q", i, m.ID))
		}
		seen[m.ID] = struct{}{}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog: %w", errors.Join(errs...))
	}
	return f.Markers, nil
}
