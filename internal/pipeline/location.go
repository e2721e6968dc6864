package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Location is one analysis target.
type Location struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Lat         float64 `json:"lat" yaml:"lat"`
	Lon         float64 `json:"lon" yaml:"lon"`
}

// Slug returns the filesystem- and database-safe identifier for the location.
func (l Location) Slug() string {
	s := strings.ToLower(strings.TrimSpace(l.Name))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
	return strings.Trim(s, "_")
}

type locationsFile struct {
	Locations []Location `json:"locations" yaml:"locations"`
}

// LoadLocations reads a locations file. The format follows the extension:
// .json expects {"locations": [...]}, .yaml/.yml the equivalent mapping.
func LoadLocations(path string) ([]Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read locations file %s", path)
	}

	var f locationsFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrapf(err, "pipeline: parse locations yaml %s", path)
		}
	default:
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrapf(err, "pipeline: parse locations json %s", path)
		}
	}

	if len(f.Locations) == 0 {
		return nil, eris.Errorf("pipeline: locations file %s contains no locations", path)
	}
	for i, loc := range f.Locations {
		if loc.Name == "" {
			return nil, eris.Errorf("pipeline: location %d missing name", i)
		}
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lon < -180 || loc.Lon > 180 {
			return nil, eris.Errorf("pipeline: location %q has invalid coordinates (%g, %g)",
				loc.Name, loc.Lat, loc.Lon)
		}
	}
	return f.Locations, nil
}
