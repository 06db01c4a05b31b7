package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownCity is returned when a city identifier has no registry entry.
var ErrUnknownCity = errors.New("unknown city")

// City describes one publishing target.
type City struct {
	// VideoDir holds the raw source clips and the pipeline scratch space.
	VideoDir string `yaml:"video_dir"`
	// PublishDir is the HLS-serving directory exposed by the web server.
	PublishDir string `yaml:"publish_dir"`
}

// Registry maps city identifiers to their publishing targets.
type Registry struct {
	cities map[string]City
}

type registryFile struct {
	Cities map[string]City `yaml:"cities"`
}

// LoadRegistry reads and validates the city registry from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("read city registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry parses registry YAML from memory.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse city registry: %w", err)
	}
	if len(file.Cities) == 0 {
		return nil, fmt.Errorf("city registry is empty")
	}
	for id, city := range file.Cities {
		if city.VideoDir == "" || city.PublishDir == "" {
			return nil, fmt.Errorf("city %q: video_dir and publish_dir are required", id)
		}
		if !filepath.IsAbs(city.VideoDir) || !filepath.IsAbs(city.PublishDir) {
			return nil, fmt.Errorf("city %q: directories must be absolute paths", id)
		}
		if city.VideoDir == city.PublishDir {
			return nil, fmt.Errorf("city %q: video_dir and publish_dir must differ", id)
		}
	}
	return &Registry{cities: file.Cities}, nil
}

// Lookup resolves a city identifier, or ErrUnknownCity.
func (r *Registry) Lookup(id string) (City, error) {
	city, ok := r.cities[id]
	if !ok {
		return City{}, fmt.Errorf("%w: %q", ErrUnknownCity, id)
	}
	return city, nil
}

// IDs returns all configured city identifiers in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.cities))
	for id := range r.cities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
