// Package seed lit un fichier YAML de trackings à importer au démarrage.
//
//	trackings:
//	  - url: https://example.com/prices
//	    name: Prix
//	    min_interval: 30
//	    max_interval: 90
//	    start: true
package seed

import (
	"fmt"
	"os"

	"github.com/Guilhem-Bonnet/page-tracker/internal/app"
	"gopkg.in/yaml.v3"
)

type File struct {
	Trackings []Entry `yaml:"trackings"`
}

type Entry struct {
	URL         string `yaml:"url"`
	Name        string `yaml:"name"`
	MinInterval int    `yaml:"min_interval"`
	MaxInterval int    `yaml:"max_interval"`
	Start       bool   `yaml:"start"`
}

func LoadFile(path string) ([]app.CreateTrackingRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) ([]app.CreateTrackingRequest, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	out := make([]app.CreateTrackingRequest, 0, len(f.Trackings))
	for i, e := range f.Trackings {
		if e.URL == "" {
			return nil, fmt.Errorf("seed: trackings[%d]: url is required", i)
		}
		out = append(out, app.CreateTrackingRequest{
			URL:         e.URL,
			Name:        e.Name,
			MinInterval: e.MinInterval,
			MaxInterval: e.MaxInterval,
			Start:       e.Start,
		})
	}
	return out, nil
}
