package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/loykin/appman/internal/catalog"
)

// yamlApp mirrors one app block in an apps.yaml catalog.
type yamlApp struct {
	Path        string `yaml:"path"`
	Entry       string `yaml:"entry"`
	DefaultPort int    `yaml:"default_port"`
	Host        string `yaml:"host"`
	Args        string `yaml:"args"`
	Enabled     *bool  `yaml:"enabled"`
}

type yamlCatalog struct {
	Apps map[string]yamlApp `yaml:"apps"`
}

// LoadApps parses an apps.yaml catalog into App records. Apps with no host
// default to 127.0.0.1 and enabled defaults to true.
func LoadApps(path string) ([]catalog.App, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read apps file %s: %w", path, err)
	}
	var doc yamlCatalog
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse apps file %s: %w", path, err)
	}
	apps := make([]catalog.App, 0, len(doc.Apps))
	for name, y := range doc.Apps {
		if y.Path == "" || y.Entry == "" {
			return nil, fmt.Errorf("app %q: path and entry are required", name)
		}
		if y.DefaultPort <= 0 || y.DefaultPort > 65535 {
			return nil, fmt.Errorf("app %q: default_port %d out of range", name, y.DefaultPort)
		}
		host := y.Host
		if host == "" {
			host = "127.0.0.1"
		}
		enabled := true
		if y.Enabled != nil {
			enabled = *y.Enabled
		}
		apps = append(apps, catalog.App{
			Name:    name,
			Path:    y.Path,
			Entry:   y.Entry,
			Host:    host,
			Port:    y.DefaultPort,
			Args:    y.Args,
			Enabled: enabled,
		})
	}
	return apps, nil
}
