// Package scenario loads and serves the static role-play catalog.
package scenario

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"pharmaflow-tutor/pkg"
)

//go:embed scenarios.yaml
var defaultScenariosYAML []byte

// Scenario is one role-play definition.  Scenarios are static: loaded at
// process start and never mutated.  Sessions reference them by title and
// copy what they need.
type Scenario struct {
	Title        string   `yaml:"title" json:"title"`
	Voice        string   `yaml:"voice" json:"voice"`
	Persona      string   `yaml:"persona" json:"persona"`
	Goal         string   `yaml:"goal" json:"goal"`
	SystemPrompt string   `yaml:"system_prompt" json:"-"`
	Twists       []string `yaml:"twists" json:"twists"`
}

type catalogFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// Catalog is a read-only lookup table of scenarios keyed by title.
type Catalog struct {
	byTitle map[string]Scenario
	titles  []string
}

// NewCatalog builds a catalog from the embedded default scenarios.
func NewCatalog() (*Catalog, error) {
	c := &Catalog{byTitle: make(map[string]Scenario)}
	if err := c.loadBytes(defaultScenariosYAML); err != nil {
		return nil, fmt.Errorf("load embedded scenarios: %w", err)
	}
	return c, nil
}

// LoadFromDir loads every YAML file in dir on top of the current catalog.
// Scenarios with an existing title replace the embedded definition.
func (c *Catalog) LoadFromDir(dir string) error {
	patterns := []string{"*.yaml", "*.yml"}
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			slog.Warn("failed to read scenario file", "file", file, "error", err)
			continue
		}
		if err := c.loadBytes(data); err != nil {
			slog.Warn("failed to load scenario file", "file", file, "error", err)
			continue
		}
		loaded++
	}
	slog.Info("scenario files loaded", "count", loaded, "total_files", len(files))
	return nil
}

func (c *Catalog) loadBytes(data []byte) error {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	for _, sc := range f.Scenarios {
		if err := validate(sc); err != nil {
			return err
		}
		if _, exists := c.byTitle[sc.Title]; !exists {
			c.titles = append(c.titles, sc.Title)
		}
		c.byTitle[sc.Title] = sc
	}
	return nil
}

func validate(sc Scenario) error {
	if sc.Title == "" {
		return fmt.Errorf("scenario title is required")
	}
	if sc.SystemPrompt == "" {
		return fmt.Errorf("scenario %q: system_prompt is required", sc.Title)
	}
	if sc.Goal == "" {
		return fmt.Errorf("scenario %q: goal is required", sc.Title)
	}
	if len(sc.Twists) == 0 || sc.Twists[0] != pkg.NoTwist {
		return fmt.Errorf("scenario %q: twist list must start with %q", sc.Title, pkg.NoTwist)
	}
	return nil
}

// Get returns the scenario with the given title.
func (c *Catalog) Get(title string) (Scenario, bool) {
	sc, ok := c.byTitle[title]
	return sc, ok
}

// List returns all scenarios in load order.
func (c *Catalog) List() []Scenario {
	out := make([]Scenario, 0, len(c.titles))
	for _, t := range c.titles {
		out = append(out, c.byTitle[t])
	}
	return out
}

// Titles returns the scenario titles in load order.
func (c *Catalog) Titles() []string {
	out := make([]string, len(c.titles))
	copy(out, c.titles)
	return out
}
