package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"slices"

	"github.com/jwebster45206/archetype-engine/data"
	"github.com/jwebster45206/archetype-engine/pkg/scenario"
)

// Registry is the read-only set of scenarios, keyed by id. It is built once at
// startup and safe for concurrent reads.
type Registry struct {
	scenarios map[string]*scenario.Scenario
	ids       []string
}

// LoadRegistry loads the built-in scenarios, or the *.json files under
// dataDir/scenarios when dataDir is set.
func LoadRegistry(dataDir string, logger *slog.Logger) (*Registry, error) {
	if dataDir == "" {
		sub, err := fs.Sub(data.Scenarios, "scenarios")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded scenarios: %w", err)
		}
		logger.Debug("Loading built-in scenarios")
		return NewRegistry(sub, logger)
	}
	dir := path.Join(dataDir, "scenarios")
	logger.Debug("Loading scenarios from disk", "dir", dir)
	return NewRegistry(os.DirFS(dir), logger)
}

// NewRegistry decodes and validates every *.json file at the root of fsys.
// Any invalid scenario fails the whole load, reporting every problem found.
func NewRegistry(fsys fs.FS, logger *slog.Logger) (*Registry, error) {
	paths, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	if len(paths) == 0 {
		return nil, errors.New("no scenario files found")
	}

	r := &Registry{scenarios: make(map[string]*scenario.Scenario, len(paths))}
	var errs []error
	for _, p := range paths {
		sc, err := loadScenario(fsys, p)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		if _, dup := r.scenarios[sc.ID]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate scenario id %q", p, sc.ID))
			continue
		}
		r.scenarios[sc.ID] = sc
		r.ids = append(r.ids, sc.ID)
		logger.Debug("Loaded scenario", "scenario_id", sc.ID, "version", sc.Version, "file", p, "turns", sc.TurnCount())
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	slices.Sort(r.ids)
	logger.Info("Scenario registry loaded", "count", len(r.ids))
	return r, nil
}

func loadScenario(fsys fs.FS, p string) (*scenario.Scenario, error) {
	f, err := fsys.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario file: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc, err := scenario.Decode(f)
	if err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return sc, nil
}

// Get returns the scenario with the given id.
func (r *Registry) Get(id string) (*scenario.Scenario, bool) {
	sc, ok := r.scenarios[id]
	return sc, ok
}

// List returns scenario summaries ordered by id.
func (r *Registry) List() []scenario.Summary {
	out := make([]scenario.Summary, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.scenarios[id].Summary())
	}
	return out
}

// All returns the scenarios ordered by id.
func (r *Registry) All() []*scenario.Scenario {
	out := make([]*scenario.Scenario, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.scenarios[id])
	}
	return out
}
