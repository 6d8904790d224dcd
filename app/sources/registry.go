package sources

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry loads and caches source definitions from a directory of YAML
// files, one file per source. The source name is the filename without
// extension. Sources that omit a timeout inherit defaultTimeout.
type Registry struct {
	sourcesDir     string
	defaultTimeout int // seconds
	cache          map[string]*Source
	mu             sync.RWMutex
}

func NewRegistry(sourcesDir string, defaultTimeout int) *Registry {
	if defaultTimeout <= 0 {
		defaultTimeout = 30
	}
	return &Registry{
		sourcesDir:     sourcesDir,
		defaultTimeout: defaultTimeout,
		cache:          make(map[string]*Source),
	}
}

func (r *Registry) Run() error {
	if _, err := os.Stat(r.sourcesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(r.sourcesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		sourceName := strings.TrimSuffix(fileName, ".yml")

		source, err := r.LoadSource(sourceName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source definition loaded", "source", sourceName,
			"authority", source.Authority, "active", source.Active,
			"check_frequency", source.CheckFrequency)
	}

	return nil
}

func (r *Registry) LoadSource(sourceName string) (*Source, error) {
	sourceFile := filepath.Join(r.sourcesDir, sourceName+".yml")

	source, err := r.parseSource(sourceFile)
	if err != nil {
		return nil, err
	}

	source.Name = sourceName

	if err := r.validateSource(source); err != nil {
		return nil, fmt.Errorf("invalid source %s: %w", sourceFile, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[source.Name] = source

	return source, nil
}

func (r *Registry) GetSource(sourceName string) (*Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, ok := r.cache[sourceName]
	if !ok {
		return nil, fmt.Errorf("source with name '%s' not found", sourceName)
	}
	return source, nil
}

func (r *Registry) GetSources() map[string]*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sourcesCopy := make(map[string]*Source, len(r.cache))
	for k, v := range r.cache {
		sourcesCopy[k] = v
	}
	return sourcesCopy
}

// GetActiveSources returns the active subset of the registry in a fixed
// name-sorted order, so every monitoring pass walks sources the same way.
func (r *Registry) GetActiveSources() []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active := make([]*Source, 0, len(r.cache))
	for _, source := range r.cache {
		if source.Active {
			active = append(active, source)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].Name < active[j].Name
	})

	return active
}

func (r *Registry) GetSourceCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

func (r *Registry) parseSource(sourceFile string) (*Source, error) {
	data, err := os.ReadFile(sourceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source Source
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if source.CheckFrequency == 0 {
		source.CheckFrequency = 60
	}
	if source.Timeout == 0 {
		source.Timeout = r.defaultTimeout
	}
	if source.Region == "" {
		source.Region = "Global"
	}
	if source.UpdateType == "" {
		source.UpdateType = "regulatory"
	}

	return &source, nil
}

func (r *Registry) validateSource(source *Source) error {
	if source == nil {
		return fmt.Errorf("source is nil")
	}

	requiredFields := map[string]string{
		"source name": source.Name,
		"source URL":  source.URL,
		"authority":   source.Authority,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if _, err := url.ParseRequestURI(source.URL); err != nil {
		return fmt.Errorf("source URL is not valid: %w", err)
	}

	nonNegativeFields := map[string]int{
		"check frequency": source.CheckFrequency,
		"timeout":         source.Timeout,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	return nil
}
