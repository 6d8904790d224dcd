package sources

// Source describes one monitored regulatory feed. Definitions are static
// YAML files; nothing here mutates at runtime. The last-checked timestamp
// lives in the database alongside the registered source row.
type Source struct {
	Name           string `yaml:"-"` // Derived from filename (without .yml extension)
	URL            string `yaml:"url"`
	Authority      string `yaml:"authority"` // e.g. "FDA", "EMA", "WHO"
	Region         string `yaml:"region"`
	UpdateType     string `yaml:"update_type"`
	Active         bool   `yaml:"active"`
	CheckFrequency int    `yaml:"check_frequency"` // minutes
	Timeout        int    `yaml:"timeout"`         // seconds
	ExtractContent bool   `yaml:"extract_content"`
}
