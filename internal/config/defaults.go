package config

// Default configuration values.
const (
	// DefaultEngine is the execution engine used when none is configured.
	DefaultEngine = "duckdb"

	// DefaultSchema is the schema used when none is configured.
	DefaultSchema = "main"

	// DefaultStateFile is the operation-log database location.
	DefaultStateFile = ".duckbridge/state.db"
)

// ApplyDefaults fills in zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	if c.Target.Engine == "" {
		c.Target.Engine = DefaultEngine
	}
	if c.Target.Schema == "" {
		c.Target.Schema = DefaultSchema
	}
	if c.StatePath == "" {
		c.StatePath = DefaultStateFile
	}
}
