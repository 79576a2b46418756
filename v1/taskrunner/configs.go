package taskrunner

// DefaultMaxWorkers bounds concurrently running tasks.
const DefaultMaxWorkers = 4

// Config tunes the Runner.
type Config struct {
	// MaxWorkers is the number of tasks allowed to run at once. Further
	// tasks wait for a free slot.
	MaxWorkers int `yaml:"max_workers" mapstructure:"max_workers"`
}

func (c Config) withDefaults() Config {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	return c
}
