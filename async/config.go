package async

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

type yamlConfig struct {
	Async struct {
		Workers    int    `yaml:"workers"`
		QueueSize  int    `yaml:"queueSize"`
		MaxRetries *int   `yaml:"maxRetries"`
		RetryDelay string `yaml:"retryDelay"`
		Verbose    bool   `yaml:"verbose"`
	} `yaml:"async"`
}

func optionFromConfigBytes(b []byte) (Option, error) {
	var cfg yamlConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	return OptionFunc(func(o *Options) {
		if cfg.Async.Workers > 0 {
			o.Workers = cfg.Async.Workers
		}
		if cfg.Async.QueueSize > 0 {
			o.QueueSize = cfg.Async.QueueSize
		}
		if cfg.Async.MaxRetries != nil && *cfg.Async.MaxRetries >= 0 {
			o.MaxRetries = *cfg.Async.MaxRetries
		}
		if cfg.Async.RetryDelay != "" {
			d, err := time.ParseDuration(cfg.Async.RetryDelay)
			if err != nil {
				panic(fmt.Errorf("async: invalid retry delay %q: %w", cfg.Async.RetryDelay, err))
			}
			o.RetryDelay = d
		}
		if cfg.Async.Verbose {
			o.Verbose = true
		}
	}), nil
}

// WithConfig parses YAML bytes following offline.yaml structure and applies
// the async section to Options. It panics if the YAML is invalid.
func WithConfig(yamlBytes []byte) Option {
	opt, err := optionFromConfigBytes(yamlBytes)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("async.WithConfig: %w", err))
		})
	}
	return opt
}

// WithConfigFile loads a YAML file and applies it to Options.
// It panics if the file cannot be read or YAML is invalid.
func WithConfigFile(path string) Option {
	b, err := os.ReadFile(path)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("async.WithConfigFile(%s): %w", path, err))
		})
	}
	return WithConfig(b)
}
