package alb

import (
	"fmt"
	"os"

	"github.com/aura-studio/offline/async"
	"github.com/aura-studio/offline/runner"
	yaml "gopkg.in/yaml.v2"
)

type yamlConfig struct {
	ALB struct {
		Address         string `yaml:"address"`
		Stage           string `yaml:"stage"`
		NoPrependStage  bool   `yaml:"noPrependStage"`
		Cert            string `yaml:"cert"`
		Key             string `yaml:"key"`
		Cors            bool   `yaml:"cors"`
		Verbose         bool   `yaml:"verbose"`
		HideStackTraces bool   `yaml:"hideStackTraces"`
		DeadLetterQueue string `yaml:"deadLetterQueue"`
		Redrive         bool   `yaml:"redrive"`
	} `yaml:"alb"`
	Functions []struct {
		Key    string `yaml:"key"`
		Events []struct {
			Method string `yaml:"method"`
			Path   string `yaml:"path"`
		} `yaml:"events"`
	} `yaml:"functions"`
}

func optionFromConfigBytes(b []byte) (Option, error) {
	var cfg yamlConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	return OptionFunc(func(o *Options) {
		if cfg.ALB.Address != "" {
			o.Address = cfg.ALB.Address
		}
		if cfg.ALB.Stage != "" {
			o.Stage = cfg.ALB.Stage
		}
		o.PrependStage = !cfg.ALB.NoPrependStage
		if cfg.ALB.Cert != "" && cfg.ALB.Key != "" {
			o.CertFile = cfg.ALB.Cert
			o.KeyFile = cfg.ALB.Key
		}
		o.CorsMode = cfg.ALB.Cors
		o.Verbose = cfg.ALB.Verbose
		o.HideStackTraces = cfg.ALB.HideStackTraces
		if cfg.ALB.DeadLetterQueue != "" {
			o.DeadLetterQueue = cfg.ALB.DeadLetterQueue
		}
		o.Redrive = cfg.ALB.Redrive

		for _, fn := range cfg.Functions {
			if fn.Key == "" {
				continue
			}
			f := &Function{Key: fn.Key}
			for _, ev := range fn.Events {
				if ev.Path == "" {
					continue
				}
				f.Triggers = append(f.Triggers, Trigger{Method: ev.Method, Path: ev.Path})
			}
			o.Functions = append(o.Functions, f)
		}
	}), nil
}

// WithConfig parses YAML bytes following offline.yaml structure and applies
// it to Options. It panics if the YAML is invalid.
func WithConfig(yamlBytes []byte) Option {
	opt, err := optionFromConfigBytes(yamlBytes)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("alb.WithConfig: %w", err))
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
			panic(fmt.Errorf("alb.WithConfigFile(%s): %w", path, err))
		})
	}
	return WithConfig(b)
}

type serveConfigOption struct {
	albOpt    Option
	runnerOpt runner.Option
	asyncOpt  async.Option
}

// WithServeConfig parses a combined YAML document holding the alb, functions,
// runner and async sections, applying each section to its owner. Sections
// that are absent leave the owner's defaults untouched.
func WithServeConfig(yamlBytes []byte) ServeOption {
	return serveConfigOption{
		albOpt:    WithConfig(yamlBytes),
		runnerOpt: runner.WithConfig(yamlBytes),
		asyncOpt:  async.WithConfig(yamlBytes),
	}
}

// WithServeConfigFile loads a combined YAML file as a ServeOption.
// It panics if the file cannot be read or YAML is invalid.
func WithServeConfigFile(path string) ServeOption {
	b, err := os.ReadFile(path)
	if err != nil {
		return serveConfigOption{albOpt: OptionFunc(func(*Options) {
			panic(fmt.Errorf("alb.WithServeConfigFile(%s): %w", path, err))
		})}
	}
	return WithServeConfig(b)
}
