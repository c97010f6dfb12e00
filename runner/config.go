package runner

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

type yamlConfig struct {
	Runner struct {
		Plugins struct {
			Dir   string `yaml:"dir"`
			Watch bool   `yaml:"watch"`
		} `yaml:"plugins"`
		Warehouse struct {
			Local  string `yaml:"local"`
			Remote string `yaml:"remote"`
		} `yaml:"warehouse"`
		Package struct {
			Namespace      string `yaml:"namespace"`
			DefaultVersion string `yaml:"defaultVersion"`
		} `yaml:"package"`
		Tunnels []struct {
			Key     string `yaml:"key"`
			Package string `yaml:"package"`
			Version string `yaml:"version"`
			Route   string `yaml:"route"`
		} `yaml:"tunnels"`
	} `yaml:"runner"`
}

func optionFromConfigBytes(b []byte) (Option, error) {
	var cfg yamlConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	return OptionFunc(func(o *Options) {
		o.PluginDir = cfg.Runner.Plugins.Dir
		o.WatchPlugins = cfg.Runner.Plugins.Watch

		o.LocalWarehouse = cfg.Runner.Warehouse.Local
		o.RemoteWarehouse = cfg.Runner.Warehouse.Remote

		o.PackageNamespace = cfg.Runner.Package.Namespace
		o.PackageDefaultVersion = cfg.Runner.Package.DefaultVersion

		for _, t := range cfg.Runner.Tunnels {
			if t.Key == "" || t.Package == "" {
				continue
			}
			o.TunnelFunctions = append(o.TunnelFunctions, &TunnelFunction{
				Key:     t.Key,
				Package: t.Package,
				Version: t.Version,
				Route:   t.Route,
			})
		}
	}), nil
}

// WithConfig parses YAML bytes following runner.yaml structure and applies
// it to Options. It panics if the YAML is invalid.
func WithConfig(yamlBytes []byte) Option {
	opt, err := optionFromConfigBytes(yamlBytes)
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("runner.WithConfig: %w", err))
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
			panic(fmt.Errorf("runner.WithConfigFile(%s): %w", path, err))
		})
	}
	return WithConfig(b)
}
