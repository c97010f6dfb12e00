package alb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigCandidates returns relative paths that will be checked
// (in order) when searching for a default offline config.
func DefaultConfigCandidates() []string {
	return []string{
		"offline.yaml",
		"offline.yml",
		filepath.FromSlash("offline/offline.yaml"),
		filepath.FromSlash("offline/offline.yml"),
	}
}

// FindDefaultConfigFile searches for an offline config file in a small set
// of well-known locations (CWD then executable directory).
func FindDefaultConfigFile() (string, error) {
	candidates := DefaultConfigCandidates()

	dirs := []string{"."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	for _, dir := range dirs {
		for _, rel := range candidates {
			p := rel
			if dir != "." {
				p = filepath.Join(dir, rel)
			}
			if st, err := os.Stat(p); err == nil && !st.IsDir() {
				return p, nil
			}
		}
	}

	return "", errors.New("offline config not found (expected offline.yaml or offline/offline.yaml)")
}

// WithDefaultConfig finds and loads the default offline config file.
// It panics if the file cannot be found or read.
func WithDefaultConfig() Option {
	p, err := FindDefaultConfigFile()
	if err != nil {
		return OptionFunc(func(*Options) {
			panic(fmt.Errorf("alb.WithDefaultConfig: %w", err))
		})
	}
	return WithConfigFile(p)
}

// WithDefaultServeConfig finds and loads the default offline config file as
// a ServeOption, applying its runner section as well.
func WithDefaultServeConfig() ServeOption {
	p, err := FindDefaultConfigFile()
	if err != nil {
		return serveConfigOption{albOpt: OptionFunc(func(*Options) {
			panic(fmt.Errorf("alb.WithDefaultServeConfig: %w", err))
		})}
	}
	return WithServeConfigFile(p)
}
