package config

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Load reads and parses the top-level import config document at path.
func Load(fs afero.Fs, path string) (*ImportDoc, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var doc ImportDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &doc, nil
}

// ResolveImports walks doc.Imports, recursively resolving any IncludeRule against files under
// workdir, and returns the flattened list of ImportRules in encounter order. Grounded on
// includes.py's load_includes/resolve_includes, generalized to take an afero.Fs so tests can
// supply an in-memory filesystem instead of touching disk.
func ResolveImports(fs afero.Fs, workdir string, entries []ImportEntry) ([]ImportRule, error) {
	var rules []ImportRule

	for _, entry := range entries {
		if entry.Rule != nil {
			rules = append(rules, *entry.Rule)
			continue
		}

		for _, includePath := range entry.Include.Include {
			resolved, err := loadIncludes(fs, workdir, filepath.Join(workdir, includePath))
			if err != nil {
				return nil, err
			}
			rules = append(rules, resolved...)
		}
	}

	return rules, nil
}

func loadIncludes(fs afero.Fs, workdir, includePath string) ([]ImportRule, error) {
	data, err := afero.ReadFile(fs, includePath)
	if err != nil {
		return nil, fmt.Errorf("config: reading include %s: %w", includePath, err)
	}

	var entries []ImportEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("config: parsing include %s: %w", includePath, err)
	}

	return ResolveImports(fs, workdir, entries)
}
