package resource

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadResourcesFromDir reads every *.yml declaration in dir and registers it.
// The resource name is the file name without extension.
func LoadResourcesFromDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return err
	}

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		decl, err := ParseResource(data)
		if err != nil {
			return fmt.Errorf("resource %s: %w", name, err)
		}
		Register(name, decl)
	}
	return nil
}

// ParseResource decodes one YAML declaration, rejecting unknown keys so that
// typos in declarations fail at startup instead of silently misconfiguring.
func ParseResource(data []byte) (*Resource, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var decl Resource
	if err := dec.Decode(&decl); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if decl.Table == "" {
		return nil, fmt.Errorf("declaration has no table")
	}
	if len(decl.Fields) == 0 {
		return nil, fmt.Errorf("declaration has no fields")
	}
	for _, a := range decl.Actions {
		if !validAction(a) {
			return nil, fmt.Errorf("unknown action %q", a)
		}
	}
	return &decl, nil
}

func validAction(a string) bool {
	switch a {
	case "index", "create", "show", "update", "destroy", "associated", "remoted", "count":
		return true
	}
	return false
}
