package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"CrudAPI/internal/logger"
)

// LoadResourcesFromDir reads every *.yml / *.yaml file of dir into a
// Registry. The file name is the resource name.
func LoadResourcesFromDir(dir string) (Registry, error) {
	var files []string
	for _, pattern := range []string{"*.yml", "*.yaml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)

	reg := Registry{}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if _, dup := reg[name]; dup {
			return nil, fmt.Errorf("duplicate resource %q in %s", name, dir)
		}
		res, err := ParseResource(name, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		reg[name] = res
		logger.Info("resource_loaded", map[string]any{
			"resource":  name,
			"table":     res.Table,
			"relations": len(res.Relations),
		})
	}
	return reg, nil
}

// ParseResource validates and decodes one resource document.
func ParseResource(name string, data []byte) (*Resource, error) {
	// 1. Разбираем в yaml.Node для структурной валидации
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("empty YAML")
	}
	if err := validateYAMLNode(root.Content[0], "resource"); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// 2. Теперь уже Decode в ресурс
	var res Resource
	if err := root.Decode(&res); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}
	res.Name = name
	if res.Table == "" {
		res.Table = name
	}
	if res.IDType == "" {
		res.IDType = "auto"
	}
	return &res, nil
}
