package model

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"CrudAPI/internal/route"
)

// Разрешённые ключи для объектов
var allowedResourceKeys = map[string]bool{
	"table":          true,
	"primary_key":    true,
	"columns":        true,
	"relations":      true,
	"many_relations": true,
	"only":           true,
	"exclude":        true,
	"id_type":        true,
}

var allowedRelationKeys = map[string]bool{
	"type":      true,
	"model":     true,
	"fk":        true,
	"pk":        true,
	"max_depth": true,
}

var allowedRelationTypes = map[string]bool{
	HasMany:   true,
	HasOne:    true,
	BelongsTo: true,
}

var allowedRouteValues = map[string]bool{
	string(route.ReadAll): true,
	string(route.ReadOne): true,
	string(route.Create):  true,
	string(route.Update):  true,
	string(route.Delete):  true,
}

var allowedIDTypes = map[string]bool{
	"auto":   true,
	"string": true,
}

func validateYAMLNode(node *yaml.Node, context string) error {
	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := validateYAMLNode(child, "resource"); err != nil {
				return err
			}
		}

	case yaml.MappingNode:
		var allowedKeys map[string]bool
		switch context {
		case "resource":
			allowedKeys = allowedResourceKeys
		case "relation":
			allowedKeys = allowedRelationKeys
		case "relations-map":
			allowedKeys = nil // имена связей свободные
		default:
			return fmt.Errorf("unexpected mapping in %s", context)
		}

		for i := 0; i < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valNode := node.Content[i+1]
			key := keyNode.Value

			if allowedKeys != nil && !allowedKeys[key] {
				return fmt.Errorf("unknown key '%s' in %s", key, context)
			}

			if context == "relation" && key == "type" && !allowedRelationTypes[valNode.Value] {
				return fmt.Errorf("unknown relation type '%s'", valNode.Value)
			}
			if context == "resource" && key == "id_type" && !allowedIDTypes[valNode.Value] {
				return fmt.Errorf("unknown id_type '%s'", valNode.Value)
			}

			var next string
			switch {
			case context == "resource" && key == "relations":
				next = "relations-map"
			case context == "relations-map":
				next = "relation"
			case context == "resource" && (key == "only" || key == "exclude"):
				next = "routes-seq"
			case context == "resource" && (key == "columns" || key == "many_relations"):
				next = "string-seq"
			default:
				next = "scalar"
			}

			if err := validateYAMLNode(valNode, next); err != nil {
				return err
			}
		}

	case yaml.SequenceNode:
		if context != "routes-seq" && context != "string-seq" {
			return fmt.Errorf("unexpected list in %s", context)
		}
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("%s items must be strings", context)
			}
			if context == "routes-seq" && !allowedRouteValues[item.Value] {
				return fmt.Errorf("unknown route '%s'", item.Value)
			}
		}

	case yaml.ScalarNode:
		// скаляры проверяются при разборе MappingNode
	}

	return nil
}
