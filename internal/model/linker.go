package model

import (
	"fmt"
	"strings"
	"unicode"
)

// Link resolves relation targets and fills default keys.
//
// belongs_to: fk = <relation>_id on the owner, pk = target primary key.
// has_one/has_many: fk = <singular owner>_id on the target, pk = owner
// primary key.
func (reg Registry) Link() error {
	for name, res := range reg {
		for relName, rel := range res.Relations {
			if rel == nil {
				return fmt.Errorf("relation '%s.%s' is empty", name, relName)
			}
			if strings.Contains(relName, ".") {
				return fmt.Errorf("relation name '%s.%s' must not contain dots", name, relName)
			}
			if !allowedRelationTypes[rel.Type] {
				return fmt.Errorf("relation '%s.%s' must have valid type (has_many, has_one, belongs_to), got '%s'", name, relName, rel.Type)
			}
			target, ok := reg[rel.Model]
			if !ok {
				return fmt.Errorf("invalid relation: resource '%s' not found in '%s.%s'", rel.Model, name, relName)
			}
			rel.ref = target

			switch rel.Type {
			case BelongsTo:
				if rel.FK == "" {
					rel.FK = toSnakeCase(relName) + "_id"
				}
				if rel.PK == "" {
					rel.PK = target.GetPrimaryKey()
				}
			default:
				if rel.FK == "" {
					rel.FK = singular(toSnakeCase(name)) + "_id"
				}
				if rel.PK == "" {
					rel.PK = res.GetPrimaryKey()
				}
			}
		}
	}
	return nil
}

func toSnakeCase(s string) string {
	var result []rune
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result = append(result, '_')
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// singular strips a plural "s"; anything smarter belongs in the fk setting.
func singular(s string) string {
	switch {
	case strings.HasSuffix(s, "ies") && len(s) > 3:
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(s, "ss"):
		return s
	case strings.HasSuffix(s, "s") && len(s) > 1:
		return s[:len(s)-1]
	}
	return s
}
