// Copyright © 2026 GITTE Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package schema

import "sync"

// defaultSchemaJSON is the built-in fallback schema used whenever the
// configured schema file is absent or malformed. It mirrors the attribute
// set the extractor targets, so a degraded registry still produces usable
// light records.
const defaultSchemaJSON = `{
  "global_design_level": {
    "type": {
      "type": "string",
      "enum": ["human", "cartoon", "object", "animal", "fantasy_figure"]
    },
    "cartoon": {
      "type": "object",
      "properties": {
        "animation": {"type": "string", "enum": ["animated", "static"]},
        "representation": {"type": "string"}
      }
    },
    "object_type": {"type": "string"},
    "animal_type": {"type": "string"},
    "fantasy_figure_type": {"type": "string"}
  },
  "middle_design_level": {
    "lifelikeness": {"type": "integer", "minimum": 1, "maximum": 7},
    "realism": {"type": "integer", "minimum": 1, "maximum": 7},
    "animation_level": {"type": "integer", "minimum": 1, "maximum": 7},
    "likeability": {"type": "integer", "minimum": 1, "maximum": 7},
    "competence": {"type": "integer", "minimum": 1, "maximum": 7},
    "role": {"type": "string"},
    "partial_representation": {"type": "string"},
    "role_model": {"type": "string"}
  },
  "detailed_level": {
    "age": {"type": ["integer", "string"]},
    "gender": {
      "type": "string",
      "enum": ["female", "male", "non-binary", "other"]
    },
    "clothing": {"type": "string"},
    "weight": {
      "type": "string",
      "enum": ["slim", "average", "heavy", "athletic", "petite"]
    },
    "other_features": {"type": "string"}
  }
}`

var (
	defaultOnce   sync.Once
	defaultSchema *Schema
)

// DefaultSchema parses the built-in schema once. The document is a
// compile-time constant, so parsing cannot fail at runtime.
func DefaultSchema() *Schema {
	defaultOnce.Do(func() {
		s, err := Parse([]byte(defaultSchemaJSON))
		if err != nil {
			panic("built-in default schema is invalid: " + err.Error())
		}
		defaultSchema = s
	})
	return defaultSchema
}
