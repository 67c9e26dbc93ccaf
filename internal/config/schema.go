// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "project_id": {"type": "string"},
    "project_type": {"type": "string"},
    "scan_mode": {"enum": ["staged", "full"]},
    "enforcement": {"enum": ["enabled", "disabled"]},
    "features": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "reporting": {"type": "boolean"},
        "ai_escalation": {"type": "boolean"}
      }
    },
    "scan": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "max_file_size_bytes": {"type": "integer", "minimum": 1},
        "workers": {"type": "integer", "minimum": 0},
        "exclude_patterns": {"type": "array", "items": {"type": "string"}}
      }
    },
    "severity_rules": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "block": {"type": "array", "items": {"type": "string"}},
        "warn": {"type": "array", "items": {"type": "string"}},
        "allow": {"type": "array", "items": {"type": "string"}}
      }
    },
    "reviewer": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "endpoint_url": {"type": "string"},
        "timeout": {"type": "string", "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|ms|s|m|h))+$"},
        "api_key_env": {"type": "string"},
        "batch_size": {"type": "integer", "minimum": 1}
      }
    },
    "remediation": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "gitignore_entries": {"type": "array", "items": {"type": "string"}}
      }
    },
    "profiles": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "scan_mode": {"enum": ["staged", "full"]},
          "format": {"enum": ["text", "json", "yaml", "sarif"]},
          "no_color": {"type": "boolean"},
          "description": {"type": "string"}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(configSchema)

// SchemaError lists every schema violation in a config document
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "invalid configuration: " + strings.Join(e.Violations, "; ")
}

// validateDocument checks raw YAML/JSON against the closed schema
func validateDocument(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return &SchemaError{Violations: violations}
}
