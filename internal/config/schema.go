package config

import (
	"encoding/json"
	"strings"

	cerrors "github.com/systmms/certrenew/internal/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// configSchema constrains the certrenew.yaml document. Only structural
// mistakes are caught here; cross-field rules (required credential
// fields per auth method, presence of the service block) live in
// resolveSpec where env overrides are already applied.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "serviceType": {"type": "string", "enum": ["cdn", "lb", "slb"]},
    "cloudProvider": {"type": "string", "minLength": 1},
    "authMethod": {
      "type": "string",
      "enum": ["access_key", "session_token", "assume_role", "web_identity", "platform", "env"]
    },
    "region": {"type": "string"},
    "forceUpdate": {"type": "boolean"},
    "credentials": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "accessKeyId": {"type": "string"},
        "accessKeySecret": {"type": "string"},
        "sessionToken": {"type": "string"},
        "roleArn": {"type": "string"},
        "roleSessionName": {"type": "string"},
        "oidcTokenFile": {"type": "string"}
      }
    },
    "cdn": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "domainNames": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "region": {"type": "string"},
        "certFile": {"type": "string"},
        "keyFile": {"type": "string"}
      }
    },
    "lb": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "instanceIds": {"type": "array", "items": {"type": "string", "minLength": 1}},
        "listenerPort": {"type": "integer", "minimum": 1, "maximum": 65535},
        "region": {"type": "string"},
        "certFile": {"type": "string"},
        "keyFile": {"type": "string"}
      }
    },
    "webhook": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "url": {"type": "string"},
        "timeoutSeconds": {"type": "integer", "minimum": 1},
        "retryAttempts": {"type": "integer", "minimum": 0},
        "retryDelaySeconds": {"type": "number", "minimum": 0},
        "enabledEvents": {"type": "array", "items": {"type": "string"}}
      }
    },
    "sdk": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "connectTimeoutMs": {"type": "integer", "minimum": 1},
        "readTimeoutMs": {"type": "integer", "minimum": 1},
        "maxAttempts": {"type": "integer", "minimum": 1}
      }
    }
  }
}`

// validateSchema checks raw YAML config bytes against configSchema.
func validateSchema(yamlData []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(yamlData, &doc); err != nil {
		return cerrors.ConfigurationError{
			Field:      "config",
			Message:    "invalid YAML: " + err.Error(),
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}
	if doc == nil {
		return nil
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return cerrors.ConfigurationError{
			Field:   "config",
			Message: "cannot convert config for validation: " + err.Error(),
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(configSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return cerrors.ConfigurationError{
			Field:   "config",
			Message: "schema validation error: " + err.Error(),
		}
	}

	if !result.Valid() {
		var messages []string
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return cerrors.ConfigurationError{
			Field:      "config",
			Message:    "schema validation failed:\n  - " + strings.Join(messages, "\n  - "),
			Suggestion: "Compare your config file against the documented certrenew.yaml format",
		}
	}

	return nil
}
