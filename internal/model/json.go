package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// registrySchema is the persisted model contract. The registry is a
// plain object keyed by class name so any JSON consumer can read it
// without knowing this package's types.
const registrySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "pyuml class registry",
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["attributes", "methods", "parent_classes"],
    "properties": {
      "attributes": {
        "type": "object",
        "additionalProperties": {"type": "string"}
      },
      "methods": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["name", "args", "decorators", "return_type"],
          "properties": {
            "name": {"type": "string"},
            "args": {"type": "array", "items": {"type": "string"}},
            "decorators": {"type": "array", "items": {"type": "string"}},
            "return_type": {"type": "string"}
          }
        }
      },
      "parent_classes": {
        "type": "array",
        "items": {"type": "string"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func registryJSONSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("registry.schema.json", strings.NewReader(registrySchema)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile("registry.schema.json")
	})
	return compiledSchema, schemaErr
}

// MarshalJSON renders attributes as a JSON object whose key order is
// the insertion order. The standard map encoding would sort keys.
func (a *Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range a.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.labels[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object token by token so the document's key
// order becomes the insertion order.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("attributes: expected object, got %v", tok)
	}
	a.names = nil
	a.labels = make(map[string]string)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("attributes: unexpected key token %v", keyTok)
		}
		var label string
		if err := dec.Decode(&label); err != nil {
			return fmt.Errorf("attributes: %q must map to a string: %w", key, err)
		}
		a.Set(key, label)
	}
	_, err = dec.Token()
	return err
}

func (r *Registry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.classes[name])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Registry) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("registry: expected object, got %v", tok)
	}
	r.names = nil
	r.classes = make(map[string]*ClassModel)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("registry: unexpected key token %v", keyTok)
		}
		c := NewClassModel()
		if err := dec.Decode(c); err != nil {
			return fmt.Errorf("registry: class %q: %w", key, err)
		}
		r.Put(key, c)
	}
	_, err = dec.Token()
	return err
}

// SaveJSON validates the registry, checks it against the persisted
// schema, and writes it as indented JSON. Validation failures abort
// before anything is written so a bad model never leaves a partial
// file behind.
func SaveJSON(path string, reg *Registry) error {
	if reg == nil {
		return &ShapeError{Reason: "registry is nil"}
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	if err := validateWithSchema(reg); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	b, err := json.MarshalIndent(reg, "", "    ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return os.WriteFile(path, b, 0644)
}

// LoadJSON reads a registry previously written by SaveJSON, restoring
// class, attribute, and method order from the document. The raw
// document is checked against the schema before any of it is decoded
// into model types.
func LoadJSON(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", path, err)
	}
	schema, err := registryJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to compile model schema: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return nil, &ShapeError{Reason: fmt.Sprintf("model %s rejected by schema: %v", path, err)}
	}

	reg := NewRegistry()
	if err := json.Unmarshal(b, reg); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func validateWithSchema(reg *Registry) error {
	schema, err := registryJSONSchema()
	if err != nil {
		return fmt.Errorf("failed to compile model schema: %w", err)
	}
	raw, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to marshal model for schema validation: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to normalize model for schema validation: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("model schema validation failed: %w", err)
	}
	return nil
}
