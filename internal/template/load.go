package template

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed template.schema.json
var schemaJSON []byte

const schemaURL = "mem://schemas/template.json"

// DefaultRoads is the road density used when a template does not declare one.
const DefaultRoads = 100

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add template schema: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile template schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Parse validates JSON template data against the schema and the semantic
// rules, and decodes it.
func Parse(data []byte) (*Template, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	doc = normalizeEmpty(doc)

	s, err := compiledSchema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(doc); err != nil {
		return nil, fmt.Errorf("template schema: %w", err)
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	t := &Template{Roads: DefaultRoads}
	if err := json.Unmarshal(normalized, t); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// objectKeys name the template fields that hold objects rather than lists.
var objectKeys = map[string]bool{
	"mines":    true,
	"stacks":   true,
	"treasure": true,
	"guard":    true,
	"value":    true,
}

// normalizeEmpty turns empty arrays under object-valued keys into empty
// objects. Lua has a single table type, so `mines = {}` arrives as [].
func normalizeEmpty(v interface{}) interface{} {
	switch x := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, val := range x {
			if arr, ok := val.([]interface{}); ok && len(arr) == 0 && objectKeys[k] {
				out[k] = map[string]interface{}{}
				continue
			}
			out[k] = normalizeEmpty(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, val := range x {
			out[i] = normalizeEmpty(val)
		}
		return out
	default:
		return v
	}
}

// LoadFile reads a template from disk. Files ending in .lua are run through
// the Lua front-end with size passed to getTemplate; everything else is JSON.
func LoadFile(path string, size int) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".lua") {
		return LoadLua(string(data), size)
	}
	return Parse(data)
}
