// Package schema validates untrusted action and world payloads against the
// embedded JSON schemas before they are decoded.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	actionSchema = "action.schema.json"
	worldSchema  = "world.schema.json"
)

var (
	actionValidator = mustCompile(actionSchema)
	worldValidator  = mustCompile(worldSchema)
)

func mustCompile(name string) *jsonschema.Schema {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("read schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	if err := c.AddResource(name, bytes.NewReader(data)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	s, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return s
}

// ValidateAction checks an encoded action envelope.
func ValidateAction(data []byte) error {
	return validate(actionValidator, "action", data)
}

// ValidateWorld checks an encoded world snapshot.
func ValidateWorld(data []byte) error {
	return validate(worldValidator, "world", data)
}

func validate(s *jsonschema.Schema, what string, data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("invalid %s json: %w", what, err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("invalid %s: %w", what, err)
	}
	return nil
}
