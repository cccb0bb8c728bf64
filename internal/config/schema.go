package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/config.schema.json
var schemaJSON []byte

const schemaURL = "config.schema.json"

var (
	compiledSchema *jsonschema.Schema
	schemaErr      error
	schemaOnce     sync.Once
)

func configSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

// checkSchema validates a decoded configuration document against the
// embedded schema. doc is whatever the TOML, JSON or YAML decoder produced;
// it is normalized through JSON so every format is checked alike. This
// catches misspelled keys, which the struct decoders silently ignore.
func checkSchema(doc any) error {
	schema, err := configSchema()
	if err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("normalize config document: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("normalize config document: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

// Schema returns the JSON schema of the configuration file.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}
