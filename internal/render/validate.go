package render

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"sigs.k8s.io/yaml"
)

const schemaURL = "https://github.com/wolfeidau/buildcfg/schema/buildoptions.schema.json"

// ErrInvalidDocument wraps schema violations reported by Validate.
var ErrInvalidDocument = errors.New("build options document does not match schema")

//go:embed schema/buildoptions.schema.json
var schemaJSON []byte

var (
	schemaOnce     sync.Once
	schemaErr      error
	compiledSchema *jsonschema.Schema
)

// Schema returns the raw JSON schema of the build options contract.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

// Validate checks a JSON or YAML build options document against the schema,
// including the rule that exactly one of the development and production
// branches is populated.
func Validate(doc []byte) error {
	sch, err := loadSchema()
	if err != nil {
		return err
	}

	// JSON is valid YAML so one conversion covers both inputs
	jsonData, err := yaml.YAMLToJSON(doc)
	if err != nil {
		return fmt.Errorf("convert yaml to json: %w", err)
	}

	var document any
	if err := json.Unmarshal(jsonData, &document); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	if err := sch.Validate(document); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return nil
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
			schemaErr = fmt.Errorf("failed to load schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}
