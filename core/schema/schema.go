// Package schema validates JSON documents against a set of JSON schemas identified
// by their $id.
package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/goccy/go-json"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError lists why a document does not match a schema
type ValidationError struct {
	SchemaID string
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid document: " + strings.Join(e.Problems, "; ")
}

// Validator holds compiled schemas by $id
type Validator struct {
	schemas map[string]*gojsonschema.Schema
}

// readSchemas returns the contents of all json files in dir of fsys
func readSchemas(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read schema dir %s: %w", dir, err)
	}
	var docs []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("cannot read schema %s: %w", e.Name(), err)
		}
		docs = append(docs, string(data))
	}
	return docs, nil
}

// NewValidatorFromFS creates a Validator from the json files in the root of fsys.
// Files in refs/ can be referenced by them but are not validated against directly.
// A missing refs/ directory is not an error.
func NewValidatorFromFS(fsys fs.FS) (*Validator, error) {
	schemas, err := readSchemas(fsys, ".")
	if err != nil {
		return nil, err
	}
	refs, err := readSchemas(fsys, "refs")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return NewValidator(schemas, refs)
}

// NewValidator compiles schemas, which may reference any of refs by $id. Top level
// schemas cannot reference each other.
func NewValidator(schemas []string, refs []string) (*Validator, error) {
	v := &Validator{schemas: make(map[string]*gojsonschema.Schema, len(schemas))}
	for _, doc := range schemas {
		var header struct {
			ID string `json:"$id"`
		}
		if err := json.Unmarshal([]byte(doc), &header); err != nil {
			return nil, fmt.Errorf("cannot parse schema: %w", err)
		}
		if header.ID == "" {
			return nil, fmt.Errorf("schema without $id: %s", doc)
		}
		if _, ok := v.schemas[header.ID]; ok {
			return nil, fmt.Errorf("duplicate schema %s", header.ID)
		}

		// a loader compiles one schema, so the refs are added for each
		sl := gojsonschema.NewSchemaLoader()
		for _, ref := range refs {
			if err := sl.AddSchemas(gojsonschema.NewStringLoader(ref)); err != nil {
				return nil, fmt.Errorf("cannot add ref to %s: %w", header.ID, err)
			}
		}
		compiled, err := sl.Compile(gojsonschema.NewStringLoader(doc))
		if err != nil {
			return nil, fmt.Errorf("cannot compile schema %s: %w", header.ID, err)
		}
		v.schemas[header.ID] = compiled
	}
	return v, nil
}

// HasSchema returns true if schemaID is known
func (v *Validator) HasSchema(schemaID string) bool {
	_, ok := v.schemas[schemaID]
	return ok
}

// ValidateBytes validates the document data against schemaID. A mismatch is
// returned as *ValidationError.
func (v *Validator) ValidateBytes(data []byte, schemaID string) error {
	s, ok := v.schemas[schemaID]
	if !ok {
		return fmt.Errorf("unknown schema %s", schemaID)
	}
	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		// not a JSON document at all
		return &ValidationError{SchemaID: schemaID, Problems: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}
	verr := &ValidationError{SchemaID: schemaID}
	for _, re := range result.Errors() {
		verr.Problems = append(verr.Problems, re.String())
	}
	return verr
}
