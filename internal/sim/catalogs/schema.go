package catalogs

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const schemaBase = "https://beltworks.dev/schemas/"

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	files := []string{itemsFile, surfacesFile, buildingsName}
	for _, f := range files {
		b, err := schemaFS.ReadFile("schemas/" + schemaName(f))
		if err != nil {
			schemasErr = err
			return
		}
		if err := c.AddResource(schemaBase+schemaName(f), bytes.NewReader(b)); err != nil {
			schemasErr = fmt.Errorf("schema %s: %w", f, err)
			return
		}
	}
	schemas = map[string]*jsonschema.Schema{}
	for _, f := range files {
		s, err := c.Compile(schemaBase + schemaName(f))
		if err != nil {
			schemasErr = fmt.Errorf("schema %s: %w", f, err)
			return
		}
		schemas[f] = s
	}
}

func schemaName(file string) string {
	return strings.TrimSuffix(file, ".json") + ".schema.json"
}

// validate records schema violations as problems. Only undecodable JSON or a
// broken embedded schema is returned as an error.
func (c *Catalogs) validate(file string, raw []byte) error {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return schemasErr
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	err := schemas[file].Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("%s: %w", file, err)
	}
	for _, leaf := range leaves(ve) {
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		c.problem(file, loc, "%s", leaf.Message)
	}
	return nil
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	var out []*jsonschema.ValidationError
	stack := []*jsonschema.ValidationError{ve}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if len(top.Causes) == 0 {
			out = append(out, top)
			continue
		}
		for i := len(top.Causes) - 1; i >= 0; i-- {
			stack = append(stack, top.Causes[i])
		}
	}
	return out
}
