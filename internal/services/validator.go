package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/travelcrm/backend/internal/apperr"
)

// Request body schemas, one file per name under the schema directory
// (<name>.v1.json).
const (
	SchemaCounterpartyCreate = "counterparty_create"
	SchemaCostCreate         = "cost_create"
	SchemaObligationCreate   = "obligation_create"
	SchemaPaymentRecord      = "payment_record"
	SchemaRegister           = "register"
	SchemaLogin              = "login"
)

// ErrInvalidJSON is returned when the body is not JSON at all.
var ErrInvalidJSON = errors.New("invalid JSON body")

type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles every *.json schema in schemaDir (e.g. "schemas").
func NewValidator(ctx context.Context, schemaDir string) (*Validator, error) {
	_ = ctx
	entries, err := os.ReadDir(schemaDir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir %q: %w", schemaDir, err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	compiler.AssertFormat = true

	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		name = strings.TrimSuffix(name, ".v1")
		path := filepath.Join(schemaDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		id := "https://travelcrm.dev/schemas/" + name + ".json"
		if err := compiler.AddResource(id, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %q: %w", name, err)
		}
		if schemas[name], err = compiler.Compile(id); err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
	}
	if len(schemas) == 0 {
		return nil, fmt.Errorf("no schemas found in %q", schemaDir)
	}
	return &Validator{schemas: schemas}, nil
}

// Names lists the loaded schema names in sorted order.
func (v *Validator) Names() []string {
	out := make([]string, 0, len(v.schemas))
	for name := range v.schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Validate checks body against the named schema. A mismatch is returned as an
// *apperr.ValidationError keyed by request field.
func (v *Validator) Validate(ctx context.Context, name string, body json.RawMessage) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return ErrInvalidJSON
	}
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return fmt.Errorf("validate %s: %w", name, err)
	}
	verr := apperr.Validation("Validate")
	collectFieldErrors(verr, ve)
	if !verr.HasErrors() {
		verr.Add("body", ve.Message)
	}
	return verr
}

var missingProp = regexp.MustCompile(`'([^']+)'`)

// collectFieldErrors walks the cause tree and records each leaf error against
// the top-level property it concerns.
func collectFieldErrors(verr *apperr.ValidationError, ve *jsonschema.ValidationError) {
	if len(ve.Causes) > 0 {
		for _, c := range ve.Causes {
			collectFieldErrors(verr, c)
		}
		return
	}
	if strings.HasPrefix(ve.Message, "missing properties:") {
		for _, m := range missingProp.FindAllStringSubmatch(ve.Message, -1) {
			verr.Add(m[1], "The "+strings.ReplaceAll(m[1], "_", " ")+" field is required.")
		}
		return
	}
	if strings.HasPrefix(ve.Message, "additionalProperties") {
		for _, m := range missingProp.FindAllStringSubmatch(ve.Message, -1) {
			verr.Add(m[1], "The "+m[1]+" field is not allowed.")
		}
		return
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if i := strings.Index(field, "/"); i >= 0 {
		field = field[:i]
	}
	if field == "" {
		field = "body"
	}
	verr.Add(field, ve.Message)
}
