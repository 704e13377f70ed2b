package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mkessler/lohnjournal-tracker/internal/common"
	"github.com/mkessler/lohnjournal-tracker/internal/entity"
)

// layoutFile is the on-disk shape of a layout revision.
type layoutFile struct {
	Version      string      `json:"version"`
	IDField      string      `json:"id_field,omitempty"`
	RowTolerance float64     `json:"row_tolerance,omitempty"`
	Fields       []fieldSpec `json:"fields"`
}

type fieldSpec struct {
	Name string  `json:"name"`
	XMin float64 `json:"x_min"`
	XMax float64 `json:"x_max"`
	Kind string  `json:"kind"`
}

// buildLayoutJSONSchema returns the JSON-Schema a layout file must satisfy.
// Validating before decoding catches malformed configuration with a message
// pointing at the offending key instead of a zero-valued band.
func buildLayoutJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"version", "fields"},
		"properties": map[string]any{
			"version":       map[string]any{"type": "string", "minLength": 1},
			"id_field":      map[string]any{"type": "string", "minLength": 1},
			"row_tolerance": map[string]any{"type": "number", "exclusiveMinimum": 0.0},
			"fields": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"name", "x_min", "x_max", "kind"},
					"properties": map[string]any{
						"name":  map[string]any{"type": "string", "minLength": 1},
						"x_min": map[string]any{"type": "number", "minimum": 0.0},
						"x_max": map[string]any{"type": "number", "minimum": 0.0},
						"kind":  map[string]any{"type": "string", "enum": []string{"text", "integer", "currency"}},
					},
				},
			},
		},
	}
}

// validateAgainstSchema validates data against schemaMap.
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("layout.schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("layout.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal layout: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("layout does not match schema: %w", err)
	}
	return nil
}

// Load reads a layout revision from a JSON file, validates it against the
// embedded schema and builds the table. Overlapping bands are logged as
// configuration warnings, once per pair.
func Load(path string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.WrapError(err, "read layout file")
	}
	return Parse(data, logger)
}

// Parse builds a table from raw layout JSON.
func Parse(data []byte, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := validateAgainstSchema(buildLayoutJSONSchema(), data); err != nil {
		return nil, common.NewAppError("LAYOUT_INVALID", "layout file rejected", err)
	}

	var lf layoutFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return nil, common.WrapError(err, "decode layout file")
	}

	specs := make([]FieldSpec, len(lf.Fields))
	for i, f := range lf.Fields {
		specs[i] = FieldSpec{
			Name: f.Name,
			XMin: f.XMin,
			XMax: f.XMax,
			Kind: entity.FieldKind(f.Kind),
		}
	}

	t, err := New(lf.Version, lf.IDField, lf.RowTolerance, specs)
	if err != nil {
		return nil, err
	}
	for _, o := range t.Overlaps() {
		logger.Warn("layout bands overlap", "layout", t.Version(), "field_a", o.A, "field_b", o.B)
	}
	logger.Info("layout loaded", "layout", t.Version(), "fields", len(specs))
	return t, nil
}
