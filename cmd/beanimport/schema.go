package main

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samuellwn/beanimport/config"
	"github.com/samuellwn/beanimport/tools"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Emit JSON schemas for the import config document and the standalone import list",
	Run:   runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, args []string) {
	tools.HandleErr(writeSchema("schema.json", config.ImportDoc{}))
	tools.HandleErr(writeSchema("schema-import.json", config.ImportList{}))
}

func writeSchema(path string, v any) error {
	schema := typeSchema(reflect.TypeOf(v))
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling schema for %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0644)
}

// typeSchema walks t's fields via its yaml struct tags, producing a minimal JSON-schema-shaped
// description (type + properties, no $ref/definitions section). This stands in for the
// original's pydantic model_json_schema(), which has no direct Go equivalent in the established
// dependency set; see DESIGN.md for why this stays a small hand-rolled walker instead of pulling
// in a schema-generation library for one command.
func typeSchema(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return map[string]any{
			"type":  "array",
			"items": typeSchema(t.Elem()),
		}
	case reflect.Map:
		return map[string]any{
			"type":                 "object",
			"additionalProperties": typeSchema(t.Elem()),
		}
	case reflect.Struct:
		props := map[string]any{}
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name := yamlFieldName(field)
			if name == "-" {
				continue
			}
			props[name] = typeSchema(field.Type)
		}
		return map[string]any{"type": "object", "properties": props}
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Interface:
		return map[string]any{}
	default:
		return map[string]any{"type": "object"}
	}
}

func yamlFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("yaml")
	if tag == "" {
		return field.Name
	}
	name := strings.Split(tag, ",")[0]
	if name == "" {
		return field.Name
	}
	return name
}
