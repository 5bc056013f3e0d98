// Package analyzer infers structural schemas from decoded JSON documents.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mcncl/castor/internal/formats"
	"github.com/mcncl/castor/internal/models"
)

// Infer returns the schema of a whole JSON document.
//
// The shape of the result depends on the root value:
//   - object: *models.ObjectSchema
//   - array: models.Sequence holding the inferred schema of every element
//   - anything else: models.TypeName
//
// Arrays are treated differently depending on where they appear. A root array
// is inferred element by element, while an array nested under an object key
// is described by its first element only. Both behaviors are relied upon by
// consumers of the rendered output and are kept as they are.
//
// Infer never modifies v and keeps no state between calls.
func Infer(v models.JSONValue) models.Result {
	switch val := v.(type) {
	case models.JSONObject:
		return inferObject(val)
	case models.JSONArray:
		seq := make(models.Sequence, len(val))
		for i, elem := range val {
			seq[i] = Infer(elem)
		}
		return seq
	default:
		return models.TypeName(typeName(val))
	}
}

// InferDocument is Infer applied to the root of a parsed document.
func InferDocument(ir models.IntermediateRepresentation) models.Result {
	return Infer(ir.Root)
}

func inferObject(obj models.JSONObject) *models.ObjectSchema {
	schema := &models.ObjectSchema{Properties: make([]models.Property, 0, len(obj))}
	for _, m := range obj {
		schema.Properties = append(schema.Properties, models.Property{Name: m.Key, Schema: node(m.Value)})
	}
	return schema
}

// node describes a value found under an object key or as a sampled array item.
func node(v models.JSONValue) models.Node {
	switch val := v.(type) {
	case models.JSONObject:
		return inferObject(val)
	case models.JSONArray:
		if len(val) == 0 {
			return &models.ArraySchema{}
		}
		// First-element sampling: the remaining elements are not inspected.
		return &models.ArraySchema{Items: node(val[0])}
	case string:
		p := &models.Primitive{TypeName: models.TypeStr}
		if f, ok := formats.Classify(val); ok {
			p.Format = f
		}
		return p
	default:
		return &models.Primitive{TypeName: typeName(val)}
	}
}

// typeName reports the lower-case kind name of a scalar JSON value.
func typeName(v models.JSONValue) string {
	switch val := v.(type) {
	case nil:
		return models.TypeNull
	case bool:
		return models.TypeBool
	case string:
		return models.TypeStr
	case json.Number:
		return numberTypeName(string(val))
	case float64, float32:
		return models.TypeFloat
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return models.TypeInt
	default:
		return strings.ToLower(fmt.Sprintf("%T", val))
	}
}

// numberTypeName returns int for literals without a fraction or exponent.
func numberTypeName(lit string) string {
	if strings.ContainsAny(lit, ".eE") {
		return models.TypeFloat
	}
	return models.TypeInt
}
