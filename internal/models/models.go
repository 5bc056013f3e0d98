package models

import (
	"github.com/goccy/go-json"
)

// JSONValue is a generic type to represent any JSON value.
// This can be nil, bool, json.Number, string, JSONObject or JSONArray.
type JSONValue interface{}

// Member is a single key/value pair of a JSON object.
type Member struct {
	Key   string
	Value JSONValue
}

// JSONObject represents a JSON object. Members keep the order in which the
// keys appeared in the source document and keys are unique.
type JSONObject []Member

// JSONArray represents a JSON array, which is a slice of JSONValues.
type JSONArray []JSONValue

// Number is the representation used for every JSON number.
type Number = json.Number

// IntermediateRepresentation holds the decoded JSON document handed to the analyzer.
type IntermediateRepresentation struct {
	Root JSONValue
}
