package models

import "github.com/mcncl/castor/internal/formats"

// Type names reported for primitive JSON values.
const (
	TypeNull  = "null"
	TypeBool  = "bool"
	TypeInt   = "int"
	TypeFloat = "float"
	TypeStr   = "str"
)

// Node is a schema describing a value nested inside an object.
// It is one of *ObjectSchema, *ArraySchema or *Primitive.
type Node interface {
	isNode()
}

// Result is what inference returns for a whole document.
// It is one of *ObjectSchema, Sequence or TypeName.
type Result interface {
	isResult()
}

// Property is a named entry of an ObjectSchema.
type Property struct {
	Name   string
	Schema Node
}

// ObjectSchema mirrors a JSON object. Properties follow the object's key order.
type ObjectSchema struct {
	Properties []Property
}

// Property returns the schema of the named property.
func (o *ObjectSchema) Property(name string) (Node, bool) {
	for _, p := range o.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// ArraySchema describes an array from its first element. Items is nil when
// the source array was empty.
type ArraySchema struct {
	Items Node
}

// Primitive describes a scalar. Format is only set for strings.
type Primitive struct {
	TypeName string
	Format   formats.Format
}

// Sequence is the result for a top-level array: one Result per element.
type Sequence []Result

// TypeName is the result for a top-level scalar.
type TypeName string

func (*ObjectSchema) isNode() {}
func (*ArraySchema) isNode()  {}
func (*Primitive) isNode()    {}

func (*ObjectSchema) isResult() {}
func (Sequence) isResult()      {}
func (TypeName) isResult()      {}
