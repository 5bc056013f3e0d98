package formatter

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/mcncl/castor/internal/errors"
	"github.com/mcncl/castor/internal/models"
)

// DefaultIndent is the indentation used by Render.
const DefaultIndent = "  "

// Formatter turns inferred schemas into pretty printed JSON text
type Formatter struct {
	indent string
}

// NewFormatter creates a new Formatter instance using DefaultIndent
func NewFormatter() *Formatter {
	return &Formatter{indent: DefaultIndent}
}

// NewFormatterWithIndent creates a Formatter that indents with the given string
func NewFormatterWithIndent(indent string) *Formatter {
	return &Formatter{indent: indent}
}

// Format renders r as indented JSON. Object properties are written in the
// order they were inferred in; nothing is sorted.
//
// The layout is:
//
//	object    {"type": "object", "properties": {...}}
//	array     {"type": "array", "items": ...}, items omitted for empty arrays
//	primitive {"type": "str", "format": "email"}, format omitted when unknown
//	sequence  [...] for a root array
//	type name "int" for a root scalar
func (f *Formatter) Format(r models.Result) (string, error) {
	var compact bytes.Buffer
	if err := appendResult(&compact, r); err != nil {
		return "", errors.NewRenderError("failed to encode schema", err)
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", f.indent); err != nil {
		return "", errors.NewRenderError("failed to indent schema", err)
	}
	return out.String(), nil
}

// Render formats r with the default formatter. Results produced by the
// analyzer always render; anything else renders as JSON null.
func Render(r models.Result) string {
	s, err := NewFormatter().Format(r)
	if err != nil {
		return "null"
	}
	return s
}

func appendResult(buf *bytes.Buffer, r models.Result) error {
	switch v := r.(type) {
	case *models.ObjectSchema:
		return appendObject(buf, v)
	case models.Sequence:
		buf.WriteByte('[')
		for i, elem := range v {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendResult(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case models.TypeName:
		return appendString(buf, string(v))
	default:
		return fmt.Errorf("unsupported schema result %T", r)
	}
}

func appendNode(buf *bytes.Buffer, n models.Node) error {
	switch v := n.(type) {
	case *models.ObjectSchema:
		return appendObject(buf, v)
	case *models.ArraySchema:
		buf.WriteString(`{"type":"array"`)
		if v.Items != nil {
			buf.WriteString(`,"items":`)
			if err := appendNode(buf, v.Items); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case *models.Primitive:
		buf.WriteString(`{"type":`)
		if err := appendString(buf, v.TypeName); err != nil {
			return err
		}
		if v.Format != "" {
			buf.WriteString(`,"format":`)
			if err := appendString(buf, string(v.Format)); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("unsupported schema node %T", n)
	}
}

func appendObject(buf *bytes.Buffer, o *models.ObjectSchema) error {
	buf.WriteString(`{"type":"object","properties":{`)
	for i, p := range o.Properties {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := appendString(buf, p.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := appendNode(buf, p.Schema); err != nil {
			return fmt.Errorf("property %q: %w", p.Name, err)
		}
	}
	buf.WriteString(`}}`)
	return nil
}

func appendString(buf *bytes.Buffer, s string) error {
	b, err := json.MarshalNoEscape(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
