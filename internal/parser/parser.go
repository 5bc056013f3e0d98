package parser

import (
	"bytes"
	stderrors "errors" // Standard errors package
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/mcncl/castor/internal/errors" // Custom errors package
	"github.com/mcncl/castor/internal/models"
)

// Parse converts JSON data from an io.Reader into an IntermediateRepresentation.
// Object keys keep their document order.
func Parse(reader io.Reader) (models.IntermediateRepresentation, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return models.IntermediateRepresentation{}, errors.NewInputError("failed to read input", err)
	}
	return parse(data)
}

// parse walks the token stream to build ordered values, then checks the whole
// document with a full decode. Token() does not verify "," and ":" placement,
// so the walk alone accepts input such as [1 2].
func parse(data []byte) (models.IntermediateRepresentation, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber() // Ensure numbers are read as json.Number

	rootValue, err := decodeValue(dec, 0)
	if err != nil {
		if stderrors.Is(err, io.EOF) { // io.EOF before the first token means empty input
			return models.IntermediateRepresentation{}, errors.NewParsingError("input is empty or contains only whitespace", errors.ErrEmptyInput)
		}
		return models.IntermediateRepresentation{}, wrapDecodeError(err)
	}

	// Anything but EOF after the first value is trailing data.
	if tok, err := dec.Token(); err == nil {
		return models.IntermediateRepresentation{}, errors.NewParsingError(
			fmt.Sprintf("multiple JSON values found at the root (next token %v)", tok),
			errors.ErrMultipleJSON,
		)
	} else if !stderrors.Is(err, io.EOF) {
		return models.IntermediateRepresentation{}, errors.NewParsingError("invalid trailing data after first JSON value", wrapDecodeError(err))
	}

	var check interface{}
	if err := json.Unmarshal(data, &check); err != nil {
		return models.IntermediateRepresentation{}, wrapDecodeError(err)
	}

	return models.IntermediateRepresentation{Root: rootValue}, nil
}

func wrapDecodeError(err error) error {
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
			errors.ErrInvalidJSON,
		)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.NewParsingError("failed to decode JSON", fmt.Errorf("%w: %v", errors.ErrInvalidJSON, err))
}

// decodeValue reads one complete JSON value from the token stream.
func decodeValue(dec *json.Decoder, depth int) (models.JSONValue, error) {
	tok, err := dec.Token()
	if err != nil {
		if depth > 0 && stderrors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec, depth+1)
		case '[':
			return decodeArray(dec, depth+1)
		}
		return nil, errors.NewParsingError(fmt.Sprintf("unexpected delimiter %q", rune(v)), errors.ErrInvalidJSON)
	case json.Number:
		return v, nil
	case float64:
		return json.Number(strconv.FormatFloat(v, 'g', -1, 64)), nil
	case string, bool, nil:
		return v, nil
	default:
		return nil, errors.NewParsingError(fmt.Sprintf("unexpected token of type %T", v), errors.ErrInvalidJSON)
	}
}

func decodeObject(dec *json.Decoder, depth int) (models.JSONValue, error) {
	obj := models.JSONObject{}
	index := make(map[string]int)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, unexpectedEOF(err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.NewParsingError(fmt.Sprintf("object key must be a string, got %T", tok), errors.ErrInvalidJSON)
		}

		val, err := decodeValue(dec, depth)
		if err != nil {
			return nil, err
		}

		// A repeated key keeps its first position and takes the last value.
		if i, seen := index[key]; seen {
			obj[i].Value = val
			continue
		}
		index[key] = len(obj)
		obj = append(obj, models.Member{Key: key, Value: val})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder, depth int) (models.JSONValue, error) {
	arr := models.JSONArray{}
	for dec.More() {
		val, err := decodeValue(dec, depth)
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}

	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return arr, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return unexpectedEOF(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errors.NewParsingError(fmt.Sprintf("expected %q, got %v", rune(want), tok), errors.ErrInvalidJSON)
	}
	return nil
}

func unexpectedEOF(err error) error {
	if stderrors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// ParseBytes parses JSON from a byte slice
func ParseBytes(data []byte) (models.IntermediateRepresentation, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return models.IntermediateRepresentation{}, errors.NewInputError("input is empty", errors.ErrEmptyInput)
	}
	return parse(data)
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.IntermediateRepresentation, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.IntermediateRepresentation{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	return Parse(strings.NewReader(jsonString))
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.IntermediateRepresentation, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.IntermediateRepresentation{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.IntermediateRepresentation{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.Size() == 0 {
		return models.IntermediateRepresentation{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	return Parse(file)
}
