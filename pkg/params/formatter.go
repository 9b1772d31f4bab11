// Package params validates and canonicalizes the JSON parameters handed to a notebook.
package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidParameters is returned when the payload is not a single JSON document.
var ErrInvalidParameters = errors.New("invalid JSON parameters")

const indent = "  "

// member is one key of a decoded object; objects are kept as ordered
// member lists so keys print in the order the caller wrote them.
type member struct {
	key   string
	value any
}

type object []member

// set replaces an existing key in place, otherwise appends it.
func (o object) set(key string, value any) object {
	for i := range o {
		if o[i].key == key {
			o[i].value = value
			return o
		}
	}
	return append(o, member{key, value})
}

// Format parses raw as JSON and re-encodes it with two-space indentation.
// Object keys keep their input order (a repeated key keeps its first
// position and its last value) and numbers keep their original text, so
// Format(Format(x)) == Format(x).
func Format(raw string) (string, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	value, err := decodeValue(dec)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	var buf bytes.Buffer
	if err := encodeValue(&buf, value, ""); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return buf.String(), nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := object{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj = obj.set(key, value)
		}
		return obj, closing(dec)
	case '[':
		arr := []any{}
		for dec.More() {
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		return arr, closing(dec)
	}
	return nil, fmt.Errorf("unexpected %q", delim)
}

// closing consumes the delimiter ending the current object or array.
func closing(dec *json.Decoder) error {
	_, err := dec.Token()
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func encodeValue(buf *bytes.Buffer, value any, prefix string) error {
	switch v := value.(type) {
	case object:
		if len(v) == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteString("{\n")
		for i, m := range v {
			buf.WriteString(prefix + indent)
			if err := encodeScalar(buf, m.key); err != nil {
				return err
			}
			buf.WriteString(": ")
			if err := encodeValue(buf, m.value, prefix+indent); err != nil {
				return err
			}
			if i < len(v)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(prefix + "}")
	case []any:
		if len(v) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteString("[\n")
		for i, item := range v {
			buf.WriteString(prefix + indent)
			if err := encodeValue(buf, item, prefix+indent); err != nil {
				return err
			}
			if i < len(v)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString(prefix + "]")
	default:
		return encodeScalar(buf, v)
	}
	return nil
}

func encodeScalar(buf *bytes.Buffer, v any) error {
	var scratch bytes.Buffer
	enc := json.NewEncoder(&scratch)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(scratch.Bytes(), []byte("\n")))
	return nil
}
