// Copyright (c) 2026 sqldsh
// Licensed under the MIT License. See LICENSE file in the project root for details.

package hrana

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind discriminates the Hrana value union.
type ValueKind string

const (
	KindNull    ValueKind = "null"
	KindInteger ValueKind = "integer"
	KindFloat   ValueKind = "float"
	KindText    ValueKind = "text"
	KindBlob    ValueKind = "blob"
	KindUnknown ValueKind = "unknown"
)

// Value is one SQL scalar on the wire. Integers travel as decimal text so
// that the full 64-bit range survives JSON's float64 numbers; blobs travel
// as base64 text.
type Value struct {
	Kind ValueKind
	// Text holds the decimal digits for integers and the raw string for
	// text values.
	Text string
	// Float holds the numeric value for float kinds.
	Float float64
	// Base64 holds the encoded bytes for blob kinds.
	Base64 string
}

// NullValue returns the SQL NULL value.
func NullValue() Value { return Value{Kind: KindNull} }

// IntegerValue wraps a 64-bit integer, keeping its decimal text form.
func IntegerValue(text string) Value { return Value{Kind: KindInteger, Text: text} }

// FloatValue wraps a float.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// TextValue wraps a string.
func TextValue(s string) Value { return Value{Kind: KindText, Text: s} }

// BlobValue wraps base64-encoded bytes.
func BlobValue(base64 string) Value { return Value{Kind: KindBlob, Base64: base64} }

// MarshalJSON encodes the value in its tagged wire form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte(`{"type":"null"}`), nil
	case KindInteger:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		}{"integer", v.Text})
	case KindFloat:
		return json.Marshal(struct {
			Type  string  `json:"type"`
			Value float64 `json:"value"`
		}{"float", v.Float})
	case KindText:
		return json.Marshal(struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		}{"text", v.Text})
	case KindBlob:
		return json.Marshal(struct {
			Type   string `json:"type"`
			Base64 string `json:"base64"`
		}{"blob", v.Base64})
	default:
		return nil, fmt.Errorf("cannot encode value of kind %q", v.Kind)
	}
}

// UnmarshalJSON decodes a tagged wire value. Unknown tags decode to
// KindUnknown instead of failing the surrounding frame.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   string          `json:"type"`
		Value  json.RawMessage `json:"value"`
		Base64 string          `json:"base64"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case "null":
		*v = NullValue()
	case "integer":
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("integer value is not decimal text: %w", err)
		}
		*v = IntegerValue(s)
	case "float":
		var f float64
		if err := json.Unmarshal(raw.Value, &f); err != nil {
			return fmt.Errorf("float value: %w", err)
		}
		*v = FloatValue(f)
	case "text":
		var s string
		if err := json.Unmarshal(raw.Value, &s); err != nil {
			return fmt.Errorf("text value: %w", err)
		}
		*v = TextValue(s)
	case "blob":
		*v = BlobValue(raw.Base64)
	default:
		*v = Value{Kind: KindUnknown, Text: raw.Type}
	}
	return nil
}

// String renders the value the way the shell displays it. Blobs keep their
// base64 form; truncation for display is up to the presentation layer.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "NULL"
	case KindInteger, KindText:
		return v.Text
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindBlob:
		return v.Base64
	default:
		return fmt.Sprintf("<%s>", v.Text)
	}
}
