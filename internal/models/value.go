package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindString
	kindNumber
	kindBool
)

// Value is a scalar field returned by the attendance backend. The backend is
// loose about types (durations arrive as numbers or strings, flags as bools or
// "0"/"1"), so Value keeps the original shape and exposes typed accessors.
type Value struct {
	kind valueKind
	str  string
	num  float64
	flag bool
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: kindString, str: s} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{kind: kindNumber, num: n} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: kindBool, flag: b} }

// UnmarshalJSON accepts null, strings, numbers and booleans.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = Value{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case bytes.Equal(data, []byte("true")):
		*v = BoolValue(true)
	case bytes.Equal(data, []byte("false")):
		*v = BoolValue(false)
	case data[0] == '{' || data[0] == '[':
		return fmt.Errorf("unsupported composite value %s", string(data))
	default:
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("parse numeric value: %w", err)
		}
		*v = NumberValue(n)
	}
	return nil
}

// MarshalJSON writes the value back in its original shape.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(v.str)
	case kindNumber:
		return json.Marshal(v.num)
	case kindBool:
		return json.Marshal(v.flag)
	default:
		return []byte("null"), nil
	}
}

// IsNull reports whether the field was absent or null.
func (v Value) IsNull() bool { return v.kind == kindNull }

// IsNumber reports whether the backend sent a JSON number.
func (v Value) IsNumber() bool { return v.kind == kindNumber }

// Truthy mirrors the falsy set of the source data: null, "", 0 and false.
func (v Value) Truthy() bool {
	switch v.kind {
	case kindString:
		return v.str != ""
	case kindNumber:
		return v.num != 0
	case kindBool:
		return v.flag
	default:
		return false
	}
}

// Float returns the numeric reading of the value. Numeric strings count.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case kindNumber:
		return v.num, true
	case kindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case kindBool:
		if v.flag {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// String renders the value the way a spreadsheet cell would show it.
func (v Value) String() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindBool:
		return strconv.FormatBool(v.flag)
	default:
		return ""
	}
}
