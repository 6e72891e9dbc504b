// Package models contains domain types for the InsightForge backend.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueNumber
	ValueText
)

func (k ValueKind) String() string {
	switch k {
	case ValueNumber:
		return "number"
	case ValueText:
		return "text"
	default:
		return "null"
	}
}

// Value is a single dynamically typed CSV cell: Null, Number or Text.
type Value struct {
	Kind ValueKind
	Num  float64
	Str  string
}

// Null returns the empty cell value.
func Null() Value { return Value{Kind: ValueNull} }

// Number wraps a numeric cell.
func Number(f float64) Value { return Value{Kind: ValueNumber, Num: f} }

// Text wraps a textual cell.
func Text(s string) Value { return Value{Kind: ValueText, Str: s} }

// IsNull reports whether the cell is empty.
func (v Value) IsNull() bool { return v.Kind == ValueNull }

// IsBlank reports whether the cell carries no data: null or an empty string.
func (v Value) IsBlank() bool {
	return v.Kind == ValueNull || (v.Kind == ValueText && v.Str == "")
}

// String renders the value for display. Null renders as "".
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueText:
		return v.Str
	default:
		return ""
	}
}

// Interface returns the value as nil, float64 or string.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case ValueNumber:
		return v.Num
	case ValueText:
		return v.Str
	default:
		return nil
	}
}

// MarshalJSON encodes the value as null, a JSON number or a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// UnmarshalJSON accepts null, a number or a string.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return v.set(raw)
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.Kind {
	case ValueNumber:
		return enc.EncodeFloat64(v.Num)
	case ValueText:
		return enc.EncodeString(v.Str)
	default:
		return enc.EncodeNil()
	}
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeInterface()
	if err != nil {
		return err
	}
	return v.set(raw)
}

func (v *Value) set(raw interface{}) error {
	switch x := raw.(type) {
	case nil:
		*v = Null()
	case float64:
		*v = Number(x)
	case float32:
		*v = Number(float64(x))
	case int64:
		*v = Number(float64(x))
	case uint64:
		*v = Number(float64(x))
	case int8, int16, int32, uint8, uint16, uint32:
		f, _ := strconv.ParseFloat(fmt.Sprint(x), 64)
		*v = Number(f)
	case string:
		*v = Text(x)
	default:
		return fmt.Errorf("unsupported cell value of type %T", raw)
	}
	return nil
}

// Record maps a header to its cell value for one data row.
type Record map[string]Value
