package fieldtype

import (
	"fmt"
	"strings"
)

// FieldType is the closed set of column types understood by the engine.
type FieldType int8

const (
	// Error marks a value that cannot be stored. It is never registered.
	Error FieldType = iota - 1
	Int32
	Int64
	Float32
	Utf8String
	MultiString
	Vector
)

var names = map[FieldType]string{
	Error:       "ERROR",
	Int32:       "INT",
	Int64:       "LONG",
	Float32:     "FLOAT",
	Utf8String:  "STRING",
	MultiString: "MULTI_STRING",
	Vector:      "VECTOR",
}

// String returns the wire name used in snapshots and engine declarations.
func (t FieldType) String() string {
	if s, ok := names[t]; ok {
		return s
	}
	return fmt.Sprintf("FieldType(%d)", int8(t))
}

// Parse maps a wire name back to its FieldType. DOUBLE is accepted as an
// alias of FLOAT because engines may report it for float columns.
func Parse(name string) (FieldType, error) {
	switch strings.ToUpper(name) {
	case "INT":
		return Int32, nil
	case "LONG":
		return Int64, nil
	case "FLOAT", "DOUBLE":
		return Float32, nil
	case "STRING":
		return Utf8String, nil
	case "MULTI_STRING":
		return MultiString, nil
	case "VECTOR":
		return Vector, nil
	}
	return Error, fmt.Errorf("unknown field type %q", name)
}

// Valid reports whether t may be stored.
func (t FieldType) Valid() bool {
	return t >= Int32 && t <= Vector
}

// Numeric reports whether t is a scalar numeric column.
func (t FieldType) Numeric() bool {
	return t == Int32 || t == Int64 || t == Float32
}

// Textual reports whether t holds strings.
func (t FieldType) Textual() bool {
	return t == Utf8String || t == MultiString
}

func (t FieldType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("cannot marshal field type %s", t)
	}
	return []byte(t.String()), nil
}

func (t *FieldType) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
