package schema

import "github.com/awa-ai/awadb/v1/errs"

// Code is the outcome of resolving one field. Non-negative codes mean the value
// may be stored; negative codes reject the document.
type Code int

const (
	CodeExisting          Code = 0
	CodeNew               Code = 1
	CodeAlreadySeen       Code = 2
	CodeUntypable         Code = -1
	CodeTypeConflict      Code = -3
	CodeDimensionMismatch Code = -4
	CodeVectorAfterFreeze Code = -5
)

// OK reports whether the value may be stored.
func (c Code) OK() bool {
	return c >= 0
}

func (c Code) String() string {
	switch c {
	case CodeExisting:
		return "OK_EXISTING"
	case CodeNew:
		return "OK_NEW"
	case CodeAlreadySeen:
		return "OK_ALREADY_SEEN"
	case CodeUntypable:
		return "ERR_UNTYPABLE"
	case CodeTypeConflict:
		return "ERR_TYPE_CONFLICT"
	case CodeDimensionMismatch:
		return "ERR_DIMENSION_MISMATCH"
	case CodeVectorAfterFreeze:
		return "ERR_NEW_VECTOR_AFTER_FREEZE"
	}
	return "UNKNOWN"
}

// Kind maps a rejecting code to its error kind. It returns "" for OK codes.
func (c Code) Kind() errs.Kind {
	switch c {
	case CodeUntypable:
		return errs.UntypableValue
	case CodeTypeConflict:
		return errs.TypeConflict
	case CodeDimensionMismatch:
		return errs.DimensionMismatch
	case CodeVectorAfterFreeze:
		return errs.VectorAfterFreeze
	}
	return ""
}
