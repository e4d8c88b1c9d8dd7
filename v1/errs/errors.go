package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure. Callers branch on the kind, never on the message.
type Kind string

const (
	UntypableValue     Kind = "untypable_value"
	TypeConflict       Kind = "type_conflict"
	DimensionMismatch  Kind = "dimension_mismatch"
	VectorAfterFreeze  Kind = "vector_after_freeze"
	UnknownFilterField Kind = "unknown_filter_field"
	NoDimensionMatch   Kind = "no_dimension_match"
	EncodingError      Kind = "encoding_error"
	EngineCreateFailed Kind = "engine_create_failed"
	EngineAddFailed    Kind = "engine_add_failed"
	SnapshotIOError    Kind = "snapshot_io_error"

	AmbiguousFilter  Kind = "ambiguous_filter"
	InvalidQuery     Kind = "invalid_query"
	TableNotFound    Kind = "table_not_found"
	EmbeddingFailed  Kind = "embedding_failed"
	EngineCallFailed Kind = "engine_call_failed"
)

// Sentinels for errors.Is. An *Error matches a sentinel when the kinds are equal.
var (
	ErrUntypableValue     = &Error{Kind: UntypableValue, Doc: -1}
	ErrTypeConflict       = &Error{Kind: TypeConflict, Doc: -1}
	ErrDimensionMismatch  = &Error{Kind: DimensionMismatch, Doc: -1}
	ErrVectorAfterFreeze  = &Error{Kind: VectorAfterFreeze, Doc: -1}
	ErrUnknownFilterField = &Error{Kind: UnknownFilterField, Doc: -1}
	ErrNoDimensionMatch   = &Error{Kind: NoDimensionMatch, Doc: -1}
	ErrEncoding           = &Error{Kind: EncodingError, Doc: -1}
	ErrEngineCreateFailed = &Error{Kind: EngineCreateFailed, Doc: -1}
	ErrEngineAddFailed    = &Error{Kind: EngineAddFailed, Doc: -1}
	ErrSnapshotIO         = &Error{Kind: SnapshotIOError, Doc: -1}
	ErrAmbiguousFilter    = &Error{Kind: AmbiguousFilter, Doc: -1}
	ErrInvalidQuery       = &Error{Kind: InvalidQuery, Doc: -1}
	ErrTableNotFound      = &Error{Kind: TableNotFound, Doc: -1}
	ErrEmbeddingFailed    = &Error{Kind: EmbeddingFailed, Doc: -1}
	ErrEngineCallFailed   = &Error{Kind: EngineCallFailed, Doc: -1}
)

// Error is the structured error returned by every core package.
//
// Table and Field name the offending table and field when known. Doc is the
// zero-based index of the offending document within a batch, or -1.
type Error struct {
	Kind  Kind
	Table string
	Field string
	Doc   int
	Msg   string
	Err   error
}

// New builds an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Doc: -1, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Doc: -1, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// WithTable returns a copy of e scoped to table.
func (e *Error) WithTable(table string) *Error {
	c := *e
	c.Table = table
	return &c
}

// WithField returns a copy of e scoped to field.
func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

// WithDoc returns a copy of e scoped to the document at index doc.
func (e *Error) WithDoc(doc int) *Error {
	c := *e
	c.Doc = doc
	return &c
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Table != "" {
		b.WriteString(" table=")
		b.WriteString(e.Table)
	}
	if e.Field != "" {
		b.WriteString(" field=")
		b.WriteString(e.Field)
	}
	if e.Doc >= 0 {
		fmt.Fprintf(&b, " doc=%d", e.Doc)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so that errors.Is(err, errs.ErrTypeConflict) works
// for any *Error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FieldOf returns the offending field name carried by err, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// IsValueShape reports whether err rejects the input itself, as opposed to a
// failure of a collaborator. Value-shape errors abort the whole batch.
func IsValueShape(err error) bool {
	switch KindOf(err) {
	case UntypableValue, TypeConflict, DimensionMismatch, VectorAfterFreeze, EncodingError:
		return true
	}
	return false
}

// IsEngineError reports whether err came from the storage engine.
func IsEngineError(err error) bool {
	switch KindOf(err) {
	case EngineCreateFailed, EngineAddFailed, EngineCallFailed:
		return true
	}
	return false
}

// IsNotFound reports whether err means the table does not exist.
func IsNotFound(err error) bool {
	return KindOf(err) == TableNotFound
}

// IsSnapshotError reports whether err came from snapshot persistence.
func IsSnapshotError(err error) bool {
	return KindOf(err) == SnapshotIOError
}
