package schema

import (
	"fmt"

	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
)

// Batch is a private overlay on top of a published State. Fields discovered
// while resolving a batch are registered here and only become visible to
// other writers when the owning Table commits them.
type Batch struct {
	base *State

	fields map[string]fieldtype.FieldType
	dims   map[string]uint32
	order  []string

	seen map[string]struct{}
}

func newBatch(base *State) *Batch {
	return &Batch{
		base:   base,
		fields: map[string]fieldtype.FieldType{},
		dims:   map[string]uint32{},
		seen:   map[string]struct{}{},
	}
}

// Base is the published state the batch was started from.
func (b *Batch) Base() *State {
	return b.base
}

// PrimaryKey is the primary-key field name of the table.
func (b *Batch) PrimaryKey() string {
	return b.base.PrimaryKey
}

// Frozen reports whether the engine table already exists.
func (b *Batch) Frozen() bool {
	return b.base.Frozen
}

// StartDocument resets the per-document duplicate tracking.
func (b *Batch) StartDocument() {
	clear(b.seen)
}

// Type returns the type of name as seen by this batch.
func (b *Batch) Type(name string) (fieldtype.FieldType, bool) {
	if t, ok := b.fields[name]; ok {
		return t, true
	}
	return b.base.Type(name)
}

// Dimension returns the dimension of a vector field as seen by this batch.
func (b *Batch) Dimension(name string) (uint32, bool) {
	if d, ok := b.dims[name]; ok {
		return d, true
	}
	return b.base.Dimension(name)
}

// NewFields lists the fields registered by this batch, in discovery order.
func (b *Batch) NewFields() []string {
	return append([]string(nil), b.order...)
}

// Changed reports whether the batch registered any field.
func (b *Batch) Changed() bool {
	return len(b.order) > 0
}

// Resolve types one field of the current document against the registered
// schema, registering it in the overlay when it is new. The returned type is
// the type the value must be encoded with.
func (b *Batch) Resolve(name string, v any) (fieldtype.FieldType, Code) {
	inferred := fieldtype.InferField(name, v, b.base.PrimaryKey)

	if _, dup := b.seen[name]; dup {
		t, _ := b.Type(name)
		return t, CodeAlreadySeen
	}

	if registered, ok := b.Type(name); ok {
		switch {
		case registered == fieldtype.MultiString && inferred == fieldtype.Utf8String:
			// a single string is stored as a one-element list
		case registered == fieldtype.Int64 && inferred == fieldtype.Int32:
			// LONG columns adopted from the engine take any integer
		case registered != inferred:
			return registered, CodeTypeConflict
		case registered == fieldtype.Vector:
			want, _ := b.Dimension(name)
			if vectorLen(v) != want {
				return registered, CodeDimensionMismatch
			}
		}
		b.seen[name] = struct{}{}
		return registered, CodeExisting
	}

	if inferred == fieldtype.Vector && b.base.Frozen {
		return inferred, CodeVectorAfterFreeze
	}
	if inferred == fieldtype.Error {
		return inferred, CodeUntypable
	}
	if inferred == fieldtype.Vector {
		n := vectorLen(v)
		if n == 0 {
			return fieldtype.Error, CodeUntypable
		}
		b.dims[name] = n
	}
	b.fields[name] = inferred
	b.order = append(b.order, name)
	b.seen[name] = struct{}{}
	return inferred, CodeNew
}

// Reject builds the error for a document rejected with code while resolving
// field name at batch position doc.
func (b *Batch) Reject(code Code, name string, doc int, v any) error {
	var msg string
	switch code {
	case CodeTypeConflict:
		t, _ := b.Type(name)
		msg = fmt.Sprintf("value of kind %s cannot be stored in %s field", fieldtype.Infer(v), t)
	case CodeDimensionMismatch:
		want, _ := b.Dimension(name)
		msg = fmt.Sprintf("vector has %d components, field has %d", vectorLen(v), want)
	case CodeVectorAfterFreeze:
		msg = "vector fields cannot be added once the table exists"
	default:
		msg = fmt.Sprintf("value of type %T cannot be stored", v)
	}
	return errs.New(code.Kind(), "%s", msg).
		WithTable(b.base.Key.String()).
		WithField(name).
		WithDoc(doc)
}

func vectorLen(v any) uint32 {
	switch x := v.(type) {
	case []float32:
		return uint32(len(x))
	case []float64:
		return uint32(len(x))
	}
	els, ok := fieldtype.Elements(v)
	if !ok {
		return 0
	}
	return uint32(len(els))
}

// merge produces the state that results from committing every field of the
// overlay onto the base.
func (b *Batch) merge() *State {
	next := b.base.clone()
	for _, name := range b.order {
		next.Fields[name] = b.fields[name]
		next.Order = append(next.Order, name)
		if d, ok := b.dims[name]; ok {
			next.Dimensions[name] = d
		}
	}
	return next
}
