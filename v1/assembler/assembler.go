package assembler

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"

	"github.com/awa-ai/awadb/v1/codec"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/schema"
	"github.com/google/uuid"
)

// Assembler validates documents against a table schema and encodes them for
// the engine.
type Assembler struct {
	cfg   Config
	reg   *schema.Registry
	prov  schema.Provisioner
	newID func() string
}

func New(cfg Config, reg *schema.Registry, prov schema.Provisioner) *Assembler {
	return &Assembler{
		cfg:   cfg.withDefaults(),
		reg:   reg,
		prov:  prov,
		newID: uuid.NewString,
	}
}

// WithIDGenerator replaces the random key generator.
func (a *Assembler) WithIDGenerator(fn func() string) *Assembler {
	a.newID = fn
	return a
}

type resolved struct {
	name  string
	ft    fieldtype.FieldType
	value any
	enc   codec.Value
}

// Assemble resolves every field of docs against the schema of key, creating
// or extending the engine table as needed, and returns the encoded documents
// together with the committed schema. Any rejected field rejects the whole
// batch.
func (a *Assembler) Assemble(ctx context.Context, key schema.TableKey, docs []Document) ([]engine.Document, *schema.State, error) {
	table := a.reg.Table(key)
	if len(docs) == 0 {
		return nil, table.State(), nil
	}

	// Generated keys must be stable across re-resolution.
	generated := make([]string, len(docs))

	var plan [][]resolved
	resolve := func(b *schema.Batch) error {
		plan = make([][]resolved, len(docs))
		pk := b.PrimaryKey()
		for i, doc := range docs {
			b.StartDocument()
			var fields []resolved
			hasKey := false
			for _, f := range doc {
				if f.Name == pk {
					if !fieldtype.IsIntegral(f.Value) && fieldtype.Infer(f.Value) != fieldtype.Utf8String {
						return errs.New(errs.UntypableValue, "primary key of type %T", f.Value).
							WithTable(key.String()).WithField(pk).WithDoc(i)
					}
					hasKey = true
				}
				ft, code := b.Resolve(f.Name, f.Value)
				switch {
				case code == schema.CodeAlreadySeen:
					continue
				case !code.OK():
					return b.Reject(code, f.Name, i, f.Value)
				}
				enc, err := a.encode(ft, f.Value)
				if err != nil {
					return rejectValue(err, key, f.Name, i)
				}
				fields = append(fields, resolved{name: f.Name, ft: ft, value: f.Value, enc: enc})
			}
			if !hasKey {
				if generated[i] == "" {
					generated[i] = a.generateKey(doc)
				}
				ft, code := b.Resolve(pk, generated[i])
				if !code.OK() {
					return b.Reject(code, pk, i, generated[i])
				}
				enc, err := a.encode(ft, generated[i])
				if err != nil {
					return rejectValue(err, key, pk, i)
				}
				fields = append(fields, resolved{name: pk, ft: ft, value: generated[i], enc: enc})
			}
			plan[i] = fields
		}
		return nil
	}

	st, err := table.Apply(ctx, resolve, a.prov)
	if err != nil {
		return nil, st, err
	}

	out := make([]engine.Document, len(docs))
	for i, fields := range plan {
		doc, err := backfill(st, fields)
		if err != nil {
			var e *errs.Error
			if errors.As(err, &e) {
				err = e.WithTable(key.String()).WithDoc(i)
			}
			return nil, st, err
		}
		out[i] = doc
	}
	return out, st, nil
}

func (a *Assembler) generateKey(doc Document) string {
	if a.cfg.Dedup {
		if v, ok := doc.Get(a.cfg.DedupField); ok {
			if text, ok := v.(string); ok {
				sum := md5.Sum([]byte(text))
				return hex.EncodeToString(sum[:])
			}
		}
	}
	return a.newID()
}

// encode encodes one value. Vectors of inner-product tables are stored at unit
// length, matching the queries composed against them.
func (a *Assembler) encode(ft fieldtype.FieldType, v any) (codec.Value, error) {
	if ft != fieldtype.Vector || a.cfg.Metric != engine.InnerProduct {
		return codec.Encode(ft, v)
	}
	vec, err := codec.ToVector(v)
	if err != nil {
		return codec.Value{}, err
	}
	if vec, err = codec.Normalize(vec); err != nil {
		return codec.Value{}, err
	}
	raw, err := codec.EncodeVector(vec)
	if err != nil {
		return codec.Value{}, err
	}
	return codec.Value{Raw: raw}, nil
}

// backfill builds the engine document from the encoded fields of one document
// and fills every committed scalar field the document omits.
func backfill(st *schema.State, fields []resolved) (engine.Document, error) {
	var doc engine.Document
	present := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		v := f.enc
		present[f.name] = struct{}{}
		doc.Fields = append(doc.Fields, engine.Field{Name: f.name, Type: f.ft, Value: v.Raw, Multi: v.Multi})

		if f.name == st.PrimaryKey {
			doc.ID = v.Raw
			if f.ft == fieldtype.Int64 {
				n, _ := fieldtype.ToInt64(f.value)
				doc.IDValue = n
			} else {
				doc.IDValue = f.value
			}
		}
	}

	for _, name := range st.Order {
		if _, ok := present[name]; ok || st.IsPending(name) {
			continue
		}
		ft := st.Fields[name]
		zero, ok := codec.Zero(ft)
		if !ok {
			continue
		}
		v, err := codec.Encode(ft, zero)
		if err != nil {
			return doc, scope(err, name)
		}
		doc.Fields = append(doc.Fields, engine.Field{Name: name, Type: ft, Value: v.Raw, Multi: v.Multi})
	}
	return doc, nil
}

func scope(err error, field string) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.WithField(field)
	}
	return err
}

func rejectValue(err error, key schema.TableKey, field string, doc int) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.WithTable(key.String()).WithField(field).WithDoc(doc)
	}
	return errs.Wrap(errs.EncodingError, err, "encode value").WithTable(key.String()).WithField(field).WithDoc(doc)
}
