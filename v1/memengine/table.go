package memengine

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/awa-ai/awadb/v1/codec"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/schema"
)

type row struct {
	id      []byte
	fields  map[string]engine.Field
	vectors map[string][]float32
}

// table is one engine table. Row ids are positions in rows; deleted rows stay
// in place and are cleared from live.
type table struct {
	decl  schema.TableDeclaration
	types map[string]fieldtype.FieldType
	dims  map[string]uint32

	rows  []*row
	byID  map[string]uint32
	live  *roaring.Bitmap
	terms map[string]map[string]*roaring.Bitmap
}

func newTable(decl schema.TableDeclaration) (*table, error) {
	t := &table{
		decl:  decl,
		types: map[string]fieldtype.FieldType{},
		dims:  map[string]uint32{},
		byID:  map[string]uint32{},
		live:  roaring.New(),
		terms: map[string]map[string]*roaring.Bitmap{},
	}
	for _, f := range decl.Fields {
		if err := t.addField(f); err != nil {
			return nil, err
		}
	}
	for _, f := range decl.Vectors {
		if f.Dimension == 0 {
			return nil, fmt.Errorf("vector field %q has no dimension", f.Name)
		}
		if _, dup := t.types[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		t.types[f.Name] = fieldtype.Vector
		t.dims[f.Name] = f.Dimension
	}
	return t, nil
}

func (t *table) addField(f schema.FieldDecl) error {
	if f.Type == fieldtype.Vector || !f.Type.Valid() {
		return fmt.Errorf("field %q: type %s cannot be added as a scalar", f.Name, f.Type)
	}
	if cur, ok := t.types[f.Name]; ok {
		if cur != f.Type {
			return fmt.Errorf("field %q already exists as %s", f.Name, cur)
		}
		return nil
	}
	t.types[f.Name] = f.Type
	if f.Type.Textual() {
		t.terms[f.Name] = map[string]*roaring.Bitmap{}
	}
	return nil
}

// extend adds f to the table and its declaration. Re-adding an existing
// field of the same type is a no-op.
func (t *table) extend(f schema.FieldDecl) error {
	if cur, ok := t.types[f.Name]; ok && cur == f.Type {
		return nil
	}
	if err := t.addField(f); err != nil {
		return err
	}
	t.decl.Fields = append(t.decl.Fields, f)
	return nil
}

func (t *table) declaration() schema.TableDeclaration {
	d := t.decl
	d.Fields = append([]schema.FieldDecl(nil), t.decl.Fields...)
	d.Vectors = append([]schema.FieldDecl(nil), t.decl.Vectors...)
	return d
}

// prepare validates doc against the table schema.
func (t *table) prepare(doc engine.Document) (*row, error) {
	if len(doc.ID) == 0 {
		return nil, fmt.Errorf("document without id")
	}
	r := &row{
		id:      doc.ID,
		fields:  make(map[string]engine.Field, len(doc.Fields)),
		vectors: map[string][]float32{},
	}
	for _, f := range doc.Fields {
		ft, ok := t.types[f.Name]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", f.Name)
		}
		if ft != f.Type {
			return nil, fmt.Errorf("field %q is %s, got %s", f.Name, ft, f.Type)
		}
		if ft == fieldtype.Vector {
			vec, err := codec.DecodeVector(f.Value)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			if uint32(len(vec)) != t.dims[f.Name] {
				return nil, fmt.Errorf("field %q has dimension %d, got %d", f.Name, t.dims[f.Name], len(vec))
			}
			r.vectors[f.Name] = vec
		}
		r.fields[f.Name] = f
	}
	return r, nil
}

// upsert stores r, replacing any row with the same id.
func (t *table) upsert(r *row) {
	key := string(r.id)
	if pos, ok := t.byID[key]; ok {
		t.index(pos, t.rows[pos], false)
		t.rows[pos] = r
		t.index(pos, r, true)
		t.live.Add(pos)
		return
	}
	pos := uint32(len(t.rows))
	t.rows = append(t.rows, r)
	t.byID[key] = pos
	t.index(pos, r, true)
	t.live.Add(pos)
}

func (t *table) remove(id []byte) bool {
	pos, ok := t.byID[string(id)]
	if !ok {
		return false
	}
	t.index(pos, t.rows[pos], false)
	t.live.Remove(pos)
	t.rows[pos] = nil
	delete(t.byID, string(id))
	return true
}

func (t *table) index(pos uint32, r *row, add bool) {
	for name, postings := range t.terms {
		f, ok := r.fields[name]
		if !ok {
			continue
		}
		values := f.Multi
		if t.types[name] == fieldtype.Utf8String {
			values = [][]byte{f.Value}
		}
		for _, v := range values {
			bm, ok := postings[string(v)]
			if !ok {
				if !add {
					continue
				}
				bm = roaring.New()
				postings[string(v)] = bm
			}
			if add {
				bm.Add(pos)
			} else {
				bm.Remove(pos)
			}
		}
	}
}

// candidates returns the live rows matching every filter.
func (t *table) candidates(ranges []engine.RangeFilter, terms []engine.TermFilter) (*roaring.Bitmap, error) {
	out := t.live.Clone()
	for _, tf := range terms {
		postings, ok := t.terms[tf.Field]
		if !ok {
			return nil, fmt.Errorf("field %q does not support term filters", tf.Field)
		}
		var matched *roaring.Bitmap
		for _, v := range tf.Values {
			bm := postings[v]
			if bm == nil {
				bm = roaring.New()
			}
			switch {
			case matched == nil:
				matched = bm.Clone()
			case tf.Union:
				matched.Or(bm)
			default:
				matched.And(bm)
			}
		}
		if matched == nil {
			matched = roaring.New()
		}
		out.And(matched)
	}
	for _, rf := range ranges {
		if err := t.applyRange(out, rf); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (t *table) applyRange(bm *roaring.Bitmap, rf engine.RangeFilter) error {
	ft, ok := t.types[rf.Field]
	if !ok || !ft.Numeric() {
		return fmt.Errorf("field %q does not support range filters", rf.Field)
	}
	if ft == fieldtype.Int64 {
		return filterRange(t, bm, rf, math.MinInt64, math.MaxInt64, func(raw []byte) (int64, error) {
			v, err := codec.Decode(ft, codec.Value{Raw: raw})
			if err != nil {
				return 0, err
			}
			return v.(int64), nil
		})
	}
	return filterRange(t, bm, rf, math.Inf(-1), math.Inf(1), func(raw []byte) (float64, error) {
		return codec.DecodeNumber(ft, raw)
	})
}

// filterRange removes from bm every row whose value lies outside rf. LONG
// values are compared as int64 so that values above 2^53 stay exact.
func filterRange[N int64 | float64](t *table, bm *roaring.Bitmap, rf engine.RangeFilter, lower, upper N, decode func([]byte) (N, error)) error {
	var err error
	if rf.Lower != nil {
		if lower, err = decode(rf.Lower); err != nil {
			return err
		}
	}
	if rf.Upper != nil {
		if upper, err = decode(rf.Upper); err != nil {
			return err
		}
	}

	var drop []uint32
	it := bm.Iterator()
	for it.HasNext() {
		pos := it.Next()
		f, ok := t.rows[pos].fields[rf.Field]
		if !ok {
			drop = append(drop, pos)
			continue
		}
		v, err := decode(f.Value)
		if err != nil {
			return err
		}
		if !inRange(v, lower, upper, rf) {
			drop = append(drop, pos)
		}
	}
	for _, pos := range drop {
		bm.Remove(pos)
	}
	return nil
}

func inRange[N int64 | float64](v, lower, upper N, rf engine.RangeFilter) bool {
	switch {
	case v < lower, rf.Lower != nil && !rf.IncludeLower && v == lower:
		return false
	case v > upper, rf.Upper != nil && !rf.IncludeUpper && v == upper:
		return false
	}
	return true
}

func (t *table) project(r *row, projection []string) []engine.Field {
	if len(projection) == 0 {
		out := make([]engine.Field, 0, len(r.fields))
		for _, name := range t.fieldOrder() {
			if f, ok := r.fields[name]; ok {
				out = append(out, f)
			}
		}
		return out
	}
	out := make([]engine.Field, 0, len(projection))
	for _, name := range projection {
		if f, ok := r.fields[name]; ok {
			out = append(out, f)
		}
	}
	return out
}

func (t *table) fieldOrder() []string {
	names := make([]string, 0, len(t.types))
	for _, f := range t.decl.Fields {
		names = append(names, f.Name)
	}
	for _, f := range t.decl.Vectors {
		names = append(names, f.Name)
	}
	return names
}
