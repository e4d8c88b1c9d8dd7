package qdrant

import (
	"encoding/base64"
	"fmt"
	"math"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"

	"github.com/awa-ai/awadb/v1/codec"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/schema"
)

// idPayload keeps the encoded primary key, since point ids are derived uuids.
const idPayload = "__id"

var idSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("awadb"))

// pointID derives the stable point id of an encoded primary key.
func pointID(id []byte) string {
	return uuid.NewSHA1(idSpace, id).String()
}

// metaID is the point id of a table in the metadata collection.
func metaID(key schema.TableKey) string {
	return uuid.NewSHA1(idSpace, []byte("table:"+key.String())).String()
}

func collectionName(prefix string, key schema.TableKey) string {
	return prefix + key.DB + "__" + key.Table
}

func distance(m engine.Metric) qdrant.Distance {
	if m == engine.InnerProduct {
		return qdrant.Distance_Dot
	}
	return qdrant.Distance_Euclid
}

// indexType is the payload index schema of a scalar field.
func indexType(ft fieldtype.FieldType) (qdrant.FieldType, bool) {
	switch ft {
	case fieldtype.Int32, fieldtype.Int64:
		return qdrant.FieldType_FieldTypeInteger, true
	case fieldtype.Float32:
		return qdrant.FieldType_FieldTypeFloat, true
	case fieldtype.Utf8String, fieldtype.MultiString:
		return qdrant.FieldType_FieldTypeKeyword, true
	}
	return 0, false
}

// toPoint converts an engine document into a point. Every field must be
// declared in decl.
func toPoint(decl schema.TableDeclaration, doc engine.Document) (*qdrant.PointStruct, error) {
	if len(doc.ID) == 0 {
		return nil, fmt.Errorf("[Qdrant] document without id")
	}
	payload := map[string]any{idPayload: base64.StdEncoding.EncodeToString(doc.ID)}
	vectors := map[string]*qdrant.Vector{}

	for _, f := range doc.Fields {
		fd, ok := decl.Field(f.Name)
		if !ok {
			return nil, fmt.Errorf("[Qdrant] unknown field %q", f.Name)
		}
		if fd.Type != f.Type {
			return nil, fmt.Errorf("[Qdrant] field %q is %s, got %s", f.Name, fd.Type, f.Type)
		}
		if f.Type == fieldtype.Vector {
			vec, err := codec.DecodeVector(f.Value)
			if err != nil {
				return nil, err
			}
			if uint32(len(vec)) != fd.Dimension {
				return nil, fmt.Errorf("[Qdrant] field %q has dimension %d, got %d", f.Name, fd.Dimension, len(vec))
			}
			vectors[f.Name] = qdrant.NewVector(vec...)
			continue
		}
		v, err := payloadValue(f)
		if err != nil {
			return nil, err
		}
		payload[f.Name] = v
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewID(pointID(doc.ID)),
		Vectors: qdrant.NewVectorsMap(vectors),
		Payload: qdrant.NewValueMap(payload),
	}, nil
}

// payloadValue decodes a scalar into a type the payload map accepts.
func payloadValue(f engine.Field) (any, error) {
	v, err := codec.Decode(f.Type, codec.Value{Raw: f.Value, Multi: f.Multi})
	if err != nil {
		return nil, err
	}
	switch x := v.(type) {
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	}
	return v, nil
}

// fromPayload re-encodes the payload of a point into a row. The projection
// selects fields; an empty projection returns every declared scalar.
func fromPayload(decl schema.TableDeclaration, payload map[string]*qdrant.Value, projection []string) (engine.Row, error) {
	var row engine.Row
	raw, ok := payload[idPayload]
	if !ok {
		return row, fmt.Errorf("[Qdrant] point without %s payload", idPayload)
	}
	id, err := base64.StdEncoding.DecodeString(raw.GetStringValue())
	if err != nil {
		return row, fmt.Errorf("[Qdrant] decode id: %w", err)
	}
	row.ID = id

	names := projection
	if len(names) == 0 {
		for _, f := range decl.Fields {
			names = append(names, f.Name)
		}
	}
	for _, name := range names {
		fd, ok := decl.Field(name)
		if !ok || fd.Type == fieldtype.Vector {
			continue
		}
		v, ok := payload[name]
		if !ok {
			continue
		}
		f, err := fieldValue(fd, v)
		if err != nil {
			return row, err
		}
		row.Fields = append(row.Fields, f)
	}
	return row, nil
}

func fieldValue(fd schema.FieldDecl, v *qdrant.Value) (engine.Field, error) {
	f := engine.Field{Name: fd.Name, Type: fd.Type}
	switch fd.Type {
	case fieldtype.Int32:
		n := v.GetIntegerValue()
		if n < math.MinInt32 || n > math.MaxInt32 {
			return f, fmt.Errorf("[Qdrant] field %q: %d overflows INT", fd.Name, n)
		}
		f.Value = codec.EncodeInt32(int32(n))
	case fieldtype.Int64:
		f.Value = codec.EncodeInt64(v.GetIntegerValue())
	case fieldtype.Float32:
		d := v.GetDoubleValue()
		if _, isInt := v.GetKind().(*qdrant.Value_IntegerValue); isInt {
			d = float64(v.GetIntegerValue())
		}
		f.Value = codec.EncodeFloat32(float32(d))
	case fieldtype.Utf8String:
		f.Value = []byte(v.GetStringValue())
	case fieldtype.MultiString:
		for _, el := range v.GetListValue().GetValues() {
			f.Multi = append(f.Multi, []byte(el.GetStringValue()))
		}
	default:
		return f, fmt.Errorf("[Qdrant] field %q: %s is not a payload type", fd.Name, fd.Type)
	}
	return f, nil
}

// buildFilter translates engine filters into a conjunction of conditions.
// It returns nil when there is nothing to filter.
func buildFilter(decl schema.TableDeclaration, ranges []engine.RangeFilter, terms []engine.TermFilter) (*qdrant.Filter, error) {
	var must []*qdrant.Condition
	for _, rf := range ranges {
		fd, ok := decl.Field(rf.Field)
		if !ok || !fd.Type.Numeric() {
			return nil, fmt.Errorf("[Qdrant] range filter on non-numeric field %q", rf.Field)
		}
		r := &qdrant.Range{}
		if rf.Lower != nil {
			lo, err := codec.DecodeNumber(fd.Type, rf.Lower)
			if err != nil {
				return nil, err
			}
			if rf.IncludeLower {
				r.Gte = qdrant.PtrOf(lo)
			} else {
				r.Gt = qdrant.PtrOf(lo)
			}
		}
		if rf.Upper != nil {
			hi, err := codec.DecodeNumber(fd.Type, rf.Upper)
			if err != nil {
				return nil, err
			}
			if rf.IncludeUpper {
				r.Lte = qdrant.PtrOf(hi)
			} else {
				r.Lt = qdrant.PtrOf(hi)
			}
		}
		must = append(must, qdrant.NewRange(rf.Field, r))
	}

	for _, tf := range terms {
		fd, ok := decl.Field(tf.Field)
		if !ok || !fd.Type.Textual() {
			return nil, fmt.Errorf("[Qdrant] term filter on non-textual field %q", tf.Field)
		}
		if len(tf.Values) == 0 {
			continue
		}
		if tf.Union {
			must = append(must, qdrant.NewMatchKeywords(tf.Field, tf.Values...))
			continue
		}
		for _, v := range tf.Values {
			must = append(must, qdrant.NewMatch(tf.Field, v))
		}
	}

	if len(must) == 0 {
		return nil, nil
	}
	return &qdrant.Filter{Must: must}, nil
}
