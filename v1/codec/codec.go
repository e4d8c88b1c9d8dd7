package codec

import (
	"encoding/binary"
	"math"

	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
)

// Value is an encoded field. Scalars, strings and vectors use Raw; MultiString
// uses Multi, one element per string, because the engine envelope appends
// strings individually rather than storing one blob.
type Value struct {
	Raw   []byte
	Multi [][]byte
}

// Encode converts v into the engine representation of ft. It fails with an
// EncodingError when the runtime shape of v disagrees with ft.
func Encode(ft fieldtype.FieldType, v any) (Value, error) {
	switch ft {
	case fieldtype.Int32:
		n, err := fieldtype.ToInt64(v)
		if err != nil {
			return Value{}, encodingErr(ft, err)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return Value{}, errs.New(errs.EncodingError, "value %d overflows INT", n)
		}
		return Value{Raw: EncodeInt32(int32(n))}, nil

	case fieldtype.Int64:
		n, err := fieldtype.ToInt64(v)
		if err != nil {
			return Value{}, encodingErr(ft, err)
		}
		return Value{Raw: EncodeInt64(n)}, nil

	case fieldtype.Float32:
		f, err := fieldtype.ToFloat64(v)
		if err != nil {
			return Value{}, encodingErr(ft, err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, errs.New(errs.EncodingError, "non-finite FLOAT %v", f)
		}
		if math.Abs(f) > math.MaxFloat32 {
			return Value{}, errs.New(errs.EncodingError, "value %v overflows FLOAT", f)
		}
		return Value{Raw: EncodeFloat32(float32(f))}, nil

	case fieldtype.Utf8String:
		s, ok := v.(string)
		if !ok {
			return Value{}, errs.New(errs.EncodingError, "expected STRING, got %T", v)
		}
		return Value{Raw: []byte(s)}, nil

	case fieldtype.MultiString:
		strs, err := toStrings(v)
		if err != nil {
			return Value{}, err
		}
		multi := make([][]byte, len(strs))
		for i, s := range strs {
			multi[i] = []byte(s)
		}
		return Value{Multi: multi}, nil

	case fieldtype.Vector:
		vec, err := ToVector(v)
		if err != nil {
			return Value{}, err
		}
		raw, err := EncodeVector(vec)
		if err != nil {
			return Value{}, err
		}
		return Value{Raw: raw}, nil
	}
	return Value{}, errs.New(errs.EncodingError, "cannot encode field type %s", ft)
}

// Decode is the byte-exact inverse of Encode. It is not required to detect
// corruption beyond length checks.
func Decode(ft fieldtype.FieldType, v Value) (any, error) {
	switch ft {
	case fieldtype.Int32:
		if len(v.Raw) != 4 {
			return nil, errs.New(errs.EncodingError, "INT needs 4 bytes, got %d", len(v.Raw))
		}
		return int32(binary.LittleEndian.Uint32(v.Raw)), nil
	case fieldtype.Int64:
		if len(v.Raw) != 8 {
			return nil, errs.New(errs.EncodingError, "LONG needs 8 bytes, got %d", len(v.Raw))
		}
		return int64(binary.LittleEndian.Uint64(v.Raw)), nil
	case fieldtype.Float32:
		if len(v.Raw) != 4 {
			return nil, errs.New(errs.EncodingError, "FLOAT needs 4 bytes, got %d", len(v.Raw))
		}
		return math.Float32frombits(binary.LittleEndian.Uint32(v.Raw)), nil
	case fieldtype.Utf8String:
		return string(v.Raw), nil
	case fieldtype.MultiString:
		out := make([]string, len(v.Multi))
		for i, b := range v.Multi {
			out[i] = string(b)
		}
		return out, nil
	case fieldtype.Vector:
		return DecodeVector(v.Raw)
	}
	return nil, errs.New(errs.EncodingError, "cannot decode field type %s", ft)
}

// Zero returns the backfill value of ft: 0, 0.0, "" or [""]. Vectors have no
// zero value and report false.
func Zero(ft fieldtype.FieldType) (any, bool) {
	switch ft {
	case fieldtype.Int32:
		return int32(0), true
	case fieldtype.Int64:
		return int64(0), true
	case fieldtype.Float32:
		return float32(0), true
	case fieldtype.Utf8String:
		return "", true
	case fieldtype.MultiString:
		return []string{""}, true
	}
	return nil, false
}

func EncodeInt32(n int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return b
}

func EncodeInt64(n int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(n))
	return b
}

func EncodeFloat32(f float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
	return b
}

// EncodeVector concatenates the little-endian float32 components of vec.
func EncodeVector(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, errs.New(errs.EncodingError, "empty VECTOR")
	}
	b := make([]byte, 4*len(vec))
	for i, f := range vec {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return nil, errs.New(errs.EncodingError, "non-finite VECTOR component at %d", i)
		}
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b, nil
}

// Normalize scales vec to unit L2 length. Inner-product tables store and
// query unit vectors so the score is the cosine similarity.
func Normalize(vec []float32) ([]float32, error) {
	var sum float64
	for _, f := range vec {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return nil, errs.New(errs.EncodingError, "cannot normalize a zero vector")
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	for i, f := range vec {
		out[i] = float32(float64(f) / norm)
	}
	return out, nil
}

// DecodeVector splits raw into float32 components.
func DecodeVector(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, errs.New(errs.EncodingError, "VECTOR length %d is not a multiple of 4", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return out, nil
}

// DecodeNumber decodes a numeric scalar of type ft as float64, for range
// comparisons across INT, LONG and FLOAT columns.
func DecodeNumber(ft fieldtype.FieldType, raw []byte) (float64, error) {
	v, err := Decode(ft, Value{Raw: raw})
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	}
	return 0, errs.New(errs.EncodingError, "%s is not numeric", ft)
}

// ToVector converts a numeric sequence into float32 components.
func ToVector(v any) ([]float32, error) {
	switch x := v.(type) {
	case []float32:
		return x, nil
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out, nil
	}
	els, ok := fieldtype.Elements(v)
	if !ok {
		return nil, errs.New(errs.EncodingError, "expected VECTOR, got %T", v)
	}
	out := make([]float32, len(els))
	for i, e := range els {
		f, err := fieldtype.ToFloat64(e)
		if err != nil {
			return nil, errs.Wrap(errs.EncodingError, err, "VECTOR component %d", i)
		}
		out[i] = float32(f)
	}
	return out, nil
}

func toStrings(v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []string:
		return x, nil
	}
	els, ok := fieldtype.Elements(v)
	if !ok {
		return nil, errs.New(errs.EncodingError, "expected MULTI_STRING, got %T", v)
	}
	out := make([]string, len(els))
	for i, e := range els {
		s, ok := e.(string)
		if !ok {
			return nil, errs.New(errs.EncodingError, "MULTI_STRING element %d is %T", i, e)
		}
		out[i] = s
	}
	return out, nil
}

func encodingErr(ft fieldtype.FieldType, err error) error {
	return errs.Wrap(errs.EncodingError, err, "encode %s", ft)
}
