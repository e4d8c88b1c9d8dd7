package awadb

import (
	"github.com/awa-ai/awadb/v1/codec"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/schema"
)

// Result is one decoded row. ID is an int64 or a string, following the type
// of the primary key. Score is zero for Get.
type Result struct {
	ID     any            `json:"id"`
	Score  float64        `json:"score"`
	Fields map[string]any `json:"fields"`
}

func decodeRows(st *schema.State, rows []engine.Row) ([]Result, error) {
	pk, ok := st.Type(st.PrimaryKey)
	if !ok {
		pk = fieldtype.Utf8String
	}

	out := make([]Result, 0, len(rows))
	for _, row := range rows {
		id, err := codec.Decode(pk, codec.Value{Raw: row.ID})
		if err != nil {
			return nil, decodeErr(err, st.Key, st.PrimaryKey)
		}
		res := Result{ID: id, Score: row.Score, Fields: make(map[string]any, len(row.Fields))}
		for _, f := range row.Fields {
			v, err := codec.Decode(f.Type, codec.Value{Raw: f.Value, Multi: f.Multi})
			if err != nil {
				return nil, decodeErr(err, st.Key, f.Name)
			}
			res.Fields[f.Name] = v
		}
		out = append(out, res)
	}
	return out, nil
}

func decodeErr(err error, key schema.TableKey, field string) error {
	return errs.Wrap(errs.EncodingError, err, "decode row").WithTable(key.String()).WithField(field)
}
