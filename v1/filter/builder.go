package filter

import (
	"errors"
	"sort"
	"strings"

	"github.com/awa-ai/awadb/v1/codec"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/schema"
)

// Logger receives the warnings emitted for skipped filter keys.
type Logger interface {
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Result holds the engine filters built from a filter map.
type Result struct {
	Ranges []engine.RangeFilter
	Terms  []engine.TermFilter

	// Skipped lists the keys that named no known field.
	Skipped []string
}

// Empty reports whether no filter was produced.
func (r Result) Empty() bool {
	return len(r.Ranges) == 0 && len(r.Terms) == 0
}

// Builder translates filter maps into range and term filters.
type Builder struct {
	log Logger
}

func NewBuilder(log Logger) *Builder {
	return &Builder{log: log}
}

type bound struct {
	key       string
	value     any
	inclusive bool
}

type clause struct {
	field string
	bare  *bound
	lower *bound
	upper *bound
}

// prefixes are tried in order; "maxe_" and "mine_" must precede their
// exclusive counterparts.
var prefixes = []struct {
	prefix    string
	upper     bool
	inclusive bool
}{
	{"maxe_", true, true},
	{"mine_", false, true},
	{"max_", true, false},
	{"min_", false, false},
}

// Build translates filters against the schema of st.
//
// A key that equals a known field name is a bare key. Otherwise one of the
// prefixes maxe_, mine_, max_ or min_ is stripped to obtain an inclusive or
// exclusive bound. Keys naming no known field are logged and skipped.
func (b *Builder) Build(st *schema.State, filters map[string]any) (Result, error) {
	var res Result
	if len(filters) == 0 {
		return res, nil
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := map[string]*clause{}
	get := func(field string) *clause {
		c, ok := clauses[field]
		if !ok {
			c = &clause{field: field}
			clauses[field] = c
		}
		return c
	}

	for _, key := range keys {
		v := filters[key]
		if _, ok := st.Type(key); ok {
			c := get(key)
			c.bare = &bound{key: key, value: v, inclusive: true}
			continue
		}

		matched := false
		for _, p := range prefixes {
			field, ok := strings.CutPrefix(key, p.prefix)
			if !ok {
				continue
			}
			if _, known := st.Type(field); !known {
				break
			}
			matched = true
			c := get(field)
			bd := &bound{key: key, value: v, inclusive: p.inclusive}
			slot := &c.lower
			if p.upper {
				slot = &c.upper
			}
			if *slot != nil {
				return Result{}, errs.New(errs.AmbiguousFilter, "keys %q and %q set the same bound", (*slot).key, key).
					WithTable(st.Key.String()).WithField(field)
			}
			*slot = bd
			break
		}
		if !matched {
			res.Skipped = append(res.Skipped, key)
			if b.log != nil {
				b.log.Warn("skipping filter on unknown field", errs.New(errs.UnknownFilterField, "no field for key %q", key), map[string]interface{}{
					"table": st.Key.String(),
					"key":   key,
				})
			}
		}
	}

	fields := make([]string, 0, len(clauses))
	for f := range clauses {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, field := range fields {
		c := clauses[field]
		ft, _ := st.Type(field)
		scope := func(e *errs.Error) error {
			return e.WithTable(st.Key.String()).WithField(field)
		}

		if c.bare != nil && (c.lower != nil || c.upper != nil) {
			other := c.lower
			if other == nil {
				other = c.upper
			}
			return Result{}, scope(errs.New(errs.AmbiguousFilter, "bare key %q combined with %q", c.bare.key, other.key))
		}

		switch {
		case ft.Numeric():
			rf, err := rangeFilter(ft, c)
			if err != nil {
				var e *errs.Error
				if errors.As(err, &e) {
					return Result{}, scope(e)
				}
				return Result{}, err
			}
			res.Ranges = append(res.Ranges, rf)

		case ft.Textual():
			if c.bare == nil {
				return Result{}, scope(errs.New(errs.TypeConflict, "range bounds are not supported on %s fields", ft))
			}
			values, ok := termValues(c.bare.value)
			if !ok {
				return Result{}, scope(errs.New(errs.TypeConflict, "%s field cannot be filtered by %T", ft, c.bare.value))
			}
			res.Terms = append(res.Terms, engine.TermFilter{Field: field, Values: values, Union: true})

		default:
			return Result{}, scope(errs.New(errs.TypeConflict, "%s fields cannot be filtered", ft))
		}
	}
	return res, nil
}

func rangeFilter(ft fieldtype.FieldType, c *clause) (engine.RangeFilter, error) {
	rf := engine.RangeFilter{Field: c.field}
	if c.bare != nil {
		raw, err := encodeBound(ft, c.bare.value)
		if err != nil {
			return rf, err
		}
		rf.Lower, rf.Upper = raw, raw
		rf.IncludeLower, rf.IncludeUpper = true, true
		return rf, nil
	}
	if c.lower != nil {
		raw, err := encodeBound(ft, c.lower.value)
		if err != nil {
			return rf, err
		}
		rf.Lower, rf.IncludeLower = raw, c.lower.inclusive
	}
	if c.upper != nil {
		raw, err := encodeBound(ft, c.upper.value)
		if err != nil {
			return rf, err
		}
		rf.Upper, rf.IncludeUpper = raw, c.upper.inclusive
	}
	return rf, nil
}

func encodeBound(ft fieldtype.FieldType, v any) ([]byte, error) {
	switch fieldtype.Infer(v) {
	case fieldtype.Int32, fieldtype.Float32:
	default:
		return nil, errs.New(errs.TypeConflict, "%s field cannot be bounded by %T", ft, v)
	}
	enc, err := codec.Encode(ft, v)
	if err != nil {
		return nil, err
	}
	return enc.Raw, nil
}

func termValues(v any) ([]string, bool) {
	switch x := v.(type) {
	case string:
		return []string{x}, true
	case []string:
		return x, len(x) > 0
	}
	els, ok := fieldtype.Elements(v)
	if !ok || len(els) == 0 {
		return nil, false
	}
	out := make([]string, len(els))
	for i, e := range els {
		s, ok := e.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}
