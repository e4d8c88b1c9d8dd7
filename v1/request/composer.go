package request

import (
	"context"
	"errors"

	"github.com/awa-ai/awadb/v1/codec"
	"github.com/awa-ai/awadb/v1/embedding"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/filter"
	"github.com/awa-ai/awadb/v1/schema"
)

// Composer turns queries into engine requests against a schema view.
type Composer struct {
	cfg      Config
	embedder embedding.Embedder
	filters  *filter.Builder
	onSkip   func(table string, keys []string)
}

// NewComposer builds a Composer. embedder may be nil, in which case text
// queries are rejected.
func NewComposer(cfg Config, embedder embedding.Embedder, log filter.Logger) *Composer {
	return &Composer{
		cfg:      cfg.withDefaults(),
		embedder: embedder,
		filters:  filter.NewBuilder(log),
	}
}

// WithSkipObserver registers fn to be called with the filter keys that named
// no known field.
func (c *Composer) WithSkipObserver(fn func(table string, keys []string)) *Composer {
	c.onSkip = fn
	return c
}

func (c *Composer) Config() Config { return c.cfg }

// Compose builds a search request over every vector field whose dimension
// matches the query vector.
func (c *Composer) Compose(ctx context.Context, st *schema.State, q Query) (engine.SearchRequest, error) {
	if st == nil || !st.Frozen {
		return engine.SearchRequest{}, errs.New(errs.TableNotFound, "table has no schema")
	}
	table := st.Key.String()

	metric := c.cfg.Metric
	if q.Metric != nil {
		metric = *q.Metric
	}

	vec, err := c.queryVector(ctx, q.Value)
	if err != nil {
		return engine.SearchRequest{}, scoped(err, table)
	}
	if metric == engine.InnerProduct {
		if vec, err = codec.Normalize(vec); err != nil {
			return engine.SearchRequest{}, scoped(err, table)
		}
	}
	raw, err := codec.EncodeVector(vec)
	if err != nil {
		return engine.SearchRequest{}, scoped(err, table)
	}

	var queries []engine.VectorQuery
	for _, field := range st.VectorFields() {
		if dim, _ := st.Dimension(field); int(dim) != len(vec) {
			continue
		}
		boost := DefaultBoost
		if b, ok := q.Boosts[field]; ok {
			boost = b
		}
		queries = append(queries, engine.VectorQuery{
			Field:    field,
			Value:    raw,
			MinScore: DefaultMinScore,
			MaxScore: DefaultMaxScore,
			Boost:    boost,
		})
	}
	if len(queries) == 0 {
		return engine.SearchRequest{}, errs.New(errs.NoDimensionMatch, "no vector field has dimension %d", len(vec)).WithTable(table)
	}

	res, err := c.buildFilters(st, q.Filters)
	if err != nil {
		return engine.SearchRequest{}, err
	}

	topN := q.TopN
	if topN <= 0 {
		topN = c.cfg.TopN
	}

	return engine.SearchRequest{
		DB:            st.Key.DB,
		Table:         st.Key.Table,
		VectorQueries: queries,
		RangeFilters:  res.Ranges,
		TermFilters:   res.Terms,
		TopN:          topN,
		BruteForce:    q.BruteForce,
		Projection:    projection(st, q.Include),
		Metric:        metric,
	}, nil
}

// ComposeGet builds a get request by primary key, or by filter when no ids
// are given.
func (c *Composer) ComposeGet(_ context.Context, st *schema.State, q GetQuery) (engine.GetRequest, error) {
	if st == nil || !st.Frozen {
		return engine.GetRequest{}, errs.New(errs.TableNotFound, "table has no schema")
	}

	ids, err := EncodeIDs(st, q.IDs)
	if err != nil {
		return engine.GetRequest{}, err
	}
	if len(ids) == 0 && len(q.Filters) == 0 {
		return engine.GetRequest{}, errs.New(errs.InvalidQuery, "get needs ids or filters").WithTable(st.Key.String())
	}

	res, err := c.buildFilters(st, q.Filters)
	if err != nil {
		return engine.GetRequest{}, err
	}

	limit := q.Limit
	switch {
	case len(ids) > 0 && limit <= 0:
		limit = len(ids)
	case limit <= 0:
		limit = c.cfg.GetLimit
	}

	return engine.GetRequest{
		Key:          st.Key,
		IDs:          ids,
		RangeFilters: res.Ranges,
		TermFilters:  res.Terms,
		Limit:        limit,
		Projection:   projection(st, q.Include),
	}, nil
}

// EncodeIDs encodes primary-key values for a table. LONG keys become 8-byte
// little-endian ids and STRING keys their raw bytes.
func EncodeIDs(st *schema.State, ids []any) ([][]byte, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pk, ok := st.Type(st.PrimaryKey)
	if !ok {
		return nil, errs.New(errs.InvalidQuery, "primary key %q is not registered", st.PrimaryKey).WithTable(st.Key.String())
	}

	out := make([][]byte, len(ids))
	for i, id := range ids {
		switch pk {
		case fieldtype.Int64:
			if !fieldtype.IsIntegral(id) {
				return nil, errs.New(errs.InvalidQuery, "id %v is not an integer", id).WithTable(st.Key.String()).WithField(st.PrimaryKey)
			}
			n, err := fieldtype.ToInt64(id)
			if err != nil {
				return nil, errs.Wrap(errs.InvalidQuery, err, "id %v", id).WithTable(st.Key.String()).WithField(st.PrimaryKey)
			}
			out[i] = codec.EncodeInt64(n)
		case fieldtype.Utf8String:
			s, ok := id.(string)
			if !ok {
				return nil, errs.New(errs.InvalidQuery, "id %v is not a string", id).WithTable(st.Key.String()).WithField(st.PrimaryKey)
			}
			out[i] = []byte(s)
		default:
			return nil, errs.New(errs.InvalidQuery, "primary key of type %s cannot address documents", pk).WithTable(st.Key.String()).WithField(st.PrimaryKey)
		}
	}
	return out, nil
}

func (c *Composer) buildFilters(st *schema.State, filters map[string]any) (filter.Result, error) {
	res, err := c.filters.Build(st, filters)
	if err != nil {
		return filter.Result{}, err
	}
	if len(res.Skipped) > 0 && c.onSkip != nil {
		c.onSkip(st.Key.String(), res.Skipped)
	}
	return res, nil
}

func (c *Composer) queryVector(ctx context.Context, v any) ([]float32, error) {
	switch fieldtype.Infer(v) {
	case fieldtype.Utf8String:
		if c.embedder == nil {
			return nil, errs.New(errs.InvalidQuery, "text query without an embedder")
		}
		vec, err := c.embedder.Embed(ctx, v.(string))
		if err != nil {
			return nil, errs.Wrap(errs.EmbeddingFailed, err, "embed query")
		}
		return vec, nil
	case fieldtype.Vector:
		return codec.ToVector(v)
	}
	return nil, errs.New(errs.InvalidQuery, "query must be text or a vector, got %T", v)
}

func projection(st *schema.State, include []string) []string {
	if len(include) > 0 {
		return include
	}
	return st.ScalarFields()
}

func scoped(err error, table string) error {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.WithTable(table)
	}
	return err
}
