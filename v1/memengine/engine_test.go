package memengine

import (
	"context"
	"fmt"
	"testing"

	"github.com/awa-ai/awadb/v1/codec"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var docsKey = schema.TableKey{DB: "default", Table: "docs"}

func testDecl() schema.TableDeclaration {
	return schema.TableDeclaration{
		Key:        docsKey,
		PrimaryKey: "_id",
		Fields: []schema.FieldDecl{
			{Name: "_id", Type: fieldtype.Int64, Indexed: true},
			{Name: "price", Type: fieldtype.Float32, Indexed: true},
			{Name: "title", Type: fieldtype.Utf8String, Indexed: true},
		},
		Vectors: []schema.FieldDecl{
			{Name: "emb", Type: fieldtype.Vector, Indexed: true, Dimension: 2},
		},
	}
}

func vec(t *testing.T, v ...float32) []byte {
	t.Helper()
	raw, err := codec.EncodeVector(v)
	require.NoError(t, err)
	return raw
}

func doc(t *testing.T, id int64, price float32, title string, emb ...float32) engine.Document {
	t.Helper()
	return engine.Document{
		ID:      codec.EncodeInt64(id),
		IDValue: id,
		Fields: []engine.Field{
			{Name: "_id", Type: fieldtype.Int64, Value: codec.EncodeInt64(id)},
			{Name: "price", Type: fieldtype.Float32, Value: codec.EncodeFloat32(price)},
			{Name: "title", Type: fieldtype.Utf8String, Value: []byte(title)},
			{Name: "emb", Type: fieldtype.Vector, Value: vec(t, emb...)},
		},
	}
}

func seeded(t *testing.T, cfg Config) *Engine {
	t.Helper()
	ctx := context.Background()
	e := New(cfg)
	require.NoError(t, e.Create(ctx, testDecl()))
	require.NoError(t, e.Add(ctx, docsKey, []engine.Document{
		doc(t, 1, 1, "a", 0, 0),
		doc(t, 2, 2, "b", 1, 0),
		doc(t, 3, 3, "a", 3, 0),
		doc(t, 4, 4, "c", 0, 5),
	}))
	return e
}

func ids(rows []engine.Row) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		v, _ := codec.Decode(fieldtype.Int64, codec.Value{Raw: r.ID})
		out[i] = v.(int64)
	}
	return out
}

func defaultQuery(t *testing.T, v ...float32) engine.VectorQuery {
	return engine.VectorQuery{Field: "emb", Value: vec(t, v...), MinScore: -1, MaxScore: 999999, Boost: 1}
}

func TestSearchL2(t *testing.T) {
	e := seeded(t, Config{Workers: 2, ChunkSize: 1})

	rows, err := e.Search(context.Background(), engine.SearchRequest{
		DB: "default", Table: "docs",
		VectorQueries: []engine.VectorQuery{defaultQuery(t, 1, 0)},
		TopN:          3,
		Projection:    []string{"title"},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1, 3}, ids(rows))
	assert.Equal(t, 0.0, rows[0].Score)
	assert.Equal(t, 1.0, rows[1].Score)
	require.Len(t, rows[0].Fields, 1)
	assert.Equal(t, []byte("b"), rows[0].Fields[0].Value)
}

func TestSearchInnerProductAndFilters(t *testing.T) {
	e := seeded(t, Config{})

	rows, err := e.Search(context.Background(), engine.SearchRequest{
		DB: "default", Table: "docs",
		VectorQueries: []engine.VectorQuery{defaultQuery(t, 1, 0)},
		TermFilters:   []engine.TermFilter{{Field: "title", Values: []string{"a", "b"}, Union: true}},
		RangeFilters:  []engine.RangeFilter{{Field: "price", Lower: codec.EncodeFloat32(1), IncludeLower: false}},
		TopN:          10,
		Metric:        engine.InnerProduct,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2}, ids(rows))
	assert.Equal(t, 3.0, rows[0].Score)
	assert.Len(t, rows[0].Fields, 4)
}

func TestLongRangeIsExactAbove2To53(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})
	require.NoError(t, e.Create(ctx, testDecl()))

	const base = int64(1) << 53
	require.NoError(t, e.Add(ctx, docsKey, []engine.Document{
		doc(t, base, 1, "a", 0, 0),
		doc(t, base+1, 1, "a", 0, 0),
		doc(t, base+2, 1, "a", 0, 0),
	}))

	rows, err := e.Get(ctx, engine.GetRequest{
		Key:          docsKey,
		RangeFilters: []engine.RangeFilter{{Field: "_id", Lower: codec.EncodeInt64(base + 1), IncludeLower: true}},
		Limit:        10,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{base + 1, base + 2}, ids(rows))

	rows, err = e.Get(ctx, engine.GetRequest{
		Key:          docsKey,
		RangeFilters: []engine.RangeFilter{{Field: "_id", Upper: codec.EncodeInt64(base + 1), IncludeUpper: false}},
		Limit:        10,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{base}, ids(rows))
}

func TestSearchScoreWindow(t *testing.T) {
	e := seeded(t, Config{})
	q := defaultQuery(t, 0, 0)
	q.MaxScore = 1.5

	rows, err := e.Search(context.Background(), engine.SearchRequest{
		DB: "default", Table: "docs", VectorQueries: []engine.VectorQuery{q}, TopN: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(rows))
}

func TestUpsertReplacesPostings(t *testing.T) {
	e := seeded(t, Config{})
	ctx := context.Background()
	require.NoError(t, e.Add(ctx, docsKey, []engine.Document{doc(t, 1, 9, "z", 0, 0)}))
	assert.Equal(t, 4, e.Len(docsKey))

	rows, err := e.Get(ctx, engine.GetRequest{
		Key:         docsKey,
		TermFilters: []engine.TermFilter{{Field: "title", Values: []string{"a"}, Union: true}},
		Limit:       10,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(rows))
}

func TestGetAndDelete(t *testing.T) {
	e := seeded(t, Config{})
	ctx := context.Background()

	rows, err := e.Get(ctx, engine.GetRequest{
		Key: docsKey,
		IDs: [][]byte{codec.EncodeInt64(3), codec.EncodeInt64(42), codec.EncodeInt64(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(rows))

	rows, err = e.Get(ctx, engine.GetRequest{Key: docsKey, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(rows))

	require.NoError(t, e.Delete(ctx, docsKey, [][]byte{codec.EncodeInt64(1), codec.EncodeInt64(99)}))
	assert.Equal(t, 3, e.Len(docsKey))
	rows, err = e.Get(ctx, engine.GetRequest{Key: docsKey, IDs: [][]byte{codec.EncodeInt64(1)}})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTermIntersection(t *testing.T) {
	ctx := context.Background()
	e := New(DefaultConfig())
	decl := schema.TableDeclaration{
		Key:     docsKey,
		Fields:  []schema.FieldDecl{{Name: "_id", Type: fieldtype.Utf8String}},
		Vectors: []schema.FieldDecl{{Name: "emb", Type: fieldtype.Vector, Dimension: 1}},
	}
	require.NoError(t, e.Create(ctx, decl))
	require.NoError(t, e.AddField(ctx, docsKey, schema.FieldDecl{Name: "tags", Type: fieldtype.MultiString}))

	mk := func(id string, tags ...string) engine.Document {
		multi := make([][]byte, len(tags))
		for i, tag := range tags {
			multi[i] = []byte(tag)
		}
		return engine.Document{ID: []byte(id), Fields: []engine.Field{
			{Name: "_id", Type: fieldtype.Utf8String, Value: []byte(id)},
			{Name: "tags", Type: fieldtype.MultiString, Multi: multi},
			{Name: "emb", Type: fieldtype.Vector, Value: vec(t, 1)},
		}}
	}
	require.NoError(t, e.Add(ctx, docsKey, []engine.Document{mk("x", "red", "big"), mk("y", "red"), mk("z", "big")}))

	both, err := e.Get(ctx, engine.GetRequest{Key: docsKey, TermFilters: []engine.TermFilter{{Field: "tags", Values: []string{"red", "big"}}}})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, []byte("x"), both[0].ID)

	either, err := e.Get(ctx, engine.GetRequest{Key: docsKey, TermFilters: []engine.TermFilter{{Field: "tags", Values: []string{"red", "big"}, Union: true}}})
	require.NoError(t, err)
	assert.Len(t, either, 3)
}

func TestSchemaOperations(t *testing.T) {
	ctx := context.Background()
	e := seeded(t, Config{})

	assert.Error(t, e.Create(ctx, testDecl()), "tables are created once")
	require.NoError(t, e.AddField(ctx, docsKey, schema.FieldDecl{Name: "tags", Type: fieldtype.MultiString}))
	require.NoError(t, e.AddField(ctx, docsKey, schema.FieldDecl{Name: "tags", Type: fieldtype.MultiString}))
	assert.Error(t, e.AddField(ctx, docsKey, schema.FieldDecl{Name: "tags", Type: fieldtype.Int32}))
	assert.Error(t, e.AddField(ctx, docsKey, schema.FieldDecl{Name: "v2", Type: fieldtype.Vector, Dimension: 2}))

	decl, err := e.Describe(ctx, docsKey)
	require.NoError(t, err)
	assert.Len(t, decl.Fields, 4)
	assert.Equal(t, "tags", decl.Fields[3].Name)

	other := schema.TableKey{DB: "other", Table: "t"}
	d := testDecl()
	d.Key = other
	require.NoError(t, e.Create(ctx, d))

	keys, err := e.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []schema.TableKey{docsKey, other}, keys)
	keys, err = e.List(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []schema.TableKey{other}, keys)

	require.NoError(t, e.Drop(ctx, other))
	assert.ErrorIs(t, e.Drop(ctx, other), errs.ErrTableNotFound)
	_, err = e.Describe(ctx, other)
	assert.ErrorIs(t, err, errs.ErrTableNotFound)
	_, err = e.Search(ctx, engine.SearchRequest{DB: "other", Table: "t"})
	assert.ErrorIs(t, err, errs.ErrTableNotFound)
}

func TestAddValidatesWholeBatch(t *testing.T) {
	ctx := context.Background()
	e := seeded(t, Config{})

	bad := doc(t, 9, 1, "q", 1, 1)
	bad.Fields[3].Value = vec(t, 1, 2, 3)
	err := e.Add(ctx, docsKey, []engine.Document{doc(t, 8, 1, "q", 1, 1), bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
	assert.Equal(t, 4, e.Len(docsKey))

	unknown := doc(t, 10, 1, "q", 1, 1)
	unknown.Fields = append(unknown.Fields, engine.Field{Name: "nope", Type: fieldtype.Int32, Value: codec.EncodeInt32(1)})
	assert.Error(t, e.Add(ctx, docsKey, []engine.Document{unknown}))

	_, err = e.Search(ctx, engine.SearchRequest{DB: "default", Table: "docs", VectorQueries: []engine.VectorQuery{defaultQuery(t, 1, 2, 3)}})
	assert.Error(t, err)
}

func TestSearchManyRowsConcurrently(t *testing.T) {
	ctx := context.Background()
	e := New(Config{Workers: 8, ChunkSize: 16})
	require.NoError(t, e.Create(ctx, testDecl()))

	docs := make([]engine.Document, 500)
	for i := range docs {
		docs[i] = doc(t, int64(i), float32(i), fmt.Sprintf("t%d", i%7), float32(i), 0)
	}
	require.NoError(t, e.Add(ctx, docsKey, docs))

	rows, err := e.Search(ctx, engine.SearchRequest{
		DB: "default", Table: "docs",
		VectorQueries: []engine.VectorQuery{defaultQuery(t, 250, 0)},
		TopN:          3,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{250, 249, 251}, ids(rows))
}
