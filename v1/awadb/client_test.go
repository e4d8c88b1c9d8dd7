package awadb

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/awa-ai/awadb/v1/codec"
	"github.com/awa-ai/awadb/v1/embedding"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/engine/enginetest"
	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/events"
	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/memengine"
	"github.com/awa-ai/awadb/v1/metrics"
	"github.com/awa-ai/awadb/v1/request"
	"github.com/awa-ai/awadb/v1/schema"
	"github.com/awa-ai/awadb/v1/snapshot"
	"github.com/awa-ai/awadb/v1/tracer"
)

var docsKey = schema.TableKey{DB: "default", Table: "docs"}

func openClient(t *testing.T, root string, eng engine.Engine, opts ...Option) *Client {
	t.Helper()
	store, err := snapshot.NewFileStore(root)
	require.NoError(t, err)
	c, err := Open(context.Background(), DefaultConfig(), store, eng, opts...)
	require.NoError(t, err)
	return c
}

func seed(t *testing.T, c *Client) {
	t.Helper()
	ids, err := c.AddMaps(context.Background(), "docs", []map[string]any{
		{"_id": 1, "title": "red", "price": 1.5, "emb": []float32{0, 0}},
		{"_id": 2, "title": "blue", "price": 2.5, "emb": []float32{1, 0}},
		{"_id": 3, "title": "red", "price": 3.5, "emb": []float32{3, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, ids)
}

func resultIDs(res []Result) []any {
	out := make([]any, len(res))
	for i, r := range res {
		out[i] = r.ID
	}
	return out
}

func TestAddAndSearch(t *testing.T) {
	ctx := context.Background()
	c := openClient(t, t.TempDir(), memengine.New(memengine.DefaultConfig()))
	seed(t, c)

	res, err := c.Search(ctx, "docs", request.Query{Value: []float32{0.9, 0}})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []any{int64(2), int64(1), int64(3)}, resultIDs(res))
	assert.InDelta(t, 0.01, res[0].Score, 1e-6)
	assert.Equal(t, "blue", res[0].Fields["title"])
	assert.Equal(t, float32(2.5), res[0].Fields["price"])
	assert.Equal(t, int64(2), res[0].Fields["_id"])
	assert.NotContains(t, res[0].Fields, "emb")

	res, err = c.Search(ctx, "docs", request.Query{
		Value:   []float32{0.9, 0},
		Filters: map[string]any{"title": "red", "max_price": 3.0},
	})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1)}, resultIDs(res))

	assert.Equal(t, int64(3), c.Registry().Table(docsKey).DocCount())
}

func TestInnerProductScoresAreCosine(t *testing.T) {
	ctx := context.Background()
	store, err := snapshot.NewFileStore(t.TempDir())
	require.NoError(t, err)
	cfg := DefaultConfig().WithMetric(engine.InnerProduct)
	c, err := Open(ctx, cfg, store, memengine.New(memengine.DefaultConfig()))
	require.NoError(t, err)

	_, err = c.AddMaps(ctx, "docs", []map[string]any{
		{"_id": 1, "emb": []float32{-10, 0}},
		{"_id": 2, "emb": []float32{10, 0}},
		{"_id": 3, "emb": []float32{1, 1}},
	})
	require.NoError(t, err)

	res, err := c.Search(ctx, "docs", request.Query{Value: []float32{5, 0}})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, []any{int64(2), int64(3), int64(1)}, resultIDs(res))
	assert.InDelta(t, 1, res[0].Score, 1e-6)
	assert.InDelta(t, 0.70710678, res[1].Score, 1e-6)
	assert.InDelta(t, -1, res[2].Score, 1e-6)

	_, err = c.AddMaps(ctx, "docs", []map[string]any{{"_id": 4, "emb": []float32{0, 0}}})
	assert.True(t, errors.Is(err, errs.ErrEncoding), err)
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()
	c := openClient(t, t.TempDir(), memengine.New(memengine.DefaultConfig()))

	_, err := c.Search(ctx, "missing", request.Query{Value: []float32{1, 0}})
	assert.True(t, errors.Is(err, errs.ErrTableNotFound), err)

	seed(t, c)
	_, err = c.Search(ctx, "docs", request.Query{Value: []float32{1, 0, 0}})
	assert.True(t, errors.Is(err, errs.ErrNoDimensionMatch), err)

	_, err = c.Search(ctx, "docs", request.Query{Value: "text"})
	assert.True(t, errors.Is(err, errs.ErrInvalidQuery), err)
}

func TestAddRejectsWholeBatch(t *testing.T) {
	ctx := context.Background()
	m := metrics.NewMetrics(metrics.Config{ServiceName: "awadb"})
	c := openClient(t, t.TempDir(), memengine.New(memengine.DefaultConfig()), WithMetrics(m))
	seed(t, c)

	_, err := c.AddMaps(ctx, "docs", []map[string]any{
		{"_id": 4, "title": "green", "price": 4.5, "emb": []float32{4, 0}},
		{"_id": 5, "title": "green", "price": "cheap", "emb": []float32{5, 0}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrTypeConflict))
	assert.Equal(t, "price", errs.FieldOf(err))

	_, err = c.AddMaps(ctx, "docs", []map[string]any{{"_id": 6, "emb": []float32{1, 2, 3}}})
	assert.True(t, errors.Is(err, errs.ErrDimensionMismatch))

	_, err = c.AddMaps(ctx, "docs", []map[string]any{{"_id": 7, "other": []float32{1, 2}}})
	assert.True(t, errors.Is(err, errs.ErrVectorAfterFreeze))

	res, err := c.Get(ctx, "docs", request.GetQuery{IDs: []any{4}})
	require.NoError(t, err)
	assert.Empty(t, res)

	expected := `
# HELP awadb_batches_rejected_total Batches aborted by a validation or engine error
# TYPE awadb_batches_rejected_total counter
awadb_batches_rejected_total{kind="dimension_mismatch",service="awadb",table="default/docs"} 1
awadb_batches_rejected_total{kind="type_conflict",service="awadb",table="default/docs"} 1
awadb_batches_rejected_total{kind="vector_after_freeze",service="awadb",table="default/docs"} 1
# HELP awadb_documents_ingested_total Documents accepted by Add
# TYPE awadb_documents_ingested_total counter
awadb_documents_ingested_total{service="awadb",table="default/docs"} 3
# HELP awadb_table_freezes_total Tables frozen by their first write
# TYPE awadb_table_freezes_total counter
awadb_table_freezes_total{service="awadb",table="default/docs"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry, strings.NewReader(expected),
		"awadb_batches_rejected_total", "awadb_documents_ingested_total", "awadb_table_freezes_total"))
}

func TestAddTexts(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	emb := embedding.NewMockEmbedder(ctrl)
	emb.EXPECT().EmbedBatch(gomock.Any(), []string{"second"}).Return([][]float32{{0, 1}}, nil)

	c := openClient(t, t.TempDir(), memengine.New(memengine.DefaultConfig()), WithEmbedder(emb))

	ids, err := c.AddTexts(ctx, "notes", []string{"first", "second"}, TextOptions{
		Embeddings: [][]float32{{1, 0}, nil},
		Metadata:   []map[string]any{{"source": "a"}, {"source": "b", DefaultEmbeddingField: []float32{9, 9}}},
	})
	require.NoError(t, err)

	sum := md5.Sum([]byte("first"))
	require.Len(t, ids, 2)
	assert.Equal(t, hex.EncodeToString(sum[:]), ids[0])

	res, err := c.Get(ctx, "notes", request.GetQuery{IDs: ids})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "first", res[0].Fields["embedding_text"])
	assert.Equal(t, "b", res[1].Fields["source"])

	decl, err := c.Describe(ctx, "notes")
	require.NoError(t, err)
	text, ok := decl.Field("embedding_text")
	require.True(t, ok)
	assert.False(t, text.Indexed)
	vec, ok := decl.Field(DefaultEmbeddingField)
	require.True(t, ok)
	assert.Equal(t, uint32(2), vec.Dimension)

	_, err = c.AddTexts(ctx, "notes", []string{"x"}, TextOptions{IDs: []any{"a", "b"}})
	assert.True(t, errors.Is(err, errs.ErrInvalidQuery))
}

func TestAddTextsWithoutEmbedder(t *testing.T) {
	c := openClient(t, t.TempDir(), memengine.New(memengine.DefaultConfig()))
	_, err := c.AddTexts(context.Background(), "notes", []string{"x"}, TextOptions{})
	assert.True(t, errors.Is(err, errs.ErrEmbeddingFailed))
}

func TestGetAndDelete(t *testing.T) {
	ctx := context.Background()
	c := openClient(t, t.TempDir(), memengine.New(memengine.DefaultConfig()))
	seed(t, c)

	res, err := c.Get(ctx, "docs", request.GetQuery{IDs: []any{3, 1}, Include: []string{"title"}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(3), int64(1)}, resultIDs(res))
	assert.Equal(t, map[string]any{"title": "red"}, res[0].Fields)

	n, err := c.Delete(ctx, "docs", request.GetQuery{Filters: map[string]any{"min_price": 2.0}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.Delete(ctx, "docs", request.GetQuery{IDs: []any{1}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err = c.Get(ctx, "docs", request.GetQuery{IDs: []any{1, 2, 3}})
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = c.Get(ctx, "docs", request.GetQuery{IDs: []any{"one"}})
	assert.Error(t, err)
}

func TestSchemaEvents(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	pub := events.NewMockPublisher(ctrl)

	var got []events.Event
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, ev events.Event) error {
		got = append(got, ev)
		return nil
	}).AnyTimes()

	c := openClient(t, t.TempDir(), memengine.New(memengine.DefaultConfig()),
		WithNotifier(events.NewNotifier(pub, nil)))
	seed(t, c)
	seed(t, c)

	_, err := c.AddMaps(ctx, "docs", []map[string]any{{"_id": 9, "author": "ann", "emb": []float32{1, 1}}})
	require.NoError(t, err)
	require.NoError(t, c.Drop(ctx, docsKey))

	require.Len(t, got, 3)
	assert.Equal(t, events.TableCreated, got[0].Type)
	require.NotNil(t, got[0].Declaration)
	assert.Len(t, got[0].Declaration.Vectors, 1)
	assert.Equal(t, events.FieldAdded, got[1].Type)
	assert.Equal(t, "author", got[1].Field.Name)
	assert.Equal(t, events.TableDropped, got[2].Type)
	assert.Equal(t, docsKey, got[2].Table)
}

func TestDropAndList(t *testing.T) {
	ctx := context.Background()
	c := openClient(t, t.TempDir(), memengine.New(memengine.DefaultConfig()))
	seed(t, c)

	keys, err := c.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []schema.TableKey{docsKey}, keys)

	require.NoError(t, c.Drop(ctx, docsKey))
	_, ok := c.Registry().Lookup(docsKey)
	assert.False(t, ok)

	err = c.Drop(ctx, docsKey)
	assert.True(t, errors.Is(err, errs.ErrTableNotFound), err)

	// The name is free again and takes a new schema.
	_, err = c.AddMaps(ctx, "docs", []map[string]any{{"_id": "k", "emb": []float32{1, 2, 3}}})
	require.NoError(t, err)
}

func existingDecl() schema.TableDeclaration {
	return schema.TableDeclaration{
		Key:        docsKey,
		PrimaryKey: "_id",
		Fields: []schema.FieldDecl{
			{Name: "_id", Type: fieldtype.Int64, Indexed: true},
			{Name: "title", Type: fieldtype.Utf8String, Indexed: true},
		},
		Vectors: []schema.FieldDecl{
			{Name: "emb", Type: fieldtype.Vector, Indexed: true, Dimension: 2},
		},
	}
}

func TestDescribeAdoptsEngineTable(t *testing.T) {
	ctx := context.Background()
	eng := memengine.New(memengine.DefaultConfig())
	require.NoError(t, eng.Create(ctx, existingDecl()))

	raw, err := codec.EncodeVector([]float32{1, 0})
	require.NoError(t, err)
	require.NoError(t, eng.Add(ctx, docsKey, []engine.Document{{
		ID: codec.EncodeInt64(7),
		Fields: []engine.Field{
			{Name: "_id", Type: fieldtype.Int64, Value: codec.EncodeInt64(7)},
			{Name: "title", Type: fieldtype.Utf8String, Value: []byte("kept")},
			{Name: "emb", Type: fieldtype.Vector, Value: raw},
		},
	}}))

	c := openClient(t, t.TempDir(), eng)
	decl, err := c.Describe(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, existingDecl().Vectors, decl.Vectors)

	st := c.Registry().Table(docsKey).State()
	assert.True(t, st.Frozen)
	ft, _ := st.Type("title")
	assert.Equal(t, fieldtype.Utf8String, ft)

	res, err := c.Search(ctx, "docs", request.Query{Value: []float32{1, 0}, Filters: map[string]any{"title": "kept"}})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(7)}, resultIDs(res))
}

func TestRecoverSettlesIntents(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	lostKey := schema.TableKey{DB: "default", Table: "lost"}

	pending := func(decl schema.TableDeclaration) *schema.State {
		return &schema.State{
			Key:        decl.Key,
			PrimaryKey: "_id",
			Fields:     map[string]fieldtype.FieldType{},
			Dimensions: map[string]uint32{},
			Intent: &schema.State{
				Key:         decl.Key,
				PrimaryKey:  "_id",
				Fields:      map[string]fieldtype.FieldType{"_id": fieldtype.Int64, "title": fieldtype.Utf8String, "emb": fieldtype.Vector},
				Order:       []string{"_id", "title", "emb"},
				Dimensions:  map[string]uint32{"emb": 2},
				Declaration: decl,
			},
		}
	}
	lost := existingDecl()
	lost.Key = lostKey

	store, err := snapshot.NewFileStore(root)
	require.NoError(t, err)
	snap := schema.NewSnapshot()
	snap.Tables[docsKey] = pending(existingDecl())
	snap.Tables[lostKey] = pending(lost)
	require.NoError(t, store.Save(ctx, snap))

	eng := memengine.New(memengine.DefaultConfig())
	require.NoError(t, eng.Create(ctx, existingDecl()))

	c := openClient(t, root, eng)
	assert.Empty(t, c.Registry().PendingIntents())
	assert.True(t, c.Registry().Table(docsKey).State().Frozen)
	_, ok := c.Registry().Lookup(lostKey)
	assert.False(t, ok)

	_, err = c.AddMaps(ctx, "docs", []map[string]any{{"_id": 1, "title": "t", "emb": []float32{0, 1}}})
	require.NoError(t, err)
}

func TestEngineErrorsAreClassified(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	eng := enginetest.NewMockEngine(ctrl)
	exp := tracetest.NewInMemoryExporter()
	tr := tracer.NewWithExporter(tracer.Config{ServiceName: "awadb-test", SampleRatio: 1}, exp)

	eng.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	eng.EXPECT().Add(gomock.Any(), docsKey, gomock.Len(1)).Return(errors.New("disk full"))
	eng.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))
	eng.EXPECT().Describe(gomock.Any(), schema.TableKey{DB: "default", Table: "gone"}).
		Return(schema.TableDeclaration{}, errs.New(errs.TableNotFound, "no table"))

	c := openClient(t, t.TempDir(), eng, WithTracer(tr))

	_, err := c.AddMaps(ctx, "docs", []map[string]any{{"_id": 1, "emb": []float32{1, 0}}})
	assert.True(t, errors.Is(err, errs.ErrEngineAddFailed), err)
	assert.True(t, c.Registry().Table(docsKey).State().Frozen)

	_, err = c.Search(ctx, "docs", request.Query{Value: []float32{1, 0}})
	assert.True(t, errors.Is(err, errs.ErrEngineCallFailed), err)
	assert.Contains(t, err.Error(), "timeout")

	_, err = c.Describe(ctx, "gone")
	assert.True(t, errs.IsNotFound(err))

	require.NoError(t, tr.Shutdown(ctx))
	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "awadb.Add", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "awadb.Search", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

func TestCloseFlushesDocCounts(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	eng := memengine.New(memengine.DefaultConfig())
	c := openClient(t, root, eng)
	seed(t, c)
	require.NoError(t, c.Close(ctx))

	reopened := openClient(t, root, eng)
	assert.Equal(t, int64(3), reopened.Registry().Table(docsKey).DocCount())
}
