package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type memStore struct {
	mu    sync.Mutex
	snap  *Snapshot
	saves int
	fail  error
}

func (s *memStore) Load(context.Context) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return NewSnapshot(), nil
	}
	return s.snap, nil
}

func (s *memStore) Save(_ context.Context, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.snap = snap
	s.saves++
	return nil
}

func (s *memStore) last() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *memStore) failWith(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

func quietLogger(ctrl *gomock.Controller) *MockLogger {
	log := NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Debug(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	return log
}

// resolveDocs returns a resolve callback over a fixed batch of documents,
// visiting fields in sorted order.
func resolveDocs(docs ...map[string]any) func(*Batch) error {
	return func(b *Batch) error {
		for i, doc := range docs {
			b.StartDocument()
			names := make([]string, 0, len(doc))
			for name := range doc {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if _, code := b.Resolve(name, doc[name]); !code.OK() {
					return b.Reject(code, name, i, doc[name])
				}
			}
		}
		return nil
	}
}

func newTestRegistry(t *testing.T) (*Registry, *memStore, *gomock.Controller) {
	ctrl := gomock.NewController(t)
	store := &memStore{}
	return NewRegistry(DefaultConfig(), store, quietLogger(ctrl)), store, ctrl
}

func TestApplyFreezesTableOnFirstBatch(t *testing.T) {
	reg, store, ctrl := newTestRegistry(t)
	prov := NewMockProvisioner(ctrl)

	var created TableDeclaration
	gomock.InOrder(
		prov.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, decl TableDeclaration) error {
				created = decl
				snap := store.last()
				require.NotNil(t, snap.Tables[testKey].Intent, "intent must be saved before the engine is called")
				return nil
			}),
		prov.EXPECT().AddField(gomock.Any(), testKey, FieldDecl{Name: "tags", Type: fieldtype.MultiString, Indexed: true}).Return(nil),
	)

	st, err := reg.Table(testKey).Apply(context.Background(), resolveDocs(map[string]any{
		"_id":            "a",
		"embedding_text": "hello",
		"emb":            []float32{1, 2},
		"tags":           []string{"x"},
	}), prov)
	require.NoError(t, err)

	assert.True(t, st.Frozen)
	assert.Nil(t, st.Intent)
	assert.Empty(t, st.Pending)

	assert.Equal(t, testKey, created.Key)
	assert.Equal(t, DefaultIndexingSize, created.IndexingSize)
	assert.Equal(t, DefaultRetrievalType, created.RetrievalType)
	assert.Equal(t, DefaultRetrievalParam, created.RetrievalParam)
	assert.Equal(t, []FieldDecl{
		{Name: "_id", Type: fieldtype.Utf8String, Indexed: true},
		{Name: "embedding_text", Type: fieldtype.Utf8String, Indexed: false},
	}, created.Fields)
	require.Len(t, created.Vectors, 1)
	assert.Equal(t, FieldDecl{
		Name: "emb", Type: fieldtype.Vector, Indexed: true, Dimension: 2,
		StoreType: DefaultVectorStoreType, StoreParam: DefaultVectorStoreParam,
	}, created.Vectors[0])

	_, ok := st.Declaration.Field("tags")
	assert.True(t, ok, "multi-string field is part of the declaration once added")

	snap := store.last()
	require.Contains(t, snap.Tables, testKey)
	assert.True(t, snap.Tables[testKey].Frozen)
	assert.Nil(t, snap.Tables[testKey].Intent)
}

func TestApplyConcurrentFirstWritersCreateOnce(t *testing.T) {
	reg, _, ctrl := newTestRegistry(t)
	prov := NewMockProvisioner(ctrl)
	prov.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	table := reg.Table(testKey)
	var wg sync.WaitGroup
	results := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = table.Apply(context.Background(), resolveDocs(map[string]any{
				"_id": "doc",
				"emb": []float32{1, 2, 3},
			}), prov)
		}(i)
	}
	wg.Wait()

	for _, err := range results {
		assert.NoError(t, err)
	}
	assert.True(t, table.State().Frozen)
}

func TestApplyConcurrentFirstWritersKeepEveryField(t *testing.T) {
	for round := 0; round < 20; round++ {
		reg, store, ctrl := newTestRegistry(t)
		prov := NewMockProvisioner(ctrl)
		prov.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(1)
		prov.EXPECT().AddField(gomock.Any(), testKey, gomock.Any()).Return(nil).Times(7)

		table := reg.Table(testKey)
		var wg sync.WaitGroup
		results := make([]error, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				doc := map[string]any{"_id": fmt.Sprintf("doc%d", i), "emb": []float32{1, 2, 3}}
				doc[fmt.Sprintf("f%d", i)] = i
				_, results[i] = table.Apply(context.Background(), resolveDocs(doc), prov)
			}(i)
		}
		wg.Wait()
		for _, err := range results {
			require.NoError(t, err)
		}

		reloaded := NewRegistry(DefaultConfig(), store, quietLogger(ctrl))
		require.NoError(t, reloaded.Load(context.Background()))
		restored, ok := reloaded.Lookup(testKey)
		require.True(t, ok)

		for _, st := range []*State{table.State(), restored.State()} {
			assert.True(t, st.Frozen)
			assert.Len(t, st.Order, 10)
			for i := range results {
				ft, ok := st.Type(fmt.Sprintf("f%d", i))
				assert.True(t, ok, "f%d lost in round %d", i, round)
				assert.Equal(t, fieldtype.Int32, ft)
			}
		}
	}
}

func TestApplyCreateFailureRollsBack(t *testing.T) {
	reg, store, ctrl := newTestRegistry(t)
	prov := NewMockProvisioner(ctrl)
	prov.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("engine down"))

	table := reg.Table(testKey)
	_, err := table.Apply(context.Background(), resolveDocs(map[string]any{"_id": "a", "emb": []float32{1}}), prov)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrEngineCreateFailed))

	st := table.State()
	assert.False(t, st.Frozen)
	assert.Nil(t, st.Intent)
	assert.Empty(t, st.Fields)
	assert.NotContains(t, store.last().Tables, testKey)
}

func TestApplyDeferredMultiStringFailureStaysPending(t *testing.T) {
	reg, _, ctrl := newTestRegistry(t)
	prov := NewMockProvisioner(ctrl)
	tags := FieldDecl{Name: "tags", Type: fieldtype.MultiString, Indexed: true}

	gomock.InOrder(
		prov.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
		prov.EXPECT().AddField(gomock.Any(), testKey, tags).Return(errors.New("busy")),
		prov.EXPECT().AddField(gomock.Any(), testKey, tags).Return(nil),
	)

	table := reg.Table(testKey)
	doc := map[string]any{"_id": "a", "emb": []float32{1}, "tags": []string{"x"}}

	st, err := table.Apply(context.Background(), resolveDocs(doc), prov)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrEngineCreateFailed))
	assert.True(t, st.Frozen)
	assert.True(t, st.IsPending("tags"))

	st, err = table.Apply(context.Background(), resolveDocs(doc), prov)
	require.NoError(t, err)
	assert.Empty(t, st.Pending)
	_, ok := st.Declaration.Field("tags")
	assert.True(t, ok)
}

func TestApplyExtendsFrozenTable(t *testing.T) {
	reg, _, ctrl := newTestRegistry(t)
	prov := NewMockProvisioner(ctrl)
	prov.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	table := reg.Table(testKey)
	_, err := table.Apply(context.Background(), resolveDocs(map[string]any{"_id": "a", "emb": []float32{1}}), prov)
	require.NoError(t, err)

	prov.EXPECT().AddField(gomock.Any(), testKey, FieldDecl{Name: "color", Type: fieldtype.Utf8String, Indexed: true}).Return(nil)
	prov.EXPECT().AddField(gomock.Any(), testKey, FieldDecl{Name: "size", Type: fieldtype.Int32, Indexed: true}).Return(errors.New("nope"))

	st, err := table.Apply(context.Background(), resolveDocs(map[string]any{
		"_id": "b", "emb": []float32{2}, "color": "red", "size": 3,
	}), prov)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrEngineAddFailed))

	_, ok := st.Type("color")
	assert.True(t, ok)
	_, ok = st.Type("size")
	assert.False(t, ok, "refused field must not be committed")
	assert.Equal(t, st, table.State())
}

func TestApplyUnchangedFrozenTableSkipsEngine(t *testing.T) {
	reg, store, ctrl := newTestRegistry(t)
	prov := NewMockProvisioner(ctrl)
	prov.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	table := reg.Table(testKey)
	doc := map[string]any{"_id": "a", "emb": []float32{1}}
	first, err := table.Apply(context.Background(), resolveDocs(doc), prov)
	require.NoError(t, err)
	saves := store.saves

	second, err := table.Apply(context.Background(), resolveDocs(doc), prov)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, saves, store.saves)
}

func TestApplyRejectsNewVectorAfterFreeze(t *testing.T) {
	reg, _, ctrl := newTestRegistry(t)
	prov := NewMockProvisioner(ctrl)
	prov.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	table := reg.Table(testKey)
	_, err := table.Apply(context.Background(), resolveDocs(map[string]any{"_id": "a", "emb": []float32{1}}), prov)
	require.NoError(t, err)

	_, err = table.Apply(context.Background(), resolveDocs(map[string]any{"_id": "b", "emb2": []float32{1}}), prov)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrVectorAfterFreeze))
	assert.Equal(t, "emb2", errs.FieldOf(err))
}

func TestApplySnapshotFailureAfterCommit(t *testing.T) {
	reg, store, ctrl := newTestRegistry(t)
	prov := NewMockProvisioner(ctrl)
	prov.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(context.Context, TableDeclaration) error {
		store.failWith(errors.New("disk full"))
		return nil
	})

	table := reg.Table(testKey)
	st, err := table.Apply(context.Background(), resolveDocs(map[string]any{"_id": "a", "emb": []float32{1}}), prov)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrSnapshotIO))
	assert.True(t, st.Frozen, "the engine table exists, so the schema stays frozen")
	assert.NotNil(t, store.last().Tables[testKey].Intent, "the intent remains on disk for reconciliation")
}

func TestApplyCancelledContext(t *testing.T) {
	reg, _, ctrl := newTestRegistry(t)
	prov := NewMockProvisioner(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := reg.Table(testKey).Apply(ctx, resolveDocs(map[string]any{"_id": "a", "emb": []float32{1}}), prov)
	assert.ErrorIs(t, err, context.Canceled)
}
