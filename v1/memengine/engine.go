package memengine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/awa-ai/awadb/v1/codec"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/schema"
	"golang.org/x/sync/errgroup"
)

// Engine is an in-process engine.Engine. Searches are exhaustive: every
// candidate row that passes the filters is scored against every vector query.
type Engine struct {
	cfg Config

	mu     sync.RWMutex
	tables map[schema.TableKey]*table
}

var _ engine.Engine = (*Engine)(nil)

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults(), tables: map[schema.TableKey]*table{}}
}

func notFound(key schema.TableKey) error {
	return errs.New(errs.TableNotFound, "no engine table").WithTable(key.String())
}

func (e *Engine) table(key schema.TableKey) (*table, error) {
	t, ok := e.tables[key]
	if !ok {
		return nil, notFound(key)
	}
	return t, nil
}

func (e *Engine) Create(_ context.Context, decl schema.TableDeclaration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.tables[decl.Key]; exists {
		return fmt.Errorf("[MemEngine] table %s already exists", decl.Key)
	}
	t, err := newTable(decl)
	if err != nil {
		return fmt.Errorf("[MemEngine] create %s: %w", decl.Key, err)
	}
	e.tables[decl.Key] = t
	return nil
}

func (e *Engine) AddField(_ context.Context, key schema.TableKey, f schema.FieldDecl) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.table(key)
	if err != nil {
		return err
	}
	if err := t.extend(f); err != nil {
		return fmt.Errorf("[MemEngine] add field to %s: %w", key, err)
	}
	return nil
}

// Add upserts docs. The batch is validated as a whole before any row is
// stored.
func (e *Engine) Add(_ context.Context, key schema.TableKey, docs []engine.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.table(key)
	if err != nil {
		return err
	}
	rows := make([]*row, len(docs))
	for i, doc := range docs {
		if rows[i], err = t.prepare(doc); err != nil {
			return fmt.Errorf("[MemEngine] document %d: %w", i, err)
		}
	}
	for _, r := range rows {
		t.upsert(r)
	}
	return nil
}

type scored struct {
	pos   uint32
	score float64
	ok    bool
}

func (e *Engine) Search(ctx context.Context, req engine.SearchRequest) ([]engine.Row, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.table(req.Key())
	if err != nil {
		return nil, err
	}
	if len(req.VectorQueries) == 0 {
		return nil, fmt.Errorf("[MemEngine] search without vector queries")
	}

	queries := make([]query, len(req.VectorQueries))
	for i, vq := range req.VectorQueries {
		dim, ok := t.dims[vq.Field]
		if !ok {
			return nil, fmt.Errorf("[MemEngine] %q is not a vector field", vq.Field)
		}
		vec, err := codec.DecodeVector(vq.Value)
		if err != nil {
			return nil, fmt.Errorf("[MemEngine] query vector for %q: %w", vq.Field, err)
		}
		if uint32(len(vec)) != dim {
			return nil, fmt.Errorf("[MemEngine] query for %q has dimension %d, field has %d", vq.Field, len(vec), dim)
		}
		queries[i] = query{VectorQuery: vq, vec: vec}
	}

	cands, err := t.candidates(req.RangeFilters, req.TermFilters)
	if err != nil {
		return nil, fmt.Errorf("[MemEngine] filter: %w", err)
	}
	positions := cands.ToArray()
	results := make([]scored, len(positions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for start := 0; start < len(positions); start += e.cfg.ChunkSize {
		end := min(start+e.cfg.ChunkSize, len(positions))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := start; i < end; i++ {
				s, ok := score(t.rows[positions[i]], queries, req.Metric)
				results[i] = scored{pos: positions[i], score: s, ok: ok}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits := results[:0]
	for _, r := range results {
		if r.ok {
			hits = append(hits, r)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return better(req.Metric, hits[i].score, hits[j].score)
		}
		return hits[i].pos < hits[j].pos
	})
	if req.TopN > 0 && len(hits) > req.TopN {
		hits = hits[:req.TopN]
	}

	out := make([]engine.Row, len(hits))
	for i, h := range hits {
		r := t.rows[h.pos]
		out[i] = engine.Row{ID: r.id, Score: h.score, Fields: t.project(r, req.Projection)}
	}
	return out, nil
}

// Get returns rows by id, in request order, or the first Limit rows matching
// the filters.
func (e *Engine) Get(_ context.Context, req engine.GetRequest) ([]engine.Row, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.table(req.Key)
	if err != nil {
		return nil, err
	}
	cands, err := t.candidates(req.RangeFilters, req.TermFilters)
	if err != nil {
		return nil, fmt.Errorf("[MemEngine] filter: %w", err)
	}

	var out []engine.Row
	emit := func(pos uint32) bool {
		r := t.rows[pos]
		out = append(out, engine.Row{ID: r.id, Fields: t.project(r, req.Projection)})
		return req.Limit <= 0 || len(out) < req.Limit
	}

	if len(req.IDs) > 0 {
		for _, id := range req.IDs {
			pos, ok := t.byID[string(id)]
			if !ok || !cands.Contains(pos) {
				continue
			}
			if !emit(pos) {
				break
			}
		}
		return out, nil
	}

	it := cands.Iterator()
	for it.HasNext() {
		if !emit(it.Next()) {
			break
		}
	}
	return out, nil
}

// Delete removes the rows with the given ids. Unknown ids are ignored.
func (e *Engine) Delete(_ context.Context, key schema.TableKey, ids [][]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, err := e.table(key)
	if err != nil {
		return err
	}
	for _, id := range ids {
		t.remove(id)
	}
	return nil
}

func (e *Engine) Describe(_ context.Context, key schema.TableKey) (schema.TableDeclaration, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, err := e.table(key)
	if err != nil {
		return schema.TableDeclaration{}, err
	}
	return t.declaration(), nil
}

func (e *Engine) Drop(_ context.Context, key schema.TableKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.tables[key]; !ok {
		return notFound(key)
	}
	delete(e.tables, key)
	return nil
}

// List returns the tables of db sorted by name. An empty db lists every table.
func (e *Engine) List(_ context.Context, db string) ([]schema.TableKey, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	keys := make([]schema.TableKey, 0, len(e.tables))
	for k := range e.tables {
		if db == "" || k.DB == db {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].DB != keys[j].DB {
			return keys[i].DB < keys[j].DB
		}
		return keys[i].Table < keys[j].Table
	})
	return keys, nil
}

// Len returns the number of live rows in key.
func (e *Engine) Len(key schema.TableKey) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t, ok := e.tables[key]
	if !ok {
		return 0
	}
	return int(t.live.GetCardinality())
}
