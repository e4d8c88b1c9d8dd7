package qdrant

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	qdrant "github.com/qdrant/go-client/qdrant"
	"golang.org/x/sync/errgroup"

	"github.com/awa-ai/awadb/v1/codec"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/schema"
)

// Engine stores every table in its own collection with one named vector per
// vector field. Declarations live in the metadata collection.
type Engine struct {
	client *QdrantClient
	api    *qdrant.Client
	cfg    Config

	metaMu sync.Mutex
	metaOK bool

	mu    sync.RWMutex
	decls map[schema.TableKey]schema.TableDeclaration
}

var _ engine.Engine = (*Engine)(nil)

func NewEngine(client *QdrantClient) *Engine {
	return &Engine{
		client: client,
		api:    client.api,
		cfg:    client.cfg,
		decls:  map[schema.TableKey]schema.TableDeclaration{},
	}
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.cfg.Timeout)
}

// ensureMeta creates the metadata collection on first use.
func (e *Engine) ensureMeta(ctx context.Context) error {
	e.metaMu.Lock()
	defer e.metaMu.Unlock()
	if e.metaOK {
		return nil
	}
	exists, err := e.api.CollectionExists(ctx, e.cfg.MetaCollection)
	if err != nil {
		return fmt.Errorf("[Qdrant] check metadata collection: %w", err)
	}
	if !exists {
		err = e.api.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: e.cfg.MetaCollection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     1,
				Distance: qdrant.Distance_Dot,
			}),
		})
		if err != nil {
			return fmt.Errorf("[Qdrant] create metadata collection: %w", err)
		}
		e.client.log.Info("[Qdrant] created metadata collection", nil, map[string]interface{}{
			"collection": e.cfg.MetaCollection,
		})
	}
	e.metaOK = true
	return nil
}

func (e *Engine) saveDecl(ctx context.Context, decl schema.TableDeclaration) error {
	body, err := json.Marshal(decl)
	if err != nil {
		return fmt.Errorf("[Qdrant] encode declaration: %w", err)
	}
	_, err = e.api.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: e.cfg.MetaCollection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(metaID(decl.Key)),
			Vectors: qdrant.NewVectors(1),
			Payload: qdrant.NewValueMap(map[string]any{
				"db":    decl.Key.DB,
				"table": decl.Key.Table,
				"decl":  string(body),
			}),
		}},
	})
	if err != nil {
		return fmt.Errorf("[Qdrant] save declaration of %s: %w", decl.Key, err)
	}
	e.mu.Lock()
	e.decls[decl.Key] = decl
	e.mu.Unlock()
	return nil
}

func (e *Engine) decl(ctx context.Context, key schema.TableKey) (schema.TableDeclaration, error) {
	e.mu.RLock()
	d, ok := e.decls[key]
	e.mu.RUnlock()
	if ok {
		return d, nil
	}
	if err := e.ensureMeta(ctx); err != nil {
		return d, err
	}
	points, err := e.api.Get(ctx, &qdrant.GetPoints{
		CollectionName: e.cfg.MetaCollection,
		Ids:            []*qdrant.PointId{qdrant.NewID(metaID(key))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return d, fmt.Errorf("[Qdrant] load declaration of %s: %w", key, err)
	}
	if len(points) == 0 {
		return d, errs.New(errs.TableNotFound, "no table %s", key).WithTable(key.String())
	}
	d, err = parseDecl(points[0].GetPayload())
	if err != nil {
		return d, err
	}
	e.mu.Lock()
	e.decls[key] = d
	e.mu.Unlock()
	return d, nil
}

func parseDecl(payload map[string]*qdrant.Value) (schema.TableDeclaration, error) {
	var d schema.TableDeclaration
	if err := json.Unmarshal([]byte(payload["decl"].GetStringValue()), &d); err != nil {
		return d, fmt.Errorf("[Qdrant] decode declaration: %w", err)
	}
	return d, nil
}

func (e *Engine) Create(ctx context.Context, decl schema.TableDeclaration) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if err := e.ensureMeta(ctx); err != nil {
		return err
	}
	if len(decl.Vectors) == 0 {
		return fmt.Errorf("[Qdrant] table %s declares no vector field", decl.Key)
	}

	name := collectionName(e.cfg.CollectionPrefix, decl.Key)
	exists, err := e.api.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("[Qdrant] check collection %s: %w", name, err)
	}
	if exists {
		return fmt.Errorf("[Qdrant] table %s already exists", decl.Key)
	}

	params := make(map[string]*qdrant.VectorParams, len(decl.Vectors))
	for _, v := range decl.Vectors {
		if v.Dimension == 0 {
			return fmt.Errorf("[Qdrant] vector field %q has no dimension", v.Name)
		}
		params[v.Name] = &qdrant.VectorParams{
			Size:     uint64(v.Dimension),
			Distance: distance(e.cfg.Metric),
		}
	}
	err = e.api.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig:  qdrant.NewVectorsConfigMap(params),
	})
	if err != nil {
		return fmt.Errorf("[Qdrant] create collection %s: %w", name, err)
	}
	for _, f := range decl.Fields {
		if err := e.index(ctx, name, f); err != nil {
			return err
		}
	}
	if err := e.saveDecl(ctx, decl); err != nil {
		return err
	}
	e.client.log.Info("[Qdrant] created table", nil, map[string]interface{}{
		"table":      decl.Key.String(),
		"collection": name,
		"vectors":    len(decl.Vectors),
	})
	return nil
}

func (e *Engine) index(ctx context.Context, collection string, f schema.FieldDecl) error {
	if !f.Indexed {
		return nil
	}
	ft, ok := indexType(f.Type)
	if !ok {
		return nil
	}
	_, err := e.api.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collection,
		FieldName:      f.Name,
		FieldType:      qdrant.PtrOf(ft),
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("[Qdrant] index field %q: %w", f.Name, err)
	}
	return nil
}

func (e *Engine) AddField(ctx context.Context, key schema.TableKey, field schema.FieldDecl) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	decl, err := e.decl(ctx, key)
	if err != nil {
		return err
	}
	if field.Type == fieldtype.Vector || !field.Type.Valid() {
		return fmt.Errorf("[Qdrant] field %q: type %s cannot be added", field.Name, field.Type)
	}
	if cur, ok := decl.Field(field.Name); ok {
		if cur.Type != field.Type {
			return fmt.Errorf("[Qdrant] field %q already exists as %s", field.Name, cur.Type)
		}
		return nil
	}
	if err := e.index(ctx, collectionName(e.cfg.CollectionPrefix, key), field); err != nil {
		return err
	}
	decl.Fields = append(append([]schema.FieldDecl(nil), decl.Fields...), field)
	return e.saveDecl(ctx, decl)
}

func (e *Engine) Add(ctx context.Context, key schema.TableKey, docs []engine.Document) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	decl, err := e.decl(ctx, key)
	if err != nil {
		return err
	}
	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, d := range docs {
		p, err := toPoint(decl, d)
		if err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
		points = append(points, p)
	}

	name := collectionName(e.cfg.CollectionPrefix, key)
	for start := 0; start < len(points); start += defaultBatchSize {
		end := min(start+defaultBatchSize, len(points))
		_, err := e.api.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Wait:           qdrant.PtrOf(true),
			Points:         points[start:end],
		})
		if err != nil {
			return fmt.Errorf("[Qdrant] upsert into %s: %w", name, err)
		}
	}
	return nil
}

type hit struct {
	row   engine.Row
	score float64
	seen  int
}

// Search runs one query per vector field in parallel and sums the boosted
// similarities of rows returned for every field.
func (e *Engine) Search(ctx context.Context, req engine.SearchRequest) ([]engine.Row, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	key := req.Key()
	decl, err := e.decl(ctx, key)
	if err != nil {
		return nil, err
	}
	if req.Metric != e.cfg.Metric {
		return nil, errs.New(errs.InvalidQuery, "collections use %s, search asked for %s", e.cfg.Metric, req.Metric).WithTable(key.String())
	}
	if len(req.VectorQueries) == 0 {
		return nil, errs.New(errs.InvalidQuery, "no vector query").WithTable(key.String())
	}
	filter, err := buildFilter(decl, req.RangeFilters, req.TermFilters)
	if err != nil {
		return nil, err
	}

	topN := req.TopN
	if topN <= 0 {
		topN = 10
	}
	limit := topN
	if len(req.VectorQueries) > 1 {
		limit = topN * e.cfg.Oversample
	}

	payload := qdrant.NewWithPayload(true)
	if len(req.Projection) > 0 {
		payload = qdrant.NewWithPayloadInclude(append([]string{idPayload}, req.Projection...)...)
	}
	var params *qdrant.SearchParams
	if req.BruteForce {
		params = &qdrant.SearchParams{Exact: qdrant.PtrOf(true)}
	}

	vecs := make([][]float32, len(req.VectorQueries))
	for i, q := range req.VectorQueries {
		fd, ok := decl.Field(q.Field)
		if !ok || fd.Type != fieldtype.Vector {
			return nil, errs.New(errs.InvalidQuery, "%q is not a vector field", q.Field).WithTable(key.String()).WithField(q.Field)
		}
		vec, err := codec.DecodeVector(q.Value)
		if err != nil {
			return nil, err
		}
		if uint32(len(vec)) != fd.Dimension {
			return nil, errs.New(errs.DimensionMismatch, "query has dimension %d, field has %d", len(vec), fd.Dimension).
				WithTable(key.String()).WithField(q.Field)
		}
		vecs[i] = vec
	}

	name := collectionName(e.cfg.CollectionPrefix, key)
	results := make([][]*qdrant.ScoredPoint, len(req.VectorQueries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range req.VectorQueries {
		g.Go(func() error {
			pts, err := e.api.Query(gctx, &qdrant.QueryPoints{
				CollectionName: name,
				Query:          qdrant.NewQuery(vecs[i]...),
				Using:          qdrant.PtrOf(q.Field),
				Filter:         filter,
				Limit:          qdrant.PtrOf(uint64(limit)),
				WithPayload:    payload,
				Params:         params,
			})
			if err != nil {
				return fmt.Errorf("[Qdrant] query %s on %q: %w", name, q.Field, err)
			}
			results[i] = pts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits := map[string]*hit{}
	var order []string
	for i, q := range req.VectorQueries {
		for _, p := range results[i] {
			sim := similarity(e.cfg.Metric, p.GetScore())
			if sim < q.MinScore || sim > q.MaxScore {
				continue
			}
			id := p.GetId().GetUuid()
			h, ok := hits[id]
			if !ok {
				row, err := fromPayload(decl, p.GetPayload(), req.Projection)
				if err != nil {
					return nil, err
				}
				h = &hit{row: row}
				hits[id] = h
				order = append(order, id)
			}
			h.score += q.Boost * sim
			h.seen++
		}
	}

	rows := make([]engine.Row, 0, len(order))
	for _, id := range order {
		h := hits[id]
		if h.seen != len(req.VectorQueries) {
			continue
		}
		h.row.Score = h.score
		rows = append(rows, h.row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if e.cfg.Metric == engine.L2 {
			return rows[i].Score < rows[j].Score
		}
		return rows[i].Score > rows[j].Score
	})
	if len(rows) > topN {
		rows = rows[:topN]
	}
	return rows, nil
}

// similarity converts a Qdrant score into the engine scale. Euclid scores
// are distances and the engine compares squared distances.
func similarity(m engine.Metric, score float32) float64 {
	s := float64(score)
	if m == engine.L2 {
		return s * s
	}
	return s
}

func (e *Engine) Get(ctx context.Context, req engine.GetRequest) ([]engine.Row, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	decl, err := e.decl(ctx, req.Key)
	if err != nil {
		return nil, err
	}
	filter, err := buildFilter(decl, req.RangeFilters, req.TermFilters)
	if err != nil {
		return nil, err
	}

	payload := qdrant.NewWithPayload(true)
	if len(req.Projection) > 0 {
		payload = qdrant.NewWithPayloadInclude(append([]string{idPayload}, req.Projection...)...)
	}
	name := collectionName(e.cfg.CollectionPrefix, req.Key)

	if len(req.IDs) > 0 {
		ids := make([]*qdrant.PointId, len(req.IDs))
		for i, id := range req.IDs {
			ids[i] = qdrant.NewID(pointID(id))
		}
		if filter == nil {
			filter = &qdrant.Filter{}
		}
		filter.Must = append(filter.Must, qdrant.NewHasID(ids...))
		pts, err := e.scroll(ctx, name, filter, payload, len(ids))
		if err != nil {
			return nil, err
		}
		byID := make(map[string]*qdrant.RetrievedPoint, len(pts))
		for _, p := range pts {
			byID[p.GetId().GetUuid()] = p
		}
		var rows []engine.Row
		for _, id := range req.IDs {
			p, ok := byID[pointID(id)]
			if !ok {
				continue
			}
			row, err := fromPayload(decl, p.GetPayload(), req.Projection)
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	pts, err := e.scroll(ctx, name, filter, payload, req.Limit)
	if err != nil {
		return nil, err
	}
	rows := make([]engine.Row, 0, len(pts))
	for _, p := range pts {
		row, err := fromPayload(decl, p.GetPayload(), req.Projection)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// scroll pages through a collection in id order. A limit <= 0 reads every
// matching point.
func (e *Engine) scroll(ctx context.Context, collection string, filter *qdrant.Filter, payload *qdrant.WithPayloadSelector, limit int) ([]*qdrant.RetrievedPoint, error) {
	var (
		out    []*qdrant.RetrievedPoint
		offset *qdrant.PointId
	)
	for limit <= 0 || len(out) < limit {
		page := scrollPageSize
		if limit > 0 {
			page = min(page, limit-len(out))
		}
		// The offset point is returned again on the next page.
		if offset != nil {
			page++
		}
		pts, err := e.api.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: collection,
			Filter:         filter,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(page)),
			WithPayload:    payload,
		})
		if err != nil {
			return nil, fmt.Errorf("[Qdrant] scroll %s: %w", collection, err)
		}
		got := len(pts)
		if offset != nil && got > 0 && pts[0].GetId().GetUuid() == offset.GetUuid() {
			pts = pts[1:]
		}
		out = append(out, pts...)
		if got < page || len(pts) == 0 {
			break
		}
		offset = pts[len(pts)-1].GetId()
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (e *Engine) Delete(ctx context.Context, key schema.TableKey, ids [][]byte) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if _, err := e.decl(ctx, key); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	pids := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pids[i] = qdrant.NewID(pointID(id))
	}
	name := collectionName(e.cfg.CollectionPrefix, key)
	_, err := e.api.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(pids...),
	})
	if err != nil {
		return fmt.Errorf("[Qdrant] delete from %s: %w", name, err)
	}
	return nil
}

func (e *Engine) Describe(ctx context.Context, key schema.TableKey) (schema.TableDeclaration, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.decl(ctx, key)
}

func (e *Engine) Drop(ctx context.Context, key schema.TableKey) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if _, err := e.decl(ctx, key); err != nil {
		return err
	}
	name := collectionName(e.cfg.CollectionPrefix, key)
	if err := e.api.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("[Qdrant] delete collection %s: %w", name, err)
	}
	_, err := e.api.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: e.cfg.MetaCollection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewID(metaID(key))),
	})
	e.mu.Lock()
	delete(e.decls, key)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("[Qdrant] delete declaration of %s: %w", key, err)
	}
	e.client.log.Info("[Qdrant] dropped table", nil, map[string]interface{}{"table": key.String()})
	return nil
}

// List returns the tables of db, or of every database when db is empty.
func (e *Engine) List(ctx context.Context, db string) ([]schema.TableKey, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	if err := e.ensureMeta(ctx); err != nil {
		return nil, err
	}
	var filter *qdrant.Filter
	if db != "" {
		filter = &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("db", db)}}
	}
	pts, err := e.scroll(ctx, e.cfg.MetaCollection, filter, qdrant.NewWithPayloadInclude("db", "table"), 0)
	if err != nil {
		return nil, err
	}
	keys := make([]schema.TableKey, 0, len(pts))
	for _, p := range pts {
		pl := p.GetPayload()
		keys = append(keys, schema.TableKey{DB: pl["db"].GetStringValue(), Table: pl["table"].GetStringValue()})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].DB != keys[j].DB {
			return keys[i].DB < keys[j].DB
		}
		return keys[i].Table < keys[j].Table
	})
	return keys, nil
}
