package awadb

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/awa-ai/awadb/v1/assembler"
	"github.com/awa-ai/awadb/v1/embedding"
	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/events"
	"github.com/awa-ai/awadb/v1/metrics"
	"github.com/awa-ai/awadb/v1/request"
	"github.com/awa-ai/awadb/v1/schema"
	"github.com/awa-ai/awadb/v1/tracer"
)

// Logger is the logging surface of the client. *logger.LoggerClient
// satisfies it.
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Info(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, error, ...map[string]interface{}) {}
func (nopLogger) Info(string, error, ...map[string]interface{})  {}
func (nopLogger) Warn(string, error, ...map[string]interface{})  {}
func (nopLogger) Error(string, error, ...map[string]interface{}) {}

// Client is the entry point for writing and querying tables. It infers the
// schema of every table from the documents written to it and keeps the
// engine and the snapshot in step with that schema.
type Client struct {
	cfg      Config
	reg      *schema.Registry
	eng      engine.Engine
	asm      *assembler.Assembler
	comp     *request.Composer
	embedder embedding.Embedder
	notifier *events.Notifier
	metrics  metrics.MetricsCollector
	tracer   *tracer.Tracer
	log      Logger

	mu   sync.Mutex
	seen map[schema.TableKey]announced
}

// announced is the shape of a table as last reported through events.
type announced struct {
	frozen bool
	fields map[string]struct{}
}

// New builds a client over an already loaded registry. The registry should be
// created with cfg.SchemaConfig().
func New(cfg Config, reg *schema.Registry, eng engine.Engine, opts ...Option) *Client {
	return newClient(cfg, reg, eng, collect(opts))
}

// Open creates the registry over store, loads the persisted schema and
// reconciles pending table creations with the engine.
func Open(ctx context.Context, cfg Config, store schema.Store, eng engine.Engine, opts ...Option) (*Client, error) {
	o := collect(opts)
	reg := schema.NewRegistry(cfg.SchemaConfig(), store, o.log)
	if err := reg.Load(ctx); err != nil {
		return nil, err
	}
	c := newClient(cfg, reg, eng, o)
	if err := c.Recover(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(cfg Config, reg *schema.Registry, eng engine.Engine, o options) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:      cfg,
		reg:      reg,
		eng:      eng,
		embedder: o.embedder,
		notifier: o.notifier,
		metrics:  o.metrics,
		tracer:   o.tracer,
		log:      o.log,
		seen:     map[schema.TableKey]announced{},
	}
	if c.notifier == nil {
		c.notifier = events.NewNotifier(nil, nil)
	}

	c.asm = assembler.New(cfg.assemblerConfig(), reg, eng)
	if o.newID != nil {
		c.asm.WithIDGenerator(o.newID)
	}
	c.comp = request.NewComposer(cfg.requestConfig(), o.embedder, o.log).
		WithSkipObserver(func(table string, keys []string) {
			if c.metrics != nil {
				c.metrics.FilterKeysSkipped(table, len(keys))
			}
		})
	return c
}

func (c *Client) Config() Config { return c.cfg }

func (c *Client) Registry() *schema.Registry { return c.reg }

func (c *Client) key(table string) schema.TableKey {
	return schema.TableKey{DB: c.cfg.DB, Table: table}
}

// Add writes docs to table and returns their primary keys in input order.
// The first batch written to a table fixes its vector fields and creates it
// in the engine. A rejected field rejects the whole batch.
func (c *Client) Add(ctx context.Context, table string, docs []assembler.Document) (ids []any, err error) {
	key := c.key(table)
	ctx, span := c.startSpan(ctx, "awadb.Add", key, map[string]interface{}{"docs": len(docs)})
	defer func() { c.endSpan(span, err) }()

	c.baseline(key)
	encoded, st, err := c.asm.Assemble(ctx, key, docs)
	if st != nil {
		c.announce(ctx, key, st)
	}
	if err != nil {
		c.rejected(key, err)
		return nil, err
	}
	if len(encoded) == 0 {
		return nil, nil
	}

	start := time.Now()
	err = c.eng.Add(ctx, key, encoded)
	c.observe(start, "add", err)
	if err != nil {
		err = engineErr(errs.EngineAddFailed, err, key, "add documents")
		c.rejected(key, err)
		return nil, err
	}

	c.reg.IncrementDocCount(key, len(encoded))
	if c.metrics != nil {
		c.metrics.DocumentsIngested(key.String(), len(encoded))
	}

	ids = make([]any, len(encoded))
	for i, d := range encoded {
		ids[i] = d.IDValue
	}
	return ids, nil
}

// AddMaps is Add for documents given as maps. Fields are registered in name
// order.
func (c *Client) AddMaps(ctx context.Context, table string, docs []map[string]any) ([]any, error) {
	in := make([]assembler.Document, len(docs))
	for i, m := range docs {
		in[i] = assembler.FromMap(m)
	}
	return c.Add(ctx, table, in)
}

// Search runs a similarity search. Filter keys naming no known field are
// skipped.
func (c *Client) Search(ctx context.Context, table string, q request.Query) (res []Result, err error) {
	key := c.key(table)
	ctx, span := c.startSpan(ctx, "awadb.Search", key, map[string]interface{}{"top_n": q.TopN})
	defer func() { c.endSpan(span, err) }()

	st, err := c.state(ctx, key)
	if err != nil {
		return nil, err
	}
	req, err := c.comp.Compose(ctx, st, q)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := c.eng.Search(ctx, req)
	c.observe(start, "search", err)
	if err != nil {
		return nil, engineErr(errs.EngineCallFailed, err, key, "search")
	}
	return decodeRows(st, rows)
}

// Get fetches documents by primary key, or by filter when q has no ids.
func (c *Client) Get(ctx context.Context, table string, q request.GetQuery) (res []Result, err error) {
	key := c.key(table)
	ctx, span := c.startSpan(ctx, "awadb.Get", key, map[string]interface{}{"ids": len(q.IDs)})
	defer func() { c.endSpan(span, err) }()

	st, err := c.state(ctx, key)
	if err != nil {
		return nil, err
	}
	rows, err := c.get(ctx, st, q)
	if err != nil {
		return nil, err
	}
	return decodeRows(st, rows)
}

func (c *Client) get(ctx context.Context, st *schema.State, q request.GetQuery) ([]engine.Row, error) {
	req, err := c.comp.ComposeGet(ctx, st, q)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	rows, err := c.eng.Get(ctx, req)
	c.observe(start, "get", err)
	if err != nil {
		return nil, engineErr(errs.EngineCallFailed, err, st.Key, "get")
	}
	return rows, nil
}

// Delete removes documents by primary key, or the documents matching q's
// filters when it has no ids. It returns the number of ids sent to the
// engine.
func (c *Client) Delete(ctx context.Context, table string, q request.GetQuery) (n int, err error) {
	key := c.key(table)
	ctx, span := c.startSpan(ctx, "awadb.Delete", key, map[string]interface{}{"ids": len(q.IDs)})
	defer func() { c.endSpan(span, err) }()

	st, err := c.state(ctx, key)
	if err != nil {
		return 0, err
	}

	var ids [][]byte
	if len(q.IDs) > 0 {
		ids, err = request.EncodeIDs(st, q.IDs)
		if err != nil {
			return 0, err
		}
	} else {
		q.Include = []string{st.PrimaryKey}
		rows, err := c.get(ctx, st, q)
		if err != nil {
			return 0, err
		}
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	start := time.Now()
	err = c.eng.Delete(ctx, key, ids)
	c.observe(start, "delete", err)
	if err != nil {
		return 0, engineErr(errs.EngineCallFailed, err, key, "delete")
	}
	return len(ids), nil
}

// Describe returns the engine declaration of table. A table the registry
// does not know but the engine does is adopted.
func (c *Client) Describe(ctx context.Context, table string) (schema.TableDeclaration, error) {
	st, err := c.state(ctx, c.key(table))
	if err != nil {
		return schema.TableDeclaration{}, err
	}
	return st.Declaration, nil
}

// List returns the engine tables of db, or of the configured database when
// db is empty.
func (c *Client) List(ctx context.Context, db string) ([]schema.TableKey, error) {
	if db == "" {
		db = c.cfg.DB
	}
	start := time.Now()
	keys, err := c.eng.List(ctx, db)
	c.observe(start, "list", err)
	if err != nil {
		return nil, engineErr(errs.EngineCallFailed, err, schema.TableKey{DB: db}, "list")
	}
	return keys, nil
}

// Drop removes the engine table and its schema.
func (c *Client) Drop(ctx context.Context, key schema.TableKey) (err error) {
	ctx, span := c.startSpan(ctx, "awadb.Drop", key, nil)
	defer func() { c.endSpan(span, err) }()

	start := time.Now()
	err = c.eng.Drop(ctx, key)
	c.observe(start, "drop", err)
	if err != nil && !errs.IsNotFound(err) {
		return engineErr(errs.EngineCallFailed, err, key, "drop")
	}
	engineMissing := err != nil

	err = c.reg.Drop(ctx, key)
	switch {
	case errs.IsNotFound(err) && engineMissing:
		return errs.New(errs.TableNotFound, "unknown table").WithTable(key.String())
	case err != nil && !errs.IsNotFound(err):
		return err
	}

	c.mu.Lock()
	delete(c.seen, key)
	c.mu.Unlock()

	c.log.Info("dropped table", nil, map[string]interface{}{"table": key.String()})
	c.notifier.TableDropped(ctx, key)
	return nil
}

// Recover settles every table creation that was started but not confirmed
// before the last shutdown. A table the engine has is committed; a missing
// one is discarded.
func (c *Client) Recover(ctx context.Context) error {
	for _, key := range c.reg.PendingIntents() {
		_, err := c.eng.Describe(ctx, key)
		switch {
		case err == nil:
			if err := c.reg.CommitIntent(ctx, key); err != nil {
				return err
			}
			st := c.reg.Table(key).State()
			c.log.Info("recovered table creation", nil, map[string]interface{}{"table": key.String()})
			c.notifier.TableCreated(ctx, st.Declaration)
		case errs.IsNotFound(err):
			if err := c.reg.DiscardIntent(ctx, key); err != nil {
				return err
			}
			c.log.Warn("discarded unconfirmed table creation", nil, map[string]interface{}{"table": key.String()})
		default:
			return engineErr(errs.EngineCallFailed, err, key, "describe")
		}
	}
	return nil
}

// Close persists the current schema, including document counters.
func (c *Client) Close(ctx context.Context) error {
	return c.reg.Flush(ctx)
}

// state returns the frozen schema of key, adopting it from the engine when
// the registry has none.
func (c *Client) state(ctx context.Context, key schema.TableKey) (*schema.State, error) {
	if t, ok := c.reg.Lookup(key); ok {
		if st := t.State(); st.Frozen {
			return st, nil
		}
	}

	start := time.Now()
	decl, err := c.eng.Describe(ctx, key)
	c.observe(start, "describe", err)
	if errs.IsNotFound(err) {
		return nil, errs.New(errs.TableNotFound, "unknown table").WithTable(key.String())
	}
	if err != nil {
		return nil, engineErr(errs.EngineCallFailed, err, key, "describe")
	}
	decl.Key = key

	st, err := c.reg.Adopt(ctx, decl)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.seen[key] = announcedOf(st)
	c.mu.Unlock()
	return st, nil
}

func (c *Client) baseline(key schema.TableKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[key]; !ok {
		c.seen[key] = announcedOf(c.reg.Table(key).State())
	}
}

// announce publishes the schema changes between the last announced shape of
// key and st. Declared fields only grow, so an older st is ignored.
func (c *Client) announce(ctx context.Context, key schema.TableKey, st *schema.State) {
	next := announcedOf(st)

	c.mu.Lock()
	prev := c.seen[key]
	if next.frozen == prev.frozen && len(next.fields) <= len(prev.fields) {
		c.mu.Unlock()
		return
	}
	c.seen[key] = next
	c.mu.Unlock()

	if !prev.frozen {
		if c.metrics != nil {
			c.metrics.TableFrozen(key.String())
		}
		c.notifier.TableCreated(ctx, st.Declaration)
		return
	}
	for _, f := range st.Declaration.Fields {
		if _, ok := prev.fields[f.Name]; !ok {
			c.notifier.FieldAdded(ctx, key, f)
		}
	}
}

func announcedOf(st *schema.State) announced {
	a := announced{frozen: st.Frozen, fields: map[string]struct{}{}}
	for _, f := range st.Declaration.Fields {
		a.fields[f.Name] = struct{}{}
	}
	for _, f := range st.Declaration.Vectors {
		a.fields[f.Name] = struct{}{}
	}
	return a
}

func (c *Client) rejected(key schema.TableKey, err error) {
	if c.metrics == nil {
		return
	}
	kind := string(errs.KindOf(err))
	if kind == "" {
		kind = "unknown"
	}
	c.metrics.BatchRejected(key.String(), kind)
}

func (c *Client) observe(start time.Time, op string, err error) {
	if c.metrics != nil {
		c.metrics.ObserveEngineCall(start, op, err)
	}
}

func (c *Client) startSpan(ctx context.Context, name string, key schema.TableKey, attrs map[string]interface{}) (context.Context, trace.Span) {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	attrs["table"] = key.String()
	return c.tracer.StartSpan(ctx, name, attrs)
}

func (c *Client) endSpan(span trace.Span, err error) {
	c.tracer.RecordError(span, err)
	span.End()
}

// engineErr classifies an engine failure. Errors the engine already
// classified keep their kind.
func engineErr(kind errs.Kind, err error, key schema.TableKey, op string) error {
	if errs.KindOf(err) != "" {
		return err
	}
	return errs.Wrap(kind, err, "%s", op).WithTable(key.String())
}
