package schema

import (
	"context"
	"sort"
	"sync"

	"github.com/awa-ai/awadb/v1/errs"
)

// Registry holds the schema of every table and keeps the snapshot store in
// sync with it.
type Registry struct {
	cfg   Config
	store Store
	log   Logger

	mu     sync.RWMutex
	tables map[TableKey]*Table

	// saveMu serializes snapshot writes. It is always acquired after a
	// table lock, never before.
	saveMu sync.Mutex
}

// NewRegistry creates an empty registry. Call Load to restore persisted state.
func NewRegistry(cfg Config, store Store, log Logger) *Registry {
	return &Registry{
		cfg:    cfg.withDefaults(),
		store:  store,
		log:    log,
		tables: map[TableKey]*Table{},
	}
}

// Config returns the effective declaration settings.
func (r *Registry) Config() Config {
	return r.cfg
}

// Load replaces the in-memory tables with the persisted snapshot.
func (r *Registry) Load(ctx context.Context) error {
	snap, err := r.store.Load(ctx)
	if err != nil {
		return errs.Wrap(errs.SnapshotIOError, err, "load snapshot")
	}
	if snap == nil {
		snap = NewSnapshot()
	}

	tables := make(map[TableKey]*Table, len(snap.Tables))
	for key, st := range snap.Tables {
		if st.PrimaryKey == "" {
			st.PrimaryKey = r.cfg.PrimaryKey
		}
		st.Key = key
		tables[key] = newTable(r, st)
	}

	r.mu.Lock()
	r.tables = tables
	r.mu.Unlock()

	r.log.Info("schema registry loaded", nil, map[string]interface{}{
		"tables":  len(tables),
		"pending": len(r.PendingIntents()),
	})
	return nil
}

// Table returns the table for key, creating an unfrozen one when it is not
// known yet.
func (r *Registry) Table(key TableKey) *Table {
	r.mu.RLock()
	t, ok := r.tables[key]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tables[key]; ok {
		return t
	}
	t = newTable(r, newState(key, r.cfg.PrimaryKey))
	r.tables[key] = t
	return t
}

// Lookup returns the table for key only if it has registered any field.
func (r *Registry) Lookup(key TableKey) (*Table, bool) {
	r.mu.RLock()
	t, ok := r.tables[key]
	r.mu.RUnlock()
	if !ok || t.State().Empty() {
		return nil, false
	}
	return t, true
}

// Tables lists the keys of every non-empty table in db, sorted by name. An
// empty db lists every table.
func (r *Registry) Tables(db string) []TableKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []TableKey
	for key, t := range r.tables {
		if db != "" && key.DB != db {
			continue
		}
		if t.State().Empty() {
			continue
		}
		out = append(out, key)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DB != out[j].DB {
			return out[i].DB < out[j].DB
		}
		return out[i].Table < out[j].Table
	})
	return out
}

// Adopt registers a table that already exists in the engine, as described by
// decl. An already frozen table is left untouched.
func (r *Registry) Adopt(ctx context.Context, decl TableDeclaration) (*State, error) {
	t := r.Table(decl.Key)

	t.mu.Lock()
	if t.dropped {
		t.mu.Unlock()
		return r.Adopt(ctx, decl)
	}
	defer t.mu.Unlock()

	if cur := t.State(); cur.Frozen {
		return cur, nil
	}
	st := stateFromDeclaration(decl, r.cfg.PrimaryKey)
	t.state.Store(st)
	r.log.Info("adopted engine table", nil, map[string]interface{}{"table": decl.Key.String()})
	return st, r.save(ctx)
}

// Drop forgets the table and persists the removal.
func (r *Registry) Drop(ctx context.Context, key TableKey) error {
	r.mu.RLock()
	t, ok := r.tables[key]
	r.mu.RUnlock()
	if !ok {
		return errs.New(errs.TableNotFound, "unknown table").WithTable(key.String())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.dropped = true

	r.mu.Lock()
	delete(r.tables, key)
	r.mu.Unlock()
	return r.save(ctx)
}

// PendingIntents lists tables whose creation was started but not confirmed.
func (r *Registry) PendingIntents() []TableKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []TableKey
	for key, t := range r.tables {
		if t.State().Intent != nil {
			out = append(out, key)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// CommitIntent promotes a pending intent to the frozen state, for use when the
// engine confirms that the table exists.
func (r *Registry) CommitIntent(ctx context.Context, key TableKey) error {
	t, err := r.intentTable(key)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.State()
	if cur.Intent == nil {
		return nil
	}
	next := cur.Intent.clone()
	next.Frozen = true
	next.Intent = nil
	t.state.Store(next)
	r.log.Info("committed schema intent", nil, map[string]interface{}{"table": key.String()})
	return r.save(ctx)
}

// DiscardIntent drops a pending intent, for use when the engine has no such
// table.
func (r *Registry) DiscardIntent(ctx context.Context, key TableKey) error {
	t, err := r.intentTable(key)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.State()
	if cur.Intent == nil {
		return nil
	}
	next := cur.clone()
	next.Intent = nil
	t.state.Store(next)
	r.log.Info("discarded schema intent", nil, map[string]interface{}{"table": key.String()})
	return r.save(ctx)
}

func (r *Registry) intentTable(key TableKey) (*Table, error) {
	r.mu.RLock()
	t, ok := r.tables[key]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.TableNotFound, "unknown table").WithTable(key.String())
	}
	return t, nil
}

// IncrementDocCount adds n to the document counter of key. The counter is
// persisted with the next snapshot write.
func (r *Registry) IncrementDocCount(key TableKey, n int) {
	r.mu.RLock()
	t, ok := r.tables[key]
	r.mu.RUnlock()
	if ok {
		t.docs.Add(int64(n))
	}
}

// Flush writes the current state of every table to the store.
func (r *Registry) Flush(ctx context.Context) error {
	return r.save(ctx)
}

// Snapshot captures the published state of every table.
func (r *Registry) Snapshot() *Snapshot {
	snap := NewSnapshot()

	r.mu.RLock()
	defer r.mu.RUnlock()
	for key, t := range r.tables {
		st := t.State()
		if st.Empty() && st.Intent == nil {
			continue
		}
		c := *st
		c.DocCount = t.docs.Load()
		snap.Tables[key] = &c
	}
	return snap
}

func (r *Registry) save(ctx context.Context) error {
	r.saveMu.Lock()
	defer r.saveMu.Unlock()

	if err := r.store.Save(ctx, r.Snapshot()); err != nil {
		r.log.Error("failed to write schema snapshot", err, nil)
		return errs.Wrap(errs.SnapshotIOError, err, "save snapshot")
	}
	return nil
}
