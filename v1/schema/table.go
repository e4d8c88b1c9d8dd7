package schema

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/awa-ai/awadb/v1/errs"
	"github.com/awa-ai/awadb/v1/fieldtype"
)

// Table owns the schema of one logical table.
//
// Readers load the published state without locking. Writers that change the
// shape of the table serialize on mu, which also guarantees that the engine
// table is created exactly once.
type Table struct {
	key TableKey
	reg *Registry

	mu      sync.Mutex
	dropped bool // guarded by mu
	state   atomic.Pointer[State]
	docs    atomic.Int64
}

func newTable(reg *Registry, st *State) *Table {
	t := &Table{key: st.Key, reg: reg}
	t.state.Store(st)
	t.docs.Store(st.DocCount)
	return t
}

func (t *Table) Key() TableKey {
	return t.key
}

// State returns the currently published schema.
func (t *Table) State() *State {
	return t.state.Load()
}

// DocCount returns the number of documents ingested so far.
func (t *Table) DocCount() int64 {
	return t.docs.Load()
}

// Begin starts a batch overlay on the current state.
func (t *Table) Begin() *Batch {
	return newBatch(t.state.Load())
}

// Apply runs resolve against a fresh overlay and commits whatever it
// registered. When the table does not exist yet it is created through p; when
// it exists, newly discovered scalar fields are added through p.
//
// resolve may run more than once: if another writer changed the table between
// the optimistic pass and acquiring the table lock, the batch is resolved again
// against the newer state. The returned state is the one the batch was
// resolved against, after commit. A batch racing a Drop is applied to the
// table registered under the key afterwards, never to the dropped one.
func (t *Table) Apply(ctx context.Context, resolve func(*Batch) error, p Provisioner) (*State, error) {
	b := t.Begin()
	if err := resolve(b); err != nil {
		return nil, err
	}
	if !b.Changed() && b.base.Frozen && len(b.base.Pending) == 0 {
		return b.base, nil
	}

	t.mu.Lock()
	if t.dropped {
		// The registry forgot this table while the batch was resolved; the
		// batch belongs to whatever table now holds the key.
		t.mu.Unlock()
		return t.reg.Table(t.key).Apply(ctx, resolve, p)
	}
	defer t.mu.Unlock()

	if cur := t.state.Load(); cur != b.base {
		b = newBatch(cur)
		if err := resolve(b); err != nil {
			return nil, err
		}
		if !b.Changed() && cur.Frozen && len(cur.Pending) == 0 {
			return cur, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !b.base.Frozen {
		if !b.Changed() {
			return b.base, nil
		}
		return t.freeze(ctx, b, p)
	}
	return t.extend(ctx, b, p)
}

// freeze creates the engine table from the first batch. The intended schema is
// written to the snapshot before the engine is called so that a crash between
// the two can be reconciled on restart.
func (t *Table) freeze(ctx context.Context, b *Batch, p Provisioner) (*State, error) {
	cfg := t.reg.cfg
	next := b.merge()

	decl, extras := declare(cfg, next)
	next.Declaration = decl
	next.Pending = extras

	marked := b.base.clone()
	marked.Intent = next
	t.state.Store(marked)
	if err := t.reg.save(ctx); err != nil {
		t.state.Store(b.base)
		return nil, err
	}

	t.reg.log.Info("creating engine table", nil, map[string]interface{}{
		"table":   t.key.String(),
		"fields":  len(decl.Fields),
		"vectors": len(decl.Vectors),
	})
	if err := p.Create(ctx, decl); err != nil {
		t.state.Store(b.base)
		if saveErr := t.reg.save(ctx); saveErr != nil {
			t.reg.log.Error("failed to clear schema intent", saveErr, map[string]interface{}{"table": t.key.String()})
		}
		return nil, errs.Wrap(errs.EngineCreateFailed, err, "create table").WithTable(t.key.String())
	}

	added, failed, addErr := t.addFields(ctx, p, extras)
	next.Declaration.Fields = append(next.Declaration.Fields, added...)
	next.Pending = failed
	next.Frozen = true
	next.Intent = nil
	t.state.Store(next)

	if err := t.reg.save(ctx); err != nil {
		return next, err
	}
	if addErr != nil {
		return next, errs.Wrap(errs.EngineCreateFailed, addErr, "declare multi-string fields").WithTable(t.key.String())
	}
	return next, nil
}

// extend adds fields to an existing engine table. Fields left pending by an
// earlier call are retried first. Newly discovered fields the engine refuses
// are dropped from the schema again; pending fields stay pending.
func (t *Table) extend(ctx context.Context, b *Batch, p Provisioner) (*State, error) {
	cfg := t.reg.cfg
	cur := b.base

	added, stillPending, pendingErr := t.addFields(ctx, p, cur.Pending)

	next := cur.clone()
	next.Pending = stillPending
	next.Declaration.Fields = append(next.Declaration.Fields, added...)

	var newErr error
	for _, name := range b.order {
		ft := b.fields[name]
		f := FieldDecl{Name: name, Type: ft, Indexed: cfg.indexed(name)}
		if err := p.AddField(ctx, t.key, f); err != nil {
			t.reg.log.Warn("engine refused new field", err, map[string]interface{}{
				"table": t.key.String(),
				"field": name,
			})
			newErr = errors.Join(newErr, errs.Wrap(errs.EngineAddFailed, err, "add field").WithField(name))
			continue
		}
		next.Fields[name] = ft
		next.Order = append(next.Order, name)
		next.Declaration.Fields = append(next.Declaration.Fields, f)
	}

	if len(added) > 0 || len(next.Order) > len(cur.Order) {
		t.state.Store(next)
		if err := t.reg.save(ctx); err != nil {
			return next, err
		}
	}
	if err := errors.Join(pendingErr, newErr); err != nil {
		return next, errs.Wrap(errs.EngineAddFailed, err, "extend table").WithTable(t.key.String())
	}
	return next, nil
}

func (t *Table) addFields(ctx context.Context, p Provisioner, fields []FieldDecl) (added, failed []FieldDecl, err error) {
	for _, f := range fields {
		if addErr := p.AddField(ctx, t.key, f); addErr != nil {
			failed = append(failed, f)
			err = errors.Join(err, errs.Wrap(errs.EngineAddFailed, addErr, "add field").WithField(f.Name))
			continue
		}
		added = append(added, f)
	}
	return added, failed, err
}

// declare builds the engine declaration of st. MultiString fields are
// declared after creation through AddField and are returned separately.
func declare(cfg Config, st *State) (TableDeclaration, []FieldDecl) {
	decl := TableDeclaration{
		Key:            st.Key,
		PrimaryKey:     st.PrimaryKey,
		IndexingSize:   cfg.IndexingSize,
		RetrievalType:  cfg.RetrievalType,
		RetrievalParam: cfg.RetrievalParam,
	}
	var extras []FieldDecl
	for _, name := range st.Order {
		ft := st.Fields[name]
		switch ft {
		case fieldtype.Vector:
			decl.Vectors = append(decl.Vectors, FieldDecl{
				Name:       name,
				Type:       ft,
				Indexed:    true,
				Dimension:  st.Dimensions[name],
				StoreType:  cfg.VectorStoreType,
				StoreParam: cfg.VectorStoreParam,
			})
		case fieldtype.MultiString:
			extras = append(extras, FieldDecl{Name: name, Type: ft, Indexed: cfg.indexed(name)})
		default:
			decl.Fields = append(decl.Fields, FieldDecl{Name: name, Type: ft, Indexed: cfg.indexed(name)})
		}
	}
	return decl, extras
}

// stateFromDeclaration rebuilds a frozen state from an engine declaration.
func stateFromDeclaration(decl TableDeclaration, primaryKey string) *State {
	if decl.PrimaryKey != "" {
		primaryKey = decl.PrimaryKey
	}
	st := newState(decl.Key, primaryKey)
	for _, f := range decl.Fields {
		st.Fields[f.Name] = f.Type
		st.Order = append(st.Order, f.Name)
	}
	for _, f := range decl.Vectors {
		st.Fields[f.Name] = fieldtype.Vector
		st.Dimensions[f.Name] = f.Dimension
		st.Order = append(st.Order, f.Name)
	}
	decl.PrimaryKey = primaryKey
	st.Declaration = decl
	st.Frozen = true
	return st
}
