// Package schema tracks the inferred schema of every table and drives the
// engine through the one-time freeze of each table.
//
// # Lifecycle of a table
//
// A table starts unfrozen and empty. The first batch written to it registers
// its fields, including every vector field, and creates the engine table in a
// single step. From then on the table is frozen: scalar and multi-string
// fields may still be added, vector fields may not.
//
// # Writers
//
// Writers never mutate the published schema directly. Table.Apply hands the
// caller a Batch overlay, the caller resolves every field of every document
// against it, and Apply commits the overlay:
//
//	st, err := registry.Table(key).Apply(ctx, func(b *schema.Batch) error {
//		for i, doc := range docs {
//			b.StartDocument()
//			for name, v := range doc {
//				if _, code := b.Resolve(name, v); !code.OK() {
//					return b.Reject(code, name, i, v)
//				}
//			}
//		}
//		return nil
//	}, engine)
//
// Batches that register nothing new take the lock-free path. Batches that
// change the table serialize on a per-table mutex and are re-resolved when
// another writer got there first, so concurrent first writers create the
// engine table exactly once.
//
// # Persistence
//
// Every committed change is written to a Store. Before the engine table is
// created the intended schema is saved as an intent; a crash between the two
// leaves the intent in the snapshot, and PendingIntents together with
// CommitIntent and DiscardIntent let the owner reconcile it against the
// engine on restart.
package schema
