// Package snapshot persists the schema registry.
//
// All stores share one document format, compatible in shape with awadb's
// tables.meta: per-table maps keyed by "db/table" holding the frozen flag
// (fields_check), the ordered field list (fields_type), vector dimensions
// (vector_field_name), the primary-key name, the document counter and the
// engine declaration (tables_info). Two keys extend the original format:
// pending_fields lists fields the engine has not accepted yet, and intents
// holds the proposed schema of tables whose creation is in flight.
//
// Stores:
//
//   - FileStore writes <root>/data/tables.meta with write-to-temp, fsync and
//     rename.
//   - SQLiteStore keeps versioned rows in an embedded modernc.org/sqlite
//     database.
//   - PostgresStore keeps versioned rows through gorm, retrying transient
//     failures classified from pgconn error codes.
//   - MinioStore keeps a zstd-compressed object in a bucket.
//
// New selects one of them from Config.Backend, and FXModule provides it to an
// fx application as both Store and schema.Store.
package snapshot
