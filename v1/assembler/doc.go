// Package assembler turns loosely typed documents into engine rows.
//
// Every field of every document in a batch is resolved against the table
// schema through schema.Table.Apply, which creates the engine table on the
// first batch and adds newly seen scalar fields afterwards. A single rejected
// field rejects the batch. Accepted fields are encoded with the codec package,
// missing primary keys are generated, and every committed scalar field a
// document omits is backfilled with its zero value.
package assembler
