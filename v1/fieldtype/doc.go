// Package fieldtype defines the closed set of column types stored by the
// engine and the inference rules that classify untyped application values.
//
// Applications hand documents to awadb as loosely-typed maps. Before a value
// can be encoded it is classified into exactly one FieldType:
//
//	fieldtype.Infer(3)                    // Int32
//	fieldtype.Infer(4.2)                  // Float32
//	fieldtype.Infer("red")                // Utf8String
//	fieldtype.Infer([]any{"a", "b"})      // MultiString
//	fieldtype.Infer([]float32{1, 2, 3})   // Vector
//	fieldtype.Infer([]any{1, "a"})        // Error
//
// InferField adds the one name-dependent rule: integers stored under the
// table's primary-key name are promoted to Int64, since generated or caller
// chosen keys may exceed 32 bits.
//
// Wire names (INT, LONG, FLOAT, STRING, MULTI_STRING, VECTOR) are used in
// snapshots and engine declarations; FieldType implements encoding.TextMarshaler
// so it can be embedded directly in JSON documents.
package fieldtype
