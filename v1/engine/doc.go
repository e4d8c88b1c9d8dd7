// Package engine defines the contract between awadb's schema layer and the
// columnar vector-search storage engine, together with the encoded request
// and row types that cross it.
//
// Values crossing the boundary are already encoded by package codec: scalar
// and vector fields carry their little-endian bytes in Field.Value and
// multi-string fields carry one byte string per element in Field.Multi.
//
// Three implementations ship with the module: memengine (in process),
// rpcengine (gRPC client and server) and qdrant (a Qdrant-backed adapter).
// enginetest holds a gomock MockEngine.
package engine
