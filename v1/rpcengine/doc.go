// Package rpcengine carries the engine.Engine contract over gRPC.
//
// The service awadb.v1.Engine has one unary method per Engine operation.
// Requests and responses are google.protobuf.Struct values holding the JSON
// form of the engine types, so no generated stubs are needed. Structured
// errors cross the wire as a status code chosen from their kind plus a Struct
// detail with kind, table, field and document index; the Client rebuilds the
// *errs.Error from it.
//
// Server side:
//
//	srv := rpcengine.NewServer(memengine.New(memengine.DefaultConfig()))
//	go srv.Serve(lis)
//
// Client side:
//
//	eng, err := rpcengine.Dial("localhost:50051")
package rpcengine
