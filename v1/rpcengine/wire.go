package rpcengine

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/schema"
)

// Every call carries a google.protobuf.Struct in both directions. The Go
// request types below are mapped onto it through their JSON form, so byte
// fields travel as base64 strings.

type createRequest struct {
	Decl schema.TableDeclaration `json:"decl"`
}

type addFieldRequest struct {
	Key   schema.TableKey  `json:"key"`
	Field schema.FieldDecl `json:"field"`
}

// wireDocument is engine.Document without IDValue, which the engine does not
// read.
type wireDocument struct {
	ID     []byte         `json:"id"`
	Fields []engine.Field `json:"fields"`
}

type addRequest struct {
	Key  schema.TableKey `json:"key"`
	Docs []wireDocument  `json:"docs"`
}

type deleteRequest struct {
	Key schema.TableKey `json:"key"`
	IDs [][]byte        `json:"ids"`
}

type keyRequest struct {
	Key schema.TableKey `json:"key"`
}

type listRequest struct {
	DB string `json:"db"`
}

type rowsResponse struct {
	Rows []engine.Row `json:"rows"`
}

type describeResponse struct {
	Decl schema.TableDeclaration `json:"decl"`
}

type listResponse struct {
	Keys []schema.TableKey `json:"keys"`
}

type empty struct{}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return s, nil
}

func fromStruct(s *structpb.Struct, out any) error {
	data, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	return nil
}

func toWire(docs []engine.Document) []wireDocument {
	out := make([]wireDocument, len(docs))
	for i, d := range docs {
		out[i] = wireDocument{ID: d.ID, Fields: d.Fields}
	}
	return out
}

func fromWire(docs []wireDocument) []engine.Document {
	out := make([]engine.Document, len(docs))
	for i, d := range docs {
		out[i] = engine.Document{ID: d.ID, Fields: d.Fields}
	}
	return out
}
