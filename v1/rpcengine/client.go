package rpcengine

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/awa-ai/awadb/v1/engine"
	"github.com/awa-ai/awadb/v1/schema"
)

// Client is an engine.Engine that forwards every call to a remote server.
type Client struct {
	cc    grpc.ClientConnInterface
	close func() error
}

var _ engine.Engine = (*Client)(nil)

// NewClient wraps an established connection. Close does not close cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc, close: func() error { return nil }}
}

// Dial connects to target. Without options the connection is plaintext.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("[RPCEngine] dial %s: %w", target, err)
	}
	return &Client{cc: conn, close: conn.Close}, nil
}

func (c *Client) Close() error {
	return c.close()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	in, err := toStruct(req)
	if err != nil {
		return fmt.Errorf("[RPCEngine] %s: %w", method, err)
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return fromStatus(err)
	}
	if resp == nil {
		return nil
	}
	if err := fromStruct(out, resp); err != nil {
		return fmt.Errorf("[RPCEngine] %s: %w", method, err)
	}
	return nil
}

func (c *Client) Create(ctx context.Context, decl schema.TableDeclaration) error {
	return c.invoke(ctx, "Create", createRequest{Decl: decl}, nil)
}

func (c *Client) AddField(ctx context.Context, key schema.TableKey, field schema.FieldDecl) error {
	return c.invoke(ctx, "AddField", addFieldRequest{Key: key, Field: field}, nil)
}

func (c *Client) Add(ctx context.Context, key schema.TableKey, docs []engine.Document) error {
	return c.invoke(ctx, "Add", addRequest{Key: key, Docs: toWire(docs)}, nil)
}

func (c *Client) Search(ctx context.Context, req engine.SearchRequest) ([]engine.Row, error) {
	var resp rowsResponse
	if err := c.invoke(ctx, "Search", req, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (c *Client) Get(ctx context.Context, req engine.GetRequest) ([]engine.Row, error) {
	var resp rowsResponse
	if err := c.invoke(ctx, "Get", req, &resp); err != nil {
		return nil, err
	}
	return resp.Rows, nil
}

func (c *Client) Delete(ctx context.Context, key schema.TableKey, ids [][]byte) error {
	return c.invoke(ctx, "Delete", deleteRequest{Key: key, IDs: ids}, nil)
}

func (c *Client) Describe(ctx context.Context, key schema.TableKey) (schema.TableDeclaration, error) {
	var resp describeResponse
	if err := c.invoke(ctx, "Describe", keyRequest{Key: key}, &resp); err != nil {
		return schema.TableDeclaration{}, err
	}
	return resp.Decl, nil
}

func (c *Client) Drop(ctx context.Context, key schema.TableKey) error {
	return c.invoke(ctx, "Drop", keyRequest{Key: key}, nil)
}

func (c *Client) List(ctx context.Context, db string) ([]schema.TableKey, error) {
	var resp listResponse
	if err := c.invoke(ctx, "List", listRequest{DB: db}, &resp); err != nil {
		return nil, err
	}
	return resp.Keys, nil
}
