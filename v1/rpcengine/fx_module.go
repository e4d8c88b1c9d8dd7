package rpcengine

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/awa-ai/awadb/v1/engine"
)

// Logger is the logging surface used by the server lifecycle.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// ServerModule serves the engine.Engine found in the container over gRPC.
var ServerModule = fx.Module("rpcengine-server",
	fx.Provide(NewServerWithDI),
	fx.Invoke(RegisterServerLifecycle),
)

// ClientModule provides a remote engine as *Client and engine.Engine.
var ClientModule = fx.Module("rpcengine-client",
	fx.Provide(
		NewClientWithDI,
		fx.Annotate(
			func(c *Client) *Client { return c },
			fx.As(new(engine.Engine)),
		),
	),
	fx.Invoke(RegisterClientLifecycle),
)

type ServerParams struct {
	fx.In

	Engine  engine.Engine
	Options []grpc.ServerOption `optional:"true"`
}

func NewServerWithDI(p ServerParams) *grpc.Server {
	return NewServer(p.Engine, p.Options...)
}

// RegisterServerLifecycle listens on cfg.Address when the application starts
// and stops the server gracefully when it stops.
func RegisterServerLifecycle(lc fx.Lifecycle, srv *grpc.Server, cfg ServerConfig, log Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			lis, err := net.Listen("tcp", cfg.Address)
			if err != nil {
				return fmt.Errorf("[RPCEngine] listen on %s: %w", cfg.Address, err)
			}
			log.Info("Starting engine gRPC server", nil, map[string]interface{}{
				"address": lis.Addr().String(),
			})
			go func() {
				if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
					log.Error("engine gRPC server stopped", err, nil)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down engine gRPC server", nil, nil)
			done := make(chan struct{})
			go func() {
				srv.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				srv.Stop()
			}
			return nil
		},
	})
}

func NewClientWithDI(cfg ClientConfig) (*Client, error) {
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if cfg.CallTimeout > 0 {
		opts = append(opts, grpc.WithUnaryInterceptor(timeoutInterceptor(cfg.CallTimeout)))
	}
	return Dial(cfg.Target, opts...)
}

func RegisterClientLifecycle(lc fx.Lifecycle, c *Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
}

func timeoutInterceptor(d time.Duration) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}
