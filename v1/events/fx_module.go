package events

import (
	"context"

	"go.uber.org/fx"
)

// FXModule provides the Publisher selected by Config and a Notifier over it.
// The publisher is closed on stop.
var FXModule = fx.Module("events",
	fx.Provide(
		NewPublisherWithDI,
		NewNotifierWithDI,
	),
	fx.Invoke(RegisterEventsLifecycle),
)

type PublisherParams struct {
	fx.In

	Config Config `optional:"true"`
}

func NewPublisherWithDI(p PublisherParams) (Publisher, error) {
	return New(p.Config)
}

type NotifierParams struct {
	fx.In

	Publisher Publisher
	Logger    Logger `optional:"true"`
}

func NewNotifierWithDI(p NotifierParams) *Notifier {
	return NewNotifier(p.Publisher, p.Logger)
}

func RegisterEventsLifecycle(lc fx.Lifecycle, pub Publisher) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return pub.Close()
		},
	})
}
