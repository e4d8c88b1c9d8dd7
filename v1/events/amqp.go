package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a durable topic exchange with routing
// key <prefix><type>.
type AMQPPublisher struct {
	cfg  AMQPConfig
	conn *amqp.Connection

	mu sync.Mutex
	ch amqpChannel
}

func NewAMQPPublisher(cfg AMQPConfig) (*AMQPPublisher, error) {
	cfg = cfg.withDefaults()
	scheme := "amqp"
	if cfg.IsSSLEnabled {
		scheme = "amqps"
	}
	url := fmt.Sprintf("%s://%v:%v@%v:%v", scheme, cfg.User, cfg.Password, cfg.Host, cfg.Port)
	conn, err := amqp.DialConfig(url, amqp.Config{Heartbeat: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		cfg.Exchange,
		amqp.ExchangeTopic,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,   // Arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &AMQPPublisher{cfg: cfg, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) routingKey(t Type) string {
	return p.cfg.RoutingKeyPrefix + string(t)
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("rabbit: encode event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.cfg.Exchange, p.routingKey(ev.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.Time,
		Type:         string(ev.Type),
		Headers:      amqp.Table{"table": ev.Table.String()},
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbit: publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
