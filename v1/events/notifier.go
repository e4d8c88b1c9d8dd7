package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/awa-ai/awadb/v1/schema"
)

// Logger receives publish failures.
type Logger interface {
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Notifier builds schema change events and hands them to a Publisher.
// Publish failures are logged and never returned, so schema changes do not
// depend on the broker.
type Notifier struct {
	pub Publisher
	log Logger
	now func() time.Time
}

// NewNotifier wraps pub. A nil pub drops every event.
func NewNotifier(pub Publisher, log Logger) *Notifier {
	if pub == nil {
		pub = Nop{}
	}
	return &Notifier{pub: pub, log: log, now: time.Now}
}

func (n *Notifier) TableCreated(ctx context.Context, decl schema.TableDeclaration) {
	n.publish(ctx, Event{Type: TableCreated, Table: decl.Key, Declaration: &decl})
}

func (n *Notifier) FieldAdded(ctx context.Context, key schema.TableKey, field schema.FieldDecl) {
	n.publish(ctx, Event{Type: FieldAdded, Table: key, Field: &field})
}

func (n *Notifier) TableDropped(ctx context.Context, key schema.TableKey) {
	n.publish(ctx, Event{Type: TableDropped, Table: key})
}

func (n *Notifier) publish(ctx context.Context, ev Event) {
	ev.ID = uuid.NewString()
	ev.Time = n.now().UTC()
	if err := n.pub.Publish(ctx, ev); err != nil && n.log != nil {
		n.log.Warn("failed to publish schema event", err, map[string]interface{}{
			"type":  string(ev.Type),
			"table": ev.Table.String(),
		})
	}
}

// Close closes the underlying publisher.
func (n *Notifier) Close() error {
	return n.pub.Close()
}
