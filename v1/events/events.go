package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/awa-ai/awadb/v1/schema"
)

// Type names a schema change.
type Type string

const (
	TableCreated Type = "table_created"
	FieldAdded   Type = "field_added"
	TableDropped Type = "table_dropped"
)

// Event is one schema change. Declaration is set for TableCreated and Field
// for FieldAdded.
type Event struct {
	ID          string                   `json:"id"`
	Type        Type                     `json:"type"`
	Table       schema.TableKey          `json:"table"`
	Field       *schema.FieldDecl        `json:"field,omitempty"`
	Declaration *schema.TableDeclaration `json:"declaration,omitempty"`
	Time        time.Time                `json:"time"`
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers schema change events.
//
//go:generate mockgen -source=events.go -destination=mock_publisher.go -package=events
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
