package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/awa-ai/awadb/v1/fieldtype"
)

// DefaultPrimaryKey is the primary-key field name used when none is configured.
const DefaultPrimaryKey = "_id"

// TableKey identifies a logical table.
type TableKey struct {
	DB    string `json:"db"`
	Table string `json:"table"`
}

// String renders the key the way snapshots index tables: "db/table".
func (k TableKey) String() string {
	return k.DB + "/" + k.Table
}

// ParseTableKey is the inverse of TableKey.String.
func ParseTableKey(s string) (TableKey, error) {
	db, table, ok := strings.Cut(s, "/")
	if !ok || db == "" || table == "" {
		return TableKey{}, fmt.Errorf("invalid table key %q", s)
	}
	return TableKey{DB: db, Table: table}, nil
}

// FieldDecl declares one column to the engine.
type FieldDecl struct {
	Name       string              `json:"name"`
	Type       fieldtype.FieldType `json:"data_type"`
	Indexed    bool                `json:"is_index"`
	Dimension  uint32              `json:"dimension,omitempty"`
	StoreType  string              `json:"store_type,omitempty"`
	StoreParam string              `json:"store_param,omitempty"`
	HasSource  bool                `json:"has_source,omitempty"`
}

// TableDeclaration is everything the engine needs to build a table.
type TableDeclaration struct {
	Key            TableKey    `json:"key"`
	PrimaryKey     string      `json:"primary_key"`
	Fields         []FieldDecl `json:"fields_info"`
	Vectors        []FieldDecl `json:"vec_fields"`
	IndexingSize   int         `json:"indexing_size"`
	RetrievalType  string      `json:"retrieval_type"`
	RetrievalParam string      `json:"retrieval_param"`
}

// Field looks up a scalar or vector declaration by name.
func (d TableDeclaration) Field(name string) (FieldDecl, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	for _, f := range d.Vectors {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDecl{}, false
}

// State is the published schema of one table. A *State is never mutated after
// it has been published; every change produces a new value.
type State struct {
	Key        TableKey
	PrimaryKey string

	// Fields maps every registered field to its type.
	Fields map[string]fieldtype.FieldType

	// Order lists field names in registration order.
	Order []string

	// Dimensions holds the fixed length of every vector field.
	Dimensions map[string]uint32

	// Frozen becomes true once, when the engine table has been created.
	Frozen bool

	// Pending lists registered fields the engine does not know about yet.
	Pending []FieldDecl

	// Declaration is the engine-side table as created and extended so far.
	Declaration TableDeclaration

	// DocCount is the number of documents ingested, as of the last save.
	DocCount int64

	// Intent is the schema a freeze in progress is about to commit.
	Intent *State
}

func newState(key TableKey, primaryKey string) *State {
	return &State{
		Key:        key,
		PrimaryKey: primaryKey,
		Fields:     map[string]fieldtype.FieldType{},
		Dimensions: map[string]uint32{},
	}
}

// Type returns the registered type of name.
func (s *State) Type(name string) (fieldtype.FieldType, bool) {
	t, ok := s.Fields[name]
	return t, ok
}

// Dimension returns the registered dimension of a vector field.
func (s *State) Dimension(name string) (uint32, bool) {
	d, ok := s.Dimensions[name]
	return d, ok
}

// VectorFields returns the vector field names in sorted order.
func (s *State) VectorFields() []string {
	out := make([]string, 0, len(s.Dimensions))
	for name := range s.Dimensions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ScalarFields returns every non-vector field name in sorted order.
func (s *State) ScalarFields() []string {
	out := make([]string, 0, len(s.Fields))
	for name, t := range s.Fields {
		if t != fieldtype.Vector {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// IsPending reports whether name is registered but not yet known to the engine.
func (s *State) IsPending(name string) bool {
	for _, f := range s.Pending {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Empty reports whether nothing has been registered.
func (s *State) Empty() bool {
	return !s.Frozen && len(s.Fields) == 0
}

func (s *State) clone() *State {
	c := *s
	c.Fields = make(map[string]fieldtype.FieldType, len(s.Fields))
	for k, v := range s.Fields {
		c.Fields[k] = v
	}
	c.Dimensions = make(map[string]uint32, len(s.Dimensions))
	for k, v := range s.Dimensions {
		c.Dimensions[k] = v
	}
	c.Order = append([]string(nil), s.Order...)
	c.Pending = append([]FieldDecl(nil), s.Pending...)
	c.Declaration.Fields = append([]FieldDecl(nil), s.Declaration.Fields...)
	c.Declaration.Vectors = append([]FieldDecl(nil), s.Declaration.Vectors...)
	return &c
}

// Snapshot is the durable form of the registry: every table's state.
type Snapshot struct {
	Version int
	Tables  map[TableKey]*State
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Version: SnapshotVersion, Tables: map[TableKey]*State{}}
}

// SnapshotVersion is the current snapshot document version.
const SnapshotVersion = 1

// Store persists snapshots. Load on a store that has never been written
// returns an empty snapshot and no error.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}

// Provisioner is the part of the engine the registry drives while changing a
// table's shape.
type Provisioner interface {
	Create(ctx context.Context, decl TableDeclaration) error
	AddField(ctx context.Context, key TableKey, field FieldDecl) error
}

// Logger defines the logging operations used by this package.
//
//go:generate mockgen -source=types.go -destination=mock_types_test.go -package=schema
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}
