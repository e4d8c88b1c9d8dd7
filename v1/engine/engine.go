package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/schema"
)

// Engine is the columnar vector-search storage engine. Implementations must be
// safe for concurrent use.
//
//go:generate mockgen -source=engine.go -destination=enginetest/mock_engine.go -package=enginetest
type Engine interface {
	// Create builds a new table. It is called once per table.
	Create(ctx context.Context, decl schema.TableDeclaration) error

	// AddField adds a scalar or multi-string column to an existing table.
	AddField(ctx context.Context, key schema.TableKey, field schema.FieldDecl) error

	// Add upserts documents by primary key.
	Add(ctx context.Context, key schema.TableKey, docs []Document) error

	Search(ctx context.Context, req SearchRequest) ([]Row, error)
	Get(ctx context.Context, req GetRequest) ([]Row, error)
	Delete(ctx context.Context, key schema.TableKey, ids [][]byte) error

	// Describe returns the declaration of an existing table, or an error of
	// kind errs.TableNotFound.
	Describe(ctx context.Context, key schema.TableKey) (schema.TableDeclaration, error)
	Drop(ctx context.Context, key schema.TableKey) error
	List(ctx context.Context, db string) ([]schema.TableKey, error)
}

var _ schema.Provisioner = Engine(nil)

// Field is one encoded column value. MultiString values use Multi.
type Field struct {
	Name  string
	Type  fieldtype.FieldType
	Value []byte
	Multi [][]byte
}

// Document is an encoded row ready for ingestion.
type Document struct {
	// ID is the encoded primary key.
	ID []byte
	// IDValue is the primary key as int64 or string.
	IDValue any
	Fields  []Field
}

// Field returns the named field of d.
func (d Document) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RangeFilter restricts a numeric field. A nil bound is unbounded.
type RangeFilter struct {
	Field        string
	Lower        []byte
	Upper        []byte
	IncludeLower bool
	IncludeUpper bool
}

// TermFilter matches a textual field against a set of values. Union selects
// OR semantics, otherwise every value must be present.
type TermFilter struct {
	Field  string
	Values []string
	Union  bool
}

// VectorQuery scores rows against one vector field. Value holds the encoded
// query vector.
type VectorQuery struct {
	Field    string
	Value    []byte
	MinScore float64
	MaxScore float64
	Boost    float64
}

// Metric is the vector similarity used for scoring.
type Metric int

const (
	L2 Metric = iota
	InnerProduct
)

func (m Metric) String() string {
	switch m {
	case L2:
		return "L2"
	case InnerProduct:
		return "InnerProduct"
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// ParseMetric accepts L2 and InnerProduct (or IP), case-insensitively.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToUpper(s) {
	case "L2", "":
		return L2, nil
	case "INNERPRODUCT", "IP", "INNER_PRODUCT":
		return InnerProduct, nil
	}
	return L2, fmt.Errorf("unknown metric %q", s)
}

func (m Metric) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Metric) UnmarshalText(b []byte) error {
	v, err := ParseMetric(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// SearchRequest is a composed similarity search.
type SearchRequest struct {
	DB            string
	Table         string
	VectorQueries []VectorQuery
	RangeFilters  []RangeFilter
	TermFilters   []TermFilter
	TopN          int
	BruteForce    bool
	Projection    []string
	Metric        Metric
}

func (r SearchRequest) Key() schema.TableKey {
	return schema.TableKey{DB: r.DB, Table: r.Table}
}

// GetRequest fetches rows by id, or by filter when IDs is empty.
type GetRequest struct {
	Key          schema.TableKey
	IDs          [][]byte
	RangeFilters []RangeFilter
	TermFilters  []TermFilter
	Limit        int
	Projection   []string
}

// Row is one result. Score is zero for Get.
type Row struct {
	ID     []byte
	Score  float64
	Fields []Field
}

// Field returns the named field of r.
func (r Row) Field(name string) (Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
