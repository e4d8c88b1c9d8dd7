package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/awa-ai/awadb/v1/fieldtype"
	"github.com/awa-ai/awadb/v1/schema"
)

// document is the on-disk layout. Every map is keyed by "db/table".
type document struct {
	Version         int                            `json:"version"`
	FieldsCheck     map[string]bool                `json:"fields_check"`
	FieldsType      map[string][]map[string]string `json:"fields_type"`
	VectorFieldName map[string]map[string]uint32   `json:"vector_field_name"`
	PrimaryKey      map[string]string              `json:"primary_key"`
	DocCount        map[string]int64               `json:"doc_count"`
	PendingFields   map[string][]schema.FieldDecl  `json:"pending_fields,omitempty"`
	TablesInfo      map[string]tableInfo           `json:"tables_info"`
	Intents         map[string]intent              `json:"intents,omitempty"`
}

type tableInfo struct {
	FieldsInfo     []schema.FieldDecl `json:"fields_info"`
	VecFields      []schema.FieldDecl `json:"vec_fields"`
	IndexingSize   int                `json:"indexing_size"`
	RetrievalType  string             `json:"retrieval_type"`
	RetrievalParam string             `json:"retrieval_param"`
}

// intent is the proposed state of a table whose creation is in flight.
type intent struct {
	FieldsType      []map[string]string `json:"fields_type"`
	VectorFieldName map[string]uint32   `json:"vector_field_name"`
	PrimaryKey      string              `json:"primary_key"`
	PendingFields   []schema.FieldDecl  `json:"pending_fields,omitempty"`
	TableInfo       tableInfo           `json:"table_info"`
}

// Marshal renders snap as a tables.meta document.
func Marshal(snap *schema.Snapshot) ([]byte, error) {
	doc := document{
		Version:         schema.SnapshotVersion,
		FieldsCheck:     map[string]bool{},
		FieldsType:      map[string][]map[string]string{},
		VectorFieldName: map[string]map[string]uint32{},
		PrimaryKey:      map[string]string{},
		DocCount:        map[string]int64{},
		TablesInfo:      map[string]tableInfo{},
	}
	if snap != nil && snap.Version != 0 {
		doc.Version = snap.Version
	}
	if snap == nil {
		return json.MarshalIndent(doc, "", "  ")
	}

	for key, st := range snap.Tables {
		name := key.String()
		doc.FieldsCheck[name] = st.Frozen
		doc.FieldsType[name] = fieldList(st)
		doc.VectorFieldName[name] = dims(st)
		doc.PrimaryKey[name] = st.PrimaryKey
		doc.DocCount[name] = st.DocCount
		if st.Frozen {
			doc.TablesInfo[name] = infoOf(st.Declaration)
		}
		if len(st.Pending) > 0 {
			if doc.PendingFields == nil {
				doc.PendingFields = map[string][]schema.FieldDecl{}
			}
			doc.PendingFields[name] = st.Pending
		}
		if st.Intent != nil {
			if doc.Intents == nil {
				doc.Intents = map[string]intent{}
			}
			doc.Intents[name] = intent{
				FieldsType:      fieldList(st.Intent),
				VectorFieldName: dims(st.Intent),
				PrimaryKey:      st.Intent.PrimaryKey,
				PendingFields:   st.Intent.Pending,
				TableInfo:       infoOf(st.Intent.Declaration),
			}
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Unmarshal parses a tables.meta document. An empty input is an empty
// snapshot.
func Unmarshal(data []byte) (*schema.Snapshot, error) {
	snap := schema.NewSnapshot()
	if len(data) == 0 {
		return snap, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if doc.Version > schema.SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d is newer than supported version %d", doc.Version, schema.SnapshotVersion)
	}
	if doc.Version != 0 {
		snap.Version = doc.Version
	}

	names := map[string]struct{}{}
	for name := range doc.FieldsCheck {
		names[name] = struct{}{}
	}
	for name := range doc.FieldsType {
		names[name] = struct{}{}
	}
	for name := range doc.Intents {
		names[name] = struct{}{}
	}

	for name := range names {
		key, err := schema.ParseTableKey(name)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		st, err := restore(key, doc.FieldsType[name], doc.VectorFieldName[name], doc.PrimaryKey[name])
		if err != nil {
			return nil, fmt.Errorf("decode snapshot table %s: %w", name, err)
		}
		st.Frozen = doc.FieldsCheck[name]
		st.DocCount = doc.DocCount[name]
		st.Pending = doc.PendingFields[name]
		if info, ok := doc.TablesInfo[name]; ok {
			st.Declaration = declOf(key, st.PrimaryKey, info)
		}

		if in, ok := doc.Intents[name]; ok {
			proposed, err := restore(key, in.FieldsType, in.VectorFieldName, in.PrimaryKey)
			if err != nil {
				return nil, fmt.Errorf("decode snapshot intent %s: %w", name, err)
			}
			proposed.Pending = in.PendingFields
			proposed.Declaration = declOf(key, proposed.PrimaryKey, in.TableInfo)
			st.Intent = proposed
		}
		snap.Tables[key] = st
	}
	return snap, nil
}

func fieldList(st *schema.State) []map[string]string {
	out := make([]map[string]string, 0, len(st.Order))
	for _, name := range st.Order {
		out = append(out, map[string]string{name: st.Fields[name].String()})
	}
	return out
}

func dims(st *schema.State) map[string]uint32 {
	out := make(map[string]uint32, len(st.Dimensions))
	for name, d := range st.Dimensions {
		out[name] = d
	}
	return out
}

func infoOf(decl schema.TableDeclaration) tableInfo {
	return tableInfo{
		FieldsInfo:     nonNil(decl.Fields),
		VecFields:      nonNil(decl.Vectors),
		IndexingSize:   decl.IndexingSize,
		RetrievalType:  decl.RetrievalType,
		RetrievalParam: decl.RetrievalParam,
	}
}

func declOf(key schema.TableKey, primaryKey string, info tableInfo) schema.TableDeclaration {
	return schema.TableDeclaration{
		Key:            key,
		PrimaryKey:     primaryKey,
		Fields:         info.FieldsInfo,
		Vectors:        info.VecFields,
		IndexingSize:   info.IndexingSize,
		RetrievalType:  info.RetrievalType,
		RetrievalParam: info.RetrievalParam,
	}
}

func nonNil(fields []schema.FieldDecl) []schema.FieldDecl {
	if fields == nil {
		return []schema.FieldDecl{}
	}
	return fields
}

func restore(key schema.TableKey, fields []map[string]string, vecs map[string]uint32, primaryKey string) (*schema.State, error) {
	st := &schema.State{
		Key:        key,
		PrimaryKey: primaryKey,
		Fields:     map[string]fieldtype.FieldType{},
		Dimensions: map[string]uint32{},
	}
	for _, entry := range fields {
		for name, typeName := range entry {
			ft, err := fieldtype.Parse(typeName)
			if err != nil {
				return nil, err
			}
			if _, dup := st.Fields[name]; dup {
				return nil, fmt.Errorf("field %q listed twice", name)
			}
			st.Fields[name] = ft
			st.Order = append(st.Order, name)
		}
	}
	for name, d := range vecs {
		if st.Fields[name] != fieldtype.Vector {
			return nil, fmt.Errorf("vector field %q is not declared as VECTOR", name)
		}
		st.Dimensions[name] = d
	}
	return st, nil
}
