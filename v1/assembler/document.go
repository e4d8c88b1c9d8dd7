package assembler

import "sort"

// Field is one named value of an input document.
type Field struct {
	Name  string
	Value any
}

// Document is an ordered list of fields. A name may occur more than once;
// only its first occurrence is stored.
type Document []Field

// FromMap converts m into a Document with fields sorted by name.
func FromMap(m map[string]any) Document {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	doc := make(Document, len(names))
	for i, name := range names {
		doc[i] = Field{Name: name, Value: m[name]}
	}
	return doc
}

// Get returns the first value stored under name.
func (d Document) Get(name string) (any, bool) {
	for _, f := range d {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}
