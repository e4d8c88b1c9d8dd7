package awadb

import (
	"context"

	"github.com/awa-ai/awadb/v1/assembler"
	"github.com/awa-ai/awadb/v1/errs"
)

// TextOptions carries the optional per-text inputs of AddTexts. Every
// non-nil slice must have one entry per text.
type TextOptions struct {
	// Embeddings holds precomputed vectors. Nil entries are embedded.
	Embeddings [][]float32

	// Metadata adds fields to each document. It never replaces the text,
	// embedding or id fields.
	Metadata []map[string]any

	// IDs sets explicit primary keys. Nil entries are generated.
	IDs []any
}

// AddTexts stores each text in the dedup field next to its embedding and
// returns the primary keys of the written documents.
func (c *Client) AddTexts(ctx context.Context, table string, texts []string, opts TextOptions) ([]any, error) {
	key := c.key(table)
	if len(texts) == 0 {
		return nil, nil
	}
	for _, in := range []struct {
		name string
		n    int
	}{{"embeddings", len(opts.Embeddings)}, {"metadata", len(opts.Metadata)}, {"ids", len(opts.IDs)}} {
		if in.n != 0 && in.n != len(texts) {
			return nil, errs.New(errs.InvalidQuery, "%d texts but %d %s", len(texts), in.n, in.name).WithTable(key.String())
		}
	}

	vecs, err := c.embedMissing(ctx, texts, opts.Embeddings)
	if err != nil {
		return nil, errs.Wrap(errs.EmbeddingFailed, err, "embed texts").WithTable(key.String())
	}

	docs := make([]assembler.Document, len(texts))
	for i, text := range texts {
		var doc assembler.Document
		if len(opts.IDs) > 0 && opts.IDs[i] != nil {
			doc = append(doc, assembler.Field{Name: c.cfg.PrimaryKey, Value: opts.IDs[i]})
		}
		doc = append(doc,
			assembler.Field{Name: c.cfg.DedupField, Value: text},
			assembler.Field{Name: c.cfg.EmbeddingField, Value: vecs[i]},
		)
		if len(opts.Metadata) > 0 {
			doc = append(doc, assembler.FromMap(opts.Metadata[i])...)
		}
		docs[i] = doc
	}
	return c.Add(ctx, table, docs)
}

// embedMissing returns one vector per text, calling the embedder once for
// every text without a precomputed vector.
func (c *Client) embedMissing(ctx context.Context, texts []string, given [][]float32) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []int
	for i := range texts {
		if len(given) > 0 && given[i] != nil {
			out[i] = given[i]
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	if c.embedder == nil {
		return nil, errs.New(errs.EmbeddingFailed, "no embedder configured")
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}
	vecs, err := c.embedder.EmbedBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(batch) {
		return nil, errs.New(errs.EmbeddingFailed, "embedder returned %d vectors for %d texts", len(vecs), len(batch))
	}
	for j, i := range missing {
		out[i] = vecs[j]
	}
	return out, nil
}
