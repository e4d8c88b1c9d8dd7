/*
Package awadb is the client facade of the schema layer.

A Client accepts loosely typed documents, infers a column schema for every
table on its first write, creates the engine table once and validates every
later write against that schema. Queries are composed against the same
schema and their rows are decoded back into Go values.

Basic usage:

	store, _ := snapshot.NewFileStore("/var/lib/awadb")
	client, err := awadb.Open(ctx, awadb.DefaultConfig(), store, memengine.New(memengine.DefaultConfig()),
	    awadb.WithEmbedder(embedder),
	)
	if err != nil {
	    return err
	}
	defer client.Close(ctx)

	ids, err := client.AddTexts(ctx, "docs", []string{"hello world"}, awadb.TextOptions{
	    Metadata: []map[string]any{{"source": "greeting"}},
	})

	results, err := client.Search(ctx, "docs", request.Query{
	    Value:   "hello",
	    Filters: map[string]any{"source": "greeting"},
	})

Tables live in Config.DB. Drop and List take explicit keys and databases.

Open loads the persisted schema and calls Recover, which settles table
creations interrupted by a crash. With fx, FXModule does the same on start.
*/
package awadb
