// Package embedding turns text into vectors through an OpenAI-compatible
// inference service.
//
// The Client posts {"model", "input"} to <endpoint>/embeddings and returns
// the data[].embedding arrays as float32 vectors, in input order. Large inputs
// are split into batches of Config.BatchSize, and Config.RequestsPerSecond
// paces the outgoing requests with a token bucket.
//
// Configuration comes from the environment:
//
//	EMBEDDING_ENDPOINT               base URL, without /embeddings
//	EMBEDDING_SERVICE_TOKEN          optional bearer token
//	EMBEDDING_MODEL                  model name
//	EMBEDDING_HTTP_TIMEOUT_SECONDS   request timeout, default 30
//	EMBEDDING_BATCH_SIZE             texts per request, default 64
//	EMBEDDING_REQUESTS_PER_SECOND    0 disables limiting
//
// Usage:
//
//	client, err := embedding.NewClient(embedding.NewConfig())
//	if err != nil {
//		return err
//	}
//	vec, err := client.Embed(ctx, "hello world")
//
// Code that only needs vectors should depend on the Embedder interface;
// MockEmbedder implements it for tests.
package embedding
