// Package qdrant implements engine.Engine on top of the Qdrant vector
// database.
//
// Every table db/t is stored in the collection <prefix>db__t with one named
// vector per VECTOR field, all using the distance of Config.Metric (Euclid
// for L2, Dot for InnerProduct). Scalar fields are kept in the point payload
// and indexed fields get a payload index. The encoded primary key is kept
// under the __id payload key; point ids are uuids derived from it.
//
// Declarations are stored in Config.MetaCollection, one point per table, and
// back Describe, List and Drop.
//
// Searches over several vector fields query each field in parallel, fetch
// TopN*Oversample candidates, and keep the rows returned for every field.
// L2 scores are squared distances. Projected vector fields are not returned.
//
// Usage:
//
//	qc, err := qdrant.NewQdrantClient(*qdrant.DefaultConfig(), log)
//	if err != nil {
//		return err
//	}
//	eng := qdrant.NewEngine(qc)
//
// Or with fx:
//
//	app := fx.New(
//		fx.Supply(qdrant.FromEndpoint("qdrant").WithMetric(engine.InnerProduct)),
//		qdrant.FXModule,
//	)
package qdrant
