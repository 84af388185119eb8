// Package catalogsearch provides an embedded Go client for the
// catalogsearch fusion retrieval engine backed by Redis.
//
// The client wires the same ingestion, retrieval, telemetry and
// learning services the HTTP server runs, so a Go process can index
// and search a catalog without standing up the API:
//
//	client, _ := catalogsearch.New(ctx, catalogsearch.WithRedis("localhost:6379", ""))
//	defer client.Close()
//
//	_ = client.Upsert(ctx, "Y1", "part", "pump-003", catalogsearch.ObjectUpsert{
//	    RawText: "Pump, Sea Water Cooling, DESMI",
//	    Payload: []byte(`{"maker":"DESMI"}`),
//	})
//
//	results, _ := client.Search(ctx, "Y1", catalogsearch.SearchQuery{
//	    Rewrites: []catalogsearch.Rewrite{{Text: "seawater pump"}},
//	})
//
// Clicked results feed the learning loop:
//
//	_ = client.RecordClick(ctx, "Y1", catalogsearch.Click{
//	    QueryText: "seawater pump", ObjectType: "part", ObjectID: "pump-003", Rank: 1,
//	})
//	_ = client.RunLearningPass(ctx)
package catalogsearch
