// Package rfprag embeds the tenant-scoped RFP retrieval engine in a Go
// process, without the HTTP server.
//
// The client owns a vector index connection and answers one question at a
// time: given a question embedding and a tenant, return the ranked,
// sanitized chunks that may be used as context for an answer.
//
//	client, err := rfprag.New(ctx,
//	    rfprag.WithValkey("localhost:6379", ""),
//	    rfprag.WithVectorDimensions(1536),
//	)
//	if err != nil { ... }
//	defer client.Close()
//
//	res, err := client.Retrieve(ctx, embedding, "security", tenantID,
//	    rfprag.PinnedTo("rfp-2026-017"),
//	    rfprag.AtDepth(rfprag.DepthDetailed),
//	)
//
// Results never contain chunks of another tenant. A blank tenant fails with
// ErrInvalidTenant before the index is contacted; index failures surface as
// ErrProviderUnavailable.
package rfprag
