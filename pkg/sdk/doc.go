// Package docmatch provides an in-process client for matching documents
// against templates, backed by Valkey or Redis.
//
// The client builds (or loads) the template embedding cache on New and runs
// matches synchronously as the insider client: no progress or result
// notifications are published, outcomes are persisted as usual.
//
//	client, err := docmatch.New(ctx,
//	    docmatch.WithValkey("localhost:6379", ""),
//	    docmatch.WithEmbedder(myEmbedder),
//	    docmatch.WithTemplatesDir("templates/model"),
//	)
//	res, err := client.Match(ctx, "doc-1", body)
//	if res.Found {
//	    fmt.Println(res.TemplateID, res.Fields["title"])
//	}
package docmatch
