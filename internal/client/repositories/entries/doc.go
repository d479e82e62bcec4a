// Package entries is the local notebook store.
//
// Each write keeps three tables consistent inside one transaction: the
// entries themselves, the search_index row holding their plain text and
// tags, and the backlinks rows derived from entry links in their blocks.
// Blocks and tags are stored as msgpack blobs.
//
//	repo := entries.NewSQLiteRepository(db)
//	_ = repo.Upsert(ctx, entry)
//	all, _ := repo.GetAll(ctx)
//	ids, _ := repo.Search(ctx, "standup")
package entries
