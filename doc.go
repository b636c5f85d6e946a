// Package graphfetch retrieves published graph datasets over HTTP, caches
// them on disk and hands the verified local files to a native graph
// constructor.
//
// A dataset is identified by a collection (for example "string"), a name
// (for example "HomoSapiens") and a version. The built-in catalog maps each
// dataset to one or more remote locations, tried in order, with optional
// published checksums. Downloads stream to a temporary file and are renamed
// into the cache atomically, so concurrent fetchers of the same dataset never
// observe a partial file and a second fetch of a cached dataset performs no
// network I/O at all.
//
//	g, err := graphfetch.New("HomoSapiens", "string",
//		graphfetch.WithCacheRoot("graphs"),
//		graphfetch.WithBuilder(myEngine))
//	if err != nil {
//		return err
//	}
//	handle, err := g.Load(ctx)
//
// Graph construction itself is delegated to a caller-supplied GraphBuilder;
// graphfetch only guarantees that the paths it passes in exist and, when a
// checksum is published, match it.
package graphfetch
