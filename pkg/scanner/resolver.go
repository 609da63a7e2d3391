package scanner

import (
	"context"
	"strings"

	"photocat/pkg/dbsvc"
)

// folderResolver maps flat object keys to folder records, creating missing
// ancestors along the way. Both caches are scoped to one scan invocation and
// discarded with it: a path encountered thousands of times inside one scan
// costs a single catalog round trip.
type folderResolver struct {
	catalog dbsvc.Catalog
	ids     map[string]int64    // path → catalog id
	seen    map[string]struct{} // paths confirmed in the catalog this scan
	touched map[int64]struct{}  // folder ids to re-aggregate after the scan
}

func newFolderResolver(catalog dbsvc.Catalog) *folderResolver {
	return &folderResolver{
		catalog: catalog,
		ids:     make(map[string]int64),
		seen:    make(map[string]struct{}),
		touched: make(map[int64]struct{}),
	}
}

// Resolve returns the catalog id of the folder at path, creating the folder
// and every missing ancestor in a single pass. The store root resolves to
// nil: it has no folder record. On a cache miss the whole missing ancestor
// chain is checked with one query, then the remainder is created top-down so
// each new folder references its just-created parent.
func (r *folderResolver) Resolve(ctx context.Context, path string) (*int64, error) {
	if path == "" {
		return nil, nil
	}
	if _, ok := r.seen[path]; ok {
		id := r.ids[path]
		return &id, nil
	}

	chain := ancestorChain(path)
	missing := make([]string, 0, len(chain))
	for _, p := range chain {
		if _, ok := r.seen[p]; !ok {
			missing = append(missing, p)
		}
	}

	existing, err := r.catalog.GetFoldersByPaths(ctx, missing)
	if err != nil {
		return nil, err
	}
	for p, f := range existing {
		r.remember(p, f.ID)
	}

	for _, p := range chain {
		if _, ok := r.seen[p]; ok {
			continue
		}
		var parentID *int64
		if parent := parentPath(p); parent != "" {
			id := r.ids[parent]
			parentID = &id
		}
		folder, err := r.catalog.CreateFolder(ctx, p, lastSegment(p), parentID)
		if err != nil {
			return nil, err
		}
		r.remember(p, folder.ID)
	}

	id := r.ids[path]
	return &id, nil
}

func (r *folderResolver) remember(path string, id int64) {
	r.ids[path] = id
	r.seen[path] = struct{}{}
	r.touched[id] = struct{}{}
}

// TouchedIDs returns the ids of every folder resolved or created during the
// scan, for the post-scan aggregation pass.
func (r *folderResolver) TouchedIDs() []int64 {
	ids := make([]int64, 0, len(r.touched))
	for id := range r.touched {
		ids = append(ids, id)
	}
	return ids
}

// ancestorChain expands "a/b/c" into ["a", "a/b", "a/b/c"].
func ancestorChain(path string) []string {
	segments := strings.Split(path, "/")
	chain := make([]string, 0, len(segments))
	for i := range segments {
		chain = append(chain, strings.Join(segments[:i+1], "/"))
	}
	return chain
}

func parentPath(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx == -1 {
		return ""
	}
	return path[:idx]
}

func lastSegment(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx == -1 {
		return path
	}
	return path[idx+1:]
}
