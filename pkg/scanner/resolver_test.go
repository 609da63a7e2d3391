package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"photocat/pkg/dbsvc"
	"photocat/pkg/dto"
	"photocat/pkg/testutil"
)

// countingCatalog counts the catalog round trips the resolver makes.
type countingCatalog struct {
	dbsvc.Catalog
	lookups int
	creates int
}

func (c *countingCatalog) GetFoldersByPaths(ctx context.Context, paths []string) (map[string]dto.Folder, error) {
	c.lookups++
	return c.Catalog.GetFoldersByPaths(ctx, paths)
}

func (c *countingCatalog) CreateFolder(ctx context.Context, path, name string, parentID *int64) (dto.Folder, error) {
	c.creates++
	return c.Catalog.CreateFolder(ctx, path, name, parentID)
}

func TestFolderResolver_CreatesAncestorChain(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	r := newFolderResolver(fake)

	id, err := r.Resolve(context.Background(), "a/b/c")
	require.NoError(t, err)
	require.NotNil(t, id)

	a, err := fake.GetFolderByPath(context.Background(), "a")
	require.NoError(t, err)
	b, err := fake.GetFolderByPath(context.Background(), "a/b")
	require.NoError(t, err)
	c, err := fake.GetFolderByPath(context.Background(), "a/b/c")
	require.NoError(t, err)

	assert.Equal(t, c.ID, *id)
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, "b", b.Name)
	assert.Equal(t, "c", c.Name)

	assert.Nil(t, a.ParentID, "top-level folder has no parent")
	require.NotNil(t, b.ParentID)
	assert.Equal(t, a.ID, *b.ParentID)
	require.NotNil(t, c.ParentID)
	assert.Equal(t, b.ID, *c.ParentID)
}

func TestFolderResolver_MemoizesWithinScan(t *testing.T) {
	counting := &countingCatalog{Catalog: testutil.NewFakeCatalog()}
	r := newFolderResolver(counting)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "a/b/c")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.lookups, "one batched lookup for the whole chain")
	assert.Equal(t, 3, counting.creates)

	// Same path again: served entirely from the scan cache.
	_, err = r.Resolve(ctx, "a/b/c")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.lookups)
	assert.Equal(t, 3, counting.creates)

	// A deeper path only pays for its unseen tail.
	_, err = r.Resolve(ctx, "a/b/c/d")
	require.NoError(t, err)
	assert.Equal(t, 2, counting.lookups)
	assert.Equal(t, 4, counting.creates)
}

func TestFolderResolver_ReusesExistingFolders(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	seeded := fake.SeedFolder(dto.Folder{Path: "a", Name: "a"})

	counting := &countingCatalog{Catalog: fake}
	r := newFolderResolver(counting)

	id, err := r.Resolve(context.Background(), "a/b")
	require.NoError(t, err)
	require.NotNil(t, id)

	assert.Equal(t, 1, counting.creates, "only the missing segment is created")

	b, err := fake.GetFolderByPath(context.Background(), "a/b")
	require.NoError(t, err)
	require.NotNil(t, b.ParentID)
	assert.Equal(t, seeded.ID, *b.ParentID)
}

func TestFolderResolver_RootResolvesToNil(t *testing.T) {
	r := newFolderResolver(testutil.NewFakeCatalog())

	id, err := r.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, id, "the store root has no folder record")
	assert.Empty(t, r.TouchedIDs())
}

func TestAncestorChain(t *testing.T) {
	assert.Equal(t, []string{"a"}, ancestorChain("a"))
	assert.Equal(t, []string{"a", "a/b", "a/b/c"}, ancestorChain("a/b/c"))
}

func TestFolderPathOf(t *testing.T) {
	assert.Equal(t, "", folderPathOf("root.jpg"))
	assert.Equal(t, "a", folderPathOf("a/file.jpg"))
	assert.Equal(t, "a/b/c", folderPathOf("a/b/c/file.jpg"))
}

func TestNormalizeFolderPath(t *testing.T) {
	assert.Equal(t, "", normalizeFolderPath("/"))
	assert.Equal(t, "a/b", normalizeFolderPath("/a/b/"))
	assert.Equal(t, "a/b", normalizeFolderPath("a/b"))
}

func TestPartitionByDepth(t *testing.T) {
	objects := []dto.ObjectInfo{
		{Key: "a/b/img2.jpg"},
		{Key: "a/b/c/img1.jpg"},
		{Key: "a/b/c/d/deep.jpg"},
		{Key: "a/b/z/other.jpg"},
		{Key: "a/b/notes.txt"},
	}

	direct, subfolders := partitionByDepth(objects, "a/b/")

	require.Len(t, direct, 2)
	assert.Equal(t, "a/b/img2.jpg", direct[0].Key)
	assert.Equal(t, "a/b/notes.txt", direct[1].Key)
	assert.Equal(t, []string{"c", "z"}, subfolders, "only immediate children, sorted")
}
