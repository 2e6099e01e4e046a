package sources

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0644))
}

func setupLibrary(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, root, "2021/a.jpg", "jpeg-a")
	writeFile(t, root, "2021/a.jpg.json", `{"asset":{"title":"Alpha","taken_at":1620000000000},"location":{"latitude":1.0,"longitude":2.0,"accuracy":5.0}}`)
	writeFile(t, root, "2021/b.jpg", "jpeg-b")
	writeFile(t, root, "2021/_overlay.json", `{"albums":["Spring 2021"],"library":"family"}`)
	writeFile(t, root, "2022/c.mp4", "mp4-c")
	writeFile(t, root, "2022/c.mp4.override.json", `{"title":"Corrected title"}`)
	writeFile(t, root, "notes.txt", "not media")
	return root
}

func TestLocalFetchPagesInOrder(t *testing.T) {
	connector := NewLocalConnector(setupLibrary(t))
	ctx := context.Background()

	first, err := connector.Fetch(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, first.Assets, 2)
	assert.Equal(t, "2021/a.jpg", first.Assets[0].SourceID)
	assert.Equal(t, "2021/b.jpg", first.Assets[1].SourceID)
	assert.Equal(t, "2021/b.jpg", first.NextCursor)
	assert.True(t, first.HasMore)

	second, err := connector.Fetch(ctx, first.NextCursor, 2)
	require.NoError(t, err)
	require.Len(t, second.Assets, 1)
	assert.Equal(t, "2022/c.mp4", second.Assets[0].SourceID)
	assert.Equal(t, "2022/c.mp4", second.NextCursor)
	assert.False(t, second.HasMore)
}

func TestLocalSidecarAndOverlayPairing(t *testing.T) {
	connector := NewLocalConnector(setupLibrary(t))

	batch, err := connector.Fetch(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, batch.Assets, 3)

	a := batch.Assets[0]
	require.NotNil(t, a.Metadata)
	asset, ok := a.Metadata["asset"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Alpha", asset["title"])
	assert.Nil(t, a.Sidecar)
	require.NotNil(t, a.Overlay)
	assert.Equal(t, "family", a.Overlay["library"])

	b := batch.Assets[1]
	assert.Nil(t, b.Metadata)
	require.NotNil(t, b.Overlay)

	c := batch.Assets[2]
	assert.Nil(t, c.Overlay)
	require.NotNil(t, c.Sidecar)
	assert.Equal(t, "Corrected title", c.Sidecar["title"])
}

func TestLocalRenditionOpensFileContent(t *testing.T) {
	connector := NewLocalConnector(setupLibrary(t))

	batch, err := connector.Fetch(context.Background(), "", 1)
	require.NoError(t, err)
	require.Len(t, batch.Assets, 1)
	require.Len(t, batch.Assets[0].Renditions, 1)

	r := batch.Assets[0].Renditions[0]
	assert.Equal(t, "image/jpeg", r.ContentType)
	reader, err := r.Open()
	require.NoError(t, err)
	defer reader.Close()
	content, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-a", string(content))
}

func TestLocalResumeAfterDeletedCursorFile(t *testing.T) {
	root := setupLibrary(t)
	connector := NewLocalConnector(root)

	// cursor points at a file that no longer exists; scan resumes at
	// the next lexicographic path
	batch, err := connector.Fetch(context.Background(), "2021/aa.jpg", 0)
	require.NoError(t, err)
	require.Len(t, batch.Assets, 2)
	assert.Equal(t, "2021/b.jpg", batch.Assets[0].SourceID)
}

func TestLocalMalformedSidecarIgnored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "x.jpg", "bytes")
	writeFile(t, root, "x.jpg.json", `{not json`)

	batch, err := NewLocalConnector(root).Fetch(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, batch.Assets, 1)
	assert.Nil(t, batch.Assets[0].Metadata)
}
