package poster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/media2net/marktplaats-poster/models"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestFindPhotosForArticle(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ART-1", "b.png"))
	writeFile(t, filepath.Join(root, "ART-1", "a.jpg"))
	writeFile(t, filepath.Join(root, "ART-1", "c.txt"))
	writeFile(t, filepath.Join(root, "ART-1", "sub", "d.jpg"))

	photos := FindPhotosForArticle(root, "ART-1")
	require.Len(t, photos, 2)
	assert.Equal(t, "a.jpg", filepath.Base(photos[0]))
	assert.Equal(t, "b.png", filepath.Base(photos[1]))
	for _, p := range photos {
		assert.True(t, filepath.IsAbs(p))
	}
}

func TestFindPhotosForArticleMissingFolder(t *testing.T) {
	assert.Nil(t, FindPhotosForArticle(t.TempDir(), "nope"))
}

func TestResolvePhotoPathsMediaRootRelative(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.jpg"))

	p := models.Product{Photos: []string{"one.jpg", "missing.jpg"}}
	resolved := ResolvePhotoPaths(p, root)
	require.Len(t, resolved, 1)
	assert.Equal(t, filepath.Join(root, "one.jpg"), resolved[0])
}

func TestResolvePhotoPathsAbsolute(t *testing.T) {
	root := t.TempDir()
	abs := filepath.Join(root, "pic.jpeg")
	writeFile(t, abs)

	resolved := ResolvePhotoPaths(models.Product{Photos: []string{abs}}, "")
	assert.Equal(t, []string{abs}, resolved)
}

func TestResolvePhotoPathsArticleFallback(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ART-9", "a.jpg"))

	p := models.Product{Photos: []string{"gone.jpg"}, ArticleNumber: "ART-9"}
	resolved := ResolvePhotoPaths(p, root)
	require.Len(t, resolved, 1)
	assert.Equal(t, "a.jpg", filepath.Base(resolved[0]))
}

func TestResolvePhotoPathsNothing(t *testing.T) {
	p := models.Product{Photos: []string{"gone.jpg"}, ArticleNumber: "ART-0"}
	assert.Empty(t, ResolvePhotoPaths(p, t.TempDir()))
	assert.Empty(t, ResolvePhotoPaths(models.Product{}, t.TempDir()))
}
