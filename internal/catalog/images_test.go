package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageStore_Save(t *testing.T) {
	dir := t.TempDir()
	s := &ImageStore{Dir: dir, MaxBytes: 16}

	name, err := s.Save("Cover.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotEqual(t, "Cover.PNG", name)

	b, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(b))
}

func TestImageStore_RejectsUnknownExtension(t *testing.T) {
	s := &ImageStore{Dir: t.TempDir(), MaxBytes: 16}

	for _, n := range []string{"shell.php", "noext", "image.svg"} {
		_, err := s.Save(n, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrUnsupportedImage, n)
	}
}

func TestImageStore_TooLarge(t *testing.T) {
	dir := t.TempDir()
	s := &ImageStore{Dir: dir, MaxBytes: 4}

	_, err := s.Save("big.jpg", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial file should be removed")
}
