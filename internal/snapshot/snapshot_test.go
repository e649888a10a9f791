package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTripOverwrites(t *testing.T) {
	store := New(t.TempDir())
	require.NoError(t, store.Save("aspirin", FilePatents, []string{"a", "b"}))
	require.NoError(t, store.Save("aspirin", FilePatents, []string{"c"}))

	var got []string
	ok, err := store.Load("aspirin", FilePatents, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"c"}, got)

	_, err = os.Stat(store.Path("aspirin", FilePatents) + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadMissingSnapshot(t *testing.T) {
	store := New(t.TempDir())
	var got map[string]any
	ok, err := store.Load("metformin", FileCombined, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUploadsClearAndList(t *testing.T) {
	store := New(t.TempDir())
	files, err := store.ListUploads("ibuprofen")
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = store.SaveUpload("ibuprofen", "b report.PDF", strings.NewReader("x"))
	require.NoError(t, err)
	_, err = store.SaveUpload("ibuprofen", "../../a.txt", strings.NewReader("y"))
	require.NoError(t, err)

	files, err = store.ListUploads("ibuprofen")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", filepath.Base(files[0]))
	assert.Equal(t, "b-report.pdf", filepath.Base(files[1]))

	require.NoError(t, store.ClearUploads("ibuprofen"))
	files, err = store.ListUploads("ibuprofen")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSaveUploadKeepsCollidingNames(t *testing.T) {
	store := New(t.TempDir())
	for _, upload := range []struct{ name, body string }{
		{"a b.pdf", "first"},
		{"a-b.pdf", "second"},
		{"a?b.PDF", "third"},
	} {
		_, err := store.SaveUpload("ibuprofen", upload.name, strings.NewReader(upload.body))
		require.NoError(t, err)
	}

	files, err := store.ListUploads("ibuprofen")
	require.NoError(t, err)
	require.Len(t, files, 3)
	var names, bodies []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
		b, err := os.ReadFile(f)
		require.NoError(t, err)
		bodies = append(bodies, string(b))
	}
	assert.Equal(t, []string{"a-b-1.pdf", "a-b-2.pdf", "a-b.pdf"}, names)
	assert.Equal(t, []string{"second", "third", "first"}, bodies)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "trial-summary.docx", SanitizeFilename("trial summary.DOCX"))
	assert.Equal(t, "passwd", SanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "document.pdf", SanitizeFilename("  .pdf"))
	assert.Equal(t, "x.txt", SanitizeFilename(`C:\tmp\x.txt`))
}
