package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/pharma-discovery/internal/config"
)

func TestBuildAppWiresStoreUnderDataDir(t *testing.T) {
	c := config.Default()
	c.DataDir = t.TempDir()
	a := buildApp(c, zerolog.Nop())
	require.NotNil(t, a.orch)
	require.NotNil(t, a.pubmed)
	assert.Equal(t, c.DataDir, a.store.Root())
	assert.Same(t, a.store, a.orch.Store())
}

func TestCopyUploadSanitizesName(t *testing.T) {
	c := config.Default()
	c.DataDir = t.TempDir()
	a := buildApp(c, zerolog.Nop())

	src := filepath.Join(t.TempDir(), "Safety Report.PDF")
	require.NoError(t, os.WriteFile(src, []byte("%PDF"), 0o644))
	require.NoError(t, copyUpload(a, "ibuprofen", src))

	files, err := a.store.ListUploads("ibuprofen")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Safety-Report.pdf", filepath.Base(files[0]))
}
