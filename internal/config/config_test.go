package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("PHARMA_OCR_ENABLED", "")
	t.Setenv("PORT", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 300, cfg.Documents.MinTextChars)
	assert.Equal(t, 5, cfg.Documents.OCRMaxPages)
	assert.Equal(t, 10, cfg.PubMed.BatchSize)
	assert.False(t, cfg.Documents.OCREnabled)
	assert.Equal(t, uint(5), cfg.HTTP.MaxTries)
}

func TestLoadYAMLThenEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	blob := []byte(`
data_dir: /srv/pharma
pubmed:
  batch_size: 25
  batch_delay: 1s
documents:
  min_text_chars: 500
http:
  initial_backoff: 250ms
`)
	require.NoError(t, os.WriteFile(path, blob, 0o644))
	t.Setenv("PHARMA_OCR_ENABLED", "true")
	t.Setenv("PORT", "9000")
	t.Setenv("PHARMA_DATA_DIR", "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/pharma", cfg.DataDir)
	assert.Equal(t, 10, cfg.PubMed.BatchSize, "batch size is capped at the upstream limit")
	assert.Equal(t, time.Second, cfg.PubMed.BatchDelay)
	assert.Equal(t, 500, cfg.Documents.MinTextChars)
	assert.Equal(t, 250*time.Millisecond, cfg.HTTP.InitialBackoff)
	assert.True(t, cfg.Documents.OCREnabled)
	assert.Equal(t, ":9000", cfg.Server.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadReportSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	blob := []byte(`
report:
  timeout: 0s
  paper: letter
`)
	require.NoError(t, os.WriteFile(path, blob, 0o644))
	t.Setenv("PHARMA_CHROME_PATH", "/opt/chrome/chrome")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/chrome/chrome", cfg.Report.ChromePath)
	assert.Equal(t, 30*time.Second, cfg.Report.Timeout)
	assert.Equal(t, "letter", cfg.Report.Paper)
}
