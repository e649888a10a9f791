package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joelkehle/pharma-discovery/internal/config"
)

func TestNewChromiumPDFRendererAppliesConfig(t *testing.T) {
	r := NewChromiumPDFRenderer(config.ReportConfig{ChromePath: " /opt/chrome/chrome ", Timeout: 5 * time.Second, Paper: "Letter"})
	assert.Equal(t, "/opt/chrome/chrome", r.chromePath)
	assert.Equal(t, 5*time.Second, r.timeout)

	params := r.printParams()
	assert.InDelta(t, 8.5, params.PaperWidth, 1e-9)
	assert.InDelta(t, 11.0, params.PaperHeight, 1e-9)
	assert.True(t, params.PrintBackground)
	assert.Contains(t, params.FooterTemplate, "totalPages")
}

func TestNewChromiumPDFRendererDefaults(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	r := NewChromiumPDFRenderer(config.ReportConfig{Paper: "tabloid"})
	assert.Empty(t, r.chromePath)
	assert.Equal(t, 30*time.Second, r.timeout)

	params := r.printParams()
	assert.InDelta(t, 8.27, params.PaperWidth, 1e-9)
	assert.InDelta(t, 11.69, params.PaperHeight, 1e-9)
}
