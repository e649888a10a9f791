package ingest

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"
)

const ocrDPI = 300

// Recognizer runs optical text recognition over a document's first pages.
type Recognizer interface {
	Recognize(ctx context.Context, path string, maxPages int) (string, error)
}

// TesseractRecognizer renders PDF pages with MuPDF and passes each page
// image to the tesseract binary.
type TesseractRecognizer struct {
	Path string
	log  zerolog.Logger
}

func NewTesseractRecognizer(path string, log zerolog.Logger) *TesseractRecognizer {
	if strings.TrimSpace(path) == "" {
		path = "tesseract"
	}
	return &TesseractRecognizer{Path: path, log: log.With().Str("component", "ocr").Logger()}
}

// Available reports whether the tesseract binary can be found.
func (t *TesseractRecognizer) Available() bool {
	_, err := exec.LookPath(t.Path)
	return err == nil
}

func (t *TesseractRecognizer) Recognize(ctx context.Context, path string, maxPages int) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return "", nil
	}
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	tmp, err := os.MkdirTemp("", "pharma-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmp)

	pages := min(doc.NumPage(), maxPages)
	var sb strings.Builder
	for n := 0; n < pages; n++ {
		if err := ctx.Err(); err != nil {
			return sb.String(), err
		}
		text, err := t.recognizePage(ctx, doc, n, tmp)
		if err != nil {
			t.log.Warn().Str("file", filepath.Base(path)).Int("page", n+1).Err(err).Msg("ocr_page_failed")
			continue
		}
		t.log.Debug().Str("file", filepath.Base(path)).Int("page", n+1).Int("chars", len(text)).Msg("ocr_page_done")
		sb.WriteString(text)
		sb.WriteByte(' ')
	}
	return strings.TrimSpace(sb.String()), nil
}

func (t *TesseractRecognizer) recognizePage(ctx context.Context, doc *fitz.Document, n int, dir string) (string, error) {
	img, err := doc.ImageDPI(n, ocrDPI)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	imgPath := filepath.Join(dir, fmt.Sprintf("page_%03d.png", n+1))
	f, err := os.Create(imgPath)
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, t.Path, imgPath, "stdout", "-l", "eng", "--psm", "3")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
