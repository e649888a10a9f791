package ingest

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/gen2brain/go-fitz"
)

const maxDocumentBytes = 50 << 20

// Extractor returns the plain text of one document.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

type ExtractorFunc func(ctx context.Context, path string) (string, error)

func (f ExtractorFunc) Extract(ctx context.Context, path string) (string, error) { return f(ctx, path) }

// DefaultExtractors maps each supported extension to its extractor.
func DefaultExtractors(pdftotextPath string) map[string]Extractor {
	return map[string]Extractor{
		".txt":  ExtractorFunc(ExtractPlainText),
		".pdf":  &PDFExtractor{PdftotextPath: pdftotextPath},
		".docx": ExtractorFunc(ExtractDOCXText),
	}
}

func checkSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > maxDocumentBytes {
		return fmt.Errorf("document too large: %d bytes", info.Size())
	}
	return nil
}

// ExtractPlainText reads a text file, dropping invalid UTF-8.
func ExtractPlainText(_ context.Context, path string) (string, error) {
	if err := checkSize(path); err != nil {
		return "", err
	}
	blob, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(blob), ""), nil
}

// PDFExtractor reads the PDF text layer with MuPDF and falls back to the
// pdftotext binary when MuPDF yields nothing.
type PDFExtractor struct {
	PdftotextPath string
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (string, error) {
	if err := checkSize(path); err != nil {
		return "", err
	}
	text, fitzErr := extractWithFitz(ctx, path)
	if fitzErr == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	text, err := runPdfToText(ctx, e.PdftotextPath, path)
	if err == nil {
		return text, nil
	}
	if fitzErr != nil {
		return "", errors.Join(fitzErr, err)
	}
	// An empty text layer is not an error; scanned PDFs are left to OCR.
	return "", nil
}

func extractWithFitz(ctx context.Context, path string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()
	var sb strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", n+1, err)
		}
		sb.WriteString(page)
		sb.WriteByte(' ')
	}
	return sb.String(), nil
}

func runPdfToText(ctx context.Context, bin, path string) (string, error) {
	if strings.TrimSpace(bin) == "" {
		bin = "pdftotext"
	}
	cmd := exec.CommandContext(ctx, bin, "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ExtractDOCXText concatenates the text runs of word/document.xml, one
// paragraph per line.
func ExtractDOCXText(ctx context.Context, path string) (string, error) {
	if err := checkSize(path); err != nil {
		return "", err
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open docx: %w", err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		return docxBodyText(ctx, rc)
	}
	return "", errors.New("docx has no word/document.xml")
}

func docxBodyText(ctx context.Context, r io.Reader) (string, error) {
	dec := xml.NewDecoder(io.LimitReader(r, maxDocumentBytes))
	var sb strings.Builder
	inText := false
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte(' ')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
