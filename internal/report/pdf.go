package report

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/joelkehle/pharma-discovery/internal/config"
)

//go:embed style.css
var styleCSS string

var h2Pattern = regexp.MustCompile(`(?i)<h2>\s*(Literature|Clinical Trials|Internal Document Insights)([^<]*)</h2>`)

// HTML converts the Markdown report into a standalone HTML document.
func HTML(title, markdown string) (string, error) {
	var content bytes.Buffer
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &content); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	body := h2Pattern.ReplaceAllString(content.String(), `<h2 style="break-before:page">$1$2</h2>`)
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) + "</title>" +
		"<style>" + styleCSS + "\n" +
		"html,body,*{-webkit-print-color-adjust:exact !important;print-color-adjust:exact !important;} " +
		"@media print{ @page{size:auto;margin:12mm;} }" +
		"</style></head><body>" + body + "</body></html>", nil
}

// PDFRenderer turns a Markdown report into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, title, markdown string) ([]byte, error)
}

// ChromiumPDFRenderer prints the HTML report with headless Chromium.
type ChromiumPDFRenderer struct {
	chromePath string
	timeout    time.Duration
	paper      paperSize
}

// paperSize is in inches, as PrintToPDF expects.
type paperSize struct{ width, height float64 }

var papers = map[string]paperSize{
	"a4":     {8.27, 11.69},
	"letter": {8.5, 11},
}

var browserNames = []string{"chromium", "chromium-browser", "google-chrome", "google-chrome-stable"}

const pageFooter = `<div style="width:100%;text-align:center;font-size:9px;color:#666;">` +
	`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`

// NewChromiumPDFRenderer applies cfg. A blank ChromePath is resolved against
// PATH, and if nothing is found chromedp falls back to its own lookup.
func NewChromiumPDFRenderer(cfg config.ReportConfig) *ChromiumPDFRenderer {
	r := &ChromiumPDFRenderer{chromePath: strings.TrimSpace(cfg.ChromePath), timeout: cfg.Timeout, paper: papers["a4"]}
	if r.chromePath == "" {
		r.chromePath = lookupBrowser()
	}
	if r.timeout <= 0 {
		r.timeout = 30 * time.Second
	}
	if p, ok := papers[strings.ToLower(strings.TrimSpace(cfg.Paper))]; ok {
		r.paper = p
	}
	return r
}

func (r *ChromiumPDFRenderer) Render(ctx context.Context, title, markdown string) ([]byte, error) {
	htmlDoc, err := HTML(title, markdown)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()

	var pdf []byte
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(htmlDoc))
	err = chromedp.Run(taskCtx,
		chromedp.Navigate(dataURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := r.printParams().Do(ctx)
			pdf = out
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render pdf with %q: %w", r.chromePath, err)
	}
	return pdf, nil
}

func (r *ChromiumPDFRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.chromePath))
	}
	return opts
}

func (r *ChromiumPDFRenderer) printParams() *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPrintBackground(true).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(`<div></div>`).
		WithFooterTemplate(pageFooter).
		WithPaperWidth(r.paper.width).
		WithPaperHeight(r.paper.height).
		WithMarginTop(0.5).
		WithMarginBottom(0.75).
		WithMarginLeft(0.45).
		WithMarginRight(0.45)
}

func lookupBrowser() string {
	for _, name := range browserNames {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}
