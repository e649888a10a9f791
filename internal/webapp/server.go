// Package webapp is the HTTP front end: upload and analyze, cached results,
// per-domain views and report downloads.
package webapp

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/joelkehle/pharma-discovery/internal/drug"
	"github.com/joelkehle/pharma-discovery/internal/ingest"
	"github.com/joelkehle/pharma-discovery/internal/record"
	"github.com/joelkehle/pharma-discovery/internal/report"
	"github.com/joelkehle/pharma-discovery/internal/snapshot"
)

//go:embed index.html
var indexHTML []byte

const maxUploadBytes = 64 << 20

// Runner produces Combined Records.
type Runner interface {
	Run(ctx context.Context, drug string) (*record.Combined, error)
	LoadOrRun(ctx context.Context, drug string, refresh bool) (*record.Combined, error)
}

// Searcher answers whether the literature knows the drug at all.
type Searcher interface {
	Search(ctx context.Context, drug string) ([]string, error)
}

type Server struct {
	runner      Runner
	search      Searcher
	store       *snapshot.Store
	pdfRenderer report.PDFRenderer
	log         zerolog.Logger
}

// NewServer mounts the routes. pdfRenderer backs the PDF download.
func NewServer(runner Runner, search Searcher, store *snapshot.Store, pdfRenderer report.PDFRenderer, log zerolog.Logger) http.Handler {
	s := &Server{
		runner:      runner,
		search:      search,
		store:       store,
		pdfRenderer: pdfRenderer,
		log:         log.With().Str("component", "webapp").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/results/", s.handleResults)
	mux.HandleFunc("/pubmed/", s.domainView("/pubmed/", func(c *record.Combined) any { return c.PubMed }))
	mux.HandleFunc("/clinical/", s.domainView("/clinical/", func(c *record.Combined) any { return c.ClinicalTrials }))
	mux.HandleFunc("/patents/", s.domainView("/patents/", func(c *record.Combined) any { return c.Patents }))
	mux.HandleFunc("/exim/", s.domainView("/exim/", func(c *record.Combined) any { return c.EXIM }))
	mux.HandleFunc("/internal/", s.domainView("/internal/", func(c *record.Combined) any { return c.InternalSummary }))
	mux.HandleFunc("/report/", s.handleReport)
	mux.HandleFunc("/report-pdf/", s.handleReportPDF)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func isInvalidDrug(err error) bool {
	return errors.Is(err, drug.ErrEmpty) || errors.Is(err, drug.ErrTooShort) ||
		errors.Is(err, drug.ErrNumeric) || errors.Is(err, drug.ErrInvalidChars)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, 404, "not found")
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, 400, "invalid multipart form")
		return
	}

	id, err := drug.Validate(r.FormValue("drug"))
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}

	ids, err := s.search.Search(r.Context(), id)
	switch {
	case err != nil:
		s.log.Warn().Err(err).Str("drug", id).Msg("existence_check_failed")
	case len(ids) == 0:
		writeError(w, 404, fmt.Sprintf("drug %q not found in PubMed", id))
		return
	}

	if err := s.store.ClearUploads(id); err != nil {
		s.log.Error().Err(err).Str("drug", id).Msg("clear_uploads_failed")
		writeError(w, 500, "failed to prepare upload directory")
		return
	}
	saved := 0
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			if !ingest.Supported(fh.Filename) {
				s.log.Info().Str("drug", id).Str("file", fh.Filename).Msg("upload_ignored")
				continue
			}
			if err := s.saveUpload(id, fh); err != nil {
				s.log.Error().Err(err).Str("drug", id).Str("file", fh.Filename).Msg("upload_save_failed")
				writeError(w, 500, "failed to save uploaded file")
				return
			}
			saved++
		}
	}
	s.log.Info().Str("drug", id).Int("uploads", saved).Msg("analyze_started")

	c, err := s.runner.Run(r.Context(), id)
	if err != nil {
		s.writeRunError(w, id, err)
		return
	}
	writeJSON(w, 200, c)
}

func (s *Server) saveUpload(id string, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = s.store.SaveUpload(id, fh.Filename, f)
	return err
}

func (s *Server) writeRunError(w http.ResponseWriter, id string, err error) {
	if isInvalidDrug(err) {
		writeError(w, 400, err.Error())
		return
	}
	s.log.Error().Err(err).Str("drug", id).Msg("run_failed")
	writeError(w, 500, "analysis failed")
}

// load resolves the drug from the path after prefix and returns its record,
// running the collectors when nothing is cached.
func (s *Server) load(w http.ResponseWriter, r *http.Request, prefix string) (*record.Combined, bool) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return nil, false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/")
	id, err := drug.Validate(name)
	if err != nil {
		writeError(w, 400, err.Error())
		return nil, false
	}
	refresh := r.URL.Query().Get("refresh") == "1"
	c, err := s.runner.LoadOrRun(r.Context(), id, refresh)
	if err != nil {
		s.writeRunError(w, id, err)
		return nil, false
	}
	return c, true
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	c, ok := s.load(w, r, "/results/")
	if !ok {
		return
	}
	writeJSON(w, 200, c)
}

func (s *Server) domainView(prefix string, pick func(*record.Combined) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := s.load(w, r, prefix)
		if !ok {
			return
		}
		writeJSON(w, 200, pick(c))
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	c, ok := s.load(w, r, "/report/")
	if !ok {
		return
	}
	md := report.Markdown(c)
	if err := s.store.WriteFile(c.Drug, snapshot.FileReportMD, []byte(md)); err != nil {
		s.log.Warn().Err(err).Str("drug", c.Drug).Msg("report_save_failed")
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(200)
	_, _ = w.Write([]byte(md))
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if s.pdfRenderer == nil {
		writeError(w, 503, "pdf renderer unavailable")
		return
	}
	c, ok := s.load(w, r, "/report-pdf/")
	if !ok {
		return
	}
	pdf, err := s.pdfRenderer.Render(r.Context(), report.Title(c), report.Markdown(c))
	if err != nil {
		s.log.Error().Err(err).Str("drug", c.Drug).Msg("render_report_pdf_failed")
		writeError(w, 500, "failed to render pdf")
		return
	}
	if err := s.store.WriteFile(c.Drug, snapshot.FileReportPDF, pdf); err != nil {
		s.log.Warn().Err(err).Str("drug", c.Drug).Msg("report_save_failed")
	}
	filename := snapshot.SanitizeFilename(c.Drug+"_report.pdf")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(200)
	_, _ = w.Write(pdf)
}
