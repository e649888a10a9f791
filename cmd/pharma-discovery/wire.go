package main

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/joelkehle/pharma-discovery/internal/collectors"
	"github.com/joelkehle/pharma-discovery/internal/completion"
	"github.com/joelkehle/pharma-discovery/internal/config"
	"github.com/joelkehle/pharma-discovery/internal/httpx"
	"github.com/joelkehle/pharma-discovery/internal/ingest"
	"github.com/joelkehle/pharma-discovery/internal/orchestrator"
	"github.com/joelkehle/pharma-discovery/internal/recommend"
	"github.com/joelkehle/pharma-discovery/internal/report"
	"github.com/joelkehle/pharma-discovery/internal/snapshot"
	"github.com/joelkehle/pharma-discovery/internal/summarize"
)

type app struct {
	orch   *orchestrator.Orchestrator
	pubmed *collectors.PubMed
	store  *snapshot.Store
	pdf    *report.ChromiumPDFRenderer
}

func buildApp(cfg config.Config, log zerolog.Logger) *app {
	client := httpx.New(&http.Client{Timeout: cfg.HTTP.Timeout}, httpx.RetryPolicy{
		MaxTries:        cfg.HTTP.MaxTries,
		InitialInterval: cfg.HTTP.InitialBackoff,
		MaxInterval:     cfg.HTTP.MaxBackoff,
		RetryStatuses:   httpx.DefaultRetryPolicy().RetryStatuses,
	}, log)

	caller := completion.New(cfg.LLM)
	if _, off := caller.(completion.Disabled); off {
		log.Warn().Msg("llm_disabled: ANTHROPIC_API_KEY not set, recommendations will use fallbacks")
	}

	var ocr ingest.Recognizer
	if cfg.Documents.OCREnabled {
		t := ingest.NewTesseractRecognizer(cfg.Documents.TesseractPath, log)
		if t.Available() {
			ocr = t
		} else {
			log.Warn().Str("path", cfg.Documents.TesseractPath).Msg("ocr_unavailable")
		}
	}
	docs := ingest.NewPipeline(
		ingest.DefaultExtractors(cfg.Documents.PdftotextPath),
		ocr,
		summarize.New(caller, cfg.Documents.MaxSummaryChars, log),
		ingest.OptionsFromConfig(cfg.Documents),
		log,
	)

	rnd := collectors.NewRandom(nil)
	pubmed := collectors.NewPubMed(client, cfg.PubMed, log)
	market := collectors.NewMarket(rnd)
	sources := orchestrator.Sources{
		Literature: pubmed,
		Trials:     collectors.NewTrials(client, cfg.Trials, log),
		Patents:    collectors.NewPatents(rnd),
		Trade:      collectors.NewTrade(rnd),
		Market:     market,
		Web:        collectors.NewWeb(client, cfg.Web, log),
		Unmet:      collectors.NewUnmetNeeds(),
		Documents:  docs,
	}
	store := snapshot.New(cfg.DataDir)
	return &app{
		orch:   orchestrator.New(sources, recommend.New(caller, log), store, log),
		pubmed: pubmed,
		store:  store,
		pdf:    report.NewChromiumPDFRenderer(cfg.Report),
	}
}
