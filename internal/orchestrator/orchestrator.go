// Package orchestrator fans a drug out to every collector and the document
// pipeline, substitutes documented defaults for any source that fails, and
// assembles the Combined Record.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/joelkehle/pharma-discovery/internal/drug"
	"github.com/joelkehle/pharma-discovery/internal/record"
	"github.com/joelkehle/pharma-discovery/internal/snapshot"
	"github.com/joelkehle/pharma-discovery/internal/telemetry"
)

type LiteratureSource interface {
	Collect(ctx context.Context, drug string) ([]record.Article, error)
}

type TrialsSource interface {
	Collect(ctx context.Context, drug string) ([]record.Trial, error)
}

type PatentSource interface {
	Collect(ctx context.Context, drug string) ([]record.Patent, error)
}

type TradeSource interface {
	Collect(ctx context.Context, drug string) (record.Trade, error)
}

type WebSource interface {
	Collect(ctx context.Context, drug string) ([]record.WebHit, error)
}

// MarketSource produces the literature-informed market snapshot and the
// secondary estimate.
type MarketSource interface {
	Snapshot(ctx context.Context, drug string, articles []record.Article) (record.MarketSnapshot, error)
	Estimate(ctx context.Context, drug string) (record.MarketMock, error)
}

type UnmetSource interface {
	Collect(ctx context.Context, drug string, articles []record.Article) ([]string, error)
}

// DocumentSource turns the uploaded files for a drug into a Document Summary.
// It always returns a summary.
type DocumentSource interface {
	Run(ctx context.Context, drug string, files []string) record.DocumentSummary
}

type Synthesizer interface {
	Recommend(ctx context.Context, c *record.Combined) record.Recommendation
	Decide(ctx context.Context, c *record.Combined) record.RepurposeDecision
}

type Sources struct {
	Literature LiteratureSource
	Trials     TrialsSource
	Patents    PatentSource
	Trade      TradeSource
	Market     MarketSource
	Web        WebSource
	Unmet      UnmetSource
	Documents  DocumentSource
}

// ProgressFn is called once per source as soon as its result is settled.
type ProgressFn func(domain string, status record.SourceStatus)

type Orchestrator struct {
	sources  Sources
	synth    Synthesizer
	store    *snapshot.Store
	log      zerolog.Logger
	progress ProgressFn
	now      func() time.Time
}

func New(sources Sources, synth Synthesizer, store *snapshot.Store, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		sources: sources,
		synth:   synth,
		store:   store,
		log:     log.With().Str("component", "orchestrator").Logger(),
		now:     time.Now,
	}
}

// OnProgress registers a callback for per-source progress.
func (o *Orchestrator) OnProgress(fn ProgressFn) { o.progress = fn }

func (o *Orchestrator) Store() *snapshot.Store { return o.store }

// LoadOrRun returns the cached Combined Record for name unless refresh is set
// or no cache exists, in which case it runs every collector.
func (o *Orchestrator) LoadOrRun(ctx context.Context, name string, refresh bool) (*record.Combined, error) {
	id, err := drug.Validate(name)
	if err != nil {
		return nil, err
	}
	if !refresh {
		var cached record.Combined
		ok, err := o.store.Load(id, snapshot.FileCombined, &cached)
		if err != nil {
			o.log.Warn().Err(err).Str("drug", id).Msg("cache_unreadable")
		}
		if ok && err == nil {
			cached.Normalize()
			o.log.Debug().Str("drug", id).Msg("cache_hit")
			return &cached, nil
		}
	}
	return o.Run(ctx, id)
}

// Run executes every collector for name and persists the result. The only
// error it returns is an input validation failure; every source failure is
// replaced by that source's default.
func (o *Orchestrator) Run(ctx context.Context, name string) (*record.Combined, error) {
	id, err := drug.Validate(name)
	if err != nil {
		return nil, err
	}
	started := o.now()
	runID := uuid.NewString()
	ctx, span := telemetry.Tracer().Start(ctx, "orchestrator.run", trace.WithAttributes(
		attribute.String("drug", id),
		attribute.String("run_id", runID),
	))
	defer span.End()

	log := o.log.With().Str("drug", id).Str("run_id", runID).Logger()
	log.Info().Msg("run_started")

	r := &runner{o: o, drug: id, log: log, statuses: map[string]record.SourceStatus{}}
	c := &record.Combined{Drug: id}

	files, err := o.store.ListUploads(id)
	if err != nil {
		log.Warn().Err(err).Msg("list_uploads_failed")
	}

	// Phase one: sources that depend only on the drug name.
	var g errgroup.Group
	g.Go(func() error {
		c.PubMed = collect(ctx, r, record.DomainPubMed, snapshot.FilePubMed, emptyList[record.Article], lenOf[record.Article],
			func(ctx context.Context) ([]record.Article, error) { return o.sources.Literature.Collect(ctx, id) })
		return nil
	})
	g.Go(func() error {
		c.ClinicalTrials = collect(ctx, r, record.DomainTrials, snapshot.FileTrials, emptyList[record.Trial], lenOf[record.Trial],
			func(ctx context.Context) ([]record.Trial, error) { return o.sources.Trials.Collect(ctx, id) })
		return nil
	})
	g.Go(func() error {
		c.Patents = collect(ctx, r, record.DomainPatents, snapshot.FilePatents, emptyList[record.Patent], lenOf[record.Patent],
			func(ctx context.Context) ([]record.Patent, error) { return o.sources.Patents.Collect(ctx, id) })
		return nil
	})
	g.Go(func() error {
		c.EXIM = collect(ctx, r, record.DomainEXIM, snapshot.FileEXIM, DefaultTrade, tradeItems,
			func(ctx context.Context) (record.Trade, error) { return o.sources.Trade.Collect(ctx, id) })
		return nil
	})
	g.Go(func() error {
		c.WebIntel = collect(ctx, r, record.DomainWeb, snapshot.FileWeb, func() []record.WebHit { return DefaultWeb(id) }, lenOf[record.WebHit],
			func(ctx context.Context) ([]record.WebHit, error) { return o.sources.Web.Collect(ctx, id) })
		return nil
	})
	g.Go(func() error {
		c.MarketMock = collect(ctx, r, record.DomainMarketMock, snapshot.FileMarketMock, DefaultMarketMock,
			func(m record.MarketMock) int { return len(m.Competitors) },
			func(ctx context.Context) (record.MarketMock, error) { return o.sources.Market.Estimate(ctx, id) })
		return nil
	})
	g.Go(func() error {
		c.InternalSummary = collect(ctx, r, record.DomainInternal, snapshot.FileInternal, record.PlaceholderSummary,
			func(s record.DocumentSummary) int { return s.DocumentCount },
			func(ctx context.Context) (record.DocumentSummary, error) {
				return o.sources.Documents.Run(ctx, id, files), nil
			})
		return nil
	})
	_ = g.Wait()

	// Phase two: sources derived from the literature.
	articles := c.PubMed
	var derived errgroup.Group
	derived.Go(func() error {
		c.IQVIA = collect(ctx, r, record.DomainIQVIA, snapshot.FileIQVIA, DefaultMarket,
			func(m record.MarketSnapshot) int { return len(m.TopCompetitors) },
			func(ctx context.Context) (record.MarketSnapshot, error) {
				return o.sources.Market.Snapshot(ctx, id, articles)
			})
		return nil
	})
	derived.Go(func() error {
		c.UnmetNeeds = collect(ctx, r, record.DomainUnmet, snapshot.FileUnmet, emptyList[string], lenOf[string],
			func(ctx context.Context) ([]string, error) { return o.sources.Unmet.Collect(ctx, id, articles) })
		return nil
	})
	_ = derived.Wait()

	c.PubMedCount = len(c.PubMed)
	c.Normalize()
	c.FinalSummary = BuildFinalSummary(c)

	// The synthesizers read the assembled record; their outputs are merged
	// only after both return.
	var (
		rec      record.Recommendation
		decision record.RepurposeDecision
	)
	var recs errgroup.Group
	recs.Go(func() error {
		rec = o.synth.Recommend(ctx, c)
		return nil
	})
	recs.Go(func() error {
		decision = o.synth.Decide(ctx, c)
		return nil
	})
	_ = recs.Wait()
	c.AIRecommendation = rec
	c.RepurposeDecision = decision

	completed := o.now()
	c.Run = record.RunInfo{
		RunID:       runID,
		StartedAt:   started.UTC(),
		CompletedAt: completed.UTC(),
		DurationMS:  completed.Sub(started).Milliseconds(),
	}
	c.Sources = r.statuses
	c.Normalize()

	if err := o.store.Save(id, snapshot.FileCombined, c); err != nil {
		log.Error().Err(err).Msg("save_combined_failed")
		span.RecordError(err)
	}
	fallbacks := 0
	for _, st := range c.Sources {
		if st.Status != record.StatusOK {
			fallbacks++
		}
	}
	span.SetAttributes(attribute.Int("fallbacks", fallbacks))
	log.Info().
		Int("pubmed", len(c.PubMed)).
		Int("trials", len(c.ClinicalTrials)).
		Int("fallbacks", fallbacks).
		Int64("duration_ms", c.Run.DurationMS).
		Msg("run_completed")
	return c, nil
}

type runner struct {
	o    *Orchestrator
	drug string
	log  zerolog.Logger

	mu       sync.Mutex
	statuses map[string]record.SourceStatus
}

func (r *runner) settle(domain string, st record.SourceStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[domain] = st
	if r.o.progress != nil {
		r.o.progress(domain, st)
	}
}

// collect is the single failure boundary for a source: errors and panics
// become the domain default, the outcome is recorded, and the value is
// persisted under file.
func collect[T any](ctx context.Context, r *runner, domain, file string, fallback func() T, count func(T) int, fn func(context.Context) (T, error)) T {
	ctx, span := telemetry.Tracer().Start(ctx, "collector."+domain, trace.WithAttributes(attribute.String("drug", r.drug)))
	defer span.End()

	val, err := guarded(ctx, fn)
	st := record.SourceStatus{Status: record.StatusOK}
	if err != nil {
		val = fallback()
		st = record.SourceStatus{Status: record.StatusFallback, Error: err.Error()}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Warn().Err(err).Str("source", domain).Msg("collector_failed")
	}
	st.Items = count(val)
	span.SetAttributes(attribute.Int("items", st.Items), attribute.Bool("fallback", err != nil))

	if err := r.o.store.Save(r.drug, file, val); err != nil {
		r.log.Warn().Err(err).Str("source", domain).Msg("snapshot_save_failed")
	}
	r.settle(domain, st)
	return val
}

func guarded[T any](ctx context.Context, fn func(context.Context) (T, error)) (val T, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero T
			val, err = zero, fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

func emptyList[T any]() []T { return []T{} }

func lenOf[T any](s []T) int { return len(s) }

func tradeItems(t record.Trade) int {
	return len(t.ExportData.VolumeKgs) + len(t.TradeHistory)
}
