package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/pharma-discovery/internal/collectors"
	"github.com/joelkehle/pharma-discovery/internal/completion"
	"github.com/joelkehle/pharma-discovery/internal/config"
	"github.com/joelkehle/pharma-discovery/internal/drug"
	"github.com/joelkehle/pharma-discovery/internal/ingest"
	"github.com/joelkehle/pharma-discovery/internal/recommend"
	"github.com/joelkehle/pharma-discovery/internal/record"
	"github.com/joelkehle/pharma-discovery/internal/snapshot"
)

var errUpstream = errors.New("upstream unavailable")

type fakeLiterature struct {
	articles []record.Article
	err      error
	calls    int
	mu       sync.Mutex
}

func (f *fakeLiterature) Collect(context.Context, string) ([]record.Article, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.articles, f.err
}

type fakeTrials struct{ err error }

func (f fakeTrials) Collect(context.Context, string) ([]record.Trial, error) {
	if f.err != nil {
		return nil, f.err
	}
	id, title := "NCT0001", "Paracetamol after surgery"
	return []record.Trial{{NCTID: &id, Title: &title}}, nil
}

type panickingPatents struct{}

func (panickingPatents) Collect(context.Context, string) ([]record.Patent, error) {
	panic("boom")
}

type failingTrade struct{}

func (failingTrade) Collect(context.Context, string) (record.Trade, error) {
	return record.Trade{}, errUpstream
}

type failingMarket struct{}

func (failingMarket) Snapshot(context.Context, string, []record.Article) (record.MarketSnapshot, error) {
	return record.MarketSnapshot{}, errUpstream
}

func (failingMarket) Estimate(context.Context, string) (record.MarketMock, error) {
	return record.MarketMock{}, errUpstream
}

type failingWeb struct{}

func (failingWeb) Collect(context.Context, string) ([]record.WebHit, error) { return nil, errUpstream }

type failingUnmet struct{}

func (failingUnmet) Collect(context.Context, string, []record.Article) ([]string, error) {
	return nil, errUpstream
}

type recordingDocs struct {
	files [][]string
}

func (r *recordingDocs) Run(_ context.Context, _ string, files []string) record.DocumentSummary {
	r.files = append(r.files, files)
	return record.PlaceholderSummary()
}

func articles() []record.Article {
	return []record.Article{
		{PMID: "1", Title: "Paracetamol hepatotoxicity in overdose", Authors: []string{"A"}, Abstract: "Liver injury after overdose."},
		{PMID: "2", Title: "Paracetamol in pediatric fever", Authors: []string{"B"}, Abstract: "Children dosing."},
	}
}

func mockSources(rnd *collectors.Random, lit LiteratureSource) Sources {
	return Sources{
		Literature: lit,
		Trials:     fakeTrials{},
		Patents:    collectors.NewPatents(rnd),
		Trade:      collectors.NewTrade(rnd),
		Market:     collectors.NewMarket(rnd),
		Web:        collectors.NewWeb(nil, config.Default().Web, zerolog.Nop()),
		Unmet:      collectors.NewUnmetNeeds(),
		Documents:  ingest.NewPipeline(ingest.DefaultExtractors(""), nil, nil, ingest.Options{}, zerolog.Nop()),
	}
}

func newTestOrchestrator(t *testing.T, sources Sources) (*Orchestrator, *snapshot.Store) {
	t.Helper()
	store := snapshot.New(t.TempDir())
	synth := recommend.New(completion.Disabled{}, zerolog.Nop())
	return New(sources, synth, store, zerolog.Nop()), store
}

func TestRunRejectsInvalidDrugBeforeCollecting(t *testing.T) {
	lit := &fakeLiterature{}
	o, _ := newTestOrchestrator(t, mockSources(collectors.Seeded(1), lit))

	for _, name := range []string{"", "abc", "12345", "../etc"} {
		_, err := o.Run(context.Background(), name)
		require.Error(t, err, name)
	}
	_, err := o.Run(context.Background(), "1234")
	assert.ErrorIs(t, err, drug.ErrNumeric)
	assert.Equal(t, 0, lit.calls)
}

func TestRunSubstitutesDefaultsForFailedSources(t *testing.T) {
	docs := &recordingDocs{}
	sources := Sources{
		Literature: &fakeLiterature{err: errUpstream},
		Trials:     fakeTrials{err: errUpstream},
		Patents:    panickingPatents{},
		Trade:      failingTrade{},
		Market:     failingMarket{},
		Web:        failingWeb{},
		Unmet:      failingUnmet{},
		Documents:  docs,
	}
	o, store := newTestOrchestrator(t, sources)

	var mu sync.Mutex
	seen := map[string]bool{}
	o.OnProgress(func(domain string, _ record.SourceStatus) {
		mu.Lock()
		seen[domain] = true
		mu.Unlock()
	})

	c, err := o.Run(context.Background(), "Ibuprofen")
	require.NoError(t, err)

	assert.Equal(t, "ibuprofen", c.Drug)
	assert.Empty(t, c.PubMed)
	assert.NotNil(t, c.PubMed)
	assert.NotNil(t, c.ClinicalTrials)
	assert.NotNil(t, c.Patents)
	assert.NotNil(t, c.UnmetNeeds)
	assert.Equal(t, DefaultMarket(), c.IQVIA)
	assert.Equal(t, DefaultMarketMock(), c.MarketMock)
	assert.Equal(t, DefaultTrade(), c.EXIM)
	assert.Equal(t, DefaultWeb("ibuprofen"), c.WebIntel)
	assert.Equal(t, 0, c.InternalSummary.DocumentCount)
	assert.Equal(t, record.DecisionUnclear, c.AIRecommendation.Recommendation)
	assert.Equal(t, record.DecisionUnclear, c.RepurposeDecision.Decision)

	for _, domain := range record.Domains {
		assert.True(t, seen[domain], domain)
		st, ok := c.Sources[domain]
		require.True(t, ok, domain)
		if domain == record.DomainInternal {
			assert.Equal(t, record.StatusOK, st.Status)
			continue
		}
		assert.Equal(t, record.StatusFallback, st.Status, domain)
		assert.NotEmpty(t, st.Error, domain)
	}
	assert.Contains(t, c.Sources[record.DomainPatents].Error, "panic")

	var saved record.Combined
	ok, err := store.Load("ibuprofen", snapshot.FileCombined, &saved)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, c.Run.RunID, saved.Run.RunID)

	var trade record.Trade
	ok, err = store.Load("ibuprofen", snapshot.FileEXIM, &trade)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"Trade data unavailable."}, trade.Summary)
}

func TestRunPassesUploadsToDocuments(t *testing.T) {
	docs := &recordingDocs{}
	sources := mockSources(collectors.Seeded(2), &fakeLiterature{articles: articles()})
	sources.Documents = docs
	o, store := newTestOrchestrator(t, sources)

	_, err := store.SaveUpload("ibuprofen", "notes.txt", strings.NewReader("ibuprofen"))
	require.NoError(t, err)

	_, err = o.Run(context.Background(), "ibuprofen")
	require.NoError(t, err)
	require.Len(t, docs.files, 1)
	require.Len(t, docs.files[0], 1)
	assert.Contains(t, docs.files[0][0], "notes.txt")
}

func TestRunIsStructurallyIdempotent(t *testing.T) {
	lit := &fakeLiterature{articles: articles()}
	o, _ := newTestOrchestrator(t, mockSources(collectors.Seeded(3), lit))

	first, err := o.Run(context.Background(), "ibuprofen")
	require.NoError(t, err)
	second, err := o.Run(context.Background(), "ibuprofen")
	require.NoError(t, err)

	assert.Equal(t, topLevelKeys(t, first), topLevelKeys(t, second))
	assert.Equal(t, len(first.PubMed), len(second.PubMed))
	assert.Equal(t, len(first.ClinicalTrials), len(second.ClinicalTrials))
	assert.Equal(t, len(first.Patents), len(second.Patents))
	assert.Equal(t, len(first.UnmetNeeds), len(second.UnmetNeeds))
	assert.Equal(t, len(first.WebIntel), len(second.WebIntel))
	assert.Equal(t, len(first.IQVIA.TopCompetitors), len(second.IQVIA.TopCompetitors))
	assert.Equal(t, len(first.EXIM.TradeHistory), len(second.EXIM.TradeHistory))
	assert.NotEqual(t, first.Run.RunID, second.Run.RunID)
}

func TestLoadOrRunUsesCache(t *testing.T) {
	lit := &fakeLiterature{articles: articles()}
	o, _ := newTestOrchestrator(t, mockSources(collectors.Seeded(4), lit))

	first, err := o.LoadOrRun(context.Background(), "Ibuprofen", false)
	require.NoError(t, err)
	cached, err := o.LoadOrRun(context.Background(), "IBUPROFEN", false)
	require.NoError(t, err)
	assert.Equal(t, 1, lit.calls)
	assert.Equal(t, first.Run.RunID, cached.Run.RunID)

	fresh, err := o.LoadOrRun(context.Background(), "ibuprofen", true)
	require.NoError(t, err)
	assert.Equal(t, 2, lit.calls)
	assert.NotEqual(t, first.Run.RunID, fresh.Run.RunID)
}

func TestParacetamolEndToEnd(t *testing.T) {
	o, store := newTestOrchestrator(t, mockSources(collectors.Seeded(5), &fakeLiterature{articles: articles()}))

	c, err := o.Run(context.Background(), "paracetamol")
	require.NoError(t, err)

	assert.Equal(t, 0, c.InternalSummary.DocumentCount)
	assert.Equal(t, record.SourceMockInternal, c.InternalSummary.Source)
	assert.NotEmpty(t, c.EXIM.ExportData.VolumeKgs, "reference trade data")
	assert.Empty(t, c.EXIM.TradeHistory)
	assert.Regexp(t, regexp.MustCompile(`^\d+(\.\d+)?B$`), c.IQVIA.MarketSize2024)
	assert.Contains(t, []string{record.DecisionYes, record.DecisionNo, record.DecisionConditional, record.DecisionUnclear}, c.RepurposeDecision.Decision)
	assert.NotEmpty(t, c.AIRecommendation.Recommendation)
	assert.Equal(t, 2, c.PubMedCount)
	assert.Equal(t, 2, c.FinalSummary.PubMedArticles)
	assert.Equal(t, 1, c.FinalSummary.ClinicalTrials)
	assert.Equal(t, c.IQVIA.MarketSize2024, c.FinalSummary.MarketSize)
	assert.NotEqual(t, TrendUnknown, c.FinalSummary.ExportTrend)

	for _, name := range []string{snapshot.FilePubMed, snapshot.FileTrials, snapshot.FilePatents, snapshot.FileUnmet,
		snapshot.FileIQVIA, snapshot.FileEXIM, snapshot.FileWeb, snapshot.FileInternal, snapshot.FileMarketMock, snapshot.FileCombined} {
		_, err := store.ReadFile("paracetamol", name)
		assert.NoError(t, err, name)
	}
}

func TestExportTrend(t *testing.T) {
	assert.Equal(t, TrendUnknown, ExportTrend(nil))
	assert.Equal(t, TrendUnknown, ExportTrend(record.Yearly{"2022": 5}))
	assert.Equal(t, TrendRising, ExportTrend(record.Yearly{"2024": 9, "2022": 5, "2023": 1}))
	assert.Equal(t, TrendFalling, ExportTrend(record.Yearly{"2022": 9, "2023": 5}))
	assert.Equal(t, TrendStable, ExportTrend(record.Yearly{"2022": 5, "2023": 5}))
}

func topLevelKeys(t *testing.T, c *record.Combined) []string {
	t.Helper()
	m := map[string]any{}
	blob, err := json.Marshal(c)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(blob, &m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
