// Package collectors fetches or synthesizes one domain of data per drug and
// normalizes it to the record package's fixed shapes. Collectors return
// errors; substituting defaults is the orchestrator's job.
package collectors

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/joelkehle/pharma-discovery/internal/config"
	"github.com/joelkehle/pharma-discovery/internal/httpx"
	"github.com/joelkehle/pharma-discovery/internal/record"
)

const NoAbstract = "No abstract available."

var tagRe = regexp.MustCompile(`<[^>]+>`)

// PubMed runs the two-step esearch then esummary/efetch protocol.
type PubMed struct {
	http    *httpx.Client
	cfg     config.PubMedConfig
	limiter *rate.Limiter
	log     zerolog.Logger
}

func NewPubMed(client *httpx.Client, cfg config.PubMedConfig, log zerolog.Logger) *PubMed {
	limit := rate.Inf
	if cfg.BatchDelay > 0 {
		limit = rate.Every(cfg.BatchDelay)
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > 10 {
		cfg.BatchSize = 10
	}
	if cfg.RetMax <= 0 {
		cfg.RetMax = 50
	}
	return &PubMed{
		http:    client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		log:     log.With().Str("component", "pubmed").Logger(),
	}
}

// SearchTerm restricts matches to titles naming the drug within drug or
// pharmacology MeSH headings.
func SearchTerm(drug string) string {
	return fmt.Sprintf(`"%s"[Title] AND ("drug"[MeSH Terms] OR "pharmacology"[MeSH Terms])`, drug)
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// Search returns the PMIDs matching drug in relevance order.
func (p *PubMed) Search(ctx context.Context, drug string) ([]string, error) {
	q := url.Values{
		"db":      {"pubmed"},
		"term":    {SearchTerm(drug)},
		"retmax":  {fmt.Sprint(p.cfg.RetMax)},
		"retmode": {"json"},
		"sort":    {"relevance"},
	}
	p.withKey(q)
	body, err := p.http.Get(ctx, p.endpoint("esearch.fcgi"), q)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	var parsed esearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("esearch decode: %w", err)
	}
	ids := make([]string, 0, len(parsed.Result.IDList))
	for _, id := range parsed.Result.IDList {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Collect searches and then fetches metadata and abstracts in batches. A
// failed batch is skipped; the call fails only when the search fails or
// every batch fails.
func (p *PubMed) Collect(ctx context.Context, drug string) ([]record.Article, error) {
	ids, err := p.Search(ctx, drug)
	if err != nil {
		return nil, err
	}
	out := make([]record.Article, 0, len(ids))
	failed, batches := 0, 0
	for start := 0; start < len(ids); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(ids))
		batches++
		if err := p.limiter.Wait(ctx); err != nil {
			return out, err
		}
		articles, err := p.fetchBatch(ctx, ids[start:end])
		if err != nil {
			failed++
			p.log.Warn().Str("drug", drug).Int("batch_start", start).Err(err).Msg("pubmed_batch_failed")
			continue
		}
		out = append(out, articles...)
	}
	if batches > 0 && failed == batches {
		return out, fmt.Errorf("all %d pubmed batches failed", batches)
	}
	p.log.Info().Str("drug", drug).Int("ids", len(ids)).Int("articles", len(out)).Msg("pubmed_collected")
	return out, nil
}

func (p *PubMed) fetchBatch(ctx context.Context, ids []string) ([]record.Article, error) {
	joined := strings.Join(ids, ",")
	q := url.Values{"db": {"pubmed"}, "id": {joined}, "retmode": {"xml"}}
	p.withKey(q)
	sumBody, err := p.http.Get(ctx, p.endpoint("esummary.fcgi"), q)
	if err != nil {
		return nil, fmt.Errorf("esummary: %w", err)
	}
	docs, err := parseSummaries(sumBody)
	if err != nil {
		return nil, err
	}

	q = url.Values{"db": {"pubmed"}, "id": {joined}, "retmode": {"xml"}, "rettype": {"abstract"}}
	p.withKey(q)
	fetchBody, err := p.http.Get(ctx, p.endpoint("efetch.fcgi"), q)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}
	abstracts, err := parseAbstracts(fetchBody)
	if err != nil {
		return nil, err
	}

	out := make([]record.Article, 0, len(docs))
	for _, d := range docs {
		a := d
		a.Abstract = abstracts[a.PMID]
		if a.Abstract == "" {
			a.Abstract = NoAbstract
		}
		out = append(out, a)
	}
	return out, nil
}

func (p *PubMed) endpoint(name string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/" + name
}

func (p *PubMed) withKey(q url.Values) {
	if key := strings.TrimSpace(p.cfg.APIKey); key != "" {
		q.Set("api_key", key)
	}
}

type summaryItem struct {
	Name  string        `xml:"Name,attr"`
	Value string        `xml:",chardata"`
	Items []summaryItem `xml:"Item"`
}

type docSum struct {
	ID    string        `xml:"Id"`
	Items []summaryItem `xml:"Item"`
}

type eSummaryResult struct {
	DocSums []docSum `xml:"DocSum"`
}

func parseSummaries(body []byte) ([]record.Article, error) {
	var parsed eSummaryResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("esummary decode: %w", err)
	}
	out := make([]record.Article, 0, len(parsed.DocSums))
	for _, d := range parsed.DocSums {
		a := record.Article{PMID: strings.TrimSpace(d.ID), Authors: []string{}}
		walkItems(d.Items, func(it summaryItem) {
			v := strings.TrimSpace(it.Value)
			switch it.Name {
			case "Title":
				a.Title = v
			case "PubDate":
				a.Date = v
			case "Source":
				a.Journal = v
			case "Author":
				if v != "" {
					a.Authors = append(a.Authors, v)
				}
			}
		})
		if a.PMID == "" {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func walkItems(items []summaryItem, fn func(summaryItem)) {
	for _, it := range items {
		fn(it)
		walkItems(it.Items, fn)
	}
}

type abstractText struct {
	Inner string `xml:",innerxml"`
}

type pubmedArticle struct {
	PMID     string         `xml:"MedlineCitation>PMID"`
	Abstract []abstractText `xml:"MedlineCitation>Article>Abstract>AbstractText"`
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

// parseAbstracts maps PMID to its abstract with sections joined by a space.
func parseAbstracts(body []byte) (map[string]string, error) {
	var parsed pubmedArticleSet
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("efetch decode: %w", err)
	}
	out := make(map[string]string, len(parsed.Articles))
	for _, a := range parsed.Articles {
		parts := make([]string, 0, len(a.Abstract))
		for _, section := range a.Abstract {
			text := strings.Join(strings.Fields(html.UnescapeString(tagRe.ReplaceAllString(section.Inner, ""))), " ")
			if text != "" {
				parts = append(parts, text)
			}
		}
		out[strings.TrimSpace(a.PMID)] = strings.Join(parts, " ")
	}
	return out, nil
}
