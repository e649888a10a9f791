package collectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/joelkehle/pharma-discovery/internal/config"
	"github.com/joelkehle/pharma-discovery/internal/httpx"
	"github.com/joelkehle/pharma-discovery/internal/record"
)

// Web returns citation-style web intelligence. With a Tavily key it runs a
// live search and falls back to the canned hits on any failure.
type Web struct {
	http *httpx.Client
	cfg  config.WebConfig
	log  zerolog.Logger
}

func NewWeb(client *httpx.Client, cfg config.WebConfig, log zerolog.Logger) *Web {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &Web{http: client, cfg: cfg, log: log.With().Str("component", "web").Logger()}
}

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	Topic       string `json:"topic"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Content       string  `json:"content"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"published_date"`
	} `json:"results"`
}

func (w *Web) Collect(ctx context.Context, drug string) ([]record.WebHit, error) {
	if strings.TrimSpace(w.cfg.TavilyAPIKey) == "" || w.http == nil {
		return MockWebHits(drug), nil
	}
	hits, err := w.search(ctx, drug)
	if err != nil || len(hits) == 0 {
		w.log.Warn().Str("drug", drug).Err(err).Msg("web_search_fallback")
		return MockWebHits(drug), nil
	}
	return hits, nil
}

func (w *Web) search(ctx context.Context, drug string) ([]record.WebHit, error) {
	req := tavilyRequest{
		Query:       fmt.Sprintf("%s drug guidance safety repurposing", drug),
		SearchDepth: "basic",
		Topic:       "general",
		MaxResults:  w.cfg.MaxResults,
	}
	body, err := w.http.PostJSON(ctx, w.cfg.TavilyURL, map[string]string{"Authorization": "Bearer " + w.cfg.TavilyAPIKey}, req)
	if err != nil {
		return nil, fmt.Errorf("tavily: %w", err)
	}
	var parsed tavilyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("tavily decode: %w", err)
	}
	out := make([]record.WebHit, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		out = append(out, record.WebHit{
			Title:   strings.TrimSpace(r.Title),
			Source:  hostOf(r.URL),
			URL:     r.URL,
			Snippet: truncateRunes(strings.Join(strings.Fields(r.Content), " "), 300),
		})
	}
	return out, nil
}

// MockWebHits returns the four canned citations for drug.
func MockWebHits(drug string) []record.WebHit {
	slug := strings.ReplaceAll(drug, " ", "-")
	return []record.WebHit{
		{
			Title:   fmt.Sprintf("World Health Organization guidance on %s", drug),
			Source:  "who.int",
			URL:     "https://who.int/guidance/" + slug,
			Snippet: fmt.Sprintf("WHO guidance highlights safe use and special population considerations for %s.", drug),
		},
		{
			Title:   fmt.Sprintf("Recent review: off-label uses of %s", drug),
			Source:  "journal-review.org",
			URL:     "https://journal-review.org/" + slug + "-review",
			Snippet: "Review summarizes potential new therapeutic areas with emerging evidence.",
		},
		{
			Title:   fmt.Sprintf("Patient forum discussion on %s side effects", drug),
			Source:  "healthforums.example",
			URL:     "https://healthforums.example/" + slug,
			Snippet: "Users report common adverse events and dosing preferences across regions.",
		},
		{
			Title:   fmt.Sprintf("Regulatory safety update on %s", drug),
			Source:  "regulator.example",
			URL:     "https://regulator.example/alerts/" + slug,
			Snippet: "Regulatory agency reminds prescribers about dose limits and monitoring.",
		},
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
