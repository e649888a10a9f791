package collectors

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/joelkehle/pharma-discovery/internal/record"
)

var insightStopwords = map[string]bool{
	"the": true, "and": true, "in": true, "of": true, "a": true, "to": true, "for": true,
	"with": true, "on": true, "is": true, "by": true, "an": true, "are": true,
}

// Market synthesizes the IQVIA-style market snapshot and the coarse
// secondary market estimate.
type Market struct {
	rnd *Random
}

func NewMarket(rnd *Random) *Market {
	return &Market{rnd: rnd}
}

// Snapshot builds market size, growth and an insight sentence drawn from
// the literature titles.
func (m *Market) Snapshot(ctx context.Context, drug string, articles []record.Article) (record.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return record.MarketSnapshot{}, err
	}
	size := round(m.rnd.Uniform(0.5, 8.0), 2)
	cagr := round(m.rnd.Uniform(3.5, 12.0), 1)
	return record.MarketSnapshot{
		MarketSize2024:   formatFloat(size) + "B",
		CAGR:             formatFloat(cagr) + "%",
		TopCompetitors:   []string{"Competitor A", "Competitor B", "Competitor C", "Competitor D"},
		EstimatedRevenue: formatFloat(round(size*(1+cagr/100), 2)) + "B",
		MarketInsight:    MarketInsight(drug, articles),
	}, nil
}

// Estimate returns the coarse market range used alongside the snapshot.
func (m *Market) Estimate(ctx context.Context, drug string) (record.MarketMock, error) {
	if err := ctx.Err(); err != nil {
		return record.MarketMock{}, err
	}
	return record.MarketMock{
		MarketSize2024: fmt.Sprintf("$%dB", m.rnd.IntRange(1, 5)),
		CAGR:           fmt.Sprintf("%d%%", m.rnd.IntRange(4, 12)),
		Competitors:    []string{"Company A", "Company B", "Company C"},
	}, nil
}

// MarketInsight names the eight most frequent title terms longer than three
// characters. Ties keep first-appearance order.
func MarketInsight(drug string, articles []record.Article) string {
	return fmt.Sprintf("Market snapshot for %s: key research themes include %s. "+
		"The therapy area shows steady research volume and potential for value-added formulations "+
		"targeting safety or special populations.", drug, strings.Join(TopTitleTerms(articles, 8), ", "))
}

func TopTitleTerms(articles []record.Article, n int) []string {
	counts := map[string]int{}
	order := []string{}
	for _, a := range articles {
		for _, w := range strings.Fields(strings.ToLower(a.Title)) {
			if len(w) <= 3 || insightStopwords[w] {
				continue
			}
			w = strings.Trim(w, ".,;:()[]")
			if w == "" {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
