package orchestrator

import (
	"sort"

	"github.com/joelkehle/pharma-discovery/internal/collectors"
	"github.com/joelkehle/pharma-discovery/internal/record"
)

// Export trend labels.
const (
	TrendRising  = "Rising"
	TrendFalling = "Falling"
	TrendStable  = "Stable"
	TrendUnknown = "Unknown"
)

// DefaultMarket stands in for a failed market snapshot.
func DefaultMarket() record.MarketSnapshot {
	return record.MarketSnapshot{
		MarketSize2024:   "0B",
		CAGR:             "0%",
		TopCompetitors:   []string{},
		EstimatedRevenue: "0B",
		MarketInsight:    "Market data unavailable.",
	}
}

func DefaultMarketMock() record.MarketMock {
	return record.MarketMock{MarketSize2024: "N/A", CAGR: "N/A", Competitors: []string{}}
}

func DefaultTrade() record.Trade {
	t := record.Trade{Summary: []string{"Trade data unavailable."}}
	t.Normalize()
	return t
}

// DefaultWeb is the mock citation set, which is also what the web collector
// returns without a search key.
func DefaultWeb(drug string) []record.WebHit {
	return collectors.MockWebHits(drug)
}

// BuildFinalSummary condenses the public-data domains of c. Uploaded
// documents never feed into it.
func BuildFinalSummary(c *record.Combined) record.FinalSummary {
	imports := record.Yearly{}
	for year, v := range c.EXIM.ImportData.VolumeKgs {
		imports[year] = v
	}
	return record.FinalSummary{
		PubMedArticles:   len(c.PubMed),
		ClinicalTrials:   len(c.ClinicalTrials),
		PatentCount:      len(c.Patents),
		MarketSize:       c.IQVIA.MarketSize2024,
		CAGR:             c.IQVIA.CAGR,
		ExportTrend:      ExportTrend(c.EXIM.ExportData.VolumeKgs),
		ImportDependence: imports,
		UnmetNeeds:       append([]string{}, c.UnmetNeeds...),
	}
}

// ExportTrend compares the earliest and latest years of series.
func ExportTrend(series record.Yearly) string {
	if len(series) < 2 {
		return TrendUnknown
	}
	years := make([]string, 0, len(series))
	for y := range series {
		years = append(years, y)
	}
	sort.Strings(years)
	first, last := series[years[0]], series[years[len(years)-1]]
	switch {
	case last > first:
		return TrendRising
	case last < first:
		return TrendFalling
	default:
		return TrendStable
	}
}
