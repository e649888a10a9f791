package collectors

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/joelkehle/pharma-discovery/internal/record"
)

//go:embed data/trade_reference.json
var tradeReferenceJSON []byte

var (
	tradeReferenceOnce sync.Once
	tradeReference     map[string]record.Trade
	tradeReferenceErr  error
)

func loadTradeReference() (map[string]record.Trade, error) {
	tradeReferenceOnce.Do(func() {
		tradeReferenceErr = json.Unmarshal(tradeReferenceJSON, &tradeReference)
	})
	return tradeReference, tradeReferenceErr
}

var tradeCountries = []string{"USA", "UK", "China", "Germany", "Brazil", "UAE"}

// Trade returns export/import data. Drugs present in the embedded reference
// table use it; every other drug gets the synthesized structure.
type Trade struct {
	rnd *Random
}

func NewTrade(rnd *Random) *Trade {
	return &Trade{rnd: rnd}
}

// HasReference reports whether drug is served from the reference table.
func HasReference(drug string) bool {
	ref, err := loadTradeReference()
	if err != nil {
		return false
	}
	_, ok := ref[drug]
	return ok
}

func (t *Trade) Collect(ctx context.Context, drug string) (record.Trade, error) {
	if err := ctx.Err(); err != nil {
		return record.Trade{}, err
	}
	ref, err := loadTradeReference()
	if err != nil {
		return record.Trade{}, fmt.Errorf("trade reference: %w", err)
	}
	if data, ok := ref[drug]; ok {
		return cloneTrade(data), nil
	}
	return t.mock(), nil
}

func (t *Trade) mock() record.Trade {
	history := make([]record.TradeYear, 0, 5)
	for year := 2020; year <= 2024; year++ {
		history = append(history, record.TradeYear{
			Year:                    year,
			ExportVolumeMT:          t.rnd.IntRange(8, 22),
			ImportDependencePercent: t.rnd.IntRange(20, 70),
		})
	}
	return record.Trade{
		ExportData: record.ExportData{
			VolumeKgs:    t.yearly(),
			ValueCrores:  t.yearly(),
			TopCountries: t.countries(),
		},
		ImportData: record.ImportData{
			VolumeKgs:    t.yearly(),
			ValueCrores:  t.yearly(),
			TopCountries: t.countries(),
		},
		Summary: []string{
			"Moderate export performance.",
			"Import dependency moderately stable.",
			"Potential growth in emerging markets.",
		},
		TradeHistory: history,
		Bullets: []string{
			"Export market shows controlled volatility.",
			"Import dependency varies with API availability.",
			"Suitable candidate for domestic manufacturing incentives.",
		},
	}
}

func (t *Trade) yearly() record.Yearly {
	return record.Yearly{
		"2022": t.rnd.IntRange(5000, 15000),
		"2023": t.rnd.IntRange(6000, 16000),
		"2024": t.rnd.IntRange(7000, 17000),
	}
}

func (t *Trade) countries() map[string][]record.CountryValue {
	picked := t.rnd.Sample(tradeCountries, 5)
	out := make([]record.CountryValue, 0, len(picked))
	for _, c := range picked {
		out = append(out, record.CountryValue{Country: c, Value: t.rnd.IntRange(300, 5000)})
	}
	return map[string][]record.CountryValue{"2024": out}
}

// cloneTrade deep-copies reference data so callers never share maps.
func cloneTrade(in record.Trade) record.Trade {
	blob, _ := json.Marshal(in)
	var out record.Trade
	_ = json.Unmarshal(blob, &out)
	out.Summary = nonNilStrings(out.Summary)
	out.Bullets = nonNilStrings(out.Bullets)
	if out.TradeHistory == nil {
		out.TradeHistory = []record.TradeYear{}
	}
	return out
}
