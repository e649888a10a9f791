package collectors

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/joelkehle/pharma-discovery/internal/record"
)

type unmetSignal struct {
	terms []string
	need  string
}

var unmetSignals = []unmetSignal{
	{[]string{"hepatotoxicity", "liver injury", "hepatic", "liver failure"}, "Safer formulations that reduce liver toxicity risk"},
	{[]string{"overdose", "poisoning", "toxicity"}, "Overdose prevention and improved safety margins"},
	{[]string{"resistance", "resistant", "refractory"}, "Options for resistant or refractory patient populations"},
	{[]string{"pediatric", "paediatric", "children", "infant", "neonat"}, "Age-appropriate pediatric dosing and formulations"},
	{[]string{"elderly", "older adults", "geriatric"}, "Dose optimization for elderly patients"},
	{[]string{"pregnan", "lactation", "breastfeed"}, "Safety evidence for use during pregnancy and lactation"},
	{[]string{"chronic pain", "neuropathic", "persistent pain"}, "Better long-term management of chronic pain"},
	{[]string{"formulation", "bioavailability", "extended-release", "sustained release"}, "Improved formulations with better bioavailability or release profile"},
	{[]string{"renal", "kidney", "nephrotox"}, "Safer use in patients with renal impairment"},
	{[]string{"adherence", "compliance", "dosing frequency"}, "Regimens that improve patient adherence"},
	{[]string{"cancer", "tumor", "tumour", "oncolog"}, "Evidence for adjunct use in oncology"},
	{[]string{"covid", "sars-cov-2", "viral"}, "Evaluation in viral and post-viral conditions"},
	{[]string{"inflammation", "inflammatory"}, "Targeted control of inflammatory conditions"},
}

// UnmetNeeds derives unmet-need statements from literature titles and
// abstracts, ordered by where each signal first appears.
type UnmetNeeds struct{}

func NewUnmetNeeds() *UnmetNeeds { return &UnmetNeeds{} }

func (UnmetNeeds) Collect(ctx context.Context, drug string, articles []record.Article) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var corpus strings.Builder
	for _, a := range articles {
		corpus.WriteString(strings.ToLower(a.Title))
		corpus.WriteByte(' ')
		if a.Abstract != NoAbstract {
			corpus.WriteString(strings.ToLower(a.Abstract))
			corpus.WriteByte(' ')
		}
	}
	text := corpus.String()

	type hit struct {
		pos  int
		need string
	}
	hits := []hit{}
	for _, sig := range unmetSignals {
		first := -1
		for _, term := range sig.terms {
			if i := strings.Index(text, term); i >= 0 && (first < 0 || i < first) {
				first = i
			}
		}
		if first >= 0 {
			hits = append(hits, hit{pos: first, need: sig.need})
		}
	}
	if len(hits) == 0 {
		return []string{
			fmt.Sprintf("Limited published evidence on new indications for %s", drug),
			"Need for real-world safety and effectiveness data",
		}, nil
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.need)
	}
	return out, nil
}
