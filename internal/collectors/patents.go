package collectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/joelkehle/pharma-discovery/internal/record"
)

const (
	patentCount       = 6
	patentPlaceholder = "https://patents.google.com"
)

var (
	therapeuticAreas = []string{
		"Pain management",
		"Fever reduction",
		"Inflammation",
		"Liver safety formulations",
		"Pediatric dosing",
		"Extended-release technology",
		"Combination therapy",
	}
	patentAssignees = []string{
		"Pfizer Inc.",
		"Johnson & Johnson",
		"Sun Pharma",
		"Dr. Reddy's Laboratories",
		"Generic Pharma Co.",
	}
	leadInventors   = []string{"John Doe", "Amit Sharma", "Sara Kim", "Michael Lee", "Priya Nair"}
	secondInventors = []string{"Emily Zhang", "Carlos Gomez", "Anna Petrova", "Rajesh Kumar"}
	patentStatuses  = []string{"Active", "Expired", "Pending"}
)

// Patents synthesizes a fixed-size patent landscape. There is no upstream
// patent source; the values are illustrative only.
type Patents struct {
	rnd *Random
}

func NewPatents(rnd *Random) *Patents {
	return &Patents{rnd: rnd}
}

func (p *Patents) Collect(ctx context.Context, drug string) ([]record.Patent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]record.Patent, 0, patentCount)
	for range patentCount {
		area := p.rnd.Pick(therapeuticAreas)
		lower := strings.ToLower(area)
		out = append(out, record.Patent{
			PatentID:        fmt.Sprintf("US%dA1", p.rnd.IntRange(100000, 999999)),
			Title:           fmt.Sprintf("%s %s novel formulation and delivery mechanism", drug, lower),
			Assignee:        p.rnd.Pick(patentAssignees),
			Inventors:       []string{p.rnd.Pick(leadInventors), p.rnd.Pick(secondInventors)},
			FilingYear:      p.rnd.IntRange(2015, 2022),
			PublicationYear: p.rnd.IntRange(2017, 2024),
			ExpiryYear:      p.rnd.IntRange(2025, 2040),
			TherapeuticArea: area,
			Abstract: fmt.Sprintf("This invention relates to an improved pharmaceutical formulation of %s, "+
				"designed for enhanced %s. The composition includes modified excipients which result in "+
				"improved bioavailability, reduced first-pass metabolism, and superior therapeutic control. "+
				"The formulation offers manufacturing advantages and potential clinical benefit compared to existing products.",
				drug, lower),
			Status:  p.rnd.Pick(patentStatuses),
			PDFLink: patentPlaceholder,
			URL:     patentPlaceholder,
		})
	}
	return out, nil
}
