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

// Trials queries the ClinicalTrials.gov v2 studies endpoint by intervention.
type Trials struct {
	http *httpx.Client
	cfg  config.TrialsConfig
	log  zerolog.Logger
}

func NewTrials(client *httpx.Client, cfg config.TrialsConfig, log zerolog.Logger) *Trials {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	return &Trials{http: client, cfg: cfg, log: log.With().Str("component", "trials").Logger()}
}

type dateStruct struct {
	Date *string `json:"date"`
}

type study struct {
	ProtocolSection struct {
		IdentificationModule struct {
			NCTID         *string `json:"nctId"`
			OfficialTitle *string `json:"officialTitle"`
			BriefTitle    *string `json:"briefTitle"`
		} `json:"identificationModule"`
		StatusModule struct {
			OverallStatus            *string    `json:"overallStatus"`
			StartDateStruct          dateStruct `json:"startDateStruct"`
			CompletionDateStruct     dateStruct `json:"completionDateStruct"`
			LastUpdatePostDateStruct dateStruct `json:"lastUpdatePostDateStruct"`
		} `json:"statusModule"`
		ConditionsModule struct {
			Conditions []string `json:"conditions"`
		} `json:"conditionsModule"`
		DesignModule struct {
			Phases         []string `json:"phases"`
			StudyType      *string  `json:"studyType"`
			EnrollmentInfo struct {
				Count *int `json:"count"`
			} `json:"enrollmentInfo"`
		} `json:"designModule"`
		DescriptionModule struct {
			BriefSummary        *string `json:"briefSummary"`
			DetailedDescription *string `json:"detailedDescription"`
		} `json:"descriptionModule"`
		ArmsInterventionsModule struct {
			Interventions []struct {
				Type        *string `json:"type"`
				Name        *string `json:"name"`
				Description *string `json:"description"`
			} `json:"interventions"`
		} `json:"armsInterventionsModule"`
		SponsorCollaboratorsModule struct {
			LeadSponsor struct {
				Name *string `json:"name"`
			} `json:"leadSponsor"`
		} `json:"sponsorCollaboratorsModule"`
		ContactsLocationsModule struct {
			Locations []struct {
				Facility *string `json:"facility"`
				City     *string `json:"city"`
				Country  *string `json:"country"`
			} `json:"locations"`
		} `json:"contactsLocationsModule"`
		EligibilityModule struct {
			EligibilityCriteria *string `json:"eligibilityCriteria"`
		} `json:"eligibilityModule"`
	} `json:"protocolSection"`
}

type studiesPage struct {
	Studies       []study `json:"studies"`
	NextPageToken string  `json:"nextPageToken"`
	TotalCount    int     `json:"totalCount"`
}

// Collect returns normalized studies in upstream order, following page
// tokens up to the configured page limit.
func (t *Trials) Collect(ctx context.Context, drug string) ([]record.Trial, error) {
	out := []record.Trial{}
	token := ""
	for page := 0; page < t.cfg.MaxPages; page++ {
		q := url.Values{
			"query.intr": {drug},
			"countTotal": {"true"},
			"pageSize":   {fmt.Sprint(t.cfg.PageSize)},
		}
		if token != "" {
			q.Set("pageToken", token)
		}
		body, err := t.http.Get(ctx, strings.TrimRight(t.cfg.BaseURL, "/")+"/studies", q)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("studies: %w", err)
			}
			t.log.Warn().Str("drug", drug).Int("page", page).Err(err).Msg("trials_page_failed")
			break
		}
		var parsed studiesPage
		if err := json.Unmarshal(body, &parsed); err != nil {
			if page == 0 {
				return nil, fmt.Errorf("studies decode: %w", err)
			}
			t.log.Warn().Str("drug", drug).Int("page", page).Err(err).Msg("trials_page_failed")
			break
		}
		for _, s := range parsed.Studies {
			out = append(out, normalizeStudy(s))
		}
		if page == 0 {
			t.log.Info().Str("drug", drug).Int("total", parsed.TotalCount).Msg("trials_found")
		}
		token = parsed.NextPageToken
		if token == "" {
			break
		}
	}
	return out, nil
}

func normalizeStudy(s study) record.Trial {
	p := s.ProtocolSection
	title := p.IdentificationModule.OfficialTitle
	if blank(title) {
		title = p.IdentificationModule.BriefTitle
	}
	tr := record.Trial{
		NCTID:               p.IdentificationModule.NCTID,
		Title:               title,
		Status:              p.StatusModule.OverallStatus,
		Conditions:          nonNilStrings(p.ConditionsModule.Conditions),
		Phases:              nonNilStrings(p.DesignModule.Phases),
		BriefSummary:        p.DescriptionModule.BriefSummary,
		DetailedDescription: p.DescriptionModule.DetailedDescription,
		Interventions:       make([]record.Intervention, 0, len(p.ArmsInterventionsModule.Interventions)),
		Sponsor:             p.SponsorCollaboratorsModule.LeadSponsor.Name,
		Locations:           make([]record.Location, 0, len(p.ContactsLocationsModule.Locations)),
		Eligibility:         p.EligibilityModule.EligibilityCriteria,
		StudyType:           p.DesignModule.StudyType,
		StartDate:           p.StatusModule.StartDateStruct.Date,
		CompletionDate:      p.StatusModule.CompletionDateStruct.Date,
		LastUpdatePosted:    p.StatusModule.LastUpdatePostDateStruct.Date,
		Enrollment:          p.DesignModule.EnrollmentInfo.Count,
	}
	for _, iv := range p.ArmsInterventionsModule.Interventions {
		tr.Interventions = append(tr.Interventions, record.Intervention{Type: iv.Type, Name: iv.Name, Description: iv.Description})
	}
	for _, loc := range p.ContactsLocationsModule.Locations {
		tr.Locations = append(tr.Locations, record.Location{Facility: loc.Facility, City: loc.City, Country: loc.Country})
	}
	return tr
}

func blank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
