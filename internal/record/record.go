// Package record defines the Combined Record and the per-domain Source
// Records it owns. Every JSON key is always emitted: absent upstream values
// become null (pointer fields) or empty lists, never a missing key.
package record

import "time"

// Domain names double as the Combined Record keys and the source status keys.
const (
	DomainPubMed     = "pubmed"
	DomainTrials     = "clinical_trials"
	DomainPatents    = "patents"
	DomainUnmet      = "unmet_needs"
	DomainIQVIA      = "iqvia"
	DomainEXIM       = "exim"
	DomainWeb        = "web_intel"
	DomainInternal   = "internal_summary"
	DomainMarketMock = "market_mock"
)

// Domains lists every collected domain in report order.
var Domains = []string{
	DomainPubMed, DomainTrials, DomainPatents, DomainUnmet, DomainIQVIA,
	DomainEXIM, DomainWeb, DomainInternal, DomainMarketMock,
}

const (
	StatusOK       = "ok"
	StatusFallback = "fallback"
)

type Article struct {
	PMID     string   `json:"pmid"`
	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Journal  string   `json:"journal"`
	Authors  []string `json:"authors"`
	Abstract string   `json:"abstract"`
}

type Intervention struct {
	Type        *string `json:"type"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type Location struct {
	Facility *string `json:"facility"`
	City     *string `json:"city"`
	Country  *string `json:"country"`
}

type Trial struct {
	NCTID               *string        `json:"nct_id"`
	Title               *string        `json:"title"`
	Status              *string        `json:"status"`
	Conditions          []string       `json:"conditions"`
	Phases              []string       `json:"phases"`
	BriefSummary        *string        `json:"brief_summary"`
	DetailedDescription *string        `json:"detailed_description"`
	Interventions       []Intervention `json:"interventions"`
	Sponsor             *string        `json:"sponsor"`
	Locations           []Location     `json:"locations"`
	Eligibility         *string        `json:"eligibility"`
	StudyType           *string        `json:"study_type"`
	StartDate           *string        `json:"start_date"`
	CompletionDate      *string        `json:"completion_date"`
	LastUpdatePosted    *string        `json:"last_update_posted"`
	Enrollment          *int           `json:"enrollment"`
}

type Patent struct {
	PatentID        string   `json:"patent_id"`
	Title           string   `json:"title"`
	Assignee        string   `json:"assignee"`
	Inventors       []string `json:"inventors"`
	FilingYear      int      `json:"filing_year"`
	PublicationYear int      `json:"publication_year"`
	ExpiryYear      int      `json:"expiry_year"`
	TherapeuticArea string   `json:"therapeutic_area"`
	Abstract        string   `json:"abstract"`
	Status          string   `json:"status"`
	PDFLink         string   `json:"pdf_link"`
	URL             string   `json:"url"`
}

// CountryValue is one partner country and its traded value for a year.
type CountryValue struct {
	Country string `json:"country"`
	Value   int    `json:"value"`
}

// Yearly maps a four-digit year to a quantity.
type Yearly map[string]int

type ExportData struct {
	VolumeKgs    Yearly                    `json:"export_volume_kgs"`
	ValueCrores  Yearly                    `json:"export_value_crores"`
	TopCountries map[string][]CountryValue `json:"top_export_countries"`
}

type ImportData struct {
	VolumeKgs    Yearly                    `json:"import_volume_kgs"`
	ValueCrores  Yearly                    `json:"import_value_crores"`
	TopCountries map[string][]CountryValue `json:"top_import_countries"`
}

type TradeYear struct {
	Year                    int `json:"year"`
	ExportVolumeMT          int `json:"export_volume_mt"`
	ImportDependencePercent int `json:"import_dependence_percent"`
}

type Trade struct {
	ExportData   ExportData  `json:"export_data"`
	ImportData   ImportData  `json:"import_data"`
	Summary      []string    `json:"summary"`
	TradeHistory []TradeYear `json:"trade_history"`
	Bullets      []string    `json:"bullets"`
}

type MarketSnapshot struct {
	MarketSize2024   string   `json:"market_size_2024_usd_billion"`
	CAGR             string   `json:"CAGR"`
	TopCompetitors   []string `json:"top_competitors"`
	EstimatedRevenue string   `json:"estimated_revenue_2025_usd_billion"`
	MarketInsight    string   `json:"market_insight"`
}

type MarketMock struct {
	MarketSize2024 string   `json:"market_size_2024"`
	CAGR           string   `json:"CAGR"`
	Competitors    []string `json:"competitors"`
}

type WebHit struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type FinalSummary struct {
	PubMedArticles   int      `json:"pubmed_articles"`
	ClinicalTrials   int      `json:"clinical_trials"`
	PatentCount      int      `json:"patent_count"`
	MarketSize       string   `json:"market_size"`
	CAGR             string   `json:"cagr"`
	ExportTrend      string   `json:"export_trend"`
	ImportDependence Yearly   `json:"import_dependence"`
	UnmetNeeds       []string `json:"unmet_needs"`
}

type RunInfo struct {
	RunID       string    `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMS  int64     `json:"duration_ms"`
}

type SourceStatus struct {
	Status string `json:"status"`
	Items  int    `json:"items"`
	Error  string `json:"error,omitempty"`
}

// Combined is the per-drug aggregate of every collector plus the two
// recommendation outputs.
type Combined struct {
	Drug              string                  `json:"drug"`
	PubMedCount       int                     `json:"pubmed_count"`
	PubMed            []Article               `json:"pubmed"`
	ClinicalTrials    []Trial                 `json:"clinical_trials"`
	Patents           []Patent                `json:"patents"`
	UnmetNeeds        []string                `json:"unmet_needs"`
	IQVIA             MarketSnapshot          `json:"iqvia"`
	EXIM              Trade                   `json:"exim"`
	WebIntel          []WebHit                `json:"web_intel"`
	InternalSummary   DocumentSummary         `json:"internal_summary"`
	MarketMock        MarketMock              `json:"market_mock"`
	FinalSummary      FinalSummary            `json:"final_summary"`
	AIRecommendation  Recommendation          `json:"ai_recommendation"`
	RepurposeDecision RepurposeDecision       `json:"repurpose_decision"`
	Run               RunInfo                 `json:"run"`
	Sources           map[string]SourceStatus `json:"sources"`
}

// Normalize replaces nil containers with empty ones. It is applied to
// records assembled in memory and to records read back from a cache.
func (c *Combined) Normalize() {
	c.PubMed = nonNil(c.PubMed)
	for i := range c.PubMed {
		c.PubMed[i].Authors = nonNil(c.PubMed[i].Authors)
	}
	c.ClinicalTrials = nonNil(c.ClinicalTrials)
	for i := range c.ClinicalTrials {
		c.ClinicalTrials[i].normalize()
	}
	c.Patents = nonNil(c.Patents)
	for i := range c.Patents {
		c.Patents[i].Inventors = nonNil(c.Patents[i].Inventors)
	}
	c.UnmetNeeds = nonNil(c.UnmetNeeds)
	c.IQVIA.TopCompetitors = nonNil(c.IQVIA.TopCompetitors)
	c.EXIM.Normalize()
	c.WebIntel = nonNil(c.WebIntel)
	c.InternalSummary.Normalize()
	c.MarketMock.Competitors = nonNil(c.MarketMock.Competitors)
	c.FinalSummary.UnmetNeeds = nonNil(c.FinalSummary.UnmetNeeds)
	if c.FinalSummary.ImportDependence == nil {
		c.FinalSummary.ImportDependence = Yearly{}
	}
	c.AIRecommendation.Reasons = nonNil(c.AIRecommendation.Reasons)
	c.RepurposeDecision.Reasons = nonNil(c.RepurposeDecision.Reasons)
	if c.Sources == nil {
		c.Sources = map[string]SourceStatus{}
	}
}

func (t *Trial) normalize() {
	t.Conditions = nonNil(t.Conditions)
	t.Phases = nonNil(t.Phases)
	t.Interventions = nonNil(t.Interventions)
	t.Locations = nonNil(t.Locations)
}

// Normalize replaces nil maps and lists with empty ones.
func (t *Trade) Normalize() {
	if t.ExportData.VolumeKgs == nil {
		t.ExportData.VolumeKgs = Yearly{}
	}
	if t.ExportData.ValueCrores == nil {
		t.ExportData.ValueCrores = Yearly{}
	}
	if t.ExportData.TopCountries == nil {
		t.ExportData.TopCountries = map[string][]CountryValue{}
	}
	if t.ImportData.VolumeKgs == nil {
		t.ImportData.VolumeKgs = Yearly{}
	}
	if t.ImportData.ValueCrores == nil {
		t.ImportData.ValueCrores = Yearly{}
	}
	if t.ImportData.TopCountries == nil {
		t.ImportData.TopCountries = map[string][]CountryValue{}
	}
	t.Summary = nonNil(t.Summary)
	t.TradeHistory = nonNil(t.TradeHistory)
	t.Bullets = nonNil(t.Bullets)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
