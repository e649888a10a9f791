// Package config loads runtime settings from an optional YAML file with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultLLMModel = "claude-3-5-haiku-latest"

type Config struct {
	DataDir   string          `yaml:"data_dir"`
	Log       LogConfig       `yaml:"log"`
	LLM       LLMConfig       `yaml:"llm"`
	PubMed    PubMedConfig    `yaml:"pubmed"`
	Trials    TrialsConfig    `yaml:"trials"`
	Web       WebConfig       `yaml:"web"`
	Documents DocumentsConfig `yaml:"documents"`
	HTTP      HTTPConfig      `yaml:"http"`
	Server    ServerConfig    `yaml:"server"`
	Report    ReportConfig    `yaml:"report"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

type LLMConfig struct {
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	MaxRetries int           `yaml:"max_retries"`
	Timeout    time.Duration `yaml:"timeout"`
}

type PubMedConfig struct {
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	RetMax     int           `yaml:"retmax"`
	BatchSize  int           `yaml:"batch_size"`
	BatchDelay time.Duration `yaml:"batch_delay"`
}

type TrialsConfig struct {
	BaseURL  string `yaml:"base_url"`
	PageSize int    `yaml:"page_size"`
	MaxPages int    `yaml:"max_pages"`
}

type WebConfig struct {
	TavilyAPIKey string `yaml:"tavily_api_key"`
	TavilyURL    string `yaml:"tavily_url"`
	MaxResults   int    `yaml:"max_results"`
}

type DocumentsConfig struct {
	OCREnabled      bool   `yaml:"ocr_enabled"`
	MinTextChars    int    `yaml:"min_text_chars"`
	OCRMaxPages     int    `yaml:"ocr_max_pages"`
	PreviewChars    int    `yaml:"preview_chars"`
	MaxSummaryChars int    `yaml:"max_summary_chars"`
	TesseractPath   string `yaml:"tesseract_path"`
	PdftotextPath   string `yaml:"pdftotext_path"`
}

type HTTPConfig struct {
	MaxTries       uint          `yaml:"max_tries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Timeout        time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// ReportConfig drives the headless Chromium PDF export. An empty ChromePath
// means search PATH for a browser.
type ReportConfig struct {
	ChromePath string        `yaml:"chrome_path"`
	Timeout    time.Duration `yaml:"timeout"`
	Paper      string        `yaml:"paper"` // a4 or letter
}

type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

// Default returns the settings used when neither a file nor the
// environment says otherwise.
func Default() Config {
	return Config{
		DataDir: "./data",
		Log:     LogConfig{Level: "info", Format: "console"},
		LLM:     LLMConfig{Model: DefaultLLMModel, MaxRetries: 2, Timeout: 60 * time.Second},
		PubMed: PubMedConfig{
			BaseURL:    "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
			RetMax:     50,
			BatchSize:  10,
			BatchDelay: 300 * time.Millisecond,
		},
		Trials: TrialsConfig{BaseURL: "https://clinicaltrials.gov/api/v2", PageSize: 50, MaxPages: 1},
		Web:    WebConfig{TavilyURL: "https://api.tavily.com/search", MaxResults: 5},
		Documents: DocumentsConfig{
			MinTextChars:    300,
			OCRMaxPages:     5,
			PreviewChars:    3000,
			MaxSummaryChars: 12000,
			TesseractPath:   "tesseract",
			PdftotextPath:   "pdftotext",
		},
		HTTP:      HTTPConfig{MaxTries: 5, InitialBackoff: time.Second, MaxBackoff: 16 * time.Second, Timeout: 20 * time.Second},
		Server:    ServerConfig{Addr: ":8090"},
		Report:    ReportConfig{Timeout: 30 * time.Second, Paper: "a4"},
		Telemetry: TelemetryConfig{ServiceName: "pharma-discovery"},
	}
}

// Load reads path (if non-empty) over the defaults and then applies
// environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(blob, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	cfg.fillZeroes()
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.DataDir, "PHARMA_DATA_DIR")
	setString(&cfg.Log.Level, "PHARMA_LOG_LEVEL")
	setString(&cfg.Log.Format, "PHARMA_LOG_FORMAT")
	setString(&cfg.LLM.APIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.LLM.Model, "PHARMA_LLM_MODEL")
	setString(&cfg.PubMed.APIKey, "NCBI_API_KEY")
	setString(&cfg.Web.TavilyAPIKey, "TAVILY_API_KEY")
	setString(&cfg.Report.ChromePath, "PHARMA_CHROME_PATH")
	setString(&cfg.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v := strings.TrimSpace(os.Getenv("PHARMA_OCR_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Documents.OCREnabled = b
		}
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Server.Addr = ":" + port
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// fillZeroes restores defaults for numeric settings a YAML file zeroed out.
func (c *Config) fillZeroes() {
	d := Default()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.LLM.Model == "" {
		c.LLM.Model = d.LLM.Model
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = d.LLM.Timeout
	}
	if c.PubMed.BaseURL == "" {
		c.PubMed.BaseURL = d.PubMed.BaseURL
	}
	if c.PubMed.RetMax <= 0 {
		c.PubMed.RetMax = d.PubMed.RetMax
	}
	if c.PubMed.BatchSize <= 0 || c.PubMed.BatchSize > 10 {
		c.PubMed.BatchSize = d.PubMed.BatchSize
	}
	if c.PubMed.BatchDelay < 0 {
		c.PubMed.BatchDelay = d.PubMed.BatchDelay
	}
	if c.Trials.BaseURL == "" {
		c.Trials.BaseURL = d.Trials.BaseURL
	}
	if c.Trials.PageSize <= 0 {
		c.Trials.PageSize = d.Trials.PageSize
	}
	if c.Trials.MaxPages <= 0 {
		c.Trials.MaxPages = d.Trials.MaxPages
	}
	if c.Web.TavilyURL == "" {
		c.Web.TavilyURL = d.Web.TavilyURL
	}
	if c.Web.MaxResults <= 0 {
		c.Web.MaxResults = d.Web.MaxResults
	}
	if c.Documents.MinTextChars <= 0 {
		c.Documents.MinTextChars = d.Documents.MinTextChars
	}
	if c.Documents.OCRMaxPages <= 0 {
		c.Documents.OCRMaxPages = d.Documents.OCRMaxPages
	}
	if c.Documents.PreviewChars <= 0 {
		c.Documents.PreviewChars = d.Documents.PreviewChars
	}
	if c.Documents.MaxSummaryChars <= 0 {
		c.Documents.MaxSummaryChars = d.Documents.MaxSummaryChars
	}
	if c.Documents.TesseractPath == "" {
		c.Documents.TesseractPath = d.Documents.TesseractPath
	}
	if c.Documents.PdftotextPath == "" {
		c.Documents.PdftotextPath = d.Documents.PdftotextPath
	}
	if c.HTTP.MaxTries == 0 {
		c.HTTP.MaxTries = d.HTTP.MaxTries
	}
	if c.HTTP.InitialBackoff <= 0 {
		c.HTTP.InitialBackoff = d.HTTP.InitialBackoff
	}
	if c.HTTP.MaxBackoff <= 0 {
		c.HTTP.MaxBackoff = d.HTTP.MaxBackoff
	}
	if c.HTTP.Timeout <= 0 {
		c.HTTP.Timeout = d.HTTP.Timeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Report.Timeout <= 0 {
		c.Report.Timeout = d.Report.Timeout
	}
	if c.Report.Paper == "" {
		c.Report.Paper = d.Report.Paper
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = d.Telemetry.ServiceName
	}
}
