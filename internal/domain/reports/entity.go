package reports

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bryanwahyu/finsight/internal/domain/documents"
)

// Status enum
type Status string

const StatusSuccess Status = "success"

// DocumentInfo describes the upload the report was produced from.
type DocumentInfo struct {
	Filename        string    `json:"filename"`
	ContentType     string    `json:"content_type,omitempty"`
	SizeBytes       int64     `json:"size_bytes"`
	SizeKB          float64   `json:"size_kb"`
	DocumentType    string    `json:"document_type"`
	TextLength      int       `json:"text_length"`
	PageCount       int       `json:"page_count"`
	KeyFiguresFound int       `json:"key_figures_found"`
	ProcessedAt     time.Time `json:"processed_at"`
}

type KeyMetrics struct {
	RevenueGrowth  string `json:"revenue_growth"`
	ProfitMargin   string `json:"profit_margin"`
	DebtToEquity   string `json:"debt_to_equity"`
	CurrentRatio   string `json:"current_ratio"`
	ReturnOnEquity string `json:"return_on_equity"`
	Summary        string `json:"summary,omitempty"`
}

type RiskAssessment struct {
	OverallRisk     string `json:"overall_risk"`
	LiquidityRisk   string `json:"liquidity_risk"`
	CreditRisk      string `json:"credit_risk"`
	MarketRisk      string `json:"market_risk"`
	OperationalRisk string `json:"operational_risk"`
	Summary         string `json:"summary,omitempty"`
}

// RatingNotDisclosed stands in when a generator produced no rating.
const RatingNotDisclosed = "Not disclosed"

type Recommendation struct {
	Rating      string   `json:"rating"`
	Confidence  string   `json:"confidence"`
	TargetPrice string   `json:"target_price"`
	TimeHorizon string   `json:"time_horizon"`
	KeyDrivers  []string `json:"key_drivers"`
	Summary     string   `json:"summary,omitempty"`
}

type Verification struct {
	Authenticity     string `json:"authenticity"`
	Completeness     string `json:"completeness"`
	DataQuality      string `json:"data_quality"`
	ComplianceStatus string `json:"compliance_status"`
	Summary          string `json:"summary,omitempty"`
}

type Insights struct {
	Strengths       []string `json:"strengths"`
	Concerns        []string `json:"concerns"`
	Opportunities   []string `json:"opportunities"`
	Recommendations []string `json:"recommendations"`
	Summary         string   `json:"summary,omitempty"`
}

// Report is the body returned by POST /analyze. It is built once per request
// and never stored.
type Report struct {
	Status         Status         `json:"status"`
	ID             string         `json:"analysis_id"`
	Generator      string         `json:"generator"`
	Query          string         `json:"query"`
	GeneratedAt    time.Time      `json:"generated_at"`
	DocumentInfo   DocumentInfo   `json:"document_info"`
	KeyMetrics     KeyMetrics     `json:"key_metrics"`
	RiskAssessment RiskAssessment `json:"risk_assessment"`
	Recommendation Recommendation `json:"recommendation"`
	Verification   Verification   `json:"verification"`
	Insights       Insights       `json:"insights"`
	// Analysis carries the raw narrative when an external model wrote the report.
	Analysis string `json:"analysis,omitempty"`
}

// ErrIncomplete is returned by Validate when a required field is missing.
var ErrIncomplete = errors.New("report is missing required fields")

// Normalize replaces nil slices so they encode as [] rather than null.
func (r *Report) Normalize() {
	fill := func(s *[]string) {
		if *s == nil {
			*s = []string{}
		}
	}
	fill(&r.Recommendation.KeyDrivers)
	fill(&r.Insights.Strengths)
	fill(&r.Insights.Concerns)
	fill(&r.Insights.Opportunities)
	fill(&r.Insights.Recommendations)
}

// Validate checks the "required fields present" invariant.
func (r *Report) Validate() error {
	var missing []string
	if r.Status == "" {
		missing = append(missing, "status")
	}
	if r.ID == "" {
		missing = append(missing, "analysis_id")
	}
	if r.Generator == "" {
		missing = append(missing, "generator")
	}
	if r.DocumentInfo.Filename == "" {
		missing = append(missing, "document_info.filename")
	}
	if r.DocumentInfo.DocumentType == "" {
		missing = append(missing, "document_info.document_type")
	}
	if strings.TrimSpace(r.Recommendation.Rating) == "" {
		missing = append(missing, "recommendation.rating")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// NewDocumentInfo derives the document_info block shared by every generator.
func NewDocumentInfo(doc *documents.Document, ex documents.Extraction, processedAt time.Time) DocumentInfo {
	size := doc.Size
	if size == 0 {
		size = int64(len(doc.Content))
	}
	return DocumentInfo{
		Filename:        doc.Filename,
		ContentType:     doc.ContentType,
		SizeBytes:       size,
		SizeKB:          math.Round(float64(size)/1024*100) / 100,
		DocumentType:    documents.DetectDocumentType(doc.Filename),
		TextLength:      utf8.RuneCountInString(ex.Text),
		PageCount:       ex.Pages,
		KeyFiguresFound: CountKeyFigures(ex.Text),
		ProcessedAt:     processedAt,
	}
}

// CountKeyFigures counts whitespace-separated tokens that look like money or
// percentages.
func CountKeyFigures(text string) int {
	n := 0
	for _, tok := range strings.Fields(text) {
		if strings.ContainsAny(tok, "$%") {
			n++
		}
	}
	return n
}
