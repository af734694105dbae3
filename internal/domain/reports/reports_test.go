package reports

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/finsight/internal/domain/documents"
)

func TestNewDocumentInfo(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	doc := &documents.Document{
		Filename:    "acme-10k.pdf",
		ContentType: "application/pdf",
		Size:        2048,
	}
	ex := documents.Extraction{Text: "Revenue $1.2B up 12% YoY, margin 18.3%", Pages: 3}

	info := NewDocumentInfo(doc, ex, now)

	assert.Equal(t, "acme-10k.pdf", info.Filename)
	assert.Equal(t, int64(2048), info.SizeBytes)
	assert.Equal(t, 2.0, info.SizeKB)
	assert.Equal(t, "Annual Report (10-K)", info.DocumentType)
	assert.Equal(t, 3, info.PageCount)
	assert.Equal(t, 3, info.KeyFiguresFound)
	assert.Equal(t, len([]rune(ex.Text)), info.TextLength)
	assert.Equal(t, now, info.ProcessedAt)
}

func TestNewDocumentInfo_SizeFromContent(t *testing.T) {
	doc := &documents.Document{Filename: "a.txt", Content: make([]byte, 1500)}
	info := NewDocumentInfo(doc, documents.Extraction{}, time.Time{})
	assert.Equal(t, int64(1500), info.SizeBytes)
	assert.Equal(t, 1.46, info.SizeKB)
}

func TestCountKeyFigures(t *testing.T) {
	assert.Equal(t, 0, CountKeyFigures(""))
	assert.Equal(t, 2, CountKeyFigures("net $5M and 3% growth, 7 stores"))
}

func TestReport_ValidateAndNormalize(t *testing.T) {
	r := &Report{}
	err := r.Validate()
	require.ErrorIs(t, err, ErrIncomplete)
	assert.Contains(t, err.Error(), "analysis_id")
	assert.Contains(t, err.Error(), "document_info.filename")
	assert.Contains(t, err.Error(), "recommendation.rating")

	r = &Report{
		Status:       StatusSuccess,
		ID:           "id",
		Generator:    "mock",
		DocumentInfo: DocumentInfo{Filename: "a.pdf", DocumentType: "Financial Document"},
	}
	require.ErrorIs(t, r.Validate(), ErrIncomplete, "rating is required")

	r.Recommendation.Rating = "  "
	require.ErrorIs(t, r.Validate(), ErrIncomplete)

	r.Recommendation.Rating = RatingNotDisclosed
	require.NoError(t, r.Validate())

	r.Normalize()
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "null")

	var top map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &top))
	for _, k := range []string{"status", "analysis_id", "generator", "query", "document_info",
		"key_metrics", "risk_assessment", "recommendation", "verification", "insights"} {
		assert.Contains(t, top, k)
	}
	assert.NotContains(t, top, "analysis")
}

func TestNormalizeQuery(t *testing.T) {
	q, err := NormalizeQuery("   ")
	require.NoError(t, err)
	assert.Equal(t, DefaultQuery, q)

	q, err = NormalizeQuery("  What is the debt load?\x07 ")
	require.NoError(t, err)
	assert.Equal(t, "What is the debt load?", q)

	_, err = NormalizeQuery(strings.Repeat("x", MaxQueryRunes+1))
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = NormalizeQuery("bad \xff")
	assert.ErrorIs(t, err, ErrInvalidQuery)
}
