package report

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/finsight/internal/domain/ai"
	"github.com/bryanwahyu/finsight/internal/domain/documents"
	"github.com/bryanwahyu/finsight/internal/domain/reports"
	"github.com/bryanwahyu/finsight/internal/infra/ai/prompt"
)

// DefaultMaxPromptChars bounds how much document text each role sees.
const DefaultMaxPromptChars = 4000

// Crew writes the report by asking an AI client to play each role in
// prompt.Crew in turn. Each role sees the answers of the roles before it.
type Crew struct {
	Client         ai.Client
	MaxPromptChars int
	// Timeout bounds each role's call; 0 means no bound beyond ctx.
	Timeout time.Duration
	Logger  *zap.Logger
}

func (c *Crew) Name() string       { return "ai" }
func (c *Crew) RequiresText() bool { return true }

func (c *Crew) Generate(ctx context.Context, in reports.Input) (*reports.Report, error) {
	limit := c.MaxPromptChars
	if limit <= 0 {
		limit = DefaultMaxPromptChars
	}
	pc := prompt.Context{
		Filename:     in.Info.Filename,
		DocumentType: in.Info.DocumentType,
		Query:        in.Query,
		Text:         documents.Truncate(in.Text, limit),
	}

	rep := &reports.Report{}
	var narrative []string
	for _, role := range prompt.Crew {
		raw, err := c.complete(ctx, ai.Prompt{
			System: role.System(),
			User:   role.User(pc),
			JSON:   true,
		})
		if err != nil {
			return nil, fmt.Errorf("%s: %w", role.Title, err)
		}
		c.apply(rep, role, raw)
		pc.Prior = append(pc.Prior, prompt.Finding{Title: role.Title, Output: raw})
		narrative = append(narrative, "## "+role.Title+"\n\n"+strings.TrimSpace(raw))
	}
	if strings.TrimSpace(rep.Recommendation.Rating) == "" {
		rep.Recommendation.Rating = reports.RatingNotDisclosed
	}
	rep.Analysis = strings.Join(narrative, "\n\n")
	return rep, nil
}

func (c *Crew) complete(ctx context.Context, p ai.Prompt) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return c.Client.Complete(ctx, p)
}

// apply decodes one role's answer into its section. Answers that cannot be
// decoded are kept verbatim in the section summary.
func (c *Crew) apply(rep *reports.Report, role prompt.Role, raw string) {
	var target any
	var summary *string
	switch role.Key {
	case prompt.Verifier.Key:
		target, summary = &rep.Verification, &rep.Verification.Summary
	case prompt.Analyst.Key:
		target, summary = &analystAnswer{KeyMetrics: &rep.KeyMetrics, Insights: &rep.Insights}, &rep.Insights.Summary
	case prompt.Advisor.Key:
		target, summary = &rep.Recommendation, &rep.Recommendation.Summary
	case prompt.RiskAssessor.Key:
		target, summary = &rep.RiskAssessment, &rep.RiskAssessment.Summary
	default:
		return
	}

	err := prompt.Decode(raw, target)
	if err == nil && !isEmpty(target) {
		return
	}
	if err != nil {
		c.logger().Warn("role answer is not valid JSON, keeping raw text",
			zap.String("role", role.Title), zap.Error(err))
	}
	*summary = strings.TrimSpace(raw)
}

type analystAnswer struct {
	KeyMetrics *reports.KeyMetrics `json:"key_metrics"`
	Insights   *reports.Insights   `json:"insights"`
}

func isEmpty(target any) bool {
	if a, ok := target.(*analystAnswer); ok {
		return (a.KeyMetrics == nil || reflect.ValueOf(*a.KeyMetrics).IsZero()) &&
			(a.Insights == nil || isZeroInsights(a.Insights))
	}
	return reflect.ValueOf(target).Elem().IsZero()
}

func isZeroInsights(in *reports.Insights) bool {
	return in.Summary == "" && len(in.Strengths) == 0 && len(in.Concerns) == 0 &&
		len(in.Opportunities) == 0 && len(in.Recommendations) == 0
}

func (c *Crew) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

