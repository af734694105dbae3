package prompt

import (
	"fmt"
	"strings"
)

// Role is one member of the analysis crew. Each role answers with a JSON
// object shaped like Schema.
type Role struct {
	Key    string
	Title  string
	Goal   string
	Schema string
}

var (
	Verifier = Role{
		Key:   "verification",
		Title: "Financial Document Verification Specialist",
		Goal:  "Check whether the document is a genuine, complete financial document and judge the quality of its data.",
		Schema: `{
  "authenticity": "<Verified|Unverified|Suspicious>",
  "completeness": "<percentage of expected sections present, e.g. 85%>",
  "data_quality": "<High|Medium|Low>",
  "compliance_status": "<short statement, e.g. Compliant with GAAP standards>",
  "summary": "<two or three sentences>"
}`,
	}

	Analyst = Role{
		Key:   "analysis",
		Title: "Senior Financial Analyst",
		Goal:  "Extract the key financial metrics and the main strengths, concerns and opportunities, answering the user's question.",
		Schema: `{
  "key_metrics": {
    "revenue_growth": "<e.g. 12.5% YoY>",
    "profit_margin": "<e.g. 18.3%>",
    "debt_to_equity": "<e.g. 0.45>",
    "current_ratio": "<e.g. 2.1>",
    "return_on_equity": "<e.g. 15.2%>",
    "summary": "<string>"
  },
  "insights": {
    "strengths": ["<string>"],
    "concerns": ["<string>"],
    "opportunities": ["<string>"],
    "recommendations": ["<string>"],
    "summary": "<string>"
  }
}`,
	}

	Advisor = Role{
		Key:   "recommendation",
		Title: "Investment Strategy Advisor",
		Goal:  "Give a BUY, HOLD or SELL rating with a short investment thesis grounded in the analysis.",
		Schema: `{
  "rating": "<BUY|HOLD|SELL>",
  "confidence": "<High|Medium|Low>",
  "target_price": "<e.g. $125.00 or Not disclosed>",
  "time_horizon": "<e.g. 12 months>",
  "key_drivers": ["<string>"],
  "summary": "<investment thesis>"
}`,
	}

	RiskAssessor = Role{
		Key:   "risk_assessment",
		Title: "Financial Risk Assessment Specialist",
		Goal:  "Assess liquidity, credit, market and operational risk and give an overall risk level.",
		Schema: `{
  "overall_risk": "<Low|Medium|Medium-High|High>",
  "liquidity_risk": "<Low|Medium|High>",
  "credit_risk": "<Low|Medium|High>",
  "market_risk": "<Low|Medium|Medium-High|High>",
  "operational_risk": "<Low|Medium|High>",
  "summary": "<string>"
}`,
	}
)

// Crew is the order the roles run in. Later roles see earlier answers.
var Crew = []Role{Verifier, Analyst, Advisor, RiskAssessor}

// Finding is an earlier role's raw answer passed along as context.
type Finding struct {
	Title  string
	Output string
}

// Context is what every role is told about the document.
type Context struct {
	Filename     string
	DocumentType string
	Query        string
	Text         string
	Prior        []Finding
}

// System returns the system prompt for r.
func (r Role) System() string {
	return fmt.Sprintf(`You are a %s. %s

You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.
Base every value on the document text. Use "Not disclosed" where the document does not contain a figure. Never invent numbers.

Schema:
%s`, r.Title, r.Goal, r.Schema)
}

// User builds the user message for r.
func (r Role) User(c Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", c.Query)
	fmt.Fprintf(&b, "Document: %s (%s)\n", c.Filename, c.DocumentType)
	for _, f := range c.Prior {
		fmt.Fprintf(&b, "\n%s findings:\n%s\n", f.Title, strings.TrimSpace(f.Output))
	}
	b.WriteString("\nDocument text:\n")
	b.WriteString(c.Text)
	return b.String()
}
