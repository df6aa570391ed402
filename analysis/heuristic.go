// ABOUTME: Deterministic offline analyzer built from record fields
// ABOUTME: Scores payment, status, QA, SSL and contract risk into priority and sentiment

package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/agencycrm/models"
)

// contractWarning is how close a contract end must be to count as a risk.
const contractWarning = 30 * 24 * time.Hour

// Heuristic analyzes clients without a remote endpoint.
type Heuristic struct {
	Now func() time.Time
}

func NewHeuristic() *Heuristic {
	return &Heuristic{Now: time.Now}
}

type riskFactor struct {
	weight         int
	reason         string
	recommendation string
}

func (h *Heuristic) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *Heuristic) AnalyzeClient(ctx context.Context, client *models.Client) (models.AIAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return models.AIAnalysis{}, err
	}
	if client == nil {
		return models.AIAnalysis{}, fmt.Errorf("analyze: nil client")
	}

	factors := h.riskFactors(client)
	risk := 0
	reasons := make([]string, 0, len(factors))
	recs := make([]string, 0, len(factors)+1)
	for _, f := range factors {
		risk += f.weight
		reasons = append(reasons, f.reason)
		recs = append(recs, f.recommendation)
	}
	if len(recs) == 0 {
		recs = append(recs, "Schedule a quarterly review to identify upsell opportunities")
	}

	return models.AIAnalysis{
		Sentiment:       sentimentFor(client, risk),
		Priority:        priorityFor(risk),
		Recommendations: recs,
		RiskAssessment:  assessment(risk, reasons),
		PredictedGrowth: growthFor(client.ServiceTier, risk),
	}, nil
}

func (h *Heuristic) riskFactors(c *models.Client) []riskFactor {
	var out []riskFactor
	add := func(weight int, reason, rec string) {
		out = append(out, riskFactor{weight: weight, reason: reason, recommendation: rec})
	}

	switch c.PaymentStatus {
	case models.PaymentOverdue:
		add(3, "payment overdue", "Follow up on the overdue invoice")
	case models.PaymentCancelled:
		add(2, "payment cancelled", "Confirm whether the engagement is ending")
	case models.PaymentPending:
		add(1, "payment pending", "Send a payment reminder")
	}

	switch c.Status {
	case models.StatusInactive:
		add(2, "client inactive", "Reach out to re-engage the client")
	case models.StatusOnHold:
		add(2, "engagement on hold", "Agree on a restart date")
	case models.StatusPending:
		add(1, "onboarding pending", "Complete onboarding")
	}

	if c.QAStatus == models.QAFailed {
		add(2, "QA failed", "Fix the failing QA checks")
	}
	if c.QAScore > 0 && c.QAScore < 5 {
		add(1, fmt.Sprintf("low QA score (%d/10)", c.QAScore), "Plan a quality improvement sprint")
	}
	if c.PerformanceScore > 0 && c.PerformanceScore < 50 {
		add(1, fmt.Sprintf("low performance score (%d/100)", c.PerformanceScore), "Run a performance audit")
	}

	switch c.SSLStatus {
	case models.SSLExpired:
		add(2, "SSL certificate expired", "Renew the SSL certificate")
	case models.SSLPending:
		add(1, "SSL certificate pending", "Finish SSL provisioning")
	}

	// Only a real contract window counts; a create with no dates has start == end.
	if c.ContractEndDate.After(c.ContractStartDate) {
		now := h.now()
		switch {
		case c.ContractEndDate.Before(now):
			add(2, "contract expired", "Negotiate a contract renewal")
		case c.ContractEndDate.Sub(now) <= contractWarning:
			add(1, "contract ends within 30 days", "Start the renewal conversation")
		}
	}

	return out
}

func priorityFor(risk int) string {
	switch {
	case risk >= 6:
		return models.PriorityCritical
	case risk >= 4:
		return models.PriorityHigh
	case risk >= 2:
		return models.PriorityMedium
	}
	return models.PriorityLow
}

func sentimentFor(c *models.Client, risk int) string {
	switch {
	case risk >= 4:
		return models.SentimentNegative
	case risk == 0 && c.Status == models.StatusActive:
		return models.SentimentPositive
	}
	return models.SentimentNeutral
}

func assessment(risk int, reasons []string) string {
	if len(reasons) == 0 {
		return "Low risk: no issues detected"
	}
	level := "Low"
	switch {
	case risk >= 6:
		level = "Critical"
	case risk >= 4:
		level = "High"
	case risk >= 2:
		level = "Medium"
	}
	return fmt.Sprintf("%s risk: %s", level, strings.Join(reasons, ", "))
}

func growthFor(tier string, risk int) float64 {
	base := 5.0
	switch tier {
	case models.TierStandard:
		base = 8
	case models.TierPremium:
		base = 12
	case models.TierEnterprise:
		base = 15
	}
	g := base - 3*float64(risk)
	if g < -50 {
		g = -50
	}
	if g > 100 {
		g = 100
	}
	return g
}

// GenerateInsights summarizes revenue, service mix, at-risk clients and
// upsell candidates.
func (h *Heuristic) GenerateInsights(ctx context.Context, clients []models.Client) (models.Insights, error) {
	if err := ctx.Err(); err != nil {
		return models.Insights{}, err
	}

	revenue := 0.0
	active := 0
	byService := make(map[string]int)
	var risks, opportunities []string

	for i := range clients {
		c := &clients[i]
		revenue += c.MonthlyRetainer
		if c.Status == models.StatusActive {
			active++
		}
		if c.ServiceType != "" {
			byService[c.ServiceType]++
		}

		var reasons []string
		for _, f := range h.riskFactors(c) {
			if f.weight >= 2 {
				reasons = append(reasons, f.reason)
			}
		}
		if len(reasons) > 0 {
			risks = append(risks, fmt.Sprintf("%s: %s", c.Name, strings.Join(reasons, ", ")))
		}

		if c.Status == models.StatusActive && c.PaymentStatus == models.PaymentPaid &&
			(c.ServiceTier == models.TierBasic || c.ServiceTier == models.TierStandard) {
			opportunities = append(opportunities, fmt.Sprintf("%s: upgrade from %s tier", c.Name, c.ServiceTier))
		}
	}

	var highlights []string
	if top, n := topService(byService); n > 0 {
		highlights = append(highlights, fmt.Sprintf("Most common service: %s (%d clients)", top, n))
	}
	if len(clients) > 0 {
		highlights = append(highlights, fmt.Sprintf("Average retainer: $%.2f", revenue/float64(len(clients))))
	}

	return models.Insights{
		Summary:       fmt.Sprintf("%d clients, %d active, $%.2f monthly revenue", len(clients), active, revenue),
		Highlights:    highlights,
		Risks:         risks,
		Opportunities: opportunities,
		GeneratedAt:   h.now(),
	}, nil
}

// topService picks the most common service, breaking ties by name.
func topService(counts map[string]int) (string, int) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	best, bestN := "", 0
	for _, name := range names {
		if counts[name] > bestN {
			best, bestN = name, counts[name]
		}
	}
	return best, bestN
}
