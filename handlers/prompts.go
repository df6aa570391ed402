// ABOUTME: MCP prompt handlers for reusable account management templates
// ABOUTME: Provides client review, portfolio review and follow-up prompts
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/clients"
	"github.com/harperreed/agencycrm/models"
)

// Prompt names.
const (
	PromptClientReview    = "client-review"
	PromptPortfolioReview = "portfolio-review"
	PromptFollowUps       = "follow-up-suggestions"
)

type PromptHandlers struct {
	svc *clients.Service
}

func NewPromptHandlers(svc *clients.Service) *PromptHandlers {
	return &PromptHandlers{svc: svc}
}

// GetPrompt generates the prompt message based on the template
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case PromptClientReview:
		return h.clientReview(ctx, request.Params.Arguments)
	case PromptPortfolioReview:
		return h.portfolioReview(ctx)
	case PromptFollowUps:
		return h.followUps(ctx)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) clientReview(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	id, ok := args["client_id"]
	if !ok || id == "" {
		return nil, fmt.Errorf("client_id is required")
	}

	c, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("client not found: %s", id)
	}

	var text strings.Builder
	text.WriteString("Please review this agency client account:\n\n")
	text.WriteString(fmt.Sprintf("Name: %s\n", c.Name))
	if c.Company != "" {
		text.WriteString(fmt.Sprintf("Company: %s\n", c.Company))
	}
	text.WriteString(fmt.Sprintf("Status: %s\n", c.Status))
	text.WriteString(fmt.Sprintf("Service: %s", c.ServiceType))
	if c.ServiceTier != "" {
		text.WriteString(fmt.Sprintf(" (%s tier)", c.ServiceTier))
	}
	text.WriteString("\n")
	text.WriteString(fmt.Sprintf("Monthly retainer: $%.2f\n", c.MonthlyRetainer))
	if c.PaymentStatus != "" {
		text.WriteString(fmt.Sprintf("Payment: %s\n", c.PaymentStatus))
	}
	text.WriteString(fmt.Sprintf("QA: %s", c.QAStatus))
	if c.QAScore > 0 {
		text.WriteString(fmt.Sprintf(", score %d/10", c.QAScore))
	}
	text.WriteString("\n")
	if c.ProjectDescription != "" {
		text.WriteString(fmt.Sprintf("\nProject: %s\n", c.ProjectDescription))
	}
	if len(c.ProjectGoals) > 0 {
		text.WriteString(fmt.Sprintf("Goals: %s\n", strings.Join(c.ProjectGoals, ", ")))
	}
	if c.AIAnalysis != nil {
		text.WriteString(fmt.Sprintf("\nLast analysis (%s): %s priority, %s sentiment\n",
			c.AIAnalysis.LastAnalyzed.Format("2006-01-02"), c.AIAnalysis.Priority, c.AIAnalysis.Sentiment))
		text.WriteString(fmt.Sprintf("Risk: %s\n", c.AIAnalysis.RiskAssessment))
	}

	text.WriteString("\nPlease provide:")
	text.WriteString("\n1. A short health summary of the account")
	text.WriteString("\n2. The most urgent next step")
	text.WriteString("\n3. Any upsell or retention opportunity")

	return userPrompt(fmt.Sprintf("Review for client: %s", c.Name), text.String()), nil
}

func (h *PromptHandlers) portfolioReview(ctx context.Context) (*mcp.GetPromptResult, error) {
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	var text strings.Builder
	text.WriteString("Please review the agency's client portfolio:\n\n")
	text.WriteString(fmt.Sprintf("Total clients: %d (%d active)\n", stats.Total, stats.ActiveClients))
	text.WriteString(fmt.Sprintf("Monthly revenue: $%.2f\n", stats.Revenue))
	text.WriteString("\nBy status:\n")
	writeCounts(&text, stats.ByStatus)
	text.WriteString("\nBy service:\n")
	writeCounts(&text, stats.ByService)

	text.WriteString("\nPlease identify concentration risks, churn signals and where to focus next quarter.")

	return userPrompt("Client portfolio review", text.String()), nil
}

func (h *PromptHandlers) followUps(ctx context.Context) (*mcp.GetPromptResult, error) {
	all, err := h.svc.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load clients: %w", err)
	}

	var text strings.Builder
	text.WriteString("These clients may need follow-up:\n\n")
	count := 0
	for _, c := range all {
		var reasons []string
		if c.PaymentStatus == models.PaymentOverdue {
			reasons = append(reasons, "payment overdue")
		}
		if c.QAStatus == models.QAFailed {
			reasons = append(reasons, "QA failed")
		}
		if c.SSLStatus == models.SSLExpired {
			reasons = append(reasons, "SSL expired")
		}
		if c.Status == models.StatusOnHold {
			reasons = append(reasons, "on hold")
		}
		if len(reasons) == 0 {
			continue
		}
		count++
		text.WriteString(fmt.Sprintf("- %s (%s): %s\n", c.Name, c.Email, strings.Join(reasons, ", ")))
	}
	if count == 0 {
		text.WriteString("(no clients currently flagged)\n")
	}

	text.WriteString("\nFor each client, suggest a concrete follow-up message and who should send it.")

	return userPrompt(fmt.Sprintf("Follow-up suggestions for %d clients", count), text.String()), nil
}

func writeCounts(b *strings.Builder, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("  %s: %d\n", k, counts[k]))
	}
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}
