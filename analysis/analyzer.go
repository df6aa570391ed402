// ABOUTME: Analysis boundary used by the client service
// ABOUTME: Analyzers score single clients and summarize the whole client base
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/agencycrm/models"
)

var (
	ErrInvalidAnalysis = errors.New("invalid analysis response")
	ErrNotConfigured   = errors.New("analysis endpoint not configured")
)

// Analyzer produces structured analysis for client records.
type Analyzer interface {
	// AnalyzeClient returns sentiment, priority, recommendations, a risk
	// assessment and predicted growth for one client. LastAnalyzed is left
	// for the caller to stamp.
	AnalyzeClient(ctx context.Context, client *models.Client) (models.AIAnalysis, error)
	// GenerateInsights summarizes a set of clients.
	GenerateInsights(ctx context.Context, clients []models.Client) (models.Insights, error)
}

// APIError is a non-2xx answer from the inference endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("analysis request failed: %d %s", e.StatusCode, e.Body)
}
