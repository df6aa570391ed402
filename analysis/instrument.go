// ABOUTME: Analyzer decorator that records call counts and latency
// ABOUTME: Wraps any Analyzer with the Prometheus analysis collectors

package analysis

import (
	"context"
	"time"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
)

const (
	CallAnalyzeClient    = "analyze_client"
	CallGenerateInsights = "generate_insights"
)

type instrumented struct {
	next    Analyzer
	metrics *metrics.Metrics
}

// Instrument wraps a with metrics collection. A nil m returns a unchanged.
func Instrument(a Analyzer, m *metrics.Metrics) Analyzer {
	if m == nil {
		return a
	}
	return &instrumented{next: a, metrics: m}
}

func (i *instrumented) AnalyzeClient(ctx context.Context, client *models.Client) (models.AIAnalysis, error) {
	start := time.Now()
	out, err := i.next.AnalyzeClient(ctx, client)
	i.metrics.ObserveAnalysis(CallAnalyzeClient, start, err)
	return out, err
}

func (i *instrumented) GenerateInsights(ctx context.Context, clients []models.Client) (models.Insights, error) {
	start := time.Now()
	out, err := i.next.GenerateInsights(ctx, clients)
	i.metrics.ObserveAnalysis(CallGenerateInsights, start, err)
	return out, err
}
