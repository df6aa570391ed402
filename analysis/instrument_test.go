// ABOUTME: Tests for the metrics decorator around analyzers
// ABOUTME: Uses a failing stub to check error results are counted

package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/harperreed/agencycrm/metrics"
	"github.com/harperreed/agencycrm/models"
)

type failingAnalyzer struct{}

func (failingAnalyzer) AnalyzeClient(context.Context, *models.Client) (models.AIAnalysis, error) {
	return models.AIAnalysis{}, errors.New("down")
}

func (failingAnalyzer) GenerateInsights(context.Context, []models.Client) (models.Insights, error) {
	return models.Insights{}, errors.New("down")
}

func TestInstrumentRecordsCalls(t *testing.T) {
	m := metrics.New()
	ok := Instrument(newTestHeuristic(), m)
	bad := Instrument(failingAnalyzer{}, m)

	_, _ = ok.AnalyzeClient(context.Background(), &models.Client{})
	_, _ = bad.AnalyzeClient(context.Background(), &models.Client{})
	_, _ = bad.GenerateInsights(context.Background(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisTotal.WithLabelValues(CallAnalyzeClient, metrics.ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisTotal.WithLabelValues(CallAnalyzeClient, metrics.ResultError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisTotal.WithLabelValues(CallGenerateInsights, metrics.ResultError)))
}

func TestInstrumentNilMetrics(t *testing.T) {
	h := newTestHeuristic()
	assert.Same(t, h, Instrument(h, nil))
}
