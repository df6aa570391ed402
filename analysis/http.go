// ABOUTME: HTTP client for the remote inference endpoint
// ABOUTME: Authenticates with a bearer API key or OAuth2 client credentials

package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/harperreed/agencycrm/models"
)

const (
	analyzePath  = "/analyze-client"
	insightsPath = "/client-insights"

	// maxErrorBody caps how much of a failed response is kept in APIError.
	maxErrorBody = 4096
)

// HTTPConfig configures the inference client.
type HTTPConfig struct {
	Endpoint string
	APIKey   string

	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string

	Timeout time.Duration

	// HTTPClient is the base transport; defaults to http.DefaultClient's.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// HTTPAnalyzer calls the inference endpoint over HTTP.
type HTTPAnalyzer struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *zap.Logger
	now      func() time.Time
}

// NewHTTPAnalyzer validates cfg and builds the authenticated client.
func NewHTTPAnalyzer(cfg HTTPConfig) (*HTTPAnalyzer, error) {
	if cfg.Endpoint == "" {
		return nil, ErrNotConfigured
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	client := base
	if cfg.ClientID != "" {
		if cfg.TokenURL == "" {
			return nil, fmt.Errorf("analysis client credentials need a token URL")
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		// Token requests reuse the base transport.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = cc.Client(ctx)
	} else {
		copied := *base
		client = &copied
	}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HTTPAnalyzer{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}, nil
}

type analysisResponse struct {
	Analysis *struct {
		Sentiment       string   `json:"sentiment"`
		Priority        string   `json:"priority"`
		Recommendations []string `json:"recommendations"`
		RiskAssessment  string   `json:"riskAssessment"`
		PredictedGrowth float64  `json:"predictedGrowth"`
	} `json:"analysis"`
}

type insightsRequest struct {
	Clients []models.Client `json:"clients"`
}

type insightsResponse struct {
	Insights *models.Insights `json:"insights"`
}

// AnalyzeClient posts the client record and validates the analysis returned.
func (a *HTTPAnalyzer) AnalyzeClient(ctx context.Context, client *models.Client) (models.AIAnalysis, error) {
	if client == nil {
		return models.AIAnalysis{}, fmt.Errorf("analyze: nil client")
	}

	var resp analysisResponse
	if err := a.post(ctx, analyzePath, client, &resp); err != nil {
		return models.AIAnalysis{}, err
	}
	if resp.Analysis == nil {
		return models.AIAnalysis{}, fmt.Errorf("%w: missing analysis object", ErrInvalidAnalysis)
	}

	out := models.AIAnalysis{
		Sentiment:       resp.Analysis.Sentiment,
		Priority:        resp.Analysis.Priority,
		Recommendations: resp.Analysis.Recommendations,
		RiskAssessment:  resp.Analysis.RiskAssessment,
		PredictedGrowth: resp.Analysis.PredictedGrowth,
	}
	if out.Recommendations == nil {
		out.Recommendations = []string{}
	}
	if err := models.ValidateAnalysis(out); err != nil {
		return models.AIAnalysis{}, fmt.Errorf("%w: %v", ErrInvalidAnalysis, err)
	}
	return out, nil
}

// GenerateInsights posts every client and returns the aggregate narrative.
func (a *HTTPAnalyzer) GenerateInsights(ctx context.Context, clients []models.Client) (models.Insights, error) {
	if clients == nil {
		clients = []models.Client{}
	}

	var resp insightsResponse
	if err := a.post(ctx, insightsPath, insightsRequest{Clients: clients}, &resp); err != nil {
		return models.Insights{}, err
	}
	if resp.Insights == nil {
		return models.Insights{}, fmt.Errorf("%w: missing insights object", ErrInvalidAnalysis)
	}

	out := *resp.Insights
	if out.GeneratedAt.IsZero() {
		out.GeneratedAt = a.now()
	}
	return out, nil
}

func (a *HTTPAnalyzer) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create POST request: %w", err)
	}
	requestID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	log := a.logger.With(zap.String("path", path), zap.String("request_id", requestID))

	resp, err := a.client.Do(req)
	if err != nil {
		log.Error("Analysis request failed", zap.Error(err))
		return fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		log.Error("Analysis request returned error status",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(data)))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAnalysis, err)
	}

	log.Debug("Analysis request completed", zap.Int("status", resp.StatusCode))
	return nil
}
