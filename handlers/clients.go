// ABOUTME: Client MCP tool handlers
// ABOUTME: Implements add, get, find, update, delete, analyze, stats, bulk status and insights tools
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/clients"
	"github.com/harperreed/agencycrm/models"
)

type ClientHandlers struct {
	svc *clients.Service
}

func NewClientHandlers(svc *clients.Service) *ClientHandlers {
	return &ClientHandlers{svc: svc}
}

type AnalysisOutput struct {
	Sentiment       string   `json:"sentiment"`
	Priority        string   `json:"priority"`
	Recommendations []string `json:"recommendations"`
	RiskAssessment  string   `json:"risk_assessment"`
	PredictedGrowth float64  `json:"predicted_growth"`
	LastAnalyzed    string   `json:"last_analyzed"`
}

type ClientOutput struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Email              string          `json:"email"`
	Phone              string          `json:"phone,omitempty"`
	Company            string          `json:"company,omitempty"`
	Website            string          `json:"website,omitempty"`
	Status             string          `json:"status"`
	ServiceType        string          `json:"service_type"`
	ServiceTier        string          `json:"service_tier,omitempty"`
	Logo               string          `json:"logo,omitempty"`
	BrandColor         string          `json:"brand_color,omitempty"`
	Industry           string          `json:"industry,omitempty"`
	ProjectDescription string          `json:"project_description,omitempty"`
	ProjectGoals       []string        `json:"project_goals,omitempty"`
	Technologies       []string        `json:"technologies,omitempty"`
	LastQACheck        string          `json:"last_qa_check"`
	QAStatus           string          `json:"qa_status"`
	QAScore            int             `json:"qa_score"`
	PerformanceScore   int             `json:"performance_score"`
	AIAnalysis         *AnalysisOutput `json:"ai_analysis,omitempty"`
	MonthlyRetainer    float64         `json:"monthly_retainer"`
	PaymentStatus      string          `json:"payment_status,omitempty"`
	ContractStartDate  string          `json:"contract_start_date"`
	ContractEndDate    string          `json:"contract_end_date"`
	Hosting            string          `json:"hosting,omitempty"`
	SSLStatus          string          `json:"ssl_status,omitempty"`
	BackupFrequency    string          `json:"backup_frequency,omitempty"`
	CreatedAt          string          `json:"created_at"`
	UpdatedAt          string          `json:"updated_at"`
	LastContact        string          `json:"last_contact"`
}

type AddClientInput struct {
	Name               string   `json:"name" jsonschema:"Client contact name (required)"`
	Email              string   `json:"email" jsonschema:"Client email address (required)"`
	Phone              string   `json:"phone,omitempty" jsonschema:"Phone number"`
	Company            string   `json:"company,omitempty" jsonschema:"Company name"`
	Website            string   `json:"website,omitempty" jsonschema:"Website URL"`
	Status             string   `json:"status,omitempty" jsonschema:"active, inactive, pending or on-hold (default active)"`
	ServiceType        string   `json:"service_type,omitempty" jsonschema:"wordpress, shopify, mern, java, python, react, nextjs, nodejs, mobile or ecommerce (default react)"`
	ServiceTier        string   `json:"service_tier,omitempty" jsonschema:"basic, standard, premium or enterprise"`
	Logo               string   `json:"logo,omitempty" jsonschema:"Logo URL"`
	BrandColor         string   `json:"brand_color,omitempty" jsonschema:"Brand colour (default #3B82F6)"`
	Industry           string   `json:"industry,omitempty" jsonschema:"Industry"`
	ProjectDescription string   `json:"project_description,omitempty" jsonschema:"Project description"`
	ProjectGoals       []string `json:"project_goals,omitempty" jsonschema:"Project goals"`
	Technologies       []string `json:"technologies,omitempty" jsonschema:"Technologies in use"`
	MonthlyRetainer    float64  `json:"monthly_retainer,omitempty" jsonschema:"Monthly retainer amount"`
	PaymentStatus      string   `json:"payment_status,omitempty" jsonschema:"paid, pending, overdue or cancelled"`
	ContractStartDate  string   `json:"contract_start_date,omitempty" jsonschema:"Contract start (YYYY-MM-DD or RFC3339)"`
	ContractEndDate    string   `json:"contract_end_date,omitempty" jsonschema:"Contract end (YYYY-MM-DD or RFC3339)"`
	Hosting            string   `json:"hosting,omitempty" jsonschema:"shared, vps, dedicated or cloud"`
	SSLStatus          string   `json:"ssl_status,omitempty" jsonschema:"active, expired or pending"`
	BackupFrequency    string   `json:"backup_frequency,omitempty" jsonschema:"daily, weekly or monthly"`
}

type AddClientOutput struct {
	ID       string          `json:"id"`
	Analysis *AnalysisOutput `json:"analysis,omitempty"`
}

func (h *ClientHandlers) AddClient(ctx context.Context, _ *mcp.CallToolRequest, input AddClientInput) (*mcp.CallToolResult, AddClientOutput, error) {
	if input.Name == "" {
		return nil, AddClientOutput{}, fmt.Errorf("name is required")
	}
	if input.Email == "" {
		return nil, AddClientOutput{}, fmt.Errorf("email is required")
	}

	res, err := h.svc.Create(ctx, models.ClientFormData{
		Name:               input.Name,
		Email:              input.Email,
		Phone:              input.Phone,
		Company:            input.Company,
		Website:            input.Website,
		Status:             input.Status,
		ServiceType:        input.ServiceType,
		ServiceTier:        input.ServiceTier,
		Logo:               input.Logo,
		BrandColor:         input.BrandColor,
		Industry:           input.Industry,
		ProjectDescription: input.ProjectDescription,
		ProjectGoals:       input.ProjectGoals,
		Technologies:       input.Technologies,
		MonthlyRetainer:    input.MonthlyRetainer,
		PaymentStatus:      input.PaymentStatus,
		ContractStartDate:  input.ContractStartDate,
		ContractEndDate:    input.ContractEndDate,
		Hosting:            input.Hosting,
		SSLStatus:          input.SSLStatus,
		BackupFrequency:    input.BackupFrequency,
	})
	if err != nil {
		return nil, AddClientOutput{}, err
	}

	out := AddClientOutput{ID: res.ID}
	if res.Analysis != nil {
		a := analysisToOutput(*res.Analysis)
		out.Analysis = &a
	}
	return nil, out, nil
}

type GetClientInput struct {
	ID string `json:"id" jsonschema:"Client ID (required)"`
}

func (h *ClientHandlers) GetClient(ctx context.Context, _ *mcp.CallToolRequest, input GetClientInput) (*mcp.CallToolResult, ClientOutput, error) {
	if input.ID == "" {
		return nil, ClientOutput{}, fmt.Errorf("id is required")
	}

	c, err := h.svc.Get(ctx, input.ID)
	if err != nil {
		return nil, ClientOutput{}, err
	}
	if c == nil {
		return nil, ClientOutput{}, fmt.Errorf("client not found: %s", input.ID)
	}
	return nil, clientToOutput(c), nil
}

type FindClientsInput struct {
	Search        string `json:"search,omitempty" jsonschema:"Name prefix to search for (case sensitive)"`
	Status        string `json:"status,omitempty" jsonschema:"Filter by status, or all"`
	ServiceType   string `json:"service_type,omitempty" jsonschema:"Filter by service type, or all"`
	ServiceTier   string `json:"service_tier,omitempty" jsonschema:"Filter by service tier, or all"`
	PaymentStatus string `json:"payment_status,omitempty" jsonschema:"Filter by payment status, or all"`
	Page          int    `json:"page,omitempty" jsonschema:"Page number starting at 1 (default 1)"`
	Limit         int    `json:"limit,omitempty" jsonschema:"Page size (default 10)"`
}

type FindClientsOutput struct {
	Clients []ClientOutput `json:"clients"`
	Total   int            `json:"total"`
	Page    int            `json:"page"`
	Limit   int            `json:"limit"`
}

func (h *ClientHandlers) FindClients(ctx context.Context, _ *mcp.CallToolRequest, input FindClientsInput) (*mcp.CallToolResult, FindClientsOutput, error) {
	page := input.Page
	if page < 1 {
		page = clients.DefaultPage
	}
	limit := input.Limit
	if limit <= 0 {
		limit = clients.DefaultLimit
	}

	res, err := h.svc.List(ctx, models.ClientsFilter{
		Search:        input.Search,
		Status:        input.Status,
		ServiceType:   input.ServiceType,
		ServiceTier:   input.ServiceTier,
		PaymentStatus: input.PaymentStatus,
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		return nil, FindClientsOutput{}, fmt.Errorf("failed to find clients: %w", err)
	}

	out := make([]ClientOutput, len(res.Clients))
	for i := range res.Clients {
		out[i] = clientToOutput(&res.Clients[i])
	}
	return nil, FindClientsOutput{Clients: out, Total: res.Total, Page: page, Limit: limit}, nil
}

type UpdateClientInput struct {
	ID                 string    `json:"id" jsonschema:"Client ID (required)"`
	Name               *string   `json:"name,omitempty" jsonschema:"Updated name"`
	Email              *string   `json:"email,omitempty" jsonschema:"Updated email"`
	Phone              *string   `json:"phone,omitempty" jsonschema:"Updated phone"`
	Company            *string   `json:"company,omitempty" jsonschema:"Updated company"`
	Website            *string   `json:"website,omitempty" jsonschema:"Updated website"`
	Status             *string   `json:"status,omitempty" jsonschema:"Updated status"`
	ServiceType        *string   `json:"service_type,omitempty" jsonschema:"Updated service type"`
	ServiceTier        *string   `json:"service_tier,omitempty" jsonschema:"Updated service tier"`
	Logo               *string   `json:"logo,omitempty" jsonschema:"Updated logo URL"`
	BrandColor         *string   `json:"brand_color,omitempty" jsonschema:"Updated brand colour"`
	Industry           *string   `json:"industry,omitempty" jsonschema:"Updated industry"`
	ProjectDescription *string   `json:"project_description,omitempty" jsonschema:"Updated project description"`
	ProjectGoals       *[]string `json:"project_goals,omitempty" jsonschema:"Replacement project goals"`
	Technologies       *[]string `json:"technologies,omitempty" jsonschema:"Replacement technologies"`
	QAStatus           *string   `json:"qa_status,omitempty" jsonschema:"passed, failed, pending or in-progress"`
	QAScore            *int      `json:"qa_score,omitempty" jsonschema:"QA score 0-10 (0 means unscored)"`
	PerformanceScore   *int      `json:"performance_score,omitempty" jsonschema:"Performance score 0-100 (0 means unscored)"`
	MonthlyRetainer    *float64  `json:"monthly_retainer,omitempty" jsonschema:"Updated monthly retainer"`
	PaymentStatus      *string   `json:"payment_status,omitempty" jsonschema:"Updated payment status"`
	ContractStartDate  *string   `json:"contract_start_date,omitempty" jsonschema:"Updated contract start"`
	ContractEndDate    *string   `json:"contract_end_date,omitempty" jsonschema:"Updated contract end"`
	Hosting            *string   `json:"hosting,omitempty" jsonschema:"Updated hosting"`
	SSLStatus          *string   `json:"ssl_status,omitempty" jsonschema:"Updated SSL status"`
	BackupFrequency    *string   `json:"backup_frequency,omitempty" jsonschema:"Updated backup frequency"`
	MarkContacted      bool      `json:"mark_contacted,omitempty" jsonschema:"Set last contact to now"`
}

func (h *ClientHandlers) UpdateClient(ctx context.Context, _ *mcp.CallToolRequest, input UpdateClientInput) (*mcp.CallToolResult, ClientOutput, error) {
	if input.ID == "" {
		return nil, ClientOutput{}, fmt.Errorf("id is required")
	}

	u := models.ClientUpdate{
		Name:               input.Name,
		Email:              input.Email,
		Phone:              input.Phone,
		Company:            input.Company,
		Website:            input.Website,
		Status:             input.Status,
		ServiceType:        input.ServiceType,
		ServiceTier:        input.ServiceTier,
		Logo:               input.Logo,
		BrandColor:         input.BrandColor,
		Industry:           input.Industry,
		ProjectDescription: input.ProjectDescription,
		ProjectGoals:       input.ProjectGoals,
		Technologies:       input.Technologies,
		QAStatus:           input.QAStatus,
		QAScore:            input.QAScore,
		PerformanceScore:   input.PerformanceScore,
		MonthlyRetainer:    input.MonthlyRetainer,
		PaymentStatus:      input.PaymentStatus,
		ContractStartDate:  input.ContractStartDate,
		ContractEndDate:    input.ContractEndDate,
		Hosting:            input.Hosting,
		SSLStatus:          input.SSLStatus,
		BackupFrequency:    input.BackupFrequency,
	}
	if input.MarkContacted {
		now := time.Now()
		u.LastContact = &now
	}

	if err := h.svc.Update(ctx, input.ID, u); err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, ClientOutput{}, fmt.Errorf("client not found: %s", input.ID)
		}
		return nil, ClientOutput{}, err
	}

	c, err := h.svc.Get(ctx, input.ID)
	if err != nil {
		return nil, ClientOutput{}, err
	}
	if c == nil {
		return nil, ClientOutput{}, fmt.Errorf("client not found: %s", input.ID)
	}
	return nil, clientToOutput(c), nil
}

type DeleteClientInput struct {
	ID string `json:"id" jsonschema:"Client ID (required)"`
}

type DeleteClientOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (h *ClientHandlers) DeleteClient(ctx context.Context, _ *mcp.CallToolRequest, input DeleteClientInput) (*mcp.CallToolResult, DeleteClientOutput, error) {
	if input.ID == "" {
		return nil, DeleteClientOutput{}, fmt.Errorf("id is required")
	}
	if err := h.svc.Delete(ctx, input.ID); err != nil {
		return nil, DeleteClientOutput{}, err
	}
	return nil, DeleteClientOutput{ID: input.ID, Deleted: true}, nil
}

type AnalyzeClientInput struct {
	ID string `json:"id" jsonschema:"Client ID (required)"`
}

func (h *ClientHandlers) AnalyzeClient(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeClientInput) (*mcp.CallToolResult, AnalysisOutput, error) {
	if input.ID == "" {
		return nil, AnalysisOutput{}, fmt.Errorf("id is required")
	}
	a, err := h.svc.Analyze(ctx, input.ID)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return nil, AnalysisOutput{}, fmt.Errorf("client not found: %s", input.ID)
		}
		return nil, AnalysisOutput{}, err
	}
	return nil, analysisToOutput(a), nil
}

type ClientStatsInput struct{}

type ClientStatsOutput struct {
	Total         int            `json:"total"`
	ActiveClients int            `json:"active_clients"`
	Revenue       float64        `json:"revenue"`
	ByStatus      map[string]int `json:"by_status"`
	ByService     map[string]int `json:"by_service"`
}

func (h *ClientHandlers) ClientStats(ctx context.Context, _ *mcp.CallToolRequest, _ ClientStatsInput) (*mcp.CallToolResult, ClientStatsOutput, error) {
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		return nil, ClientStatsOutput{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	return nil, ClientStatsOutput{
		Total:         stats.Total,
		ActiveClients: stats.ActiveClients,
		Revenue:       stats.Revenue,
		ByStatus:      stats.ByStatus,
		ByService:     stats.ByService,
	}, nil
}

type BulkUpdateStatusInput struct {
	IDs    []string `json:"ids" jsonschema:"Client IDs to update (required)"`
	Status string   `json:"status" jsonschema:"New status for every client (required)"`
}

type BulkUpdateStatusOutput struct {
	Updated int    `json:"updated"`
	Status  string `json:"status"`
}

func (h *ClientHandlers) BulkUpdateStatus(ctx context.Context, _ *mcp.CallToolRequest, input BulkUpdateStatusInput) (*mcp.CallToolResult, BulkUpdateStatusOutput, error) {
	if input.Status == "" {
		return nil, BulkUpdateStatusOutput{}, fmt.Errorf("status is required")
	}
	if err := h.svc.BulkUpdateStatus(ctx, input.IDs, input.Status); err != nil {
		return nil, BulkUpdateStatusOutput{}, err
	}

	seen := make(map[string]bool, len(input.IDs))
	for _, id := range input.IDs {
		seen[id] = true
	}
	return nil, BulkUpdateStatusOutput{Updated: len(seen), Status: input.Status}, nil
}

type ClientInsightsInput struct{}

type ClientInsightsOutput struct {
	Summary       string   `json:"summary"`
	Highlights    []string `json:"highlights"`
	Risks         []string `json:"risks"`
	Opportunities []string `json:"opportunities"`
	GeneratedAt   string   `json:"generated_at"`
}

func (h *ClientHandlers) ClientInsights(ctx context.Context, _ *mcp.CallToolRequest, _ ClientInsightsInput) (*mcp.CallToolResult, ClientInsightsOutput, error) {
	in, err := h.svc.GenerateInsights(ctx)
	if err != nil {
		return nil, ClientInsightsOutput{}, err
	}
	return nil, ClientInsightsOutput{
		Summary:       in.Summary,
		Highlights:    nonNil(in.Highlights),
		Risks:         nonNil(in.Risks),
		Opportunities: nonNil(in.Opportunities),
		GeneratedAt:   formatTime(in.GeneratedAt),
	}, nil
}

func clientToOutput(c *models.Client) ClientOutput {
	out := ClientOutput{
		ID:                 c.ID,
		Name:               c.Name,
		Email:              c.Email,
		Phone:              c.Phone,
		Company:            c.Company,
		Website:            c.Website,
		Status:             c.Status,
		ServiceType:        c.ServiceType,
		ServiceTier:        c.ServiceTier,
		Logo:               c.Logo,
		BrandColor:         c.BrandColor,
		Industry:           c.Industry,
		ProjectDescription: c.ProjectDescription,
		ProjectGoals:       c.ProjectGoals,
		Technologies:       c.Technologies,
		LastQACheck:        formatTime(c.LastQACheck),
		QAStatus:           c.QAStatus,
		QAScore:            c.QAScore,
		PerformanceScore:   c.PerformanceScore,
		MonthlyRetainer:    c.MonthlyRetainer,
		PaymentStatus:      c.PaymentStatus,
		ContractStartDate:  formatTime(c.ContractStartDate),
		ContractEndDate:    formatTime(c.ContractEndDate),
		Hosting:            c.Hosting,
		SSLStatus:          c.SSLStatus,
		BackupFrequency:    c.BackupFrequency,
		CreatedAt:          formatTime(c.CreatedAt),
		UpdatedAt:          formatTime(c.UpdatedAt),
		LastContact:        formatTime(c.LastContact),
	}
	if c.AIAnalysis != nil {
		a := analysisToOutput(*c.AIAnalysis)
		out.AIAnalysis = &a
	}
	return out
}

func analysisToOutput(a models.AIAnalysis) AnalysisOutput {
	return AnalysisOutput{
		Sentiment:       a.Sentiment,
		Priority:        a.Priority,
		Recommendations: nonNil(a.Recommendations),
		RiskAssessment:  a.RiskAssessment,
		PredictedGrowth: a.PredictedGrowth,
		LastAnalyzed:    formatTime(a.LastAnalyzed),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
