// ABOUTME: Tests for client MCP tool, resource and prompt handlers
// ABOUTME: Runs handlers against an in-memory Badger store and the heuristic analyzer
package handlers

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/analysis"
	"github.com/harperreed/agencycrm/clients"
	"github.com/harperreed/agencycrm/docstore"
	"github.com/harperreed/agencycrm/models"
)

func setupTestService(t *testing.T) *clients.Service {
	t.Helper()
	store, err := docstore.OpenBadger(":memory:")
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return clients.NewService(store, analysis.NewHeuristic())
}

func addClient(t *testing.T, h *ClientHandlers, input AddClientInput) string {
	t.Helper()
	_, out, err := h.AddClient(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("AddClient failed: %v", err)
	}
	return out.ID
}

func TestAddAndGetClient(t *testing.T) {
	h := NewClientHandlers(setupTestService(t))

	_, added, err := h.AddClient(context.Background(), nil, AddClientInput{
		Name:            "Acme Corp",
		Email:           "hello@acme.io",
		ServiceType:     models.ServiceShopify,
		MonthlyRetainer: 1500,
		ContractEndDate: "2030-01-01",
	})
	if err != nil {
		t.Fatalf("AddClient failed: %v", err)
	}
	if added.ID == "" {
		t.Fatal("ID was not set")
	}
	if added.Analysis == nil {
		t.Fatal("Expected analysis in result")
	}

	_, got, err := h.GetClient(context.Background(), nil, GetClientInput{ID: added.ID})
	if err != nil {
		t.Fatalf("GetClient failed: %v", err)
	}
	if got.Name != "Acme Corp" {
		t.Errorf("Expected name 'Acme Corp', got %q", got.Name)
	}
	if got.Status != models.StatusActive {
		t.Errorf("Expected default status active, got %q", got.Status)
	}
	if got.QAStatus != models.QAPending {
		t.Errorf("Expected qa_status pending, got %q", got.QAStatus)
	}
	if got.ContractEndDate != "2030-01-01T00:00:00Z" {
		t.Errorf("Unexpected contract_end_date %q", got.ContractEndDate)
	}
	if got.AIAnalysis == nil || got.AIAnalysis.Priority == "" {
		t.Error("Stored analysis missing")
	}
}

func TestClientLogoRoundTrip(t *testing.T) {
	h := NewClientHandlers(setupTestService(t))
	id := addClient(t, h, AddClientInput{Name: "Acme Corp", Email: "a@acme.io", Logo: "https://acme.io/logo.png"})

	_, got, err := h.GetClient(context.Background(), nil, GetClientInput{ID: id})
	if err != nil {
		t.Fatalf("GetClient failed: %v", err)
	}
	if got.Logo != "https://acme.io/logo.png" {
		t.Errorf("Expected logo from add, got %q", got.Logo)
	}

	logo := "https://acme.io/new.png"
	_, out, err := h.UpdateClient(context.Background(), nil, UpdateClientInput{ID: id, Logo: &logo})
	if err != nil {
		t.Fatalf("UpdateClient failed: %v", err)
	}
	if out.Logo != logo {
		t.Errorf("Expected updated logo, got %q", out.Logo)
	}
}

func TestAddClientValidation(t *testing.T) {
	h := NewClientHandlers(setupTestService(t))

	if _, _, err := h.AddClient(context.Background(), nil, AddClientInput{Email: "a@b.io"}); err == nil {
		t.Error("Expected error for missing name")
	}
	if _, _, err := h.AddClient(context.Background(), nil, AddClientInput{Name: "A"}); err == nil {
		t.Error("Expected error for missing email")
	}
	_, _, err := h.AddClient(context.Background(), nil, AddClientInput{Name: "A", Email: "a@b.io", ServiceType: "cobol"})
	if err == nil || !strings.Contains(err.Error(), "invalid client") {
		t.Errorf("Expected validation error, got %v", err)
	}
}

func TestGetClientNotFound(t *testing.T) {
	h := NewClientHandlers(setupTestService(t))

	_, _, err := h.GetClient(context.Background(), nil, GetClientInput{ID: "missing"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
	if _, _, err := h.GetClient(context.Background(), nil, GetClientInput{}); err == nil {
		t.Error("Expected error for empty id")
	}
}

func TestFindClients(t *testing.T) {
	h := NewClientHandlers(setupTestService(t))
	addClient(t, h, AddClientInput{Name: "Acme Corp", Email: "a@acme.io", ServiceType: models.ServiceReact})
	addClient(t, h, AddClientInput{Name: "Acme Labs", Email: "l@acme.io", ServiceType: models.ServicePython})
	addClient(t, h, AddClientInput{Name: "Globex", Email: "g@globex.io", ServiceType: models.ServiceReact})

	_, out, err := h.FindClients(context.Background(), nil, FindClientsInput{Search: "Acme", Status: models.FilterAll})
	if err != nil {
		t.Fatalf("FindClients failed: %v", err)
	}
	if out.Total != 2 || len(out.Clients) != 2 {
		t.Fatalf("Expected 2 clients, got total=%d len=%d", out.Total, len(out.Clients))
	}
	if out.Clients[0].Name != "Acme Corp" || out.Clients[1].Name != "Acme Labs" {
		t.Errorf("Unexpected order: %s, %s", out.Clients[0].Name, out.Clients[1].Name)
	}
	if out.Page != 1 || out.Limit != 10 {
		t.Errorf("Expected default paging 1/10, got %d/%d", out.Page, out.Limit)
	}

	_, out, err = h.FindClients(context.Background(), nil, FindClientsInput{ServiceType: models.ServiceReact, Limit: 1, Page: 2})
	if err != nil {
		t.Fatalf("FindClients failed: %v", err)
	}
	if out.Total != 2 || len(out.Clients) != 1 || out.Clients[0].Name != "Globex" {
		t.Errorf("Unexpected second page: %+v", out)
	}
}

func TestUpdateClient(t *testing.T) {
	h := NewClientHandlers(setupTestService(t))
	id := addClient(t, h, AddClientInput{Name: "Acme Corp", Email: "a@acme.io"})

	status := models.StatusOnHold
	score := 7
	goals := []string{"migrate", "launch"}
	_, out, err := h.UpdateClient(context.Background(), nil, UpdateClientInput{
		ID:            id,
		Status:        &status,
		QAScore:       &score,
		ProjectGoals:  &goals,
		MarkContacted: true,
	})
	if err != nil {
		t.Fatalf("UpdateClient failed: %v", err)
	}
	if out.Status != models.StatusOnHold || out.QAScore != 7 {
		t.Errorf("Update not applied: status=%s qa=%d", out.Status, out.QAScore)
	}
	if len(out.ProjectGoals) != 2 {
		t.Errorf("Expected 2 goals, got %v", out.ProjectGoals)
	}
	if out.Name != "Acme Corp" {
		t.Errorf("Name should be untouched, got %q", out.Name)
	}

	_, _, err = h.UpdateClient(context.Background(), nil, UpdateClientInput{ID: "missing", Status: &status})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}

	bad := 42
	if _, _, err := h.UpdateClient(context.Background(), nil, UpdateClientInput{ID: id, QAScore: &bad}); err == nil {
		t.Error("Expected validation error for qa_score 42")
	}
}

func TestDeleteClient(t *testing.T) {
	h := NewClientHandlers(setupTestService(t))
	id := addClient(t, h, AddClientInput{Name: "Acme Corp", Email: "a@acme.io"})

	_, out, err := h.DeleteClient(context.Background(), nil, DeleteClientInput{ID: id})
	if err != nil {
		t.Fatalf("DeleteClient failed: %v", err)
	}
	if !out.Deleted {
		t.Error("Expected deleted=true")
	}
	if _, _, err := h.GetClient(context.Background(), nil, GetClientInput{ID: id}); err == nil {
		t.Error("Client should be gone")
	}
}

func TestAnalyzeClient(t *testing.T) {
	h := NewClientHandlers(setupTestService(t))
	id := addClient(t, h, AddClientInput{Name: "Late Payer", Email: "ap@late.io", PaymentStatus: models.PaymentOverdue})

	_, out, err := h.AnalyzeClient(context.Background(), nil, AnalyzeClientInput{ID: id})
	if err != nil {
		t.Fatalf("AnalyzeClient failed: %v", err)
	}
	if out.Priority != models.PriorityMedium {
		t.Errorf("Expected medium priority, got %q", out.Priority)
	}
	if out.Recommendations == nil {
		t.Error("Recommendations should never be null")
	}

	_, _, err = h.AnalyzeClient(context.Background(), nil, AnalyzeClientInput{ID: "missing"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestClientStatsAndBulkStatus(t *testing.T) {
	h := NewClientHandlers(setupTestService(t))
	a := addClient(t, h, AddClientInput{Name: "A", Email: "a@x.io", MonthlyRetainer: 100})
	b := addClient(t, h, AddClientInput{Name: "B", Email: "b@x.io", MonthlyRetainer: 200})
	addClient(t, h, AddClientInput{Name: "C", Email: "c@x.io", MonthlyRetainer: 300})

	_, bulk, err := h.BulkUpdateStatus(context.Background(), nil, BulkUpdateStatusInput{IDs: []string{a, b, a}, Status: models.StatusInactive})
	if err != nil {
		t.Fatalf("BulkUpdateStatus failed: %v", err)
	}
	if bulk.Updated != 2 {
		t.Errorf("Expected 2 updated, got %d", bulk.Updated)
	}

	_, stats, err := h.ClientStats(context.Background(), nil, ClientStatsInput{})
	if err != nil {
		t.Fatalf("ClientStats failed: %v", err)
	}
	if stats.Total != 3 || stats.ActiveClients != 1 || stats.Revenue != 600 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.ByStatus["inactive"] != 2 || stats.ByStatus["active"] != 1 {
		t.Errorf("Unexpected by_status: %v", stats.ByStatus)
	}

	if _, _, err := h.BulkUpdateStatus(context.Background(), nil, BulkUpdateStatusInput{IDs: []string{a}, Status: "archived"}); err == nil {
		t.Error("Expected error for invalid status")
	}
	if _, _, err := h.BulkUpdateStatus(context.Background(), nil, BulkUpdateStatusInput{IDs: []string{a, "missing"}, Status: models.StatusActive}); err == nil {
		t.Error("Expected error for missing id")
	}
}

func TestClientInsights(t *testing.T) {
	h := NewClientHandlers(setupTestService(t))
	addClient(t, h, AddClientInput{Name: "A", Email: "a@x.io", MonthlyRetainer: 100, PaymentStatus: models.PaymentPaid, ServiceTier: models.TierBasic})

	_, out, err := h.ClientInsights(context.Background(), nil, ClientInsightsInput{})
	if err != nil {
		t.Fatalf("ClientInsights failed: %v", err)
	}
	if out.Summary != "1 clients, 1 active, $100.00 monthly revenue" {
		t.Errorf("Unexpected summary %q", out.Summary)
	}
	if out.Risks == nil || len(out.Opportunities) != 1 {
		t.Errorf("Unexpected insights: %+v", out)
	}
}

func TestGenerateGraphTool(t *testing.T) {
	svc := setupTestService(t)
	h := NewClientHandlers(svc)
	addClient(t, h, AddClientInput{Name: "A", Email: "a@x.io", ServiceType: models.ServiceReact})
	addClient(t, h, AddClientInput{Name: "B", Email: "b@x.io", ServiceType: models.ServicePython})

	v := NewVizHandlers(svc)
	_, out, err := v.GenerateGraph(context.Background(), nil, GenerateGraphInput{})
	if err != nil {
		t.Fatalf("GenerateGraph failed: %v", err)
	}
	if out.EdgeCount != 2 {
		t.Errorf("Expected 2 edges, got %d", out.EdgeCount)
	}

	_, out, err = v.GenerateGraph(context.Background(), nil, GenerateGraphInput{ServiceType: models.ServicePython})
	if err != nil {
		t.Fatalf("GenerateGraph failed: %v", err)
	}
	if out.EdgeCount != 1 || strings.Contains(out.DOTSource, "service_react") {
		t.Errorf("Filter not applied: %d edges", out.EdgeCount)
	}

	_, dash, err := v.Dashboard(context.Background(), nil, DashboardInput{})
	if err != nil {
		t.Fatalf("Dashboard failed: %v", err)
	}
	if !strings.Contains(dash.Text, "2 clients") {
		t.Errorf("Dashboard missing totals: %s", dash.Text)
	}
}

func TestReadResources(t *testing.T) {
	svc := setupTestService(t)
	id := addClient(t, NewClientHandlers(svc), AddClientInput{Name: "Acme Corp", Email: "a@acme.io"})
	r := NewResourceHandlers(svc)

	read := func(uri string) (*mcp.ReadResourceResult, error) {
		return r.ReadResource(context.Background(), &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}})
	}

	res, err := read(ClientsURI)
	if err != nil {
		t.Fatalf("ReadResource clients failed: %v", err)
	}
	var list []ClientOutput
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &list); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(list) != 1 || list[0].ID != id {
		t.Errorf("Unexpected clients resource: %+v", list)
	}

	res, err = read(resourceScheme + "clients/" + id)
	if err != nil {
		t.Fatalf("ReadResource client failed: %v", err)
	}
	if !strings.Contains(res.Contents[0].Text, "Acme Corp") {
		t.Errorf("Client resource missing name: %s", res.Contents[0].Text)
	}

	res, err = read(StatsURI)
	if err != nil {
		t.Fatalf("ReadResource stats failed: %v", err)
	}
	var stats models.ClientStats
	if err := json.Unmarshal([]byte(res.Contents[0].Text), &stats); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("Expected total 1, got %d", stats.Total)
	}

	if _, err := read(resourceScheme + "clients/missing"); err == nil {
		t.Error("Expected error for missing client")
	}
	if _, err := read("crm://contacts"); err == nil {
		t.Error("Expected error for foreign scheme")
	}
	if _, err := read(resourceScheme + "deals"); err == nil {
		t.Error("Expected error for unknown resource")
	}
}

func TestGetPrompts(t *testing.T) {
	svc := setupTestService(t)
	id := addClient(t, NewClientHandlers(svc), AddClientInput{
		Name: "Acme Corp", Email: "a@acme.io", PaymentStatus: models.PaymentOverdue, ProjectGoals: []string{"launch"},
	})
	p := NewPromptHandlers(svc)

	get := func(name string, args map[string]string) (*mcp.GetPromptResult, error) {
		return p.GetPrompt(context.Background(), &mcp.GetPromptRequest{Params: &mcp.GetPromptParams{Name: name, Arguments: args}})
	}
	text := func(res *mcp.GetPromptResult) string {
		return res.Messages[0].Content.(*mcp.TextContent).Text
	}

	res, err := get(PromptClientReview, map[string]string{"client_id": id})
	if err != nil {
		t.Fatalf("client-review failed: %v", err)
	}
	if !strings.Contains(text(res), "Name: Acme Corp") || !strings.Contains(text(res), "Goals: launch") {
		t.Errorf("Unexpected prompt: %s", text(res))
	}

	if _, err := get(PromptClientReview, nil); err == nil {
		t.Error("Expected error without client_id")
	}

	res, err = get(PromptPortfolioReview, nil)
	if err != nil {
		t.Fatalf("portfolio-review failed: %v", err)
	}
	if !strings.Contains(text(res), "Total clients: 1 (1 active)") {
		t.Errorf("Unexpected prompt: %s", text(res))
	}

	res, err = get(PromptFollowUps, nil)
	if err != nil {
		t.Fatalf("follow-up-suggestions failed: %v", err)
	}
	if !strings.Contains(text(res), "Acme Corp (a@acme.io): payment overdue") {
		t.Errorf("Unexpected prompt: %s", text(res))
	}

	if _, err := get("nope", nil); err == nil {
		t.Error("Expected error for unknown prompt")
	}
}

func TestServerListsTools(t *testing.T) {
	ctx := context.Background()
	server := NewServer(setupTestService(t), "test")

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("Server connect failed: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Client connect failed: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)

	want := []string{
		"add_client", "analyze_client", "bulk_update_status", "client_dashboard", "client_insights",
		"client_stats", "delete_client", "find_clients", "generate_portfolio_graph", "get_client", "update_client",
	}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("Unexpected tools:\n got %v\nwant %v", names, want)
	}

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "client_stats", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if result.IsError {
		t.Errorf("client_stats returned a tool error: %+v", result.Content)
	}
}
