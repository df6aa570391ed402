// ABOUTME: Tests for client, viz and setup CLI commands
// ABOUTME: Runs commands against a temporary sqlite store and captures stdout
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/harperreed/agencycrm/analysis"
	"github.com/harperreed/agencycrm/clients"
	"github.com/harperreed/agencycrm/config"
	"github.com/harperreed/agencycrm/logger"
	"github.com/harperreed/agencycrm/models"
)

func setupTestCLI(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "test.db")
	cfg.Log.Level = "error"

	app, err := OpenApp(cfg)
	if err != nil {
		t.Fatalf("OpenApp failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Close() })

	buf := &bytes.Buffer{}
	old := stdout
	stdout = buf
	t.Cleanup(func() { stdout = old })
	return app, buf
}

func addTestClient(t *testing.T, svc *clients.Service, name string, extra ...string) string {
	t.Helper()
	args := append([]string{"--name", name, "--email", strings.ToLower(name) + "@example.com"}, extra...)
	if err := AddClientCommand(context.Background(), svc, args); err != nil {
		t.Fatalf("AddClientCommand failed: %v", err)
	}
	res, err := svc.List(context.Background(), clientsFilter(name))
	if err != nil || len(res.Clients) == 0 {
		t.Fatalf("client %s not stored: %v", name, err)
	}
	return res.Clients[0].ID
}

func TestAddAndListClients(t *testing.T) {
	app, out := setupTestCLI(t)
	ctx := context.Background()

	addTestClient(t, app.Service, "Acme", "--service", "shopify", "--retainer", "1500", "--goals", "seo, speed")
	addTestClient(t, app.Service, "Globex")

	if !strings.Contains(out.String(), "Client created: Acme") {
		t.Errorf("expected create confirmation, got %q", out.String())
	}

	out.Reset()
	if err := ListClientsCommand(ctx, app.Service, []string{"--service", "shopify"}); err != nil {
		t.Fatalf("ListClientsCommand failed: %v", err)
	}
	listed := out.String()
	if !strings.Contains(listed, "Acme") || strings.Contains(listed, "Globex") {
		t.Errorf("unexpected list output: %q", listed)
	}
	if !strings.Contains(listed, "$1500.00") {
		t.Errorf("expected retainer in list, got %q", listed)
	}
	if strings.Contains(listed, "\x1b[") {
		t.Error("styles should not be applied when stdout is not a terminal")
	}
}

func TestListClientsJSON(t *testing.T) {
	app, out := setupTestCLI(t)
	addTestClient(t, app.Service, "Acme")
	out.Reset()

	if err := ListClientsCommand(context.Background(), app.Service, []string{"--json"}); err != nil {
		t.Fatalf("ListClientsCommand failed: %v", err)
	}
	var res clients.ListResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if res.Total != 1 || res.Clients[0].Name != "Acme" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestAddClientRequiresName(t *testing.T) {
	app, _ := setupTestCLI(t)
	if err := AddClientCommand(context.Background(), app.Service, []string{"--email", "a@b.co"}); err == nil {
		t.Error("expected error without --name")
	}
	if err := AddClientCommand(context.Background(), app.Service, []string{"--name", "A", "--email", "nope"}); err == nil {
		t.Error("expected validation error for bad email")
	}
}

func TestUpdateOnlyGivenFlags(t *testing.T) {
	app, out := setupTestCLI(t)
	ctx := context.Background()
	id := addTestClient(t, app.Service, "Acme", "--phone", "555-0100")

	if err := UpdateClientCommand(ctx, app.Service, []string{"--status", "on-hold", "--qa-score", "0", id}); err != nil {
		t.Fatalf("UpdateClientCommand failed: %v", err)
	}
	c, err := app.Service.Get(ctx, id)
	if err != nil || c == nil {
		t.Fatalf("Get failed: %v", err)
	}
	if c.Status != "on-hold" {
		t.Errorf("status = %q, want on-hold", c.Status)
	}
	if c.Phone != "555-0100" {
		t.Errorf("phone changed to %q", c.Phone)
	}

	out.Reset()
	if err := GetClientCommand(ctx, app.Service, []string{id}); err != nil {
		t.Fatalf("GetClientCommand failed: %v", err)
	}
	if !strings.Contains(out.String(), "on-hold") {
		t.Errorf("expected status in output, got %q", out.String())
	}

	if err := UpdateClientCommand(ctx, app.Service, []string{"--status", "active", "missing"}); err == nil {
		t.Error("expected error for missing client")
	}
	if err := UpdateClientCommand(ctx, app.Service, []string{"--status", "archived", id}); err == nil {
		t.Error("expected validation error for unknown status")
	}
}

func TestDeleteAndGetMissing(t *testing.T) {
	app, _ := setupTestCLI(t)
	ctx := context.Background()
	id := addTestClient(t, app.Service, "Acme")

	if err := DeleteClientCommand(ctx, app.Service, []string{id}); err != nil {
		t.Fatalf("DeleteClientCommand failed: %v", err)
	}
	if err := GetClientCommand(ctx, app.Service, []string{id}); err == nil {
		t.Error("expected not found after delete")
	}
	if err := DeleteClientCommand(ctx, app.Service, nil); err == nil {
		t.Error("expected error without ID")
	}
}

func TestAnalyzeStatsAndBulkStatus(t *testing.T) {
	app, out := setupTestCLI(t)
	ctx := context.Background()
	a := addTestClient(t, app.Service, "Acme", "--retainer", "500")
	b := addTestClient(t, app.Service, "Globex", "--retainer", "200")

	out.Reset()
	if err := AnalyzeClientCommand(ctx, app.Service, []string{a}); err != nil {
		t.Fatalf("AnalyzeClientCommand failed: %v", err)
	}
	if !strings.Contains(out.String(), "priority") {
		t.Errorf("expected analysis output, got %q", out.String())
	}

	if err := BulkStatusCommand(ctx, app.Service, []string{"--status", "inactive", a, b}); err != nil {
		t.Fatalf("BulkStatusCommand failed: %v", err)
	}
	if err := BulkStatusCommand(ctx, app.Service, []string{a}); err == nil {
		t.Error("expected error without --status")
	}

	out.Reset()
	if err := StatsCommand(ctx, app.Service, []string{"--json"}); err != nil {
		t.Fatalf("StatsCommand failed: %v", err)
	}
	var stats struct {
		Total         int            `json:"total"`
		ActiveClients int            `json:"activeClients"`
		ByStatus      map[string]int `json:"byStatus"`
	}
	if err := json.Unmarshal(out.Bytes(), &stats); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if stats.Total != 2 || stats.ActiveClients != 0 || stats.ByStatus["inactive"] != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	out.Reset()
	if err := InsightsCommand(ctx, app.Service, nil); err != nil {
		t.Fatalf("InsightsCommand failed: %v", err)
	}
	if !strings.Contains(out.String(), "INSIGHTS") {
		t.Errorf("expected insights heading, got %q", out.String())
	}
}

func TestVizCommands(t *testing.T) {
	app, out := setupTestCLI(t)
	ctx := context.Background()
	addTestClient(t, app.Service, "Acme", "--service", "shopify", "--payment", "overdue")

	out.Reset()
	if err := VizDashboardCommand(ctx, app.Service, nil); err != nil {
		t.Fatalf("VizDashboardCommand failed: %v", err)
	}
	if !strings.Contains(out.String(), "payment overdue") {
		t.Errorf("expected attention item, got %q", out.String())
	}

	path := filepath.Join(t.TempDir(), "graph.dot")
	if err := VizGraphCommand(ctx, app.Service, []string{"--output", path}); err != nil {
		t.Fatalf("VizGraphCommand failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("graph not written: %v", err)
	}
	if !strings.Contains(string(data), "digraph") {
		t.Errorf("expected DOT output, got %q", string(data))
	}
}

func TestNewAnalyzerSelection(t *testing.T) {
	log := mustLogger(t)

	a, err := NewAnalyzer(config.AnalysisConfig{}, log)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	if _, ok := a.(*analysis.Heuristic); !ok {
		t.Errorf("expected heuristic analyzer, got %T", a)
	}

	a, err = NewAnalyzer(config.AnalysisConfig{Endpoint: "http://localhost:8080", APIKey: "k"}, log)
	if err != nil {
		t.Fatalf("NewAnalyzer failed: %v", err)
	}
	if _, ok := a.(*analysis.HTTPAnalyzer); !ok {
		t.Errorf("expected HTTP analyzer, got %T", a)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" seo, ,speed ,")
	if len(got) != 2 || got[0] != "seo" || got[1] != "speed" {
		t.Errorf("splitList = %v", got)
	}
	if splitList("  ") != nil {
		t.Error("expected nil for blank input")
	}
}

func clientsFilter(name string) models.ClientsFilter {
	return models.ClientsFilter{Search: name}
}

func mustLogger(t *testing.T) *zap.Logger {
	t.Helper()
	log, err := logger.New("error", config.DefaultLogFormat)
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}
	return log
}
