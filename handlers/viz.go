// ABOUTME: GraphViz visualization MCP handlers
// ABOUTME: Provides portfolio graph and dashboard tools for agents
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/clients"
	"github.com/harperreed/agencycrm/viz"
)

type VizHandlers struct {
	svc *clients.Service
}

func NewVizHandlers(svc *clients.Service) *VizHandlers {
	return &VizHandlers{svc: svc}
}

type GenerateGraphInput struct {
	ServiceType string `json:"service_type,omitempty" jsonschema:"Only include clients with this service type"`
}

type GenerateGraphOutput struct {
	DOTSource string `json:"dot_source"`
	NodeCount int    `json:"node_count"`
	EdgeCount int    `json:"edge_count"`
}

func (h *VizHandlers) GenerateGraph(ctx context.Context, _ *mcp.CallToolRequest, input GenerateGraphInput) (*mcp.CallToolResult, GenerateGraphOutput, error) {
	all, err := h.svc.All(ctx)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to load clients: %w", err)
	}
	if input.ServiceType != "" {
		filtered := all[:0]
		for _, c := range all {
			if c.ServiceType == input.ServiceType {
				filtered = append(filtered, c)
			}
		}
		all = filtered
	}

	dot, err := viz.GeneratePortfolioGraph(ctx, all)
	if err != nil {
		return nil, GenerateGraphOutput{}, fmt.Errorf("failed to generate graph: %w", err)
	}

	// Count nodes and edges for stats
	nodeCount := strings.Count(dot, "[label=")
	edgeCount := strings.Count(dot, "->")

	return nil, GenerateGraphOutput{
		DOTSource: dot,
		NodeCount: nodeCount,
		EdgeCount: edgeCount,
	}, nil
}

type DashboardInput struct{}

type DashboardOutput struct {
	Text string `json:"text"`
}

func (h *VizHandlers) Dashboard(ctx context.Context, _ *mcp.CallToolRequest, _ DashboardInput) (*mcp.CallToolResult, DashboardOutput, error) {
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		return nil, DashboardOutput{}, fmt.Errorf("failed to compute stats: %w", err)
	}
	all, err := h.svc.All(ctx)
	if err != nil {
		return nil, DashboardOutput{}, fmt.Errorf("failed to load clients: %w", err)
	}
	d := viz.NewDashboard(stats, all, time.Now())
	return nil, DashboardOutput{Text: viz.RenderDashboard(d)}, nil
}
