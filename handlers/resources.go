// ABOUTME: MCP resource handlers for exposing client data
// ABOUTME: Provides read-only JSON access to clients and stats via agencycrm:// URIs
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/clients"
)

const resourceScheme = "agencycrm://"

// Resource URIs.
const (
	ClientsURI        = resourceScheme + "clients"
	ClientTemplateURI = resourceScheme + "clients/{id}"
	StatsURI          = resourceScheme + "stats"
)

type ResourceHandlers struct {
	svc *clients.Service
}

func NewResourceHandlers(svc *clients.Service) *ResourceHandlers {
	return &ResourceHandlers{svc: svc}
}

// ReadResource handles resource read requests
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	parts := strings.Split(strings.TrimPrefix(uri, resourceScheme), "/")
	switch parts[0] {
	case "clients":
		if len(parts) == 1 || parts[1] == "" {
			return h.readAllClients(ctx, uri)
		}
		return h.readClient(ctx, uri, parts[1])
	case "stats":
		return h.readStats(ctx, uri)
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

func (h *ResourceHandlers) readAllClients(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	all, err := h.svc.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}
	out := make([]ClientOutput, len(all))
	for i := range all {
		out[i] = clientToOutput(&all[i])
	}
	return jsonResource(uri, out)
}

func (h *ResourceHandlers) readClient(ctx context.Context, uri, id string) (*mcp.ReadResourceResult, error) {
	c, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client: %w", err)
	}
	if c == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return jsonResource(uri, clientToOutput(c))
}

func (h *ResourceHandlers) readStats(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	stats, err := h.svc.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}
	return jsonResource(uri, stats)
}

func jsonResource(uri string, v interface{}) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}
