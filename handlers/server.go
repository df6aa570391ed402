// ABOUTME: Builds the MCP server with every client tool, resource and prompt
// ABOUTME: Shared by the mcp command and the handler tests
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/agencycrm/clients"
)

// NewServer registers the client tools, resources and prompts.
func NewServer(svc *clients.Service, version string) *mcp.Server {
	clientHandlers := NewClientHandlers(svc)
	vizHandlers := NewVizHandlers(svc)
	resourceHandlers := NewResourceHandlers(svc)
	promptHandlers := NewPromptHandlers(svc)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "agencycrm",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_client",
		Description: "Add a new agency client. The client is analyzed before it is stored",
	}, clientHandlers.AddClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_client",
		Description: "Fetch one client by ID",
	}, clientHandlers.GetClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "find_clients",
		Description: "Search clients by name prefix and filter by status, service type, tier or payment status, with paging",
	}, clientHandlers.FindClients)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_client",
		Description: "Update fields on an existing client",
	}, clientHandlers.UpdateClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_client",
		Description: "Delete a client",
	}, clientHandlers.DeleteClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_client",
		Description: "Re-run analysis on a stored client and save the result",
	}, clientHandlers.AnalyzeClient)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "client_stats",
		Description: "Totals, revenue and breakdowns by status and service across all clients",
	}, clientHandlers.ClientStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "bulk_update_status",
		Description: "Set one status on several clients atomically",
	}, clientHandlers.BulkUpdateStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "client_insights",
		Description: "Generate portfolio-wide insights from every client",
	}, clientHandlers.ClientInsights)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_portfolio_graph",
		Description: "Generate a GraphViz DOT graph of clients grouped by service type",
	}, vizHandlers.GenerateGraph)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "client_dashboard",
		Description: "Render a text dashboard of the client portfolio",
	}, vizHandlers.Dashboard)

	server.AddResource(&mcp.Resource{
		URI:         ClientsURI,
		Name:        "clients",
		Description: "Every client record",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: ClientTemplateURI,
		Name:        "client",
		Description: "One client record by ID",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         StatsURI,
		Name:        "stats",
		Description: "Portfolio statistics",
		MIMEType:    "application/json",
	}, resourceHandlers.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        PromptClientReview,
		Description: "Review a single client account",
		Arguments: []*mcp.PromptArgument{
			{Name: "client_id", Description: "Client ID", Required: true},
		},
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        PromptPortfolioReview,
		Description: "Review the whole client portfolio",
	}, promptHandlers.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        PromptFollowUps,
		Description: "Suggest follow-ups for flagged clients",
	}, promptHandlers.GetPrompt)

	return server
}
