// ABOUTME: Graphviz portfolio graph of clients grouped by service type
// ABOUTME: Node colour follows client status, edges run from service hubs to clients
package viz

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/harperreed/agencycrm/models"
)

var statusColors = map[string]string{
	models.StatusActive:   "palegreen",
	models.StatusInactive: "lightgray",
	models.StatusPending:  "lightyellow",
	models.StatusOnHold:   "lightsalmon",
}

const unknownService = "unknown"

// GeneratePortfolioGraph renders every client as a node hanging off a hub
// for its service type and returns the DOT source.
func GeneratePortfolioGraph(ctx context.Context, clients []models.Client) (string, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLabel("Client Portfolio")
	graph.SetRankDir(cgraph.LRRank)

	byService := make(map[string][]models.Client)
	for _, c := range clients {
		service := c.ServiceType
		if service == "" {
			service = unknownService
		}
		byService[service] = append(byService[service], c)
	}

	services := make([]string, 0, len(byService))
	for s := range byService {
		services = append(services, s)
	}
	sort.Strings(services)

	for _, service := range services {
		members := byService[service]

		var revenue float64
		for _, c := range members {
			revenue += c.MonthlyRetainer
		}

		hub, err := graph.CreateNodeByName("service_" + service)
		if err != nil {
			return "", fmt.Errorf("failed to create service node: %w", err)
		}
		hub.SetLabel(fmt.Sprintf("%s\n%d clients\n$%.0f/mo", service, len(members), revenue))
		hub.SetShape("box")
		hub.SetStyle("filled")
		hub.SetFillColor("lightblue")

		for _, c := range members {
			node, err := graph.CreateNodeByName("client_" + c.ID)
			if err != nil {
				return "", fmt.Errorf("failed to create client node: %w", err)
			}
			node.SetLabel(clientLabel(c))
			node.SetShape("ellipse")
			node.SetStyle("filled")
			node.SetFillColor(statusColor(c.Status))

			edge, err := graph.CreateEdgeByName(service+"_"+c.ID, hub, node)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			if c.ServiceTier != "" {
				edge.SetLabel(c.ServiceTier)
			}
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}

func clientLabel(c models.Client) string {
	label := c.Name
	if c.Company != "" && c.Company != c.Name {
		label += "\n" + c.Company
	}
	if c.AIAnalysis != nil {
		label += fmt.Sprintf("\n(%s priority)", c.AIAnalysis.Priority)
	}
	return label
}

func statusColor(status string) string {
	if color, ok := statusColors[status]; ok {
		return color
	}
	return "white"
}
