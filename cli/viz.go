// ABOUTME: Visualization CLI commands
// ABOUTME: Handles viz dashboard and portfolio graph generation commands
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/harperreed/agencycrm/clients"
	"github.com/harperreed/agencycrm/viz"
)

// VizDashboardCommand prints the portfolio dashboard.
func VizDashboardCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("viz dashboard", flag.ExitOnError)
	_ = fs.Parse(args)

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	all, err := svc.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load clients: %w", err)
	}

	printf("%s", viz.RenderDashboard(viz.NewDashboard(stats, all, time.Now())))
	return nil
}

// VizGraphCommand generates the service/client portfolio graph.
func VizGraphCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("viz graph", flag.ExitOnError)
	output := fs.String("output", "", "Output file (default: stdout)")
	service := fs.String("service", "", "Only include this service type")
	_ = fs.Parse(args)

	all, err := svc.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load clients: %w", err)
	}
	if *service != "" {
		filtered := all[:0]
		for _, c := range all {
			if c.ServiceType == *service {
				filtered = append(filtered, c)
			}
		}
		all = filtered
	}

	dot, err := viz.GeneratePortfolioGraph(ctx, all)
	if err != nil {
		return err
	}

	if *output != "" {
		return os.WriteFile(*output, []byte(dot), 0644)
	}

	printf("%s\n", dot)
	return nil
}
