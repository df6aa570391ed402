// ABOUTME: Client CLI commands
// ABOUTME: Human-friendly commands for adding, listing, updating and analyzing clients
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/harperreed/agencycrm/clients"
	"github.com/harperreed/agencycrm/models"
)

// AddClientCommand creates a client from flags.
func AddClientCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("clients add", flag.ExitOnError)
	name := fs.String("name", "", "Client name (required)")
	email := fs.String("email", "", "Email address (required)")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	website := fs.String("website", "", "Website URL")
	status := fs.String("status", "", "Status (default: active)")
	service := fs.String("service", "", "Service type (default: react)")
	tier := fs.String("tier", "", "Service tier")
	industry := fs.String("industry", "", "Industry")
	description := fs.String("description", "", "Project description")
	goals := fs.String("goals", "", "Comma separated project goals")
	technologies := fs.String("technologies", "", "Comma separated technologies")
	retainer := fs.Float64("retainer", 0, "Monthly retainer")
	payment := fs.String("payment", "", "Payment status")
	start := fs.String("start", "", "Contract start (YYYY-MM-DD)")
	end := fs.String("end", "", "Contract end (YYYY-MM-DD)")
	hosting := fs.String("hosting", "", "Hosting type")
	ssl := fs.String("ssl", "", "SSL status")
	backup := fs.String("backup", "", "Backup frequency")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}

	res, err := svc.Create(ctx, models.ClientFormData{
		Name:               *name,
		Email:              *email,
		Phone:              *phone,
		Company:            *company,
		Website:            *website,
		Status:             *status,
		ServiceType:        *service,
		ServiceTier:        *tier,
		Industry:           *industry,
		ProjectDescription: *description,
		ProjectGoals:       splitList(*goals),
		Technologies:       splitList(*technologies),
		MonthlyRetainer:    *retainer,
		PaymentStatus:      *payment,
		ContractStartDate:  *start,
		ContractEndDate:    *end,
		Hosting:            *hosting,
		SSLStatus:          *ssl,
		BackupFrequency:    *backup,
	})
	if err != nil {
		return err
	}

	printf("%s %s (ID: %s)\n", styled(okStyle, "✓ Client created:"), *name, res.ID)
	if res.Analysis != nil {
		printAnalysis(res.Analysis)
	} else {
		printf("  Analysis deferred\n")
	}
	return nil
}

// ListClientsCommand prints one page of clients.
func ListClientsCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("clients list", flag.ExitOnError)
	search := fs.String("search", "", "Name prefix (case sensitive)")
	status := fs.String("status", models.FilterAll, "Filter by status")
	service := fs.String("service", models.FilterAll, "Filter by service type")
	tier := fs.String("tier", models.FilterAll, "Filter by service tier")
	payment := fs.String("payment", models.FilterAll, "Filter by payment status")
	page := fs.Int("page", clients.DefaultPage, "Page number")
	limit := fs.Int("limit", clients.DefaultLimit, "Page size")
	asJSON := fs.Bool("json", false, "Print JSON")
	_ = fs.Parse(args)

	res, err := svc.List(ctx, models.ClientsFilter{
		Search:        *search,
		Status:        *status,
		ServiceType:   *service,
		ServiceTier:   *tier,
		PaymentStatus: *payment,
		Page:          *page,
		Limit:         *limit,
	})
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}
	if *asJSON {
		return printJSON(res)
	}

	if len(res.Clients) == 0 {
		printf("No clients found\n")
		return nil
	}

	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, styled(headingStyle, "NAME\tEMAIL\tSTATUS\tSERVICE\tRETAINER\tID"))
	_, _ = fmt.Fprintln(w, "----\t-----\t------\t-------\t--------\t--")
	for _, c := range res.Clients {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t$%.2f\t%s\n",
			c.Name, orDash(c.Email), c.Status, c.ServiceType, c.MonthlyRetainer, c.ID)
	}
	_ = w.Flush()

	printf("\n%s\n", styled(dimStyle, fmt.Sprintf("Page %d: %d of %d clients", *page, len(res.Clients), res.Total)))
	return nil
}

// GetClientCommand prints one client.
func GetClientCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("clients get", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print JSON")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("client ID required")
	}
	id := fs.Arg(0)

	c, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("client not found: %s", id)
	}
	if *asJSON {
		return printJSON(c)
	}

	printf("%s\n", styled(headingStyle, c.Name))
	printf("  ID:        %s\n", c.ID)
	printf("  Email:     %s\n", orDash(c.Email))
	printf("  Phone:     %s\n", orDash(c.Phone))
	printf("  Company:   %s\n", orDash(c.Company))
	printf("  Status:    %s\n", c.Status)
	printf("  Service:   %s %s\n", c.ServiceType, c.ServiceTier)
	printf("  Retainer:  $%.2f (%s)\n", c.MonthlyRetainer, orDash(c.PaymentStatus))
	printf("  QA:        %s (score %d, performance %d)\n", c.QAStatus, c.QAScore, c.PerformanceScore)
	printf("  Contract:  %s to %s\n", c.ContractStartDate.Format("2006-01-02"), c.ContractEndDate.Format("2006-01-02"))
	if len(c.ProjectGoals) > 0 {
		printf("  Goals:     %s\n", strings.Join(c.ProjectGoals, ", "))
	}
	if len(c.Technologies) > 0 {
		printf("  Tech:      %s\n", strings.Join(c.Technologies, ", "))
	}
	printf("  Created:   %s\n", c.CreatedAt.Format(time.RFC3339))
	printf("  Updated:   %s\n", c.UpdatedAt.Format(time.RFC3339))
	if c.AIAnalysis != nil {
		printAnalysis(c.AIAnalysis)
	}
	return nil
}

// UpdateClientCommand applies only the flags that were given.
// Flags must come before the client ID.
func UpdateClientCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("clients update", flag.ExitOnError)
	name := fs.String("name", "", "Client name")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	company := fs.String("company", "", "Company name")
	status := fs.String("status", "", "Status")
	service := fs.String("service", "", "Service type")
	tier := fs.String("tier", "", "Service tier")
	goals := fs.String("goals", "", "Comma separated project goals (replaces)")
	qaStatus := fs.String("qa-status", "", "QA status")
	qaScore := fs.Int("qa-score", 0, "QA score 0-10")
	perf := fs.Int("performance", 0, "Performance score 0-100")
	retainer := fs.Float64("retainer", 0, "Monthly retainer")
	payment := fs.String("payment", "", "Payment status")
	end := fs.String("end", "", "Contract end (YYYY-MM-DD)")
	ssl := fs.String("ssl", "", "SSL status")
	contacted := fs.Bool("contacted", false, "Set last contact to now")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("client ID required")
	}
	id := fs.Arg(0)

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var u models.ClientUpdate
	strFlags := []struct {
		flag string
		src  *string
		dst  **string
	}{
		{"name", name, &u.Name},
		{"email", email, &u.Email},
		{"phone", phone, &u.Phone},
		{"company", company, &u.Company},
		{"status", status, &u.Status},
		{"service", service, &u.ServiceType},
		{"tier", tier, &u.ServiceTier},
		{"qa-status", qaStatus, &u.QAStatus},
		{"payment", payment, &u.PaymentStatus},
		{"end", end, &u.ContractEndDate},
		{"ssl", ssl, &u.SSLStatus},
	}
	for _, f := range strFlags {
		if set[f.flag] {
			*f.dst = f.src
		}
	}
	if set["goals"] {
		g := splitList(*goals)
		u.ProjectGoals = &g
	}
	if set["qa-score"] {
		u.QAScore = qaScore
	}
	if set["performance"] {
		u.PerformanceScore = perf
	}
	if set["retainer"] {
		u.MonthlyRetainer = retainer
	}
	if *contacted {
		now := time.Now()
		u.LastContact = &now
	}

	if err := svc.Update(ctx, id, u); err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return fmt.Errorf("client not found: %s", id)
		}
		return err
	}
	printf("%s %s\n", styled(okStyle, "✓ Client updated:"), id)
	return nil
}

// DeleteClientCommand removes a client.
func DeleteClientCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("clients delete", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("client ID required")
	}
	id := fs.Arg(0)

	if err := svc.Delete(ctx, id); err != nil {
		return err
	}
	printf("%s %s\n", styled(okStyle, "✓ Client deleted:"), id)
	return nil
}

// AnalyzeClientCommand re-runs analysis on a stored client.
func AnalyzeClientCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("clients analyze", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("client ID required")
	}
	id := fs.Arg(0)

	a, err := svc.Analyze(ctx, id)
	if err != nil {
		if errors.Is(err, clients.ErrNotFound) {
			return fmt.Errorf("client not found: %s", id)
		}
		return err
	}
	printf("%s %s\n", styled(okStyle, "✓ Client analyzed:"), id)
	printAnalysis(&a)
	return nil
}

// StatsCommand prints portfolio totals.
func StatsCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("clients stats", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print JSON")
	_ = fs.Parse(args)

	stats, err := svc.Stats(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(stats)
	}

	printf("%s\n", styled(headingStyle, "CLIENT STATS"))
	printf("  Total:    %d\n", stats.Total)
	printf("  Active:   %d\n", stats.ActiveClients)
	printf("  Revenue:  $%.2f/month\n", stats.Revenue)
	printCounts("By status", stats.ByStatus, models.Statuses)
	printCounts("By service", stats.ByService, models.ServiceTypes)
	return nil
}

// BulkStatusCommand sets one status on every given client ID.
func BulkStatusCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("clients bulk-status", flag.ExitOnError)
	status := fs.String("status", "", "New status (required)")
	_ = fs.Parse(args)

	if *status == "" {
		return fmt.Errorf("--status is required")
	}
	ids := fs.Args()
	if len(ids) == 0 {
		return fmt.Errorf("at least one client ID required")
	}

	if err := svc.BulkUpdateStatus(ctx, ids, *status); err != nil {
		return err
	}
	printf("%s %d clients set to %s\n", styled(okStyle, "✓"), len(ids), *status)
	return nil
}

// InsightsCommand prints portfolio insights.
func InsightsCommand(ctx context.Context, svc *clients.Service, args []string) error {
	fs := flag.NewFlagSet("clients insights", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Print JSON")
	_ = fs.Parse(args)

	in, err := svc.GenerateInsights(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(in)
	}

	printf("%s\n", styled(headingStyle, "INSIGHTS"))
	printf("  %s\n", in.Summary)
	printSection("Highlights", in.Highlights)
	printSection("Risks", in.Risks)
	printSection("Opportunities", in.Opportunities)
	return nil
}

func printAnalysis(a *models.AIAnalysis) {
	printf("  Analysis:  %s priority, %s sentiment, %.0f%% predicted growth\n",
		a.Priority, a.Sentiment, a.PredictedGrowth)
	if a.RiskAssessment != "" {
		printf("  Risk:      %s\n", a.RiskAssessment)
	}
	for _, r := range a.Recommendations {
		printf("    - %s\n", r)
	}
}

func printCounts(title string, counts map[string]int, order []string) {
	printf("\n  %s:\n", title)
	seen := map[string]bool{}
	for _, k := range order {
		if n, ok := counts[k]; ok {
			printf("    %-10s %d\n", k, n)
			seen[k] = true
		}
	}
	var extra []string
	for k := range counts {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		printf("    %-10s %d\n", k, counts[k])
	}
}

func printSection(title string, items []string) {
	if len(items) == 0 {
		return
	}
	printf("\n  %s:\n", title)
	for _, item := range items {
		printf("    - %s\n", item)
	}
}
