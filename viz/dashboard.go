// ABOUTME: Terminal dashboard for the client portfolio
// ABOUTME: Folds stats and records into status bars, service breakdown and attention items
package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/harperreed/agencycrm/models"
)

type Dashboard struct {
	Stats     models.ClientStats
	Attention []AttentionItem
}

type AttentionItem struct {
	Name   string
	Reason string
}

// contractWarning is how far ahead an ending contract is flagged.
const contractWarning = 30 * 24 * time.Hour

// NewDashboard pairs the stats with the clients that need follow-up.
func NewDashboard(stats *models.ClientStats, clients []models.Client, now time.Time) *Dashboard {
	d := &Dashboard{}
	if stats != nil {
		d.Stats = *stats
	}

	for _, c := range clients {
		switch c.PaymentStatus {
		case models.PaymentOverdue:
			d.Attention = append(d.Attention, AttentionItem{c.Name, "payment overdue"})
		case models.PaymentCancelled:
			d.Attention = append(d.Attention, AttentionItem{c.Name, "payment cancelled"})
		}
		if c.SSLStatus == models.SSLExpired {
			d.Attention = append(d.Attention, AttentionItem{c.Name, "SSL certificate expired"})
		}
		if c.QAStatus == models.QAFailed {
			d.Attention = append(d.Attention, AttentionItem{c.Name, "QA check failed"})
		}
		if c.ContractEndDate.After(c.ContractStartDate) && c.ContractEndDate.After(now) &&
			c.ContractEndDate.Sub(now) <= contractWarning {
			days := int(c.ContractEndDate.Sub(now).Hours() / 24)
			d.Attention = append(d.Attention, AttentionItem{c.Name, fmt.Sprintf("contract ends in %d days", days)})
		}
	}
	return d
}

func RenderDashboard(d *Dashboard) string {
	var out strings.Builder

	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	out.WriteString("  AGENCY CLIENT DASHBOARD\n")
	out.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	out.WriteString("STATS\n")
	out.WriteString(fmt.Sprintf("  %d clients  %d active  $%.2f monthly revenue\n\n",
		d.Stats.Total, d.Stats.ActiveClients, d.Stats.Revenue))

	out.WriteString("BY STATUS\n")
	renderBars(&out, d.Stats.ByStatus, models.Statuses)
	out.WriteString("\n")

	out.WriteString("BY SERVICE\n")
	renderBars(&out, d.Stats.ByService, models.ServiceTypes)

	if len(d.Attention) > 0 {
		out.WriteString("\nNEEDS ATTENTION\n")
		for _, item := range d.Attention {
			out.WriteString(fmt.Sprintf("  ⚠️  %s - %s\n", item.Name, item.Reason))
		}
	}
	return out.String()
}

// renderBars prints known keys in their declared order, then any others
// (such as "unknown") sorted by name.
func renderBars(out *strings.Builder, counts map[string]int, order []string) {
	maxCount := 0
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}
	if maxCount == 0 {
		out.WriteString("  (none)\n")
		return
	}

	keys := make([]string, 0, len(counts))
	known := make(map[string]bool, len(order))
	for _, k := range order {
		known[k] = true
		if _, ok := counts[k]; ok {
			keys = append(keys, k)
		}
	}
	var extra []string
	for k := range counts {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	for _, k := range keys {
		n := counts[k]
		barLength := (n * 10) / maxCount
		bar := strings.Repeat("█", barLength) + strings.Repeat("░", 10-barLength)
		out.WriteString(fmt.Sprintf("  %-10s %s  %2d\n", k, bar, n))
	}
}
