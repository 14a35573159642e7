package telegram

import (
	"fmt"
	"strings"

	"project_cycle_service/internal/app"
	"project_cycle_service/internal/domain/project"
)

const dateLayout = "2006-01-02"

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func formatCycleCap(p *project.Project) string {
	if p.TotalCycles.Valid {
		return fmt.Sprintf("%d/%d", p.CurrentCycleNumber, p.TotalCycles.Int32)
	}
	return fmt.Sprintf("%d", p.CurrentCycleNumber)
}

// formatProjectLine renders one row of /list_projects.
func formatProjectLine(p *project.Project) string {
	next := "-"
	if p.NextCycleDate.Valid {
		next = p.NextCycleDate.Time.Format(dateLayout)
	}
	return fmt.Sprintf("%s | %s | cycle %s | next %s | %s",
		p.Name, p.Status, formatCycleCap(p), next, p.ID)
}

func formatOverview(o *app.ProjectOverview) string {
	p, s := o.Project, o.Stats

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", p.Name)
	fmt.Fprintf(&b, "ID: %s\n", p.ID)
	fmt.Fprintf(&b, "Status: %s (auto-progress: %t)\n", p.Status, p.AutoProgress)
	fmt.Fprintf(&b, "Cycle: %s, every %d days\n", formatCycleCap(p), p.CycleDays())
	fmt.Fprintf(&b, "Target per cycle: %s\n", formatAmount(p.TargetAmount))
	if p.NextCycleDate.Valid {
		fmt.Fprintf(&b, "Next cycle: %s\n", p.NextCycleDate.Time.Format(dateLayout))
	}
	fmt.Fprintf(&b, "Cycles: %d total, %d completed, %d active\n", s.TotalCycles, s.CompletedCycles, s.ActiveCycles)
	fmt.Fprintf(&b, "Raised: %s", formatAmount(s.TotalRaised))
	return b.String()
}

func formatCycleAdvanced(p *project.Project, closed, opened *project.Cycle) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project %s moved to cycle %d.", p.Name, opened.CycleNumber)
	if closed != nil {
		fmt.Fprintf(&b, "\nCycle %d closed at %s of %s (%.1f%%).",
			closed.CycleNumber, formatAmount(closed.CurrentAmount), formatAmount(closed.TargetAmount), closed.ProgressPercentage)
	}
	fmt.Fprintf(&b, "\nNew cycle runs %s to %s, target %s.",
		opened.StartDate.Format(dateLayout), opened.EndDate.Format(dateLayout), formatAmount(opened.TargetAmount))
	return b.String()
}

func formatProjectCompleted(p *project.Project) string {
	return fmt.Sprintf("Project %s finished all %d cycles and is now completed. Raised in total: %s.",
		p.Name, p.CurrentCycleNumber, formatAmount(p.CurrentAmount))
}
