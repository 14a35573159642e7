package main

import (
	"context"
	"fmt"
	"strconv"

	"project_cycle_service/internal/app"
	"project_cycle_service/internal/domain/project"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func parseUUIDArg(name, arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s %q: %w", name, arg, err)
	}
	return id, nil
}

func parseAmountArg(arg string) (float64, error) {
	amount, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", arg, err)
	}
	if !project.ValidAmount(amount) {
		return 0, project.ErrInvalidAmount
	}
	return amount, nil
}

// withManager opens a runtime and hands a CycleManager without notifications to fn.
func withManager(ctx context.Context, fn func(m *app.CycleManager) error) error {
	rt, err := openRuntime(ctx, true)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt.cycleManager(nil))
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <project-id>",
		Short: "Show cycle statistics for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseUUIDArg("project id", args[0])
			if err != nil {
				return err
			}
			return withManager(cmd.Context(), func(m *app.CycleManager) error {
				p, err := m.GetProject(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				stats, err := m.GetProjectCycleStats(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "project:          %s (%s)\n", p.Name, p.ID)
				fmt.Fprintf(out, "status:           %s\n", p.Status)
				fmt.Fprintf(out, "current cycle:    %d\n", p.CurrentCycleNumber)
				fmt.Fprintf(out, "total cycles:     %d\n", stats.TotalCycles)
				fmt.Fprintf(out, "completed cycles: %d\n", stats.CompletedCycles)
				fmt.Fprintf(out, "active cycles:    %d\n", stats.ActiveCycles)
				fmt.Fprintf(out, "total raised:     %.2f\n", stats.TotalRaised)
				return nil
			})
		},
	}
}

func newRunStateCmd(use, short string, apply func(*app.CycleManager, context.Context, uuid.UUID) (*project.Project, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <project-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseUUIDArg("project id", args[0])
			if err != nil {
				return err
			}
			return withManager(cmd.Context(), func(m *app.CycleManager) error {
				p, err := apply(m, cmd.Context(), projectID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "project %s is now %s\n", p.Name, p.Status)
				return nil
			})
		},
	}
}

func newPauseCmd() *cobra.Command {
	return newRunStateCmd("pause", "Pause a project and stop its automatic advancement", (*app.CycleManager).PauseProject)
}

func newResumeCmd() *cobra.Command {
	return newRunStateCmd("resume", "Resume a paused project", (*app.CycleManager).ResumeProject)
}

func newRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <cycle-id>",
		Short: "Recompute a cycle's progress and roll totals up into its project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cycleID, err := parseUUIDArg("cycle id", args[0])
			if err != nil {
				return err
			}
			return withManager(cmd.Context(), func(m *app.CycleManager) error {
				if err := m.UpdateCycleProgress(cmd.Context(), cycleID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cycle %s recomputed\n", cycleID)
				return nil
			})
		},
	}
}

func newContributeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contribute <project-id> <amount>",
		Short: "Record a contribution against a project's active cycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseUUIDArg("project id", args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmountArg(args[1])
			if err != nil {
				return err
			}
			return withManager(cmd.Context(), func(m *app.CycleManager) error {
				c, err := m.RecordContribution(cmd.Context(), projectID, amount)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cycle %d now at %.2f of %.2f (%.1f%%)\n",
					c.CycleNumber, c.CurrentAmount, c.TargetAmount, c.ProgressPercentage)
				return nil
			})
		},
	}
}
