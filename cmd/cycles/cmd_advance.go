package main

import (
	"fmt"

	"project_cycle_service/internal/infra/lock"

	"github.com/spf13/cobra"
)

func newAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance [project-id]",
		Short: "Advance every due project, or force one project to its next cycle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				projectID, err := parseUUIDArg("project id", args[0])
				if err != nil {
					return err
				}
				rt, err := openRuntime(cmd.Context(), true)
				if err != nil {
					return err
				}
				defer rt.Close()

				res, err := rt.cycleManager(nil).AdvanceProjectCycle(cmd.Context(), projectID)
				if err != nil {
					return err
				}
				if res.Completed {
					fmt.Fprintf(cmd.OutOrStdout(), "project %s completed after %d cycles\n", res.Project.Name, res.Project.CurrentCycleNumber)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "project %s advanced to cycle %d (%s to %s)\n",
					res.Project.Name, res.NewCycle.CycleNumber,
					res.NewCycle.StartDate.Format(dateLayout), res.NewCycle.EndDate.Format(dateLayout))
				return nil
			}

			rt, err := openRuntime(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer rt.Close()

			var advanced int
			err = lock.NewFileLock(rt.cfg.LockFile).Run(func() error {
				var err error
				advanced, err = rt.cycleManager(nil).CheckAndAdvanceCycles(cmd.Context())
				return err
			})
			fmt.Fprintf(cmd.OutOrStdout(), "advanced %d project(s)\n", advanced)
			return err
		},
	}
}
