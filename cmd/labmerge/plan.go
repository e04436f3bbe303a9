package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"stealthcompany.com/labmerge/internal/config"
	"stealthcompany.com/labmerge/internal/planner"
)

func planCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the largest total consumption that fits a daily capacity",
		RunE: func(cmd *cobra.Command, args []string) error {
			costs := a.cfg.PlannerCostList()
			if cmd.Flags().Changed("costs") {
				raw, _ := cmd.Flags().GetString("costs")
				parsed, err := config.ParseCosts(raw)
				if err != nil {
					return err
				}
				costs = parsed
			}

			capacity := a.cfg.PlannerCapacity
			if cmd.Flags().Changed("capacity") {
				capacity, _ = cmd.Flags().GetInt("capacity")
			}

			res, err := planner.Solve(costs, capacity)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.RecursiveSkipped {
				fmt.Fprintf(out, "Recursive: skipped (more than %d items)\n", planner.MaxRecursiveItems)
			} else {
				fmt.Fprintf(out, "Recursive: %d\n", res.Recursive)
			}
			fmt.Fprintf(out, "Memoized: %d\n", res.Memoized)
			fmt.Fprintf(out, "Tabulated: %d\n", res.Tabulated)
			fmt.Fprintf(out, "Selection: %v\n", res.Selection)
			return nil
		},
	}

	cmd.Flags().String("costs", "", "comma separated consumption per exam (default PLANNER_COSTS)")
	cmd.Flags().Int("capacity", 0, "daily capacity (default PLANNER_CAPACITY)")
	return cmd
}
