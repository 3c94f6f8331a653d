package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/curvelaunch/internal/display"
	"github.com/rovshanmuradov/curvelaunch/internal/graduation"
)

func newGraduationCmd(a *app) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "graduation",
		Short: "Show graduation progress for the launch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				now = t
			}

			state, err := a.def.State()
			if err != nil {
				return a.userError("Invalid launch state", err)
			}
			res, err := graduation.Evaluate(state, a.def.Criteria(), now)
			if err != nil {
				return a.userError("Graduation evaluation failed", err)
			}

			if a.opts.json {
				return a.printJSON(res)
			}
			a.title(fmt.Sprintf("%s graduation at %s", a.def.Symbol, now.Format(time.RFC3339)))
			display.RenderGraduation(a.out, res)
			switch {
			case !a.def.Criteria().Configured():
				a.warn("No graduation criteria configured.")
			case res.CanGraduate:
				fmt.Fprintln(a.out, a.styles.Success.Render("Eligible for graduation."))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "evaluate at this RFC3339 time instead of now")
	return cmd
}
