package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/abhisek/skillpath/internal/app"
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Practice in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		rt, err := setup(ctx, cmd, runtimeOptions{tui: true})
		if err != nil {
			return err
		}
		defer rt.Close()

		learner, _ := cmd.Flags().GetString("learner")
		if learner != "" {
			if _, err := rt.catalog.Learner(learner); err != nil {
				return err
			}
		}

		err = app.Run(app.Options{Manager: rt.manager, Learner: learner})
		rt.endAll(context.WithoutCancel(ctx))
		return err
	},
}

func init() {
	playCmd.Flags().String("learner", "", "Learner to practice as (default: pick from a list)")
}
