package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/skiptrace-cli/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline record counts by stage",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		counts, err := st.CountRecordsByStage(ctx)
		if err != nil {
			return err
		}

		stages := []model.Stage{
			model.StageSentToSearch,
			model.StageSearchCompleted,
			model.StageSearchFailed,
			model.StageValidationProcessing,
			model.StageValidationCompleted,
		}
		total := 0
		for _, stage := range stages {
			fmt.Printf("%-22s %d\n", stage, counts[stage])
			total += counts[stage]
		}
		fmt.Printf("%-22s %d\n", "TOTAL", total)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
