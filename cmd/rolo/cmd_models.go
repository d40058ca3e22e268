package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models served by the inference endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		models, err := a.svc.ListModels(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list models from %s: %w", cfg.LLMURL, err)
		}
		for _, m := range models {
			marker := " "
			if m.ID == cfg.LLMModel {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, m.ID)
		}
		return nil
	},
}
