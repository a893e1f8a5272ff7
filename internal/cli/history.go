package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"quiz-session-engine/internal/app"
	"quiz-session-engine/internal/config"
)

// NewHistoryCmd prints a subject's history log and aggregate as JSON.
func NewHistoryCmd(configPath *string) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the history log of a subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			config.ConfigureLogging(cfg)

			deps, err := buildDeps(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer deps.close()

			log, err := app.NewHistoryRecorder(deps.history).Get(cmd.Context(), subject)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(log)
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject key")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}
