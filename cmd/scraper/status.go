package main

import (
	"fmt"

	"chat-scraper/internal/infrastructure/logger"
	"chat-scraper/internal/infrastructure/store"
	"chat-scraper/internal/infrastructure/userinteraction"

	"github.com/spf13/cobra"
)

func newStatusCmd(opts *rootOptions) *cobra.Command {
	var only []string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how many prompts already have a stored result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			tasks, err := loadTasks(opts, cfg, only)
			if err != nil {
				return err
			}

			records, err := store.NewJSONStore(opts.fs, cfg.OutputFile, logger.NewNop()).Records()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s is unreadable and will be reset by the next run: %v\n", cfg.OutputFile, err)
			}

			completed := 0
			keys := make(map[string]struct{}, len(records))
			for _, r := range records {
				keys[r.Key] = struct{}{}
			}
			for _, t := range tasks {
				if _, ok := keys[t.ID]; ok {
					completed++
				}
			}

			userinteraction.NewConsoleProgress(cmd.OutOrStdout()).ShowStatus(cfg.OutputFile, len(tasks), completed)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "only", nil, "glob patterns restricting the task ids")

	return cmd
}
