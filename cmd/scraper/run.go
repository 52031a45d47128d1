package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"chat-scraper/internal/di"
	"chat-scraper/internal/domain/entity"
	"chat-scraper/internal/infrastructure/config"
	"chat-scraper/internal/infrastructure/taskfile"

	"github.com/spf13/cobra"
)

type runFlags struct {
	input       string
	output      string
	driver      string
	concurrency int
	only        []string
}

func newRunCmd(opts *rootOptions) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process every prompt that has no stored result yet",
		Long: `Attaches to the Chrome instance at cdp_url, opens one tab per worker and
submits the pending prompts. Results are appended to output_file after every
task, so an interrupted run resumes where it stopped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, &cfg); err != nil {
				return err
			}

			tasks, err := loadTasks(opts, cfg, flags.only)
			if err != nil {
				return err
			}

			container, err := di.NewContainer(cfg, di.Options{
				Fs:      opts.fs,
				RunName: opts.runName(cfg),
				Console: cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}
			defer container.Close()

			container.Logger.Info("Batch loaded",
				"app_env", opts.env.AppEnv(),
				"input", cfg.InputFile,
				"tasks", len(tasks),
				"output", container.Store.Path(),
			)

			summary, err := container.Runner.Run(cmd.Context(), tasks)
			if err != nil {
				container.Logger.Error("Run failed", "error", err)
				return err
			}
			if cmd.Context().Err() != nil {
				return fmt.Errorf("interrupted, %d tasks left for the next run", summary.Leftover)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&flags.input, "input", "i", "", "input file (overrides input_file)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "result file (overrides output_file)")
	cmd.Flags().StringVar(&flags.driver, "driver", "", "session driver: rod or chromedp")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "n", 0, "number of tabs (overrides concurrency)")
	cmd.Flags().StringSliceVar(&flags.only, "only", nil, "glob patterns restricting the task ids, e.g. --only '10*'")

	return cmd
}

func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	if f.input != "" {
		cfg.InputFile = f.input
	}
	if f.output != "" {
		cfg.OutputFile = f.output
	}
	if f.driver != "" {
		cfg.Driver = f.driver
	}
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	return config.Validate(*cfg)
}

func loadTasks(opts *rootOptions, cfg config.Config, only []string) ([]entity.Task, error) {
	tasks, err := taskfile.Load(opts.fs, cfg.InputFile, taskfile.Options{
		IDField:     cfg.Input.IDField,
		PromptField: cfg.Input.PromptField,
	})
	if err != nil {
		return nil, err
	}

	filter, err := taskfile.NewFilter(only)
	if err != nil {
		return nil, err
	}
	return filter.Apply(tasks), nil
}

func (o *rootOptions) runName(cfg config.Config) string {
	base := filepath.Base(cfg.InputFile)
	return o.env.GetWithDefault("SCRAPER_RUN_NAME", strings.TrimSuffix(base, filepath.Ext(base)))
}
