package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chat-scraper/internal/infrastructure/config"
	"chat-scraper/internal/infrastructure/env"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := submain(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func submain(ctx context.Context, args []string) int {
	root := newRootCmd(afero.NewOsFs())
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "scraper: %v\n", err)
		return 1
	}
	return 0
}

type rootOptions struct {
	fs         afero.Fs
	configPath string
	env        *env.EnvService
}

func newRootCmd(fsys afero.Fs) *cobra.Command {
	opts := &rootOptions{fs: fsys}

	root := &cobra.Command{
		Use:           "scraper",
		Short:         "Submit a batch of prompts to a web chat through an attached Chrome",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.env = env.NewEnvService()
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default ./scraper.yaml if present)")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	return root
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	return config.Load(o.fs, o.configPath)
}
