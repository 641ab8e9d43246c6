// Package main is the entry point of the task API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-task-go/pkg/utilities"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd creates the root command. Running it without a subcommand
// serves the API.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "taskd",
		Short:         "Personal task manager API",
		SilenceUsage:  true,
		RunE:          runServe,
	}
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewEnsureSchemaCmd())
	return cmd
}

// bootstrap loads the configuration and builds the logger shared by all
// subcommands.
func bootstrap() (*config.Config, *zap.SugaredLogger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, lg.Sugar(), func() { _ = lg.Sync() }, nil
}
