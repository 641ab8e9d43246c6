package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/store"
)

// NewEnsureSchemaCmd creates the ensure-schema subcommand.
func NewEnsureSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-schema",
		Short: "Create tables and indexes",
		Long:  `Create the collections, tables and indexes of the configured store. Safe to run repeatedly.`,
		RunE:  runEnsureSchema,
	}
}

func runEnsureSchema(cmd *cobra.Command, _ []string) error {
	cfg, sugar, sync, err := bootstrap()
	if err != nil {
		return err
	}
	defer sync()

	ctx := cmd.Context()
	st, err := store.Open(ctx, cfg.Store, sugar)
	if err != nil {
		return oops.In("ensure-schema").With("driver", cfg.Store.Driver).Wrap(err)
	}
	defer st.Close(ctx)

	if err := st.EnsureSchema(ctx); err != nil {
		return oops.In("ensure-schema").With("driver", cfg.Store.Driver).Wrap(err)
	}
	cmd.Println("schema is up to date")
	return nil
}
