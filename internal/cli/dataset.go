package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/d00mkeeps/ibhackathon/config"
	"github.com/d00mkeeps/ibhackathon/internal/dataset"
	"github.com/d00mkeeps/ibhackathon/internal/prompt"
	"github.com/d00mkeeps/ibhackathon/internal/service"
	"github.com/d00mkeeps/ibhackathon/internal/storage"
	"github.com/d00mkeeps/ibhackathon/pkg/logger"
)

func newDatasetCmd(opts *rootOptions) *cobra.Command {
	datasetCmd := &cobra.Command{
		Use:   "dataset",
		Short: "Manage the comparison dataset",
	}

	var yes bool
	importCmd := &cobra.Command{
		Use:   "import FILE.csv",
		Short: "Replace the comparison dataset with a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := PromptForConfirm("Replace the stored comparison dataset?", false)
				if err != nil || !ok {
					return err
				}
			}
			return runDatasetImport(cmd.Context(), opts.cfg, args[0], cmd.OutOrStdout())
		},
	}
	importCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	datasetCmd.AddCommand(importCmd)

	datasetCmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Show the benchmark statistics of the comparison dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasetSummary(cmd.Context(), opts.cfg, cmd.OutOrStdout())
		},
	})

	return datasetCmd
}

func newDatasetService(ctx context.Context, cfg *config.Config) (*service.DatasetService, *storage.Store, error) {
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	cache := dataset.NewCache(store, logger.Component("dataset"))
	prov := prompt.Provenance{Source: cfg.DatasetSource, AsOf: cfg.DatasetAsOf}
	return service.NewDatasetService(store, cache, prov, logger.Component("dataset_service")), store, nil
}

func runDatasetImport(ctx context.Context, cfg *config.Config, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	svc, store, err := newDatasetService(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := svc.Import(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, completedStyle.Render(fmt.Sprintf("Imported %d companies from %s.", n, path)))
	return nil
}

func runDatasetSummary(ctx context.Context, cfg *config.Config, out io.Writer) error {
	svc, store, err := newDatasetService(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	renderSummary(out, svc.Summary(ctx))
	return nil
}

func newConversationsCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List stored conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(cmd.Context(), opts.cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer store.Close()

			convs, err := service.NewCompanyService(store, logger.Component("company_service")).
				ListConversations(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderConversations(cmd.OutOrStdout(), convs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of conversations")
	return cmd
}
