package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getsentry/cli-sub002/internal/adapters/outbound/cachestore"
	"github.com/getsentry/cli-sub002/internal/adapters/outbound/rootfind"
	"github.com/getsentry/cli-sub002/internal/domain"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the detection cache",
	}
	cmd.AddCommand(newCacheClearCmd())
	return cmd
}

func newCacheClearCmd() *cobra.Command {
	var (
		path string
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached detections",
		Long:  "Clear the cached detection for the project containing --path, or every cached detection with --all.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := cachestore.New("")
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}

			if all {
				if err := store.ClearAll(); err != nil {
					return fmt.Errorf("clearing cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "cleared all cached detections")
				return nil
			}

			rootRes, err := rootfind.New(domain.DefaultOptions()).Locate(context.Background(), path)
			if err != nil {
				return err
			}
			if err := store.Clear(rootRes.ProjectRoot); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared cached detection for %s\n", rootRes.ProjectRoot)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "Directory whose project cache to clear")
	cmd.Flags().BoolVar(&all, "all", false, "Clear every cached detection")

	return cmd
}
