package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/getsentry/cli-sub002/internal/adapters/outbound/cachestore"
	"github.com/getsentry/cli-sub002/internal/adapters/outbound/codescan"
	"github.com/getsentry/cli-sub002/internal/adapters/outbound/config"
	"github.com/getsentry/cli-sub002/internal/adapters/outbound/envscan"
	"github.com/getsentry/cli-sub002/internal/adapters/outbound/rootfind"
	"github.com/getsentry/cli-sub002/internal/adapters/outbound/tui"
	"github.com/getsentry/cli-sub002/internal/application"
	"github.com/getsentry/cli-sub002/internal/domain"
)

func newDetectCmd() *cobra.Command {
	var (
		path       string
		all        bool
		jsonOutput bool
		noCache    bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the project's DSN",
		Long:  "Detect the DSN of the project containing the given directory. With --all, report every DSN discoverable in the project (monorepos).",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService(cmd.Context(), path, noCache, verbose)
			if err != nil {
				return err
			}

			if all {
				det, rootRes, err := svc.ResolveAll(cmd.Context(), path)
				if err != nil {
					return fmt.Errorf("detecting DSNs: %w", err)
				}
				if jsonOutput {
					return renderJSON(cmd, struct {
						*domain.Detection
						Root *domain.ProjectRootResult `json:"root"`
					}{det, rootRes})
				}
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderDetection(det, rootRes))
				return nil
			}

			dsn, rootRes, err := svc.Resolve(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("detecting DSN: %w", err)
			}
			if jsonOutput {
				return renderJSON(cmd, struct {
					DSN  *domain.DSN               `json:"dsn"`
					Root *domain.ProjectRootResult `json:"root"`
				}{dsn, rootRes})
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderDSN(dsn, rootRes))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", ".", "Directory to detect from")
	cmd.Flags().BoolVar(&all, "all", false, "Report every discoverable DSN")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the detection cache")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log scan decisions to stderr")

	return cmd
}

// buildService wires the default adapters for a starting directory. Options
// come from the environment, overlaid with the project's config file. The
// file lives at the project root, which may be above the starting directory,
// so the root is located (with default options) before loading it.
func buildService(ctx context.Context, path string, noCache, verbose bool) (*application.DetectService, error) {
	opts := domain.DefaultOptions()
	rootRes, err := rootfind.New(opts).Locate(ctx, path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.New().Load(rootRes.ProjectRoot)
	if err != nil {
		return nil, err
	}
	opts = cfg.Apply(opts)

	var store domain.CacheStore
	if noCache {
		store = nopStore{}
	} else {
		store, err = cachestore.New("")
		if err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	return application.NewDetectService(
		rootfind.New(opts),
		codescan.New(opts),
		envscan.New(opts),
		envscan.NewEnvReader(opts),
		store,
		opts,
		logger,
	), nil
}

func renderJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// nopStore disables caching for --no-cache runs.
type nopStore struct{}

func (nopStore) LoadEntry(string) (*domain.CachedDsnEntry, error)      { return nil, nil }
func (nopStore) SaveEntry(string, *domain.CachedDsnEntry) error        { return nil }
func (nopStore) LoadDetection(string) (*domain.CachedDetection, error) { return nil, nil }
func (nopStore) SaveDetection(string, *domain.CachedDetection) error   { return nil }
func (nopStore) Clear(string) error                                    { return nil }
func (nopStore) ClearAll() error                                       { return nil }
