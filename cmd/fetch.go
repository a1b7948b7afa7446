package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kodexai/regwatch/internal/clock/system"
	"github.com/kodexai/regwatch/internal/config"
	"github.com/kodexai/regwatch/internal/fetch"
	"github.com/kodexai/regwatch/internal/foedb"
	"github.com/kodexai/regwatch/internal/id/uuid"
	"github.com/kodexai/regwatch/internal/logging"
	"github.com/kodexai/regwatch/internal/metrics"
	"github.com/kodexai/regwatch/internal/normalize"
	"github.com/kodexai/regwatch/internal/orchestrator"
	"github.com/kodexai/regwatch/internal/regulator"
	"github.com/kodexai/regwatch/internal/scrape/bundesbank"
	"github.com/kodexai/regwatch/internal/scrape/ecb"
	"github.com/kodexai/regwatch/internal/scrape/mas"
	pubsubsink "github.com/kodexai/regwatch/internal/sink/pubsub"
	"github.com/kodexai/regwatch/internal/sink/zaplog"
)

// newFetchCmd creates and configures the 'fetch' subcommand.
func newFetchCmd() *cobra.Command {
	var (
		regulators   []string
		contentTypes []string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch the latest publications from the configured regulators",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFetch(cmd.Context(), cfgFile, regulators, contentTypes, limit)
		},
	}

	cmd.Flags().StringSliceVar(&regulators, "regulator", []string{"ECB", "MAS", "BBK"}, "regulators to fetch")
	cmd.Flags().StringSliceVar(&contentTypes, "content-type", []string{"NEWS", "REGULATION"}, "content types to fetch")
	cmd.Flags().IntVar(&limit, "limit", 0, "max publications per regulator and content type (0 uses batch.limit)")

	return cmd
}

func runFetch(ctx context.Context, cfgPath string, names, ctNames []string, limit int) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	metrics.Init()

	if limit <= 0 {
		limit = cfg.Batch.Limit
	}

	fetchClient := fetch.New(cfg.FetchConfig(), logger)
	store := foedb.New(cfg.StoreClientConfig(), fetchClient, logger)

	var snk regulator.Sink = zaplog.New(logger)
	if cfg.PubSub.Enabled {
		client, err := gcppubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("pubsub client: %w", err)
		}
		defer client.Close()
		snk = pubsubsink.New(client.Topic(cfg.PubSub.TopicName))
	}

	orch := orchestrator.New(normalize.New(system.New(), logger), snk, uuid.New(), logger)

	var runErrs []error
	for _, name := range names {
		profile, regCfg, err := resolveProfile(cfg, name)
		if err != nil {
			runErrs = append(runErrs, err)
			continue
		}
		for _, ctName := range ctNames {
			ct, err := parseContentType(ctName)
			if err != nil {
				runErrs = append(runErrs, err)
				continue
			}
			sources := buildSources(fetchClient, store, cfg, profile, regCfg, ct, limit, logger)
			if len(sources) == 0 {
				logger.Warn("no sources configured",
					zap.String("regulator", profile.Name),
					zap.String("content_type", string(ct)),
				)
				continue
			}
			task := orchestrator.Task{Profile: profile, ContentType: ct, Sources: sources}
			if _, err := orch.Run(ctx, task); err != nil {
				runErrs = append(runErrs, fmt.Errorf("%s/%s: %w", profile.Name, ct, err))
			}
		}
	}
	return errors.Join(runErrs...)
}

// resolveProfile merges the built-in regulator profile with config
// overrides.
func resolveProfile(cfg config.Config, name string) (regulator.Profile, config.RegulatorConfig, error) {
	profile, ok := regulator.Builtin(strings.ToUpper(name))
	if !ok {
		return regulator.Profile{}, config.RegulatorConfig{}, fmt.Errorf("unknown regulator %q", name)
	}
	regCfg := cfg.Regulators[strings.ToLower(profile.Name)]
	if regCfg.BaseURL != "" {
		profile.BaseURL = regCfg.BaseURL
	}
	if regCfg.LanguageMarker != "" {
		profile.LanguageMarker = regCfg.LanguageMarker
	}
	return profile, regCfg, nil
}

func parseContentType(name string) (regulator.ContentType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case string(regulator.ContentTypeNews):
		return regulator.ContentTypeNews, nil
	case string(regulator.ContentTypeRegulation):
		return regulator.ContentTypeRegulation, nil
	}
	return "", fmt.Errorf("unknown content type %q", name)
}

// buildSources binds the configured listing/feed/store sources for one
// regulator and content type.
func buildSources(
	fetchClient *fetch.Client,
	store *foedb.Client,
	cfg config.Config,
	profile regulator.Profile,
	regCfg config.RegulatorConfig,
	ct regulator.ContentType,
	limit int,
	logger *zap.Logger,
) []orchestrator.Source {
	key := strings.ToLower(string(ct))
	var sources []orchestrator.Source

	switch profile.Name {
	case regulator.ECB.Name:
		scraper := ecb.New(fetchClient, store, profile, logger)
		if regCfg.UseStore {
			sources = append(sources, orchestrator.Source{
				Name: "foedb",
				Load: func(ctx context.Context) ([]regulator.Publication, error) {
					return scraper.LoadFromStore(ctx, ct, limit, cfg.Store.ScanLimit)
				},
			})
		}
		if url := regCfg.Listings[key]; url != "" {
			sources = append(sources, orchestrator.Source{
				Name: "listing",
				Load: func(ctx context.Context) ([]regulator.Publication, error) {
					return scraper.LoadListing(ctx, url, ct)
				},
			})
		}

	case regulator.MAS.Name:
		scraper := mas.New(fetchClient, profile, logger)
		if url := regCfg.Listings[key]; url != "" {
			sources = append(sources, orchestrator.Source{
				Name: "listing",
				Load: func(ctx context.Context) ([]regulator.Publication, error) {
					return scraper.LoadPublications(ctx, url, ct)
				},
			})
		}

	case regulator.Bundesbank.Name:
		scraper := bundesbank.New(fetchClient, profile, logger)
		if url := regCfg.Feeds[key]; url != "" {
			sources = append(sources, orchestrator.Source{
				Name: "rss",
				Load: func(ctx context.Context) ([]regulator.Publication, error) {
					return scraper.LoadFeed(ctx, url, ct)
				},
			})
		}
		if url := regCfg.Listings[key]; url != "" {
			sources = append(sources, orchestrator.Source{
				Name: "listing",
				Load: func(ctx context.Context) ([]regulator.Publication, error) {
					return scraper.LoadListing(ctx, url, ct)
				},
			})
		}
	}
	return sources
}
