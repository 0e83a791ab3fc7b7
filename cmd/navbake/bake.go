package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/navbake/internal/assets"
	"github.com/Faultbox/navbake/internal/bake"
	"github.com/Faultbox/navbake/internal/buildcache"
	"github.com/Faultbox/navbake/internal/config"
	"github.com/Faultbox/navbake/internal/logger"
	"github.com/Faultbox/navbake/internal/navbuild"
	"github.com/Faultbox/navbake/pkg/formats"
)

func BakeCmd() *cobra.Command {
	var (
		flags  *config.Flags
		blocks []string
		force  bool
	)
	c := &cobra.Command{
		Use:   "bake",
		Short: "bake navmeshes for the configured map blocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags)
			if err != nil {
				return err
			}
			if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBake(ctx, cfg, blocks, force)
		},
	}
	flags = config.BindFlags(c.Flags())
	c.Flags().StringSliceVar(&blocks, "block", nil, "Bake only these block ids")
	c.Flags().BoolVar(&force, "force", false, "Ignore the build hash store")
	return c
}

// runBake returns an error only for fatal setup failures. Per-block
// failures are reported in the log and the summary.
func runBake(ctx context.Context, cfg *config.Config, blocks []string, force bool) error {
	log := logger.Named("navbake")

	if err := os.MkdirAll(cfg.Output.NavmeshDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	store, err := buildcache.Open(ctx, cfg.Output.HashStore)
	if err != nil {
		return fmt.Errorf("opening hash store: %w", err)
	}
	cache := buildcache.New(store, nil)
	defer func() {
		if err := cache.Close(); err != nil {
			log.Error("hash store close error", zap.Error(err))
		}
	}()

	index, err := assets.NewIndex(
		assets.Sources(cfg.Data.AssetDirs, cfg.Data.AssetPacks),
		assets.WithLogger(logger.Named("assets")),
		assets.WithCache(assets.NewCache()),
	)
	if err != nil {
		return fmt.Errorf("building asset index: %w", err)
	}
	hits, misses := index.CacheStats()
	log.Info("asset index ready", zap.Int("documents", index.Len()), zap.Int("cache_hits", hits), zap.Int("cache_misses", misses))

	loader := bake.DirLoader{Dir: cfg.Data.BlockDir}
	ids := blocks
	if len(ids) == 0 {
		meta, err := formats.ParseMapMetadataFile(cfg.Data.MapMetadata)
		if err != nil {
			return fmt.Errorf("loading map metadata: %w", err)
		}
		var missing []string
		ids, missing = bake.BlockIDs(meta, loader)
		if len(missing) > 0 {
			log.Warn("skipping blocks without export", zap.Strings("blocks", missing))
		}
	}

	orch := bake.NewOrchestrator(
		index,
		navbuild.NewRecastBackend(nil),
		navbuild.FromConfig(cfg.Build),
		cache,
		cfg.Output.NavmeshDir,
		bake.WithForce(force),
	)
	bake.NewBatch(orch, loader, nil).Run(ctx, ids)
	return nil
}
