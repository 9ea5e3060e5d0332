// Command combine is the Combine Data compute CLI.
//
// Usage:
//
//	combine metrics run --cohort current_nba --season 2024-25 --scope guard
//	combine metrics run --cohort all_time_nba --scope-matrix
//	combine metrics promote --cohort current_nba --season 2024-25 --scope guard
//	combine similarity run --cohort current_nba --season 2024-25
//	combine recompute --cohorts current_nba,all_time_nba --execute --promote
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hoopcombine/combine-data/internal/config"
	"github.com/hoopcombine/combine-data/internal/db"
	"github.com/hoopcombine/combine-data/internal/frame"
	"github.com/hoopcombine/combine-data/internal/pipeline"
	"github.com/hoopcombine/combine-data/internal/seed"
	"github.com/hoopcombine/combine-data/internal/similarity"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "combine",
		Short: "Combine Data compute CLI",
	}

	root.AddCommand(seedCmd())
	root.AddCommand(metricsCmd())
	root.AddCommand(similarityCmd())
	root.AddCommand(recomputeCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// seed command
// --------------------------------------------------------------------------

func seedCmd() *cobra.Command {
	var (
		players  string
		anthro   string
		agility  string
		shooting string
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load combine measurement CSV exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			if players == "" && anthro == "" && agility == "" && shooting == "" {
				return fmt.Errorf("at least one of --players, --anthro, --agility, --shooting is required")
			}
			return runWithPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				start := time.Now()
				result := seed.SeedMeasurements(ctx, pool.Pool, seed.Options{
					PlayersPath:  players,
					AnthroPath:   anthro,
					AgilityPath:  agility,
					ShootingPath: shooting,
				}, logger)
				logger.Info("Seed finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", result.Summary())
				for _, e := range result.Errors {
					logger.Error("seed error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&players, "players", "", "Players CSV (id, name, position, is_active, last_active_season)")
	cmd.Flags().StringVar(&anthro, "anthro", "", "Anthropometric measurements CSV")
	cmd.Flags().StringVar(&agility, "agility", "", "Agility and athleticism measurements CSV")
	cmd.Flags().StringVar(&shooting, "shooting", "", "Shooting drill measurements CSV")
	return cmd
}

// --------------------------------------------------------------------------
// metrics command
// --------------------------------------------------------------------------

func metricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute and promote metric snapshots",
	}
	cmd.AddCommand(metricsRunCmd())
	cmd.AddCommand(metricsPromoteCmd())
	return cmd
}

func metricsRunCmd() *cobra.Command {
	var (
		cohort      string
		season      string
		scope       string
		scopeMatrix bool
		sources     []string
		categories  []string
		minSample   int
		runKey      string
		dryRun      bool
		replaceRun  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute rank, percentile, and z-score snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				srcs, err := parseSources(sources)
				if err != nil {
					return err
				}
				runner := pipeline.NewRunner(pool.Pool, cfg, logger)
				start := time.Now()
				report, err := runner.Run(ctx, pipeline.RunOptions{
					Cohort:      frame.Cohort(cohort),
					SeasonCode:  season,
					ScopeToken:  scope,
					ScopeMatrix: scopeMatrix,
					Sources:     srcs,
					Categories:  categories,
					MinSample:   minSample,
					RunKey:      runKey,
					DryRun:      dryRun,
					ReplaceRun:  replaceRun,
				})
				if err != nil {
					return err
				}
				fmt.Println(report.String())
				logger.Info("Metrics run finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", report.Summary())
				for _, e := range report.Errors() {
					logger.Error("run error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&cohort, "cohort", "current_nba", "Cohort (current_nba, all_time_nba, current_draft, all_time_draft, global)")
	cmd.Flags().StringVar(&season, "season", "", "Season code (e.g. 2024-25); empty = all seasons")
	cmd.Flags().StringVar(&scope, "scope", "", "Position scope token (e.g. guard, pg_sg); empty = all positions")
	cmd.Flags().BoolVar(&scopeMatrix, "scope-matrix", false, "Compute the baseline plus every parent-group scope")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "Measurement sources (anthro, agility, shooting); empty = all")
	cmd.Flags().StringSliceVar(&categories, "category", nil, "Metric categories to include; empty = all")
	cmd.Flags().IntVar(&minSample, "min-sample", 0, "Minimum baseline size per metric (0 = configured default)")
	cmd.Flags().StringVar(&runKey, "run-key", "", "Override the composed run key")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and report but write nothing")
	cmd.Flags().BoolVar(&replaceRun, "replace-run", false, "Delete prior versions of the run key before writing")
	return cmd
}

func metricsPromoteCmd() *cobra.Command {
	var (
		cohort    string
		season    string
		scope     string
		sources   []string
		minSample int
		runKey    string
	)
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Mark the latest snapshot version current for serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				srcs, err := parseSources(sources)
				if err != nil {
					return err
				}
				runner := pipeline.NewRunner(pool.Pool, cfg, logger)
				promoted, err := runner.Promote(ctx, pipeline.PromoteOptions{
					Cohort:     frame.Cohort(cohort),
					SeasonCode: season,
					ScopeToken: scope,
					Sources:    srcs,
					MinSample:  minSample,
					RunKey:     runKey,
				})
				for _, p := range promoted {
					logger.Info("Promoted", "source", p.Source, "run_key", p.RunKey, "snapshot_id", p.SnapshotID)
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&cohort, "cohort", "current_nba", "Cohort")
	cmd.Flags().StringVar(&season, "season", "", "Season code; empty = all seasons")
	cmd.Flags().StringVar(&scope, "scope", "", "Position scope token; empty = all positions")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "Measurement sources; empty = all")
	cmd.Flags().IntVar(&minSample, "min-sample", 0, "Min sample the run was computed with (0 = configured default)")
	cmd.Flags().StringVar(&runKey, "run-key", "", "Override run key, matching the run's override")
	return cmd
}

// --------------------------------------------------------------------------
// similarity command
// --------------------------------------------------------------------------

func similarityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "similarity",
		Short: "Compute pairwise player similarity",
	}
	cmd.AddCommand(similarityRunCmd())
	return cmd
}

func similarityRunCmd() *cobra.Command {
	var (
		cohort           string
		season           string
		scope            string
		snapshotID       int
		overlapThreshold float64
		maxNeighbors     int
		weightAnthro     float64
		weightCombine    float64
		weightShooting   float64
		batchSize        int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score the current snapshot group and rewrite the similarity table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				var weights map[similarity.Dimension]float64
				if weightAnthro > 0 || weightCombine > 0 || weightShooting > 0 {
					weights = map[similarity.Dimension]float64{
						similarity.DimAnthro:   weightAnthro,
						similarity.DimCombine:  weightCombine,
						similarity.DimShooting: weightShooting,
					}
				}
				runner := pipeline.NewRunner(pool.Pool, cfg, logger)
				start := time.Now()
				report, err := runner.Similarity(ctx, pipeline.SimilarityOptions{
					Cohort:           frame.Cohort(cohort),
					SeasonCode:       season,
					ScopeToken:       scope,
					SnapshotID:       snapshotID,
					OverlapThreshold: overlapThreshold,
					MaxNeighbors:     maxNeighbors,
					Weights:          weights,
					BatchSize:        batchSize,
				})
				if err != nil {
					return err
				}
				logger.Info("Similarity run finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", report.Summary())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&cohort, "cohort", "current_nba", "Cohort")
	cmd.Flags().StringVar(&season, "season", "", "Season code; empty = all seasons")
	cmd.Flags().StringVar(&scope, "scope", "", "Position scope token; empty = all positions")
	cmd.Flags().IntVar(&snapshotID, "snapshot-id", 0, "Address the group via one member snapshot id instead of cohort flags")
	cmd.Flags().Float64Var(&overlapThreshold, "overlap-threshold", 0, "Min shared-metric fraction per pair (0 = configured default)")
	cmd.Flags().IntVar(&maxNeighbors, "max-neighbors", 0, "Keep only the top N neighbors per player (0 = configured default)")
	cmd.Flags().Float64Var(&weightAnthro, "weight-anthro", 0, "Composite weight for the anthro dimension")
	cmd.Flags().Float64Var(&weightCombine, "weight-combine", 0, "Composite weight for the combine dimension")
	cmd.Flags().Float64Var(&weightShooting, "weight-shooting", 0, "Composite weight for the shooting dimension")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Insert batch size (0 = configured default)")
	return cmd
}

// --------------------------------------------------------------------------
// recompute command
// --------------------------------------------------------------------------

func recomputeCmd() *cobra.Command {
	var (
		cohorts        []string
		draftSeasons   []string
		promote        bool
		execute        bool
		withSimilarity bool
		minSample      int
	)
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Refresh the full scope matrix for one or more cohorts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithPool(func(ctx context.Context, cfg *config.Config, pool *db.Pool) error {
				targets := make([]frame.Cohort, 0, len(cohorts))
				for _, c := range cohorts {
					targets = append(targets, frame.Cohort(strings.TrimSpace(c)))
				}
				runner := pipeline.NewRunner(pool.Pool, cfg, logger)
				start := time.Now()
				report, err := runner.Recompute(ctx, pipeline.RecomputeOptions{
					Cohorts:        targets,
					DraftSeasons:   draftSeasons,
					Promote:        promote,
					Execute:        execute,
					WithSimilarity: withSimilarity,
					MinSample:      minSample,
				})
				if err != nil {
					return err
				}
				logger.Info("Recompute finished",
					"duration", time.Since(start).Round(time.Second),
					"summary", report.Summary())
				for _, e := range report.Errors {
					logger.Error("recompute error", "error", e)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&cohorts, "cohorts", []string{"current_nba"}, "Target cohorts")
	cmd.Flags().StringSliceVar(&draftSeasons, "draft-seasons", nil, "Season codes to sweep for the draft cohorts")
	cmd.Flags().BoolVar(&promote, "promote", false, "Promote each written snapshot (requires --execute)")
	cmd.Flags().BoolVar(&execute, "execute", false, "Write snapshots; default is a dry run")
	cmd.Flags().BoolVar(&withSimilarity, "with-similarity", false, "Recompute similarity after promotion")
	cmd.Flags().IntVar(&minSample, "min-sample", 0, "Minimum baseline size per metric (0 = configured default)")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

func parseSources(tokens []string) ([]frame.Source, error) {
	var srcs []frame.Source
	for _, t := range tokens {
		src, ok := frame.ParseSource(strings.TrimSpace(t))
		if !ok {
			return nil, fmt.Errorf("unknown source %q", t)
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}

// runWithPool handles config loading, DB connection, and context cancellation.
func runWithPool(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, cfg, pool)
}
