// Command ytscribe extracts transcripts from a YouTube channel into an
// organized, resumable archive.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ytscribe/config"
	"ytscribe/extract"
	"ytscribe/internal/httpx"
	"ytscribe/internal/logger"
	"ytscribe/internal/retry"
	"ytscribe/report"
	"ytscribe/sink"
	"ytscribe/storage"
	"ytscribe/youtube"
)

var (
	configFile string
	channel    string
	batchSize  int
	maxVideos  int
	noResume   bool
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "ytscribe",
	Short: "Resumable YouTube channel transcript extraction",
	Long: `ytscribe walks a YouTube channel's uploads, fetches transcripts with
bounded retry, and files them into a tractate-organized archive. Progress is
checkpointed after every batch, so an interrupted run resumes where it
stopped.`,
	SilenceUsage: true,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run the extraction loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sum, err := app.runner.Run(ctx, app.options(dryRun))
		printSummary(sum)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List channel videos and show what a run would do",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp()
		if err != nil {
			return err
		}
		defer app.close()

		sum, err := app.runner.Run(cmd.Context(), app.options(true))
		if err != nil {
			return err
		}
		fmt.Printf("Channel:   %s\n", sum.Channel)
		fmt.Printf("Videos:    %d\n", sum.Total)
		fmt.Printf("Done:      %d\n", sum.Skipped)
		fmt.Printf("Pending:   %d\n", sum.Total-sum.Skipped)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenerate catalog indexes and the summary report",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		w := report.NewWriter(cfg.Output.Directory, log)

		if err := w.WriteIndexes(); err != nil {
			return err
		}
		entries, err := report.ReadCatalog(filepath.Join(cfg.Output.Directory, report.CatalogFileName))
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("No catalog yet; indexes regenerated.")
				return nil
			}
			return err
		}
		if _, err := w.WriteSummary(entries, nil); err != nil {
			return err
		}
		fmt.Printf("Reports regenerated for %d catalog entries.\n", len(entries))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show extraction progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := storage.NewJSONProgressStore(progressPath(cfg))
		if err != nil {
			return err
		}
		defer store.Close()

		state, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Progress file:       %s\n", store.Path())
		fmt.Printf("Completed:           %d\n", len(state.Completed))
		fmt.Printf("Permanent failures:  %d\n", len(state.PermanentFailures))
		fmt.Printf("Last batch index:    %d\n", state.LastBatchIndex)
		fmt.Printf("Total processed:     %d\n", state.TotalProcessed)
		if !state.UpdatedAt.IsZero() {
			fmt.Printf("Last updated:        %s\n", state.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var clearFailuresCmd = &cobra.Command{
	Use:   "clear-failures",
	Short: "Forget permanent failures so the next run retries them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := storage.NewJSONProgressStore(progressPath(cfg))
		if err != nil {
			return err
		}
		defer store.Close()

		state, err := store.Load(cmd.Context())
		if err != nil {
			return err
		}
		cleared := state.ClearFailures()
		if len(cleared) == 0 {
			fmt.Println("No permanent failures recorded.")
			return nil
		}
		if err := store.Save(cmd.Context(), state); err != nil {
			return err
		}
		fmt.Printf("Cleared %d permanent failures; they will be retried on the next run.\n", len(cleared))
		return nil
	},
}

// app bundles the wired-up collaborators for one invocation.
type app struct {
	cfg      *config.Config
	runner   *extract.Runner
	store    *storage.JSONProgressStore
	attempts *storage.AttemptLog
}

func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	logFile := cfg.Log.File
	if logFile != "" {
		logFile = resolvePath(cfg.Output.Directory, logFile)
	}
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   logFile,
	})
	logger.SetDefault(log)
	return cfg, log, nil
}

func progressPath(cfg *config.Config) string {
	return resolvePath(cfg.Output.Directory, cfg.Output.ProgressFile)
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func buildApp() (*app, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.YouTube.APIKey == "" {
		return nil, errors.New("YouTube API key required: set YOUTUBE_API_KEY or youtube.api_key")
	}

	httpClient := httpx.New(&httpx.Config{
		Timeout:           cfg.HTTP.Timeout(),
		UserAgent:         cfg.HTTP.UserAgent,
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Transport: httpx.TransportConfig{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			ForceAttemptHTTP2:   true,
		},
	})

	lister, err := youtube.NewAPILister(context.Background(), cfg.YouTube.APIKey, log)
	if err != nil {
		return nil, err
	}
	source := youtube.NewTimedtextClient(httpClient, cfg.Extraction.Languages)

	store, err := storage.NewJSONProgressStore(progressPath(cfg))
	if err != nil {
		return nil, err
	}
	attempts, err := storage.NewAttemptLog(resolvePath(cfg.Output.Directory, cfg.Output.AttemptLog))
	if err != nil {
		store.Close()
		return nil, err
	}

	runner, err := extract.NewRunner(extract.Deps{
		Lister:   lister,
		Source:   source,
		Sink:     sink.NewFileSink(cfg.Output.Directory, log),
		Store:    store,
		Attempts: attempts,
		Reporter: report.NewWriter(cfg.Output.Directory, log),
		Log:      log,
	})
	if err != nil {
		attempts.Close()
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, runner: runner, store: store, attempts: attempts}, nil
}

func (a *app) options(dry bool) extract.Options {
	ch := a.cfg.Channel.Handle
	if channel != "" {
		ch = channel
	}
	bs := a.cfg.Extraction.BatchSize
	if batchSize > 0 {
		bs = batchSize
	}
	mv := a.cfg.Extraction.MaxVideos
	if maxVideos > 0 {
		mv = maxVideos
	}
	return extract.Options{
		Channel:   ch,
		BatchSize: bs,
		Retry: retry.Config{
			MaxAttempts: a.cfg.Extraction.MaxRetries,
			BaseDelay:   a.cfg.Extraction.RetryDelay(),
			MaxDelay:    retry.DefaultConfig().MaxDelay,
		},
		ItemDelay:  a.cfg.Extraction.ItemDelay(),
		BatchDelay: a.cfg.Extraction.BatchDelay(),
		MaxVideos:  mv,
		NoResume:   noResume,
		DryRun:     dry,
	}
}

func (a *app) close() {
	a.attempts.Close()
	a.store.Close()
	logger.Close()
}

func printSummary(sum *extract.Summary) {
	if sum == nil {
		return
	}
	fmt.Printf("\nRun %s: %s\n", sum.RunID, sum.Status)
	fmt.Printf("  videos:    %d (skipped %d already done)\n", sum.Total, sum.Skipped)
	fmt.Printf("  succeeded: %d\n", sum.Succeeded)
	fmt.Printf("  failed:    %d\n", sum.Failed)
	fmt.Printf("  batches:   %d\n", sum.Batches)
	if sum.BlockedAt != "" {
		fmt.Printf("  halted at: %s (source is throttling; wait before retrying)\n", sum.BlockedAt)
	}
	fmt.Printf("  duration:  %s\n", sum.EndedAt.Sub(sum.StartedAt).Round(time.Second))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: ./ytscribe.yaml)")
	extractCmd.Flags().StringVar(&channel, "channel", "", "Channel handle, URL, or ID (overrides config)")
	extractCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Videos per checkpoint batch (overrides config)")
	extractCmd.Flags().IntVar(&maxVideos, "max-videos", 0, "Limit how many videos are considered")
	extractCmd.Flags().BoolVar(&noResume, "no-resume", false, "Ignore prior progress and process every video again")
	extractCmd.Flags().BoolVar(&dryRun, "dry-run", false, "List and partition without fetching")
	scanCmd.Flags().StringVar(&channel, "channel", "", "Channel handle, URL, or ID (overrides config)")

	rootCmd.AddCommand(extractCmd, scanCmd, reportCmd, statusCmd, clearFailuresCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
