package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/config"
	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/di"
	"github.com/gnuru1/InboxWrangler/internal/organizer"
)

func main() {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	command := "organize"
	args := []string{}
	if len(os.Args) > 1 {
		command = os.Args[1]
		args = os.Args[2:]
	}
	if command == "help" || command == "-h" || command == "--help" {
		usage()
		return
	}

	overrides, err := parseCommandFlags(command, args)
	if err != nil {
		os.Exit(2)
	}

	// Build the dependency injection container
	container, err := di.BuildContainer(overrides...)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	var runErr error
	switch command {
	case "analyze":
		runErr = container.Invoke(runAnalyze)
	case "organize":
		runErr = container.Invoke(runOrganize)
	case "report":
		runErr = container.Invoke(runReport)
	case "watch":
		runErr = container.Invoke(runWatch)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		usage()
		os.Exit(2)
	}
	if runErr != nil {
		fmt.Printf("Application error: %v\n", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`Usage: inbox-wrangler [command] [flags]

Commands:
  analyze   rebuild sender profiles and scores from mailbox history
            --limit N       cap the messages read per folder
  organize  analyze, evaluate the inbox and apply decisions (default)
            --limit N       cap the inbox messages evaluated per run
            --apply         apply decisions instead of the default dry run
  report    evaluate the inbox without applying decisions and write reports
            --limit N       cap the inbox messages evaluated per run
            --output DIR    directory to write the CSV and HTML reports to
  watch     run organize on the configured schedule until interrupted
            --schedule SPEC cron schedule for the periodic runs
            --apply         apply decisions instead of the default dry run

Flags override config.yaml (see configs/) and the INBOX_WRANGLER_*
environment variables for the run.
`)
}

// parseCommandFlags parses the flags a subcommand accepts and turns the ones
// that were explicitly given into configuration overrides.
func parseCommandFlags(command string, args []string) ([]di.ConfigOverride, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)

	var (
		limit    int
		apply    bool
		output   string
		schedule string
	)
	switch command {
	case "analyze":
		fs.IntVar(&limit, "limit", 0, "cap the messages read per folder")
	case "organize":
		fs.IntVar(&limit, "limit", 0, "cap the inbox messages evaluated per run")
		fs.BoolVar(&apply, "apply", false, "apply decisions instead of the default dry run")
	case "report":
		fs.IntVar(&limit, "limit", 0, "cap the inbox messages evaluated per run")
		fs.StringVar(&output, "output", "", "directory to write the CSV and HTML reports to")
	case "watch":
		fs.StringVar(&schedule, "schedule", "", "cron schedule for the periodic runs")
		fs.BoolVar(&apply, "apply", false, "apply decisions instead of the default dry run")
	default:
		return nil, nil
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Only flags the user actually passed override the configuration.
	var overrides []di.ConfigOverride
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "limit":
			overrides = append(overrides, func(cfg *config.Config) {
				cfg.GetViper().Set("scoring.analysis.max_emails", limit)
				cfg.GetViper().Set("organizer.max_messages", limit)
			})
		case "apply":
			overrides = append(overrides, func(cfg *config.Config) {
				cfg.GetViper().Set("organizer.dry_run", !apply)
			})
		case "output":
			overrides = append(overrides, func(cfg *config.Config) {
				cfg.GetViper().Set("organizer.report_dir", output)
			})
		case "schedule":
			overrides = append(overrides, func(cfg *config.Config) {
				cfg.GetViper().Set("organizer.schedule", schedule)
			})
		}
	})
	return overrides, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Shutting down...", zap.String("signal", sig.String()))
		cancel()
	}()
	return ctx, cancel
}

func runAnalyze(
	service *core.OrganizerService,
	mail core.MailStore,
	classifier core.Classifier,
	cacheRepo core.CacheRepository,
	store core.StateStore,
	logger *zap.Logger,
) error {
	defer logger.Sync()
	defer releaseResources(classifier, cacheRepo, store, logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	limit := service.ScoringConfig().Analysis.MaxEmails
	sent, err := mail.ListSent(ctx, limit)
	if err != nil {
		return err
	}
	inbox, err := mail.ListInbox(ctx, limit)
	if err != nil {
		return err
	}
	snap, err := service.Analyze(ctx, sent, inbox)
	if err != nil {
		return err
	}

	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Run ID: %s\n", snap.RunID)
	fmt.Printf("Sent messages: %d\n", len(sent))
	fmt.Printf("Inbox messages: %d\n", len(inbox))
	fmt.Printf("Known identities: %d\n", len(snap.Identities))
	fmt.Printf("Behavior profiles: %d\n", len(snap.Profiles))
	fmt.Printf("Sender scores: %d\n", len(snap.SenderScores))
	return nil
}

func runOrganize(
	org *organizer.Organizer,
	reporter *organizer.Reporter,
	classifier core.Classifier,
	cacheRepo core.CacheRepository,
	store core.StateStore,
	logger *zap.Logger,
) error {
	defer logger.Sync()
	defer releaseResources(classifier, cacheRepo, store, logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	result, err := org.Run(ctx)
	if err != nil {
		return err
	}
	csvPath, htmlPath, err := reporter.Write(result)
	if err != nil {
		logger.Error("Failed to write reports", zap.Error(err))
	}
	printRunSummary(result, csvPath, htmlPath)
	return nil
}

func runReport(
	service *core.OrganizerService,
	mail core.MailStore,
	reporter *organizer.Reporter,
	cfg *config.Config,
	classifier core.Classifier,
	cacheRepo core.CacheRepository,
	store core.StateStore,
	logger *zap.Logger,
) error {
	defer logger.Sync()
	defer releaseResources(classifier, cacheRepo, store, logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	// Reporting never mutates the mailbox, whatever organizer.dry_run says
	orgCfg := cfg.GetOrganizer()
	org := organizer.New(service, mail, true, orgCfg.MaxMessages, logger)

	result, err := org.Run(ctx)
	if err != nil {
		return err
	}
	csvPath, htmlPath, err := reporter.Write(result)
	if err != nil {
		return err
	}
	printRunSummary(result, csvPath, htmlPath)
	return nil
}

func runWatch(
	watcher *organizer.Watcher,
	classifier core.Classifier,
	cacheRepo core.CacheRepository,
	store core.StateStore,
	logger *zap.Logger,
) error {
	defer logger.Sync()
	defer releaseResources(classifier, cacheRepo, store, logger)

	ctx, cancel := signalContext(logger)
	defer cancel()

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

func printRunSummary(result *organizer.RunResult, csvPath, htmlPath string) {
	fmt.Printf("\n=== Organizer Run ===\n")
	fmt.Printf("Run ID: %s\n", result.RunID)
	if result.DryRun {
		fmt.Printf("Mode: dry run (no changes applied)\n")
	}
	fmt.Printf("Processed: %d\n", result.Stats.Processed)
	fmt.Printf("Moved: %d\n", result.Stats.Moved)
	fmt.Printf("Flagged: %d\n", result.Stats.Flagged)
	fmt.Printf("Tasks created: %d\n", result.Stats.Tasks)
	fmt.Printf("Skipped: %d\n", result.Stats.Skipped)
	fmt.Printf("Errors: %d\n", result.Stats.Errors)
	if csvPath != "" {
		fmt.Printf("CSV report: %s\n", csvPath)
		fmt.Printf("HTML report: %s\n", htmlPath)
	}
	fmt.Printf("Duration: %v\n", result.FinishedAt.Sub(result.StartedAt))
}

// releaseResources closes adapters that hold connections or background tasks.
func releaseResources(classifier core.Classifier, cacheRepo core.CacheRepository, store core.StateStore, logger *zap.Logger) {
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}
	if stopper, ok := cacheRepo.(interface{ Stop() }); ok {
		stopper.Stop()
	}
	if stopper, ok := store.(interface{ Stop() }); ok {
		stopper.Stop()
	}
}
