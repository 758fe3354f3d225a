package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/adapters/mailstore"
	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/di"
)

func main() {
	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(
	flags *di.CLIFlags,
	service *core.OrganizerService,
	classifier core.Classifier,
	stateStore core.StateStore,
	logger *zap.Logger,
) error {
	defer logger.Sync()
	defer func() {
		if stopper, ok := stateStore.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}()

	// Read email from file or stdin
	var emailReader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", flags.InputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	raw, err := io.ReadAll(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to read email", zap.Error(err))
	}

	rec, err := mailstore.ParseRecord(raw, time.Now().UTC())
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	// A persisted analysis supplies sender history; an empty store yields an
	// empty snapshot and scoring falls back to the neutral defaults.
	snap, err := service.LoadSnapshot(context.Background())
	if err != nil {
		logger.Warn("Failed to load persisted analysis; scoring with neutral sender history", zap.Error(err))
		snap = nil
	}

	if flags.Quiet {
		ev, err := service.EvaluateMessage(context.Background(), rec, snap)
		if err != nil {
			logger.Fatal("Failed to evaluate email", zap.Error(err))
		}
		fmt.Printf("%.4f %s\n", ev.Breakdown.Final, ev.Decision.Rule)
		os.Exit(priorityBandExitCode(ev.Decision.Rule))
	}

	// Print email summary
	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", senderLine(rec))
	fmt.Printf("Subject: %s\n", rec.Subject)
	fmt.Printf("Received: %s\n", rec.Received.Format(time.RFC1123Z))
	fmt.Printf("Body length: %d bytes\n", len(rec.Body))

	fmt.Printf("\n=== Analysis ===\n")
	fmt.Printf("Provider: %s\n", classifier.Name())
	if snap != nil {
		fmt.Printf("Known senders: %d\n", len(snap.SenderScores))
	}

	startTime := time.Now()

	ev, err := service.EvaluateMessage(context.Background(), rec, snap)
	if err != nil {
		logger.Fatal("Failed to evaluate email", zap.Error(err))
	}
	duration := time.Since(startTime)

	// Print results
	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Final score: %.4f\n", ev.Breakdown.Final)
	fmt.Printf("  sender:    %.4f%s\n", ev.Breakdown.Sender, neutralNote(ev.Breakdown))
	fmt.Printf("  topic:     %.4f\n", ev.Breakdown.Topic)
	fmt.Printf("  temporal:  %.4f\n", ev.Breakdown.Temporal)
	fmt.Printf("  state:     %.4f\n", ev.Breakdown.State)
	fmt.Printf("  recipient: %.4f\n", ev.Breakdown.Recipient)

	if cls := ev.Record.Classification; cls != nil {
		fmt.Printf("Category: %s\n", cls.Category)
		fmt.Printf("Urgency: %s\n", cls.Urgency)
		if len(cls.Topics) > 0 {
			fmt.Printf("Topics: %s\n", strings.Join(cls.Topics, ", "))
		}
		if len(cls.ActionItems) > 0 {
			fmt.Printf("Action items:\n")
			for _, item := range cls.ActionItems {
				fmt.Printf("  - %s\n", item)
			}
		}
		fmt.Printf("Classifier used: %s\n", cls.Source)
	}

	fmt.Printf("\n=== Decision ===\n")
	fmt.Printf("Rule: %s\n", ev.Decision.Rule)
	if ev.Decision.Folder != "" {
		fmt.Printf("Folder: %s\n", ev.Decision.Folder)
	}
	fmt.Printf("Flag: %t\n", ev.Decision.Flag)
	fmt.Printf("Create task: %t\n", ev.Decision.CreateTask)
	for _, reason := range ev.Decision.Reasoning {
		fmt.Printf("  - %s\n", reason)
	}
	fmt.Printf("Processing time: %v\n", duration)

	// Close any resources that need closing
	if closer, ok := classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close classifier", zap.Error(err))
		}
	}
	return nil
}

// priorityBandExitCode maps the decision rule to a shell-friendly exit code
// so scripts can branch on the priority band without parsing output.
func priorityBandExitCode(rule string) int {
	switch rule {
	case "flagged-due-today", "high-priority", "high-importance":
		return 0
	case "medium-priority":
		return 1
	default:
		return 2
	}
}

func senderLine(rec core.MessageRecord) string {
	if rec.SenderName != "" {
		return fmt.Sprintf("%s <%s>", rec.SenderName, rec.SenderAddr)
	}
	return rec.SenderAddr
}

func neutralNote(b core.ScoreBreakdown) string {
	if b.SenderNeutral {
		return " (neutral: no history)"
	}
	return ""
}
