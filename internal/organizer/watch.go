package organizer

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ReportSender delivers a finished run report to the mailbox owner.
type ReportSender interface {
	SendReport(ctx context.Context, subject string, htmlBody []byte) error
}

// Watcher runs the organizer on a cron schedule until its context is
// cancelled. Reports are written after each successful run when a reporter
// is configured, and mailed when a sender is.
type Watcher struct {
	organizer *Organizer
	reporter  *Reporter
	sender    ReportSender
	schedule  cron.Schedule
	logger    *zap.Logger
}

// NewWatcher parses a standard five-field cron expression and returns a
// watcher driving the organizer on that schedule. sender may be nil.
func NewWatcher(org *Organizer, reporter *Reporter, sender ReportSender, spec string, logger *zap.Logger) (*Watcher, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Watcher{
		organizer: org,
		reporter:  reporter,
		sender:    sender,
		schedule:  sched,
		logger:    logger,
	}, nil
}

// Run blocks until ctx is cancelled, executing the organizer at each
// scheduled time. A failed run is logged and the watcher keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		next := w.schedule.Next(time.Now())
		w.logger.Info("Next organizer run scheduled", zap.Time("at", next))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(next)):
		}

		result, err := w.organizer.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("Scheduled organizer run failed", zap.Error(err))
			continue
		}

		if w.reporter != nil {
			_, htmlPath, err := w.reporter.Write(result)
			if err != nil {
				w.logger.Error("Failed to write reports", zap.Error(err))
				continue
			}
			if w.sender != nil {
				w.mailReport(ctx, result, htmlPath)
			}
		}
	}
}

func (w *Watcher) mailReport(ctx context.Context, result *RunResult, htmlPath string) {
	body, err := os.ReadFile(htmlPath)
	if err != nil {
		w.logger.Error("Failed to read report for mailing", zap.String("path", htmlPath), zap.Error(err))
		return
	}
	subject := fmt.Sprintf("Inbox report %s: %d processed, %d moved, %d flagged",
		result.FinishedAt.Format("2006-01-02 15:04"),
		result.Stats.Processed, result.Stats.Moved, result.Stats.Flagged)
	if err := w.sender.SendReport(ctx, subject, body); err != nil {
		w.logger.Error("Failed to mail report", zap.Error(err))
	}
}
