package organizer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

// Stats counts what one organizer run decided and did.
type Stats struct {
	Processed      int
	Moved          int
	Flagged        int
	Tasks          int
	DueToday       int
	HighPriority   int
	MediumPriority int
	Important      int
	ActionRequired int
	Categorized    int
	Archived       int
	Skipped        int
	Errors         int
}

// RunResult is the outcome of one organizer pass over the inbox.
type RunResult struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	DryRun      bool
	Stats       Stats
	Evaluations []*core.Evaluation
}

// Organizer drives the full pipeline: analysis over mailbox history, then
// evaluation and (unless dry-run) execution of each inbox decision.
type Organizer struct {
	service     *core.OrganizerService
	mail        core.MailStore
	dryRun      bool
	maxMessages int
	logger      *zap.Logger
}

// New creates an organizer. maxMessages bounds how many inbox messages one
// run evaluates; dryRun logs decisions without touching the mail store.
func New(service *core.OrganizerService, mail core.MailStore, dryRun bool, maxMessages int, logger *zap.Logger) *Organizer {
	return &Organizer{
		service:     service,
		mail:        mail,
		dryRun:      dryRun,
		maxMessages: maxMessages,
		logger:      logger,
	}
}

// Run executes one full organize pass and returns its result. Per-message
// failures are counted, logged and skipped; only listing or analysis
// failures abort the run.
func (o *Organizer) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{
		StartedAt: time.Now().UTC(),
		DryRun:    o.dryRun,
	}

	analysisLimit := o.service.ScoringConfig().Analysis.MaxEmails
	sent, err := o.mail.ListSent(ctx, analysisLimit)
	if err != nil {
		return nil, err
	}
	inbox, err := o.mail.ListInbox(ctx, analysisLimit)
	if err != nil {
		return nil, err
	}

	snap, err := o.service.Analyze(ctx, sent, inbox)
	if err != nil {
		return nil, err
	}
	result.RunID = snap.RunID

	for _, rec := range inbox {
		if o.maxMessages > 0 && result.Stats.Processed >= o.maxMessages {
			break
		}
		if rec.Deleted {
			continue
		}

		ev, err := o.service.EvaluateMessage(ctx, rec, snap)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Stats.Errors++
			o.logger.Error("Failed to evaluate message",
				zap.String("subject", rec.Subject),
				zap.String("sender", rec.SenderAddr),
				zap.Error(err))
			continue
		}

		result.Stats.Processed++
		o.count(&result.Stats, ev)
		result.Evaluations = append(result.Evaluations, ev)
		o.apply(ctx, &result.Stats, ev)
	}

	result.FinishedAt = time.Now().UTC()
	o.logger.Info("Organizer run complete",
		zap.String("run_id", result.RunID),
		zap.Bool("dry_run", o.dryRun),
		zap.Int("processed", result.Stats.Processed),
		zap.Int("moved", result.Stats.Moved),
		zap.Int("flagged", result.Stats.Flagged),
		zap.Int("tasks", result.Stats.Tasks),
		zap.Int("skipped", result.Stats.Skipped),
		zap.Int("errors", result.Stats.Errors))
	return result, nil
}

func (o *Organizer) count(stats *Stats, ev *core.Evaluation) {
	switch ev.Decision.Rule {
	case "flagged-due-today":
		stats.DueToday++
	case "high-priority":
		stats.HighPriority++
	case "medium-priority":
		stats.MediumPriority++
	case "high-importance":
		stats.Important++
	case "action-required":
		stats.ActionRequired++
	case "category":
		stats.Categorized++
	case "archive-category":
		stats.Archived++
	}
}

func (o *Organizer) apply(ctx context.Context, stats *Stats, ev *core.Evaluation) {
	d := ev.Decision
	rec := ev.Record

	if d.Folder == "" && !d.Flag && !d.CreateTask {
		stats.Skipped++
		return
	}

	if o.dryRun {
		o.logger.Info("Dry run: decision not applied",
			zap.String("subject", rec.Subject),
			zap.String("sender", rec.SenderAddr),
			zap.String("rule", d.Rule),
			zap.String("folder", d.Folder),
			zap.Bool("flag", d.Flag),
			zap.Bool("task", d.CreateTask),
			zap.Float64("score", ev.Breakdown.Final))
	}

	if d.Flag && !rec.Flagged {
		if o.dryRun {
			stats.Flagged++
		} else if err := o.mail.Flag(ctx, rec.StoreRef); err != nil {
			stats.Errors++
			o.logger.Error("Failed to flag message", zap.String("ref", rec.StoreRef), zap.Error(err))
		} else {
			stats.Flagged++
		}
	}

	if d.CreateTask {
		due := o.taskDue(rec)
		if o.dryRun {
			stats.Tasks++
		} else if err := o.mail.CreateTask(ctx, rec, due); err != nil {
			stats.Errors++
			o.logger.Error("Failed to create task", zap.String("ref", rec.StoreRef), zap.Error(err))
		} else {
			stats.Tasks++
		}
	}

	if d.Folder != "" && d.Folder != rec.FolderPath {
		if o.dryRun {
			stats.Moved++
		} else if err := o.mail.Move(ctx, rec.StoreRef, d.Folder); err != nil {
			stats.Errors++
			o.logger.Error("Failed to move message",
				zap.String("ref", rec.StoreRef),
				zap.String("folder", d.Folder),
				zap.Error(err))
		} else {
			stats.Moved++
		}
	}
}

// taskDue picks the follow-up time: the message's own due date when it has
// one, otherwise the configured reminder offset from the observation time.
func (o *Organizer) taskDue(rec core.MessageRecord) time.Time {
	if rec.HasDueDate() {
		return rec.DueDate
	}
	days := o.service.ScoringConfig().Decision.TaskReminderDays
	return rec.ObservedAt.AddDate(0, 0, days)
}
