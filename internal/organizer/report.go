package organizer

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

// Reporter renders run results as CSV and HTML files in a report directory.
type Reporter struct {
	dir         string
	highScore   float64
	mediumScore float64
	logger      *zap.Logger
}

// NewReporter creates a reporter. The score thresholds control row
// highlighting in the HTML output.
func NewReporter(dir string, highScore, mediumScore float64, logger *zap.Logger) *Reporter {
	return &Reporter{
		dir:         dir,
		highScore:   highScore,
		mediumScore: mediumScore,
		logger:      logger,
	}
}

type reportRow struct {
	Subject   string
	Sender    string
	Score     float64
	Sender0   float64
	Topic0    float64
	Temporal0 float64
	State0    float64
	Category  string
	Urgency   string
	Rule      string
	Folder    string
	Actions   string
	Reasoning string
	Class     string
}

// Write renders both report formats and returns their file paths.
func (r *Reporter) Write(result *RunResult) (csvPath, htmlPath string, err error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create report directory: %w", err)
	}

	stamp := result.StartedAt.Format("20060102-150405")
	csvPath = filepath.Join(r.dir, fmt.Sprintf("inbox-report-%s.csv", stamp))
	htmlPath = filepath.Join(r.dir, fmt.Sprintf("inbox-report-%s.html", stamp))

	rows := r.buildRows(result)

	if err := r.writeCSV(csvPath, rows); err != nil {
		return "", "", fmt.Errorf("failed to write CSV report: %w", err)
	}
	if err := r.writeHTML(htmlPath, result, rows); err != nil {
		return "", "", fmt.Errorf("failed to write HTML report: %w", err)
	}

	r.logger.Info("Reports written",
		zap.String("csv", csvPath),
		zap.String("html", htmlPath),
		zap.Int("rows", len(rows)))
	return csvPath, htmlPath, nil
}

func (r *Reporter) buildRows(result *RunResult) []reportRow {
	rows := make([]reportRow, 0, len(result.Evaluations))
	for _, ev := range result.Evaluations {
		row := reportRow{
			Subject:   ev.Record.Subject,
			Sender:    senderLabel(ev.Record),
			Score:     ev.Breakdown.Final,
			Sender0:   ev.Breakdown.Sender,
			Topic0:    ev.Breakdown.Topic,
			Temporal0: ev.Breakdown.Temporal,
			State0:    ev.Breakdown.State,
			Rule:      ev.Decision.Rule,
			Folder:    ev.Decision.Folder,
			Actions:   actionsLabel(ev.Decision),
			Reasoning: strings.Join(ev.Decision.Reasoning, "; "),
		}
		if cls := ev.Record.Classification; cls != nil {
			row.Category = string(cls.Category)
			row.Urgency = string(cls.Urgency)
		}
		switch {
		case row.Score >= r.highScore:
			row.Class = "high"
		case row.Score >= r.mediumScore:
			row.Class = "medium"
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Score > rows[j].Score })
	return rows
}

func (r *Reporter) writeCSV(path string, rows []reportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"subject", "sender", "score",
		"sender_score", "topic_score", "temporal_score", "state_score",
		"category", "urgency", "rule", "folder", "actions", "reasoning",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Subject,
			row.Sender,
			formatScore(row.Score),
			formatScore(row.Sender0),
			formatScore(row.Topic0),
			formatScore(row.Temporal0),
			formatScore(row.State0),
			row.Category,
			row.Urgency,
			row.Rule,
			row.Folder,
			row.Actions,
			row.Reasoning,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (r *Reporter) writeHTML(path string, result *RunResult, rows []reportRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	data := struct {
		RunID     string
		Generated string
		DryRun    bool
		Stats     Stats
		Rows      []reportRow
	}{
		RunID:     result.RunID,
		Generated: result.FinishedAt.Format("2006-01-02 15:04:05 MST"),
		DryRun:    result.DryRun,
		Stats:     result.Stats,
		Rows:      rows,
	}
	return reportTemplate.Execute(f, data)
}

func senderLabel(rec core.MessageRecord) string {
	if rec.SenderName != "" {
		return fmt.Sprintf("%s <%s>", rec.SenderName, rec.SenderAddr)
	}
	return rec.SenderAddr
}

func actionsLabel(d core.Decision) string {
	var actions []string
	if d.Flag {
		actions = append(actions, "flag")
	}
	if d.CreateTask {
		actions = append(actions, "task")
	}
	if len(actions) == 0 {
		return "-"
	}
	return strings.Join(actions, ", ")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Inbox Organizer Report</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; }
h1 { color: #333; }
table { border-collapse: collapse; width: 100%; margin-top: 15px; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f2f2f2; }
tr:nth-child(even) { background-color: #f9f9f9; }
tr.high td { background-color: #ffe3e0; }
tr.medium td { background-color: #fff3d6; }
.summary { background-color: #f2f2f2; padding: 10px 15px; border-radius: 5px; }
.muted { color: #666; }
</style>
</head>
<body>
<h1>Inbox Organizer Report</h1>
<div class="summary">
<p>Run {{.RunID}} generated {{.Generated}}{{if .DryRun}} <strong>(dry run)</strong>{{end}}</p>
<p>{{.Stats.Processed}} processed &middot; {{.Stats.Moved}} moved &middot; {{.Stats.Flagged}} flagged &middot;
{{.Stats.Tasks}} tasks &middot; {{.Stats.Skipped}} skipped &middot; {{.Stats.Errors}} errors</p>
</div>
<table>
<tr>
<th>Score</th><th>Sender</th><th>Subject</th><th>Category</th><th>Urgency</th>
<th>Rule</th><th>Folder</th><th>Actions</th><th>Reasoning</th>
</tr>
{{range .Rows}}<tr class="{{.Class}}">
<td>{{printf "%.3f" .Score}}</td>
<td>{{.Sender}}</td>
<td>{{.Subject}}</td>
<td>{{.Category}}</td>
<td>{{.Urgency}}</td>
<td>{{.Rule}}</td>
<td>{{.Folder}}</td>
<td>{{.Actions}}</td>
<td class="muted">{{.Reasoning}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))
