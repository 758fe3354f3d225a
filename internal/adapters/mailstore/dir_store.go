package mailstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
	"github.com/gnuru1/InboxWrangler/internal/utils"
)

const maildirFlagSeparator = ":2,"

// DirStore is a MailStore over a maildir-style directory tree:
//
//	<root>/inbox/new/  unread messages
//	<root>/inbox/cur/  seen messages, flags encoded in the ":2," suffix
//	<root>/sent/...    same layout for sent items
//
// It exists for local runs and tests; no server required.
type DirStore struct {
	root          string
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewDirStore creates a new directory-backed mail store
func NewDirStore(root string, textProcessor *utils.TextProcessor, logger *zap.Logger) *DirStore {
	return &DirStore{
		root:          root,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// ListInbox returns up to limit inbox snapshots, newest first
func (s *DirStore) ListInbox(_ context.Context, limit int) ([]core.MessageRecord, error) {
	return s.list("inbox", limit)
}

// ListSent returns up to limit sent-item snapshots, newest first
func (s *DirStore) ListSent(_ context.Context, limit int) ([]core.MessageRecord, error) {
	return s.list("sent", limit)
}

func (s *DirStore) list(mailbox string, limit int) ([]core.MessageRecord, error) {
	observedAt := time.Now().UTC()
	var records []core.MessageRecord

	for _, sub := range []string{"new", "cur"} {
		dir := filepath.Join(s.root, mailbox, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			rec, err := s.readMessage(mailbox, sub, entry.Name(), observedAt)
			if err != nil {
				s.logger.Warn("Skipping unreadable message",
					zap.String("file", entry.Name()),
					zap.Error(err))
				continue
			}
			records = append(records, rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Received.After(records[j].Received)
	})
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *DirStore) readMessage(mailbox, sub, name string, observedAt time.Time) (core.MessageRecord, error) {
	rel := filepath.Join(mailbox, sub, name)
	raw, err := os.ReadFile(filepath.Join(s.root, rel))
	if err != nil {
		return core.MessageRecord{}, err
	}

	pm, err := parseMessage(raw)
	if err != nil {
		return core.MessageRecord{}, fmt.Errorf("parsing %s: %w", rel, err)
	}

	rec := core.MessageRecord{
		ID:         pm.MessageID,
		StoreRef:   rel,
		Subject:    pm.Subject,
		Body:       s.textProcessor.ProcessText(pm.Body, 0),
		SenderName: pm.From.Name,
		SenderAddr: pm.From.Address,
		To:         pm.To,
		CC:         pm.CC,
		Received:   pm.Date,
		ObservedAt: observedAt,
		InReplyTo:  pm.InReplyTo,
		FolderPath: mailbox,
	}
	if rec.ID == "" {
		rec.ID = rel
	}

	if sub == "cur" {
		seen, flagged, trashed := maildirFlags(name)
		rec.Read = seen
		rec.Flagged = flagged
		rec.Deleted = trashed
	}
	return rec, nil
}

// Move files the referenced message under folder, creating it if needed
func (s *DirStore) Move(_ context.Context, storeRef, folder string) error {
	src := filepath.Join(s.root, storeRef)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("locating %s: %w", storeRef, err)
	}

	destDir := filepath.Join(s.root, folderToPath(folder), "cur")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", destDir, err)
	}

	dest := filepath.Join(destDir, filepath.Base(storeRef))
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("moving %s to %s: %w", storeRef, folder, err)
	}
	return nil
}

// Flag marks the referenced message for follow-up
func (s *DirStore) Flag(_ context.Context, storeRef string) error {
	src := filepath.Join(s.root, storeRef)
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("locating %s: %w", storeRef, err)
	}

	base := filepath.Base(storeRef)
	flagged := withMaildirFlag(base, 'F')
	if flagged == base {
		return nil
	}
	dest := filepath.Join(filepath.Dir(src), flagged)
	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("flagging %s: %w", storeRef, err)
	}
	return nil
}

// CreateTask writes a follow-up note into the tasks mailbox
func (s *DirStore) CreateTask(_ context.Context, rec core.MessageRecord, due time.Time) error {
	dir := filepath.Join(s.root, "tasks", "new")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("Subject: [Task] %s\r\n", rec.Subject))
	msg.WriteString(fmt.Sprintf("X-Task-Source: %s\r\n", rec.StoreRef))
	msg.WriteString(fmt.Sprintf("X-Due-Date: %s\r\n", due.Format(time.RFC3339)))
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("Follow up on %q from %s by %s.\r\n",
		rec.Subject, rec.SenderAddr, due.Format("2006-01-02")))

	path := filepath.Join(dir, uuid.New().String()+".eml")
	if err := os.WriteFile(path, []byte(msg.String()), 0o644); err != nil {
		return fmt.Errorf("writing task file: %w", err)
	}
	return nil
}

// maildirFlags decodes the ":2," suffix of a cur/ file name
func maildirFlags(name string) (seen, flagged, trashed bool) {
	i := strings.Index(name, maildirFlagSeparator)
	if i < 0 {
		return false, false, false
	}
	flagRunes := name[i+len(maildirFlagSeparator):]
	return strings.ContainsRune(flagRunes, 'S'),
		strings.ContainsRune(flagRunes, 'F'),
		strings.ContainsRune(flagRunes, 'T')
}

// withMaildirFlag adds one flag letter to a maildir file name, keeping the
// flag list in ASCII order as the format requires
func withMaildirFlag(name string, flag rune) string {
	i := strings.Index(name, maildirFlagSeparator)
	if i < 0 {
		return name + maildirFlagSeparator + string(flag)
	}
	existing := name[i+len(maildirFlagSeparator):]
	if strings.ContainsRune(existing, flag) {
		return name
	}
	letters := strings.Split(existing+string(flag), "")
	sort.Strings(letters)
	return name[:i] + maildirFlagSeparator + strings.Join(letters, "")
}

// folderToPath maps a decision folder like "Archive/Newsletter" onto a
// directory path rooted at the store
func folderToPath(folder string) string {
	parts := strings.Split(folder, "/")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return filepath.Join(parts...)
}
