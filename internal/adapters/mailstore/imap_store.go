package mailstore

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

// IMAPStore is a MailStore backed by an IMAP server. Each operation opens a
// fresh connection; the organizer runs on schedules measured in minutes, so
// connection reuse buys nothing worth the session state it would carry.
type IMAPStore struct {
	address     string
	username    string
	password    string
	inboxName   string
	sentName    string
	taskMailbox string
	logger      *zap.Logger
}

// NewIMAPStore creates a new IMAP-backed mail store
func NewIMAPStore(address, username, password, inbox, sent, taskMailbox string, logger *zap.Logger) *IMAPStore {
	return &IMAPStore{
		address:     address,
		username:    username,
		password:    password,
		inboxName:   inbox,
		sentName:    sent,
		taskMailbox: taskMailbox,
		logger:      logger,
	}
}

func (s *IMAPStore) connect() (*imapclient.Client, error) {
	client, err := imapclient.DialTLS(s.address, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", s.address, err)
	}
	if err := client.Login(s.username, s.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating %s: %w", s.username, err)
	}
	return client, nil
}

// ListInbox returns up to limit inbox snapshots, newest first
func (s *IMAPStore) ListInbox(ctx context.Context, limit int) ([]core.MessageRecord, error) {
	return s.list(ctx, s.inboxName, limit, true)
}

// ListSent returns up to limit sent-item snapshots, newest first. Bodies
// are skipped; profile building only needs the envelope data.
func (s *IMAPStore) ListSent(ctx context.Context, limit int) ([]core.MessageRecord, error) {
	return s.list(ctx, s.sentName, limit, false)
}

func (s *IMAPStore) list(_ context.Context, mailbox string, limit int, withBody bool) ([]core.MessageRecord, error) {
	client, err := s.connect()
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	searchData, err := client.UIDSearch(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", mailbox, err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}
	uidSet := imap.UIDSetNum(uids...)

	fetchOpts := &imap.FetchOptions{
		Envelope: true,
		Flags:    true,
		UID:      true,
	}
	var bodySection *imap.FetchItemBodySection
	if withBody {
		bodySection = &imap.FetchItemBodySection{Peek: true}
		fetchOpts.BodySection = []*imap.FetchItemBodySection{bodySection}
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	observedAt := time.Now().UTC()
	var records []core.MessageRecord
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			s.logger.Warn("Failed to collect message", zap.Error(err), zap.String("mailbox", mailbox))
			continue
		}
		rec := recordFromBuffer(buf, mailbox, observedAt)
		if bodySection != nil {
			if raw := buf.FindBodySection(bodySection); raw != nil {
				rec.Body = extractBody(raw)
			}
		}
		records = append(records, rec)
	}
	if err := fetchCmd.Close(); err != nil {
		return records, fmt.Errorf("fetching from %s: %w", mailbox, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Received.After(records[j].Received)
	})
	return records, nil
}

// Move files the referenced message under folder, creating it if needed
func (s *IMAPStore) Move(_ context.Context, storeRef, folder string) error {
	mailbox, uid, err := parseStoreRef(storeRef)
	if err != nil {
		return err
	}

	client, err := s.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	uidSet := imap.UIDSetNum(uid)
	if _, err := client.Move(uidSet, folder).Wait(); err == nil {
		return nil
	}

	// Folder likely missing; create it and retry once.
	if err := client.Create(folder, nil).Wait(); err != nil {
		s.logger.Debug("Mailbox create failed", zap.String("folder", folder), zap.Error(err))
	}
	if _, err := client.Move(uidSet, folder).Wait(); err != nil {
		return fmt.Errorf("moving %s to %s: %w", storeRef, folder, err)
	}
	return nil
}

// Flag marks the referenced message for follow-up
func (s *IMAPStore) Flag(_ context.Context, storeRef string) error {
	mailbox, uid, err := parseStoreRef(storeRef)
	if err != nil {
		return err
	}

	client, err := s.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", mailbox, err)
	}

	uidSet := imap.UIDSetNum(uid)
	storeCmd := client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagFlagged},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return fmt.Errorf("flagging %s: %w", storeRef, err)
	}
	return nil
}

// CreateTask appends a follow-up note to the task mailbox
func (s *IMAPStore) CreateTask(_ context.Context, rec core.MessageRecord, due time.Time) error {
	client, err := s.connect()
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("Subject: [Task] %s\r\n", rec.Subject))
	msg.WriteString(fmt.Sprintf("X-Task-Source: %s\r\n", rec.StoreRef))
	msg.WriteString(fmt.Sprintf("X-Due-Date: %s\r\n", due.Format(time.RFC3339)))
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(fmt.Sprintf("Follow up on %q from %s by %s.\r\n",
		rec.Subject, rec.SenderAddr, due.Format("2006-01-02")))
	payload := msg.String()

	if err := s.appendTask(client, payload); err == nil {
		return nil
	}

	if err := client.Create(s.taskMailbox, nil).Wait(); err != nil {
		s.logger.Debug("Task mailbox create failed", zap.String("mailbox", s.taskMailbox), zap.Error(err))
	}
	if err := s.appendTask(client, payload); err != nil {
		return fmt.Errorf("appending task to %s: %w", s.taskMailbox, err)
	}
	return nil
}

func (s *IMAPStore) appendTask(client *imapclient.Client, payload string) error {
	appendCmd := client.Append(s.taskMailbox, int64(len(payload)), nil)
	if _, err := appendCmd.Write([]byte(payload)); err != nil {
		_ = appendCmd.Close()
		return err
	}
	if err := appendCmd.Close(); err != nil {
		return err
	}
	_, err := appendCmd.Wait()
	return err
}

func recordFromBuffer(buf *imapclient.FetchMessageBuffer, mailbox string, observedAt time.Time) core.MessageRecord {
	rec := core.MessageRecord{
		StoreRef:   fmt.Sprintf("%s:%d", mailbox, uint32(buf.UID)),
		FolderPath: mailbox,
		ObservedAt: observedAt,
	}

	if env := buf.Envelope; env != nil {
		rec.ID = env.MessageID
		rec.Subject = env.Subject
		rec.Received = env.Date
		if len(env.From) > 0 {
			rec.SenderName = env.From[0].Name
			rec.SenderAddr = env.From[0].Addr()
		}
		for _, to := range env.To {
			rec.To = append(rec.To, core.Recipient{Name: to.Name, Address: to.Addr()})
		}
		for _, cc := range env.Cc {
			rec.CC = append(rec.CC, core.Recipient{Name: cc.Name, Address: cc.Addr()})
		}
	}
	if rec.ID == "" {
		rec.ID = rec.StoreRef
	}

	for _, flag := range buf.Flags {
		switch flag {
		case imap.FlagSeen:
			rec.Read = true
		case imap.FlagFlagged:
			rec.Flagged = true
		case imap.FlagDeleted:
			rec.Deleted = true
		}
	}
	return rec
}

func parseStoreRef(ref string) (string, imap.UID, error) {
	i := strings.LastIndex(ref, ":")
	if i <= 0 || i == len(ref)-1 {
		return "", 0, fmt.Errorf("malformed store ref %q", ref)
	}
	uid, err := strconv.ParseUint(ref[i+1:], 10, 32)
	if err != nil {
		return "", 0, fmt.Errorf("malformed store ref %q: %w", ref, err)
	}
	return ref[:i], imap.UID(uid), nil
}
