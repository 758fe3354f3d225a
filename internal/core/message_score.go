package core

import (
	"strings"
	"time"
)

// DueStatus buckets a message's due date relative to the observation time.
// A single comparison decides the bucket, so due-today and due-soon can
// never both apply.
type DueStatus int

const (
	DueNone DueStatus = iota
	DueLater
	DueSoon
	DueTodayOrOverdue
)

// DueStatusOf computes the due bucket from the record's due date and
// observation time, comparing calendar days in the observation's location.
func DueStatusOf(rec MessageRecord, dueSoonDays int) DueStatus {
	if !rec.HasDueDate() {
		return DueNone
	}
	days := calendarDaysBetween(rec.ObservedAt, rec.DueDate)
	switch {
	case days <= 0:
		return DueTodayOrOverdue
	case days <= dueSoonDays:
		return DueSoon
	default:
		return DueLater
	}
}

func calendarDaysBetween(from, to time.Time) int {
	loc := from.Location()
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	t := to.In(loc)
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return int(d.Sub(f).Hours() / 24)
}

// MessageStateScore scores one message's read/flag/due/importance state.
// Bonuses and penalties are additive and order-insensitive; each condition
// is evaluated independently and the result is clamped to [0,1].
func MessageStateScore(rec MessageRecord, cfg StateModel) float64 {
	score := cfg.Baseline

	if !rec.Read {
		score -= cfg.UnreadPenalty
		// Each observed-unread cycle beyond the first deepens the penalty,
		// up to the cap.
		if rec.TimesSeenUnread > 1 {
			extra := float64(rec.TimesSeenUnread-1) * cfg.IgnorePenalty
			if extra > cfg.IgnorePenaltyCap {
				extra = cfg.IgnorePenaltyCap
			}
			score -= extra
		}
	} else if !rec.Deleted {
		score += cfg.ReadKeptBonus
	}

	if rec.Flagged {
		score += cfg.FlaggedBonus
	}

	switch DueStatusOf(rec, cfg.DueSoonDays) {
	case DueTodayOrOverdue:
		score += cfg.DueTodayBonus
	case DueSoon:
		score += cfg.DueSoonBonus
	}

	if rec.Importance == ImportanceHigh {
		score += cfg.HighImportanceBonus
	}
	if receivedOffHours(rec.Received, cfg) {
		score += cfg.OffHoursBonus
	}
	return clamp01(score)
}

func receivedOffHours(received time.Time, cfg StateModel) bool {
	h := received.Hour()
	return h < cfg.BusinessStartHour || h >= cfg.BusinessEndHour
}

// UserAddresses is the set of addresses that identify the mailbox owner.
type UserAddresses map[string]struct{}

// NewUserAddresses builds the owner address set, lower-casing entries.
func NewUserAddresses(addrs ...string) UserAddresses {
	u := make(UserAddresses, len(addrs))
	for _, a := range addrs {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			u[a] = struct{}{}
		}
	}
	return u
}

// Contains reports whether the address belongs to the mailbox owner.
func (u UserAddresses) Contains(address string) bool {
	_, ok := u[strings.ToLower(strings.TrimSpace(address))]
	return ok
}

// RecipientScore scores how directly a message targets the mailbox owner.
// Baseline 0; being on the To line earns a bonus, a short To line earns a
// directness bonus, wide distributions and CC-only delivery subtract.
func RecipientScore(rec MessageRecord, user UserAddresses, cfg RecipientModel) float64 {
	score := 0.0

	inTo := anyAddressed(rec.To, user)
	inCC := anyAddressed(rec.CC, user)

	if inTo {
		score += cfg.ToMeBonus
		if len(rec.To) > 0 && len(rec.To) <= cfg.DirectMaxRecipients {
			score += cfg.DirectToMeBonus
		}
	}
	if len(rec.To)+len(rec.CC) > cfg.ManyRecipientsThreshold {
		score -= cfg.ManyRecipientsPenalty
	}
	if !inTo && inCC {
		score -= cfg.CCMePenalty
	}
	return clamp01(score)
}

func anyAddressed(recipients []Recipient, user UserAddresses) bool {
	for _, r := range recipients {
		if user.Contains(r.Address) {
			return true
		}
	}
	return false
}
