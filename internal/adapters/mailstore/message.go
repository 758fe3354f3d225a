package mailstore

import (
	"bytes"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/gnuru1/InboxWrangler/internal/core"
)

var (
	scriptStylePattern = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
	spaceRunPattern    = regexp.MustCompile(`[ \t]+`)
)

// parsedMessage is the header and body data shared by the mail store
// backends, extracted with go-message.
type parsedMessage struct {
	MessageID string
	Subject   string
	From      core.Recipient
	To        []core.Recipient
	CC        []core.Recipient
	Date      time.Time
	InReplyTo string
	Body      string
}

// parseMessage parses a raw RFC 2822 message into the fields the scoring
// engine uses. Body parts prefer text/plain; HTML is stripped to text when
// it is all the message carries.
func parseMessage(raw []byte) (*parsedMessage, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer mr.Close()

	pm := &parsedMessage{}
	if subject, err := mr.Header.Subject(); err == nil {
		pm.Subject = subject
	}
	if date, err := mr.Header.Date(); err == nil {
		pm.Date = date
	}
	if id, err := mr.Header.MessageID(); err == nil {
		pm.MessageID = id
	}
	if refs, err := mr.Header.MsgIDList("In-Reply-To"); err == nil && len(refs) > 0 {
		pm.InReplyTo = refs[0]
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		pm.From = core.Recipient{Name: from[0].Name, Address: from[0].Address}
	}
	pm.To = recipients(mr.Header, "To")
	pm.CC = recipients(mr.Header, "Cc")
	pm.Body = readBody(mr)
	return pm, nil
}

func recipients(h mail.Header, key string) []core.Recipient {
	addrs, err := h.AddressList(key)
	if err != nil {
		return nil
	}
	out := make([]core.Recipient, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, core.Recipient{Name: a.Name, Address: a.Address})
	}
	return out
}

func readBody(mr *mail.Reader) string {
	var textBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}
		switch {
		case strings.HasPrefix(contentType, "text/plain") && textBody == "":
			textBody = string(body)
		case strings.HasPrefix(contentType, "text/html") && htmlBody == "":
			htmlBody = string(body)
		}
	}
	if textBody != "" {
		return textBody
	}
	return stripHTMLTags(htmlBody)
}

// ParseRecord parses a raw RFC 2822 message into a standalone record with
// observedAt as its scoring reference time. The mailbox backends attach
// store metadata themselves; this form serves one-shot scoring of a single
// message file.
func ParseRecord(raw []byte, observedAt time.Time) (core.MessageRecord, error) {
	pm, err := parseMessage(raw)
	if err != nil {
		return core.MessageRecord{}, err
	}
	rec := core.MessageRecord{
		ID:         pm.MessageID,
		Subject:    pm.Subject,
		Body:       pm.Body,
		SenderName: pm.From.Name,
		SenderAddr: pm.From.Address,
		To:         pm.To,
		CC:         pm.CC,
		Received:   pm.Date,
		ObservedAt: observedAt,
		InReplyTo:  pm.InReplyTo,
	}
	if rec.Received.IsZero() {
		rec.Received = observedAt
	}
	return rec, nil
}

// extractBody parses a raw message and returns only its plain-text body.
// Used for IMAP fetches where the envelope already supplied the headers.
func extractBody(raw []byte) string {
	pm, err := parseMessage(raw)
	if err != nil {
		// Treat an unparseable payload as plain text, headers and all.
		return strings.TrimSpace(string(raw))
	}
	return pm.Body
}

func stripHTMLTags(s string) string {
	if s == "" {
		return ""
	}
	s = scriptStylePattern.ReplaceAllString(s, " ")
	s = htmlTagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spaceRunPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
