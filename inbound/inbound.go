// Package inbound fetches unseen messages from each connected inbox's IMAP
// mailbox and hands them to the Reply Processor as plain Message
// values. It has no knowledge of threading/reply semantics — that belongs to
// worker/reply_worker.go; this package only knows how to talk to IMAP.
package inbound

import (
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"outreachengine/models"
)

// Message is one inbound email, trimmed to the fields the Reply Processor
// needs to match it against a sent Email row.
type Message struct {
	InboxID     uint
	MessageID   string
	InReplyTo   string
	ThreadID    string
	From        string
	Subject     string
	BodyText    string
	ReceivedAt  time.Time
}

// Fetcher pulls unseen messages from one IMAP-capable inbox per call:
// dial, login, search for unseen, fetch, mark seen. Only the message
// fields the reply processor threads against are decoded.
type Fetcher struct {
	// DialTimeout bounds each IMAP connection attempt.
	DialTimeout time.Duration
}

// NewFetcher builds a Fetcher with sane defaults.
func NewFetcher() *Fetcher {
	return &Fetcher{DialTimeout: 30 * time.Second}
}

// FetchUnseen connects to the inbox's IMAP mailbox, retrieves every message
// without the \Seen flag, and marks them seen on success. Returns the
// decoded messages; a connection or auth failure is returned as an error so
// the caller (worker/reply_worker.go) can route it through the
// provider-auth-failure classifier.
func (f *Fetcher) FetchUnseen(inbox *models.Inbox) ([]Message, error) {
	if inbox.IMAPHost == "" {
		return nil, nil
	}

	c, err := f.dial(inbox)
	if err != nil {
		return nil, fmt.Errorf("imap dial: %w", err)
	}
	defer c.Logout()

	if err := c.Login(inbox.IMAPUsername, inbox.IMAPPassword); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}

	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("imap select: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("imap search: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope, imap.FetchItem("BODY.PEEK[]")}, messages)
	}()

	var out []Message
	for msg := range messages {
		m, err := decodeMessage(inbox.ID, msg)
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	if err := <-done; err != nil {
		return out, fmt.Errorf("imap fetch: %w", err)
	}

	markSeen := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.Store(seqset, markSeen, []interface{}{imap.SeenFlag}, nil); err != nil {
		return out, fmt.Errorf("imap mark seen: %w", err)
	}

	return out, nil
}

func (f *Fetcher) dial(inbox *models.Inbox) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", inbox.IMAPHost, inbox.IMAPPort)
	tlsCfg := &tls.Config{ServerName: inbox.IMAPHost}

	if inbox.IMAPPort == 993 {
		return client.DialTLS(addr, tlsCfg)
	}
	c, err := client.Dial(addr)
	if err != nil {
		return nil, err
	}
	if err := c.StartTLS(tlsCfg); err != nil {
		c.Logout()
		return nil, err
	}
	return c, nil
}

func decodeMessage(inboxID uint, msg *imap.Message) (Message, error) {
	section := imap.BodySectionName{}
	literal, ok := msg.Body[&section]
	if !ok {
		return Message{}, fmt.Errorf("message body not found")
	}

	mr, err := mail.CreateReader(literal)
	if err != nil {
		return Message{}, fmt.Errorf("create message reader: %w", err)
	}

	var bodyText string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			break
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if !strings.Contains(contentType, "text/plain") {
			continue
		}
		b, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}
		bodyText = string(b)
		break
	}

	env := msg.Envelope
	// go-imap's envelope has no References field; ThreadID is derived from
	// In-Reply-To.
	m := Message{
		InboxID:    inboxID,
		MessageID:  env.MessageId,
		InReplyTo:  env.InReplyTo,
		ThreadID:   env.InReplyTo,
		From:       formatAddress(env.From),
		Subject:    env.Subject,
		BodyText:   bodyText,
		ReceivedAt: env.Date,
	}
	return m, nil
}

func formatAddress(addrs []*imap.Address) string {
	var out []string
	for _, a := range addrs {
		out = append(out, a.MailboxName+"@"+a.HostName)
	}
	return strings.Join(out, ", ")
}
