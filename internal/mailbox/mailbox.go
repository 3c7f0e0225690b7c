// Package mailbox polls an IMAP inbox for job-lead emails and feeds them into
// ingest. The poller is disabled unless IMAP credentials are configured.
package mailbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/jobops/jobops/internal/ingest"
)

// Settings carries the IMAP connection parameters.
type Settings struct {
	Host     string // host:port; port 993 assumed when missing
	Username string
	Password string
	Folder   string
}

// Message is one parsed inbox message.
type Message struct {
	SeqNum  uint32
	Subject string
	From    string
	Text    string
	HTML    string
}

// Ingester is the slice of the orchestrator the poller needs.
type Ingester interface {
	Ingest(ctx context.Context, envelopes []ingest.Envelope) (*ingest.BatchResult, error)
}

// Poller reads unseen messages, ingests the job links they carry, and marks
// processed messages seen so they are not re-ingested on the next cycle.
type Poller struct {
	settings Settings
	ingester Ingester
	logger   *slog.Logger

	// dial is swappable for tests.
	dial func(addr string) (imapClient, error)
}

// imapClient is the subset of the go-imap client the poller uses.
type imapClient interface {
	Login(username, password string) error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	Search(criteria *imap.SearchCriteria) ([]uint32, error)
	Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
	Store(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error
	Logout() error
}

// NewPoller creates a poller. Messages are fetched over implicit TLS.
func NewPoller(settings Settings, ingester Ingester, logger *slog.Logger) *Poller {
	if settings.Folder == "" {
		settings.Folder = "INBOX"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		settings: settings,
		ingester: ingester,
		logger:   logger.With("component", "mailbox"),
		dial: func(addr string) (imapClient, error) {
			return client.DialTLS(addr, nil)
		},
	}
}

// Poll fetches unseen messages and ingests each one as an email batch.
// Messages that yield no envelopes are still marked seen; a failed ingest
// leaves the message unseen for the next cycle.
func (p *Poller) Poll(ctx context.Context) error {
	messages, c, err := p.fetchUnseen()
	if err != nil {
		return err
	}
	defer c.Logout()

	if len(messages) == 0 {
		return nil
	}
	p.logger.Info("unseen messages fetched", "count", len(messages))

	for _, msg := range messages {
		envelopes := ingest.NewEmailEnvelopes(msg.Subject, msg.From, msg.Text, msg.HTML)
		if len(envelopes) > 0 {
			if _, err := p.ingester.Ingest(ctx, envelopes); err != nil {
				p.logger.Error("failed to ingest mail batch", "subject", msg.Subject, "error", err)
				continue
			}
		}
		if err := markSeen(c, msg.SeqNum); err != nil {
			p.logger.Warn("failed to mark message seen", "seq", msg.SeqNum, "error", err)
		}
	}
	return nil
}

func (p *Poller) fetchUnseen() ([]Message, imapClient, error) {
	addr := p.settings.Host
	if !strings.Contains(addr, ":") {
		addr += ":993"
	}

	c, err := p.dial(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}

	if err := c.Login(p.settings.Username, p.settings.Password); err != nil {
		c.Logout()
		return nil, nil, fmt.Errorf("imap login failed: %w", err)
	}

	mbox, err := c.Select(p.settings.Folder, false)
	if err != nil {
		c.Logout()
		return nil, nil, fmt.Errorf("failed to select %s: %w", p.settings.Folder, err)
	}
	if mbox.Messages == 0 {
		return nil, c, nil
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	seqNums, err := c.Search(criteria)
	if err != nil {
		c.Logout()
		return nil, nil, fmt.Errorf("failed to search unseen: %w", err)
	}
	if len(seqNums) == 0 {
		return nil, c, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seqNums...)
	section := &imap.BodySectionName{}

	ch := make(chan *imap.Message, len(seqNums))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqSet, []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}, ch)
	}()

	var messages []Message
	for msg := range ch {
		if msg == nil {
			continue
		}
		parsed, err := parseMessage(msg, section)
		if err != nil {
			p.logger.Warn("failed to parse message", "seq", msg.SeqNum, "error", err)
			continue
		}
		messages = append(messages, parsed)
	}
	if err := <-done; err != nil {
		c.Logout()
		return nil, nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, c, nil
}

func markSeen(c imapClient, seq uint32) error {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(seq)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return c.Store(seqSet, item, []interface{}{imap.SeenFlag}, nil)
}

// parseMessage pulls subject, sender, and both body variants out of a fetched
// message. Multipart mail often carries text/plain and text/html siblings;
// both are kept so link extraction sees entity-encoded HTML URLs too.
func parseMessage(msg *imap.Message, section *imap.BodySectionName) (Message, error) {
	out := Message{SeqNum: msg.SeqNum}
	if msg.Envelope != nil {
		out.Subject = msg.Envelope.Subject
		if len(msg.Envelope.From) > 0 {
			out.From = msg.Envelope.From[0].Address()
		}
	}

	r := msg.GetBody(section)
	if r == nil {
		return out, fmt.Errorf("no body section")
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return out, fmt.Errorf("failed to create mail reader: %w", err)
	}
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to read mail part: %w", err)
		}
		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, err := io.ReadAll(p.Body)
		if err != nil {
			return out, fmt.Errorf("failed to read part body: %w", err)
		}
		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			out.Text = strings.TrimSpace(string(body))
		case strings.HasPrefix(contentType, "text/html"):
			out.HTML = strings.TrimSpace(string(body))
		}
	}
	return out, nil
}
