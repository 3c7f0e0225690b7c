package mailbox

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/emersion/go-imap"

	"github.com/jobops/jobops/internal/ingest"
)

type fakeClient struct {
	messages   []*imap.Message
	unseen     []uint32
	seenMarked []uint32
	loggedOut  bool
}

func (f *fakeClient) Login(username, password string) error { return nil }
func (f *fakeClient) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	return &imap.MailboxStatus{Messages: uint32(len(f.messages))}, nil
}
func (f *fakeClient) Search(criteria *imap.SearchCriteria) ([]uint32, error) {
	return f.unseen, nil
}
func (f *fakeClient) Fetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	for _, m := range f.messages {
		ch <- m
	}
	close(ch)
	return nil
}
func (f *fakeClient) Store(seqset *imap.SeqSet, item imap.StoreItem, value interface{}, ch chan *imap.Message) error {
	for _, m := range f.messages {
		if seqset.Contains(m.SeqNum) {
			f.seenMarked = append(f.seenMarked, m.SeqNum)
		}
	}
	return nil
}
func (f *fakeClient) Logout() error {
	f.loggedOut = true
	return nil
}

type recordingIngester struct {
	batches [][]ingest.Envelope
}

func (r *recordingIngester) Ingest(ctx context.Context, envelopes []ingest.Envelope) (*ingest.BatchResult, error) {
	r.batches = append(r.batches, envelopes)
	return &ingest.BatchResult{}, nil
}

func rawMessage(seq uint32, subject, fromMailbox, fromHost, body string) *imap.Message {
	raw := strings.Join([]string{
		"Subject: " + subject,
		"From: " + fromMailbox + "@" + fromHost,
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")
	section := &imap.BodySectionName{}
	return &imap.Message{
		SeqNum: seq,
		Envelope: &imap.Envelope{
			Subject: subject,
			From:    []*imap.Address{{MailboxName: fromMailbox, HostName: fromHost}},
		},
		Body: map[*imap.BodySectionName]imap.Literal{
			section: bytes.NewReader([]byte(raw)),
		},
	}
}

func newTestPoller(c *fakeClient, ing Ingester) *Poller {
	p := NewPoller(Settings{Host: "imap.example.test", Username: "u", Password: "p"}, ing, nil)
	p.dial = func(addr string) (imapClient, error) { return c, nil }
	return p
}

func TestPollIngestsUnseenAndMarksSeen(t *testing.T) {
	c := &fakeClient{
		messages: []*imap.Message{
			rawMessage(1, "Job alert", "alerts", "linkedin.test",
				"New role for you: https://www.linkedin.com/jobs/view/4012345678/?trk=alert"),
		},
		unseen: []uint32{1},
	}
	ing := &recordingIngester{}
	p := newTestPoller(c, ing)

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(ing.batches) != 1 {
		t.Fatalf("expected 1 ingest batch, got %d", len(ing.batches))
	}
	envs := ing.batches[0]
	if len(envs) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envs))
	}
	if envs[0].Source != ingest.SourceEmail {
		t.Errorf("source = %q, want email", envs[0].Source)
	}
	if !strings.Contains(envs[0].Job.JobURL, "/jobs/view/4012345678") {
		t.Errorf("job url = %q", envs[0].Job.JobURL)
	}
	if envs[0].Email == nil || envs[0].Email.From != "alerts@linkedin.test" {
		t.Errorf("email meta = %+v", envs[0].Email)
	}
	if len(c.seenMarked) != 1 || c.seenMarked[0] != 1 {
		t.Errorf("seenMarked = %v, want [1]", c.seenMarked)
	}
	if !c.loggedOut {
		t.Error("client not logged out")
	}
}

func TestPollMarksLinkFreeMessagesSeen(t *testing.T) {
	c := &fakeClient{
		messages: []*imap.Message{
			rawMessage(7, "Newsletter", "news", "example.test", "No links here, just prose."),
		},
		unseen: []uint32{7},
	}
	ing := &recordingIngester{}
	p := newTestPoller(c, ing)

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(ing.batches) != 0 {
		t.Errorf("expected no ingest batches, got %d", len(ing.batches))
	}
	if len(c.seenMarked) != 1 || c.seenMarked[0] != 7 {
		t.Errorf("seenMarked = %v, want [7]", c.seenMarked)
	}
}

func TestPollNoUnseen(t *testing.T) {
	c := &fakeClient{}
	ing := &recordingIngester{}
	p := newTestPoller(c, ing)

	if err := p.Poll(context.Background()); err != nil {
		t.Fatalf("poll failed: %v", err)
	}
	if len(ing.batches) != 0 || len(c.seenMarked) != 0 {
		t.Errorf("nothing should happen on an empty mailbox")
	}
}

func TestParseMessageMultipart(t *testing.T) {
	raw := strings.Join([]string{
		"Subject: Openings",
		"From: hr@acme.test",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Apply: https://acme.example/jobs/1",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		`<a href="https://acme.example/jobs/1&#x3F;ref=mail">Apply</a>`,
		"--b1--",
		"",
	}, "\r\n")
	section := &imap.BodySectionName{}
	msg := &imap.Message{
		SeqNum:   3,
		Envelope: &imap.Envelope{Subject: "Openings", From: []*imap.Address{{MailboxName: "hr", HostName: "acme.test"}}},
		Body:     map[*imap.BodySectionName]imap.Literal{section: bytes.NewReader([]byte(raw))},
	}

	parsed, err := parseMessage(msg, &imap.BodySectionName{})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !strings.Contains(parsed.Text, "https://acme.example/jobs/1") {
		t.Errorf("text part missing: %q", parsed.Text)
	}
	if !strings.Contains(parsed.HTML, "&#x3F;ref=mail") {
		t.Errorf("html part missing: %q", parsed.HTML)
	}
	if parsed.From != "hr@acme.test" {
		t.Errorf("from = %q", parsed.From)
	}
}
