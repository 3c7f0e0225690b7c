// Package ingest turns source payloads into candidate envelopes and drives
// them through canonicalize, JD resolution, upsert, and scoring.
package ingest

import (
	"encoding/json"
	"html"
	"regexp"
	"strings"
	"time"
)

// Envelope sources.
const (
	SourceManual = "MANUAL"
	SourceEmail  = "EMAIL"
	SourceRSS    = "RSS"
	SourceChat   = "CHAT"
)

// CandidateJob is the source-normalized view of a posting before canonical
// identity is computed.
type CandidateJob struct {
	Title        string `json:"title,omitempty"`
	Company      string `json:"company,omitempty"`
	Description  string `json:"description,omitempty"`
	ExternalID   string `json:"external_id,omitempty"`
	JobURL       string `json:"job_url"`
	SourceDomain string `json:"source_domain,omitempty"`
}

// EmailMeta is passthrough context for the JD email fallback.
type EmailMeta struct {
	Subject string
	From    string
	Text    string
	HTML    string
}

// ChatMedia describes a media attachment pending external OCR.
type ChatMedia struct {
	MessageID string
	MimeType  string
	Caption   string
}

// Envelope is one ingest candidate from any source.
type Envelope struct {
	Source     string
	RawPayload json.RawMessage
	Job        CandidateJob
	Email      *EmailMeta
	Media      *ChatMedia
	IngestedAt time.Time
}

// NewManualEnvelopes builds one envelope per raw URL.
func NewManualEnvelopes(rawURLs []string) []Envelope {
	now := time.Now().UTC()
	envelopes := make([]Envelope, 0, len(rawURLs))
	for _, u := range rawURLs {
		envelopes = append(envelopes, Envelope{
			Source:     SourceManual,
			Job:        CandidateJob{JobURL: strings.TrimSpace(u)},
			IngestedAt: now,
		})
	}
	return envelopes
}

var urlRe = regexp.MustCompile(`https?://[^\s"'<>\)\]]+`)

// NewEmailEnvelopes extracts job URLs from an email's text and HTML bodies.
// The email body travels with every envelope so the JD resolver can fall
// back to it.
func NewEmailEnvelopes(subject, from, text, htmlBody string) []Envelope {
	meta := &EmailMeta{Subject: subject, From: from, Text: text, HTML: htmlBody}

	seen := map[string]bool{}
	var urls []string
	collect := func(body string) {
		for _, u := range urlRe.FindAllString(body, -1) {
			u = strings.TrimRight(u, ".,;")
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	collect(text)
	collect(html.UnescapeString(htmlBody))

	now := time.Now().UTC()
	envelopes := make([]Envelope, 0, len(urls))
	for _, u := range urls {
		envelopes = append(envelopes, Envelope{
			Source:     SourceEmail,
			Job:        CandidateJob{JobURL: u},
			Email:      meta,
			IngestedAt: now,
		})
	}
	return envelopes
}

// NewChatEnvelope maps one chat message. A message without a URL but with
// media becomes a synthetic whatsapp:// envelope queued for OCR; a message
// with neither is dropped (returns false).
func NewChatEnvelope(messageID, text, mimeType, caption string) (Envelope, bool) {
	now := time.Now().UTC()
	if m := urlRe.FindString(text); m != "" {
		return Envelope{
			Source:     SourceChat,
			Job:        CandidateJob{JobURL: strings.TrimRight(m, ".,;")},
			IngestedAt: now,
		}, true
	}
	if mimeType != "" {
		return Envelope{
			Source: SourceChat,
			Job:    CandidateJob{JobURL: "whatsapp://" + messageID},
			Media: &ChatMedia{
				MessageID: messageID,
				MimeType:  mimeType,
				Caption:   caption,
			},
			IngestedAt: now,
		}, true
	}
	return Envelope{}, false
}
