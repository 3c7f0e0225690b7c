package ingest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Wrapper redirect params used by aggregators; unwrapped before
// canonicalization, bounded by unwrapBudget.
var wrapperParams = []string{"url", "q", "redirect", "u", "target"}

const unwrapBudget = 3

// RSSAdapter turns feed items into envelopes.
type RSSAdapter struct {
	parser        *gofeed.Parser
	allowKeywords []string
	blockKeywords []string
}

// NewRSSAdapter creates an adapter. An empty allow list admits everything;
// block keywords always win.
func NewRSSAdapter(allowKeywords, blockKeywords []string) *RSSAdapter {
	return &RSSAdapter{
		parser:        gofeed.NewParser(),
		allowKeywords: lowerAll(allowKeywords),
		blockKeywords: lowerAll(blockKeywords),
	}
}

// Poll fetches and parses one feed URL (RSS 2.0 or Atom) into envelopes.
func (a *RSSAdapter) Poll(ctx context.Context, feedURL string) ([]Envelope, error) {
	feed, err := a.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}
	return a.fromFeed(feed), nil
}

// ParseString parses raw feed XML. Used by tests and the manual admin path.
func (a *RSSAdapter) ParseString(raw string) ([]Envelope, error) {
	feed, err := a.parser.ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return a.fromFeed(feed), nil
}

func (a *RSSAdapter) fromFeed(feed *gofeed.Feed) []Envelope {
	now := time.Now().UTC()
	var envelopes []Envelope
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		if !a.admit(item.Title + " " + item.Description) {
			continue
		}
		envelopes = append(envelopes, Envelope{
			Source: SourceRSS,
			Job: CandidateJob{
				Title:       item.Title,
				Description: item.Description,
				ExternalID:  item.GUID,
				JobURL:      UnwrapURL(item.Link),
			},
			IngestedAt: now,
		})
	}
	return envelopes
}

// admit applies block keywords first, then the allow list (empty = allow
// all), against title+summary.
func (a *RSSAdapter) admit(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range a.blockKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	if len(a.allowKeywords) == 0 {
		return true
	}
	for _, kw := range a.allowKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// UnwrapURL follows aggregator wrapper params (url, q, redirect, u, target)
// up to a fixed budget.
func UnwrapURL(raw string) string {
	for i := 0; i < unwrapBudget; i++ {
		u, err := url.Parse(raw)
		if err != nil {
			return raw
		}
		q := u.Query()
		next := ""
		for _, p := range wrapperParams {
			if v := q.Get(p); strings.HasPrefix(v, "http") {
				next = v
				break
			}
		}
		if next == "" {
			return raw
		}
		raw = next
	}
	return raw
}

func lowerAll(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
