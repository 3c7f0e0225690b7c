package jd

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jobops/jobops/internal/models"
)

// Resolution is the outcome of resolving a job's description text.
type Resolution struct {
	JDTextClean  string
	JDSource     string // fetched|email|manual|none
	FetchStatus  string // ok|blocked|failed
	JDConfidence string // low|medium|high
	Debug        string
}

// EmailContext carries email body passthrough for the fallback path.
type EmailContext struct {
	Subject string
	From    string
	Text    string
	HTML    string
}

// Resolver turns a job URL (plus optional email context) into cleaned JD text.
type Resolver struct {
	fetcher  Fetcher
	minChars int
	logger   *slog.Logger
}

// NewResolver creates a resolver. minChars is the minimum usable JD length.
func NewResolver(fetcher Fetcher, minChars int, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		fetcher:  fetcher,
		minChars: minChars,
		logger:   logger.With("component", "jd-resolver"),
	}
}

// Resolve fetches and cleans the JD for jobURL, falling back to the email
// body when the fetch is blocked or fails. It never returns an error: every
// failure mode is encoded in the Resolution fields.
func (r *Resolver) Resolve(ctx context.Context, jobURL string, email *EmailContext) Resolution {
	res := r.fetch(ctx, jobURL)
	if res.FetchStatus == models.FetchOK {
		return res
	}

	if email != nil && (email.Text != "" || email.HTML != "") {
		if fromEmail := r.fromEmail(email); fromEmail.JDTextClean != "" {
			// Keep the fetch outcome visible; only the text source changes.
			fromEmail.FetchStatus = res.FetchStatus
			return fromEmail
		}
	}
	return res
}

func (r *Resolver) fetch(ctx context.Context, jobURL string) Resolution {
	result, err := r.fetcher.Fetch(ctx, jobURL)
	if err != nil {
		status := models.FetchFailed
		if errors.Is(err, ErrFetchForbidden) {
			status = models.FetchBlocked
		}
		r.logger.Debug("fetch failed", "url", jobURL, "error", err)
		return Resolution{
			JDSource:     models.JDSourceNone,
			FetchStatus:  status,
			JDConfidence: models.ConfidenceLow,
			Debug:        err.Error(),
		}
	}

	cleaned := CleanHTML(result.Body)
	window := ExtractDenseWindow(cleaned)
	if window == "" || IsLowQuality(window, r.minChars) {
		return Resolution{
			JDSource:     models.JDSourceNone,
			FetchStatus:  models.FetchBlocked,
			JDConfidence: models.ConfidenceLow,
			Debug:        "low_quality_body",
		}
	}

	return Resolution{
		JDTextClean:  window,
		JDSource:     models.JDSourceFetched,
		FetchStatus:  models.FetchOK,
		JDConfidence: Confidence(window),
	}
}

func (r *Resolver) fromEmail(email *EmailContext) Resolution {
	body := email.Text
	if body == "" {
		body = CleanHTML(email.HTML)
	} else {
		body = CleanHTML("<p>" + body + "</p>")
	}

	if len(body) < r.minChars || IsLowQuality(body, r.minChars) {
		return Resolution{
			JDSource:     models.JDSourceNone,
			FetchStatus:  models.FetchFailed,
			JDConfidence: models.ConfidenceLow,
		}
	}
	return Resolution{
		JDTextClean:  body,
		JDSource:     models.JDSourceEmail,
		JDConfidence: Confidence(body),
	}
}
