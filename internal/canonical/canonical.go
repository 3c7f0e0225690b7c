// Package canonical normalizes raw job URLs into a stable canonical form and
// derives the job_key identity from it. Pure functions, no I/O.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// Result is the canonical identity of a job URL.
type Result struct {
	JobURL       string
	JobKey       string
	SourceDomain string
	ExternalID   string
}

var (
	linkedinViewRe = regexp.MustCompile(`^/jobs/view/(\d+)`)
	iimjobsRe      = regexp.MustCompile(`^/j/([a-z0-9-]+-(\d+))\.html$`)
	naukriRe       = regexp.MustCompile(`job-listings-(?:[a-zA-Z0-9-]+-)?(\d+)`)
)

// Query parameters that carry no identity and are dropped on generic hosts.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "utm": true,
	"ref": true, "refid": true, "trackingid": true, "trk": true,
	"gclid": true, "fbclid": true, "igshid": true, "mc_cid": true,
	"mc_eid": true, "source": true, "src": true,
}

// Canonicalizer maps raw URLs to canonical job identities.
type Canonicalizer struct {
	genericAllowed map[string]bool
}

// New creates a canonicalizer. genericAllowedHosts lists additional hosts
// accepted under the generic rule (beyond the built-in board families).
func New(genericAllowedHosts []string) *Canonicalizer {
	allowed := make(map[string]bool, len(genericAllowedHosts))
	for _, h := range genericAllowedHosts {
		allowed[strings.ToLower(strings.TrimPrefix(h, "www."))] = true
	}
	return &Canonicalizer{genericAllowed: allowed}
}

// Canonicalize normalizes a raw URL. The second return is false when the URL
// is not a recognized job posting and must be ignored.
func (c *Canonicalizer) Canonicalize(raw string) (Result, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}, false
	}

	// Synthetic chat URLs carry their own identity.
	if strings.HasPrefix(raw, "whatsapp://") {
		return withKey(Result{
			JobURL:       raw,
			SourceDomain: "whatsapp",
			ExternalID:   strings.TrimPrefix(raw, "whatsapp://"),
		}), true
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Result{}, false
	}
	host := strings.ToLower(u.Host)
	bare := strings.TrimPrefix(host, "www.")

	switch {
	case bare == "linkedin.com" || strings.HasSuffix(bare, ".linkedin.com"):
		return c.linkedin(u)
	case bare == "iimjobs.com" || strings.HasSuffix(bare, ".iimjobs.com"):
		return c.iimjobs(u)
	case bare == "naukri.com" || strings.HasSuffix(bare, ".naukri.com"):
		return c.naukri(u)
	case c.genericAllowed[bare]:
		return c.generic(u, bare)
	}
	return Result{}, false
}

func (c *Canonicalizer) linkedin(u *url.URL) (Result, bool) {
	m := linkedinViewRe.FindStringSubmatch(u.Path)
	if m == nil {
		// Collection pages link the posting via currentJobId.
		if id := u.Query().Get("currentJobId"); id != "" && allDigits(id) {
			m = []string{"", id}
		} else {
			return Result{}, false
		}
	}
	id := m[1]
	return withKey(Result{
		JobURL:       "https://www.linkedin.com/jobs/view/" + id + "/",
		SourceDomain: "linkedin.com",
		ExternalID:   id,
	}), true
}

func (c *Canonicalizer) iimjobs(u *url.URL) (Result, bool) {
	m := iimjobsRe.FindStringSubmatch(strings.ToLower(u.Path))
	if m == nil {
		return Result{}, false
	}
	return withKey(Result{
		JobURL:       "https://www.iimjobs.com/j/" + m[1] + ".html",
		SourceDomain: "iimjobs.com",
		ExternalID:   m[2],
	}), true
}

func (c *Canonicalizer) naukri(u *url.URL) (Result, bool) {
	m := naukriRe.FindStringSubmatch(u.Path)
	if m == nil {
		return Result{}, false
	}
	path := strings.TrimSuffix(u.Path, "/")
	return withKey(Result{
		JobURL:       "https://www.naukri.com" + path,
		SourceDomain: "naukri.com",
		ExternalID:   m[1],
	}), true
}

func (c *Canonicalizer) generic(u *url.URL, bare string) (Result, bool) {
	q := u.Query()
	kept := url.Values{}
	for k, vs := range q {
		if trackingParams[strings.ToLower(k)] || strings.HasPrefix(strings.ToLower(k), "utm_") {
			continue
		}
		kept[k] = vs
	}

	canon := url.URL{
		Scheme:   "https",
		Host:     strings.ToLower(u.Host),
		Path:     strings.TrimSuffix(u.Path, "/"),
		RawQuery: kept.Encode(),
	}
	return withKey(Result{
		JobURL:       canon.String(),
		SourceDomain: bare,
	}), true
}

// withKey fills JobKey: first 16 bytes of SHA-256 of the canonical URL,
// lowercase hex.
func withKey(r Result) Result {
	sum := sha256.Sum256([]byte(r.JobURL))
	r.JobKey = hex.EncodeToString(sum[:16])
	return r
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
