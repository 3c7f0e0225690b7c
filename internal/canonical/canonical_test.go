package canonical

import (
	"strings"
	"testing"
)

func newTestCanonicalizer() *Canonicalizer {
	return New([]string{"wellfound.com", "instahyre.com"})
}

func TestLinkedInView(t *testing.T) {
	c := newTestCanonicalizer()

	res, ok := c.Canonicalize("https://www.linkedin.com/jobs/view/1234567890/?utm=x&refId=abc")
	if !ok {
		t.Fatal("expected accepted")
	}
	if res.JobURL != "https://www.linkedin.com/jobs/view/1234567890/" {
		t.Errorf("job_url = %q", res.JobURL)
	}
	if res.ExternalID != "1234567890" {
		t.Errorf("external_id = %q", res.ExternalID)
	}
	if res.SourceDomain != "linkedin.com" {
		t.Errorf("source_domain = %q", res.SourceDomain)
	}
	if len(res.JobKey) != 32 || strings.ToLower(res.JobKey) != res.JobKey {
		t.Errorf("job_key = %q, want 32 lowercase hex chars", res.JobKey)
	}
}

func TestLinkedInEquivalentFormsShareKey(t *testing.T) {
	c := newTestCanonicalizer()

	inputs := []string{
		"https://www.linkedin.com/jobs/view/1234567890/?utm_source=share",
		"https://linkedin.com/jobs/view/1234567890",
		"https://in.linkedin.com/jobs/view/1234567890/?trackingId=zz",
		"https://www.linkedin.com/jobs/collections/recommended/?currentJobId=1234567890",
	}
	var key string
	for _, in := range inputs {
		res, ok := c.Canonicalize(in)
		if !ok {
			t.Fatalf("rejected %q", in)
		}
		if key == "" {
			key = res.JobKey
		} else if res.JobKey != key {
			t.Errorf("%q produced key %q, want %q", in, res.JobKey, key)
		}
	}
}

func TestIIMJobs(t *testing.T) {
	c := newTestCanonicalizer()

	res, ok := c.Canonicalize("https://www.iimjobs.com/j/senior-backend-engineer-acme-1371640.html?ref=email")
	if !ok {
		t.Fatal("expected accepted")
	}
	if res.JobURL != "https://www.iimjobs.com/j/senior-backend-engineer-acme-1371640.html" {
		t.Errorf("job_url = %q", res.JobURL)
	}
	if res.ExternalID != "1371640" {
		t.Errorf("external_id = %q", res.ExternalID)
	}
}

func TestNaukri(t *testing.T) {
	c := newTestCanonicalizer()

	res, ok := c.Canonicalize("https://www.naukri.com/job-listings-backend-developer-acme-bangalore-210920500012?src=seo")
	if !ok {
		t.Fatal("expected accepted")
	}
	if res.ExternalID != "210920500012" {
		t.Errorf("external_id = %q", res.ExternalID)
	}
	if res.SourceDomain != "naukri.com" {
		t.Errorf("source_domain = %q", res.SourceDomain)
	}
}

func TestGenericHostStripsTracking(t *testing.T) {
	c := newTestCanonicalizer()

	res, ok := c.Canonicalize("https://wellfound.com/jobs/123-backend?utm_source=x&utm_campaign=y&gclid=z&page=2#apply")
	if !ok {
		t.Fatal("expected accepted")
	}
	if res.JobURL != "https://wellfound.com/jobs/123-backend?page=2" {
		t.Errorf("job_url = %q", res.JobURL)
	}

	// Same URL without tracking noise yields the same key.
	res2, ok := c.Canonicalize("https://wellfound.com/jobs/123-backend/?page=2")
	if !ok {
		t.Fatal("expected accepted")
	}
	if res2.JobKey != res.JobKey {
		t.Errorf("keys differ: %q vs %q", res2.JobKey, res.JobKey)
	}
}

func TestUnknownHostIgnored(t *testing.T) {
	c := newTestCanonicalizer()

	for _, in := range []string{
		"https://example.com/jobs/123",
		"https://www.linkedin.com/feed/",
		"not a url",
		"",
	} {
		if _, ok := c.Canonicalize(in); ok {
			t.Errorf("expected %q ignored", in)
		}
	}
}

func TestWhatsAppSynthetic(t *testing.T) {
	c := newTestCanonicalizer()

	res, ok := c.Canonicalize("whatsapp://msg-778899")
	if !ok {
		t.Fatal("expected accepted")
	}
	if res.SourceDomain != "whatsapp" {
		t.Errorf("source_domain = %q", res.SourceDomain)
	}
	if res.ExternalID != "msg-778899" {
		t.Errorf("external_id = %q", res.ExternalID)
	}
}

func TestDeterministicKeys(t *testing.T) {
	c := newTestCanonicalizer()

	a, _ := c.Canonicalize("https://www.linkedin.com/jobs/view/99/")
	b, _ := c.Canonicalize("https://www.linkedin.com/jobs/view/99/")
	if a.JobKey != b.JobKey {
		t.Errorf("same input produced different keys")
	}
}
