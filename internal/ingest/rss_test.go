package ingest

import "testing"

const testFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Jobs</title>
<item><title>Senior Backend Engineer (Go)</title><link>https://www.linkedin.com/jobs/view/101/</link><guid>101</guid><description>Build APIs in Go</description></item>
<item><title>PHP Developer</title><link>https://www.linkedin.com/jobs/view/102/</link><guid>102</guid><description>WordPress work</description></item>
<item><title>Frontend Intern</title><link>https://www.linkedin.com/jobs/view/103/</link><guid>103</guid><description>React internship</description></item>
</channel></rss>`

func TestRSSFiltersAndParses(t *testing.T) {
	adapter := NewRSSAdapter([]string{"backend", "frontend"}, []string{"intern"})

	envelopes, err := adapter.ParseString(testFeed)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	// "PHP Developer" misses the allow list; "Frontend Intern" is blocked.
	if len(envelopes) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envelopes))
	}
	env := envelopes[0]
	if env.Job.Title != "Senior Backend Engineer (Go)" {
		t.Errorf("title = %q", env.Job.Title)
	}
	if env.Job.ExternalID != "101" {
		t.Errorf("external_id = %q", env.Job.ExternalID)
	}
	if env.Source != SourceRSS {
		t.Errorf("source = %q", env.Source)
	}
}

func TestRSSEmptyAllowAdmitsAll(t *testing.T) {
	adapter := NewRSSAdapter(nil, []string{"intern"})
	envelopes, err := adapter.ParseString(testFeed)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(envelopes) != 2 {
		t.Errorf("expected 2 envelopes, got %d", len(envelopes))
	}
}

func TestRSSAtomFeed(t *testing.T) {
	atom := `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom"><title>Jobs</title>
<entry><title>Backend Role</title><link href="https://aggregator.example/r?url=https%3A%2F%2Fwww.linkedin.com%2Fjobs%2Fview%2F201%2F"/><id>201</id><summary>Go role</summary></entry>
</feed>`
	adapter := NewRSSAdapter(nil, nil)
	envelopes, err := adapter.ParseString(atom)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(envelopes) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envelopes))
	}
	// Wrapper param unwrapped.
	if envelopes[0].Job.JobURL != "https://www.linkedin.com/jobs/view/201/" {
		t.Errorf("url = %q, want unwrapped", envelopes[0].Job.JobURL)
	}
}
