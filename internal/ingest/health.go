package ingest

// Source health statuses and reason codes, computed per ingest batch.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthFailing  = "failing"

	ReasonNoCandidates       = "no_candidates"
	ReasonNoValidCandidates  = "no_valid_candidates"
	ReasonLowValidRatio      = "low_valid_ratio"
	ReasonNoCanonicalJobURLs = "no_canonical_job_urls"
)

// SourceHealth summarizes how usable one batch from a source was.
type SourceHealth struct {
	Source     string  `json:"source"`
	Total      int     `json:"total"`
	Valid      int     `json:"valid"`
	ValidRatio float64 `json:"valid_ratio"`
	Status     string  `json:"status"`
	Reason     string  `json:"reason,omitempty"`
}

// ComputeHealth grades a batch: withURL counts envelopes that carried a job
// URL at all, valid those whose URL survived canonicalization.
func ComputeHealth(source string, total, withURL, valid int) SourceHealth {
	h := SourceHealth{Source: source, Total: total, Valid: valid}
	switch {
	case total == 0:
		h.Status = HealthFailing
		h.Reason = ReasonNoCandidates
	case withURL == 0:
		h.Status = HealthFailing
		h.Reason = ReasonNoCanonicalJobURLs
	case valid == 0:
		h.Status = HealthFailing
		h.Reason = ReasonNoValidCandidates
	default:
		h.ValidRatio = float64(valid) / float64(total)
		if h.ValidRatio < 0.5 {
			h.Status = HealthDegraded
			h.Reason = ReasonLowValidRatio
		} else {
			h.Status = HealthHealthy
		}
	}
	return h
}
