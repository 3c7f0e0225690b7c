package handlers

import (
	"net/http"

	"github.com/jobops/jobops/internal/ingest"
)

// Ingest handles POST /ingest. Manual URLs and pasted email bodies share one
// batch; the response carries per-row results in submission order plus the
// counts partition.
func (h *Handlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RawURLs   []string `json:"raw_urls"`
		EmailText string   `json:"email_text"`
		EmailHTML string   `json:"email_html"`
		Subject   string   `json:"subject"`
		From      string   `json:"from"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	envelopes := ingest.NewManualEnvelopes(body.RawURLs)
	if body.EmailText != "" || body.EmailHTML != "" {
		envelopes = append(envelopes, ingest.NewEmailEnvelopes(body.Subject, body.From, body.EmailText, body.EmailHTML)...)
	}
	if len(envelopes) == 0 {
		respondErr(w, http.StatusBadRequest, "no_candidates")
		return
	}

	batch, err := h.Orchestrator.Ingest(r.Context(), envelopes)
	if err != nil {
		respondErr(w, http.StatusInternalServerError, "ingest_failed", err.Error())
		return
	}
	respond(w, http.StatusOK, batch)
}
