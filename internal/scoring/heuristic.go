package scoring

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jobops/jobops/internal/models"
)

// HeuristicResult is the outcome of the deterministic pre-filter.
type HeuristicResult struct {
	Passed  bool     `json:"passed"`
	Signal  int      `json:"signal"`
	Reasons []string `json:"reasons,omitempty"`
}

// runHeuristic gates the pipeline before any LLM call. Pass requires enough
// JD text and enough keyword signal against the active targets; any blocked
// keyword is an immediate reject.
func runHeuristic(jdText string, targets []*models.Target, minJDChars, minSignal int) HeuristicResult {
	var reasons []string

	if len(jdText) < minJDChars {
		reasons = append(reasons, "jd_too_short")
	}

	lower := strings.ToLower(jdText)
	signal := 0
	seen := map[string]bool{}
	for _, target := range targets {
		for _, kw := range append(append([]string{}, target.MustKeywords...), target.NiceKeywords...) {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			signal += countWordMatches(lower, kw)
		}
	}
	if signal < minSignal {
		reasons = append(reasons, "low_target_signal")
	}

	blockedSeen := map[string]bool{}
	for _, target := range targets {
		for _, kw := range target.RejectKeywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" || blockedSeen[kw] {
				continue
			}
			blockedSeen[kw] = true
			if countWordMatches(lower, kw) > 0 {
				reasons = append(reasons, "blocked_keyword:"+kw)
			}
		}
	}

	return HeuristicResult{
		Passed:  len(reasons) == 0,
		Signal:  signal,
		Reasons: reasons,
	}
}

// countWordMatches counts case-insensitive word-boundary occurrences of kw
// in lower (already lowercased).
func countWordMatches(lower, kw string) int {
	re, err := regexp.Compile(fmt.Sprintf(`\b%s\b`, regexp.QuoteMeta(kw)))
	if err != nil {
		return 0
	}
	return len(re.FindAllString(lower, -1))
}

// snippetAround returns a short excerpt of text centered on the first
// case-insensitive occurrence of needle, or "" when absent.
func snippetAround(text, needle string) string {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(needle))
	if idx < 0 {
		return ""
	}
	lo := idx - 60
	if lo < 0 {
		lo = 0
	}
	hi := idx + len(needle) + 60
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}
