package jd

import "strings"

// Shell-page markers: pages that render a wall instead of the posting.
var shellMarkers = []string{
	"enable javascript",
	"javascript is disabled",
	"cookies are disabled",
	"accept cookies",
	"cookie policy",
	"verify you are a human",
	"are you a robot",
	"captcha",
	"access denied",
	"sign in to view",
	"join to view",
	"privacy notice",
	"unusual traffic",
}

// Hiring signals used for confidence grading.
var hiringSignals = []string{
	"responsibilities",
	"requirements",
	"qualifications",
	"experience",
	"we are looking",
	"you will",
	"role",
	"skills",
	"about the job",
	"what you'll do",
}

// IsLowQuality reports whether cleaned JD text is a shell page or carries too
// little signal to score.
func IsLowQuality(text string, minChars int) bool {
	lower := strings.ToLower(text)
	if len(text) < minChars {
		return true
	}
	for _, marker := range shellMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	// Long enough but generic: demand some hiring vocabulary.
	if countSignals(lower) == 0 && len(text) < minChars*4 {
		return true
	}
	return false
}

// Confidence grades cleaned JD text: high needs length >= 600 and at least
// three hiring signals, medium needs length >= 300, else low.
func Confidence(text string) string {
	lower := strings.ToLower(text)
	if len(text) >= 600 && countSignals(lower) >= 3 {
		return "high"
	}
	if len(text) >= 300 {
		return "medium"
	}
	return "low"
}

func countSignals(lower string) int {
	n := 0
	for _, s := range hiringSignals {
		if strings.Contains(lower, s) {
			n++
		}
	}
	return n
}
