package jd

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	brRe         = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockCloseRe = regexp.MustCompile(`(?i)</(p|div|li|ul|ol|h[1-6]|section|article|tr|table)>`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	spaceRe      = regexp.MustCompile(`[ \t]+`)
	blankLineRe  = regexp.MustCompile(`\n{3,}`)
)

// CleanHTML strips chrome elements and converts HTML to plain text with
// paragraph structure preserved as newlines.
func CleanHTML(rawHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err == nil {
		doc.Find("script, style, noscript, nav, footer, header, iframe, svg").Remove()
		if h, err := doc.Html(); err == nil {
			rawHTML = h
		}
	}

	text := brRe.ReplaceAllString(rawHTML, "\n")
	text = blockCloseRe.ReplaceAllString(text, "$0\n")
	text = tagRe.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)

	text = spaceRe.ReplaceAllString(text, " ")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		lines = append(lines, strings.TrimSpace(line))
	}
	text = strings.Join(lines, "\n")
	text = blankLineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// ExtractDenseWindow picks the largest dense text region from cleaned text.
// Paragraphs are scored by length; a window of consecutive paragraphs wins
// when it concentrates most of the text. Windows under 200 chars are
// rejected (returns "").
func ExtractDenseWindow(cleaned string) string {
	paras := splitParagraphs(cleaned)
	if len(paras) == 0 {
		return ""
	}

	// Grow the best window around the longest paragraph, absorbing
	// neighbors that still look like prose.
	best := 0
	for i, p := range paras {
		if len(p) > len(paras[best]) {
			best = i
		}
	}
	lo, hi := best, best
	for lo > 0 && len(paras[lo-1]) >= 40 {
		lo--
	}
	for hi < len(paras)-1 && len(paras[hi+1]) >= 40 {
		hi++
	}

	window := strings.Join(paras[lo:hi+1], "\n\n")
	if len(window) < 200 {
		return ""
	}
	return window
}

func splitParagraphs(text string) []string {
	var paras []string
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}
