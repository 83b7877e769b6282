package parser

import "strings"

// minRenderedTextLength is the visible-text threshold below which a page
// with scripts is assumed to be a client-rendered shell.
const minRenderedTextLength = 200

// looksClientRendered reports whether a share page is likely an empty
// JavaScript-rendered shell: scripts present but almost no visible text.
// These pages parse to zero messages no matter the strategy; the hint lets
// callers tell users why the import found nothing.
func looksClientRendered(document string) bool {
	if !strings.Contains(document, "<script") {
		return false
	}
	return len(stripHTMLToText(document)) < minRenderedTextLength
}
