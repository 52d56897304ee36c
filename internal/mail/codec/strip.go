package codec

import (
	"regexp"
	"strings"
)

// TextTransform is the pluggable cleanup step applied to decoded
// bodies. The default implementation strips quoted replies and trailing
// signatures heuristically; swap it out to change or disable the
// heuristic without touching decode logic.
type TextTransform interface {
	StripText(text string) string
	StripHTML(html string) string
}

var (
	wroteLineRe  = regexp.MustCompile(`(?mi)^On .{0,200}wrote:`)
	quotedLineRe = regexp.MustCompile(`(?m)^>`)
	sigDelimRe   = regexp.MustCompile(`(?m)^--\s*$`)

	blockquoteRe = regexp.MustCompile(`(?is)<blockquote[^>]*>.*?</blockquote>`)
	quoteDivRe   = regexp.MustCompile(`(?is)<div[^>]*class="[^"]*gmail_quote[^"]*"[^>]*>.*?</div>`)
	sigDivRe     = regexp.MustCompile(`(?is)<div[^>]*class="[^"]*signature[^"]*"[^>]*>.*?</div>`)
	wroteDivRe   = regexp.MustCompile(`(?is)<div[^>]*>\s*On .{0,200}?wrote:.*?</div>`)
)

type quoteStripper struct{}

// NewQuoteStripper returns the default quote/signature stripping
// heuristic.
func NewQuoteStripper() TextTransform {
	return quoteStripper{}
}

// StripText truncates at the first quoted-reply marker ("On ... wrote:"
// or a leading ">" line) and drops a trailing "--" signature block.
func (quoteStripper) StripText(text string) string {
	cut := len(text)
	if loc := wroteLineRe.FindStringIndex(text); loc != nil && loc[0] < cut {
		cut = loc[0]
	}
	if loc := quotedLineRe.FindStringIndex(text); loc != nil && loc[0] < cut {
		cut = loc[0]
	}
	text = text[:cut]

	if loc := sigDelimRe.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return strings.TrimSpace(text)
}

// StripHTML removes blockquote elements, quoted-reply wrapper divs and
// signature divs via pattern match.
func (quoteStripper) StripHTML(html string) string {
	html = blockquoteRe.ReplaceAllString(html, "")
	html = quoteDivRe.ReplaceAllString(html, "")
	html = sigDivRe.ReplaceAllString(html, "")
	html = wroteDivRe.ReplaceAllString(html, "")
	return strings.TrimSpace(html)
}

// noopTransform leaves bodies untouched.
type noopTransform struct{}

func (noopTransform) StripText(text string) string { return text }
func (noopTransform) StripHTML(html string) string { return html }

// NewNoopTransform returns a transform that keeps bodies as-is.
func NewNoopTransform() TextTransform {
	return noopTransform{}
}
