package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTextQuotedReply(t *testing.T) {
	stripper := NewQuoteStripper()

	text := "Sounds good, see you then.\n\nOn Mon, May 5, 2025 at 9:12 AM Alice <alice@example.com> wrote:\n> Are we still on for Tuesday?\n> Alice"
	assert.Equal(t, "Sounds good, see you then.", stripper.StripText(text))
}

func TestStripTextLeadingQuoteLines(t *testing.T) {
	stripper := NewQuoteStripper()

	text := "Agreed.\n> previous message\n> more context"
	assert.Equal(t, "Agreed.", stripper.StripText(text))
}

func TestStripTextSignature(t *testing.T) {
	stripper := NewQuoteStripper()

	text := "Here is the report.\n\n-- \nBob Smith\nAcme Corp"
	assert.Equal(t, "Here is the report.", stripper.StripText(text))
}

func TestStripTextNoMarkers(t *testing.T) {
	stripper := NewQuoteStripper()

	text := "Plain message with no quoting at all."
	assert.Equal(t, text, stripper.StripText(text))
}

func TestStripTextDashesInsideLineKept(t *testing.T) {
	stripper := NewQuoteStripper()

	// "--" only counts as a signature delimiter on its own line.
	text := "The range is 10--20 units."
	assert.Equal(t, text, stripper.StripText(text))
}

func TestStripHTMLBlockquote(t *testing.T) {
	stripper := NewQuoteStripper()

	html := `<p>Sounds good.</p><blockquote class="gmail_quote"><p>old content</p></blockquote>`
	assert.Equal(t, "<p>Sounds good.</p>", stripper.StripHTML(html))
}

func TestStripHTMLGmailQuoteDiv(t *testing.T) {
	stripper := NewQuoteStripper()

	html := `<p>Reply text.</p><div class="gmail_quote">On Mon Alice wrote: old stuff</div>`
	assert.Equal(t, "<p>Reply text.</p>", stripper.StripHTML(html))
}

func TestNoopTransformKeepsEverything(t *testing.T) {
	noop := NewNoopTransform()

	text := "Hello\n> quoted\n-- \nsig"
	assert.Equal(t, text, noop.StripText(text))

	html := `<p>x</p><blockquote>q</blockquote>`
	assert.Equal(t, html, noop.StripHTML(html))
}
