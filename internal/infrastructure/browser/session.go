package browser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"FeedScraper/internal/ports"
)

// Session implements ports.Page over a goquery document snapshot. The
// rendering process behind the snapshot is released through the close hook,
// exactly once, no matter how many times Close is called.
type Session struct {
	doc     *goquery.Document
	release func()
	closed  bool
}

var _ ports.Page = (*Session)(nil)

// NewSession wraps a parsed document with its release hook.
func NewSession(doc *goquery.Document, release func()) *Session {
	return &Session{doc: doc, release: release}
}

// NewSessionFromHTML parses raw HTML into a session with no live process
// behind it. Used by tests and by any caller that already holds markup.
func NewSessionFromHTML(html string) (*Session, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Session{doc: doc}, nil
}

// Text returns the trimmed text of the first match, "" when absent.
func (s *Session) Text(selector string) string {
	return strings.TrimSpace(s.doc.Find(selector).First().Text())
}

// ListText concatenates all matches, wrapping each in a paragraph tag and
// skipping empty ones.
func (s *Session) ListText(selector string) string {
	var parts []string
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}
		parts = append(parts, fmt.Sprintf("<p>%s</p>", text))
	})
	return strings.Join(parts, " ")
}

// Attr returns the named attribute of the first match.
func (s *Session) Attr(selector, name string) (string, bool) {
	return s.doc.Find(selector).First().Attr(name)
}

// AttrAll returns the named attribute of every match, in document order.
// Matches without the attribute contribute an empty string so callers can
// still line results up with the matched elements.
func (s *Session) AttrAll(selector, name string) []string {
	var values []string
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		value, _ := sel.Attr(name)
		values = append(values, value)
	})
	return values
}

// Links returns every anchor matching the selector.
func (s *Session) Links(selector string) []ports.Anchor {
	var anchors []ports.Anchor
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		anchors = append(anchors, ports.Anchor{
			Text: strings.TrimSpace(sel.Text()),
			URL:  href,
		})
	})
	return anchors
}

// Has reports whether at least one node matches.
func (s *Session) Has(selector string) bool {
	return s.doc.Find(selector).Length() > 0
}

// Close releases the underlying rendering process.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.release != nil {
		s.release()
	}
	return nil
}
