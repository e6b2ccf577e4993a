package scraper

import (
	"fmt"

	"FeedScraper/internal/ports"
)

// ExtractionError reports that a required selector path produced no usable
// data. Optional-field absence never raises it.
type ExtractionError struct {
	URL   string
	Field string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: no data for required field %s", e.URL, e.Field)
}

// Extracted holds raw fields pulled from one detail page. Published and
// Updated keep their site-native string form; the ingestion service
// normalizes them.
type Extracted struct {
	Title       string
	Subtitle    string
	Content     string
	Author      string
	ImageURL    string
	PublishedAt string
	UpdatedAt   string
}

// Extract reads every field of the strategy out of an open detail page.
//
// Content falls back to the subtitle when the body selector is absent:
// partial-content articles are ingested with reduced content rather than
// dropped. The image chain is tri-state (primary, secondary, absent): each
// rule's presence is probed before its value is read.
func Extract(page ports.Page, url string, strategy SiteStrategy) (Extracted, error) {
	rules := strategy.Fields

	title := applyRule(page, rules.Title)
	if title == "" {
		return Extracted{}, &ExtractionError{URL: url, Field: "title"}
	}

	subtitle := applyRule(page, rules.Subtitle)

	content := subtitle
	if !rules.Content.Empty() && page.Has(rules.Content.Selector) {
		content = applyRule(page, rules.Content)
	}

	extracted := Extracted{
		Title:       title,
		Subtitle:    subtitle,
		Content:     content,
		Author:      applyRule(page, rules.Author),
		ImageURL:    imageFallback(page, rules.Image),
		PublishedAt: optionalRule(page, rules.Published),
	}

	if strategy.UpdatedFromPublished {
		extracted.UpdatedAt = extracted.PublishedAt
	} else {
		extracted.UpdatedAt = optionalRule(page, rules.Updated)
	}

	return extracted, nil
}

// imageFallback probes each rule in order and reads only a present one.
func imageFallback(page ports.Page, chain []Rule) string {
	for _, rule := range chain {
		if rule.Empty() || !page.Has(rule.Selector) {
			continue
		}
		if value := applyRule(page, rule); value != "" {
			return value
		}
	}
	return ""
}

// optionalRule reads a rule only when its selector is present.
func optionalRule(page ports.Page, rule Rule) string {
	if rule.Empty() || !page.Has(rule.Selector) {
		return ""
	}
	return applyRule(page, rule)
}

func applyRule(page ports.Page, rule Rule) string {
	switch {
	case rule.Empty():
		return ""
	case rule.Attr != "":
		value, _ := page.Attr(rule.Selector, rule.Attr)
		return value
	case rule.List:
		return page.ListText(rule.Selector)
	default:
		return page.Text(rule.Selector)
	}
}
