package scraper

import (
	"fmt"
	"net/url"
	"strings"

	"FeedScraper/internal/domain"
	"FeedScraper/internal/ports"
)

// Discover enumerates the listing page's sections and returns the surviving
// candidate links in source order. An empty result is valid: it just means no
// ingestion work for this site.
func Discover(page ports.Page, strategy SiteStrategy) ([]domain.CandidateLink, error) {
	sections := listSections(page, strategy)
	if len(sections) == 0 {
		return nil, fmt.Errorf("site %s: selector %q matched no sections", strategy.Name, strategy.SectionSelector)
	}

	base, err := url.Parse(strategy.ListingURL)
	if err != nil {
		return nil, fmt.Errorf("site %s: invalid listing url: %w", strategy.Name, err)
	}

	excludeCategories := toSet(strategy.ExcludeCategories)
	excludeURLs := toSet(strategy.ExcludeURLs)

	var links []domain.CandidateLink
	seen := map[string]struct{}{}

	for _, section := range sections {
		for _, anchor := range page.Links(section.linkSelector) {
			candidate, ok := toCandidate(anchor, base, strategy)
			if !ok {
				continue
			}
			if strategy.Host != "" && candidate.Host != strategy.Host {
				continue
			}
			// Category segments ending up as literal pages are navigation
			// chrome, not articles.
			if strings.Contains(candidate.Category, ".html") {
				continue
			}
			if _, excluded := excludeCategories[candidate.Category]; excluded {
				continue
			}
			if _, excluded := excludeURLs[candidate.URL]; excluded {
				continue
			}
			if _, dup := seen[candidate.URL]; dup {
				continue
			}
			seen[candidate.URL] = struct{}{}
			links = append(links, candidate)
		}
	}

	return links, nil
}

// section pairs a surviving region with the selector that finds its anchors.
type section struct {
	region       string
	linkSelector string
}

// listSections resolves the strategy's section selector into per-region link
// selectors, dropping excluded regions. Sites without a region attribute get
// a single section spanning every match.
func listSections(page ports.Page, strategy SiteStrategy) []section {
	if strategy.RegionAttr == "" {
		if !page.Has(strategy.SectionSelector) {
			return nil
		}
		return []section{{
			linkSelector: strategy.SectionSelector + " " + strategy.LinkSelector,
		}}
	}

	excluded := toSet(strategy.ExcludeRegions)

	var sections []section
	for _, region := range page.AttrAll(strategy.SectionSelector, strategy.RegionAttr) {
		if region == "" {
			continue
		}
		if _, skip := excluded[region]; skip {
			continue
		}
		sections = append(sections, section{
			region:       region,
			linkSelector: fmt.Sprintf(`[%s=%q] %s`, strategy.RegionAttr, region, strategy.LinkSelector),
		})
	}
	return sections
}

// toCandidate resolves the anchor URL against the listing page and derives
// category and host from it. Anchors without a title or with an unparseable
// URL are dropped.
func toCandidate(anchor ports.Anchor, base *url.URL, strategy SiteStrategy) (domain.CandidateLink, bool) {
	if anchor.Text == "" {
		return domain.CandidateLink{}, false
	}

	rawURL := anchor.URL
	if strategy.StripFragment != "" {
		rawURL = strings.Replace(rawURL, strategy.StripFragment, "", 1)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return domain.CandidateLink{}, false
	}
	resolved := base.ResolveReference(parsed)
	if resolved.Host == "" {
		return domain.CandidateLink{}, false
	}

	return domain.CandidateLink{
		Title:    anchor.Text,
		URL:      resolved.String(),
		Category: categorySegment(resolved.Path),
		Host:     resolved.Host,
	}, true
}

// categorySegment returns the first path segment, the site's category slot.
func categorySegment(path string) string {
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			return segment
		}
	}
	return ""
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}
