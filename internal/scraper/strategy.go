package scraper

import (
	"fmt"

	"FeedScraper/internal/config"
	"FeedScraper/internal/domain"
)

// Rule is one selector extraction step: text of the first match when Attr is
// empty, the attribute value otherwise, or a paragraph-joined list of all
// matches when List is set.
type Rule struct {
	Selector string
	Attr     string
	List     bool
}

// Empty reports whether the rule is unset.
func (r Rule) Empty() bool { return r.Selector == "" }

// FieldRules maps article fields to their rules. Image is an ordered fallback
// chain: the first rule whose selector is present wins, and an article with no
// image match simply has no image. A wrong match is worse than no match, so
// presence is probed before reading.
type FieldRules struct {
	Title     Rule
	Subtitle  Rule
	Author    Rule
	Content   Rule
	Image     []Rule
	Published Rule
	Updated   Rule
}

// SiteStrategy describes one site entirely as data: where its listing page
// lives, how to find candidate links on it, which links to keep, and how to
// pull fields out of a detail page.
type SiteStrategy struct {
	Name            string
	Origin          domain.Origin
	ListingURL      string
	Host            string
	ConsentSelector string

	SectionSelector string
	// RegionAttr names the attribute carrying the section's region tag.
	// Empty means the site's sections are untagged.
	RegionAttr   string
	LinkSelector string
	// StripFragment is removed from discovered URLs before filtering.
	StripFragment string

	ExcludeRegions    []string
	ExcludeCategories []string
	ExcludeURLs       []string

	Fields      FieldRules
	DateLayouts []string
	// UpdatedFromPublished mirrors the published value into updated instead
	// of probing the Updated rule. Site markup genuinely differs here.
	UpdatedFromPublished bool
}

// FromConfig converts a config site entry into a strategy.
func FromConfig(site config.SiteConfig) (SiteStrategy, error) {
	origin := domain.Origin(site.Origin)
	if !origin.Valid() {
		return SiteStrategy{}, fmt.Errorf("site %s: unknown origin %q", site.Name, site.Origin)
	}
	if site.ListingURL == "" {
		return SiteStrategy{}, fmt.Errorf("site %s: listing url is required", site.Name)
	}
	if site.SectionSelector == "" {
		return SiteStrategy{}, fmt.Errorf("site %s: section selector is required", site.Name)
	}
	if site.Fields.Title.Selector == "" {
		return SiteStrategy{}, fmt.Errorf("site %s: title rule is required", site.Name)
	}

	linkSelector := site.LinkSelector
	if linkSelector == "" {
		linkSelector = "a"
	}

	return SiteStrategy{
		Name:                 site.Name,
		Origin:               origin,
		ListingURL:           site.ListingURL,
		Host:                 site.Host,
		ConsentSelector:      site.ConsentSelector,
		SectionSelector:      site.SectionSelector,
		RegionAttr:           site.RegionAttr,
		LinkSelector:         linkSelector,
		StripFragment:        site.StripFragment,
		ExcludeRegions:       site.ExcludeRegions,
		ExcludeCategories:    site.ExcludeCategories,
		ExcludeURLs:          site.ExcludeURLs,
		Fields:               fieldRules(site.Fields),
		DateLayouts:          site.DateLayouts,
		UpdatedFromPublished: site.UpdatedFromPublished,
	}, nil
}

// StrategiesFromConfig converts every configured site, failing on the first
// invalid entry.
func StrategiesFromConfig(sites []config.SiteConfig) ([]SiteStrategy, error) {
	strategies := make([]SiteStrategy, 0, len(sites))
	for _, site := range sites {
		strategy, err := FromConfig(site)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, strategy)
	}
	return strategies, nil
}

func fieldRules(cfg config.FieldConfig) FieldRules {
	image := make([]Rule, 0, len(cfg.Image))
	for _, rule := range cfg.Image {
		image = append(image, toRule(rule))
	}
	return FieldRules{
		Title:     toRule(cfg.Title),
		Subtitle:  toRule(cfg.Subtitle),
		Author:    toRule(cfg.Author),
		Content:   toRule(cfg.Content),
		Image:     image,
		Published: toRule(cfg.Published),
		Updated:   toRule(cfg.Updated),
	}
}

func toRule(cfg config.RuleConfig) Rule {
	return Rule{Selector: cfg.Selector, Attr: cfg.Attr, List: cfg.List}
}
