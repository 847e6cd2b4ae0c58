package scraper

import (
	"fmt"
	"log"
	"net/url"
	"sort"
	"strings"

	"github.com/go-rod/rod"

	"modelmatch/models"
)

// Result-list structure on the search page, most specific first.
var resultListSelectors = []string{
	"[data-testid='search-results']",
	".search-results",
	"#search-results",
	".results-list",
}

var resultItemSelectors = []string{
	"[data-testid='result-item']",
	".search-results__item",
	".product-item",
	"article.result",
}

var resultTitleSelectors = []string{
	".product-item__title a",
	".product-item__title",
	"h2 a",
	"h3 a",
	"a[title]",
}

// findBestCandidateURL opens the search results for productName and
// returns the URL of the best-matching candidate, or "" when nothing
// clears the acceptance threshold. Only the first results page is
// considered; a result list that never shows up counts as "no results",
// not as a transient fault, so there is no retry.
func (p *Pipeline) findBestCandidateURL(page *rod.Page, productName string) (string, error) {
	searchURL := p.buildSearchURL(productName)
	log.Printf("Searching for %q at %s", productName, searchURL)

	nav := page.Timeout(p.cfg.Timeouts.Navigation)
	if err := nav.Navigate(searchURL); err != nil {
		return "", fmt.Errorf("failed to open search page: %v", err)
	}
	if err := nav.WaitLoad(); err != nil {
		return "", fmt.Errorf("search page did not load: %v", err)
	}

	p.dismissConsent(page, "search")

	if blocked, reason := p.detector.DetectChallengeOnPage(page); blocked {
		return "", fmt.Errorf("%w: %s", ErrBotChallenge, reason)
	}

	list := p.waitForResultList(page)
	if list == nil {
		log.Printf("Result list never became visible for %q, treating as no results", productName)
		return "", nil
	}

	candidates := p.collectCandidates(list)
	log.Printf("Found %d candidates for %q", len(candidates), productName)
	if len(candidates) == 0 {
		return "", nil
	}

	best := rankCandidates(productName, candidates, p.cfg.MinScore)
	if best == nil {
		log.Printf("No candidate for %q cleared the threshold %.2f", productName, p.cfg.MinScore)
		return "", nil
	}

	log.Printf("Best candidate for %q: %q (score %.3f)", productName, best.Title, best.Similarity)
	return best.PageURL, nil
}

func (p *Pipeline) buildSearchURL(productName string) string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/search?q=" + url.QueryEscape(productName)
}

// waitForResultList waits for any known result-list container to become
// visible within the selector timeout. Nil means the page rendered no
// list at all.
func (p *Pipeline) waitForResultList(page *rod.Page) *rod.Element {
	for _, selector := range resultListSelectors {
		el, err := page.Timeout(p.cfg.Timeouts.Selector).Element(selector)
		if err != nil {
			continue
		}
		if visible, err := el.Visible(); err == nil && visible {
			return el
		}
	}
	return nil
}

// collectCandidates parses each result item into a title/URL pair.
// Relative links are resolved against the configured base URL.
func (p *Pipeline) collectCandidates(list *rod.Element) []models.SearchCandidate {
	var items []*rod.Element
	for _, selector := range resultItemSelectors {
		found, err := list.Elements(selector)
		if err == nil && len(found) > 0 {
			items = found
			break
		}
	}

	var candidates []models.SearchCandidate
	for _, item := range items {
		title, _, ok := TryEach(elementTextStrategies(item, resultTitleSelectors)...)
		if !ok {
			continue
		}

		link, err := item.Timeout(probeTimeout).Element("a[href]")
		if err != nil {
			continue
		}
		href, err := link.Attribute("href")
		if err != nil || href == nil || *href == "" {
			continue
		}

		candidates = append(candidates, models.SearchCandidate{
			Title:   title,
			PageURL: resolveURL(p.cfg.BaseURL, *href),
		})
	}
	return candidates
}

// elementTextStrategies builds a text-extraction cascade over the given
// child selectors of el.
func elementTextStrategies(el *rod.Element, selectors []string) []Extraction {
	steps := make([]Extraction, 0, len(selectors))
	for _, selector := range selectors {
		sel := selector
		steps = append(steps, Extraction{
			Name: sel,
			Run: func() (string, error) {
				child, err := el.Timeout(probeTimeout).Element(sel)
				if err != nil {
					return "", err
				}
				return child.Text()
			},
		})
	}
	return steps
}

// rankCandidates scores every candidate against the query and returns
// the strict maximum, or nil when the best score is below minScore.
// Sorting is stable, so the first occurrence wins on exact ties.
func rankCandidates(query string, candidates []models.SearchCandidate, minScore float64) *models.ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}

	normQuery := NormalizeTitle(query)

	scored := make([]models.ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		scored = append(scored, models.ScoredCandidate{
			SearchCandidate: c,
			Similarity:      SimilarityScore(normQuery, NormalizeTitle(c.Title)),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})

	if scored[0].Similarity < minScore {
		return nil
	}
	return &scored[0]
}

// resolveURL makes href absolute against the site base.
func resolveURL(base, href string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}
