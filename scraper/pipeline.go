package scraper

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-rod/rod"

	"modelmatch/config"
	"modelmatch/models"
)

// ErrBotChallenge is returned when an anti-automation challenge is
// detected. Any data extracted past that point would be unreliable, so
// the whole lookup aborts instead of degrading.
var ErrBotChallenge = errors.New("bot challenge detected")

// Pipeline runs the full lookup flow: search, candidate selection,
// detail-page navigation, specification and price-history extraction.
// One Pipeline owns one browser; each Lookup call gets its own page, so
// concurrent lookups are safe.
type Pipeline struct {
	browser  *Browser
	cfg      config.ScraperConfig
	detector *BotDetector
}

func NewPipeline(cfg config.ScraperConfig) (*Pipeline, error) {
	browser, err := NewBrowser(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser: %v", err)
	}
	return &Pipeline{
		browser:  browser,
		cfg:      cfg,
		detector: NewBotDetector(),
	}, nil
}

func (p *Pipeline) Close() {
	p.browser.Close()
}

// Lookup resolves a free-text product name into standardized product
// details. It returns (nil, nil) when no candidate clears the
// acceptance threshold or when the selected page yields nothing usable;
// an error is returned only for navigation failures and detected bot
// challenges.
func (p *Pipeline) Lookup(productName string) (*models.ProductDetails, error) {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return nil, errors.New("product name is empty")
	}

	start := time.Now()
	page, err := p.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %v", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Printf("Failed to close page: %v", err)
		}
	}()

	detailURL, err := p.findBestCandidateURL(page, productName)
	if err != nil {
		return nil, err
	}
	if detailURL == "" {
		log.Printf("No match for %q (%.1fs)", productName, time.Since(start).Seconds())
		return nil, nil
	}

	details, err := p.extractDetailPage(page, detailURL)
	if err != nil {
		return nil, err
	}
	if details == nil {
		log.Printf("Detail page for %q yielded nothing usable", productName)
		return nil, nil
	}

	log.Printf("Lookup for %q finished in %.1fs: %d spec rows, price history: %v",
		productName, time.Since(start).Seconds(), len(details.Specifications), details.PriceHistory != nil)
	return details, nil
}

// RefreshPriceHistory re-reads the price-history panel of an already
// known detail page, skipping the search stage entirely. Returns
// (nil, nil) when the panel yields nothing.
func (p *Pipeline) RefreshPriceHistory(detailURL string) (*models.PriceHistorySummary, error) {
	page, err := p.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %v", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			log.Printf("Failed to close page: %v", err)
		}
	}()

	nav := page.Timeout(p.cfg.Timeouts.Navigation)
	if err := nav.Navigate(detailURL); err != nil {
		return nil, fmt.Errorf("failed to open detail page: %v", err)
	}
	if err := nav.WaitLoad(); err != nil {
		return nil, fmt.Errorf("detail page did not load: %v", err)
	}

	p.dismissConsent(page, "refresh")

	if blocked, reason := p.detector.DetectChallengeOnPage(page); blocked {
		return nil, fmt.Errorf("%w: %s", ErrBotChallenge, reason)
	}

	time.Sleep(p.cfg.Timeouts.Settle)
	return p.extractPriceHistory(page), nil
}

// extractDetailPage navigates to the selected candidate and merges the
// specification and price-history stages. Either stage may come back
// empty without invalidating the other; only when both produce nothing
// is the whole page treated as a miss.
func (p *Pipeline) extractDetailPage(page *rod.Page, detailURL string) (*models.ProductDetails, error) {
	nav := page.Timeout(p.cfg.Timeouts.Navigation)
	if err := nav.Navigate(detailURL); err != nil {
		return nil, fmt.Errorf("failed to open detail page: %v", err)
	}
	if err := nav.WaitLoad(); err != nil {
		return nil, fmt.Errorf("detail page did not load: %v", err)
	}

	p.dismissConsent(page, "detail")

	if blocked, reason := p.detector.DetectChallengeOnPage(page); blocked {
		return nil, fmt.Errorf("%w: %s", ErrBotChallenge, reason)
	}

	time.Sleep(p.cfg.Timeouts.Settle)

	details := p.extractSpecifications(page)
	history := p.extractPriceHistory(page)

	if details == nil && history == nil {
		return nil, nil
	}
	if details == nil {
		details = &models.ProductDetails{Specifications: []models.Specification{}}
	}
	details.URL = detailURL
	details.PriceHistory = history
	return details, nil
}
