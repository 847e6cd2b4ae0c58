package scraper

import (
	"log"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"modelmatch/models"
)

// Tab controls that reveal the price-history panel: exact text matches
// first, then fuzzy attribute matches.
var historyTabStrategies = []struct {
	selector string
	regex    string
}{
	{"button, a, [role='tab']", "(?i)^price history$"},
	{"button, a, [role='tab']", "(?i)^statistics$"},
	{"[data-testid*='price-history-tab']", ""},
	{"[aria-controls*='statistics']", ""},
	{"a[href*='#statistics']", ""},
}

var historyPanelSelectors = []string{
	"[data-testid='price-history']",
	"[data-testid='statistics-panel']",
	".price-history",
	".statistics-panel",
}

const threeMonthsActiveMarker = "is-active"

// extractPriceHistory reads the price-history panel from the detail
// page. Everything here is best-effort: a missing panel returns nil, a
// missing field stays empty, and no failure ever propagates to the
// caller.
func (p *Pipeline) extractPriceHistory(page *rod.Page) *models.PriceHistorySummary {
	p.activateHistoryTab(page)

	panel := p.firstElement(page, historyPanelSelectors...)
	if panel == nil {
		log.Printf("No price-history panel found")
		return nil
	}

	period := p.forceThreeMonthPeriod(panel)

	summary := &models.PriceHistorySummary{
		SelectedPeriod: period,
	}

	summary.LowestPriceInPeriod, _, _ = TryEach(
		panelText(panel, "[data-testid='lowest-price']"),
		panelText(panel, ".price-history__lowest .price"),
		panelXPathText(panel, ".//*[contains(@class,'label')][contains(.,'Lowest price')]/following-sibling::*[1]"),
	)
	summary.LowestPriceDate, _, _ = TryEach(
		panelText(panel, "[data-testid='lowest-price-date']"),
		panelText(panel, ".price-history__lowest .date"),
		panelText(panel, ".price-history__lowest time"),
	)
	summary.LowestPriceToday, _, _ = TryEach(
		panelText(panel, "[data-testid='current-lowest-price']"),
		panelText(panel, ".price-history__today .price"),
		panelXPathText(panel, ".//*[contains(@class,'label')][contains(.,'today')]/following-sibling::*[1]"),
	)
	summary.LowestPriceTodayShop, _, _ = TryEach(
		panelText(panel, "[data-testid='current-lowest-seller']"),
		panelText(panel, ".price-history__today .seller"),
		panelText(panel, ".price-history__today a"),
	)

	summary.MedianPriceEstimate = medianEstimate(summary.LowestPriceInPeriod, summary.LowestPriceToday)

	if summary.IsEmpty() {
		return nil
	}
	return summary
}

// activateHistoryTab clicks the first visible tab control that matches
// a known strategy, then waits briefly for the panel to render. A page
// where no tab matches may still show the panel by default, so a miss
// here is not a failure.
func (p *Pipeline) activateHistoryTab(page *rod.Page) {
	for _, s := range historyTabStrategies {
		// Short per-strategy bound: the page is already rendered by the
		// time the price-history stage runs.
		var el *rod.Element
		var err error
		if s.regex != "" {
			el, err = page.Timeout(2 * probeTimeout).ElementR(s.selector, s.regex)
		} else {
			el, err = page.Timeout(2 * probeTimeout).Element(s.selector)
		}
		if err != nil {
			continue
		}
		if visible, err := el.Visible(); err != nil || !visible {
			continue
		}
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			continue
		}
		log.Printf("Activated price-history tab via %q", s.selector)
		time.Sleep(p.cfg.Timeouts.Settle)
		return
	}
	log.Printf("No price-history tab control matched, assuming panel is visible by default")
}

// forceThreeMonthPeriod makes sure the 3-months range is selected. The
// reported period defaults to "3 months" even when no control is found,
// since that is the panel's default range.
func (p *Pipeline) forceThreeMonthPeriod(panel *rod.Element) string {
	for _, selector := range []string{"[data-period='3m']", "[data-testid='period-3m']"} {
		control, err := panel.Timeout(probeTimeout).Element(selector)
		if err != nil {
			continue
		}
		return p.selectPeriodControl(control)
	}
	if control, err := panel.Timeout(probeTimeout).ElementR("button, a", "(?i)^3 months$"); err == nil {
		return p.selectPeriodControl(control)
	}
	return "3 months"
}

func (p *Pipeline) selectPeriodControl(control *rod.Element) string {
	class, err := control.Attribute("class")
	if err == nil && class != nil && strings.Contains(*class, threeMonthsActiveMarker) {
		return "3 months"
	}
	if err := control.Click(proto.InputMouseButtonLeft, 1); err != nil {
		log.Printf("Could not select 3-month period: %v", err)
		return "3 months"
	}
	time.Sleep(p.cfg.Timeouts.Settle)
	return "3 months"
}

// medianEstimate approximates the median price from the two summary
// prices: the mean when both parse, the single value as displayed when
// only one does, empty when neither does. The true median over the full
// series is not recoverable from summary text.
func medianEstimate(lowestInPeriod, lowestToday string) string {
	a, okA := ParseNumber(lowestInPeriod)
	b, okB := ParseNumber(lowestToday)
	switch {
	case okA && okB:
		return FormatDecimalComma((a + b) / 2)
	case okA:
		return lowestInPeriod
	case okB:
		return lowestToday
	}
	return ""
}

func panelText(panel *rod.Element, selector string) Extraction {
	return Extraction{
		Name: selector,
		Run: func() (string, error) {
			el, err := panel.Timeout(probeTimeout).Element(selector)
			if err != nil {
				return "", err
			}
			return el.Text()
		},
	}
}

func panelXPathText(panel *rod.Element, xpath string) Extraction {
	return Extraction{
		Name: xpath,
		Run: func() (string, error) {
			el, err := panel.Timeout(probeTimeout).ElementX(xpath)
			if err != nil {
				return "", err
			}
			return el.Text()
		},
	}
}
