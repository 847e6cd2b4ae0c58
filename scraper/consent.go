package scraper

import (
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Selectors for the standard consent-wrapper accept control.
var consentAcceptSelectors = []string{
	"#consent-wrapper button[data-role='accept']",
	".consent-banner button.consent-accept",
	".cookie-banner button[class*='accept']",
	"button[data-testid='cookie-accept-all']",
	"button[aria-label*='Accept']",
}

// Selectors for vendor consent dialogs that may live inside an isolated
// embedded document.
var consentFrameSelectors = []string{
	"iframe[id^='sp_message_iframe']",
	"iframe[title*='consent']",
	"iframe[src*='consent']",
}

var consentFrameAcceptSelectors = []string{
	"button[title='Accept all']",
	"button.sp_choice_type_11",
	"button[class*='accept-all']",
}

// dismissConsent tries to get a cookie-consent overlay out of the way
// before any extraction. Best-effort by design: an overlay blocks all
// element interaction, but a page may simply not show one, so every
// failure path falls through silently.
func (p *Pipeline) dismissConsent(page *rod.Page, label string) {
	timeout := p.cfg.Timeouts.Consent

	// Strategy 1: accept control in a standard consent wrapper.
	for _, selector := range consentAcceptSelectors {
		if clickIfVisible(page, selector, timeout) {
			log.Printf("[%s] Consent dismissed via %s", label, selector)
			time.Sleep(p.cfg.Timeouts.Settle)
			return
		}
	}

	// Strategy 2: vendor "accept all" control inside an embedded document.
	for _, frameSelector := range consentFrameSelectors {
		frameEl, err := page.Timeout(timeout).Element(frameSelector)
		if err != nil {
			continue
		}
		frame, err := frameEl.Frame()
		if err != nil {
			continue
		}
		for _, selector := range consentFrameAcceptSelectors {
			if clickIfVisible(frame, selector, timeout) {
				log.Printf("[%s] Consent dismissed via frame %s %s", label, frameSelector, selector)
				time.Sleep(p.cfg.Timeouts.Settle)
				return
			}
		}
	}

	log.Printf("[%s] No consent banner handled, continuing", label)
}

// clickIfVisible clicks the first visible element matching selector
// within timeout. Returns false on timeout, invisibility or click
// failure.
func clickIfVisible(page *rod.Page, selector string, timeout time.Duration) bool {
	el, err := page.Timeout(timeout).Element(selector)
	if err != nil {
		return false
	}
	if visible, err := el.Visible(); err != nil || !visible {
		return false
	}
	return el.Click(proto.InputMouseButtonLeft, 1) == nil
}
