package scraper

import (
	"regexp"
	"strings"

	"github.com/go-rod/rod"
)

// Page elements whose presence alone marks an anti-automation challenge.
var challengeMarkerSelectors = []string{
	"form#challenge-form",
	"div.g-recaptcha",
	"iframe[src*='hcaptcha.com']",
	"iframe[src*='recaptcha']",
	"div#cf-challenge-running",
}

// BotDetector detects bot walls and CAPTCHA challenges on a page.
type BotDetector struct {
	botPatterns     []*regexp.Regexp
	captchaPatterns []*regexp.Regexp
}

// NewBotDetector creates a new bot detector
func NewBotDetector() *BotDetector {
	return &BotDetector{
		botPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)access denied`),
			regexp.MustCompile(`(?i)bot detected`),
			regexp.MustCompile(`(?i)security check`),
			regexp.MustCompile(`(?i)checking your browser`),
			regexp.MustCompile(`(?i)ddos protection`),
			regexp.MustCompile(`(?i)too many requests`),
			regexp.MustCompile(`(?i)rate limit`),
		},
		captchaPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)captcha`),
			regexp.MustCompile(`(?i)recaptcha`),
			regexp.MustCompile(`(?i)hcaptcha`),
			regexp.MustCompile(`(?i)turnstile`),
			regexp.MustCompile(`(?i)verify you are human`),
			regexp.MustCompile(`(?i)select all images`),
		},
	}
}

// DetectChallenge checks page content and title for bot-wall indicators.
// CAPTCHA patterns weigh more than generic block text; very short pages
// with any indicator weigh extra because real product pages are large.
func (bd *BotDetector) DetectChallenge(pageContent, pageTitle string) (bool, string) {
	content := strings.ToLower(pageContent + " " + pageTitle)

	score := 0.0
	var reasons []string

	for _, pattern := range bd.captchaPatterns {
		if pattern.MatchString(content) {
			score += 0.5
			reasons = append(reasons, "CAPTCHA indicator: "+pattern.String())
		}
	}

	for _, pattern := range bd.botPatterns {
		if pattern.MatchString(content) {
			score += 0.3
			reasons = append(reasons, pattern.String())
		}
	}

	if len(content) < 1000 && score > 0 {
		score += 0.2
		reasons = append(reasons, "very short content with bot indicators")
	}

	return score > 0.3, strings.Join(reasons, "; ")
}

// DetectChallengeOnPage combines the text heuristics with a check for
// known challenge elements in the live DOM.
func (bd *BotDetector) DetectChallengeOnPage(page *rod.Page) (bool, string) {
	for _, selector := range challengeMarkerSelectors {
		if has, _, err := page.Has(selector); err == nil && has {
			return true, "challenge element present: " + selector
		}
	}

	html, err := page.HTML()
	if err != nil {
		return false, ""
	}

	title := ""
	if info, err := page.Info(); err == nil {
		title = info.Title
	}

	return bd.DetectChallenge(html, title)
}
