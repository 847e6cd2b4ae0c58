package scraper

import (
	"strings"
	"testing"
)

func TestDetectChallengeCaptcha(t *testing.T) {
	bd := NewBotDetector()

	detected, reason := bd.DetectChallenge("Please complete the CAPTCHA to continue", "Security check")
	if !detected {
		t.Fatal("CAPTCHA page not detected")
	}
	if reason == "" {
		t.Error("expected a non-empty reason")
	}
}

func TestDetectChallengeCleanPage(t *testing.T) {
	bd := NewBotDetector()

	content := strings.Repeat("Display 6.1 inch OLED, 256 GB storage, dual SIM. ", 40)
	if detected, reason := bd.DetectChallenge(content, "Apple iPhone 15 - PriceHub"); detected {
		t.Errorf("clean product page flagged as challenge: %s", reason)
	}
}

func TestDetectChallengeSingleBotPatternOnLongPage(t *testing.T) {
	bd := NewBotDetector()

	// A long legitimate page mentioning "rate limit" once scores 0.3,
	// which is below the abort threshold.
	content := strings.Repeat("Product specifications and reviews. ", 50) +
		"API rate limit documentation for developers."
	if detected, reason := bd.DetectChallenge(content, "Developer docs"); detected {
		t.Errorf("single weak indicator on long page flagged: %s", reason)
	}
}

func TestDetectChallengeShortBlockedPage(t *testing.T) {
	bd := NewBotDetector()

	// Short page plus a bot pattern crosses the threshold.
	if detected, _ := bd.DetectChallenge("Access denied", "403"); !detected {
		t.Error("short blocked page not detected")
	}
}
