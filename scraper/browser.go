package scraper

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"modelmatch/config"
)

// Browser wraps a shared rod browser. The pipeline owns one Browser for
// its lifetime; each lookup gets its own page from it.
type Browser struct {
	browser *rod.Browser
	cfg     config.ScraperConfig
}

// NewBrowser launches a browser with the given configuration.
func NewBrowser(cfg config.ScraperConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Leakless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Set("window-size", "1920,1080")

	if path := findChromiumPath(); path != "" {
		log.Printf("Using Chromium at: %s", path)
		l = l.Bin(path)
	}

	if isDockerEnvironment() {
		log.Println("Docker environment detected, applying container-specific settings")
		l = l.Set("disable-setuid-sandbox").
			Set("no-first-run").
			Set("disable-default-apps")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %v", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %v", err)
	}

	return &Browser{browser: browser, cfg: cfg}, nil
}

// NewPage opens a stealth page with the configured user agent and
// viewport. The caller owns the page and must close it.
func (b *Browser) NewPage() (*rod.Page, error) {
	page, err := stealth.Page(b.browser)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %v", err)
	}

	if b.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: b.cfg.UserAgent}); err != nil {
			page.Close()
			return nil, fmt.Errorf("failed to set user agent: %v", err)
		}
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1920,
		Height: 1080,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("failed to set viewport: %v", err)
	}

	return page, nil
}

// Close shuts the underlying browser down.
func (b *Browser) Close() {
	if b.browser != nil {
		b.browser.Close()
	}
}

// findChromiumPath looks for a Chromium/Chrome binary in common locations
func findChromiumPath() string {
	if chromeBin := os.Getenv("CHROME_BIN"); chromeBin != "" {
		if _, err := os.Stat(chromeBin); err == nil {
			return chromeBin
		}
	}

	paths := []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// isDockerEnvironment checks if running inside a container
func isDockerEnvironment() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	if data, err := os.ReadFile("/proc/1/cgroup"); err == nil {
		return strings.Contains(string(data), "docker") || strings.Contains(string(data), "containerd")
	}

	return false
}
