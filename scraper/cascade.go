package scraper

import (
	"strings"
	"time"
)

// probeTimeout bounds child-element lookups inside an already rendered
// container. rod element lookups wait for the selector to appear, so an
// unbounded probe on absent markup would hang the cascade.
const probeTimeout = 500 * time.Millisecond

// Extraction is a single strategy for producing a field's text. The page
// markup drifts, so every field is extracted through an ordered list of
// strategies rather than one hard-coded selector.
type Extraction struct {
	Name string
	Run  func() (string, error)
}

// TryEach runs strategies in order and returns the first trimmed
// non-empty result together with the name of the strategy that produced
// it. Errors and empty results just fall through to the next strategy;
// ok is false only when the whole cascade is exhausted.
func TryEach(steps ...Extraction) (value string, strategy string, ok bool) {
	for _, step := range steps {
		text, err := step.Run()
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, step.Name, true
		}
	}
	return "", "", false
}
