package scraper

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-rod/rod"

	"modelmatch/models"
)

var specRootSelectors = []string{
	"[data-testid='product-specifications']",
	"#product-specifications",
	".product-specifications",
	".specifications",
	"section.specs",
}

var specSectionSelectors = []string{
	"[data-testid='spec-section']",
	".specifications__section",
	".spec-group",
	"section",
}

var specRowSelectors = []string{
	"[data-testid='spec-row']",
	".spec-row",
	"tr",
	"dl > div",
}

var specKeySelectors = []string{
	".spec-row__key",
	"th",
	"dt",
	".spec-label",
}

var pageTitleSelectors = []string{
	"h1[data-testid='product-title']",
	"h1.product-title",
	"h1",
}

var productInfoHeadingSelectors = []string{
	"[data-testid='product-info-title']",
	"h2.product-info__title",
}

var galleryImageSelectors = []string{
	"[data-testid='product-gallery'] img",
	".product-gallery img",
	".gallery__image img",
}

// extractSpecifications reads the datasheet from a rendered detail page.
// It returns nil when the page has no specifications root, and also when
// extraction produced zero rows and no title anywhere. A page with a
// title but an absent or unreadable datasheet yields a ProductDetails
// with an empty Specifications slice so callers can tell "product found,
// no datasheet" apart from "nothing usable".
func (p *Pipeline) extractSpecifications(page *rod.Page) *models.ProductDetails {
	pageTitle := p.extractPageTitle(page)

	root := p.firstElement(page, specRootSelectors...)
	if root == nil {
		log.Printf("No specifications root found")
		if pageTitle == "" {
			return nil
		}
		return &models.ProductDetails{
			PageTitle:      pageTitle,
			Specifications: []models.Specification{},
			ImageURLs:      p.extractGalleryImages(page),
		}
	}

	rootNode := rodNode{root}
	sectionTitle := productInfoTitle(rootNode)
	specs := collectSpecifications(rootNode)

	if len(specs) == 0 && pageTitle == "" && sectionTitle == "" {
		return nil
	}
	if specs == nil {
		specs = []models.Specification{}
	}

	log.Printf("Extracted %d specification rows", len(specs))

	return &models.ProductDetails{
		PageTitle:      pageTitle,
		SectionTitle:   sectionTitle,
		Specifications: specs,
		ImageURLs:      p.extractGalleryImages(page),
	}
}

func (p *Pipeline) extractPageTitle(page *rod.Page) string {
	for _, selector := range pageTitleSelectors {
		el, err := page.Timeout(probeTimeout).Element(selector)
		if err != nil {
			continue
		}
		if text, err := el.Text(); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// firstElement resolves the first selector that matches within the
// selector timeout. Nil when none does.
func (p *Pipeline) firstElement(page *rod.Page, selectors ...string) *rod.Element {
	for _, selector := range selectors {
		el, err := page.Timeout(p.cfg.Timeouts.Selector).Element(selector)
		if err == nil {
			return el
		}
	}
	return nil
}

// specNode is the slice of element behavior the datasheet walk needs.
// Live pages go through rodNode; tests build the tree directly.
type specNode interface {
	find(selector string) (specNode, bool)
	findX(xpath string) (specNode, bool)
	findAll(selector string) []specNode
	text() string
}

// rodNode adapts a rod element to specNode. Lookups are bounded by
// probeTimeout since absent children would otherwise be retried until
// the page context expires.
type rodNode struct {
	el *rod.Element
}

func (n rodNode) find(selector string) (specNode, bool) {
	el, err := n.el.Timeout(probeTimeout).Element(selector)
	if err != nil {
		return nil, false
	}
	return rodNode{el}, true
}

func (n rodNode) findX(xpath string) (specNode, bool) {
	el, err := n.el.Timeout(probeTimeout).ElementX(xpath)
	if err != nil {
		return nil, false
	}
	return rodNode{el}, true
}

func (n rodNode) findAll(selector string) []specNode {
	els, err := n.el.Elements(selector)
	if err != nil {
		return nil
	}
	nodes := make([]specNode, 0, len(els))
	for _, el := range els {
		nodes = append(nodes, rodNode{el})
	}
	return nodes
}

func (n rodNode) text() string {
	text, err := n.el.Text()
	if err != nil {
		return ""
	}
	return text
}

// collectSpecifications walks the datasheet root and flattens it into
// section/key/value rows. Rows without a readable key are dropped.
func collectSpecifications(root specNode) []models.Specification {
	var specs []models.Specification
	for i, section := range findSections(root) {
		name := sectionName(section, i)
		for _, row := range findRows(section) {
			key, ok := rowKey(row)
			if !ok {
				continue
			}
			specs = append(specs, models.Specification{
				Section: name,
				Key:     key,
				Value:   rowValue(row),
			})
		}
	}
	return specs
}

func productInfoTitle(root specNode) string {
	for _, selector := range productInfoHeadingSelectors {
		if h, ok := root.find(selector); ok {
			if text := strings.TrimSpace(h.text()); text != "" {
				return text
			}
		}
	}
	return ""
}

// findSections returns the section nodes under the root. A datasheet
// with no recognizable section grouping is treated as a single section
// spanning the whole root.
func findSections(root specNode) []specNode {
	for _, selector := range specSectionSelectors {
		if sections := root.findAll(selector); len(sections) > 0 {
			return sections
		}
	}
	return []specNode{root}
}

func findRows(section specNode) []specNode {
	for _, selector := range specRowSelectors {
		if rows := section.findAll(selector); len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// sectionName resolves a section's title: a heading inside the section,
// then a heading immediately preceding it as a sibling, then a heading
// in the wrapping container. Sections with no title anywhere get a
// positional placeholder.
func sectionName(section specNode, ordinal int) string {
	name, _, ok := TryEach(
		Extraction{Name: "inner heading", Run: func() (string, error) {
			return nodeText(section.find("h2, h3, h4, .spec-group__title"))
		}},
		Extraction{Name: "preceding sibling heading", Run: func() (string, error) {
			return nodeText(section.findX("preceding-sibling::*[self::h2 or self::h3 or self::h4][1]"))
		}},
		Extraction{Name: "wrapper heading", Run: func() (string, error) {
			return nodeText(section.findX("../*[self::h2 or self::h3 or self::h4][1]"))
		}},
	)
	if ok {
		return name
	}
	return fmt.Sprintf("Section %d", ordinal+1)
}

// rowKey reads the attribute name cell. Rows whose key resolves to
// nothing but whitespace report no key and are excluded by the caller.
func rowKey(row specNode) (string, bool) {
	for _, selector := range specKeySelectors {
		if cell, ok := row.find(selector); ok {
			if key := strings.TrimSpace(cell.text()); key != "" {
				return key, true
			}
		}
	}
	return "", false
}

// rowValue extracts a row's value. A resolved value cell wins even when
// its text is blank: "attribute present, value blank" is a real row
// state and must not fall through to weaker strategies that would leak
// the key text back in. Only rows with no dedicated value cell walk the
// rest of the cascade, which ends with the row's full text.
func rowValue(row specNode) string {
	if cell, ok := row.find(".spec-row__value, td.value, dd"); ok {
		return strings.TrimSpace(cell.text())
	}
	value, _, _ := TryEach(
		Extraction{Name: "link text", Run: func() (string, error) {
			return nodeText(row.find("a"))
		}},
		Extraction{Name: "icon labels", Run: func() (string, error) {
			labels := row.findAll(".icon-label")
			parts := make([]string, 0, len(labels))
			for _, label := range labels {
				if text := strings.TrimSpace(label.text()); text != "" {
					parts = append(parts, text)
				}
			}
			return strings.Join(parts, ", "), nil
		}},
		Extraction{Name: "first span", Run: func() (string, error) {
			return nodeText(row.find("span"))
		}},
		Extraction{Name: "row text", Run: func() (string, error) {
			return row.text(), nil
		}},
	)
	return value
}

var errNodeMissing = errors.New("no matching element")

func nodeText(node specNode, ok bool) (string, error) {
	if !ok {
		return "", errNodeMissing
	}
	return node.text(), nil
}

func (p *Pipeline) extractGalleryImages(page *rod.Page) []string {
	var urls []string
	for _, selector := range galleryImageSelectors {
		imgs, err := page.Elements(selector)
		if err != nil || len(imgs) == 0 {
			continue
		}
		for _, img := range imgs {
			src, err := img.Attribute("src")
			if err != nil || src == nil || *src == "" {
				continue
			}
			urls = append(urls, resolveURL(p.cfg.BaseURL, *src))
		}
		break
	}
	return urls
}
