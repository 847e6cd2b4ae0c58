package models

import (
	"database/sql"
	"time"
)

// SearchCandidate is one entry of the external site's result list.
// Candidates are ephemeral: they exist only while the orchestrator picks
// the best match and are never persisted.
type SearchCandidate struct {
	Title   string `json:"title"`
	PageURL string `json:"page_url"`
}

// ScoredCandidate is a search candidate with its similarity to the query.
type ScoredCandidate struct {
	SearchCandidate
	Similarity float64 `json:"similarity"`
}

// Specification is one row of the extracted datasheet. Key is always
// non-empty; Value may legitimately be empty for presence-only attributes.
type Specification struct {
	Section string `json:"section"`
	Key     string `json:"key"`
	Value   string `json:"value"`
}

// SpecificationMap flattens rows into section -> key -> value. Duplicate
// (section, key) pairs collapse last-seen-wins, which matches how the
// source page presents repeated attributes.
func SpecificationMap(specs []Specification) map[string]map[string]string {
	out := make(map[string]map[string]string)
	for _, s := range specs {
		if s.Key == "" {
			continue
		}
		if out[s.Section] == nil {
			out[s.Section] = make(map[string]string)
		}
		out[s.Section][s.Key] = s.Value
	}
	return out
}

// PriceHistorySummary holds the summary fields of the price-history panel.
// Price fields are kept as displayed on the page (formatted strings); an
// empty string means the field could not be extracted.
type PriceHistorySummary struct {
	LowestPriceInPeriod  string `json:"lowest_price_in_period,omitempty"`
	LowestPriceDate      string `json:"lowest_price_date,omitempty"`
	LowestPriceToday     string `json:"lowest_price_today,omitempty"`
	LowestPriceTodayShop string `json:"lowest_price_today_shop,omitempty"`
	MedianPriceEstimate  string `json:"median_price_estimate,omitempty"`
	SelectedPeriod       string `json:"selected_period"`
}

// IsEmpty reports whether no summary field was extracted at all.
func (p *PriceHistorySummary) IsEmpty() bool {
	return p.LowestPriceInPeriod == "" &&
		p.LowestPriceDate == "" &&
		p.LowestPriceToday == "" &&
		p.LowestPriceTodayShop == "" &&
		p.MedianPriceEstimate == ""
}

// ProductDetails is the pipeline's output for one product lookup. It is
// constructed once per successful run and not mutated afterward; the
// caller owns persistence.
type ProductDetails struct {
	URL            string               `json:"url"`
	PageTitle      string               `json:"page_title,omitempty"`
	SectionTitle   string               `json:"section_title,omitempty"`
	Specifications []Specification      `json:"specifications"`
	ImageURLs      []string             `json:"image_urls"`
	PriceHistory   *PriceHistorySummary `json:"price_history,omitempty"`
}

// ProductModel is the persisted catalog record built from ProductDetails.
type ProductModel struct {
	ID          int            `json:"id" db:"id"`
	ProductName string         `json:"product_name" db:"product_name"`
	SourceURL   string         `json:"source_url" db:"source_url"`
	PageTitle   sql.NullString `json:"-" db:"page_title"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`

	Specifications []Specification `json:"specifications,omitempty"`
	ImageURLs      []string        `json:"image_urls,omitempty"`
	LatestSnapshot *PriceSnapshot  `json:"latest_snapshot,omitempty"`
}

// GetPageTitle returns the page title or "" if NULL.
func (m *ProductModel) GetPageTitle() string {
	if m.PageTitle.Valid {
		return m.PageTitle.String
	}
	return ""
}

// PriceSnapshot is one captured price-history summary for a stored model.
type PriceSnapshot struct {
	ID                   int       `json:"id" db:"id"`
	ModelID              int       `json:"model_id" db:"model_id"`
	LowestPriceInPeriod  string    `json:"lowest_price_in_period,omitempty" db:"lowest_price_in_period"`
	LowestPriceDate      string    `json:"lowest_price_date,omitempty" db:"lowest_price_date"`
	LowestPriceToday     string    `json:"lowest_price_today,omitempty" db:"lowest_price_today"`
	LowestPriceTodayShop string    `json:"lowest_price_today_shop,omitempty" db:"lowest_price_today_shop"`
	MedianPriceEstimate  string    `json:"median_price_estimate,omitempty" db:"median_price_estimate"`
	SelectedPeriod       string    `json:"selected_period" db:"selected_period"`
	CapturedAt           time.Time `json:"captured_at" db:"captured_at"`
}

// Summary converts a snapshot back to the pipeline's summary shape.
func (s *PriceSnapshot) Summary() *PriceHistorySummary {
	return &PriceHistorySummary{
		LowestPriceInPeriod:  s.LowestPriceInPeriod,
		LowestPriceDate:      s.LowestPriceDate,
		LowestPriceToday:     s.LowestPriceToday,
		LowestPriceTodayShop: s.LowestPriceTodayShop,
		MedianPriceEstimate:  s.MedianPriceEstimate,
		SelectedPeriod:       s.SelectedPeriod,
	}
}

// SearchRequest represents the request to look up a product model
type SearchRequest struct {
	ProductName string `json:"product_name"`
}
