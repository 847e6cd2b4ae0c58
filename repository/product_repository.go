package repository

import (
	"database/sql"
	"fmt"
	"time"

	"modelmatch/database"
	"modelmatch/models"
)

type ProductRepository struct{}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{}
}

// Save stores a lookup result, reusing the existing record when the
// source URL was seen before. Specifications are upserted row by row;
// when a datasheet repeats a section/key pair the last value wins, the
// same rule SpecificationMap applies in memory.
func (r *ProductRepository) Save(productName string, details *models.ProductDetails) (*models.ProductModel, error) {
	tx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	now := time.Now()
	var model models.ProductModel
	err = tx.QueryRow(`
		INSERT INTO product_models (product_name, source_url, page_title, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $4)
		ON CONFLICT (source_url) DO UPDATE
		SET product_name = EXCLUDED.product_name,
		    page_title = EXCLUDED.page_title,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, product_name, source_url, page_title, created_at, updated_at
	`, productName, details.URL, details.PageTitle, now).Scan(
		&model.ID, &model.ProductName, &model.SourceURL,
		&model.PageTitle, &model.CreatedAt, &model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save product model: %v", err)
	}

	// Replace the datasheet wholesale; stale rows from a previous
	// markup version must not survive a refresh.
	if _, err := tx.Exec(`DELETE FROM product_specifications WHERE model_id = $1`, model.ID); err != nil {
		return nil, fmt.Errorf("failed to clear specifications: %v", err)
	}
	for _, spec := range details.Specifications {
		_, err := tx.Exec(`
			INSERT INTO product_specifications (model_id, section, key, value)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (model_id, section, key) DO UPDATE SET value = EXCLUDED.value
		`, model.ID, spec.Section, spec.Key, spec.Value)
		if err != nil {
			return nil, fmt.Errorf("failed to save specification %q/%q: %v", spec.Section, spec.Key, err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM product_images WHERE model_id = $1`, model.ID); err != nil {
		return nil, fmt.Errorf("failed to clear images: %v", err)
	}
	for i, imageURL := range details.ImageURLs {
		_, err := tx.Exec(`
			INSERT INTO product_images (model_id, image_url, position)
			VALUES ($1, $2, $3)
			ON CONFLICT (model_id, image_url) DO NOTHING
		`, model.ID, imageURL, i)
		if err != nil {
			return nil, fmt.Errorf("failed to save image: %v", err)
		}
	}

	if details.PriceHistory != nil && !details.PriceHistory.IsEmpty() {
		h := details.PriceHistory
		_, err := tx.Exec(`
			INSERT INTO price_snapshots
				(model_id, lowest_price_in_period, lowest_price_date, lowest_price_today,
				 lowest_price_today_shop, median_price_estimate, selected_period, captured_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, model.ID, h.LowestPriceInPeriod, h.LowestPriceDate, h.LowestPriceToday,
			h.LowestPriceTodayShop, h.MedianPriceEstimate, h.SelectedPeriod, now)
		if err != nil {
			return nil, fmt.Errorf("failed to save price snapshot: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %v", err)
	}

	model.Specifications = details.Specifications
	model.ImageURLs = details.ImageURLs
	return &model, nil
}

// GetByID returns one stored model with its specifications, images and
// latest price snapshot. sql.ErrNoRows is passed through so handlers
// can map it to a 404.
func (r *ProductRepository) GetByID(id int) (*models.ProductModel, error) {
	var model models.ProductModel
	err := database.DB.QueryRow(`
		SELECT id, product_name, source_url, page_title, created_at, updated_at
		FROM product_models WHERE id = $1
	`, id).Scan(&model.ID, &model.ProductName, &model.SourceURL,
		&model.PageTitle, &model.CreatedAt, &model.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get product model: %v", err)
	}

	rows, err := database.DB.Query(`
		SELECT section, key, value FROM product_specifications
		WHERE model_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get specifications: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var spec models.Specification
		if err := rows.Scan(&spec.Section, &spec.Key, &spec.Value); err != nil {
			return nil, fmt.Errorf("failed to scan specification: %v", err)
		}
		model.Specifications = append(model.Specifications, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read specifications: %v", err)
	}

	imgRows, err := database.DB.Query(`
		SELECT image_url FROM product_images WHERE model_id = $1 ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get images: %v", err)
	}
	defer imgRows.Close()
	for imgRows.Next() {
		var url string
		if err := imgRows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan image: %v", err)
		}
		model.ImageURLs = append(model.ImageURLs, url)
	}
	if err := imgRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read images: %v", err)
	}

	snapshot, err := r.latestSnapshot(id)
	if err != nil {
		return nil, err
	}
	model.LatestSnapshot = snapshot

	return &model, nil
}

// List returns all stored models, newest first, without their
// specification details.
func (r *ProductRepository) List() ([]models.ProductModel, error) {
	rows, err := database.DB.Query(`
		SELECT id, product_name, source_url, page_title, created_at, updated_at
		FROM product_models ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list product models: %v", err)
	}
	defer rows.Close()

	var result []models.ProductModel
	for rows.Next() {
		var model models.ProductModel
		if err := rows.Scan(&model.ID, &model.ProductName, &model.SourceURL,
			&model.PageTitle, &model.CreatedAt, &model.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product model: %v", err)
		}
		result = append(result, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product models: %v", err)
	}
	return result, nil
}

// Delete removes a stored model and, via cascade, its specifications,
// images and snapshots.
func (r *ProductRepository) Delete(id int) error {
	result, err := database.DB.Exec(`DELETE FROM product_models WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product model: %v", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %v", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddSnapshot appends a price snapshot for an existing model.
func (r *ProductRepository) AddSnapshot(modelID int, summary *models.PriceHistorySummary) error {
	if summary == nil || summary.IsEmpty() {
		return nil
	}
	_, err := database.DB.Exec(`
		INSERT INTO price_snapshots
			(model_id, lowest_price_in_period, lowest_price_date, lowest_price_today,
			 lowest_price_today_shop, median_price_estimate, selected_period, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, modelID, summary.LowestPriceInPeriod, summary.LowestPriceDate, summary.LowestPriceToday,
		summary.LowestPriceTodayShop, summary.MedianPriceEstimate, summary.SelectedPeriod, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add price snapshot: %v", err)
	}
	return nil
}

// GetModelsForRefresh returns models whose newest snapshot is older than
// maxAge, oldest first, for the scheduled price refresh.
func (r *ProductRepository) GetModelsForRefresh(maxAge time.Duration, limit int) ([]models.ProductModel, error) {
	rows, err := database.DB.Query(`
		SELECT m.id, m.product_name, m.source_url, m.page_title, m.created_at, m.updated_at
		FROM product_models m
		LEFT JOIN LATERAL (
			SELECT captured_at FROM price_snapshots
			WHERE model_id = m.id ORDER BY captured_at DESC LIMIT 1
		) s ON TRUE
		WHERE s.captured_at IS NULL OR s.captured_at < $1
		ORDER BY s.captured_at ASC NULLS FIRST
		LIMIT $2
	`, time.Now().Add(-maxAge), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get models for refresh: %v", err)
	}
	defer rows.Close()

	var result []models.ProductModel
	for rows.Next() {
		var model models.ProductModel
		if err := rows.Scan(&model.ID, &model.ProductName, &model.SourceURL,
			&model.PageTitle, &model.CreatedAt, &model.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product model: %v", err)
		}
		result = append(result, model)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read models for refresh: %v", err)
	}
	return result, nil
}

func (r *ProductRepository) latestSnapshot(modelID int) (*models.PriceSnapshot, error) {
	var s models.PriceSnapshot
	err := database.DB.QueryRow(`
		SELECT id, model_id, lowest_price_in_period, lowest_price_date, lowest_price_today,
		       lowest_price_today_shop, median_price_estimate, selected_period, captured_at
		FROM price_snapshots WHERE model_id = $1
		ORDER BY captured_at DESC LIMIT 1
	`, modelID).Scan(&s.ID, &s.ModelID, &s.LowestPriceInPeriod, &s.LowestPriceDate,
		&s.LowestPriceToday, &s.LowestPriceTodayShop, &s.MedianPriceEstimate,
		&s.SelectedPeriod, &s.CapturedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %v", err)
	}
	return &s, nil
}
