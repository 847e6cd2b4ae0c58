package database

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/lib/pq"

	"modelmatch/config"
)

var DB *sql.DB

// InitDatabase initializes the database connection
func InitDatabase(cfg config.DatabaseConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	var err error
	DB, err = sql.Open("postgres", cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}

	DB.SetMaxOpenConns(cfg.MaxOpenConns)
	DB.SetMaxIdleConns(cfg.MaxIdleConns)

	// Test the connection
	if err := DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %v", err)
	}

	log.Println("Successfully connected to database")
	return nil
}

// CreateTables creates the necessary tables if they don't exist
func CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS product_models (
			id SERIAL PRIMARY KEY,
			product_name TEXT NOT NULL,
			source_url TEXT NOT NULL UNIQUE,
			page_title TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS product_specifications (
			id SERIAL PRIMARY KEY,
			model_id INTEGER REFERENCES product_models(id) ON DELETE CASCADE,
			section TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT '',
			UNIQUE (model_id, section, key)
		)`,
		`CREATE TABLE IF NOT EXISTS product_images (
			id SERIAL PRIMARY KEY,
			model_id INTEGER REFERENCES product_models(id) ON DELETE CASCADE,
			image_url TEXT NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			UNIQUE (model_id, image_url)
		)`,
		`CREATE TABLE IF NOT EXISTS price_snapshots (
			id SERIAL PRIMARY KEY,
			model_id INTEGER REFERENCES product_models(id) ON DELETE CASCADE,
			lowest_price_in_period TEXT,
			lowest_price_date TEXT,
			lowest_price_today TEXT,
			lowest_price_today_shop TEXT,
			median_price_estimate TEXT,
			selected_period TEXT,
			captured_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_specifications_model_id ON product_specifications(model_id)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_model_id ON price_snapshots(model_id)`,
	}

	for _, query := range queries {
		if _, err := DB.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %v", err)
		}
	}

	log.Println("Database tables created successfully")
	return nil
}

// CloseDatabase closes the database connection
func CloseDatabase() {
	if DB != nil {
		DB.Close()
	}
}
