package main

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"modelmatch/config"
	"modelmatch/database"
	"modelmatch/handlers"
	"modelmatch/middleware"
	"modelmatch/repository"
	"modelmatch/scheduler"
	"modelmatch/scraper"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Initialize database
	if err := database.InitDatabase(cfg.Database); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDatabase()

	// Create tables
	if err := database.CreateTables(); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	productRepo := repository.NewProductRepository()

	// Initialize the lookup pipeline (owns the browser)
	pipeline, err := scraper.NewPipeline(cfg.Scraper)
	if err != nil {
		log.Fatalf("Failed to create lookup pipeline: %v", err)
	}
	defer pipeline.Close()

	// Initialize handlers
	h := handlers.NewHandlers(productRepo, pipeline, cfg.Server.MaxWorkers)
	defer h.Close()

	// Initialize and start the price refresher
	refresher := scheduler.NewPriceRefresher(pipeline)
	refresher.Start()
	defer refresher.Stop()

	// Setup router
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.RateLimitMiddleware(cfg.Server.RateLimit))

	// Health endpoint
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	// API v1 routes
	apiV1 := r.PathPrefix("/api/v1").Subrouter()

	// Model lookup
	apiV1.HandleFunc("/models/search", h.SearchModel).Methods("POST")
	apiV1.HandleFunc("/models/search-async", h.SearchModelAsync).Methods("POST")

	// Stored models
	apiV1.HandleFunc("/models", h.GetModels).Methods("GET")
	apiV1.HandleFunc("/models/{id}", h.GetModel).Methods("GET")
	apiV1.HandleFunc("/models/{id}", h.DeleteModel).Methods("DELETE")

	// Task management
	apiV1.HandleFunc("/tasks/{taskId}", h.GetTaskStatus).Methods("GET")

	// CORS configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Server.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	log.Printf("   GET    /health - Health check")
	log.Printf("   POST   /api/v1/models/search - Look up a product model")
	log.Printf("   POST   /api/v1/models/search-async - Queue a lookup task")
	log.Printf("   GET    /api/v1/models - List stored models")
	log.Printf("   GET    /api/v1/models/{id} - Get one stored model")
	log.Printf("   DELETE /api/v1/models/{id} - Delete a stored model")
	log.Printf("   GET    /api/v1/tasks/{taskId} - Get task status")

	// Start server
	log.Fatal(http.ListenAndServe(addr, c.Handler(r)))
}
