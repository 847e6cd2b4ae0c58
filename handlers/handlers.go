package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"modelmatch/models"
	"modelmatch/scheduler"
	"modelmatch/scraper"
)

// ProductLookup is the pipeline surface the handlers depend on; tests
// substitute a fake so no browser is needed.
type ProductLookup interface {
	Lookup(productName string) (*models.ProductDetails, error)
}

// ProductStore is the persistence surface the handlers depend on,
// implemented by repository.ProductRepository.
type ProductStore interface {
	Save(productName string, details *models.ProductDetails) (*models.ProductModel, error)
	GetByID(id int) (*models.ProductModel, error)
	List() ([]models.ProductModel, error)
	Delete(id int) error
}

type Handlers struct {
	productRepo ProductStore
	pipeline    ProductLookup
	taskManager *scheduler.TaskManager
}

func NewHandlers(productRepo ProductStore, pipeline ProductLookup, maxWorkers int) *Handlers {
	h := &Handlers{
		productRepo: productRepo,
		pipeline:    pipeline,
	}
	h.taskManager = scheduler.NewTaskManager(h.performLookup, maxWorkers)
	return h
}

// Close stops the background workers.
func (h *Handlers) Close() {
	if h.taskManager != nil {
		h.taskManager.Stop()
	}
}

// performLookup runs one lookup and persists the result (used both by
// the sync endpoint and the task manager workers).
func (h *Handlers) performLookup(productName string) (*models.ProductModel, error) {
	details, err := h.pipeline.Lookup(productName)
	if err != nil {
		return nil, err
	}
	if details == nil {
		return nil, nil
	}
	return h.productRepo.Save(productName, details)
}

// HealthCheck returns service status
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "modelmatch",
		"version":   "1.0.0",
	}
	writeJSON(w, http.StatusOK, response)
}

// SearchModel looks a product up synchronously and stores the result.
func (h *Handlers) SearchModel(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProductName == "" {
		writeError(w, http.StatusBadRequest, "product_name is required")
		return
	}

	model, err := h.performLookup(req.ProductName)
	if err != nil {
		if errors.Is(err, scraper.ErrBotChallenge) {
			log.Printf("Lookup for %q aborted: %v", req.ProductName, err)
			writeError(w, http.StatusBadGateway, "Source site is blocking automated access")
			return
		}
		log.Printf("Lookup for %q failed: %v", req.ProductName, err)
		writeError(w, http.StatusInternalServerError, "Lookup failed")
		return
	}
	if model == nil {
		writeError(w, http.StatusNotFound, "No matching product model found")
		return
	}

	writeJSON(w, http.StatusCreated, model)
}

// SearchModelAsync queues a lookup task and returns immediately.
func (h *Handlers) SearchModelAsync(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProductName == "" {
		writeError(w, http.StatusBadRequest, "product_name is required")
		return
	}

	task := h.taskManager.SubmitTask(req.ProductName)
	writeJSON(w, http.StatusAccepted, task)
}

// GetTaskStatus returns the state of an async lookup task.
func (h *Handlers) GetTaskStatus(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]

	task, exists := h.taskManager.GetTask(taskID)
	if !exists {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// GetModels returns all stored product models.
func (h *Handlers) GetModels(w http.ResponseWriter, r *http.Request) {
	result, err := h.productRepo.List()
	if err != nil {
		log.Printf("Failed to list product models: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list product models")
		return
	}
	if result == nil {
		result = []models.ProductModel{}
	}

	writeJSON(w, http.StatusOK, result)
}

// GetModel returns one stored product model with specifications, images
// and the latest price snapshot.
func (h *Handlers) GetModel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid model ID")
		return
	}

	model, err := h.productRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Product model not found")
			return
		}
		log.Printf("Failed to get product model %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to get product model")
		return
	}

	writeJSON(w, http.StatusOK, model)
}

// DeleteModel removes a stored product model.
func (h *Handlers) DeleteModel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid model ID")
		return
	}

	if err := h.productRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "Product model not found")
			return
		}
		log.Printf("Failed to delete product model %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to delete product model")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
