package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"modelmatch/models"
	"modelmatch/scraper"
)

type fakePipeline struct {
	details *models.ProductDetails
	err     error
}

func (f *fakePipeline) Lookup(productName string) (*models.ProductDetails, error) {
	return f.details, f.err
}

type fakeStore struct {
	models map[int]*models.ProductModel
	nextID int
}

func newFakeStore() *fakeStore {
	return &fakeStore{models: make(map[int]*models.ProductModel), nextID: 1}
}

func (f *fakeStore) Save(productName string, details *models.ProductDetails) (*models.ProductModel, error) {
	model := &models.ProductModel{
		ID:             f.nextID,
		ProductName:    productName,
		SourceURL:      details.URL,
		PageTitle:      sql.NullString{String: details.PageTitle, Valid: details.PageTitle != ""},
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
		Specifications: details.Specifications,
		ImageURLs:      details.ImageURLs,
	}
	f.models[f.nextID] = model
	f.nextID++
	return model, nil
}

func (f *fakeStore) GetByID(id int) (*models.ProductModel, error) {
	model, ok := f.models[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return model, nil
}

func (f *fakeStore) List() ([]models.ProductModel, error) {
	var result []models.ProductModel
	for _, m := range f.models {
		result = append(result, *m)
	}
	return result, nil
}

func (f *fakeStore) Delete(id int) error {
	if _, ok := f.models[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.models, id)
	return nil
}

func sampleDetails() *models.ProductDetails {
	return &models.ProductDetails{
		URL:       "https://www.pricehub.example/product/123",
		PageTitle: "Apple MacBook Pro 14 M3",
		Specifications: []models.Specification{
			{Section: "Display", Key: "Size", Value: "14.2\""},
			{Section: "Memory", Key: "RAM", Value: "16 GB"},
		},
		PriceHistory: &models.PriceHistorySummary{
			LowestPriceInPeriod: "1 694,00 €",
			SelectedPeriod:      "3 months",
		},
	}
}

func newTestHandlers(t *testing.T, pipeline ProductLookup) (*Handlers, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	h := NewHandlers(store, pipeline, 1)
	t.Cleanup(h.Close)
	return h, store
}

func searchRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/models/search", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSearchModelSuccess(t *testing.T) {
	h, store := newTestHandlers(t, &fakePipeline{details: sampleDetails()})

	rec := httptest.NewRecorder()
	h.SearchModel(rec, searchRequest(t, `{"product_name":"MacBook Pro 14"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var model models.ProductModel
	if err := json.Unmarshal(rec.Body.Bytes(), &model); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if model.ProductName != "MacBook Pro 14" {
		t.Errorf("product name = %q", model.ProductName)
	}
	if len(model.Specifications) != 2 {
		t.Errorf("got %d specifications, want 2", len(model.Specifications))
	}
	if len(store.models) != 1 {
		t.Errorf("store holds %d models, want 1", len(store.models))
	}
}

func TestSearchModelNoMatch(t *testing.T) {
	h, store := newTestHandlers(t, &fakePipeline{})

	rec := httptest.NewRecorder()
	h.SearchModel(rec, searchRequest(t, `{"product_name":"nonexistent thing"}`))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if len(store.models) != 0 {
		t.Errorf("no-match lookup must not persist anything")
	}
}

func TestSearchModelBotChallenge(t *testing.T) {
	h, _ := newTestHandlers(t, &fakePipeline{
		err: fmt.Errorf("%w: CAPTCHA indicator", scraper.ErrBotChallenge),
	})

	rec := httptest.NewRecorder()
	h.SearchModel(rec, searchRequest(t, `{"product_name":"anything"}`))

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestSearchModelPipelineError(t *testing.T) {
	h, _ := newTestHandlers(t, &fakePipeline{err: errors.New("navigation timeout")})

	rec := httptest.NewRecorder()
	h.SearchModel(rec, searchRequest(t, `{"product_name":"anything"}`))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestSearchModelValidation(t *testing.T) {
	h, _ := newTestHandlers(t, &fakePipeline{})

	tests := []struct {
		name string
		body string
	}{
		{"empty name", `{"product_name":""}`},
		{"missing field", `{}`},
		{"invalid json", `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.SearchModel(rec, searchRequest(t, tt.body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestSearchModelAsyncAndTaskStatus(t *testing.T) {
	h, _ := newTestHandlers(t, &fakePipeline{details: sampleDetails()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/models/search-async",
		bytes.NewBufferString(`{"product_name":"MacBook Pro 14"}`))
	h.SearchModelAsync(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusAccepted, rec.Body.String())
	}

	var task models.LookupTask
	if err := json.Unmarshal(rec.Body.Bytes(), &task); err != nil {
		t.Fatalf("invalid task body: %v", err)
	}
	if task.ID == "" {
		t.Fatal("task has no ID")
	}

	// Poll until the single worker finishes the task.
	deadline := time.Now().Add(2 * time.Second)
	for {
		statusRec := httptest.NewRecorder()
		statusReq := mux.SetURLVars(
			httptest.NewRequest(http.MethodGet, "/api/v1/tasks/"+task.ID, nil),
			map[string]string{"taskId": task.ID},
		)
		h.GetTaskStatus(statusRec, statusReq)
		if statusRec.Code != http.StatusOK {
			t.Fatalf("task status = %d, want %d", statusRec.Code, http.StatusOK)
		}

		var polled models.LookupTask
		if err := json.Unmarshal(statusRec.Body.Bytes(), &polled); err != nil {
			t.Fatalf("invalid task body: %v", err)
		}
		if polled.Status == models.TaskStatusCompleted {
			if polled.Result == nil {
				t.Fatal("completed task has no result")
			}
			break
		}
		if polled.Status == models.TaskStatusFailed {
			t.Fatalf("task failed: %s", polled.Error)
		}
		if time.Now().After(deadline) {
			t.Fatalf("task still %s after deadline", polled.Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGetTaskStatusUnknown(t *testing.T) {
	h, _ := newTestHandlers(t, &fakePipeline{})

	rec := httptest.NewRecorder()
	req := mux.SetURLVars(
		httptest.NewRequest(http.MethodGet, "/api/v1/tasks/task_unknown", nil),
		map[string]string{"taskId": "task_unknown"},
	)
	h.GetTaskStatus(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetModels(t *testing.T) {
	h, store := newTestHandlers(t, &fakePipeline{})
	store.Save("MacBook Pro 14", sampleDetails())

	rec := httptest.NewRecorder()
	h.GetModels(rec, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var result []models.ProductModel
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("got %d models, want 1", len(result))
	}
}

func TestGetModelsEmpty(t *testing.T) {
	h, _ := newTestHandlers(t, &fakePipeline{})

	rec := httptest.NewRecorder()
	h.GetModels(rec, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	// Empty list must serialize as [], not null.
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}

func TestGetModelAndDelete(t *testing.T) {
	h, store := newTestHandlers(t, &fakePipeline{})
	saved, _ := store.Save("MacBook Pro 14", sampleDetails())

	getReq := mux.SetURLVars(
		httptest.NewRequest(http.MethodGet, "/api/v1/models/1", nil),
		map[string]string{"id": "1"},
	)
	rec := httptest.NewRecorder()
	h.GetModel(rec, getReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want %d", rec.Code, http.StatusOK)
	}

	delReq := mux.SetURLVars(
		httptest.NewRequest(http.MethodDelete, "/api/v1/models/1", nil),
		map[string]string{"id": "1"},
	)
	rec = httptest.NewRecorder()
	h.DeleteModel(rec, delReq)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if _, err := store.GetByID(saved.ID); err == nil {
		t.Error("model still present after delete")
	}

	rec = httptest.NewRecorder()
	h.DeleteModel(rec, delReq)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetModelInvalidID(t *testing.T) {
	h, _ := newTestHandlers(t, &fakePipeline{})

	req := mux.SetURLVars(
		httptest.NewRequest(http.MethodGet, "/api/v1/models/abc", nil),
		map[string]string{"id": "abc"},
	)
	rec := httptest.NewRecorder()
	h.GetModel(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
