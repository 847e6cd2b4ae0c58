package models

import "testing"

func TestSpecificationMap(t *testing.T) {
	specs := []Specification{
		{Section: "Display", Key: "Size", Value: "14.2\""},
		{Section: "Display", Key: "Type", Value: "OLED"},
		{Section: "Memory", Key: "RAM", Value: "8 GB"},
		// Duplicate pair: last value wins.
		{Section: "Memory", Key: "RAM", Value: "16 GB"},
		// Present-but-blank value survives.
		{Section: "Memory", Key: "Expandable", Value: ""},
		// Empty key never enters the map.
		{Section: "Memory", Key: "", Value: "stray"},
	}

	m := SpecificationMap(specs)

	if len(m) != 2 {
		t.Fatalf("got %d sections, want 2", len(m))
	}
	if m["Display"]["Size"] != "14.2\"" {
		t.Errorf("Display/Size = %q", m["Display"]["Size"])
	}
	if m["Memory"]["RAM"] != "16 GB" {
		t.Errorf("duplicate key should keep last value, got %q", m["Memory"]["RAM"])
	}
	if v, ok := m["Memory"]["Expandable"]; !ok || v != "" {
		t.Errorf("blank value should be kept, got (%q, %v)", v, ok)
	}
	if _, ok := m["Memory"][""]; ok {
		t.Error("empty key must be excluded")
	}
}

func TestPriceHistorySummaryIsEmpty(t *testing.T) {
	empty := &PriceHistorySummary{SelectedPeriod: "3 months"}
	if !empty.IsEmpty() {
		t.Error("summary with only a period should count as empty")
	}

	withPrice := &PriceHistorySummary{LowestPriceToday: "249,00 €"}
	if withPrice.IsEmpty() {
		t.Error("summary with a price should not count as empty")
	}
}

func TestLookupTaskLifecycle(t *testing.T) {
	task := NewLookupTask("MacBook Pro 14")
	if task.Status != TaskStatusQueued || !task.IsActive() {
		t.Fatalf("new task should be queued and active, got %s", task.Status)
	}
	if task.ID == "" {
		t.Fatal("task has no ID")
	}

	task.Start()
	if task.Status != TaskStatusProcessing || task.StartedAt == nil {
		t.Fatalf("started task should be processing, got %s", task.Status)
	}

	task.Complete(&ProductModel{ID: 1})
	if task.Status != TaskStatusCompleted || !task.IsCompleted() {
		t.Fatalf("completed task, got %s", task.Status)
	}
	if task.Result == nil || task.CompletedAt == nil {
		t.Error("completed task should carry result and completion time")
	}
	if task.Duration() < 0 {
		t.Error("completed task duration must not be negative")
	}
}

func TestLookupTaskNoMatchCompletion(t *testing.T) {
	task := NewLookupTask("nonexistent thing")
	task.Start()
	task.Complete(nil)

	if task.Status != TaskStatusCompleted {
		t.Fatalf("no-match completion should still be completed, got %s", task.Status)
	}
	if task.Result != nil {
		t.Error("no-match completion should carry no result")
	}
}

func TestLookupTaskFail(t *testing.T) {
	task := NewLookupTask("anything")
	task.Start()
	task.Fail("bot challenge detected")

	if task.Status != TaskStatusFailed || !task.IsCompleted() {
		t.Fatalf("failed task, got %s", task.Status)
	}
	if task.Error == "" {
		t.Error("failed task should carry the error message")
	}
}

func TestTaskIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		task := NewLookupTask("x")
		if seen[task.ID] {
			t.Fatalf("duplicate task ID %s", task.ID)
		}
		seen[task.ID] = true
	}
}
