package scheduler

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"modelmatch/models"
)

func waitForTask(t *testing.T, tm *TaskManager, taskID string) *models.LookupTask {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		task, ok := tm.GetTask(taskID)
		if !ok {
			t.Fatalf("task %s disappeared", taskID)
		}
		if task.IsCompleted() {
			return task
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("task %s never completed", taskID)
	return nil
}

func TestTaskManagerCompletesTask(t *testing.T) {
	tm := NewTaskManager(func(productName string) (*models.ProductModel, error) {
		return &models.ProductModel{ID: 42, ProductName: productName}, nil
	}, 2)
	defer tm.Stop()

	task := tm.SubmitTask("MacBook Pro 14")
	done := waitForTask(t, tm, task.ID)

	if done.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed (%s)", done.Status, done.Error)
	}
	if done.Result == nil || done.Result.ID != 42 {
		t.Errorf("result = %+v, want model 42", done.Result)
	}
}

func TestTaskManagerNoMatchCompletes(t *testing.T) {
	tm := NewTaskManager(func(productName string) (*models.ProductModel, error) {
		return nil, nil
	}, 1)
	defer tm.Stop()

	task := tm.SubmitTask("nonexistent thing")
	done := waitForTask(t, tm, task.ID)

	if done.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed", done.Status)
	}
	if done.Result != nil {
		t.Errorf("no-match task should carry no result, got %+v", done.Result)
	}
}

func TestTaskManagerFailure(t *testing.T) {
	tm := NewTaskManager(func(productName string) (*models.ProductModel, error) {
		return nil, errors.New("bot challenge detected")
	}, 1)
	defer tm.Stop()

	task := tm.SubmitTask("anything")
	done := waitForTask(t, tm, task.ID)

	if done.Status != models.TaskStatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if done.Error != "bot challenge detected" {
		t.Errorf("error = %q", done.Error)
	}
}

func TestTaskManagerUnknownTask(t *testing.T) {
	tm := NewTaskManager(func(productName string) (*models.ProductModel, error) {
		return nil, nil
	}, 1)
	defer tm.Stop()

	if _, ok := tm.GetTask("task_unknown"); ok {
		t.Error("unknown task reported as present")
	}
}

// Polling a task while a worker finishes it must be safe: GetTask hands
// out snapshots, so encoding one concurrently with completion is fine.
// Run with -race to verify.
func TestTaskManagerConcurrentPollWhileCompleting(t *testing.T) {
	release := make(chan struct{})
	tm := NewTaskManager(func(productName string) (*models.ProductModel, error) {
		<-release
		return &models.ProductModel{ID: 7, ProductName: productName}, nil
	}, 2)
	defer tm.Stop()

	task := tm.SubmitTask("Sony WH-1000XM5")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			snapshot, ok := tm.GetTask(task.ID)
			if !ok {
				t.Errorf("task %s disappeared", task.ID)
				return
			}
			if _, err := json.Marshal(snapshot); err != nil {
				t.Errorf("marshal: %v", err)
				return
			}
			if snapshot.IsCompleted() {
				return
			}
		}
	}()

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller never observed completion")
	}

	final, _ := tm.GetTask(task.ID)
	if final.Status != models.TaskStatusCompleted {
		t.Fatalf("status = %s, want completed", final.Status)
	}
}

func TestTaskManagerCleanup(t *testing.T) {
	tm := NewTaskManager(func(productName string) (*models.ProductModel, error) {
		return nil, nil
	}, 1)
	defer tm.Stop()

	task := tm.SubmitTask("x")
	waitForTask(t, tm, task.ID)

	// Everything is younger than an hour, so nothing goes.
	tm.CleanupOldTasks(time.Hour)
	if _, ok := tm.GetTask(task.ID); !ok {
		t.Fatal("fresh task removed by cleanup")
	}

	// With a zero max age every completed task goes.
	tm.CleanupOldTasks(0)
	if _, ok := tm.GetTask(task.ID); ok {
		t.Error("completed task survived zero-age cleanup")
	}
}
