package scheduler

import (
	"log"
	"sync"
	"time"

	"modelmatch/models"
)

// LookupFunc performs one product lookup and persists the result. A nil
// model with a nil error means the search found nothing acceptable.
type LookupFunc func(productName string) (*models.ProductModel, error)

// TaskManager runs async lookup tasks on a bounded worker pool. Each
// worker drives its own browser page, so maxWorkers is effectively the
// cap on concurrent browser sessions.
type TaskManager struct {
	tasks      map[string]*models.LookupTask
	taskQueue  chan *models.LookupTask
	maxWorkers int
	lookupFunc LookupFunc
	mutex      sync.RWMutex
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewTaskManager creates a task manager and starts its workers.
func NewTaskManager(lookupFunc LookupFunc, maxWorkers int) *TaskManager {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	tm := &TaskManager{
		tasks:      make(map[string]*models.LookupTask),
		taskQueue:  make(chan *models.LookupTask, 100),
		maxWorkers: maxWorkers,
		lookupFunc: lookupFunc,
		stopChan:   make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		go tm.worker(i + 1)
	}
	go tm.cleanupLoop()

	log.Printf("Task manager started with %d workers", maxWorkers)
	return tm
}

// SubmitTask queues a new lookup task and returns a snapshot of it. The
// task is failed immediately when the queue is full rather than blocking
// the caller.
func (tm *TaskManager) SubmitTask(productName string) *models.LookupTask {
	task := models.NewLookupTask(productName)

	tm.mutex.Lock()
	tm.tasks[task.ID] = task

	select {
	case tm.taskQueue <- task:
		log.Printf("Task %s submitted for %q", task.ID, productName)
	default:
		task.Fail("task queue is full")
		log.Printf("Rejected task %s, queue full", task.ID)
	}

	snapshot := *task
	tm.mutex.Unlock()

	return &snapshot
}

// GetTask returns a snapshot of a task by ID. Workers keep mutating the
// stored task, so callers never see the live pointer.
func (tm *TaskManager) GetTask(taskID string) (*models.LookupTask, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	task, exists := tm.tasks[taskID]
	if !exists {
		return nil, false
	}
	snapshot := *task
	return &snapshot, true
}

// GetActiveTasks returns snapshots of all queued or running tasks.
func (tm *TaskManager) GetActiveTasks() []*models.LookupTask {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	var active []*models.LookupTask
	for _, task := range tm.tasks {
		if task.IsActive() {
			snapshot := *task
			active = append(active, &snapshot)
		}
	}
	return active
}

// CleanupOldTasks removes completed tasks older than maxAge.
func (tm *TaskManager) CleanupOldTasks(maxAge time.Duration) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for taskID, task := range tm.tasks {
		if task.IsCompleted() && task.CreatedAt.Before(cutoff) {
			delete(tm.tasks, taskID)
		}
	}
}

// Stop shuts the workers down. Queued tasks that have not started are
// left in their queued state.
func (tm *TaskManager) Stop() {
	tm.stopOnce.Do(func() {
		close(tm.stopChan)
		log.Println("Task manager stopped")
	})
}

func (tm *TaskManager) worker(id int) {
	for {
		select {
		case task := <-tm.taskQueue:
			tm.process(id, task)
		case <-tm.stopChan:
			return
		}
	}
}

func (tm *TaskManager) process(workerID int, task *models.LookupTask) {
	log.Printf("Worker %d processing task %s (%q)", workerID, task.ID, task.ProductName)
	tm.mutex.Lock()
	task.Start()
	tm.mutex.Unlock()

	model, err := tm.lookupFunc(task.ProductName)

	tm.mutex.Lock()
	if err != nil {
		task.Fail(err.Error())
	} else {
		task.Complete(model)
	}
	duration := task.Duration()
	tm.mutex.Unlock()

	if err != nil {
		log.Printf("Task %s failed: %v", task.ID, err)
		return
	}
	log.Printf("Task %s completed in %v", task.ID, duration)
}

func (tm *TaskManager) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tm.CleanupOldTasks(time.Hour)
		case <-tm.stopChan:
			return
		}
	}
}
