package main

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Job statuses
const (
	JobPending    = "pending"
	JobInProgress = "in_progress"
	JobCompleted  = "completed"
	JobFailed     = "failed"
	JobCancelled  = "cancelled"
)

// Job represents an asynchronous document translation
type Job struct {
	ID        string             `json:"job_id"`
	Request   TranslateRequest   `json:"request"`
	Status    string             `json:"status"`
	Result    *TranslateResponse `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// JobStore manages jobs and their statuses
type JobStore struct {
	sync.RWMutex
	jobs map[string]*Job

	// cancel funcs of running jobs and the ones a user asked to stop,
	// guarded by the same lock as jobs
	cancelers     map[string]context.CancelFunc
	userCancelled map[string]bool
}

// ErrQueueFull is returned when the job queue has no room left
var ErrQueueFull = errors.New("job queue is full")

var (
	jobStore = newJobStore()
	jobQueue = make(chan *Job, 100) // Buffered channel with capacity of 100 jobs
)

func newJobStore() *JobStore {
	return &JobStore{
		jobs:          make(map[string]*Job),
		cancelers:     make(map[string]context.CancelFunc),
		userCancelled: make(map[string]bool),
	}
}

func generateJobID() string {
	return uuid.New().String()
}

// newJob creates a pending job for the request
func newJob(req TranslateRequest) *Job {
	now := time.Now()
	return &Job{
		ID:        generateJobID(),
		Request:   req,
		Status:    JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (store *JobStore) addJob(job *Job) {
	store.Lock()
	defer store.Unlock()
	store.jobs[job.ID] = job
	log.WithFields(logrus.Fields{"job_id": job.ID, "project_id": job.Request.ProjectID}).Info("Job added")
}

// getJob returns a snapshot of the job so callers never race with workers
func (store *JobStore) getJob(jobID string) (Job, bool) {
	store.RLock()
	defer store.RUnlock()
	job, exists := store.jobs[jobID]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// GetAllJobs returns snapshots of all jobs, newest first
func (store *JobStore) GetAllJobs() []Job {
	store.RLock()
	defer store.RUnlock()

	jobs := make([]Job, 0, len(store.jobs))
	for _, job := range store.jobs {
		jobs = append(jobs, *job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return jobs
}

func (store *JobStore) updateJob(jobID string, update func(job *Job)) {
	store.Lock()
	defer store.Unlock()
	if job, exists := store.jobs[jobID]; exists {
		update(job)
		job.UpdatedAt = time.Now()
		log.WithFields(logrus.Fields{"job_id": job.ID, "status": job.Status}).Debug("Job updated")
	}
}

// enqueue registers the job and hands it to the workers without blocking
func (store *JobStore) enqueue(queue chan<- *Job, job *Job) error {
	store.addJob(job)
	select {
	case queue <- job:
		return nil
	default:
		store.updateJob(job.ID, func(j *Job) {
			j.Status = JobFailed
			j.Error = ErrQueueFull.Error()
		})
		return ErrQueueFull
	}
}

// cancel stops a running job or marks a pending one as cancelled. It
// reports false when the job is unknown or already finished.
func (store *JobStore) cancel(jobID string) bool {
	store.Lock()
	defer store.Unlock()
	job, exists := store.jobs[jobID]
	if !exists {
		return false
	}
	switch job.Status {
	case JobPending:
		job.Status = JobCancelled
		job.Error = errCancelledByUser
		job.UpdatedAt = time.Now()
		return true
	case JobInProgress:
		cancel, ok := store.cancelers[jobID]
		if !ok {
			return false
		}
		store.userCancelled[jobID] = true
		cancel()
		return true
	default:
		return false
	}
}

// start moves a pending job to in_progress and registers its cancel func in
// one step. It reports false when the job is no longer pending.
func (store *JobStore) start(jobID string, cancel context.CancelFunc) bool {
	store.Lock()
	defer store.Unlock()
	job, exists := store.jobs[jobID]
	if !exists || job.Status != JobPending {
		return false
	}
	job.Status = JobInProgress
	job.UpdatedAt = time.Now()
	store.cancelers[jobID] = cancel
	return true
}

// release forgets the cancel func of a job and reports whether a user
// cancelled it while it ran.
func (store *JobStore) release(jobID string) bool {
	store.Lock()
	defer store.Unlock()
	cancelled := store.userCancelled[jobID]
	delete(store.cancelers, jobID)
	delete(store.userCancelled, jobID)
	return cancelled
}

func startWorkerPool(ctx context.Context, app *App, store *JobStore, queue <-chan *Job, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go func(workerID int) {
			log.Infof("Worker %d started", workerID)
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-queue:
					if !ok {
						return
					}
					log.Debugf("Worker %d processing job: %s", workerID, job.ID)
					processJob(ctx, app, store, job)
				}
			}
		}(i)
	}
}

const (
	errCancelledByUser = "Job cancelled by user"
	errShutdown        = "Job interrupted by server shutdown"
)

func processJob(ctx context.Context, app *App, store *JobStore, job *Job) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !store.start(job.ID, cancel) {
		log.Infof("Skipping job that is no longer pending: %s", job.ID)
		return
	}

	result, err := app.TranslateDocument(jobCtx, job.Request)
	userCancelled := store.release(job.ID)

	switch {
	case userCancelled:
		// the cancel request was acknowledged, so the outcome is discarded
		store.updateJob(job.ID, func(j *Job) {
			j.Status = JobCancelled
			j.Error = errCancelledByUser
		})
		log.Infof("Job cancelled: %s", job.ID)
	case err != nil && ctx.Err() != nil:
		store.updateJob(job.ID, func(j *Job) {
			j.Status = JobFailed
			j.Error = errShutdown
		})
		log.WithField("job_id", job.ID).Warn("Job interrupted by shutdown")
	case err != nil:
		log.WithError(err).WithField("job_id", job.ID).Error("Error translating document")
		store.updateJob(job.ID, func(j *Job) {
			j.Status = JobFailed
			j.Error = err.Error()
		})
	default:
		store.updateJob(job.ID, func(j *Job) {
			j.Status = JobCompleted
			j.Result = result
		})
		log.Infof("Job completed: %s", job.ID)
	}
}
