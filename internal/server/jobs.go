package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fpang/thumbnail-reviewer/internal/review"
)

// Job statuses reported by the jobs endpoint.
const (
	jobPending    = "pending"
	jobProcessing = "processing"
	jobComplete   = "complete"
	jobError      = "error"
)

// job tracks one asynchronous analysis from submission to completion.
type job struct {
	mu        sync.Mutex
	ID        string
	Status    string
	SessionID string
	Submitted time.Time
	Result    *review.ReviewResult
	ErrMsg    string
}

// jobView is the wire representation of a job's current state.
type jobView struct {
	ID        string               `json:"jobId"`
	Status    string               `json:"status"`
	SessionID string               `json:"sessionId,omitempty"`
	Submitted time.Time            `json:"submittedAt"`
	Result    *review.ReviewResult `json:"result,omitempty"`
	ErrMsg    string               `json:"error,omitempty"`
}

// snapshot returns a consistent copy safe to encode without the lock.
func (j *job) snapshot() jobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	return jobView{
		ID:        j.ID,
		Status:    j.Status,
		SessionID: j.SessionID,
		Submitted: j.Submitted,
		Result:    j.Result,
		ErrMsg:    j.ErrMsg,
	}
}

func (j *job) start() {
	j.mu.Lock()
	j.Status = jobProcessing
	j.mu.Unlock()
}

func (j *job) complete(r *review.ReviewResult) {
	j.mu.Lock()
	j.Status = jobComplete
	j.Result = r
	j.mu.Unlock()
}

func (j *job) fail(err error) {
	j.mu.Lock()
	j.Status = jobError
	j.ErrMsg = err.Error()
	j.mu.Unlock()
}

// jobRegistry is the in-memory index of asynchronous jobs. Job IDs are
// random UUIDs so they cannot be enumerated.
type jobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*job
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*job)}
}

func (r *jobRegistry) create(sessionID string) *job {
	j := &job{
		ID:        "job-" + uuid.NewString(),
		Status:    jobPending,
		SessionID: sessionID,
		Submitted: time.Now().UTC(),
	}
	r.mu.Lock()
	r.jobs[j.ID] = j
	r.mu.Unlock()
	return j
}

func (r *jobRegistry) get(id string) *job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}
