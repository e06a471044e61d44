package jobs

import (
	"context"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

// JobTypeExtractStatement represents a statement extraction job.
const JobTypeExtractStatement JobType = "extract_statement"

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed. There is no automatic retry:
	// the user re-uploads to try again.
	JobStatusFailed JobStatus = "failed"
)

// ExtractStatementJob carries one uploaded statement through extraction.
// Data holds the raw file bytes; it never leaves the process and is dropped
// from the job store once the job finishes.
type ExtractStatementJob struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains failure details when Status is failed.
	Error string `json:"error,omitempty"`

	// TransactionCount is set by the handler on success.
	TransactionCount int `json:"transaction_count,omitempty"`
}

// Job is a generic interface for all job types.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExtractStatementJob) GetID() string { return j.JobID }

// GetType implements the Job interface.
func (j *ExtractStatementJob) GetType() JobType { return JobTypeExtractStatement }

// GetStatus implements the Job interface.
func (j *ExtractStatementJob) GetStatus() JobStatus { return j.Status }

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishExtractStatement publishes a statement extraction job.
	PublishExtractStatement(ctx context.Context, job *ExtractStatementJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs; the handler is called for each one.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job failed.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job status so the client can poll extraction progress.
type JobStore interface {
	SaveJob(ctx context.Context, job *ExtractStatementJob) error
	GetJob(ctx context.Context, jobID string) (*ExtractStatementJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExtractStatementJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}
