package job

import (
	"time"

	xerrors "A2A-Supervisor/internal/errors"
	"A2A-Supervisor/internal/protocol"
)

// Status 表示作业在生命周期中的状态。
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Job 描述一次异步执行的查询。
type Job struct {
	ID        string                  `json:"id"`
	Query     string                  `json:"query"`
	Status    Status                  `json:"status"`
	Attempts  int                     `json:"attempts"`
	Responses []protocol.TaskResponse `json:"responses,omitempty"`
	Failed    int                     `json:"failed_tasks"`
	LastError string                  `json:"last_error,omitempty"`
	ErrorCode string                  `json:"error_code,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// Done 报告作业是否已进入终态。
func (j *Job) Done() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

const (
	CodeJobNotFound   xerrors.Code = "JOB_NOT_FOUND"
	CodeJobConflict   xerrors.Code = "JOB_CONFLICT"
	CodeJobCompleted  xerrors.Code = "JOB_COMPLETED"
	CodeJobValidation xerrors.Code = "JOB_VALIDATION_FAILED"
	CodeJobPublish    xerrors.Code = "JOB_PUBLISH_FAILED"
	CodeJobCancelled  xerrors.Code = "JOB_CANCELLED"
)

var (
	// ErrJobNotFound 表示指定的作业不存在。
	ErrJobNotFound = xerrors.New(CodeJobNotFound, "job not found")
	// ErrJobConflict 表示作业在当前状态下无法执行所请求的操作。
	ErrJobConflict = xerrors.New(CodeJobConflict, "job conflict")
	// ErrJobCompleted 表示作业已经结束。
	ErrJobCompleted = xerrors.New(CodeJobCompleted, "job already completed")
)

func init() {
	xerrors.Register(CodeJobNotFound, xerrors.Attributes{
		Message:  "job not found",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeJobConflict, xerrors.Attributes{
		Message:  "job conflict",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeJobCompleted, xerrors.Attributes{
		Message:  "job already completed",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeJobValidation, xerrors.Attributes{
		Message:  "job validation failed",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeJobPublish, xerrors.Attributes{
		Message:   "failed to publish job",
		Severity:  xerrors.SeverityCritical,
		Retryable: true,
	})
	xerrors.Register(CodeJobCancelled, xerrors.Attributes{
		Message:  "job cancelled before completion",
		Severity: xerrors.SeverityWarning,
	})
}

func cloneJob(j *Job) *Job {
	clone := *j
	if j.Responses != nil {
		clone.Responses = append([]protocol.TaskResponse(nil), j.Responses...)
	}
	return &clone
}
