package job

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "A2A-Supervisor/internal/errors"
	"A2A-Supervisor/internal/protocol"
)

// MemoryStore 以内存方式保存作业状态，进程退出后即丢失。
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	seq  map[string]uint64
	next uint64
	now  func() time.Time
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*Job),
		seq:  make(map[string]uint64),
		now:  time.Now,
	}
}

// Create 实现 Store 接口。
func (m *MemoryStore) Create(_ context.Context, job *Job) error {
	if job == nil {
		return xerrors.New(xerrors.CodeInvalidArgument, "job 不能为空")
	}
	if job.ID == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "作业 ID 不能为空")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return ErrJobConflict
	}
	now := m.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = StatusPending
	}
	m.jobs[job.ID] = cloneJob(job)
	m.next++
	m.seq[job.ID] = m.next
	return nil
}

// Get 返回作业副本。
func (m *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return cloneJob(job), nil
}

// Claim 将待处理的作业标记为运行中。
func (m *MemoryStore) Claim(_ context.Context, id string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	switch job.Status {
	case StatusSucceeded, StatusFailed:
		return cloneJob(job), ErrJobCompleted
	case StatusRunning:
		return cloneJob(job), ErrJobConflict
	}
	job.Status = StatusRunning
	job.Attempts++
	job.LastError = ""
	job.ErrorCode = ""
	job.UpdatedAt = m.now()
	return cloneJob(job), nil
}

// MarkSucceeded 记录作业的响应列表。
func (m *MemoryStore) MarkSucceeded(_ context.Context, id string, responses []protocol.TaskResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	failed := 0
	for _, resp := range responses {
		if !resp.OK() {
			failed++
		}
	}
	job.Status = StatusSucceeded
	job.Responses = append([]protocol.TaskResponse(nil), responses...)
	job.Failed = failed
	job.LastError = ""
	job.ErrorCode = ""
	job.UpdatedAt = m.now()
	return nil
}

// MarkFailed 标记作业失败。
func (m *MemoryStore) MarkFailed(_ context.Context, id string, code xerrors.Code, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Status = StatusFailed
	job.LastError = lastError
	job.ErrorCode = string(code)
	job.UpdatedAt = m.now()
	return nil
}

// List 按创建顺序倒序返回最近的作业，limit <= 0 时默认 20。
func (m *MemoryStore) List(_ context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return m.seq[ids[i]] > m.seq[ids[j]]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]*Job, 0, len(ids))
	for _, id := range ids {
		out = append(out, cloneJob(m.jobs[id]))
	}
	return out, nil
}

// Close 对内存存储无需操作。
func (m *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
