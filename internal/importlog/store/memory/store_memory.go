package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fieldledger/internal/importlog/models"
	"fieldledger/pkg/platform/sentinel"
)

// InMemoryStore keeps jobs and lines behind one mutex so the state-machine
// guards are atomic with the writes, matching the postgres store's behavior.
type InMemoryStore struct {
	mu      sync.RWMutex
	jobs    map[int64]models.Job
	lines   map[int64][]models.LogLine // keyed by job ID
	lineIDs map[int64]struct{}
}

func New() *InMemoryStore {
	return &InMemoryStore{
		jobs:    make(map[int64]models.Job),
		lines:   make(map[int64][]models.LogLine),
		lineIDs: make(map[int64]struct{}),
	}
}

func (s *InMemoryStore) CreateJob(_ context.Context, job models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("create job %d: %w", job.ID, sentinel.ErrDuplicateIdentifier)
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *InMemoryStore) GetJob(_ context.Context, jobID int64) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return nil, nil
	}
	return &job, nil
}

func (s *InMemoryStore) AppendLine(_ context.Context, line models.LogLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[line.JobID]
	if !exists {
		return fmt.Errorf("job %d: %w", line.JobID, sentinel.ErrNotFound)
	}
	if job.Status != models.StatusRunning {
		return fmt.Errorf("job %d is %s: %w", line.JobID, job.Status, sentinel.ErrInvalidJobState)
	}
	if _, exists := s.lineIDs[line.ID]; exists {
		return fmt.Errorf("append line %d: %w", line.ID, sentinel.ErrDuplicateIdentifier)
	}
	s.lineIDs[line.ID] = struct{}{}
	s.lines[line.JobID] = append(s.lines[line.JobID], line)
	return nil
}

func (s *InMemoryStore) FinalizeJob(_ context.Context, jobID int64, outcome models.Status, endedAt time.Time) (models.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[jobID]
	if !exists {
		return "", fmt.Errorf("job %d: %w", jobID, sentinel.ErrNotFound)
	}
	if job.Status != models.StatusRunning {
		return "", fmt.Errorf("job %d is already %s: %w", jobID, job.Status, sentinel.ErrInvalidJobState)
	}

	final := outcome
	if outcome == models.StatusSucceeded && s.hasErrorLines(jobID) {
		final = models.StatusPartial
	}
	job.Status = final
	job.EndedAt = &endedAt
	s.jobs[jobID] = job
	return final, nil
}

func (s *InMemoryStore) Lines(_ context.Context, jobID int64, severity models.Severity) ([]models.LogLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.LogLine
	for _, line := range s.lines[jobID] {
		if severity != "" && line.Severity != severity {
			continue
		}
		out = append(out, line)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LineNumber != out[j].LineNumber {
			return out[i].LineNumber < out[j].LineNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *InMemoryStore) CountBySeverity(_ context.Context, jobID int64) (map[models.Severity]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Severity]int)
	for _, line := range s.lines[jobID] {
		counts[line.Severity]++
	}
	return counts, nil
}

func (s *InMemoryStore) DeleteJob(_ context.Context, jobID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.jobs, jobID)
	for _, line := range s.lines[jobID] {
		delete(s.lineIDs, line.ID)
	}
	delete(s.lines, jobID)
	return nil
}

func (s *InMemoryStore) hasErrorLines(jobID int64) bool {
	for _, line := range s.lines[jobID] {
		if line.Severity == models.SeverityError {
			return true
		}
	}
	return false
}
