package models

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an import job.
// running is the only non-terminal state; once a job reaches succeeded,
// partial or failed it never transitions again.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether the status is a lifecycle sink.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusPartial, StatusFailed:
		return true
	}
	return false
}

// IsValid reports whether the status is part of the closed set.
func (s Status) IsValid() bool {
	return s == StatusRunning || s.IsTerminal()
}

// Severity classifies one log line's impact, ordered info < warning < error.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// IsValid reports whether the severity is one of the three levels.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	}
	return false
}

// ParseSeverity validates a severity string.
func ParseSeverity(v string) (Severity, error) {
	s := Severity(v)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown severity: %s", v)
	}
	return s, nil
}

// Level returns the ordinal rank of the severity (info=0 ... error=2).
func (s Severity) Level() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	default:
		return 0
	}
}

// Job is one batch import run. Only the owning job's execution context
// mutates it, and it is finalized exactly once.
type Job struct {
	ID        int64      `json:"id"`
	Status    Status     `json:"status"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// LogLine is one outcome for one input line within a job. Lines are immutable
// once written and are purged only via cascade with the parent job.
//
// Lines for a job are totally ordered by (line_number, id); the id breaks
// ties among multiple outcomes for the same input row, keeping report
// iteration stable.
type LogLine struct {
	ID               int64    `json:"id"`
	JobID            int64    `json:"job_id"`
	LineNumber       int      `json:"line_number"`
	RecordIdentifier string   `json:"record_identifier,omitempty"`
	Severity         Severity `json:"severity"`
	Message          string   `json:"message"`
	RawInput         string   `json:"raw_input,omitempty"` // original unparsed line, kept for error triage
}

// Summary is a live per-severity count view, cheap enough for a UI to poll
// without retrieving full line detail.
type Summary struct {
	JobID    int64  `json:"job_id"`
	Status   Status `json:"status"`
	Infos    int    `json:"infos"`
	Warnings int    `json:"warnings"`
	Errors   int    `json:"errors"`
}
