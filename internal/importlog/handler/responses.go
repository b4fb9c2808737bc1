package handler

import "fieldledger/internal/importlog/models"

// LinesResponse wraps a job's log lines so the payload stays an object.
type LinesResponse struct {
	Lines []models.LogLine `json:"lines"`
}
