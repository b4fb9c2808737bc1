package handler

import "fieldledger/internal/audit/models"

// QueryResponse is the HTTP response body for GET /audit/events.
// NextCursor is empty on the final page.
type QueryResponse struct {
	Events     []models.Event `json:"events"`
	NextCursor string         `json:"next_cursor,omitempty"`
}
