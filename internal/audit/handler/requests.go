package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fieldledger/internal/audit/models"
	"fieldledger/internal/audit/service"
	"fieldledger/pkg/domain"
)

// RecordRequest is the HTTP request body for POST /audit/events.
type RecordRequest struct {
	SubjectType string          `json:"subject_type"`
	SubjectID   string          `json:"subject_id"`
	Actor       string          `json:"actor"`
	Action      string          `json:"action"`
	Payload     json.RawMessage `json:"payload"`
	Source      string          `json:"source"`
}

// ToDomain validates and converts the request. Subject types are checked
// against the registry so typos cannot fragment audit trails.
func (r RecordRequest) ToDomain() (service.RecordRequest, error) {
	subjectType, err := domain.ParseSubjectType(strings.TrimSpace(r.SubjectType))
	if err != nil {
		return service.RecordRequest{}, err
	}
	action, err := models.ParseAction(strings.TrimSpace(r.Action))
	if err != nil {
		return service.RecordRequest{}, err
	}
	return service.RecordRequest{
		Subject: domain.SubjectRef{Type: subjectType, ID: strings.TrimSpace(r.SubjectID)},
		Actor:   strings.TrimSpace(r.Actor),
		Action:  action,
		Payload: r.Payload,
		Source:  r.Source,
	}, nil
}

// parseQuery extracts filter, cursor and limit from GET /audit/events params.
func parseQuery(r *http.Request) (models.Filter, string, int, error) {
	q := r.URL.Query()
	var filter models.Filter

	if v := q.Get("subject_type"); v != "" {
		subjectType, err := domain.ParseSubjectType(v)
		if err != nil {
			return models.Filter{}, "", 0, err
		}
		filter.SubjectType = subjectType
	}
	filter.SubjectID = q.Get("subject_id")
	filter.Actor = q.Get("actor")

	if v := q.Get("action"); v != "" {
		action, err := models.ParseAction(v)
		if err != nil {
			return models.Filter{}, "", 0, err
		}
		filter.Action = action
	}

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return models.Filter{}, "", 0, fmt.Errorf("invalid from timestamp: %v", err)
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return models.Filter{}, "", 0, fmt.Errorf("invalid to timestamp: %v", err)
		}
		filter.To = t
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return models.Filter{}, "", 0, fmt.Errorf("invalid limit: %s", v)
		}
		limit = n
	}

	return filter, q.Get("cursor"), limit, nil
}
