package handler

import (
	"errors"

	"fieldledger/internal/importlog/models"
	"fieldledger/internal/importlog/service"
)

// AppendLineRequest is the JSON body for appending a log line to a job.
type AppendLineRequest struct {
	LineNumber       int    `json:"line_number"`
	RecordIdentifier string `json:"record_identifier"`
	Severity         string `json:"severity"`
	Message          string `json:"message"`
	RawInput         string `json:"raw_input"`
}

// ToDomain validates the request and converts it to a service append request.
func (r AppendLineRequest) ToDomain() (service.AppendRequest, error) {
	severity, err := models.ParseSeverity(r.Severity)
	if err != nil {
		return service.AppendRequest{}, err
	}
	if r.Message == "" {
		return service.AppendRequest{}, errors.New("message is required")
	}
	return service.AppendRequest{
		LineNumber:       r.LineNumber,
		RecordIdentifier: r.RecordIdentifier,
		Severity:         severity,
		Message:          r.Message,
		RawInput:         r.RawInput,
	}, nil
}

// FinalizeRequest is the JSON body for finalizing a job.
type FinalizeRequest struct {
	Outcome string `json:"outcome"`
}
