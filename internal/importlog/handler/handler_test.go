package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"fieldledger/internal/importlog/models"
	"fieldledger/internal/importlog/store/memory"
	"fieldledger/internal/sequence"
	sequenceMemory "fieldledger/internal/sequence/store/memory"
	"fieldledger/pkg/testutil"

	importservice "fieldledger/internal/importlog/service"
)

// =============================================================================
// Import Log Handler Test Suite
// =============================================================================
// Handler tests run against the real service backed by the in-memory store,
// mirroring how the router is wired in main.

type ImportLogHandlerSuite struct {
	suite.Suite
	router chi.Router
}

func TestImportLogHandlerSuite(t *testing.T) {
	suite.Run(t, new(ImportLogHandlerSuite))
}

func (s *ImportLogHandlerSuite) SetupTest() {
	seq, err := sequence.New(sequenceMemory.New())
	s.Require().NoError(err)

	svc, err := importservice.New(memory.New(), seq)
	s.Require().NoError(err)

	s.router = chi.NewRouter()
	New(svc, slog.Default()).Register(s.router)
}

func (s *ImportLogHandlerSuite) startJob() models.Job {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/import/jobs", struct{}{}))
	s.Require().Equal(http.StatusCreated, rr.Code)
	return *testutil.UnmarshalResponse[models.Job](s.T(), rr)
}

func (s *ImportLogHandlerSuite) appendLine(jobID int64, body AppendLineRequest) {
	path := fmt.Sprintf("/import/jobs/%d/lines", jobID)
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, body))
	s.Require().Equal(http.StatusCreated, rr.Code)
}

func (s *ImportLogHandlerSuite) TestStartAndGetJob() {
	job := s.startJob()
	s.Equal(models.StatusRunning, job.Status)

	s.Run("existing job returns 200", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, fmt.Sprintf("/import/jobs/%d", job.ID)))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
	})

	s.Run("unknown job returns 404", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/import/jobs/999"))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		testutil.AssertErrorCode(s.T(), rr, "not_found")
	})

	s.Run("non-numeric job id returns 400", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/import/jobs/abc"))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *ImportLogHandlerSuite) TestAppendLine() {
	job := s.startJob()

	s.Run("valid line returns 201", func() {
		s.appendLine(job.ID, AppendLineRequest{LineNumber: 1, Severity: "info", Message: "row imported"})
	})

	s.Run("unknown severity returns 400", func() {
		path := fmt.Sprintf("/import/jobs/%d/lines", job.ID)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, AppendLineRequest{LineNumber: 1, Severity: "fatal", Message: "x"}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("missing message returns 400", func() {
		path := fmt.Sprintf("/import/jobs/%d/lines", job.ID)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, AppendLineRequest{LineNumber: 1, Severity: "info"}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *ImportLogHandlerSuite) TestFinalize() {
	job := s.startJob()
	s.appendLine(job.ID, AppendLineRequest{LineNumber: 1, Severity: "error", Message: "bad date"})

	s.Run("succeeded outcome degrades to partial", func() {
		path := fmt.Sprintf("/import/jobs/%d/finalize", job.ID)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, FinalizeRequest{Outcome: "succeeded"}))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		final := testutil.UnmarshalResponse[models.Job](s.T(), rr)
		s.Equal(models.StatusPartial, final.Status)
		s.NotNil(final.EndedAt)
	})

	s.Run("second finalize returns 409", func() {
		path := fmt.Sprintf("/import/jobs/%d/finalize", job.ID)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, FinalizeRequest{Outcome: "failed"}))
		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		testutil.AssertErrorCode(s.T(), rr, "invalid_job_state")
	})

	s.Run("append after finalize returns 409", func() {
		path := fmt.Sprintf("/import/jobs/%d/lines", job.ID)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, AppendLineRequest{LineNumber: 2, Severity: "info", Message: "late"}))
		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	})

	s.Run("partial outcome cannot be requested directly", func() {
		other := s.startJob()
		path := fmt.Sprintf("/import/jobs/%d/finalize", other.ID)
		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, path, FinalizeRequest{Outcome: "partial"}))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *ImportLogHandlerSuite) TestLinesAndSummary() {
	job := s.startJob()
	s.appendLine(job.ID, AppendLineRequest{LineNumber: 1, Severity: "info", Message: "row imported"})
	s.appendLine(job.ID, AppendLineRequest{LineNumber: 2, Severity: "error", Message: "bad date"})
	s.appendLine(job.ID, AppendLineRequest{LineNumber: 2, Severity: "error", Message: "missing phone"})

	s.Run("lines endpoint returns all lines in order", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, fmt.Sprintf("/import/jobs/%d/lines", job.ID)))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[LinesResponse](s.T(), rr)
		s.Require().Len(resp.Lines, 3)
		s.Equal("row imported", resp.Lines[0].Message)
	})

	s.Run("severity filter narrows the report", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, fmt.Sprintf("/import/jobs/%d/lines?severity=error", job.ID)))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[LinesResponse](s.T(), rr)
		s.Len(resp.Lines, 2)
	})

	s.Run("unknown severity filter returns 400", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, fmt.Sprintf("/import/jobs/%d/lines?severity=fatal", job.ID)))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})

	s.Run("summary reports counts and status", func() {
		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, fmt.Sprintf("/import/jobs/%d/summary", job.ID)))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		summary := testutil.UnmarshalResponse[models.Summary](s.T(), rr)
		s.Equal(models.StatusRunning, summary.Status)
		s.Equal(1, summary.Infos)
		s.Equal(2, summary.Errors)
	})
}

func (s *ImportLogHandlerSuite) TestPurgeJob() {
	job := s.startJob()
	s.appendLine(job.ID, AppendLineRequest{LineNumber: 1, Severity: "info", Message: "row imported"})

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, fmt.Sprintf("/import/jobs/%d", job.ID)))
	testutil.AssertStatus(s.T(), rr, http.StatusNoContent)

	rr = testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, fmt.Sprintf("/import/jobs/%d", job.ID)))
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
}
