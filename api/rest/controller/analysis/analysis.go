package analysis

import (
	"net/http"

	"github.com/caesium-cloud/jobassist/internal/analyzer"
	"github.com/caesium-cloud/jobassist/internal/job"
	"github.com/labstack/echo/v4"
)

// maxBatchSize bounds the postings accepted by one batch request.
const maxBatchSize = 100

// Controller serves job analysis endpoints.
type Controller struct {
	Service *analyzer.Service
}

// BatchRequest carries several postings.
type BatchRequest struct {
	Jobs []job.Job `json:"jobs"`
}

// BatchResponse holds results in request order.
type BatchResponse struct {
	Results []analyzer.Result `json:"results"`
}

// Analyze returns the analysis of a single posting.
func (ctl *Controller) Analyze(c echo.Context) error {
	var j job.Job
	if err := c.Bind(&j); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid job posting").SetInternal(err)
	}

	j = j.Clean()
	if !j.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "job posting has too little content to analyze")
	}

	return c.JSON(http.StatusOK, ctl.Service.Analyze(c.Request().Context(), j))
}

// AnalyzeBatch analyzes every posting in the request.
func (ctl *Controller) AnalyzeBatch(c echo.Context) error {
	jobs, err := bindJobs(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, BatchResponse{
		Results: ctl.Service.AnalyzeBatch(c.Request().Context(), jobs),
	})
}

// PreFilter returns the postings worth a full analysis.
func (ctl *Controller) PreFilter(c echo.Context) error {
	jobs, err := bindJobs(c)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ctl.Service.PreFilter(c.Request().Context(), jobs))
}

func bindJobs(c echo.Context) ([]job.Job, error) {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid job batch").SetInternal(err)
	}

	switch {
	case len(req.Jobs) == 0:
		return nil, echo.NewHTTPError(http.StatusBadRequest, "job batch is empty")
	case len(req.Jobs) > maxBatchSize:
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "job batch is too large")
	}

	jobs := make([]job.Job, len(req.Jobs))
	for i, j := range req.Jobs {
		jobs[i] = j.Clean()
	}

	return jobs, nil
}
