package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/models"
	"github.com/noah-isme/sma-adp-results/pkg/response"
)

type resultService interface {
	Compute(ctx context.Context, req dto.ComputeResultsRequest) (*models.ComputeSummary, error)
	Publish(ctx context.Context, req dto.PublishResultsRequest, role models.UserRole) (*models.PublishSummary, error)
	ClassResults(ctx context.Context, termID, classID string, role models.UserRole) (*dto.ClassResultsResponse, error)
	StudentResult(ctx context.Context, termID, studentID string, claims *models.JWTClaims) (*models.TermResult, error)
	UpdateRemarks(ctx context.Context, id string, req dto.UpdateRemarksRequest) (*models.TermResult, error)
}

// ResultHandler exposes term result endpoints.
type ResultHandler struct {
	results resultService
}

// NewResultHandler constructs handler.
func NewResultHandler(results resultService) *ResultHandler {
	return &ResultHandler{results: results}
}

// Compute godoc
// @Summary Compute term results for a class
// @Description Recomputes every student's result, subject ranks and class positions. Published results need force.
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body dto.ComputeResultsRequest true "Compute payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /results/compute [post]
func (h *ResultHandler) Compute(c *gin.Context) {
	var req dto.ComputeResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	summary, err := h.results.Compute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Publish godoc
// @Summary Publish or unpublish class results
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body dto.PublishResultsRequest true "Publish payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /results/publish [post]
func (h *ResultHandler) Publish(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.PublishResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	ack, err := h.results.Publish(c.Request.Context(), req, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ack, nil)
}

// List godoc
// @Summary List class results for a term
// @Description Students and parents only see published results.
// @Tags Results
// @Produce json
// @Param termId query string true "Term ID"
// @Param classId query string true "Class ID"
// @Success 200 {object} response.Envelope
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	results, err := h.results.ClassResults(c.Request.Context(), c.Query("termId"), c.Query("classId"), claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil, map[string]interface{}{"count": len(results.Results)})
}

// Student godoc
// @Summary Get a student's term result
// @Tags Results
// @Produce json
// @Param studentId path string true "Student ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /results/students/{studentId} [get]
func (h *ResultHandler) Student(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	result, err := h.results.StudentResult(c.Request.Context(), c.Query("termId"), c.Param("studentId"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// UpdateRemarks godoc
// @Summary Set remarks on a term result
// @Tags Results
// @Accept json
// @Produce json
// @Param id path string true "Term result ID"
// @Param payload body dto.UpdateRemarksRequest true "Remarks payload"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/remarks [patch]
func (h *ResultHandler) UpdateRemarks(c *gin.Context) {
	var req dto.UpdateRemarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	result, err := h.results.UpdateRemarks(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
