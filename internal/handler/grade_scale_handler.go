package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/models"
	"github.com/noah-isme/sma-adp-results/pkg/response"
)

type gradeScaleService interface {
	List(ctx context.Context, filter models.GradeScaleFilter) ([]models.GradeScale, error)
	Get(ctx context.Context, id string) (*models.GradeScale, error)
	Create(ctx context.Context, req dto.CreateGradeScaleRequest, actorID string) (*models.GradeScale, error)
	SetDefault(ctx context.Context, id string) (*models.GradeScale, error)
}

// GradeScaleHandler exposes grade scale endpoints.
type GradeScaleHandler struct {
	scales gradeScaleService
}

// NewGradeScaleHandler constructs handler.
func NewGradeScaleHandler(scales gradeScaleService) *GradeScaleHandler {
	return &GradeScaleHandler{scales: scales}
}

// List godoc
// @Summary List grade scales
// @Tags Grade Scales
// @Produce json
// @Param name query string false "Filter by name"
// @Success 200 {object} response.Envelope
// @Router /grade-scales [get]
func (h *GradeScaleHandler) List(c *gin.Context) {
	scales, err := h.scales.List(c.Request.Context(), models.GradeScaleFilter{Name: c.Query("name")})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scales, nil)
}

// Get godoc
// @Summary Get grade scale
// @Tags Grade Scales
// @Produce json
// @Param id path string true "Grade scale ID"
// @Success 200 {object} response.Envelope
// @Router /grade-scales/{id} [get]
func (h *GradeScaleHandler) Get(c *gin.Context) {
	scale, err := h.scales.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scale, nil)
}

// Create godoc
// @Summary Create a grade scale version
// @Tags Grade Scales
// @Accept json
// @Produce json
// @Param payload body dto.CreateGradeScaleRequest true "Grade scale payload"
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /grade-scales [post]
func (h *GradeScaleHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreateGradeScaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	scale, err := h.scales.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, scale)
}

// SetDefault godoc
// @Summary Make a grade scale the default
// @Tags Grade Scales
// @Produce json
// @Param id path string true "Grade scale ID"
// @Success 200 {object} response.Envelope
// @Router /grade-scales/{id}/default [post]
func (h *GradeScaleHandler) SetDefault(c *gin.Context) {
	scale, err := h.scales.SetDefault(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scale, nil)
}
