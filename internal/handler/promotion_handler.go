package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/models"
	"github.com/noah-isme/sma-adp-results/pkg/response"
)

type promotionService interface {
	Preview(ctx context.Context, query dto.PromotionQuery) (*dto.PromotionPreview, error)
	Execute(ctx context.Context, req dto.ExecutePromotionsRequest, actorID string) (*dto.ExecutePromotionsResponse, error)
	Correct(ctx context.Context, id string, req dto.CorrectPromotionRequest, actorID string) (*models.StudentPromotion, error)
	List(ctx context.Context, query dto.PromotionQuery) ([]models.StudentPromotion, error)
}

// PromotionHandler exposes end of year promotion endpoints.
type PromotionHandler struct {
	promotions promotionService
}

// NewPromotionHandler constructs handler.
func NewPromotionHandler(promotions promotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions}
}

// Preview godoc
// @Summary Preview promotion decisions for a class
// @Description Evaluates every student against the active rule without writing anything.
// @Tags Promotions
// @Produce json
// @Param classId query string true "Class ID"
// @Param yearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /promotions/preview [get]
func (h *PromotionHandler) Preview(c *gin.Context) {
	var query dto.PromotionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err))
		return
	}
	preview, err := h.promotions.Preview(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Execute godoc
// @Summary Execute promotion decisions for a class
// @Tags Promotions
// @Accept json
// @Produce json
// @Param payload body dto.ExecutePromotionsRequest true "Execution payload"
// @Success 201 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /promotions/execute [post]
func (h *PromotionHandler) Execute(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.ExecutePromotionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	resp, err := h.promotions.Execute(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// List godoc
// @Summary Promotion history for a class
// @Tags Promotions
// @Produce json
// @Param classId query string true "Class ID"
// @Param yearId query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /promotions [get]
func (h *PromotionHandler) List(c *gin.Context) {
	var query dto.PromotionQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err))
		return
	}
	records, err := h.promotions.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Correct godoc
// @Summary Correct a promotion decision
// @Description Appends a record superseding the given one.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param id path string true "Promotion ID"
// @Param payload body dto.CorrectPromotionRequest true "Correction payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /promotions/{id}/corrections [post]
func (h *PromotionHandler) Correct(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CorrectPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	record, err := h.promotions.Correct(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}
