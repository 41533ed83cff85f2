package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/models"
	"github.com/noah-isme/sma-adp-results/pkg/response"
)

type promotionRuleService interface {
	List(ctx context.Context, fromLevel, toLevel string) ([]models.PromotionRule, error)
	Get(ctx context.Context, id string) (*models.PromotionRule, error)
	Create(ctx context.Context, req dto.CreatePromotionRuleRequest, actorID string) (*models.PromotionRule, error)
	Activate(ctx context.Context, id string) (*models.PromotionRule, error)
}

// PromotionRuleHandler exposes promotion rule endpoints.
type PromotionRuleHandler struct {
	rules promotionRuleService
}

// NewPromotionRuleHandler constructs handler.
func NewPromotionRuleHandler(rules promotionRuleService) *PromotionRuleHandler {
	return &PromotionRuleHandler{rules: rules}
}

// List godoc
// @Summary List promotion rules
// @Tags Promotion Rules
// @Produce json
// @Param fromLevel query string false "Filter by source level"
// @Param toLevel query string false "Filter by target level"
// @Success 200 {object} response.Envelope
// @Router /promotion-rules [get]
func (h *PromotionRuleHandler) List(c *gin.Context) {
	rules, err := h.rules.List(c.Request.Context(), c.Query("fromLevel"), c.Query("toLevel"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Get godoc
// @Summary Get promotion rule
// @Tags Promotion Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /promotion-rules/{id} [get]
func (h *PromotionRuleHandler) Get(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Create godoc
// @Summary Create a promotion rule version
// @Tags Promotion Rules
// @Accept json
// @Produce json
// @Param payload body dto.CreatePromotionRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /promotion-rules [post]
func (h *PromotionRuleHandler) Create(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.CreatePromotionRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err))
		return
	}
	rule, err := h.rules.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// Activate godoc
// @Summary Activate a promotion rule version
// @Tags Promotion Rules
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /promotion-rules/{id}/activate [post]
func (h *PromotionRuleHandler) Activate(c *gin.Context) {
	rule, err := h.rules.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}
