package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/models"
	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
)

type gradeScaleServiceMock struct {
	filter    models.GradeScaleFilter
	createReq dto.CreateGradeScaleRequest
	actorID   string
	createErr error
	defaultID string
}

func (m *gradeScaleServiceMock) List(ctx context.Context, filter models.GradeScaleFilter) ([]models.GradeScale, error) {
	m.filter = filter
	return []models.GradeScale{{ID: "scale-1", Name: filter.Name, Version: 2}}, nil
}

func (m *gradeScaleServiceMock) Get(ctx context.Context, id string) (*models.GradeScale, error) {
	if id != "scale-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "grade scale not found")
	}
	return &models.GradeScale{ID: id}, nil
}

func (m *gradeScaleServiceMock) Create(ctx context.Context, req dto.CreateGradeScaleRequest, actorID string) (*models.GradeScale, error) {
	m.createReq = req
	m.actorID = actorID
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.GradeScale{ID: "scale-2", Name: req.Name, Version: 1}, nil
}

func (m *gradeScaleServiceMock) SetDefault(ctx context.Context, id string) (*models.GradeScale, error) {
	m.defaultID = id
	return &models.GradeScale{ID: id, IsDefault: true}, nil
}

type promotionRuleServiceMock struct {
	fromLevel   string
	toLevel     string
	createReq   dto.CreatePromotionRuleRequest
	activatedID string
}

func (m *promotionRuleServiceMock) List(ctx context.Context, fromLevel, toLevel string) ([]models.PromotionRule, error) {
	m.fromLevel = fromLevel
	m.toLevel = toLevel
	return []models.PromotionRule{{ID: "rule-1", FromLevel: fromLevel, ToLevel: toLevel}}, nil
}

func (m *promotionRuleServiceMock) Get(ctx context.Context, id string) (*models.PromotionRule, error) {
	return &models.PromotionRule{ID: id}, nil
}

func (m *promotionRuleServiceMock) Create(ctx context.Context, req dto.CreatePromotionRuleRequest, actorID string) (*models.PromotionRule, error) {
	m.createReq = req
	return &models.PromotionRule{ID: "rule-2", FromLevel: req.FromLevel, ToLevel: req.ToLevel, Version: 1}, nil
}

func (m *promotionRuleServiceMock) Activate(ctx context.Context, id string) (*models.PromotionRule, error) {
	m.activatedID = id
	return &models.PromotionRule{ID: id, IsActive: true}, nil
}

func TestGradeScaleHandlerListAndGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gradeScaleServiceMock{}
	handler := NewGradeScaleHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/grade-scales?name=WAEC", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "WAEC", mockSvc.filter.Name)

	c, w = newGinContext(http.MethodGet, "/grade-scales/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGradeScaleHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gradeScaleServiceMock{}
	handler := NewGradeScaleHandler(mockSvc)

	payload := []byte(`{"name":"WAEC","bands":[{"letter":"A","min_percent":70,"max_percent":100,"grade_point":5},{"letter":"F","min_percent":0,"max_percent":69.99,"grade_point":0}]}`)
	c, w := newGinContext(http.MethodPost, "/grade-scales", payload)
	withUser(c, "admin-1", models.RoleAdmin)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", mockSvc.actorID)
	require.Len(t, mockSvc.createReq.Bands, 2)
	assert.Equal(t, 69.99, mockSvc.createReq.Bands[1].MaxPercent)
}

func TestGradeScaleHandlerCreateReportsGap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gradeScaleServiceMock{createErr: appErrors.Clone(appErrors.ErrConfiguration, "gap between 60.00 and 60.50")}
	handler := NewGradeScaleHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/grade-scales", []byte(`{"name":"WAEC","bands":[]}`))
	withUser(c, "admin-1", models.RoleAdmin)
	handler.Create(c)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, appErrors.ErrConfiguration.Code, decodeError(t, w))
}

func TestGradeScaleHandlerSetDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &gradeScaleServiceMock{}
	handler := NewGradeScaleHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/grade-scales/scale-1/default", nil)
	c.Params = gin.Params{{Key: "id", Value: "scale-1"}}
	handler.SetDefault(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "scale-1", mockSvc.defaultID)
}

func TestPromotionRuleHandlerEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &promotionRuleServiceMock{}
	handler := NewPromotionRuleHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/promotion-rules?fromLevel=JSS1&toLevel=JSS2", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "JSS1", mockSvc.fromLevel)
	assert.Equal(t, "JSS2", mockSvc.toLevel)

	c, w = newGinContext(http.MethodPost, "/promotion-rules", []byte(`{"from_level":"JSS1","to_level":"JSS2","min_annual_average":50,"use_term_weights":true,"term_weights":[0.3,0.3,0.4],"activate":true}`))
	withUser(c, "admin-1", models.RoleAdmin)
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []float64{0.3, 0.3, 0.4}, mockSvc.createReq.TermWeights)
	assert.True(t, mockSvc.createReq.Activate)

	c, w = newGinContext(http.MethodPost, "/promotion-rules/rule-2/activate", nil)
	c.Params = gin.Params{{Key: "id", Value: "rule-2"}}
	handler.Activate(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rule-2", mockSvc.activatedID)
}

func TestPromotionRuleHandlerCreateRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPromotionRuleHandler(&promotionRuleServiceMock{})

	c, w := newGinContext(http.MethodPost, "/promotion-rules", []byte(`{"from_level":"JSS1"}`))
	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
