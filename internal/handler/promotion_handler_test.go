package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/models"
	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
)

type promotionServiceMock struct {
	query      dto.PromotionQuery
	executeReq dto.ExecutePromotionsRequest
	actorID    string
	correctID  string
	correctErr error
}

func (m *promotionServiceMock) Preview(ctx context.Context, query dto.PromotionQuery) (*dto.PromotionPreview, error) {
	m.query = query
	return &dto.PromotionPreview{ClassID: query.ClassID, AcademicYear: query.AcademicYear}, nil
}

func (m *promotionServiceMock) Execute(ctx context.Context, req dto.ExecutePromotionsRequest, actorID string) (*dto.ExecutePromotionsResponse, error) {
	m.executeReq = req
	m.actorID = actorID
	return &dto.ExecutePromotionsResponse{ClassID: req.ClassID, AcademicYear: req.AcademicYear, Written: 2}, nil
}

func (m *promotionServiceMock) Correct(ctx context.Context, id string, req dto.CorrectPromotionRequest, actorID string) (*models.StudentPromotion, error) {
	m.correctID = id
	m.actorID = actorID
	if m.correctErr != nil {
		return nil, m.correctErr
	}
	return &models.StudentPromotion{ID: "promo-2", Status: req.Status, Source: models.PromotionSourceCorrection}, nil
}

func (m *promotionServiceMock) List(ctx context.Context, query dto.PromotionQuery) ([]models.StudentPromotion, error) {
	m.query = query
	return []models.StudentPromotion{{ID: "promo-1"}}, nil
}

func TestPromotionHandlerPreviewBindsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &promotionServiceMock{}
	handler := NewPromotionHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/promotions/preview?classId=class-1&yearId=2024/2025", nil)
	handler.Preview(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "class-1", mockSvc.query.ClassID)
	assert.Equal(t, "2024/2025", mockSvc.query.AcademicYear)
}

func TestPromotionHandlerExecute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &promotionServiceMock{}
	handler := NewPromotionHandler(mockSvc)

	body, _ := json.Marshal(dto.ExecutePromotionsRequest{
		ClassID:      "class-1",
		AcademicYear: "2024/2025",
		Overrides: []dto.PromotionOverride{
			{StudentID: "stu-1", Status: models.PromotionStatusPromoted, Reason: "medical absence"},
		},
	})
	c, w := newGinContext(http.MethodPost, "/promotions/execute", body)
	withUser(c, "admin-1", models.RoleAdmin)

	handler.Execute(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", mockSvc.actorID)
	require.Len(t, mockSvc.executeReq.Overrides, 1)
	assert.Equal(t, "medical absence", mockSvc.executeReq.Overrides[0].Reason)
	assert.Contains(t, w.Body.String(), `"written":2`)
}

func TestPromotionHandlerExecuteRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPromotionHandler(&promotionServiceMock{})

	c, w := newGinContext(http.MethodPost, "/promotions/execute", []byte(`{"class_id":"class-1","year_id":"2024/2025"}`))
	handler.Execute(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPromotionHandlerCorrect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &promotionServiceMock{}
	handler := NewPromotionHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/promotions/promo-1/corrections", []byte(`{"status":"REPEATED","reason":"late exam result"}`))
	c.Params = gin.Params{{Key: "id", Value: "promo-1"}}
	withUser(c, "admin-1", models.RoleAdmin)

	handler.Correct(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "promo-1", mockSvc.correctID)
	assert.Contains(t, w.Body.String(), `"REPEATED"`)
}

func TestPromotionHandlerCorrectSuperseded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &promotionServiceMock{correctErr: appErrors.Clone(appErrors.ErrStateConflict, "promotion already superseded")}
	handler := NewPromotionHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/promotions/promo-1/corrections", []byte(`{"status":"REPEATED","reason":"late exam result"}`))
	c.Params = gin.Params{{Key: "id", Value: "promo-1"}}
	withUser(c, "admin-1", models.RoleAdmin)

	handler.Correct(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "STATE_CONFLICT", decodeError(t, w))
}

func TestPromotionHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &promotionServiceMock{}
	handler := NewPromotionHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/promotions?classId=class-1&yearId=2024/2025", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "promo-1")
}
