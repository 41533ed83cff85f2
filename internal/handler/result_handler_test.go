package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-adp-results/internal/dto"
	"github.com/noah-isme/sma-adp-results/internal/middleware"
	"github.com/noah-isme/sma-adp-results/internal/models"
	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
)

type resultServiceMock struct {
	computeReq  dto.ComputeResultsRequest
	computeResp *models.ComputeSummary
	computeErr  error
	publishRole models.UserRole
	publishResp *models.PublishSummary
	publishErr  error
	classResp   *dto.ClassResultsResponse
	classRole   models.UserRole
	studentID   string
	studentTerm string
	studentResp *models.TermResult
	remarksID   string
	remarksReq  dto.UpdateRemarksRequest
	remarksResp *models.TermResult
}

func (m *resultServiceMock) Compute(ctx context.Context, req dto.ComputeResultsRequest) (*models.ComputeSummary, error) {
	m.computeReq = req
	return m.computeResp, m.computeErr
}

func (m *resultServiceMock) Publish(ctx context.Context, req dto.PublishResultsRequest, role models.UserRole) (*models.PublishSummary, error) {
	m.publishRole = role
	return m.publishResp, m.publishErr
}

func (m *resultServiceMock) ClassResults(ctx context.Context, termID, classID string, role models.UserRole) (*dto.ClassResultsResponse, error) {
	m.classRole = role
	return m.classResp, nil
}

func (m *resultServiceMock) StudentResult(ctx context.Context, termID, studentID string, claims *models.JWTClaims) (*models.TermResult, error) {
	m.studentTerm = termID
	m.studentID = studentID
	return m.studentResp, nil
}

func (m *resultServiceMock) UpdateRemarks(ctx context.Context, id string, req dto.UpdateRemarksRequest) (*models.TermResult, error) {
	m.remarksID = id
	m.remarksReq = req
	return m.remarksResp, nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withUser(c *gin.Context, userID string, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

func TestResultHandlerCompute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &resultServiceMock{computeResp: &models.ComputeSummary{TermID: "term-1", ClassID: "class-1", Computed: 3}}
	handler := NewResultHandler(mockSvc)

	body, _ := json.Marshal(dto.ComputeResultsRequest{TermID: "term-1", ClassID: "class-1", Force: true})
	c, w := newGinContext(http.MethodPost, "/results/compute", body)
	withUser(c, "admin", models.RoleAdmin)

	handler.Compute(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.computeReq.Force)
	assert.Contains(t, w.Body.String(), `"computed":3`)
}

func TestResultHandlerComputeBusy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &resultServiceMock{computeErr: appErrors.Clone(appErrors.ErrBusy, "class-1 is being processed, retry later")}
	handler := NewResultHandler(mockSvc)

	body, _ := json.Marshal(dto.ComputeResultsRequest{TermID: "term-1", ClassID: "class-1"})
	c, w := newGinContext(http.MethodPost, "/results/compute", body)

	handler.Compute(c)

	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "RESOURCE_BUSY", decodeError(t, w))
}

func TestResultHandlerComputeInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(&resultServiceMock{})

	c, w := newGinContext(http.MethodPost, "/results/compute", []byte("{"))
	handler.Compute(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeError(t, w))
}

func TestResultHandlerPublishRequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewResultHandler(&resultServiceMock{})

	body, _ := json.Marshal(dto.PublishResultsRequest{TermID: "term-1", ClassID: "class-1", Action: "publish"})
	c, w := newGinContext(http.MethodPost, "/results/publish", body)
	handler.Publish(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResultHandlerPublishPassesRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &resultServiceMock{publishResp: &models.PublishSummary{TermID: "term-1", ClassID: "class-1", Action: models.PublishActionPublish, Affected: 2}}
	handler := NewResultHandler(mockSvc)

	body, _ := json.Marshal(dto.PublishResultsRequest{TermID: "term-1", ClassID: "class-1", Action: "publish"})
	c, w := newGinContext(http.MethodPost, "/results/publish", body)
	withUser(c, "super", models.RoleSuperAdmin)

	handler.Publish(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleSuperAdmin, mockSvc.publishRole)
	assert.Contains(t, w.Body.String(), `"affected":2`)
}

func TestResultHandlerListAndStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &resultServiceMock{
		classResp:   &dto.ClassResultsResponse{TermID: "term-1", ClassID: "class-1", Published: true, Results: []models.TermResult{{ID: "r1"}, {ID: "r2"}}},
		studentResp: &models.TermResult{ID: "r1", StudentID: "stu-1"},
	}
	handler := NewResultHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/results?termId=term-1&classId=class-1", nil)
	withUser(c, "stu-1", models.RoleStudent)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleStudent, mockSvc.classRole)
	assert.Contains(t, w.Body.String(), `"count":2`)

	c, w = newGinContext(http.MethodGet, "/results/students/stu-1?termId=term-1", nil)
	c.Params = gin.Params{{Key: "studentId", Value: "stu-1"}}
	withUser(c, "stu-1", models.RoleStudent)
	handler.Student(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "stu-1", mockSvc.studentID)
	assert.Equal(t, "term-1", mockSvc.studentTerm)
}

func TestResultHandlerUpdateRemarks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &resultServiceMock{remarksResp: &models.TermResult{ID: "r1"}}
	handler := NewResultHandler(mockSvc)

	c, w := newGinContext(http.MethodPatch, "/results/r1/remarks", []byte(`{"remarks":"Excellent"}`))
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	handler.UpdateRemarks(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r1", mockSvc.remarksID)
	assert.Equal(t, "Excellent", mockSvc.remarksReq.Remarks)
}
