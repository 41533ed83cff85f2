package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-adp-results/internal/middleware"
	"github.com/noah-isme/sma-adp-results/internal/models"
	appErrors "github.com/noah-isme/sma-adp-results/pkg/errors"
	"github.com/noah-isme/sma-adp-results/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// requireClaims writes 401 and returns nil when the request is anonymous.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil
	}
	return claims
}

func bindError(err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
}
