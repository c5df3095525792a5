// Package handler wires the review API endpoints to their services.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seacliff-digital/reportpilot/internal/models"
	"github.com/seacliff-digital/reportpilot/internal/service"
	appErrors "github.com/seacliff-digital/reportpilot/pkg/errors"
	"github.com/seacliff-digital/reportpilot/pkg/response"
)

// AuthHandler exposes reviewer authentication.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login authenticates the reviewer and returns an access token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
