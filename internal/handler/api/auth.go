package api

import (
	"errors"
	"net/http"

	reqdto "scheduled-mailer/internal/handler/dto/request"
	resdto "scheduled-mailer/internal/handler/dto/response"
	"scheduled-mailer/internal/handler/httperr"
	"scheduled-mailer/internal/handler/middleware"
	"scheduled-mailer/internal/pkg/config"
	"scheduled-mailer/internal/pkg/cookie"
	"scheduled-mailer/internal/usecase"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUseCase usecase.AuthUseCase
	cookieCfg   config.CookieConfig
}

func NewAuthHandler(authUseCase usecase.AuthUseCase, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		cookieCfg:   cfg.Cookie,
	}
}

// @Summary Demo login
// @Description Issue a token for any email address. The owner id is derived from the address.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body reqdto.DemoLoginRequest true "Demo login request"
// @Success 200 {object} resdto.LoginResponse
// @Failure 400 {object} httperr.Response
// @Router /api/auth/demo [post]
func (h *AuthHandler) DemoLogin(c *gin.Context) {
	var req reqdto.DemoLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request format", nil)
		return
	}

	issued, err := h.authUseCase.IssueDemoToken(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidIdentity):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid email address", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		}
		return
	}

	cookie.SetAccessToken(c, h.cookieCfg, issued.AccessToken, issued.ExpiresIn)
	c.JSON(http.StatusOK, resdto.FromIssuedToken(issued))
}

// @Summary Logout
// @Description Clear the access token cookie
// @Tags auth
// @Success 204 "No Content"
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	cookie.ClearAccessToken(c, h.cookieCfg)
	c.Status(http.StatusNoContent)
}

// @Summary Get current user
// @Description Get the authenticated caller
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} resdto.UserResponse
// @Failure 401 {object} map[string]string
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
		return
	}
	c.JSON(http.StatusOK, resdto.FromIdentity(identity))
}
