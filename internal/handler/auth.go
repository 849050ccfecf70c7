package handler

import (
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // token expiry formatting

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/naruebet/cafe-reservation/internal/config" // app configuration
	"github.com/naruebet/cafe-reservation/internal/utils"  // helper functions (hashing, token issuing)
)

// AuthHandler bundles dependencies for auth endpoints.  The service has no
// self-serve user registry: guests are identified by the conversational
// front end, which exchanges a shared API key for customer tokens, and the
// single admin account is verified against a bcrypt hash from configuration.
type AuthHandler struct {
	Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{Cfg: cfg}
}

// ----- DTOs -----

type adminLoginReq struct {
	Password string `json:"password"`
}
type serviceTokenReq struct {
	APIKey string `json:"api_key"`
	UserID string `json:"user_id"`
}
type tokenResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
	Role    string    `json:"role"`
}

// AdminLogin verifies the staff password against the configured bcrypt hash
// and issues a short-lived ADMIN token.  When no hash is configured the
// endpoint is disabled.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	if h.Cfg.AdminPasswordHash == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "admin login disabled"})
	}
	var req adminLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	}
	if !utils.VerifyPassword(h.Cfg.AdminPasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, "admin", "ADMIN", h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{Token: access.Token, Expires: access.Exp, Role: "ADMIN"})
}

// ServiceToken exchanges the shared API key for a CUSTOMER token bound to a
// messaging-platform user ID.  The conversational layer calls this once per
// session and then acts on the guest's behalf.
func (h *AuthHandler) ServiceToken(c echo.Context) error {
	if h.Cfg.ServiceAPIKey == "" {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "service tokens disabled"})
	}
	var req serviceTokenReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if key := c.Request().Header.Get("X-Api-Key"); key != "" {
		req.APIKey = key
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if req.APIKey == "" || req.UserID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "api_key and user_id required"})
	}
	if req.APIKey != h.Cfg.ServiceAPIKey {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.UserID, "CUSTOMER", h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, tokenResp{Token: access.Token, Expires: access.Exp, Role: "CUSTOMER"})
}
