package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/student-registry/internal/config"
	"github.com/stemsi/student-registry/internal/middleware"
	"github.com/stemsi/student-registry/internal/model"
	"github.com/stemsi/student-registry/internal/response"
	"github.com/stemsi/student-registry/internal/service"
	"github.com/stemsi/student-registry/internal/session"
	"github.com/stemsi/student-registry/internal/validator"
)

// AuthHandler handles login, logout and account endpoints.
type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, cfg *config.Config, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/login
// Verifies username + password and opens a session. The token is returned in
// the body and as the sid cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, account, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	session.SetCookie(c, token, int(h.cfg.SessionTTL.Seconds()), h.cfg.CookieSecure)
	h.log.Info().Int64("account_id", account.ID).Str("role", string(account.Role)).Msg("Login")
	response.Success(c, http.StatusOK, model.LoginResponse{Token: token, User: account.View()})
}

// Logout godoc
// POST /api/logout
// Ends the caller's session, if any. Always succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.GetToken(c)); err != nil {
		failFromError(c, h.log, err)
		return
	}
	session.ClearCookie(c, h.cfg.CookieSecure)
	response.Success(c, http.StatusOK, gin.H{"message": "Logged out"})
}

// CurrentUser godoc
// GET /api/user
// Returns the account behind the caller's session.
func (h *AuthHandler) CurrentUser(c *gin.Context) {
	sess := middleware.GetSession(c)
	if sess == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthenticated)
		return
	}
	response.Success(c, http.StatusOK, model.AccountView{
		ID:       sess.AccountID,
		Username: sess.Username,
		Role:     sess.Role,
	})
}

// Register godoc
// POST /api/register
// Public self-registration. The new account always has role "user".
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterAccountRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	account, err := h.authService.RegisterAccount(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, account.View())
}

// CreateAccount godoc
// POST /api/accounts
// Admin-only account creation with an explicit role.
func (h *AuthHandler) CreateAccount(c *gin.Context) {
	var req model.CreateAccountRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	account, err := h.authService.CreateAccount(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	h.log.Info().
		Int64("account_id", account.ID).
		Str("role", string(account.Role)).
		Int64("created_by", middleware.GetSession(c).AccountID).
		Msg("Account created")
	response.Success(c, http.StatusCreated, account.View())
}
