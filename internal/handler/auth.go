package handler

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/config"
	"github.com/ahmadyateem/meeting-room-reservation/internal/logger"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/repository"
	"github.com/ahmadyateem/meeting-room-reservation/internal/utils"
	"github.com/ahmadyateem/meeting-room-reservation/internal/validator"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"full_name" validate:"required,max=100"`
}
type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func (h *AuthHandler) issueTokens(ctx context.Context, u userPart) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, apperror.Internal("issue access token failed", err)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, apperror.Internal("issue refresh token failed", err)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, apperror.Internal("save refresh token failed", err)
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}

// Register creates a user account and returns tokens immediately.
// Self-registration always yields the regular user role; privileged
// roles are assigned by an admin afterwards.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	req.Username = strings.TrimSpace(req.Username)
	if verr := validator.Username(req.Username); verr != nil {
		return verr
	}
	if verr := validator.Password(req.Password); verr != nil {
		return verr
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, req.FullName, model.RoleUser, h.Cfg.BcryptCost)
	if err != nil {
		switch err {
		case repository.ErrUsernameExists:
			return apperror.Conflict(fmt.Sprintf("Username '%s' is already taken", req.Username))
		case repository.ErrEmailExists:
			return apperror.Conflict("Email already registered")
		}
		return apperror.Internal("create user failed", err)
	}
	logger.Info("user registered", map[string]any{"user_id": uid, "username": req.Username})

	resp, err := h.issueTokens(ctx, userPart{ID: uid, Username: req.Username, Email: req.Email, FullName: req.FullName, Role: model.RoleUser})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials. Repeated failures lock the account for a
// configured window; a successful login resets the counter.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			// Same message as a bad password so attackers cannot probe
			// for registered addresses.
			return apperror.Unauthorized("Invalid email or password")
		}
		return apperror.Internal("user lookup failed", err)
	}

	now := time.Now().UTC()
	if u.IsLocked(now) {
		remaining := int(u.LockedUntil.Sub(now).Minutes()) + 1
		return apperror.Unauthorized(fmt.Sprintf(
			"Account is locked due to too many failed login attempts. Try again in %d minutes.", remaining))
	}
	if !u.IsActive {
		return apperror.Unauthorized("Account is deactivated")
	}

	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		attempts, rerr := h.Users.RecordFailedLogin(ctx, u.ID, h.Cfg.MaxLoginAttempts, h.Cfg.LockDuration)
		if rerr != nil {
			logger.Warn("failed-login bookkeeping error", map[string]any{"user_id": u.ID, "error": rerr.Error()})
		}
		if attempts >= h.Cfg.MaxLoginAttempts {
			logger.Warn("account locked", map[string]any{"user_id": u.ID, "attempts": attempts})
		}
		return apperror.Unauthorized("Invalid email or password")
	}

	if err := h.Users.RecordLogin(ctx, u.ID, now); err != nil {
		logger.Warn("login bookkeeping failed", map[string]any{"user_id": u.ID, "error": err.Error()})
	}

	resp, err := h.issueTokens(ctx, userPart{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued, so a leaked token is only usable once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashRefreshRaw(req.RefreshToken)
	uid, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return apperror.Unauthorized("Invalid or expired refresh token")
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return apperror.Internal("revoke refresh token failed", err)
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return apperror.Unauthorized("Invalid or expired refresh token")
	}
	resp, err := h.issueTokens(ctx, userPart{ID: u.ID, Username: u.Username, Email: u.Email, FullName: u.FullName, Role: u.Role})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes every active refresh token of the caller.
func (h *AuthHandler) Logout(c echo.Context) error {
	userID, _ := identity(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeAllForUser(ctx, userID); err != nil {
		return apperror.Internal("revoke tokens failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Logged out successfully"})
}
