package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/booking"
	"github.com/ahmadyateem/meeting-room-reservation/internal/cache"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/repository"
)

// UserHandler serves the profile and admin user endpoints. Bookings
// reads the shared bookings table for the per-user listing, which is
// cached under the user_bookings scope that booking mutations
// invalidate.
type UserHandler struct {
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Bookings booking.Store
	Cache    *cache.Cache
}

func NewUserHandler(u *repository.UserRepo, t *repository.TokenRepo, b booking.Store, c *cache.Cache) *UserHandler {
	return &UserHandler{Users: u, Tokens: t, Bookings: b, Cache: c}
}

type userResp struct {
	ID        uint64     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Role      string     `json:"role"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
	}
}

// Profile returns the authenticated user's own record.
func (h *UserHandler) Profile(c echo.Context) error {
	userID, _ := identity(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("User")
		}
		return apperror.Internal("user lookup failed", err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

type updateProfileReq struct {
	FullName string `json:"full_name" validate:"required,max=100"`
}

// UpdateProfile changes the caller's mutable profile fields.
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, _ := identity(c)

	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, userID, req.FullName); err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("User")
		}
		return apperror.Internal("profile update failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated successfully"})
}

// Get returns one user by id. Exposed to other services and admins; a
// regular user may only fetch their own record.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	userID, role := identity(c)
	if id != userID && !privileged(role) && role != model.RoleService {
		return apperror.Forbidden("You can only view your own account")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound("User")
		}
		return apperror.Internal("user lookup failed", err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// List returns a page of users. Admin only.
func (h *UserHandler) List(c echo.Context) error {
	limit, offset := pagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx, limit, offset)
	if err != nil {
		return apperror.Internal("user list failed", err)
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out, "count": len(out)})
}

// Deactivate soft-disables a user account. Admin only; bookings and
// reviews made by the user are kept.
func (h *UserHandler) Deactivate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	userID, _ := identity(c)
	if id == userID {
		return apperror.Conflict("You cannot deactivate your own account")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Deactivate(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("User")
		}
		return apperror.Internal("deactivate failed", err)
	}
	// A deactivated account must not be able to mint new access tokens.
	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		return apperror.Internal("revoke tokens failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deactivated"})
}

// UserBookings lists one user's bookings, newest first. Callers may
// only list their own unless privileged.
func (h *UserHandler) UserBookings(c echo.Context) error {
	userID, role := identity(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if id != userID && !privileged(role) {
		return apperror.Forbidden("You can only view your own bookings")
	}
	limit, offset := pagination(c)
	f := booking.Filter{
		UserID: id,
		Status: c.QueryParam("status"),
		Limit:  limit,
		Offset: offset,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	key, cacheable := listCacheKey(f)
	var resp bookingListResp
	if cacheable && h.Cache.Get(ctx, key, &resp) {
		return c.JSON(http.StatusOK, resp)
	}

	bookings, err := h.Bookings.List(ctx, f)
	if err != nil {
		return apperror.Internal("booking list failed", err)
	}
	out := make([]bookingResp, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResp(b))
	}
	resp = bookingListResp{Bookings: out, Count: len(out)}
	if cacheable {
		h.Cache.Set(ctx, key, resp)
	}
	return c.JSON(http.StatusOK, resp)
}
