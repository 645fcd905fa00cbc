package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ahmadyateem/meeting-room-reservation/internal/apperror"
	"github.com/ahmadyateem/meeting-room-reservation/internal/booking"
	"github.com/ahmadyateem/meeting-room-reservation/internal/cache"
	"github.com/ahmadyateem/meeting-room-reservation/internal/model"
	"github.com/ahmadyateem/meeting-room-reservation/internal/queue"
	"github.com/ahmadyateem/meeting-room-reservation/internal/repository"
	queue_publisher "github.com/ahmadyateem/meeting-room-reservation/internal/service"
	"github.com/ahmadyateem/meeting-room-reservation/internal/validator"
)

// ReviewHandler serves review CRUD, voting and moderation. Booking
// ownership checks read the shared bookings table directly rather than
// calling the bookings service, so a review submission cannot be
// blocked by that service being down.
type ReviewHandler struct {
	Reviews  *repository.ReviewRepo
	Bookings booking.Store
	Cache    *cache.Cache
}

func NewReviewHandler(rv *repository.ReviewRepo, b booking.Store, c *cache.Cache) *ReviewHandler {
	return &ReviewHandler{Reviews: rv, Bookings: b, Cache: c}
}

type createReviewReq struct {
	RoomID    uint64  `json:"room_id" validate:"required"`
	BookingID *uint64 `json:"booking_id"`
	Rating    int     `json:"rating" validate:"required"`
	Title     *string `json:"title" validate:"omitempty,max=200"`
	Comment   *string `json:"comment" validate:"omitempty,max=2000"`
	Pros      *string `json:"pros" validate:"omitempty,max=1000"`
	Cons      *string `json:"cons" validate:"omitempty,max=1000"`
}

type updateReviewReq struct {
	Rating  *int    `json:"rating"`
	Title   *string `json:"title" validate:"omitempty,max=200"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
	Pros    *string `json:"pros" validate:"omitempty,max=1000"`
	Cons    *string `json:"cons" validate:"omitempty,max=1000"`
}

type reviewResp struct {
	ID             uint64  `json:"id"`
	UserID         uint64  `json:"user_id"`
	RoomID         uint64  `json:"room_id"`
	BookingID      *uint64 `json:"booking_id,omitempty"`
	Rating         int     `json:"rating"`
	Title          *string `json:"title,omitempty"`
	Comment        *string `json:"comment,omitempty"`
	Pros           *string `json:"pros,omitempty"`
	Cons           *string `json:"cons,omitempty"`
	IsFlagged      bool    `json:"is_flagged"`
	FlagReason     *string `json:"flag_reason,omitempty"`
	IsHidden       bool    `json:"is_hidden"`
	HelpfulCount   int     `json:"helpful_count"`
	UnhelpfulCount int     `json:"unhelpful_count"`
	EditedAt       *string `json:"edited_at,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toReviewResp(rv model.Review) reviewResp {
	return reviewResp{
		ID:             rv.ID,
		UserID:         rv.UserID,
		RoomID:         rv.RoomID,
		BookingID:      rv.BookingID,
		Rating:         rv.Rating,
		Title:          rv.Title,
		Comment:        rv.Comment,
		Pros:           rv.Pros,
		Cons:           rv.Cons,
		IsFlagged:      rv.IsFlagged,
		FlagReason:     rv.FlagReason,
		IsHidden:       rv.IsHidden,
		HelpfulCount:   rv.HelpfulCount,
		UnhelpfulCount: rv.UnhelpfulCount,
		EditedAt:       rfc3339Ptr(rv.EditedAt),
		CreatedAt:      rv.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      rv.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// moderator reports whether the role may see hidden reviews and act on
// moderation endpoints.
func moderator(role string) bool {
	return role == model.RoleModerator || role == model.RoleAdmin
}

// invalidateRoom drops every cached listing a review mutation for the
// room can have changed: the room's review listings and the room
// detail (which embeds the rating summary).
func (h *ReviewHandler) invalidateRoom(ctx context.Context, roomID uint64) {
	h.Cache.InvalidatePrefix(ctx, fmt.Sprintf("room_reviews:%d", roomID))
	h.Cache.InvalidatePrefix(ctx, "rooms")
}

// Create submits a review. When a booking_id is given the booking must
// belong to the caller and reference the reviewed room, and each
// booking may be reviewed once.
func (h *ReviewHandler) Create(c echo.Context) error {
	userID, _ := identity(c)

	var req createReviewReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	if verr := validator.Rating(req.Rating); verr != nil {
		return verr
	}

	ctx := c.Request().Context()
	if req.BookingID != nil {
		b, err := h.Bookings.GetByID(ctx, *req.BookingID)
		if err != nil {
			if err == booking.ErrNotFound {
				return apperror.NotFound("Booking")
			}
			return apperror.Internal("booking lookup failed", err)
		}
		if b.UserID != userID {
			return apperror.Forbidden("You can only review your own bookings")
		}
		if b.RoomID != req.RoomID {
			return apperror.Validation("Booking is not for this room")
		}
	}

	rv := model.Review{
		UserID:    userID,
		RoomID:    req.RoomID,
		BookingID: req.BookingID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
		Pros:      req.Pros,
		Cons:      req.Cons,
	}
	if err := h.Reviews.Create(ctx, &rv); err != nil {
		if err == repository.ErrDuplicateReview {
			return apperror.Conflict("You have already reviewed this booking")
		}
		return apperror.Internal("review creation failed", err)
	}

	h.invalidateRoom(ctx, rv.RoomID)
	_ = queue_publisher.PublishReviewCreated(ctx, queue.Event{
		Type:     queue.TypeReviewCreated,
		ReviewID: &rv.ID,
		RoomID:   &rv.RoomID,
		UserID:   rv.UserID,
		Rating:   rv.Rating,
	})
	return c.JSON(http.StatusCreated, toReviewResp(rv))
}

// Get returns one review. Hidden reviews read as missing except for
// moderators.
func (h *ReviewHandler) Get(c echo.Context) error {
	_, role := identity(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	rv, err := h.Reviews.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("Review")
		}
		return apperror.Internal("review lookup failed", err)
	}
	if rv.IsHidden && !moderator(role) {
		return apperror.NotFound("Review")
	}
	return c.JSON(http.StatusOK, toReviewResp(rv))
}

// ListByRoom returns a room's visible reviews plus their aggregate
// summary. Supports min_rating and sort (newest, oldest, rating_high,
// rating_low, helpful).
func (h *ReviewHandler) ListByRoom(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	f := repository.ReviewFilter{
		RoomID: roomID,
		Sort:   c.QueryParam("sort"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.QueryParam("min_rating"); raw != "" {
		n, verr := parseUint(raw, "min_rating")
		if verr != nil {
			return verr
		}
		f.MinRating = int(n)
	}

	ctx := c.Request().Context()
	key := cache.Key("room_reviews", roomID, f.Sort, f.MinRating, f.Limit, f.Offset)
	var resp roomReviewsResp
	if h.Cache.Get(ctx, key, &resp) {
		return c.JSON(http.StatusOK, resp)
	}

	reviews, err := h.Reviews.List(ctx, f)
	if err != nil {
		return apperror.Internal("review list failed", err)
	}
	summary, err := h.Reviews.SummaryByRoom(ctx, roomID)
	if err != nil {
		return apperror.Internal("review summary failed", err)
	}
	out := make([]reviewResp, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, toReviewResp(rv))
	}
	resp = roomReviewsResp{Reviews: out, Count: len(out), Summary: summary}
	h.Cache.Set(ctx, key, resp)
	return c.JSON(http.StatusOK, resp)
}

type roomReviewsResp struct {
	Reviews []reviewResp           `json:"reviews"`
	Count   int                    `json:"count"`
	Summary repository.RoomSummary `json:"summary"`
}

// Update edits a review's content. Owners only; moderation fields are
// untouchable here.
func (h *ReviewHandler) Update(c echo.Context) error {
	userID, _ := identity(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateReviewReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("Review")
		}
		return apperror.Internal("review lookup failed", err)
	}
	if rv.UserID != userID {
		return apperror.Forbidden("You can only update your own reviews")
	}

	if req.Rating != nil {
		if verr := validator.Rating(*req.Rating); verr != nil {
			return verr
		}
		rv.Rating = *req.Rating
	}
	if req.Title != nil {
		rv.Title = req.Title
	}
	if req.Comment != nil {
		rv.Comment = req.Comment
	}
	if req.Pros != nil {
		rv.Pros = req.Pros
	}
	if req.Cons != nil {
		rv.Cons = req.Cons
	}

	if err := h.Reviews.UpdateContent(ctx, &rv); err != nil {
		return apperror.Internal("review update failed", err)
	}
	h.invalidateRoom(ctx, rv.RoomID)
	return c.JSON(http.StatusOK, toReviewResp(rv))
}

// Delete removes a review. Owners, moderators and admins only.
func (h *ReviewHandler) Delete(c echo.Context) error {
	userID, role := identity(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("Review")
		}
		return apperror.Internal("review lookup failed", err)
	}
	if rv.UserID != userID && !moderator(role) {
		return apperror.Forbidden("You can only delete your own reviews")
	}

	if err := h.Reviews.Delete(ctx, id); err != nil {
		return apperror.Internal("review deletion failed", err)
	}
	h.invalidateRoom(ctx, rv.RoomID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Review deleted successfully"})
}

type flagReviewReq struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Flag reports a review for moderation and alerts the moderation queue.
func (h *ReviewHandler) Flag(c echo.Context) error {
	userID, _ := identity(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req flagReviewReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("Review")
		}
		return apperror.Internal("review lookup failed", err)
	}
	if err := h.Reviews.Flag(ctx, id, userID, req.Reason); err != nil {
		return apperror.Internal("review flag failed", err)
	}

	h.invalidateRoom(ctx, rv.RoomID)
	_ = queue_publisher.PublishReviewFlagged(ctx, queue.Event{
		Type:     queue.TypeReviewFlagged,
		ReviewID: &id,
		RoomID:   &rv.RoomID,
		UserID:   userID,
		Reason:   req.Reason,
	})
	return c.JSON(http.StatusOK, echo.Map{"message": "Review flagged for moderation"})
}

// Flagged lists reviews awaiting moderation, most recently flagged
// first. Moderators only.
func (h *ReviewHandler) Flagged(c echo.Context) error {
	limit, offset := pagination(c)
	reviews, err := h.Reviews.List(c.Request().Context(), repository.ReviewFilter{
		FlaggedOnly:   true,
		IncludeHidden: true,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return apperror.Internal("review list failed", err)
	}
	out := make([]reviewResp, 0, len(reviews))
	for _, rv := range reviews {
		out = append(out, toReviewResp(rv))
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": out, "count": len(out)})
}

type moderateReviewReq struct {
	Action string  `json:"action" validate:"required"`
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// Moderate resolves a flagged review. Moderators only.
func (h *ReviewHandler) Moderate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req moderateReviewReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("Review")
		}
		return apperror.Internal("review lookup failed", err)
	}

	var msg string
	switch req.Action {
	case "approve":
		err = h.Reviews.Approve(ctx, id)
		msg = "Review approved"
	case "hide":
		reason := ""
		if req.Reason != nil {
			reason = *req.Reason
		}
		err = h.Reviews.Hide(ctx, id, reason)
		msg = "Review hidden"
	case "delete":
		err = h.Reviews.Delete(ctx, id)
		msg = "Review deleted"
	default:
		return apperror.Validation("Invalid action. Must be: approve, hide, or delete")
	}
	if err != nil {
		return apperror.Internal("review moderation failed", err)
	}
	h.invalidateRoom(ctx, rv.RoomID)
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

type voteReviewReq struct {
	Helpful *bool `json:"helpful" validate:"required"`
}

// Vote records a helpful or unhelpful vote on a review.
func (h *ReviewHandler) Vote(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req voteReviewReq
	if err := c.Bind(&req); err != nil {
		return apperror.Validation("invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	rv, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return apperror.NotFound("Review")
		}
		return apperror.Internal("review lookup failed", err)
	}
	if err := h.Reviews.Vote(ctx, id, *req.Helpful); err != nil {
		return apperror.Internal("review vote failed", err)
	}
	h.invalidateRoom(ctx, rv.RoomID)
	return c.JSON(http.StatusOK, echo.Map{"message": "Vote recorded"})
}
